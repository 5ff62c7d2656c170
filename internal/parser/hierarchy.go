package parser

import (
	"strings"

	"github.com/codewithboateng/drulift/internal/ir"
)

// ResolveHierarchy fills Ancestors and Interfaces of every class from the
// declarations found across files. Names declared outside the parsed tree
// are kept as written and end the walk; inheritance cycles are tolerated.
func ResolveHierarchy(files []ir.File) {
	index := make(map[string]*ir.Class)
	for i := range files {
		for j := range files[i].Classes {
			c := &files[i].Classes[j]
			key := strings.ToLower(c.Name)
			if _, dup := index[key]; !dup {
				index[key] = c
			}
		}
	}
	for i := range files {
		for j := range files[i].Classes {
			c := &files[i].Classes[j]
			c.Ancestors = ancestors(c, index)
			c.Interfaces = interfaces(c, c.Ancestors, index)
		}
	}
}

func ancestors(c *ir.Class, index map[string]*ir.Class) []string {
	var out []string
	seen := map[string]bool{strings.ToLower(c.Name): true}
	for cur := c.Extends; cur != ""; {
		key := strings.ToLower(cur)
		if seen[key] {
			break
		}
		seen[key] = true
		out = append(out, cur)
		parent, ok := index[key]
		if !ok {
			break
		}
		cur = parent.Extends
	}
	return out
}

// interfaces walks declared interfaces of the class and its ancestors, and
// parent interfaces of every interface found, breadth first.
func interfaces(c *ir.Class, ancestors []string, index map[string]*ir.Class) []string {
	queue := append([]string(nil), c.Implements...)
	for _, a := range ancestors {
		if p, ok := index[strings.ToLower(a)]; ok {
			queue = append(queue, p.Implements...)
		}
	}
	var out []string
	seen := map[string]bool{}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
		if decl, ok := index[key]; ok && decl.Kind == ir.KindInterface {
			queue = append(queue, decl.Implements...)
		}
	}
	return out
}
