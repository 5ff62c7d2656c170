// Package baseline implements ignore files: known findings recorded once and
// filtered out of later runs so that only new problems are reported.
package baseline

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/codewithboateng/drulift/internal/ir"
)

type File struct {
	Ignore []Entry `yaml:"ignore"`
}

// Entry matches findings by rule, message regex and path glob. Empty Rule and
// Path match anything. Count limits how many findings the entry absorbs; zero
// means unlimited.
type Entry struct {
	Rule    string `yaml:"rule,omitempty"`
	Message string `yaml:"message"`
	Path    string `yaml:"path,omitempty"`
	Count   int    `yaml:"count,omitempty"`
}

type compiled struct {
	entry Entry
	re    *regexp.Regexp
}

type Baseline struct {
	entries []compiled
}

// Unmatched describes an entry that absorbed fewer findings than it expects.
type Unmatched struct {
	Entry    Entry
	Occurred int
}

func Load(path string) (*Baseline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse baseline %s: %w", path, err)
	}
	return New(f.Ignore)
}

func New(entries []Entry) (*Baseline, error) {
	out := &Baseline{}
	for i, e := range entries {
		if e.Message == "" {
			return nil, fmt.Errorf("entry %d: message is required", i)
		}
		if e.Count < 0 {
			return nil, fmt.Errorf("entry %d: negative count", i)
		}
		re, err := regexp.Compile(e.Message)
		if err != nil {
			return nil, fmt.Errorf("entry %d: message regex: %w", i, err)
		}
		if e.Path != "" && !doublestar.ValidatePattern(e.Path) {
			return nil, fmt.Errorf("entry %d: invalid path glob %q", i, e.Path)
		}
		out.entries = append(out.entries, compiled{entry: e, re: re})
	}
	return out, nil
}

func (c compiled) matches(f ir.Finding) bool {
	if c.entry.Rule != "" && c.entry.Rule != f.RuleID {
		return false
	}
	if c.entry.Path != "" {
		if ok, _ := doublestar.Match(c.entry.Path, f.File); !ok {
			return false
		}
	}
	return c.re.MatchString(f.Message)
}

// Apply splits findings into those still reported and the number absorbed.
// Each finding is absorbed by the first entry that matches and has budget
// left. Entries that absorbed fewer findings than expected are returned so
// stale baselines can be reported.
func (b *Baseline) Apply(in []ir.Finding) (kept []ir.Finding, ignored int, unmatched []Unmatched) {
	if b == nil || len(b.entries) == 0 {
		return in, 0, nil
	}
	used := make([]int, len(b.entries))
	kept = make([]ir.Finding, 0, len(in))
	for _, f := range in {
		absorbed := false
		for i, c := range b.entries {
			if c.entry.Count > 0 && used[i] >= c.entry.Count {
				continue
			}
			if c.matches(f) {
				used[i]++
				absorbed = true
				break
			}
		}
		if absorbed {
			ignored++
			continue
		}
		kept = append(kept, f)
	}
	for i, c := range b.entries {
		if used[i] == 0 || (c.entry.Count > 0 && used[i] < c.entry.Count) {
			unmatched = append(unmatched, Unmatched{Entry: c.entry, Occurred: used[i]})
		}
	}
	return kept, ignored, unmatched
}

// Generate builds a baseline absorbing exactly the given findings: one entry
// per distinct rule, file and message, with an anchored literal regex.
func Generate(findings []ir.Finding) File {
	type key struct{ rule, path, msg string }
	counts := map[key]int{}
	for _, f := range findings {
		counts[key{f.RuleID, f.File, f.Message}]++
	}
	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].path != keys[j].path {
			return keys[i].path < keys[j].path
		}
		if keys[i].rule != keys[j].rule {
			return keys[i].rule < keys[j].rule
		}
		return keys[i].msg < keys[j].msg
	})
	out := File{Ignore: make([]Entry, 0, len(keys))}
	for _, k := range keys {
		out.Ignore = append(out.Ignore, Entry{
			Rule:    k.rule,
			Message: "^" + regexp.QuoteMeta(k.msg) + "$",
			Path:    escapeGlob(k.path),
			Count:   counts[k],
		})
	}
	return out
}

// escapeGlob makes a literal path safe to use as a doublestar pattern.
func escapeGlob(p string) string {
	var out []byte
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '*', '?', '[', ']', '{', '}', '\\':
			out = append(out, '\\')
		}
		out = append(out, p[i])
	}
	return string(out)
}

func Write(path string, f File) error {
	b, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write baseline: %w", err)
	}
	return nil
}
