package rules

import (
	"strings"

	"github.com/codewithboateng/drulift/internal/ir"
)

// Types whose descendants and implementors are plugin managers. Drupal core
// is usually outside the analyzed tree, so DefaultPluginManager is listed
// alongside the interface it implements.
var defaultPluginManagerBases = []string{
	`Drupal\Component\Plugin\PluginManagerInterface`,
	`Drupal\Core\Plugin\DefaultPluginManager`,
}

// Classifier decides whether a class must follow the plugin-manager cache
// convention.
type Classifier struct {
	names map[string]struct{}
}

// NewClassifier returns a classifier recognising the built-in bases plus extra.
func NewClassifier(extra ...string) *Classifier {
	c := &Classifier{names: make(map[string]struct{}, len(defaultPluginManagerBases)+len(extra))}
	for _, n := range defaultPluginManagerBases {
		c.names[normalizeClassName(n)] = struct{}{}
	}
	for _, n := range extra {
		if n = normalizeClassName(n); n != "" {
			c.names[n] = struct{}{}
		}
	}
	return c
}

// IsPluginManager reports whether the class or anything it inherits from is
// in the recognition set. Interfaces and anonymous classes never qualify.
func (c *Classifier) IsPluginManager(desc *ir.ClassDescriptor) bool {
	if desc == nil || desc.IsInterface || desc.IsAnonymous {
		return false
	}
	if c.recognises(desc.Name) {
		return true
	}
	for _, a := range desc.Ancestors {
		if c.recognises(a) {
			return true
		}
	}
	for _, i := range desc.Interfaces {
		if c.recognises(i) {
			return true
		}
	}
	return false
}

func (c *Classifier) recognises(name string) bool {
	_, ok := c.names[normalizeClassName(name)]
	return ok
}

// PHP class names are case-insensitive.
func normalizeClassName(name string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(name), `\`))
}
