package rules

import (
	"fmt"
	"strings"
)

const (
	msgMissingBackend = "Missing cache backend declaration for performance."
	msgMissingTags    = "Plugin manager has cache backend specified but does not declare cache tags."
	msgUnclearTag     = "%s cache tag might be unclear and does not contain the cache key in it."
)

// ValidateCacheConfiguration turns an extracted configuration into ordered
// diagnostics.
func ValidateCacheConfiguration(backendDeclared bool, cfg *CacheConfiguration) []string {
	var out []string
	if !backendDeclared {
		out = append(out, msgMissingBackend)
	} else if cfg == nil || len(cfg.Tags) == 0 {
		out = append(out, msgMissingTags)
	}
	if cfg == nil {
		return out
	}
	for _, tag := range cfg.Tags {
		if !strings.Contains(tag, cfg.Key) {
			out = append(out, fmt.Sprintf(msgUnclearTag, tag))
		}
	}
	return out
}
