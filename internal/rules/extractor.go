package rules

import (
	"fmt"

	"github.com/codewithboateng/drulift/internal/ir"
)

// CacheConfiguration is what a setCacheBackend call declares.
type CacheConfiguration struct {
	Key  string
	Tags []string
}

// setCacheBackend($cache_backend, $cache_key, array $cache_tags = [])
const (
	argCacheKey  = 1
	argCacheTags = 2
)

// ExtractCacheConfiguration destructures a setCacheBackend call. A cache key
// that is not a string literal makes the whole call count as undeclared.
// The configuration is nil when no literal, non-empty tag array is passed;
// tag elements that are not string literals are skipped.
func ExtractCacheConfiguration(call *ir.MethodCall) (bool, *CacheConfiguration) {
	key, ok := stringValue(call.Arg(argCacheKey))
	if !ok {
		return false, nil
	}
	items, ok := arrayItems(call.Arg(argCacheTags))
	if !ok || len(items) == 0 {
		return true, nil
	}
	cfg := &CacheConfiguration{Key: key}
	for _, it := range items {
		if tag, ok := stringValue(it); ok {
			cfg.Tags = append(cfg.Tags, tag)
		}
	}
	return true, cfg
}

func stringValue(e ir.Expr) (string, bool) {
	if e == nil {
		return "", false
	}
	switch v := e.(type) {
	case *ir.StringLit:
		return v.Value, true
	case *ir.ArrayLit, *ir.MethodCall, *ir.OpaqueExpr:
		return "", false
	default:
		panic(unknownVariant(e))
	}
}

func arrayItems(e ir.Expr) ([]ir.Expr, bool) {
	if e == nil {
		return nil, false
	}
	switch v := e.(type) {
	case *ir.ArrayLit:
		return v.Items, true
	case *ir.StringLit, *ir.MethodCall, *ir.OpaqueExpr:
		return nil, false
	default:
		panic(unknownVariant(e))
	}
}

func unknownVariant(v any) string {
	return fmt.Sprintf("rules: unhandled syntax node %T", v)
}
