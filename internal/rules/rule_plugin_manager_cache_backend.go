package rules

import "github.com/codewithboateng/drulift/internal/ir"

const (
	RulePluginManagerCacheBackend = "PLUGIN-MANAGER-CACHE-BACKEND"
	constructorName               = "__construct"
)

func init() {
	Register(Rule{
		ID:      RulePluginManagerCacheBackend,
		Summary: "Plugin managers should set a tagged cache backend in their constructor.",
		Docs:    "docs/rules/PLUGIN-MANAGER-CACHE-BACKEND.md",
		Process: processPluginManagerCacheBackend,
	})
}

func processPluginManagerCacheBackend(m *ir.Method, scope Scope) ([]string, error) {
	if !scope.IsInClass() {
		return nil, shouldNotHappen("method %s visited outside of a class", m.Name)
	}
	if scope.IsInTrait() {
		return nil, nil
	}
	if m.Name != constructorName {
		return nil, nil
	}
	desc := scope.ClassDescriptor()
	if desc == nil {
		return nil, shouldNotHappen("constructor visited without a resolved class")
	}
	if !currentClassifier().IsPluginManager(desc) {
		return nil, nil
	}

	var (
		declared bool
		cfg      *CacheConfiguration
	)
	// A nil body (abstract constructor) scans as "no call".
	if call, ok := FindConfigurationCall(m.Body); ok {
		declared, cfg = ExtractCacheConfiguration(call)
	}
	return ValidateCacheConfiguration(declared, cfg), nil
}
