package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/drulift/internal/ir"
)

func process(t *testing.T, class ir.Class, m ir.Method) []string {
	t.Helper()
	msgs, err := processPluginManagerCacheBackend(&m, classScope{class: &class})
	require.NoError(t, err)
	return msgs
}

func TestPluginManagerCacheBackend_NotAPluginManager(t *testing.T) {
	class := ir.Class{Name: `Foo\Bar`, Kind: ir.KindClass, Ancestors: []string{`Foo\Base`}}
	assert.Empty(t, process(t, class, constructor()))
	assert.Empty(t, process(t, class, constructor(setCacheBackend(str("k"), arr(str("other"))))))
}

func TestPluginManagerCacheBackend_NoCall(t *testing.T) {
	got := process(t, pluginManagerClass(), constructor(thisCall("alterInfo", str("my_info"))))
	assert.Equal(t, []string{"Missing cache backend declaration for performance."}, got)
}

func TestPluginManagerCacheBackend_AbstractConstructor(t *testing.T) {
	m := ir.Method{Name: "__construct", Abstract: true}
	got := process(t, pluginManagerClass(), m)
	assert.Equal(t, []string{"Missing cache backend declaration for performance."}, got)
}

func TestPluginManagerCacheBackend_TagContainsKey(t *testing.T) {
	got := process(t, pluginManagerClass(), constructor(
		setCacheBackend(str("my_plugin_type"), arr(str("my_plugin_type_cache"))),
	))
	assert.Empty(t, got)
}

func TestPluginManagerCacheBackend_UnclearTag(t *testing.T) {
	got := process(t, pluginManagerClass(), constructor(
		setCacheBackend(str("my_plugin_type"), arr(str("other_tag"))),
	))
	assert.Equal(t, []string{"other_tag cache tag might be unclear and does not contain the cache key in it."}, got)
}

func TestPluginManagerCacheBackend_EmptyTags(t *testing.T) {
	got := process(t, pluginManagerClass(), constructor(
		setCacheBackend(str("my_plugin_type"), arr()),
	))
	assert.Equal(t, []string{"Plugin manager has cache backend specified but does not declare cache tags."}, got)
}

func TestPluginManagerCacheBackend_NonLiteralKeyCountsAsMissing(t *testing.T) {
	got := process(t, pluginManagerClass(), constructor(
		setCacheBackend(opaque("variable_name"), arr(str("whatever"))),
	))
	assert.Equal(t, []string{"Missing cache backend declaration for performance."}, got)
}

func TestPluginManagerCacheBackend_OnlyFirstCallCounts(t *testing.T) {
	got := process(t, pluginManagerClass(), constructor(
		setCacheBackend(str("my_plugin_type"), arr(str("first_tag"))),
		setCacheBackend(str("my_plugin_type"), arr(str("my_plugin_type_ok"))),
	))
	assert.Equal(t, []string{"first_tag cache tag might be unclear and does not contain the cache key in it."}, got)
}

func TestPluginManagerCacheBackend_OtherMethodsIgnored(t *testing.T) {
	m := ir.Method{Name: "getDefinitions", HasBody: true}
	assert.Empty(t, process(t, pluginManagerClass(), m))

	// Method names are matched exactly.
	m = ir.Method{Name: "__Construct", HasBody: true}
	assert.Empty(t, process(t, pluginManagerClass(), m))
}

func TestPluginManagerCacheBackend_TraitSuppressed(t *testing.T) {
	class := pluginManagerClass()
	class.Kind = ir.KindTrait
	assert.Empty(t, process(t, class, constructor()))
	assert.Empty(t, process(t, class, constructor(setCacheBackend(str("k"), arr(str("bad"))))))
}

func TestPluginManagerCacheBackend_Idempotent(t *testing.T) {
	class := pluginManagerClass()
	m := constructor(setCacheBackend(str("my_plugin_type"), arr(str("a"), str("b"), str("my_plugin_type"))))
	first := process(t, class, m)
	second := process(t, class, m)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestPluginManagerCacheBackend_EngineInvariants(t *testing.T) {
	m := constructor()

	_, err := processPluginManagerCacheBackend(&m, fakeScope{inClass: false})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShouldNotHappen))

	_, err = processPluginManagerCacheBackend(&m, fakeScope{inClass: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShouldNotHappen))

	// Trait suppression happens before the descriptor is needed.
	msgs, err := processPluginManagerCacheBackend(&m, fakeScope{inClass: true, inTrait: true})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
