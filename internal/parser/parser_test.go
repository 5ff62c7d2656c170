package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/drulift/internal/ir"
)

const managerSource = `<?php

namespace Drupal\my_module;

use Drupal\Core\Cache\CacheBackendInterface;
use Drupal\Core\Extension\ModuleHandlerInterface;
use Drupal\Core\Plugin\DefaultPluginManager;

/**
 * Manages my plugins.
 */
class MyPluginManager extends DefaultPluginManager {

  public function __construct(\Traversable $namespaces, CacheBackendInterface $cache_backend, ModuleHandlerInterface $module_handler) {
    parent::__construct('Plugin/MyPlugin', $namespaces, $module_handler);
    // Allow other modules to alter definitions.
    $this->alterInfo('my_plugin_info');
    $this->setCacheBackend($cache_backend, 'my_plugin_type', ['my_plugin_type_plugins', "other_tag", $dynamic]);
    if ($namespaces) {
      $this->setCacheBackend($cache_backend, 'nested');
    }
  }

  public function getFallbackPluginId($plugin_id, array $configuration = []) {
    return 'broken';
  }

}
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func findClass(t *testing.T, run ir.Run, name string) *ir.Class {
	t.Helper()
	for i := range run.Files {
		for j := range run.Files[i].Classes {
			if run.Files[i].Classes[j].Name == name {
				return &run.Files[i].Classes[j]
			}
		}
	}
	t.Fatalf("class %s not found", name)
	return nil
}

func TestParse_PluginManager(t *testing.T) {
	dir := writeFiles(t, map[string]string{"src/MyPluginManager.php": managerSource})

	run, diags, err := Parse(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, diags.Warnings)
	require.Len(t, run.Files, 1)
	assert.Equal(t, "src/MyPluginManager.php", run.Files[0].Path)
	assert.Equal(t, `Drupal\my_module`, run.Files[0].Namespace)
	assert.NotEmpty(t, run.Files[0].Hash)

	c := findClass(t, run, `Drupal\my_module\MyPluginManager`)
	assert.Equal(t, ir.KindClass, c.Kind)
	assert.Equal(t, `Drupal\Core\Plugin\DefaultPluginManager`, c.Extends)
	assert.Equal(t, []string{`Drupal\Core\Plugin\DefaultPluginManager`}, c.Ancestors)
	require.Len(t, c.Methods, 2)

	ctor := c.Methods[0]
	assert.Equal(t, "__construct", ctor.Name)
	assert.True(t, ctor.HasBody)
	require.Len(t, ctor.Body, 4)

	_, isExpr := ctor.Body[0].(*ir.ExprStmt)
	assert.True(t, isExpr, "parent::__construct is an expression statement")
	_, isOther := ctor.Body[3].(*ir.OtherStmt)
	assert.True(t, isOther, "if statement is not descended into")

	alter := ctor.Body[1].(*ir.ExprStmt).X.(*ir.MethodCall)
	assert.Equal(t, "alterInfo", alter.Name)

	call, ok := ctor.Body[2].(*ir.ExprStmt).X.(*ir.MethodCall)
	require.True(t, ok)
	assert.Equal(t, "setCacheBackend", call.Name)
	require.Len(t, call.Args, 3)
	assert.IsType(t, &ir.OpaqueExpr{}, call.Args[0])
	assert.Equal(t, &ir.StringLit{Value: "my_plugin_type"}, call.Args[1])
	tags, ok := call.Args[2].(*ir.ArrayLit)
	require.True(t, ok)
	require.Len(t, tags.Items, 3)
	assert.Equal(t, &ir.StringLit{Value: "my_plugin_type_plugins"}, tags.Items[0])
	assert.Equal(t, &ir.StringLit{Value: "other_tag"}, tags.Items[1])
	assert.IsType(t, &ir.OpaqueExpr{}, tags.Items[2])
}

func TestParse_HierarchyAcrossFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a/BaseManager.php": `<?php
namespace Drupal\shared;

use Drupal\Core\Plugin\DefaultPluginManager as CoreManager;

abstract class BaseManager extends CoreManager {
  abstract public function __construct();
}
`,
		"b/ChildManager.php": `<?php
namespace Drupal\child;

use Drupal\shared\BaseManager;

class ChildManager extends BaseManager implements \Countable {
  public function __construct() {}
}
`,
		"c/Things.php": `<?php
namespace Drupal\things;

use Drupal\Component\Plugin\PluginManagerInterface;

interface ThingManagerInterface extends PluginManagerInterface {}

class ThingManager implements ThingManagerInterface {
  public function __construct() {
    $this->setCacheBackend($cache, "thing\tkey", array('thing_tag', 'k' => 'keyed'));
  }
}

trait ThingHelper {
  public function __construct() {}
}
`,
		"vendor/lib/Ignored.php": `<?php class Ignored {}`,
		"README.md":              "not php",
	})

	run, _, err := Parse(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, run.Files, 3)

	base := findClass(t, run, `Drupal\shared\BaseManager`)
	assert.True(t, base.Abstract)
	require.Len(t, base.Methods, 1)
	assert.True(t, base.Methods[0].Abstract)
	assert.False(t, base.Methods[0].HasBody)

	child := findClass(t, run, `Drupal\child\ChildManager`)
	assert.Equal(t, []string{`Drupal\shared\BaseManager`, `Drupal\Core\Plugin\DefaultPluginManager`}, child.Ancestors)
	assert.Equal(t, []string{"Countable"}, child.Interfaces)
	assert.True(t, child.Methods[0].HasBody)
	assert.Empty(t, child.Methods[0].Body)

	iface := findClass(t, run, `Drupal\things\ThingManagerInterface`)
	assert.Equal(t, ir.KindInterface, iface.Kind)
	assert.Equal(t, []string{`Drupal\Component\Plugin\PluginManagerInterface`}, iface.Interfaces)

	thing := findClass(t, run, `Drupal\things\ThingManager`)
	assert.Equal(t, []string{`Drupal\things\ThingManagerInterface`, `Drupal\Component\Plugin\PluginManagerInterface`}, thing.Interfaces)
	call := thing.Methods[0].Body[0].(*ir.ExprStmt).X.(*ir.MethodCall)
	assert.Equal(t, &ir.StringLit{Value: "thing\tkey"}, call.Args[1])
	assert.Equal(t, &ir.ArrayLit{Items: []ir.Expr{&ir.StringLit{Value: "thing_tag"}, &ir.StringLit{Value: "keyed"}}}, call.Args[2])

	helper := findClass(t, run, `Drupal\things\ThingHelper`)
	assert.Equal(t, ir.KindTrait, helper.Kind)
}

func TestParse_InterpolatedStringIsOpaque(t *testing.T) {
	dir := writeFiles(t, map[string]string{"x.php": `<?php
class X {
  public function __construct() {
    $this->setCacheBackend($c, "prefix_{$suffix}", ['it\'s']);
  }
}
`})
	run, _, err := Parse(context.Background(), dir)
	require.NoError(t, err)
	call := findClass(t, run, "X").Methods[0].Body[0].(*ir.ExprStmt).X.(*ir.MethodCall)
	assert.IsType(t, &ir.OpaqueExpr{}, call.Args[1])
	assert.Equal(t, &ir.ArrayLit{Items: []ir.Expr{&ir.StringLit{Value: "it's"}}}, call.Args[2])
}

func TestParse_HeredocAndNowdocLiterals(t *testing.T) {
	dir := writeFiles(t, map[string]string{"x.php": `<?php
class X {
  public function __construct() {
    $this->setCacheBackend($c, <<<'EOT'
hk
EOT, ['hk_tag']);
    $this->setCacheBackend($c, <<<EOT
      plain_key
      EOT, [<<<"EOT"
tag\tone
EOT
    ]);
    $this->setCacheBackend($c, <<<EOT
key_{$suffix}
EOT, []);
  }
}
`})
	run, _, err := Parse(context.Background(), dir)
	require.NoError(t, err)
	body := findClass(t, run, "X").Methods[0].Body
	require.Len(t, body, 3)
	args := func(i int) []ir.Expr { return body[i].(*ir.ExprStmt).X.(*ir.MethodCall).Args }

	assert.Equal(t, &ir.StringLit{Value: "hk"}, args(0)[1])
	assert.Equal(t, &ir.StringLit{Value: "plain_key"}, args(1)[1])
	assert.Equal(t, &ir.ArrayLit{Items: []ir.Expr{&ir.StringLit{Value: "tag\tone"}}}, args(1)[2])
	assert.IsType(t, &ir.OpaqueExpr{}, args(2)[1])
}

func TestParse_SingleFileRoot(t *testing.T) {
	dir := writeFiles(t, map[string]string{"my.module": managerSource})
	run, _, err := Parse(context.Background(), filepath.Join(dir, "my.module"))
	require.NoError(t, err)
	require.Len(t, run.Files, 1)
	assert.Equal(t, "my.module", run.Files[0].Path)
}

func TestParse_MissingRoot(t *testing.T) {
	_, _, err := Parse(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestParse_SyntaxErrorIsAWarning(t *testing.T) {
	dir := writeFiles(t, map[string]string{"broken.php": "<?php\nclass Broken {\n  public function __construct() {\n"})
	run, diags, err := Parse(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, run.Files, 1)
	assert.NotEmpty(t, diags.Warnings)
}

func TestParse_CancelledContext(t *testing.T) {
	dir := writeFiles(t, map[string]string{"x.php": managerSource})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Parse(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParser_CacheKeepsResolutionFresh(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"Child.php": "<?php\nclass Child extends Base {}\n",
		"Base.php":  "<?php\nclass Base extends \\Drupal\\Core\\Plugin\\DefaultPluginManager {}\n",
	})
	p, err := New(DefaultOptions())
	require.NoError(t, err)

	first, _, err := p.Parse(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Base", `Drupal\Core\Plugin\DefaultPluginManager`}, findClass(t, first, "Child").Ancestors)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Base.php"), []byte("<?php\nclass Base {}\n"), 0o644))
	second, _, err := p.Parse(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Base"}, findClass(t, second, "Child").Ancestors)
	assert.NotEqual(t, first.Files[0].Hash, second.Files[0].Hash)
}

func TestParser_Matches(t *testing.T) {
	p, err := New(Options{Include: []string{"**/*.php"}, Exclude: []string{"**/tests/**"}})
	require.NoError(t, err)
	assert.True(t, p.Matches("src/A.php"))
	assert.True(t, p.Matches("A.php"))
	assert.False(t, p.Matches("src/tests/A.php"))
	assert.False(t, p.Matches("src/A.inc"))

	_, err = New(Options{Include: []string{"[unterminated"}})
	assert.Error(t, err)
}

func TestLowerer_Resolve(t *testing.T) {
	l := &lowerer{ns: `Drupal\mod`, uses: map[string]string{
		"defaultpluginmanager": `Drupal\Core\Plugin\DefaultPluginManager`,
		"plugin":               `Drupal\Component\Plugin`,
	}}
	tests := map[string]string{
		`\Fully\Qualified`:              `Fully\Qualified`,
		`DefaultPluginManager`:          `Drupal\Core\Plugin\DefaultPluginManager`,
		`defaultPluginManager`:          `Drupal\Core\Plugin\DefaultPluginManager`,
		`Plugin\PluginManagerInterface`: `Drupal\Component\Plugin\PluginManagerInterface`,
		`Local`:                         `Drupal\mod\Local`,
		`namespace\Sub\Thing`:           `Drupal\mod\Sub\Thing`,
		`Sub\Thing`:                     `Drupal\mod\Sub\Thing`,
	}
	for in, want := range tests {
		assert.Equal(t, want, l.resolve(in), in)
	}
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, `it's`, unquoteSingle(`'it\'s'`))
	assert.Equal(t, `a\b`, unquoteSingle(`'a\\b'`))
	assert.Equal(t, `a\nb`, unquoteSingle(`'a\nb'`))
	assert.Equal(t, "x", unquoteSingle(`b'x'`))
	assert.Equal(t, "a\nb", unquoteDouble(`"a\nb"`))
	assert.Equal(t, `a\qb`, unquoteDouble(`"a\qb"`))
	assert.Equal(t, `$x "q"`, unquoteDouble(`"\$x \"q\""`))
}

func TestHeredocBody(t *testing.T) {
	cases := []struct {
		src, want string
	}{
		{"<<<'EOT'\nhk\nEOT", "hk"},
		{"<<<EOT\nEOT", ""},
		{"<<<EOT\r\na\r\nb\r\nEOT", "a\nb"},
		{"<<<EOT\n    a\n      b\n    EOT", "a\n  b"},
	}
	for _, c := range cases {
		got, ok := heredocBody(c.src)
		assert.True(t, ok, c.src)
		assert.Equal(t, c.want, got, c.src)
	}
	_, ok := heredocBody(`"not a heredoc"`)
	assert.False(t, ok)
}

func TestResolveHierarchy_Cycle(t *testing.T) {
	files := []ir.File{{Classes: []ir.Class{
		{Name: "A", Kind: ir.KindClass, Extends: "B"},
		{Name: "B", Kind: ir.KindClass, Extends: "A"},
		{Name: "I", Kind: ir.KindInterface, Implements: []string{"J"}},
		{Name: "J", Kind: ir.KindInterface, Implements: []string{"I"}},
		{Name: "C", Kind: ir.KindClass, Implements: []string{"I"}},
	}}}
	ResolveHierarchy(files)
	assert.Equal(t, []string{"B"}, files[0].Classes[0].Ancestors)
	assert.Equal(t, []string{"A"}, files[0].Classes[1].Ancestors)
	assert.Equal(t, []string{"I", "J"}, files[0].Classes[4].Interfaces)
}
