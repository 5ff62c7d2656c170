package golden

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/codewithboateng/drulift/internal/ir"
	"github.com/codewithboateng/drulift/internal/parser"
	"github.com/codewithboateng/drulift/internal/rules"
)

// manager renders a plugin manager whose constructor starts on line 7.
func manager(name, body string) string {
	return fmt.Sprintf(`<?php
namespace Drupal\golden;

use Drupal\Core\Plugin\DefaultPluginManager;

class %s extends DefaultPluginManager {
  public function __construct($c) {
    %s
  }
}
`, name, body)
}

func sampleModule() map[string]string {
	return map[string]string{
		"src/Good.php":       manager("Good", `$this->setCacheBackend($c, 'good', ['good_plugins', 'good']);`),
		"src/Missing.php":    manager("Missing", `$this->alterInfo('missing');`),
		"src/NoTags.php":     manager("NoTags", `$this->setCacheBackend($c, 'no_tags');`),
		"src/EmptyTags.php":  manager("EmptyTags", `$this->setCacheBackend($c, 'empty', []);`),
		"src/Unclear.php":    manager("Unclear", `$this->setCacheBackend($c, 'widget', ['widget_list', 'config:other', "thing"]);`),
		"src/DynamicKey.php": manager("DynamicKey", `$this->setCacheBackend($c, $key, ['x']);`),
		"src/Nested.php":     manager("Nested", `if ($c) { $this->setCacheBackend($c, 'nested', ['nested']); }`),
		"src/FirstWins.php": manager("FirstWins", `$this->setCacheBackend($c, $dyn, ['a']);
    $this->setCacheBackend($c, 'later', ['later']);`),
		"src/Nowdoc.php":  manager("Nowdoc", "$this->setCacheBackend($c, <<<'EOT'\nnd\nEOT, ['nd_plugins']);"),
		"src/Heredoc.php": manager("Heredoc", "$this->setCacheBackend($c, <<<EOT\n    hd\n    EOT, ['hd_list', 'other']);"),
		"src/BaseManager.php": `<?php
namespace Drupal\golden;

use Drupal\Core\Plugin\DefaultPluginManager;

abstract class BaseManager extends DefaultPluginManager {
}
`,
		"src/sub/ChildManager.php": `<?php
namespace Drupal\golden\sub;

use Drupal\golden\BaseManager;

class ChildManager extends BaseManager {
  public function __construct() {
  }
}
`,
		"src/ByInterface.php": `<?php
namespace Drupal\golden;

use Drupal\Component\Plugin\PluginManagerInterface;

class ByInterface implements PluginManagerInterface {
  public function __construct() {
  }
}
`,
		"src/Helper.php": `<?php
namespace Drupal\golden;

trait Helper {
  public function __construct() {
  }
}
`,
		"src/Plain.php": `<?php
namespace Drupal\golden;

class Plain {
  public function __construct() {
  }
}
`,
		"vendor/drupal/core/Skipped.php": manager("Skipped", ""),
	}
}

func analyzeStrings(t *testing.T, files map[string]string, settings rules.Settings) ir.Run {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	run, diags, err := parser.Parse(context.Background(), dir)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(diags.Warnings) > 0 {
		t.Fatalf("unexpected parse warnings: %v", diags.Warnings)
	}

	rules.SetSettings(settings)
	t.Cleanup(func() { rules.SetSettings(rules.Settings{}) })

	run.Findings, err = rules.Evaluate(context.Background(), &run)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return run
}
