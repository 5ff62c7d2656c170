package fuzz

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/codewithboateng/drulift/internal/parser"
	"github.com/codewithboateng/drulift/internal/rules"
)

// Fuzz constructor bodies of a plugin manager: parsing and evaluation must
// never panic, and a tree built by the parser never breaks rule invariants.
func FuzzAnalyzeNoPanic(f *testing.F) {
	seeds := []string{
		`$this->setCacheBackend($c, 'k', ['k_tag']);`,
		`$this->setCacheBackend($c, "k\n", array('x' => "y", ...$more));`,
		`$this?->setCacheBackend(cache_backend: $c, cache_key: 'k');`,
		`if (`,
		"garbage-but-should-not-panic",
		`}} class Broken { public function __construct() {`,
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, body string) {
		dir := t.TempDir()
		content := "<?php\nclass F extends \\Drupal\\Core\\Plugin\\DefaultPluginManager {\n  public function __construct($c) {\n" +
			body + "\n  }\n}\n"
		if err := os.WriteFile(filepath.Join(dir, "fuzz.php"), []byte(content), 0o644); err != nil {
			t.Skipf("write failed: %v", err)
		}
		run, _, err := parser.Parse(context.Background(), dir)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if _, err := rules.Evaluate(context.Background(), &run); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	})
}
