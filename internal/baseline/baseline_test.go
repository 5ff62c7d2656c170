package baseline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/drulift/internal/ir"
)

const rule = "PLUGIN-MANAGER-CACHE-BACKEND"

func finding(file, msg string) ir.Finding {
	return ir.Finding{RuleID: rule, File: file, Message: msg}
}

func sample() []ir.Finding {
	return []ir.Finding{
		finding("web/modules/a/src/AManager.php", "Missing cache backend declaration for performance."),
		finding("web/modules/b/src/BManager.php", "Plugin manager has cache backend specified but does not declare cache tags."),
		finding("web/modules/b/src/BManager.php", "foo cache tag might be unclear and does not contain the cache key in it."),
		finding("web/modules/b/src/BManager.php", "bar cache tag might be unclear and does not contain the cache key in it."),
	}
}

func TestApply_RegexAndGlob(t *testing.T) {
	b, err := New([]Entry{
		{Message: "cache tag might be unclear", Path: "web/modules/b/**"},
	})
	require.NoError(t, err)

	kept, ignored, unmatched := b.Apply(sample())
	assert.Equal(t, 2, ignored)
	require.Len(t, kept, 2)
	assert.Equal(t, "web/modules/a/src/AManager.php", kept[0].File)
	assert.Empty(t, unmatched)
}

func TestApply_CountAndRule(t *testing.T) {
	b, err := New([]Entry{
		{Rule: rule, Message: "unclear", Count: 1},
		{Rule: "OTHER", Message: ".*"},
		{Message: "^never$", Count: 2},
	})
	require.NoError(t, err)

	kept, ignored, unmatched := b.Apply(sample())
	assert.Equal(t, 1, ignored)
	assert.Len(t, kept, 3)
	require.Len(t, unmatched, 2)
	assert.Equal(t, "OTHER", unmatched[0].Entry.Rule)
	assert.Equal(t, "^never$", unmatched[1].Entry.Message)
	assert.Zero(t, unmatched[1].Occurred)
}

func TestApply_NilBaseline(t *testing.T) {
	var b *Baseline
	kept, ignored, unmatched := b.Apply(sample())
	assert.Len(t, kept, 4)
	assert.Zero(t, ignored)
	assert.Nil(t, unmatched)
}

func TestNew_Errors(t *testing.T) {
	for name, e := range map[string]Entry{
		"empty message": {},
		"bad regex":     {Message: "("},
		"bad glob":      {Message: "x", Path: "a/[b"},
		"neg count":     {Message: "x", Count: -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New([]Entry{e})
			assert.Error(t, err)
		})
	}
}

func TestGenerateWriteLoad_AbsorbsEverything(t *testing.T) {
	in := append(sample(), finding("web/modules/[x]/X.php", "a.b (c)?"))
	gen := Generate(in)
	require.Len(t, gen.Ignore, 5)
	assert.Equal(t, "web/modules/\\[x\\]/X.php", gen.Ignore[0].Path)

	path := filepath.Join(t.TempDir(), "baseline.yaml")
	require.NoError(t, Write(path, gen))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ignore:")

	b, err := Load(path)
	require.NoError(t, err)
	kept, ignored, unmatched := b.Apply(in)
	assert.Empty(t, kept)
	assert.Equal(t, len(in), ignored)
	assert.Empty(t, unmatched)

	// A new finding is not absorbed.
	kept, _, _ = b.Apply(append(in, finding("web/modules/a/src/AManager.php", "a new one")))
	require.Len(t, kept, 1)
	assert.Equal(t, "a new one", kept[0].Message)
}

func TestGenerate_CountsDuplicates(t *testing.T) {
	f := finding("x.php", "same")
	gen := Generate([]ir.Finding{f, f, f})
	require.Len(t, gen.Ignore, 1)
	assert.Equal(t, 3, gen.Ignore[0].Count)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
