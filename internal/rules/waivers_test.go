package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codewithboateng/drulift/internal/ir"
	"github.com/codewithboateng/drulift/internal/storage"
)

func TestApplyWaivers(t *testing.T) {
	in := []ir.Finding{
		{ID: "1", RuleID: RulePluginManagerCacheBackend, File: "a.php", Class: `Drupal\a\One`, Method: "__construct", Message: "zeta cache tag might be unclear and does not contain the cache key in it."},
		{ID: "2", RuleID: RulePluginManagerCacheBackend, File: "b.php", Class: `Drupal\b\Two`, Method: "__construct", Message: "Missing cache backend declaration for performance."},
		{ID: "3", RuleID: RulePluginManagerCacheBackend, File: "c.php", Class: `Drupal\c\Three`, Method: "__construct", Message: "Missing cache backend declaration for performance."},
	}

	kept, n := ApplyWaivers(in, nil)
	assert.Equal(t, in, kept)
	assert.Zero(t, n)

	kept, n = ApplyWaivers(in, []storage.Waiver{
		{RuleID: "plugin-manager-cache-backend", Class: `\drupal\a\one`},
		{RuleID: RulePluginManagerCacheBackend, PatternSub: "c.php"},
		{RuleID: "OTHER-RULE"},
	})
	assert.Equal(t, 2, n)
	if assert.Len(t, kept, 1) {
		assert.Equal(t, "2", kept[0].ID)
	}
}
