package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCacheConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		declared bool
		cfg      *CacheConfiguration
		want     []string
	}{
		{
			name: "no backend",
			want: []string{"Missing cache backend declaration for performance."},
		},
		{
			name:     "backend without tags",
			declared: true,
			want:     []string{"Plugin manager has cache backend specified but does not declare cache tags."},
		},
		{
			name:     "tags filtered to nothing",
			declared: true,
			cfg:      &CacheConfiguration{Key: "k"},
			want:     []string{"Plugin manager has cache backend specified but does not declare cache tags."},
		},
		{
			name:     "good tag",
			declared: true,
			cfg:      &CacheConfiguration{Key: "my_plugin_type", Tags: []string{"my_plugin_type_cache"}},
		},
		{
			name:     "unclear tags in declaration order",
			declared: true,
			cfg:      &CacheConfiguration{Key: "my_plugin_type", Tags: []string{"zeta", "my_plugin_type", "alpha", "My_Plugin_Type"}},
			want: []string{
				"zeta cache tag might be unclear and does not contain the cache key in it.",
				"alpha cache tag might be unclear and does not contain the cache key in it.",
				"My_Plugin_Type cache tag might be unclear and does not contain the cache key in it.",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateCacheConfiguration(tt.declared, tt.cfg))
		})
	}
}
