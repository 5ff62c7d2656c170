package rules

import (
	"runtime"
	"strings"
	"sync"

	"github.com/codewithboateng/drulift/internal/ir"
)

type Settings struct {
	Disabled map[string]bool
	// PluginManagerBases extends the built-in plugin-manager recognition set.
	PluginManagerBases []string
	// Workers bounds concurrent rule evaluation; 0 means GOMAXPROCS.
	Workers int
}

var (
	settingsMu sync.RWMutex
	rsettings  = Settings{
		Disabled: map[string]bool{},
		Workers:  runtime.GOMAXPROCS(0),
	}
	classifier = NewClassifier()
)

// SetSettings replaces the settings used by List and Evaluate. It is safe to
// call concurrently with an evaluation; methods already being processed keep
// the classifier they started with.
func SetSettings(s Settings) {
	// fill defaults
	if s.Disabled == nil {
		s.Disabled = map[string]bool{}
	}
	norm := make(map[string]bool, len(s.Disabled))
	for id, off := range s.Disabled {
		norm[strings.ToUpper(strings.TrimSpace(id))] = off
	}
	s.Disabled = norm
	if s.Workers <= 0 {
		s.Workers = runtime.GOMAXPROCS(0)
	}
	c := NewClassifier(s.PluginManagerBases...)

	settingsMu.Lock()
	defer settingsMu.Unlock()
	rsettings = s
	classifier = c
}

// CurrentSettings returns the settings rules are evaluated with. The Disabled
// map is shared and must not be modified.
func CurrentSettings() Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return rsettings
}

func currentClassifier() *Classifier {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return classifier
}

// IsPluginManager classifies a class with the current settings.
func IsPluginManager(desc *ir.ClassDescriptor) bool {
	return currentClassifier().IsPluginManager(desc)
}
