package logging

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Startup collects the effective server configuration and emits it as a
// single structured event.
type Startup struct {
	version  string
	config   map[string]string
	features map[string]bool
}

func NewStartup(version string) *Startup {
	return &Startup{
		version:  version,
		config:   make(map[string]string),
		features: make(map[string]bool),
	}
}

func (s *Startup) Config(key, value string) *Startup {
	s.config[key] = value
	return s
}

func (s *Startup) Feature(name string, enabled bool) *Startup {
	s.features[name] = enabled
	return s
}

// Log writes the startup event to the global logger.
func (s *Startup) Log() {
	s.event(log.Info()).Msg("cropdoc starting")
}

func (s *Startup) event(e *zerolog.Event) *zerolog.Event {
	e = e.Str("version", s.version)

	cfg := zerolog.Dict()
	for _, k := range sortedKeys(s.config) {
		cfg = cfg.Str(k, s.config[k])
	}
	feats := zerolog.Dict()
	for _, k := range sortedKeys(s.features) {
		feats = feats.Bool(k, s.features[k])
	}
	return e.Dict("config", cfg).Dict("features", feats)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
