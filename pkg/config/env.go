package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces environment overrides, e.g. PUBROUTER_ROUTER_ADAPTER.
const EnvPrefix = "PUBROUTER"

// ApplyEnv overlays environment variables onto cfg. Unset variables leave the
// current values untouched.
func ApplyEnv(cfg *Config) error {
	sections := []struct {
		name   string
		target any
	}{
		{"ROUTER", &cfg.Router},
		{"RETRIEVAL", &cfg.Retrieval},
		{"STORAGE", &cfg.Storage},
		{"QUEUE", &cfg.Queue},
		{"LOG", &cfg.Logging},
	}
	for _, section := range sections {
		if err := envconfig.Process(EnvPrefix+"_"+section.name, section.target); err != nil {
			return fmt.Errorf("config: load %s env: %w", section.name, err)
		}
	}
	return nil
}
