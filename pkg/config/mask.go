package config

import (
	"strings"

	masker "github.com/goliatone/go-masker"
)

const secretMask = "preserveEnds(2,2)"

func init() {
	masker.Default.RegisterMaskField("api_key", secretMask)
}

// Masked returns a loggable view of the configuration with secrets masked.
func (c Config) Masked() map[string]any {
	return map[string]any{
		"router": map[string]any{
			"adapter": string(c.Router.Adapter),
			"api_key": maskSecret(c.Router.APIKey),
		},
		"retrieval": map[string]any{
			"preferred_packaging_format": c.Retrieval.PreferredPackagingFormat,
			"retrieve_unpackaged":        c.Retrieval.RetrieveUnpackaged,
		},
		"storage": map[string]any{
			"driver":            string(c.Storage.Driver),
			"notifications_dir": c.Storage.NotificationsDir,
			"dsn":               c.Storage.DSN,
		},
		"queue": map[string]any{
			"max_workers":  c.Queue.MaxWorkers,
			"max_retries":  c.Queue.Retries(),
			"rate_per_sec": c.Queue.RatePerSec,
		},
		"logging": map[string]any{
			"level":   c.Logging.Level,
			"console": c.Logging.Console,
		},
	}
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if masked, err := masker.Default.String(secretMask, value); err == nil && masked != "" && masked != value {
		return masked
	}
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}
