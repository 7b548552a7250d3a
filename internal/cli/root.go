// Package cli implements the pubrouter command line.
package cli

import (
	"context"
	"errors"
	"io/fs"

	"github.com/goliatone/go-pubrouter/pkg/config"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/logger"
	"github.com/goliatone/go-pubrouter/pkg/logging"
	"github.com/goliatone/go-pubrouter/pkg/notifier"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalFlags holds flags shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	adapter    string
	dir        string
	driver     string
	logLevel   string
	console    bool
}

// NewRootCommand builds the pubrouter command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "pubrouter",
		Short:         "Route publication router notifications",
		Long:          `Classify the content links of publication router notifications and route them to the notification store or the job queue.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML or JSON configuration file")
	pf.StringVar(&flags.envFile, "env-file", ".env", "Dotenv file loaded before reading PUBROUTER_* variables")
	pf.StringVarP(&flags.adapter, "adapter", "a", "", "Override router.adapter (file, queue)")
	pf.StringVarP(&flags.dir, "dir", "d", "", "Override storage.notifications_dir")
	pf.StringVar(&flags.driver, "driver", "", "Override storage.driver (file, sqlite, memory)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Override logging.level")
	pf.BoolVar(&flags.console, "console", false, "Human readable log output")

	root.AddCommand(
		newRouteCmd(flags),
		newLinksCmd(flags),
		newPathCmd(flags),
		newShowCmd(flags),
		newConfigCmd(flags),
	)
	return root
}

// loadConfig resolves configuration from the file, dotenv, environment and flags.
func (f *globalFlags) loadConfig() (config.Config, error) {
	if f.envFile != "" {
		if err := godotenv.Load(f.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, err
		}
	}

	opts := []config.LoadOption{config.WithEnv(), config.WithOverride(f.override)}
	if f.configPath != "" {
		return config.LoadFile(f.configPath, opts...)
	}
	return config.Load(map[string]any{}, opts...)
}

func (f *globalFlags) override(cfg *config.Config) {
	if f.adapter != "" {
		cfg.Router.Adapter = config.Adapter(f.adapter)
	}
	if f.dir != "" {
		cfg.Storage.NotificationsDir = f.dir
	}
	if f.driver != "" {
		cfg.Storage.Driver = config.Driver(f.driver)
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.console {
		cfg.Logging.Console = true
	}
}

func newLogger(cmd *cobra.Command, cfg config.Config) logger.Logger {
	return logging.New(cfg.Logging, cmd.ErrOrStderr())
}

// openModule loads configuration and assembles the notifier module.
func (f *globalFlags) openModule(cmd *cobra.Command) (*notifier.Module, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	return notifier.NewModule(commandContext(cmd), notifier.ModuleOptions{
		Config: cfg,
		Logger: newLogger(cmd, cfg),
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
