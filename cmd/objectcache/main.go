package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentuity/go-objectcache/config"
	"github.com/agentuity/go-objectcache/logger"
	"github.com/agentuity/go-objectcache/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "objectcache",
		Short:         "Two-tier object cache with expiry and cache-rush protection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "path to a YAML config file (env OBJECTCACHE_CONFIG)")
	flags.String("env-file", ".env", "dotenv file loaded before the config")
	flags.String("store", "", "comma separated stores: memory, sqlite, redis, postgres (env OBJECTCACHE_STORE)")
	flags.String("log-level", "", "log level (env "+logger.EnvLogLevel+")")

	root.AddCommand(
		newGetCommand(),
		newPutCommand(),
		newUnsetCommand(),
		newDeleteCommand(),
		newExistsCommand(),
		newClearCommand(),
		newServeCommand(),
	)
	return root
}

// loadConfig resolves the configuration for cmd: dotenv first, then the
// YAML file and environment, then command line flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.FlagOrEnv(cmd, "config", config.EnvPrefix+"CONFIG", ""))
	if err != nil {
		return nil, err
	}
	cfg.Store = config.FlagOrEnv(cmd, "store", config.EnvPrefix+"STORE", cfg.Store)
	cfg.LogLevel = config.FlagOrEnv(cmd, "log-level", logger.EnvLogLevel, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type session struct {
	cfg *config.Config
	rt  *config.Runtime
	log logger.Logger
}

// withSession builds the cache for cmd, runs fn and closes it again.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := config.NewLogger(cfg)
	ctx := cmd.Context()
	if cfg.Telemetry.Endpoint != "" {
		otelLog, shutdown, err := telemetry.New(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Endpoint:     cfg.Telemetry.Endpoint,
			Token:        cfg.Telemetry.Token,
			SharedSecret: cfg.Telemetry.SharedSecret,
		}, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to flush telemetry: %s", err)
			}
		}()
		log = otelLog
	}
	rt, err := config.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	err = fn(ctx, &session{cfg: cfg, rt: rt, log: log})
	if cerr := rt.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
