package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/grotto-neuro/grotto/pkg/grotto"
	"github.com/grotto-neuro/grotto/pkg/logging"
)

var version = "0.1.0"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "grotto",
		Short:   "Query CAVE-style connectomics services",
		Long:    "grotto looks up segmentation roots and leaves, level-2 chunk attributes, and materialized annotation tables, with optional parallel batch execution.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			jobs, _ := cmd.Flags().GetInt("jobs")
			if jobs < 1 {
				return fmt.Errorf("jobs must be >= 1, got %d", jobs)
			}

			cfg := logging.DefaultConfig()
			cfg.Pretty = true
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Level = logging.LevelDebug
			}
			logging.Setup(cfg)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file (default ~/.config/grotto/config.yaml)")
	cmd.PersistentFlags().String("server", "", "base URL of the service deployment")
	cmd.PersistentFlags().String("datastack", "", "datastack name")
	cmd.PersistentFlags().String("token", "", "bearer token for authenticated datastacks")
	cmd.PersistentFlags().String("redis", "localhost:6379", "redis address for caching and budget state")
	cmd.PersistentFlags().Int("jobs", 1, "number of concurrent batch workers")
	cmd.PersistentFlags().Bool("progress", false, "log batch progress")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	cmd.AddCommand(newRootIDCmd())
	cmd.AddCommand(newLeavesCmd())
	cmd.AddCommand(newL2DataCmd())
	cmd.AddCommand(newQueryCmd())

	return cmd
}

// resolveOptions merges the config file and flags into client options.
// Flags win over file values.
func resolveOptions(cmd *cobra.Command) (grotto.Options, string, error) {
	configPath, _ := cmd.Flags().GetString("config")
	explicit := configPath != ""
	if !explicit {
		configPath = defaultConfigPath()
	}

	cfg := &fileConfig{}
	if configPath != "" {
		loaded, err := loadConfig(configPath, explicit)
		if err != nil {
			return grotto.Options{}, "", err
		}
		cfg = loaded
	}

	// Flags win when set; otherwise file values; otherwise flag defaults.
	pick := func(flag, fileValue string) string {
		if cmd.Flags().Changed(flag) || fileValue == "" {
			v, _ := cmd.Flags().GetString(flag)
			if v != "" {
				return v
			}
		}
		return fileValue
	}

	opts := grotto.Options{
		Server:    pick("server", cfg.Server),
		Datastack: pick("datastack", cfg.Datastack),
		AuthToken: pick("token", cfg.Token),
		Workers:   cfg.Jobs,
		Progress:  cfg.Progress,
	}
	redisAddr := pick("redis", cfg.Redis)

	if cmd.Flags().Changed("jobs") || opts.Workers < 1 {
		opts.Workers, _ = cmd.Flags().GetInt("jobs")
	}
	if cmd.Flags().Changed("progress") {
		opts.Progress, _ = cmd.Flags().GetBool("progress")
	}

	if opts.Server == "" {
		return grotto.Options{}, "", fmt.Errorf("server is required (flag --server or config file)")
	}
	if opts.Datastack == "" {
		return grotto.Options{}, "", fmt.Errorf("datastack is required (flag --datastack or config file)")
	}

	return opts, redisAddr, nil
}

// newClient builds the grotto client for a command invocation.
func newClient(ctx context.Context, cmd *cobra.Command) (*grotto.Client, error) {
	opts, redisAddr, err := resolveOptions(cmd)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", redisAddr, err)
	}
	opts.Redis = redisClient

	return grotto.New(ctx, opts)
}
