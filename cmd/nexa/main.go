package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/rueidis"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nexa-dashboard/internal/catalogue"
	"nexa-dashboard/internal/config"
	"nexa-dashboard/internal/discord"
	"nexa-dashboard/internal/storage"
	"nexa-dashboard/internal/storage/mongostore"
	"nexa-dashboard/internal/storage/sqlite"
)

var rootCmd = &cobra.Command{
	Use:           "nexa",
	Short:         "Nexa dashboard backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	seedCmd.Flags().String("guild", "", "Guild to seed (required)")
	seedCmd.Flags().String("file", "", "Command catalogue YAML (default: built-in)")
	_ = seedCmd.MarkFlagRequired("guild")
	commandsCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(commandsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger every command shares.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		return mongostore.Open(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase, cfg.ConnectTimeout(), logger)
	default:
		return sqlite.New(cfg.Store.SQLitePath)
	}
}

// openCache returns the response cache and a function releasing it.
func openCache(cfg config.Config) (discord.Cache, func(), error) {
	if cfg.Cache.Driver != config.CacheRedis {
		return discord.NewMemoryCache(), func() {}, nil
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.Cache.RedisAddr},
		Password:     cfg.Cache.RedisPassword,
		DisableCache: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return discord.NewRedisCache(client), client.Close, nil
}

func premiumCatalogue(cfg config.Config) *catalogue.Premium {
	filters := cfg.Premium.Filters
	if len(filters) == 0 {
		filters = catalogue.PremiumFilters
	}
	commands := cfg.Premium.Commands
	if len(commands) == 0 {
		commands = catalogue.PremiumCommands(catalogue.Builtin())
	}
	return catalogue.NewPremium(filters, commands)
}
