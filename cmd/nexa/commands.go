package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nexa-dashboard/internal/api"
	"nexa-dashboard/internal/audit"
	"nexa-dashboard/internal/catalogue"
	"nexa-dashboard/internal/discord"
	"nexa-dashboard/internal/settings"
)

const retentionInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create collections and unique indexes, then prune old audit entries",
	RunE:  runMigrate,
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Manage per-guild command records",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Register the command catalogue for one guild",
	Long: `Register every catalogue command the guild does not have yet.

Existing records are skipped, so seeding twice is harmless.`,
	RunE: runSeed,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage init failed", zap.Error(err))
		return err
	}
	defer func() {
		_ = db.Close(context.Background())
	}()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("migrations failed", zap.Error(err))
		return err
	}

	cache, closeCache, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	session, err := discord.NewSession(cfg.Discord.BotToken, cfg.DiscordTimeout())
	if err != nil {
		return err
	}
	if cfg.Discord.BotToken == "" {
		logger.Warn("DISCORD_TOKEN is not set, guild data will be empty")
	}

	premium := premiumCatalogue(cfg)
	auditLog := audit.NewLogger(db, logger)
	go auditLog.RunRetention(ctx, cfg.AuditRetention(), retentionInterval)

	opts := api.Options{
		Settings:     settings.NewService(db, premium),
		Discord:      discord.NewClient(session, cache, cfg.CacheTTL(), logger),
		Audit:        auditLog,
		Premium:      premium,
		StateSecret:  []byte(cfg.Auth.StateSecret),
		DashboardURL: cfg.Discord.DashboardURL,
		Compress:     cfg.HTTP.Compress,
		WriteLimit:   cfg.HTTP.WriteLimit,
	}
	if cfg.OAuthEnabled() {
		opts.OAuth = api.NewOAuthConfig(cfg.Discord.ClientID, cfg.Discord.ClientSecret, cfg.Discord.RedirectURL)
	} else {
		logger.Warn("discord oauth is not configured, /auth routes are disabled")
	}

	server := api.NewHTTPServer(cfg.HTTP.Addr, api.NewServer(opts, logger).Handler(), cfg.ReadTimeout(), cfg.WriteTimeout())
	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard api listening", zap.String("addr", cfg.HTTP.Addr), zap.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("http server error", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	db, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close(context.Background())
	}()
	if err := db.Migrate(cmd.Context()); err != nil {
		return err
	}
	logger.Info("migrations applied", zap.String("store", cfg.Store.Driver))

	pruned, err := audit.NewLogger(db, logger).Prune(cmd.Context(), cfg.AuditRetention())
	if err != nil {
		return err
	}
	logger.Info("audit retention applied", zap.Int("retention_days", cfg.Audit.RetentionDays), zap.Int64("pruned", pruned))
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	guildID, _ := cmd.Flags().GetString("guild")
	file, _ := cmd.Flags().GetString("file")

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	commands := catalogue.Builtin()
	if file != "" {
		if commands, err = catalogue.Load(file); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close(context.Background())
	}()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	created, skipped, err := settings.NewService(db, premiumCatalogue(cfg)).Commands.Seed(ctx, guildID, commands)
	if err != nil {
		return err
	}
	logger.Info("commands seeded",
		zap.String("guild_id", guildID),
		zap.Int("created", created),
		zap.Int("skipped", skipped))
	cmd.Printf("seeded %d commands for %s (%d already present)\n", created, guildID, skipped)
	return nil
}
