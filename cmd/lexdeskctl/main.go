package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"lexdesk/internal/app"
	"lexdesk/internal/bootstrap"
	"lexdesk/internal/cache"
	"lexdesk/internal/config"
	"lexdesk/internal/logger"
	"lexdesk/internal/repository"
)

var (
	timeout time.Duration
	geoFile string
)

var rootCmd = &cobra.Command{
	Use:           "lexdeskctl",
	Short:         "Administrative tasks for the lexdesk backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, _ *gorm.DB, log *zap.Logger) error {
			log.Info("schema migrated")
			return nil
		})
	},
}

var seedGeoCmd = &cobra.Command{
	Use:   "seed-geo",
	Short: "Load countries, states and cities from a YAML file",
	Long: `Upsert the geo lookup tables from a YAML file with top-level
countries, states and cities lists. Existing rows are updated by id, and
the cached lookup lists are flushed when Redis is reachable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := loadGeoSeed(geoFile)
		if err != nil {
			return err
		}
		return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *gorm.DB, log *zap.Logger) error {
			var lookupCache app.LookupCache
			if rdb, err := bootstrap.OpenRedis(ctx, cfg); err != nil {
				log.Warn("redis unavailable, lookup cache not flushed", zap.Error(err))
			} else {
				defer rdb.Close()
				lookupCache = cache.NewLookupCache(rdb, time.Duration(cfg.Redis.LookupTTLSeconds)*time.Second)
			}

			svc := app.NewLookupService(repository.NewGeoRepository(db), lookupCache, log)
			if err := svc.Seed(ctx, seed); err != nil {
				return err
			}
			log.Info("geo tables seeded",
				zap.Int("countries", len(seed.Countries)),
				zap.Int("states", len(seed.States)),
				zap.Int("cities", len(seed.Cities)),
			)
			return nil
		})
	},
}

var purgeTokensCmd = &cobra.Command{
	Use:   "purge-tokens",
	Short: "Delete expired password reset codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, db *gorm.DB, log *zap.Logger) error {
			svc := app.NewPasswordResetService(
				repository.NewPasswordResetRepository(db),
				repository.NewUserRepository(db),
				nil,
				log,
			)
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			log.Info("expired reset tokens purged", zap.Int64("count", n))
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")
	seedGeoCmd.Flags().StringVarP(&geoFile, "file", "f", "configs/geo.yaml", "YAML file with the geo tables")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedGeoCmd)
	rootCmd.AddCommand(purgeTokensCmd)
}

func loadGeoSeed(path string) (app.GeoSeed, error) {
	var seed app.GeoSeed
	raw, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("read geo file failed: %w", err)
	}
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return seed, fmt.Errorf("decode geo file failed: %w", err)
	}
	if len(seed.Countries) == 0 {
		return seed, fmt.Errorf("geo file %s has no countries", path)
	}
	return seed, nil
}

// withDB loads config, opens and migrates the database, then runs fn.
func withDB(parent context.Context, fn func(ctx context.Context, cfg *config.Config, db *gorm.DB, log *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	db, err := bootstrap.OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return fn(ctx, cfg, db, log)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
