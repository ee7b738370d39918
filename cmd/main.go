package main

import (
	"HealPing/cache"
	"HealPing/config"
	"HealPing/database"
	"HealPing/handlers"
	"HealPing/routes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "healping",
		Short:         "HealPing clinic management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(dispatchCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var degraded bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the reminder dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(degraded)
		},
	}
	cmd.Flags().BoolVar(&degraded, "allow-degraded", false, "serve /healthz only when the backend is not configured")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and seed roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DBURL == "" {
				return fmt.Errorf("%w: missing DB_URL", config.ErrNotConfigured)
			}
			// InitDB migrates on connect.
			db, err := database.InitDB(cmd.Context(), cfg.DBURL, cfg.IsDevelopment())
			if err != nil {
				return err
			}
			closeDB(db)
			log.Info().Msg("Migrations applied")
			return nil
		},
	}
}

func dispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch-reminders",
		Short: "Send the reminders that are due once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			db, c, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)
			defer c.Client().Close()

			app, err := routes.Build(cfg, db, c)
			if err != nil {
				return err
			}
			result, err := app.Dispatcher.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("sent", result.Sent).Int("failed", result.Failed).Msg("Reminder dispatch finished")
			return nil
		},
	}
}

func runServer(allowDegraded bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   0, // event streams stay open
		MaxHeaderBytes: 1 << 20,
		IdleTimeout:    60 * time.Second,
	}

	var stopDispatcher func()
	if err := cfg.Validate(); err != nil {
		if !allowDegraded || !errors.Is(err, config.ErrNotConfigured) {
			return err
		}
		log.Warn().Err(err).Msg("Starting in degraded mode")
		srv.Handler = routes.SetupDegradedRoutes(cfg, map[string]handlers.PingFunc{"database": nil, "redis": nil})
	} else {
		ctx := context.Background()
		db, c, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDB(db)
		defer c.Client().Close()

		app, err := routes.Build(cfg, db, c)
		if err != nil {
			return err
		}
		if err := app.Dispatcher.Start(); err != nil {
			return err
		}
		srv.Handler = app.Handler
		stopDispatcher = app.Dispatcher.Stop
	}

	var wg sync.WaitGroup
	wg.Add(1)
	serveErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if stopDispatcher != nil {
			stopDispatcher()
		}
		return fmt.Errorf("listen and serve: %w", err)
	}

	log.Info().Msg("Shutting down server...")
	if stopDispatcher != nil {
		stopDispatcher()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	wg.Wait()
	log.Info().Msg("Server exited gracefully")
	return nil
}

// loadConfig reads the configuration and sets up the global logger for it.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	level := zerolog.InfoLevel
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
		level = zerolog.DebugLevel
	}
	log.Logger = logger.Level(level)
	return cfg, nil
}

func connect(ctx context.Context, cfg *config.AppConfig) (*gorm.DB, *cache.Cache, error) {
	db, err := database.InitDB(ctx, cfg.DBURL, cfg.IsDevelopment())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	client, err := database.NewRedisClient(ctx, database.RedisConfigFrom(cfg))
	if err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}

	c, err := cache.NewCache(client)
	if err != nil {
		client.Close()
		closeDB(db)
		return nil, nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	return db, c, nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}
