package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vncsmyrnk/api-poc/internal/adapters/handler/http"
	"github.com/vncsmyrnk/api-poc/internal/adapters/repository/sqldb"
	"github.com/vncsmyrnk/api-poc/internal/config"
	"github.com/vncsmyrnk/api-poc/internal/core/services"
	"github.com/vncsmyrnk/api-poc/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var envFile string

	cmd := &cobra.Command{
		Use:          "api-poc",
		Short:        "Serve the greeting, latency, image and poll listing endpoints",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg, logger); err != nil {
				logger.Error("server stopped", "error", err)
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flags.Int("port", 8001, "port to listen on")
	flags.Int("workers", 0, "GOMAXPROCS for the server (default twice the CPU count)")
	flags.Bool("force-bootstrap", false, "drop and reseed the poll table on startup")
	flags.String("log-level", "info", "debug, info, warn or error")
	bindFlags(v, cmd, map[string]string{
		config.KeyServingPort:    "port",
		config.KeyWorkers:        "workers",
		config.KeyBootstrapForce: "force-bootstrap",
		config.KeyLogLevel:       "log-level",
	})

	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	runtime.GOMAXPROCS(cfg.Server.Workers)

	pool, err := sqldb.Open(ctx, cfg.PoolOptions())
	if err != nil {
		return err
	}
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Error("failed to close pool", "error", err)
		}
		logger.Info("database pool closed")
	}()

	pollRepo := sqldb.NewPollRepository(pool)
	result, err := pollRepo.Bootstrap(ctx, cfg.DB.BootstrapForce)
	if err != nil {
		return fmt.Errorf("failed to bootstrap schema: %w", err)
	}
	logger.Info("schema ready",
		"table", result.Table,
		"existed", result.Existed,
		"seeded", result.Seeded,
		"rows", result.RowCount,
	)

	pollHandler := http.NewPollHandler(services.NewPollService(pollRepo), logger)
	sleepHandler := http.NewSleepHandler(services.NewSleepService(cfg.Server.SleepMax), logger)
	imageHandler := http.NewImageHandler(services.NewImageService(logger), logger)

	server := &stdhttp.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           http.NewHandler(pollHandler, sleepHandler, imageHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr, "workers", cfg.Server.Workers, "driver", cfg.DB.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
