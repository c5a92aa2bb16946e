package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/vncsmyrnk/api-poc/internal/adapters/repository/sqldb"
	"github.com/vncsmyrnk/api-poc/internal/config"
	"github.com/vncsmyrnk/api-poc/internal/logging"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Fatal(err)
	}

	v := config.New()

	var force bool
	var table string
	flag.BoolVar(&force, "force", v.GetBool(config.KeyBootstrapForce), "Drop and reseed even if the table is already seeded")
	flag.StringVar(&table, "table", v.GetString(config.KeyDBTable), "Poll table name")
	flag.Parse()
	v.Set(config.KeyDBTable, table)

	cfg, err := config.Load(v)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatal(err)
	}

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := sqldb.Open(ctx, cfg.PoolOptions())
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	logger.Info("starting schema bootstrap", "table", pool.Table(), "force", force)

	result, err := sqldb.NewPollRepository(pool).Bootstrap(ctx, force)
	if err != nil {
		logger.Error("schema bootstrap failed", "error", err)
		pool.Close()
		os.Exit(1)
	}

	logger.Info("schema bootstrap completed",
		"existed", result.Existed,
		"seeded", result.Seeded,
		"rows", result.RowCount,
	)
}
