package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"bookvote/internal/config"
	"bookvote/internal/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func main() {
	var (
		command    = flag.String("command", "up", "Migration command: up, down, status, create")
		name       = flag.String("name", "", "Name for 'create' command")
		configFile = flag.String("config", "", "Path to a config file")
	)
	flag.Parse()

	config.LoadEnvFiles()

	logger, err := logging.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	dir := migrationsDir()
	if *command == "create" {
		if err := runCreate(dir, *name); err != nil {
			logger.Fatal("create migration failed", zap.Error(err))
		}
		logger.Info("migration created", zap.String("name", *name), zap.String("dir", dir))
		return
	}

	dsn, err := databaseDSN(*configFile)
	if err != nil {
		logger.Fatal("load config failed", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Fatal("connect to database failed", zap.Error(err))
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := run(ctx, db, *command, dir); err != nil {
		logger.Fatal("migration failed", zap.String("command", *command), zap.Error(err))
	}
	logger.Info("migration command finished", zap.String("command", *command), zap.String("dir", dir))
}

func run(ctx context.Context, db *sql.DB, command, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch command {
	case "up":
		return goose.UpContext(ctx, db, dir)
	case "down":
		return goose.DownContext(ctx, db, dir)
	case "status":
		return goose.StatusContext(ctx, db, dir)
	default:
		return fmt.Errorf("unknown command: %s. Use: up, down, status, create", command)
	}
}

func runCreate(dir, name string) error {
	if name == "" {
		return fmt.Errorf("name is required for 'create' command")
	}
	return goose.Create(nil, dir, name, "sql")
}
