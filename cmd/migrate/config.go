package main

import (
	"errors"
	"os"

	"bookvote/internal/config"
)

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return "db/migrations"
}

// databaseDSN reads DB_DSN through the shared config so a bookvote.yaml
// works for migrations too.
func databaseDSN(configFile string) (string, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return "", err
	}
	if cfg.DBDSN == "" {
		return "", errors.New("DB_DSN is required to run migrations")
	}
	return cfg.DBDSN, nil
}
