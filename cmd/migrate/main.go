package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"go.uber.org/zap"

	"comanda/internal/config"
	"comanda/internal/infrastructure/logger"
	"comanda/internal/infrastructure/mysql"
)

const usage = "usage: migrate up|down|version"

func main() {
	if len(os.Args) != 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.OpenForMigrations(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}

	m, err := mysql.NewMigrator(db)
	if err != nil {
		zapLogger.Fatal("preparing migrations", zap.Error(err))
	}
	defer m.Close()

	if err := run(m, os.Args[1], zapLogger); err != nil {
		zapLogger.Fatal("migration failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func run(m *migrate.Migrate, command string, logger *zap.Logger) error {
	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
	case "down":
		if err := m.Steps(-1); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown command %q, %s", command, usage)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("no migration applied")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
