package main

import (
	"errors"
	"flag"

	"fintrack/internal/config"
	"fintrack/internal/infra/db"
	"fintrack/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	var (
		command = flag.String("command", "up", "up, down, version, force")
		steps   = flag.Int("steps", 0, "number of steps for up/down (0 = all)")
		version = flag.Int("version", -1, "target version for force")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.LogLevel, cfg.GoEnv)
	defer func() { _ = log.Sync() }()

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("connect", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("sql db", zap.Error(err))
	}
	defer sqlDB.Close()

	m, err := db.NewMigrator(sqlDB)
	if err != nil {
		log.Fatal("migrator", zap.Error(err))
	}

	switch *command {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			log.Fatal("version", zap.Error(verr))
		}
		log.Info("migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return
	case "force":
		if *version < 0 {
			log.Fatal("force requires -version")
		}
		err = m.Force(*version)
	default:
		log.Fatal("unknown command", zap.String("command", *command))
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal("migration failed", zap.String("command", *command), zap.Error(err))
	}
	log.Info("migration finished", zap.String("command", *command))
}
