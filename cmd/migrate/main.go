package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/config"
	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/dbmigrate"
	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/logger"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, version, force")
		steps   = flag.Int("steps", 0, "Number of migration steps (for up/down)")
		version = flag.Uint("version", 0, "Target version (for force command)")
		dir     = flag.String("dir", "", "Migrations directory (defaults to MIGRATIONS_DIR)")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(logger.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.DBAdapter != "postgres" {
		log.Fatal("migrations only work with PostgreSQL", zap.String("adapter", cfg.DBAdapter))
	}

	migrationsDir := cfg.MigrationsDir
	if *dir != "" {
		migrationsDir = *dir
	}

	mg, err := dbmigrate.New(migrationsDir, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("opening migrations", zap.Error(err))
	}
	defer mg.Close()

	switch *command {
	case "up":
		if *steps > 0 {
			err = mg.Steps(*steps)
		} else {
			err = mg.Up()
		}
		if err != nil {
			log.Fatal("migration up failed", zap.Error(err))
		}
		fmt.Println("✓ Migrations applied successfully")
	case "down":
		if *steps > 0 {
			err = mg.Steps(-*steps)
		} else {
			err = mg.Down()
		}
		if err != nil {
			log.Fatal("migration down failed", zap.Error(err))
		}
		fmt.Println("✓ Migrations rolled back successfully")
	case "version":
		v, dirty, err := mg.Version()
		if err != nil {
			log.Fatal("failed to get version", zap.Error(err))
		}
		if dirty {
			fmt.Printf("⚠ Database is in a dirty state (version %d)\n", v)
			os.Exit(1)
		}
		fmt.Printf("Current migration version: %d\n", v)
	case "force":
		if *version == 0 {
			log.Fatal("version required for force command (use -version flag)")
		}
		if err := mg.Force(int(*version)); err != nil {
			log.Fatal("force migration failed", zap.Error(err))
		}
		fmt.Printf("✓ Forced database to version %d\n", *version)
	default:
		log.Fatal("unknown command (supported: up, down, version, force)", zap.String("command", *command))
	}
}
