package main

import (
	"context" // Sweep context
	"flag"    // Command line flags

	"campus_identity/internal/config" // Custom import path (Config)
	"campus_identity/internal/db"     // Custom import path (Database)
	"campus_identity/internal/jobs"   // Orphan sweep
	"campus_identity/internal/store"  // Persistence

	"github.com/sirupsen/logrus" // Structured logging
)

// Main entry point for migration
func main() {
	sweep := flag.Bool("sweep", false, "remove orphaned student and teacher accounts after migrating")
	flag.Parse()

	cfg := config.LoadConfig() // Load configuration
	config.SetupLogger(cfg)

	gormDB, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	if err := db.Migrate(gormDB); err != nil {
		logrus.Fatal(err)
	}

	if *sweep {
		removed, err := jobs.NewSweeper(store.New(gormDB), cfg.OrphanGrace).RunOnce(context.Background())
		if err != nil {
			logrus.Fatalf("orphan sweep failed: %v", err)
		}
		logrus.WithField("removed", removed).Info("Orphan sweep completed.")
	}
}
