package main

import (
	"context"   // Cancellation on signals
	"os"        // Arguments and exit codes
	"os/signal" // Signal notification
	"syscall"   // SIGTERM

	"recipe_api/internal/config" // Configuration
	"recipe_api/internal/manage" // Management commands

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for management commands
func main() {
	// SIGINT/SIGTERM cancel long waits such as wait-for-db
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manage.Command(config.LoadConfig).Run(ctx, os.Args); err != nil {
		logrus.Error(err)
		stop()
		os.Exit(1)
	}
}
