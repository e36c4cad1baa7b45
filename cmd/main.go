package main

import (
	"context"
	"os"

	"github.com/aikosys/patronlink/internal/shared"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	// Optional .env for local development; real deployments inject the
	// environment directly.
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env file")
	}

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "patronlink",
		Usage:    "Link Patreon free-tier members to a Discord guild role",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
