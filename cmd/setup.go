package main

import (
	"context"

	"github.com/aikosys/patronlink/internal/shared"
	"github.com/urfave/cli/v3"
)

// setupCommand scaffolds configuration and prepares the audit-log database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Write a config scaffold and run audit-log migrations",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent audit-log migration instead",
			},
		},
		Action: r.Setup,
	}
}

// Setup creates the config file when missing and applies (or rolls back)
// database migrations when an audit-log path is configured.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		r.logger.Debug("config scaffold skipped", "error", err)
	} else {
		r.logger.Info("wrote config scaffold", "path", path)
	}

	config, err := r.loadConfig(path)
	if err != nil {
		return err
	}

	if config.Database.Path == "" {
		r.logger.Info("no database path configured, audit log disabled")
		return r.writePlain("✓ Setup complete (audit log disabled)\n")
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		return r.writePlain("✓ Rolled back most recent migration\n")
	}

	if err := shared.RunMigrations(db); err != nil {
		return err
	}

	return r.writePlain("✓ Setup complete\n")
}
