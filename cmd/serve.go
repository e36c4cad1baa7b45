package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/aikosys/patronlink/internal/linker"
	"github.com/aikosys/patronlink/internal/repositories"
	"github.com/aikosys/patronlink/internal/server"
	"github.com/aikosys/patronlink/internal/services"
	"github.com/aikosys/patronlink/internal/shared"
	"github.com/aikosys/patronlink/internal/web"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// serveCommand runs the linking web service.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the account linking web service",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override the configured listen port",
			},
		},
		Action: r.Serve,
	}
}

// Serve wires the provider clients, handlers, and middleware together and
// blocks until the process receives an interrupt.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	if port := cmd.Int("port"); port != 0 {
		config.Server.Port = int(port)
	}
	if err := config.Validate(); err != nil {
		return err
	}

	discord, err := services.NewDiscordService(config.Discord)
	if err != nil {
		return err
	}
	patreon, err := services.NewPatreonService(config.Patreon)
	if err != nil {
		return err
	}
	pages, err := web.NewPages()
	if err != nil {
		return err
	}

	var attempts linker.AttemptRecorder
	if config.Database.Path != "" {
		db, err := shared.OpenDatabase(config.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := shared.RunMigrations(db); err != nil {
			return err
		}
		attempts = repositories.NewLinkAttemptRepository(db)
		r.logger.Info("link-attempt audit log enabled", "path", config.Database.Path)
	}

	handlers := linker.NewHandlers(linker.HandlerOpts{
		Config:   config,
		Discord:  discord,
		Patreon:  patreon,
		Pages:    pages,
		Attempts: attempts,
		Logger:   r.logger,
	})

	router := server.NewBasicRouter()
	router.Use(
		server.Logging(r.logger),
		server.RateLimit(rate.NewLimiter(rate.Limit(10), 30)),
	)
	router.Handler(handlers)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, config.Server.Addr(), router, r.logger)
}
