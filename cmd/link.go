package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aikosys/patronlink/internal/shared"
	"github.com/urfave/cli/v3"
)

// linkCommand prints (and optionally opens) the URL that starts a linking run.
func linkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "link",
		Usage: "Print the URL that starts the linking flow",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the URL in the default browser",
			},
		},
		Action: r.Link,
	}
}

// Link resolves the deployment's init URL from configuration.
func (r *Runner) Link(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	base := strings.TrimRight(config.Server.BaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d", config.Server.Port)
	}
	initURL := base + "/auth/discord/init"

	if err := r.writePlain("%s\n", initURL); err != nil {
		return err
	}

	if cmd.Bool("open") {
		if err := shared.OpenBrowser(initURL); err != nil {
			return err
		}
	}

	return nil
}
