// Package main provides flowctl, an offline tool to edit flow version documents.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/flowops/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "flowctl:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "flowctl",
		Usage:                 "Apply operations to flow version documents",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			applyCommand(),
			importCommand(),
			planCommand(),
			exportCommand(),
			pathCommand(),
			checkCommand(),
		},
	}
}
