package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/allisson/possync/cmd/app/commands"
	"github.com/allisson/possync/internal/app"
	"github.com/allisson/possync/internal/config"
)

func getSyncCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "requeue-failed",
			Usage: "Reset a failed offline queue entry and replay it immediately",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "entry-id",
					Aliases:  []string{"e"},
					Required: true,
					Usage:    "Queue entry ID to requeue",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				entryID, err := uuid.Parse(cmd.String("entry-id"))
				if err != nil {
					return fmt.Errorf("invalid entry id: %w", err)
				}

				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				syncUseCase, err := container.SyncUseCase()
				if err != nil {
					return err
				}

				return commands.RunRequeueFailed(
					ctx,
					syncUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					entryID,
				)
			},
		},
	}
}
