package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/possync/cmd/app/commands"
	"github.com/allisson/possync/internal/app"
	"github.com/allisson/possync/internal/config"
	cryptoService "github.com/allisson/possync/internal/crypto/service"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a new master key for device key envelope encryption",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "kms-key-uri",
					Aliases: []string{"k"},
					Value:   "",
					Usage:   "KMS key URI used to wrap the master key (e.g., gcpkms://..., base64key://...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateMasterKey(
					ctx,
					cryptoService.NewKMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("kms-key-uri"),
				)
			},
		},
	}
}
