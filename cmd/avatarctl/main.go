package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"avatar-server/cmd/avatarctl/commands"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "path to an env file",
		Value: ".env",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "avatarctl",
		Usage: "run avatar generations and manage the style catalog from the shell",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "generate one avatar and write it to disk",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{Name: "requester", Usage: "requester id", Required: true},
					&cli.StringFlag{Name: "garment", Usage: "garment id, e.g. k1", Required: true},
					&cli.StringFlag{Name: "backdrop", Usage: "backdrop id, e.g. b1", Required: true},
					&cli.StringFlag{Name: "hint", Usage: "optional free-text hint"},
					&cli.StringFlag{Name: "photo", Usage: "local photo file"},
					&cli.StringFlag{Name: "photo-url", Usage: "remote photo url"},
					&cli.StringFlag{Name: "stored-key", Usage: "key of a stored photo"},
					&cli.StringFlag{Name: "out", Usage: "output file or directory", Value: "."},
				},
				Action: commands.GenerateAction,
			},
			{
				Name:  "catalog",
				Usage: "style catalog commands",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list garments or backdrops",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{Name: "kind", Usage: "garment or backdrop", Value: "garment"},
						},
						Action: commands.CatalogListAction,
					},
					{
						Name:   "seed",
						Usage:  "upsert the built-in catalog into Postgres",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.CatalogSeedAction,
					},
				},
			},
			{
				Name:  "photos",
				Usage: "manage a requester's stored photos",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list stored photos in auto-selection order",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{Name: "requester", Usage: "requester id", Required: true},
						},
						Action: commands.PhotosListAction,
					},
					{
						Name:  "add",
						Usage: "store a local photo for later generations",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{Name: "requester", Usage: "requester id", Required: true},
							&cli.StringFlag{Name: "file", Usage: "local image file", Required: true},
						},
						Action: commands.PhotosAddAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
