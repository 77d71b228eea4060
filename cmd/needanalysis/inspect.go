package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"needanalysis/internal/db"
	"needanalysis/internal/store"
	"needanalysis/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var inspectCommand = &cli.Command{
	Name:  "inspect",
	Usage: "Print a link with its saved form and latest submission",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "link-id",
			Aliases:  []string{"l"},
			Usage:    "Access link id",
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		linkID := c.String("link-id")

		link, err := store.NewLinkRepository(pool).Link(ctx, linkID)
		if err != nil {
			return err
		}

		printer := pp.New()
		printer.SetOutput(os.Stdout)

		printer.Println(link)

		form, err := store.NewNeedAnalysisRepository(pool).FormByLinkID(ctx, linkID)
		switch {
		case errors.Is(err, types.ErrFormNotFound):
			fmt.Println("no form saved yet")
		case err != nil:
			return err
		default:
			printer.Println(form.Record())
		}

		submission, err := store.NewSubmissionRepository(pool).LatestSubmissionByLink(ctx, linkID)
		switch {
		case errors.Is(err, types.ErrSubmissionNotFound):
			fmt.Println("not submitted")
		case err != nil:
			return err
		default:
			printer.Println(submission)
		}

		return nil
	},
}
