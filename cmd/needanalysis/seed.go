package main

import (
	"context"
	"fmt"
	"time"

	"needanalysis/internal/db"
	"needanalysis/internal/seed"
	"needanalysis/internal/store"
	"needanalysis/pkg/types"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with demo links and forms for an advisor",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "user-id",
			Aliases:  []string{"u"},
			Usage:    "Advisor user id (uuid) that owns the demo links",
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := newLogger(cfg)

		userID := c.String("user-id")
		if _, err := uuid.Parse(userID); err != nil {
			return fmt.Errorf("user id must be a uuid: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logger.Info("connected to database")

		links, err := seed.Demo(
			ctx,
			store.NewLinkRepository(pool),
			store.NewNeedAnalysisRepository(pool),
			userID,
			time.Now(),
			time.Duration(cfg.LinkExpiryHours)*time.Hour,
		)
		if err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}

		for _, link := range links {
			fmt.Println(cfg.BaseURL + types.StepPersonal.Path(link.ID))
		}

		logger.WithField("links", len(links)).Info("demo data seeded")
		return nil
	},
}
