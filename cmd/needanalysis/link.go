package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"needanalysis/internal/db"
	"needanalysis/internal/store"
	"needanalysis/pkg/types"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

var linkCommand = &cli.Command{
	Name:  "link",
	Usage: "Manage customer access links",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "Issue a new access link for an advisor",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user-id",
					Aliases:  []string{"u"},
					Usage:    "Advisor user id (uuid)",
					Required: true,
				},
				&cli.UintFlag{
					Name:    "expiry-hours",
					Aliases: []string{"e"},
					Usage:   "Hours until the link expires, 0 for the configured default",
				},
			},
			Action: createLink,
		},
		{
			Name:   "expire",
			Usage:  "Mark active links past their expiry date as expired",
			Action: expireLinks,
		},
	},
}

func createLink(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	userID := strings.TrimSpace(c.String("user-id"))
	if _, err := uuid.Parse(userID); err != nil {
		return fmt.Errorf("user id must be a uuid: %w", err)
	}

	hours := c.Uint("expiry-hours")
	if hours == 0 {
		hours = cfg.LinkExpiryHours
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	link := &types.FormLink{
		UserID:     userID,
		Status:     types.LinkStatusActive,
		ExpiryDate: time.Now().Add(time.Duration(hours) * time.Hour),
	}

	if err := store.NewLinkRepository(pool).CreateLink(ctx, link); err != nil {
		return err
	}

	fmt.Println(strings.TrimSuffix(cfg.BaseURL, "/") + types.StepPersonal.Path(link.ID))
	return nil
}

func expireLinks(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	n, err := store.NewLinkRepository(pool).ExpireStaleLinks(ctx, time.Now())
	if err != nil {
		return err
	}

	logger.WithField("expired", n).Info("stale links expired")
	return nil
}
