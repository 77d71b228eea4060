package main

import (
	"context"
	"fmt"

	"needanalysis/internal/db"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Apply or roll back database migrations",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "down",
			Usage: "Roll back instead of applying",
		},
		&cli.IntFlag{
			Name:  "steps",
			Usage: "Maximum number of migrations to run, 0 for all (rollbacks default to 1)",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := newLogger(cfg)

		pool, err := db.Connect(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		n, err := db.Migrate(pool, c.Bool("down"), c.Int("steps"))
		if err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"applied": n,
			"down":    c.Bool("down"),
		}).Info("migrations finished")

		return nil
	},
}
