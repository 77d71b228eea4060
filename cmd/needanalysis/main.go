package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "needanalysis",
		Usage: "Insurance need analysis forms for advisors and their customers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-prefix",
				Aliases: []string{"p"},
				Usage:   "Environment variable prefix",
				EnvVars: []string{"NEED_ANALYSIS_ENV_PREFIX"},
			},
		},
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
			linkCommand,
			seedCommand,
			inspectCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
