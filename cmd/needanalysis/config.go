package main

import (
	"context"
	"encoding/base64"
	"fmt"

	"needanalysis/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func loadConfig(cCtx *cli.Context) (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process(cCtx.String("env-prefix"), c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("set DATABASE_URL")
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 15
	}

	if c.LinkExpiryHours == 0 {
		c.LinkExpiryHours = 336
	}

	return c, nil
}

// checkServeConfig validates the settings only the HTTP server needs.
func checkServeConfig(c *types.Config) error {
	for name, key := range map[string]string{"COOKIE_HASH_KEY": c.CookieHashKey, "COOKIE_BLOCK_KEY": c.CookieBlockKey} {
		if key == "" {
			return fmt.Errorf("set %s", name)
		}
		if _, err := base64.StdEncoding.DecodeString(key); err != nil {
			return fmt.Errorf("%s is not valid base64: %w", name, err)
		}
	}

	if c.CognitoClientID == "" || c.CognitoIssuerURL == "" {
		return fmt.Errorf("set COGNITO_CLIENT_ID and COGNITO_ISSUER_URL")
	}

	switch c.StorageDriver {
	case "s3":
		if c.S3BucketName == "" {
			return fmt.Errorf("set S3_BUCKET_NAME")
		}
	case "supabase":
		if c.SupabaseProjectID == "" || c.SupabaseAPIKey == "" {
			return fmt.Errorf("set SUPABASE_PROJECT_ID and SUPABASE_API_KEY")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	return nil
}

func newLogger(c *types.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logger.WithError(err).WithField("log_level", c.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}
