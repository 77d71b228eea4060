package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"needanalysis/internal/db"
	"needanalysis/internal/server"
	"needanalysis/internal/storage"
	"needanalysis/internal/store"
	"needanalysis/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	if err := checkServeConfig(config); err != nil {
		return err
	}

	logger := newLogger(config)

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	cognitoClient := cognitoidentityprovider.NewFromConfig(awsConfig)

	objects := newObjectStore(config, awsConfig)

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	linkRepo := store.NewLinkRepository(pool)
	formRepo := store.NewNeedAnalysisRepository(pool)
	submissionRepo := store.NewSubmissionRepository(pool)

	jwkCache, err := jwk.NewCache(context.Background(), httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(context.Background(), jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwks with cache: %w", err)
	}

	srv, err := server.New(
		config,
		logger,
		cognitoClient,
		objects,
		linkRepo,
		formRepo,
		submissionRepo,
		jwkCache,
		jwksURL,
	)
	if err != nil {
		return err
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":    config.ServerPort,
			"storage": config.StorageDriver,
		}).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}

func newObjectStore(config *types.Config, awsConfig aws.Config) storage.ObjectStore {
	if config.StorageDriver == "supabase" {
		return storage.NewSupabaseStorage(config.SupabaseProjectID, config.SupabaseAPIKey, config.SupabaseBucket)
	}

	return storage.NewS3Storage(s3.NewFromConfig(awsConfig), config.S3BucketName, awsConfig.Region, config.S3PublicBaseURL)
}
