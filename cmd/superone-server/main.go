package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/superonehealth/api/internal/config"
	"github.com/superonehealth/api/internal/domain/analysis"
	"github.com/superonehealth/api/internal/domain/appointments"
	"github.com/superonehealth/api/internal/domain/catalog"
	"github.com/superonehealth/api/internal/domain/labreports"
	"github.com/superonehealth/api/internal/domain/notifications"
	"github.com/superonehealth/api/internal/domain/users"
	"github.com/superonehealth/api/internal/platform/auth"
	"github.com/superonehealth/api/internal/platform/blobstore"
	"github.com/superonehealth/api/internal/platform/cache"
	"github.com/superonehealth/api/internal/platform/db"
	"github.com/superonehealth/api/internal/platform/dispatch"
	"github.com/superonehealth/api/internal/platform/middleware"
	"github.com/superonehealth/api/internal/platform/ocr"
	"github.com/superonehealth/api/internal/platform/respond"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "superone-server",
		Short: "Super One Health API gateway",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	blobs, dispatcher, err := buildCollaborators(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build collaborators")
	}

	issuer := auth.NewIssuer([]byte(cfg.JWTSecret), cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Domain services.
	userSvc := users.NewService(users.NewRepo(pool), issuer, auth.NewPGStore(pool), logger)

	catalogSvc := catalog.NewService(catalog.NewRepo(pool), cache.New(), logger)
	catalogSvc.SetTTLs(cfg.CatalogListTTL, cfg.CatalogDetailTTL)

	apptSvc := appointments.NewService(appointments.NewRepo(pool), pool, cache.New(), logger)

	var gateway ocr.Gateway = ocr.NopGateway{}
	if len(cfg.KafkaBrokers) > 0 {
		kg := ocr.NewKafkaGateway(cfg.KafkaBrokers, cfg.PipelineSubmitTopic)
		defer kg.Close()
		gateway = kg
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not set; pipeline submissions are no-ops")
	}
	reportSvc := labreports.NewService(labreports.NewRepo(pool), pool, blobs, gateway, logger)

	analysisSvc := analysis.NewService(analysis.NewRepo(pool), logger)

	notifySvc := notifications.NewService(notifications.NewRepo(pool), dispatcher, logger)
	producer := notifications.NewProducer(notifySvc)
	apptSvc.SetNotifier(producer)
	reportSvc.SetNotifier(producer)
	analysisSvc.SetNotifier(producer)
	reportSvc.SetAnalyst(analysisSvc)

	// Echo server.
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = respond.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", db.HealthHandler(pool))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Exact-path skips keep the pre-login auth endpoints open while
	// /auth/logout stays behind the bearer check. Uploads get a longer
	// timeout and a body limit sized for a full batch; JSON endpoints stay
	// small.
	skipPublic := auth.SkipPaths(
		"/api/v1/auth/register",
		"/api/v1/auth/login",
		"/api/v1/auth/refresh",
		"/api/v1/auth/forgot-password",
	)
	api := apiV1.Group("", echomw.BodyLimit("1M"), middleware.RequestTimeout(cfg.RequestTimeout), auth.Middleware(issuer, skipPublic))
	upload := apiV1.Group("", echomw.BodyLimit("64M"), middleware.RequestTimeout(cfg.UploadTimeout), auth.Middleware(issuer, nil))

	users.NewHandler(userSvc).RegisterRoutes(api, api)
	catalog.NewHandler(catalogSvc).RegisterRoutes(api)
	appointments.NewHandler(apptSvc).RegisterRoutes(api)
	labreports.NewHandler(reportSvc).RegisterRoutes(api, upload)
	analysis.NewHandler(analysisSvc).RegisterRoutes(api)
	notifications.NewHandler(notifySvc).RegisterRoutes(api)

	// Pipeline consumer and analysis watchdog.
	if len(cfg.KafkaBrokers) > 0 {
		consumer := ocr.NewConsumer(cfg.KafkaBrokers, cfg.PipelineTopic, cfg.PipelineGroupID, reportSvc, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("pipeline consumer stopped")
			}
		}()
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.PipelineTopic).Msg("pipeline consumer started")
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not set; pipeline events will not be consumed")
	}
	go reportSvc.RunWatchdog(ctx, time.Minute)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildCollaborators picks the blob store and notification dispatcher
// backends from config. Missing bucket/queue settings fall back to the
// in-memory implementations so development runs without AWS.
func buildCollaborators(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (blobstore.Store, dispatch.Dispatcher, error) {
	var blobs blobstore.Store
	if cfg.BlobBucket != "" {
		s3Store, err := blobstore.NewS3Store(ctx, cfg.BlobBucket, cfg.BlobEndpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("blob store: %w", err)
		}
		blobs = s3Store
		logger.Info().Str("bucket", cfg.BlobBucket).Msg("using s3 blob store")
	} else {
		blobs = blobstore.NewMemory()
		logger.Warn().Msg("BLOB_BUCKET not set; using in-memory blob store")
	}

	var dispatcher dispatch.Dispatcher
	if cfg.NotifyQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("aws config: %w", err)
		}
		dispatcher = dispatch.NewSQSDispatcher(sqs.NewFromConfig(awsCfg), cfg.NotifyQueueURL)
		logger.Info().Str("queue", cfg.NotifyQueueURL).Msg("using sqs notification dispatcher")
	} else {
		dispatcher = dispatch.NewMemory()
		logger.Warn().Msg("NOTIFY_QUEUE_URL not set; notification dispatch is in-memory")
	}

	return blobs, dispatcher, nil
}
