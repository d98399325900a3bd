package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"civicsync/analytics"
	"civicsync/config"
	"civicsync/controllers"
	"civicsync/export"
	"civicsync/feed"
	"civicsync/metrics"
	"civicsync/models"
	"civicsync/realtime"
	"civicsync/routes"
	"civicsync/store"
	"civicsync/uploads"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and the live analytics feed",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	db, err := config.ConnectDB(cfg)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := config.DisconnectDB(dctx); err != nil {
			log.WithError(err).Warn("failed to disconnect from MongoDB")
		}
	}()

	rdb, err := config.ConnectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	usersColl := db.Collection("users")
	issuesColl := db.Collection("issues")
	if err := models.EnsureUserIndex(usersColl); err != nil {
		return err
	}
	if err := models.EnsureIssueIndexes(issuesColl); err != nil {
		return err
	}

	var uploader uploads.Uploader
	gcs, err := uploads.NewGCSUploader(ctx, cfg.UploadBucket)
	switch {
	case err == nil:
		defer gcs.Close()
		uploader = gcs
	case errors.Is(err, uploads.ErrNoBucket):
		log.Warn("UPLOAD_BUCKET not set, media uploads disabled")
	default:
		return err
	}

	hub := realtime.NewHub()
	dashboard := analytics.NewDashboard(analytics.WithPublisher(hub))
	issueFeed := feed.New(feed.NewMongoSource(issuesColl, cfg.FeedPollInterval))
	issueFeed.Subscribe(dashboard.OnSnapshot)

	reporter := export.NewReporter(export.ClaudeFactory(
		func() string { return cfg.AnthropicAPIKey },
		cfg.ReportModel,
	))

	users := store.NewUserStore(usersColl)
	router := routes.NewRouter(cfg, routes.Controllers{
		Auth:      controllers.NewAuthController(users, cfg),
		Users:     controllers.NewUserController(users),
		Issues:    controllers.NewIssueController(store.NewIssueStore(issuesColl), uploader),
		Analytics: controllers.NewAnalyticsController(dashboard, reporter, hub, cfg.CORSOrigins),
	}, rdb)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return issueFeed.Run(gctx)
	})
	g.Go(func() error {
		log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
