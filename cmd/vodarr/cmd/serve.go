package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/database"
	"github.com/vodarr/vodarr/internal/database/migrations"
	"github.com/vodarr/vodarr/internal/ffmpeg"
	internalhttp "github.com/vodarr/vodarr/internal/http"
	"github.com/vodarr/vodarr/internal/http/handlers"
	"github.com/vodarr/vodarr/internal/observability"
	"github.com/vodarr/vodarr/internal/pipeline"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/service"
	"github.com/vodarr/vodarr/internal/startup"
	"github.com/vodarr/vodarr/internal/storage"
	"github.com/vodarr/vodarr/internal/version"
)

// serveCmd starts the vodarr server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vodarr server",
	Long: `Start the vodarr HTTP server and transcoding workers.

The server provides:
- Multipart upload intake at /media/upload
- Per-upload progress reporting
- A REST API for published videos
- Published media file serving at /media/{slug}/
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if level, format := loggingOverrides(); level != "" || format != "" {
		if level != "" {
			cfg.Logging.Level = level
		}
		if format != "" {
			cfg.Logging.Format = format
		}
	}

	logger := observability.NewLogger(cfg.Logging)
	observability.SetDefault(logger)

	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("initializing migrations: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	repos := repository.New(db.DB)

	store, err := storage.NewMediaStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("initializing media store: %w", err)
	}

	binaries, err := ffmpeg.FindBinaries(cfg.FFmpeg)
	if err != nil {
		return fmt.Errorf("locating ffmpeg: %w", err)
	}
	logger.Info("ffmpeg located",
		slog.String("ffmpeg", binaries.FFmpeg),
		slog.String("ffprobe", binaries.FFprobe),
	)

	transcoder := ffmpeg.NewTranscoder(binaries, cfg.Transcode)
	orchestrator := pipeline.NewOrchestrator(cfg.Transcode, transcoder, store, repos.UploadJobs, repos.Videos, logger)
	pool := pipeline.NewPool(cfg.Transcode.Workers, cfg.Transcode.QueueSize, orchestrator, logger)

	recovery := startup.NewRecovery(repos.UploadJobs, store, logger)
	if err := recovery.Run(ctx); err != nil {
		return fmt.Errorf("boot recovery: %w", err)
	}

	sweeper := startup.NewSweeper(cfg.Retention, repos.UploadJobs, store, logger)
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("starting retention sweeper: %w", err)
	}
	defer sweeper.Stop()

	pool.Start(ctx)
	defer pool.Stop()

	uploads := service.NewUploadService(cfg.Upload.MaxSize.Bytes(), store, repos.UploadJobs, pool, logger)

	server := internalhttp.NewServer(cfg.Server, cfg.Upload.MaxSize.Bytes(), logger, version.Version)

	handlers.NewUploadHandler(uploads, orchestrator).Register(server.API())
	handlers.NewHealthHandler(version.Version).WithDB(db).WithPool(pool).Register(server.API())

	videoHandler := handlers.NewVideoHandler(repos.Videos, store)
	videoHandler.Register(server.API())
	if err := videoHandler.RegisterFileServer(server.Router()); err != nil {
		return fmt.Errorf("registering media file server: %w", err)
	}

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serving: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
