package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/killallgit/media-transcript-api/api/types"
	"github.com/killallgit/media-transcript-api/internal/database"
	"github.com/killallgit/media-transcript-api/internal/services/acquisition"
	"github.com/killallgit/media-transcript-api/internal/services/cleanup"
	"github.com/killallgit/media-transcript-api/internal/services/content"
	"github.com/killallgit/media-transcript-api/internal/services/pipeline"
	"github.com/killallgit/media-transcript-api/internal/services/runs"
	"github.com/killallgit/media-transcript-api/internal/services/transcription"
	"github.com/killallgit/media-transcript-api/internal/services/translation"
	"github.com/killallgit/media-transcript-api/internal/telemetry"
	"github.com/killallgit/media-transcript-api/pkg/config"
	"github.com/killallgit/media-transcript-api/pkg/ffmpeg"
	"github.com/killallgit/media-transcript-api/pkg/ytdlp"
)

// application holds the wired services shared by serve and process
type application struct {
	cfg          *config.Config
	db           *database.DB
	store        content.Repository
	mongo        *content.MongoRepository
	recorder     runs.Recorder
	orchestrator *pipeline.Orchestrator
	contents     *content.Service
	translator   *translation.GoogleTranslator
	capabilities types.Capabilities
	log          zerolog.Logger
}

// newApplication opens the stores and wires the pipeline. Missing optional
// engines are logged and reported through capabilities.
func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{cfg: cfg, log: telemetry.Component("bootstrap")}

	for _, dir := range []string{cfg.Storage.WorkDir, cfg.Storage.UploadDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	app.db = db
	app.recorder = runs.NewRepository(db.DB)

	switch cfg.Store.Backend {
	case "mongo":
		repo, err := content.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		app.mongo = repo
		app.store = repo
	default:
		app.store = content.NewRepository(db.DB)
	}
	app.log.Info().Str("backend", app.storeBackend()).Msg("content store ready")

	media := ffmpeg.New(cfg.Processing.FFmpegPath, cfg.Processing.FFprobePath, cfg.Processing.FFmpegTimeout)
	if err := media.ValidateBinaries(); err != nil {
		app.log.Warn().Err(err).Msg("ffmpeg not usable; acquisition will fail")
	}
	downloader := ytdlp.New(cfg.Processing.YtDlpPath, cfg.Processing.FFmpegPath, cfg.Processing.DownloadTimeout)
	if err := downloader.ValidateBinary(); err != nil {
		app.log.Warn().Err(err).Msg("yt-dlp not usable; youtube sources will fail")
	}
	acquirer := acquisition.NewService(downloader, media, cfg.Storage.UploadDir, cfg.Storage.MaxUploadSize,
		acquisition.WithProber(media))

	transcriber := app.transcriber(media)
	opts := []pipeline.Option{
		pipeline.WithRecorder(app.recorder),
		pipeline.WithWorkDir(cfg.Storage.WorkDir),
		pipeline.WithJobTimeout(cfg.Processing.JobTimeout),
	}
	if t := app.newTranslator(ctx); t != nil {
		app.translator = t
		app.capabilities.Translation = true
		opts = append(opts, pipeline.WithTranslator(t))
	}

	app.orchestrator = pipeline.NewOrchestrator(acquirer, transcriber, app.store, opts...)
	app.contents = content.NewService(app.store)
	return app, nil
}

// transcriber wires the remote engine and, when whisper.cpp is installed,
// the local one
func (a *application) transcriber(resampler transcription.Resampler) *transcription.Service {
	cfg := a.cfg.Whisper

	remote := transcription.NewOpenAIClient(transcription.OpenAIConfig{
		APIKey:      cfg.APIKey,
		URL:         cfg.APIURL,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout,
		MaxFileSize: cfg.MaxFileSize,
	})
	a.capabilities.RemoteTranscription = cfg.APIKey != ""
	if !a.capabilities.RemoteTranscription {
		a.log.Warn().Msg("no OpenAI API key; remote transcription requests will fail")
	}

	var local transcription.Transcriber
	whisper := transcription.NewLocalWhisper(transcription.LocalConfig{
		BinaryPath: cfg.Local.BinaryPath,
		ModelPath:  cfg.Local.ModelPath,
		Threads:    cfg.Local.Threads,
		Timeout:    cfg.Local.Timeout,
		WorkDir:    a.cfg.Storage.WorkDir,
	}, resampler)
	if err := whisper.Validate(); err != nil {
		a.log.Info().Err(err).Msg("local transcription disabled")
	} else {
		local = whisper
		a.capabilities.LocalTranscription = true
	}

	return transcription.NewService(remote, local)
}

func (a *application) newTranslator(ctx context.Context) *translation.GoogleTranslator {
	cfg := a.cfg.Translation
	if !cfg.Enabled {
		a.log.Info().Msg("translation disabled by configuration")
		return nil
	}

	t, err := translation.NewGoogleTranslator(ctx, translation.GoogleConfig{
		CredentialsFile: cfg.CredentialsFile,
		APIKey:          cfg.APIKey,
		BatchSize:       cfg.BatchSize,
		Timeout:         cfg.Timeout,
	})
	switch {
	case errors.Is(err, translation.ErrUnavailable):
		a.log.Warn().Msg("no translation credentials; transcripts will stay in their original language")
		return nil
	case err != nil:
		a.log.Error().Err(err).Msg("translation client failed to start; continuing without translation")
		return nil
	}
	return t
}

func (a *application) storeBackend() string {
	if a.mongo != nil {
		return "mongo"
	}
	return "sqlite"
}

// janitor sweeps stale workspaces and prunes the run log
func (a *application) janitor() *cleanup.Service {
	return cleanup.NewService(
		a.cfg.Storage.WorkDir,
		a.cfg.Storage.MaxTempAge,
		a.cfg.Storage.CleanupInterval,
		cleanup.WithRunPruner(a.recorder, a.cfg.Storage.RunRetention),
	)
}

// dependencies builds the handler dependencies
func (a *application) dependencies() *types.Dependencies {
	return &types.Dependencies{
		DB:             a.db,
		Store:          a.store,
		StoreBackend:   a.storeBackend(),
		Pipeline:       a.orchestrator,
		ContentService: a.contents,
		Runs:           a.recorder,
		Capabilities:   a.capabilities,
		MaxUploadSize:  a.cfg.Storage.MaxUploadSize,
		UploadDir:      a.cfg.Storage.UploadDir,
	}
}

// Close releases clients in reverse order of creation
func (a *application) Close(ctx context.Context) error {
	var errs []error
	if a.translator != nil {
		errs = append(errs, a.translator.Close())
	}
	if a.mongo != nil {
		errs = append(errs, a.mongo.Close(ctx))
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
