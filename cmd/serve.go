package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/killallgit/media-transcript-api/api"
	"github.com/killallgit/media-transcript-api/internal/telemetry"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Media Transcript API server with the configured settings.

The server accepts transcription requests, serves stored transcripts and
their run history, and periodically removes stale working files.

Example:
  transcript-api serve
  transcript-api serve --port 9090
  transcript-api serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server flags
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	if serverPort < 0 || serverPort > 65535 {
		return fmt.Errorf("invalid port: %d", serverPort)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := telemetry.Component("serve")

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry, Version, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	app, err := newApplication(ctx, cfg)
	if err != nil {
		_ = shutdownTracer(context.Background())
		return err
	}

	janitor := app.janitor()
	janitor.Start(ctx)

	server := api.NewServer(cfg, buildInfo())
	server.SetDependencies(app.dependencies())
	if err := server.Initialize(); err != nil {
		janitor.Stop()
		_ = app.Close(context.Background())
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
		close(serverErr)
	}()

	log.Info().
		Str("addr", server.Addr()).
		Str("version", Version).
		Bool("remote_transcription", app.capabilities.RemoteTranscription).
		Bool("local_transcription", app.capabilities.LocalTranscription).
		Bool("translation", app.capabilities.Translation).
		Msg("server is ready to handle requests")

	// Wait for interrupt signal or server error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
	case runErr = <-serverErr:
		log.Error().Err(runErr).Msg("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		runErr = errors.Join(runErr, err)
	}
	janitor.Stop()
	if err := app.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("closing stores")
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("flushing traces")
	}

	log.Info().Msg("server gracefully stopped")
	return runErr
}
