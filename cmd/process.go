package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/internal/services/pipeline"
)

var (
	processYouTube  string
	processFile     string
	processMetadata bool
	processLocal    bool
)

// processCmd runs one video through the pipeline without the HTTP server
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Transcribe one video from the command line",
	Long: `Run a single YouTube link or mp4 file through the transcription pipeline
and print the result as JSON. The record is stored exactly as if it had been
submitted over HTTP.

Example:
  transcript-api process --youtube https://www.youtube.com/watch?v=dQw4w9WgXcQ
  transcript-api process --file ./talk.mp4 --metadata --local`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&processYouTube, "youtube", "", "YouTube video URL")
	processCmd.Flags().StringVar(&processFile, "file", "", "path to an mp4 file")
	processCmd.Flags().BoolVar(&processMetadata, "metadata", false, "generate title, summary and keywords")
	processCmd.Flags().BoolVar(&processLocal, "local", false, "transcribe with the local whisper engine")
	processCmd.MarkFlagsMutuallyExclusive("youtube", "file")
	processCmd.MarkFlagsOneRequired("youtube", "file")
}

// buildProcessRequest turns the flags into a pipeline request. The caller
// closes the returned file, if any.
func buildProcessRequest() (pipeline.Request, *os.File, error) {
	req := pipeline.Request{
		GenerateMetadata:   processMetadata,
		LocalTranscription: processLocal,
	}

	if processYouTube != "" {
		req.SourceType = models.SourceYouTube
		req.Remote = &pipeline.RemoteSource{URL: processYouTube}
		return req, nil, nil
	}

	f, err := os.Open(processFile)
	if err != nil {
		return req, nil, fmt.Errorf("opening %s: %w", processFile, err)
	}
	req.SourceType = models.SourceMP4
	req.Upload = &pipeline.UploadedFile{Filename: filepath.Base(processFile), Content: f}
	return req, f, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	req, file, err := buildProcessRequest()
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	result, err := app.orchestrator.Run(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
