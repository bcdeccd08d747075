package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/internal/services/acquisition"
	"github.com/killallgit/media-transcript-api/internal/services/content"
	"github.com/killallgit/media-transcript-api/internal/services/runs"
	"github.com/killallgit/media-transcript-api/internal/services/transcription"
	apperrors "github.com/killallgit/media-transcript-api/pkg/errors"
	"github.com/killallgit/media-transcript-api/pkg/ffmpeg"
	"github.com/killallgit/media-transcript-api/pkg/metadata"
	"github.com/killallgit/media-transcript-api/pkg/transcript"
)

var exampleSegments = []transcript.Segment{
	{Start: 0, End: 1.5, Text: "Hello world"},
	{Start: 1.5, End: 3, Text: "Goodbye"},
}

// fakeAcquirer writes an uploaded copy and an audio file into the scratch
// space the way the real service does
type fakeAcquirer struct {
	err   error
	calls int
}

func (f *fakeAcquirer) Acquire(_ context.Context, src acquisition.Source, ts string, scratch acquisition.Scratch) (*acquisition.Asset, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	title := strings.ToLower(strings.TrimSuffix(src.Filename, filepath.Ext(src.Filename)))
	if src.URL != "" {
		title = "village_walk"
	}
	video := scratch.Path(title + "_" + ts + ".mp4")
	audio := scratch.Path(title + "_" + ts + ".mp3")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(audio, []byte("audio"), 0o644); err != nil {
		return nil, err
	}
	return &acquisition.Asset{AudioPath: audio, TitleBase: title, UploadedPath: video}, nil
}

type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audioPath string, mode transcription.Mode) (*transcription.Result, error) {
	args := m.Called(ctx, audioPath, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transcription.Result), args.Error(1)
}

// fakeTranslator answers per target language and counts calls
type fakeTranslator struct {
	mu      sync.Mutex
	results map[string][]string
	errs    map[string]error
	calls   []string
}

func (f *fakeTranslator) Translate(_ context.Context, texts []string, target string) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, target)
	f.mu.Unlock()

	if err := f.errs[target]; err != nil {
		return nil, err
	}
	if out, ok := f.results[target]; ok {
		return out, nil
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = target + ":" + t
	}
	return out, nil
}

func (f *fakeTranslator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type harness struct {
	orch        *Orchestrator
	store       content.Repository
	recorder    runs.Recorder
	acquirer    *fakeAcquirer
	transcriber *MockTranscriber
	translator  *fakeTranslator
	clock       *fakeClock
	workDir     string
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.ContentRecord{}, &models.ProcessingRun{}))
	return db
}

func newHarness(t *testing.T, withTranslator bool, opts ...Option) *harness {
	db := setupTestDB(t)
	h := &harness{
		store:       content.NewRepository(db),
		recorder:    runs.NewRepository(db),
		acquirer:    &fakeAcquirer{},
		transcriber: new(MockTranscriber),
		translator:  &fakeTranslator{results: map[string][]string{}, errs: map[string]error{}},
		clock:       &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 100e6, time.UTC)},
		workDir:     t.TempDir(),
	}

	base := []Option{
		WithRecorder(h.recorder),
		WithWorkDir(h.workDir),
		WithClock(h.clock.Now),
	}
	if withTranslator {
		base = append(base, WithTranslator(h.translator))
	}
	h.orch = NewOrchestrator(h.acquirer, h.transcriber, h.store, append(base, opts...)...)
	return h
}

func uploadRequest(metadata bool) Request {
	return Request{
		SourceType:       models.SourceMP4,
		Upload:           &UploadedFile{Filename: "Talk.mp4", Content: bytes.NewReader([]byte("video"))},
		GenerateMetadata: metadata,
	}
}

func (h *harness) expectTranscript(segments []transcript.Segment, lang string) {
	h.transcriber.On("Transcribe", mock.Anything, mock.Anything, transcription.ModeRemote).
		Return(&transcription.Result{Segments: segments, Language: lang, Method: models.MethodOpenAIAPI}, nil)
}

func assertWorkspaceClean(t *testing.T, workDir string) {
	t.Helper()
	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "run left temporary files behind")
}

func TestRun_ExampleScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.expectTranscript(exampleSegments, "english")
	h.translator.results["ne"] = []string{"नमस्ते संसार", "बिदाई"}

	res, err := h.orch.Run(ctx, uploadRequest(false))
	require.NoError(t, err)

	assert.Equal(t, content.StatusCreated, res.Status)
	assert.Equal(t, "talk_20240310_120000", res.JobID)
	assert.Equal(t, "en", res.DetectedLanguage)
	assert.Equal(t, "Talk.mp4", res.Filename, "the original media name, not the derived audio file")
	assert.Equal(t, TranslationOutcome{Status: TranslationOK}, res.Translations["ne"])
	assert.Equal(t, []string{"ne"}, h.translator.Calls())

	rec := res.Record
	require.NotNil(t, rec)
	assert.Equal(t, []string{"en", "ne"}, rec.TranscriptContent.Languages())

	en, _ := rec.Transcript("en")
	assert.Equal(t, transcript.Encode(exampleSegments, transcript.DefaultHeader), en)
	ne, _ := rec.Transcript("ne")
	assert.Equal(t, []transcript.Segment{
		{Start: 0, End: 1.5, Text: "नमस्ते संसार"},
		{Start: 1.5, End: 3, Text: "बिदाई"},
	}, transcript.Decode(ne))

	assert.Equal(t, "en", rec.DetectedLanguage)
	assert.Equal(t, models.SourceMP4, rec.SourceType)
	assert.Equal(t, "Talk.mp4", rec.SourceLocation)
	assert.Nil(t, rec.URL)
	assert.Equal(t, models.MethodOpenAIAPI, rec.ProcessingInfo.TranscriptionMethod)
	assert.Equal(t, res.RunID, rec.ProcessingInfo.RunID)
	require.NotNil(t, rec.ProcessingInfo.TempUploadedFile)
	assert.Equal(t, "talk_20240310_120000.mp4", *rec.ProcessingInfo.TempUploadedFile)
	assert.Equal(t, "talk_20240310_120000_transcription_en.vtt", rec.ProcessingInfo.TempOriginalTranscriptFile)
	assert.Equal(t, map[string]string{"ne": "talk_20240310_120000_transcription_ne.vtt"}, rec.ProcessingInfo.TempTranslatedTranscriptFiles)
	assertWorkspaceClean(t, h.workDir)

	// an immediate identical rerun derives the same job id
	h.clock.Set(h.clock.Now().Add(500 * time.Millisecond))
	again, err := h.orch.Run(ctx, uploadRequest(false))
	require.NoError(t, err)
	assert.Equal(t, content.StatusUpdated, again.Status)
	assert.Equal(t, res.JobID, again.JobID)
	assert.Equal(t, res.RecordID, again.RecordID)

	records, total, err := h.store.List(ctx, content.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.True(t, records[0].DateAdded.Equal(rec.DateAdded))
	assert.True(t, records[0].LastUpdated.After(rec.LastUpdated))
	assertWorkspaceClean(t, h.workDir)

	history, err := h.recorder.ListByJob(ctx, res.JobID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "updated", history[0].Outcome)
	assert.Equal(t, models.RunStatusSucceeded, history[1].Status)
}

func TestRun_DegradedTranslation(t *testing.T) {
	h := newHarness(t, true)
	h.expectTranscript(exampleSegments, "FR")
	h.translator.errs["ne"] = errors.New("quota exceeded")

	res, err := h.orch.Run(context.Background(), uploadRequest(false))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"en", "ne"}, h.translator.Calls())
	assert.Equal(t, "fr", res.DetectedLanguage)
	assert.Equal(t, []string{"fr", "en"}, res.Record.TranscriptContent.Languages())
	assert.Equal(t, TranslationFailed, res.Translations["ne"].Status)
	assert.Equal(t, map[string]string{"ne": "quota exceeded"}, res.Record.ProcessingInfo.TranslationErrors)

	run, err := h.recorder.Get(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.NotNil(t, run.Diagnostics["translation_errors"])
}

func TestRun_TranslationCountMismatchUsesPlaceholder(t *testing.T) {
	h := newHarness(t, true)
	h.expectTranscript(exampleSegments, "en")
	h.translator.results["ne"] = []string{"नमस्ते संसार"}

	res, err := h.orch.Run(context.Background(), uploadRequest(false))
	require.NoError(t, err)

	ne, ok := res.Record.Transcript("ne")
	require.True(t, ok)
	cues := transcript.Decode(ne)
	require.Len(t, cues, 2)
	assert.Equal(t, TranslationPlaceholder, cues[1].Text)
}

func TestRun_TranslationUnavailable(t *testing.T) {
	h := newHarness(t, false)
	h.expectTranscript(exampleSegments, "ne")

	res, err := h.orch.Run(context.Background(), uploadRequest(false))
	require.NoError(t, err)

	assert.False(t, h.orch.TranslationAvailable())
	assert.Equal(t, []string{"ne"}, res.Record.TranscriptContent.Languages())
	assert.True(t, res.Record.ProcessingInfo.TranslationUnavailable)
	assert.Equal(t, TranslationUnavailable, res.Translations["en"].Status)
}

func TestRun_RemoteSourceReportsURL(t *testing.T) {
	h := newHarness(t, true)
	h.expectTranscript(exampleSegments, "en")
	url := "https://www.youtube.com/watch?v=abc123"

	res, err := h.orch.Run(context.Background(), Request{
		SourceType: models.SourceYouTube,
		Remote:     &RemoteSource{URL: url},
	})
	require.NoError(t, err)

	assert.Equal(t, url, res.Filename)
	assert.Equal(t, "village_walk_20240310_120000", res.JobID)
	assert.Equal(t, url, res.Record.SourceLocation)
	require.NotNil(t, res.Record.URL)
	assert.Equal(t, url, *res.Record.URL)
	assertWorkspaceClean(t, h.workDir)
}

func TestRun_EmptySpeech(t *testing.T) {
	h := newHarness(t, true)
	h.expectTranscript([]transcript.Segment{{Start: 0, End: 1, Text: "   "}}, "en")

	res, err := h.orch.Run(context.Background(), uploadRequest(true))
	require.NoError(t, err)

	assert.Equal(t, content.StatusCreated, res.Status)
	assert.Equal(t, messageNoSpeech, res.Message)
	assert.Equal(t, 0, res.Record.TranscriptContent.Len())
	assert.Empty(t, h.translator.Calls())
	assert.Equal(t, []string{}, []string(res.Record.Keywords))
	assertWorkspaceClean(t, h.workDir)
}

func TestRun_ReadBackFailureStoresSentinel(t *testing.T) {
	h := newHarness(t, true)
	h.expectTranscript(exampleSegments, "en")
	h.orch.readFile = func(path string) ([]byte, error) {
		if strings.HasSuffix(path, "_ne.vtt") {
			return nil, errors.New("disk error")
		}
		return os.ReadFile(path)
	}

	res, err := h.orch.Run(context.Background(), uploadRequest(true))
	require.NoError(t, err)

	ne, _ := res.Record.Transcript("ne")
	assert.True(t, transcript.IsReadError(ne))
	assert.Contains(t, ne, "disk error")
	assert.Equal(t, []string{"ne"}, res.Record.ProcessingInfo.ContentReadErrors)
	assert.Equal(t, "en", res.Record.ProcessingInfo.MetadataLanguage)
}

func TestRun_MetadataGeneration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.expectTranscript([]transcript.Segment{
		{Start: 0, End: 4, Text: "Welcome to the temple tour in Kathmandu Valley."},
		{Start: 4, End: 8, Text: "The temple bells ring at dawn."},
	}, "en")

	// curated fields from an earlier run of the same job survive
	category := "culture"
	title := "Curated title"
	_, err := h.store.Upsert(ctx, &models.ContentRecord{
		JobID:     "talk_20240310_120000",
		Category:  &category,
		Title:     &title,
		DateAdded: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	res, err := h.orch.Run(ctx, uploadRequest(true))
	require.NoError(t, err)
	assert.Equal(t, content.StatusUpdated, res.Status)

	rec := res.Record
	assert.Equal(t, "Curated title", *rec.Title)
	assert.Equal(t, "culture", *rec.Category)
	require.NotNil(t, rec.Summary)
	assert.True(t, strings.HasPrefix(*rec.Summary, "Welcome to the temple tour"))
	require.NotNil(t, rec.Location)
	assert.Equal(t, metadata.ConfidenceMarker+"Kathmandu Valley", *rec.Location)
	assert.Contains(t, rec.Keywords, "temple")
	assert.Equal(t, "en", rec.ProcessingInfo.MetadataLanguage)
	assert.True(t, rec.DateAdded.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestRun_MetadataFailureIsContained(t *testing.T) {
	h := newHarness(t, true)
	h.expectTranscript(exampleSegments, "en")
	h.orch.extractMetadata = func(*metadata.Fields, transcript.ContentMap, string) string {
		panic("extractor exploded")
	}

	res, err := h.orch.Run(context.Background(), uploadRequest(true))
	require.NoError(t, err)
	assert.Equal(t, "extractor exploded", res.Record.ProcessingInfo.MetadataGenerationError)
	assert.Equal(t, []string{"en", "ne"}, res.Record.TranscriptContent.Languages())
}

func TestRun_InvalidRequest(t *testing.T) {
	h := newHarness(t, true)

	_, err := h.orch.Run(context.Background(), Request{SourceType: models.SourceYouTube})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindClient, apperrors.Classify(err))
	assert.Zero(t, h.acquirer.calls)
	assertWorkspaceClean(t, h.workDir)
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(h *harness)
		kind     string
		stage    Stage
		errType  models.RunErrorType
		acquired bool
	}{
		{
			name: "missing source",
			setup: func(h *harness) {
				h.acquirer.err = acquisition.ErrSourceNotFound
			},
			kind:    apperrors.KindNotFound,
			stage:   StageAcquiring,
			errType: models.ErrorTypeNotFound,
		},
		{
			name: "video without audio",
			setup: func(h *harness) {
				h.acquirer.err = fmt.Errorf("%w: %w", acquisition.ErrNoAudio, ffmpeg.ErrNoAudioStream)
			},
			kind:    apperrors.KindClient,
			stage:   StageAcquiring,
			errType: models.ErrorTypeClient,
		},
		{
			name: "download failure",
			setup: func(h *harness) {
				h.acquirer.err = errors.Join(acquisition.ErrDownloadFailed, errors.New("HTTP 403"))
			},
			kind:    apperrors.KindUpstream,
			stage:   StageAcquiring,
			errType: models.ErrorTypeUpstream,
		},
		{
			name: "transcription API error",
			setup: func(h *harness) {
				h.transcriber.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, &transcription.APIError{StatusCode: 500, Message: "boom"})
			},
			kind:     apperrors.KindUpstream,
			stage:    StageTranscribing,
			errType:  models.ErrorTypeUpstream,
			acquired: true,
		},
		{
			name: "audio too large",
			setup: func(h *harness) {
				h.transcriber.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, transcription.ErrFileTooLarge)
			},
			kind:     apperrors.KindUpstream,
			stage:    StageTranscribing,
			errType:  models.ErrorTypeUpstream,
			acquired: true,
		},
		{
			name: "missing credentials",
			setup: func(h *harness) {
				h.transcriber.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, transcription.ErrMissingCredentials)
			},
			kind:     apperrors.KindInternal,
			stage:    StageTranscribing,
			errType:  models.ErrorTypeInternal,
			acquired: true,
		},
		{
			name: "transcriber panics",
			setup: func(h *harness) {
				h.transcriber.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
					Run(func(mock.Arguments) { panic("nil pointer") })
			},
			kind:     apperrors.KindInternal,
			stage:    StageTranscribing,
			errType:  models.ErrorTypeInternal,
			acquired: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, true)
			tt.setup(h)

			res, err := h.orch.Run(context.Background(), uploadRequest(false))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.kind, apperrors.Classify(err))

			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, string(tt.stage), appErr.Details["stage"])
			runID, _ := appErr.Details["run_id"].(string)
			require.NotEmpty(t, runID)

			run, err := h.recorder.Get(context.Background(), runID)
			require.NoError(t, err)
			assert.Equal(t, models.RunStatusFailed, run.Status)
			assert.Equal(t, tt.errType, run.ErrorType)
			assert.Equal(t, string(tt.stage), run.Stage)
			if tt.acquired {
				assert.Equal(t, "talk_20240310_120000", run.JobID)
			}

			_, total, err := h.store.List(context.Background(), content.ListOptions{})
			require.NoError(t, err)
			assert.Zero(t, total)
			assertWorkspaceClean(t, h.workDir)
		})
	}
}

func TestRun_JobTimeout(t *testing.T) {
	h := newHarness(t, true, WithJobTimeout(50*time.Millisecond))
	h.transcriber.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, context.DeadlineExceeded).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		})

	_, err := h.orch.Run(context.Background(), uploadRequest(false))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUpstream, apperrors.Classify(err))
	assert.Equal(t, apperrors.ErrCodeAPITimeout, apperrors.GetCode(err))
	assertWorkspaceClean(t, h.workDir)
}

func TestRun_LocalMode(t *testing.T) {
	h := newHarness(t, true)
	h.transcriber.On("Transcribe", mock.Anything, mock.Anything, transcription.ModeLocal).
		Return(&transcription.Result{Segments: exampleSegments, Language: "en", Method: models.MethodLocal}, nil)

	req := uploadRequest(false)
	req.LocalTranscription = true
	res, err := h.orch.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.MethodLocal, res.Record.ProcessingInfo.TranscriptionMethod)
	h.transcriber.AssertExpectations(t)
}
