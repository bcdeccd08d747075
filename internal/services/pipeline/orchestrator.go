// Package pipeline runs one media source through acquisition, transcription,
// translation and storage, and guarantees the run's temporary files are
// removed on every exit path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/attribute"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/internal/services/acquisition"
	"github.com/killallgit/media-transcript-api/internal/services/content"
	"github.com/killallgit/media-transcript-api/internal/services/runs"
	"github.com/killallgit/media-transcript-api/internal/services/transcription"
	"github.com/killallgit/media-transcript-api/internal/services/translation"
	"github.com/killallgit/media-transcript-api/internal/telemetry"
	apperrors "github.com/killallgit/media-transcript-api/pkg/errors"
	"github.com/killallgit/media-transcript-api/pkg/language"
	"github.com/killallgit/media-transcript-api/pkg/metadata"
	"github.com/killallgit/media-transcript-api/pkg/naming"
	"github.com/killallgit/media-transcript-api/pkg/transcript"
)

// Stage names a step of a run
type Stage string

const (
	StageValidating         Stage = "validating"
	StageAcquiring          Stage = "acquiring"
	StageTranscribing       Stage = "transcribing"
	StageStandardizing      Stage = "standardizing"
	StageTranslating        Stage = "translating"
	StageReadingBack        Stage = "reading-back"
	StageAssembling         Stage = "assembling"
	StageGeneratingMetadata Stage = "generating-metadata"
	StageUpserting          Stage = "upserting"
	StageCleaningUp         Stage = "cleaning-up"
	StageResponding         Stage = "responding"
)

// TranslationPlaceholder replaces a cue whose translation is missing
const TranslationPlaceholder = "[Translation Failed]"

// Translation outcomes reported per target language
const (
	TranslationOK          = "ok"
	TranslationFailed      = "failed"
	TranslationUnavailable = "unavailable"
)

const (
	messageProcessed = "Transcription processed successfully"
	messageNoSpeech  = "No speech detected; stored an empty transcript"
)

// Transcriber is the speech-to-text collaborator
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, mode transcription.Mode) (*transcription.Result, error)
}

// TranslationOutcome reports what happened for one target language
type TranslationOutcome struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Result is the response of a successful run
type Result struct {
	Status           content.UpsertStatus          `json:"status"`
	RunID            string                        `json:"run_id"`
	JobID            string                        `json:"job_id"`
	RecordID         string                        `json:"inserted_or_updated_id"`
	DetectedLanguage string                        `json:"detected_language"`
	Message          string                        `json:"message"`
	Filename         string                        `json:"filename"`
	Translations     map[string]TranslationOutcome `json:"translations"`
	Record           *models.ContentRecord         `json:"record"`
}

// Orchestrator runs requests through the pipeline. It is safe for
// concurrent use; each run gets its own workspace.
type Orchestrator struct {
	acquirer    acquisition.Acquirer
	transcriber Transcriber
	translator  translation.Translator
	store       content.Repository
	recorder    runs.Recorder

	workDir    string
	jobTimeout time.Duration
	now        func() time.Time
	newRunID   func() string

	// seams for failure injection
	readFile        func(string) ([]byte, error)
	extractMetadata func(*metadata.Fields, transcript.ContentMap, string) string

	log zerolog.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithTranslator enables translation. Without one every run is degraded to
// the original language only.
func WithTranslator(t translation.Translator) Option {
	return func(o *Orchestrator) {
		o.translator = t
	}
}

// WithRecorder stores a processing run row per run
func WithRecorder(r runs.Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithWorkDir sets the parent of per-run workspaces
func WithWorkDir(dir string) Option {
	return func(o *Orchestrator) {
		if dir != "" {
			o.workDir = dir
		}
	}
}

// WithJobTimeout bounds a whole run
func WithJobTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.jobTimeout = d
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator creates an orchestrator from its collaborators
func NewOrchestrator(acquirer acquisition.Acquirer, transcriber Transcriber, store content.Repository, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		acquirer:        acquirer,
		transcriber:     transcriber,
		store:           store,
		workDir:         os.TempDir(),
		now:             time.Now,
		newRunID:        uuid.NewString,
		readFile:        os.ReadFile,
		extractMetadata: metadata.FromTranscript,
		log:             telemetry.Component("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TranslationAvailable reports whether a translator is configured
func (o *Orchestrator) TranslationAvailable() bool {
	return o.translator != nil
}

// run is the state carried between stages
type run struct {
	id      string
	req     Request
	started time.Time
	ts      string
	stage   Stage
	ws      *Workspace
	log     zerolog.Logger

	asset    *acquisition.Asset
	jobID    string
	method   string
	language string
	segments []transcript.Segment

	translated   map[string][]transcript.Segment
	outcomes     map[string]TranslationOutcome
	content      transcript.ContentMap
	info         models.ProcessingInfo
	record       *models.ContentRecord
	upsert       content.UpsertResult
	translations []string
}

// Run executes the pipeline for req. On failure the error is an
// *apperrors.AppError whose Kind classifies it.
func (o *Orchestrator) Run(ctx context.Context, req Request) (result *Result, err error) {
	r := &run{
		id:         o.newRunID(),
		req:        req,
		started:    o.now(),
		stage:      StageValidating,
		translated: map[string][]transcript.Segment{},
		outcomes:   map[string]TranslationOutcome{},
	}
	r.ts = naming.TimestampAt(r.started)
	r.log = o.log.With().Str(telemetry.FieldRunID, r.id).Logger()

	ctx, span := telemetry.StartSpan(ctx, "pipeline.run",
		attribute.String("run.id", r.id),
		attribute.String("source.type", string(req.SourceType)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if verr := req.Validate(); verr != nil {
		r.log.Warn().Err(verr).Msg("rejected invalid request")
		return nil, classify(verr, StageValidating).WithDetail("run_id", r.id)
	}

	if o.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.jobTimeout)
		defer cancel()
	}

	ws, werr := NewWorkspace(o.workDir, r.id)
	if werr != nil {
		return nil, classify(werr, StageValidating).WithDetail("run_id", r.id)
	}
	r.ws = ws
	defer func() {
		r.log.Debug().Str(telemetry.FieldStage, string(StageCleaningUp)).Msg("releasing workspace")
		ws.Release(r.log)
	}()

	o.startRun(ctx, r)

	defer func() {
		if p := recover(); p != nil {
			r.log.Error().
				Interface("panic", p).
				Str("stack", string(debug.Stack())).
				Str(telemetry.FieldStage, string(r.stage)).
				Msg("pipeline panicked")
			result = nil
			err = o.fail(ctx, r, apperrors.Newf(apperrors.ErrCodeInternal, "unexpected failure during %s: %v", r.stage, p))
		}
	}()

	if xerr := o.execute(ctx, r); xerr != nil {
		return nil, o.fail(ctx, r, xerr)
	}

	r.stage = StageResponding
	result = o.respond(r)
	o.completeRun(ctx, r)
	r.log.Info().
		Str(telemetry.FieldJobID, r.jobID).
		Str("status", string(result.Status)).
		Str("language", r.language).
		Dur("elapsed", o.now().Sub(r.started)).
		Msg("run succeeded")
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, r *run) error {
	steps := []struct {
		stage Stage
		fn    func(context.Context, *run) error
	}{
		{StageAcquiring, o.acquire},
		{StageTranscribing, o.transcribe},
		{StageStandardizing, o.standardize},
		{StageTranslating, o.translate},
		{StageReadingBack, o.readBack},
		{StageAssembling, o.assemble},
		{StageGeneratingMetadata, o.generateMetadata},
		{StageUpserting, o.upsertRecord},
	}

	for _, step := range steps {
		if err := o.runStage(ctx, r, step.stage, step.fn); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, r *run, stage Stage, fn func(context.Context, *run) error) (err error) {
	r.stage = stage
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := telemetry.StartSpan(ctx, "pipeline."+string(stage), attribute.String("run.id", r.id))
	defer func() { telemetry.EndSpan(span, err) }()

	if o.recorder != nil {
		if rerr := o.recorder.Advance(ctx, r.id, string(stage), r.jobID); rerr != nil {
			r.log.Warn().Err(rerr).Msg("failed to record stage")
		}
	}

	r.log.Debug().Str(telemetry.FieldStage, string(stage)).Msg("stage started")
	return fn(ctx, r)
}

func (o *Orchestrator) acquire(ctx context.Context, r *run) error {
	asset, err := o.acquirer.Acquire(ctx, r.req.Source(), r.ts, r.ws)
	if err != nil {
		return err
	}
	r.asset = asset
	r.jobID = naming.JobID(asset.TitleBase, r.ts)
	r.log = r.log.With().Str(telemetry.FieldJobID, r.jobID).Logger()

	r.info.TempAudioFile = filepath.Base(asset.AudioPath)
	if asset.UploadedPath != "" {
		uploaded := filepath.Base(asset.UploadedPath)
		r.info.TempUploadedFile = &uploaded
	}
	r.log.Info().Str("audio", asset.AudioPath).Msg("source acquired")
	return nil
}

func (o *Orchestrator) transcribe(ctx context.Context, r *run) error {
	mode := transcription.ModeRemote
	if r.req.LocalTranscription {
		mode = transcription.ModeLocal
	}

	res, err := o.transcriber.Transcribe(ctx, r.asset.AudioPath, mode)
	if err != nil {
		return err
	}
	r.method = res.Method
	r.language = res.Language
	r.segments = transcript.NonEmpty(res.Segments)
	return nil
}

func (o *Orchestrator) standardize(_ context.Context, r *run) error {
	raw := r.language
	r.language = language.Standardize(raw)
	r.log.Debug().Str("raw", raw).Str("language", r.language).Msg("language standardized")
	return nil
}

// translate calls the translator once per target language, concurrently.
// A failed language is recorded and dropped; it never fails the run.
func (o *Orchestrator) translate(ctx context.Context, r *run) error {
	if len(r.segments) == 0 {
		return nil
	}

	targets := language.Targets(r.language)
	if o.translator == nil {
		r.info.TranslationUnavailable = true
		for _, target := range targets {
			r.outcomes[target] = TranslationOutcome{Status: TranslationUnavailable}
		}
		r.log.Warn().Strs("targets", targets).Msg("translation unavailable, keeping original language only")
		return nil
	}

	texts := make([]string, len(r.segments))
	for i, seg := range r.segments {
		texts[i] = seg.Text
	}

	type slot struct {
		done   bool
		texts  []string
		err    error
		target string
	}
	slots := make([]slot, len(targets))

	var wg conc.WaitGroup
	for i, target := range targets {
		i, target := i, target
		slots[i].target = target
		wg.Go(func() {
			translated, err := o.translator.Translate(ctx, texts, target)
			slots[i] = slot{done: true, texts: translated, err: err, target: target}
		})
	}
	if rec := wg.WaitAndRecover(); rec != nil {
		r.log.Error().Str("panic", rec.String()).Msg("translation panicked")
	}

	for _, s := range slots {
		err := s.err
		if !s.done {
			err = errors.New("translation did not complete")
		}
		if err == nil {
			segs := applyTranslation(r.segments, s.texts)
			if len(segs) == 0 {
				err = errors.New("translation produced no cues")
			} else {
				if len(s.texts) != len(texts) {
					r.log.Warn().
						Str("target", s.target).
						Int("expected", len(texts)).
						Int("received", len(s.texts)).
						Msg("translation count mismatch, filling placeholders")
				}
				r.translated[s.target] = segs
				r.translations = append(r.translations, s.target)
				r.outcomes[s.target] = TranslationOutcome{Status: TranslationOK}
				continue
			}
		}

		if r.info.TranslationErrors == nil {
			r.info.TranslationErrors = map[string]string{}
		}
		r.info.TranslationErrors[s.target] = err.Error()
		r.outcomes[s.target] = TranslationOutcome{Status: TranslationFailed, Error: err.Error()}
		r.log.Warn().Err(err).Str("target", s.target).Msg("translation failed, language skipped")
	}
	return nil
}

// applyTranslation pairs translated texts with the source timings
func applyTranslation(source []transcript.Segment, texts []string) []transcript.Segment {
	out := make([]transcript.Segment, len(source))
	for i, seg := range source {
		text := TranslationPlaceholder
		if i < len(texts) && strings.TrimSpace(texts[i]) != "" {
			text = texts[i]
		}
		out[i] = transcript.Segment{Start: seg.Start, End: seg.End, Text: text}
	}
	return transcript.NonEmpty(out)
}

// readBack writes each transcript through the scratch directory and loads
// what was written into the content map
func (o *Orchestrator) readBack(_ context.Context, r *run) error {
	if len(r.segments) == 0 {
		return nil
	}

	langs := append([]string{r.language}, r.translations...)
	for _, lang := range langs {
		segs := r.segments
		if lang != r.language {
			segs = r.translated[lang]
		}

		path, err := o.writeTranscript(r, lang, segs)
		if err != nil {
			return err
		}
		if lang == r.language {
			r.info.TempOriginalTranscriptFile = filepath.Base(path)
		} else {
			if r.info.TempTranslatedTranscriptFiles == nil {
				r.info.TempTranslatedTranscriptFiles = map[string]string{}
			}
			r.info.TempTranslatedTranscriptFiles[lang] = filepath.Base(path)
		}

		data, err := o.readFile(path)
		if err != nil {
			r.log.Warn().Err(err).Str("language", lang).Msg("failed to read transcript back")
			r.content.Set(lang, transcript.ReadError(err))
			r.info.ContentReadErrors = append(r.info.ContentReadErrors, lang)
			continue
		}
		r.content.Set(lang, string(data))
	}
	return nil
}

func (o *Orchestrator) writeTranscript(r *run, lang string, segs []transcript.Segment) (string, error) {
	tmp := r.ws.Path(naming.TempTranscriptFile(r.jobID))
	final := r.ws.Path(naming.TranscriptFile(r.jobID, lang))

	if err := os.WriteFile(tmp, []byte(transcript.Encode(segs, transcript.DefaultHeader)), 0o644); err != nil {
		return "", fmt.Errorf("%w: writing %s transcript: %w", errInconsistent, lang, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return "", fmt.Errorf("%w: %s transcript missing after write: %w", errInconsistent, lang, err)
	}
	return final, nil
}

// assemble builds the record, keeping curated fields from any stored
// version of the job
func (o *Orchestrator) assemble(ctx context.Context, r *run) error {
	existing, err := o.store.FindByJobID(ctx, r.jobID)
	if err != nil && !errors.Is(err, content.ErrNotFound) {
		return fmt.Errorf("loading existing record: %w", err)
	}

	r.info.RunID = r.id
	r.info.ProcessedAt = r.started
	r.info.TranscriptionMethod = r.method

	rec := &models.ContentRecord{
		JobID:               r.jobID,
		SourceType:          r.req.SourceType,
		SourceLocation:      r.req.SourceLocation(),
		ProcessingTimestamp: r.ts,
		DetectedLanguage:    r.language,
		TranscriptContent:   models.TranscriptContent{ContentMap: r.content},
		Keywords:            []string{},
		DateAdded:           r.started,
		LastUpdated:         r.started,
	}
	if r.req.Remote != nil {
		url := r.req.Remote.URL
		rec.URL = &url
	}

	if existing != nil {
		rec.Title = existing.Title
		rec.Summary = existing.Summary
		rec.Speaker = existing.Speaker
		rec.Location = existing.Location
		rec.Category = existing.Category
		if rec.URL == nil {
			rec.URL = existing.URL
		}
		if existing.Keywords != nil {
			rec.Keywords = existing.Keywords
		}
	}

	r.record = rec
	return nil
}

// generateMetadata is best effort: a failure is recorded on the record and
// the run carries on
func (o *Orchestrator) generateMetadata(_ context.Context, r *run) error {
	if !r.req.GenerateMetadata {
		r.record.ProcessingInfo = r.info
		return nil
	}

	defer func() {
		if p := recover(); p != nil {
			r.info.MetadataGenerationError = fmt.Sprint(p)
			r.log.Warn().Interface("panic", p).Msg("metadata generation failed")
		}
		r.record.ProcessingInfo = r.info
	}()

	fields := metadata.Fields{
		Title:    r.record.Title,
		Summary:  r.record.Summary,
		Speaker:  r.record.Speaker,
		Location: r.record.Location,
	}
	lang := o.extractMetadata(&fields, r.content, r.language)

	r.info.MetadataLanguage = lang
	r.record.Keywords = fields.Keywords
	if r.record.Keywords == nil {
		r.record.Keywords = []string{}
	}
	r.record.Title = fields.Title
	r.record.Summary = fields.Summary
	r.record.Speaker = fields.Speaker
	r.record.Location = fields.Location
	return nil
}

func (o *Orchestrator) upsertRecord(ctx context.Context, r *run) error {
	res, err := o.store.Upsert(ctx, r.record)
	if err != nil {
		return err
	}
	r.upsert = res

	stored, err := o.store.FindByJobID(ctx, r.jobID)
	if err != nil {
		r.log.Warn().Err(err).Msg("could not reload stored record")
		return nil
	}
	r.record = stored
	return nil
}

func (o *Orchestrator) respond(r *run) *Result {
	msg := messageProcessed
	if len(r.segments) == 0 {
		msg = messageNoSpeech
	}
	return &Result{
		Status:           r.upsert.Status,
		RunID:            r.id,
		JobID:            r.jobID,
		RecordID:         r.upsert.ID,
		DetectedLanguage: r.language,
		Message:          msg,
		Filename:         r.req.SourceLocation(),
		Translations:     r.outcomes,
		Record:           r.record,
	}
}

func (o *Orchestrator) fail(ctx context.Context, r *run, err error) *apperrors.AppError {
	appErr := classify(err, r.stage).WithDetail("run_id", r.id)
	if r.jobID != "" {
		appErr.WithDetail("job_id", r.jobID)
	}

	event := r.log.Error()
	if appErr.Kind() == apperrors.KindClient || appErr.Kind() == apperrors.KindNotFound {
		event = r.log.Warn()
	}
	event.Err(err).
		Str(telemetry.FieldStage, string(r.stage)).
		Str("kind", appErr.Kind()).
		Msg("run failed")

	if o.recorder != nil {
		ferr := o.recorder.Fail(context.WithoutCancel(ctx), r.id, runs.Failure{
			Stage:     string(r.stage),
			ErrorType: errorType(appErr),
			ErrorCode: string(appErr.Code),
			Message:   appErr.Error(),
		})
		if ferr != nil {
			r.log.Warn().Err(ferr).Msg("failed to record run failure")
		}
	}
	return appErr
}

func (o *Orchestrator) startRun(ctx context.Context, r *run) {
	r.log.Info().
		Str("source_type", string(r.req.SourceType)).
		Str("source", r.req.SourceLocation()).
		Bool("metadata", r.req.GenerateMetadata).
		Bool("local", r.req.LocalTranscription).
		Msg("run started")

	if o.recorder == nil {
		return
	}
	err := o.recorder.Start(ctx, &models.ProcessingRun{
		RunID:          r.id,
		SourceType:     r.req.SourceType,
		SourceLocation: r.req.SourceLocation(),
		Stage:          string(StageValidating),
		StartedAt:      r.started,
	})
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to record run start")
	}
}

func (o *Orchestrator) completeRun(ctx context.Context, r *run) {
	if o.recorder == nil {
		return
	}

	diagnostics := map[string]interface{}{}
	if len(r.info.TranslationErrors) > 0 {
		diagnostics["translation_errors"] = r.info.TranslationErrors
	}
	if len(r.info.ContentReadErrors) > 0 {
		diagnostics["content_read_errors"] = r.info.ContentReadErrors
	}
	if r.info.TranslationUnavailable {
		diagnostics["translation_unavailable"] = true
	}
	if r.info.MetadataGenerationError != "" {
		diagnostics["metadata_generation_error"] = r.info.MetadataGenerationError
	}

	err := o.recorder.Complete(context.WithoutCancel(ctx), r.id, runs.Completion{
		Outcome:             string(r.upsert.Status),
		TranscriptionMethod: r.method,
		DetectedLanguage:    r.language,
		Diagnostics:         diagnostics,
	})
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to record run completion")
	}
}
