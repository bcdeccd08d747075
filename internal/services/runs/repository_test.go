package runs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/killallgit/media-transcript-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ProcessingRun{}))
	return db
}

func TestRecorder_SuccessfulRun(t *testing.T) {
	ctx := context.Background()
	rec := NewRepository(setupTestDB(t))
	started := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	run := &models.ProcessingRun{RunID: "run-1", SourceType: models.SourceYouTube, SourceLocation: "https://youtu.be/x", StartedAt: started}
	require.NoError(t, rec.Start(ctx, run))
	assert.Equal(t, models.RunStatusProcessing, run.Status)

	require.NoError(t, rec.Advance(ctx, "run-1", "transcribing", "talk_20240101_120000"))
	require.NoError(t, rec.Complete(ctx, "run-1", Completion{
		Outcome:             "created",
		TranscriptionMethod: models.MethodLocal,
		DetectedLanguage:    "ne",
		Diagnostics:         map[string]interface{}{"translation_unavailable": true},
	}))

	got, err := rec.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, got.Status)
	assert.Equal(t, "talk_20240101_120000", got.JobID)
	assert.Equal(t, "created", got.Outcome)
	assert.Equal(t, "ne", got.DetectedLanguage)
	assert.True(t, got.Finished())
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, true, got.Diagnostics["translation_unavailable"])
}

func TestRecorder_FailedRun(t *testing.T) {
	ctx := context.Background()
	rec := NewRepository(setupTestDB(t))

	require.NoError(t, rec.Start(ctx, &models.ProcessingRun{RunID: "run-2", SourceType: models.SourceMP4}))
	require.NoError(t, rec.Fail(ctx, "run-2", Failure{
		Stage:     "acquiring",
		ErrorType: models.ErrorTypeNotFound,
		ErrorCode: "NOT_FOUND",
		Message:   "source missing",
	}))

	got, err := rec.Get(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
	assert.Equal(t, "acquiring", got.Stage)
	assert.Equal(t, models.ErrorTypeNotFound, got.ErrorType)
	assert.Equal(t, "source missing", got.Error)
}

func TestRecorder_UnknownRun(t *testing.T) {
	ctx := context.Background()
	rec := NewRepository(setupTestDB(t))

	assert.ErrorIs(t, rec.Advance(ctx, "nope", "acquiring", ""), ErrRunNotFound)
	_, err := rec.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.Error(t, rec.Start(ctx, &models.ProcessingRun{}))
}

func TestRecorder_ListAndPrune(t *testing.T) {
	ctx := context.Background()
	rec := NewRepository(setupTestDB(t))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, rec.Start(ctx, &models.ProcessingRun{RunID: id, JobID: "job", StartedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	require.NoError(t, rec.Complete(ctx, "r1", Completion{Outcome: "created"}))
	require.NoError(t, rec.Complete(ctx, "r2", Completion{Outcome: "updated"}))

	runs, err := rec.ListByJob(ctx, "job", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "r3", runs[0].RunID)

	limited, err := rec.ListByJob(ctx, "job", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// r3 is still processing and r2 is too recent
	deleted, err := rec.DeleteOlderThan(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	runs, err = rec.ListByJob(ctx, "job", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	// a run still processing is never pruned
	deleted, err = rec.DeleteOlderThan(ctx, base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	runs, err = rec.ListByJob(ctx, "job", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r3", runs[0].RunID)
}
