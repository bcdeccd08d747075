package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/pkg/transcript"
)

func migratedDB(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func TestInitialize(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		db, err := Initialize(":memory:", false)
		require.NoError(t, err)
		defer db.Close()
		assert.NoError(t, db.HealthCheck())
	})

	t.Run("creates missing parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data", "nested", "transcripts.db")
		db, err := Initialize(path, true)
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, db.Migrate())
		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("single connection", func(t *testing.T) {
		db, err := Initialize(":memory:", false)
		require.NoError(t, err)
		defer db.Close()

		sqlDB, err := db.DB.DB()
		require.NoError(t, err)
		assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	})
}

func TestDB_HealthCheck(t *testing.T) {
	var nilDB *DB
	assert.Error(t, nilDB.HealthCheck())

	db, err := Initialize(":memory:", false)
	require.NoError(t, err)
	assert.NoError(t, db.HealthCheck())

	require.NoError(t, db.Close())
	assert.Error(t, db.HealthCheck(), "a closed database is unhealthy")
}

func TestDB_ContentRecordSchema(t *testing.T) {
	db := migratedDB(t)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	title := "Temple Stories"

	rec := models.ContentRecord{
		JobID:               "temple_stories_20240310_120000",
		SourceType:          models.SourceMP4,
		SourceLocation:      "Temple Stories.mp4",
		ProcessingTimestamp: "20240310_120000",
		DetectedLanguage:    "ne",
		TranscriptContent: models.TranscriptContent{ContentMap: transcript.NewContentMap(
			transcript.Entry{Language: "ne", Content: "WEBVTT\n\n00:00:00.000 --> 00:00:02.000\nनमस्ते\n"},
			transcript.Entry{Language: "en", Content: "WEBVTT\n\n00:00:00.000 --> 00:00:02.000\nHello\n"},
		)},
		Keywords: datatypes.JSONSlice[string]{"temple", "stories"},
		Title:    &title,
		ProcessingInfo: models.ProcessingInfo{
			ProcessedAt:                   now,
			TranscriptionMethod:           "openai",
			TempTranslatedTranscriptFiles: map[string]string{"en": "temple_stories_transcription_en.vtt"},
		},
		DateAdded:   now,
		LastUpdated: now,
	}
	require.NoError(t, db.Create(&rec).Error)

	t.Run("json columns round trip", func(t *testing.T) {
		var got models.ContentRecord
		require.NoError(t, db.First(&got, "job_id = ?", rec.JobID).Error)

		assert.Equal(t, []string{"ne", "en"}, got.TranscriptContent.Languages())
		ne, ok := got.Transcript("ne")
		require.True(t, ok)
		assert.Contains(t, ne, "नमस्ते")
		assert.Equal(t, []string{"temple", "stories"}, []string(got.Keywords))
		assert.Equal(t, "openai", got.ProcessingInfo.TranscriptionMethod)
		assert.Equal(t, "temple_stories_transcription_en.vtt", got.ProcessingInfo.TempTranslatedTranscriptFiles["en"])
		require.NotNil(t, got.Title)
		assert.Equal(t, title, *got.Title)
		assert.Nil(t, got.Summary)
	})

	t.Run("job id is unique", func(t *testing.T) {
		dup := rec
		dup.ID = 0
		assert.Error(t, db.Create(&dup).Error)

		var count int64
		require.NoError(t, db.Model(&models.ContentRecord{}).Where("job_id = ?", rec.JobID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestDB_ProcessingRunSchema(t *testing.T) {
	db := migratedDB(t)
	started := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	run := models.ProcessingRun{
		RunID:       "run-1",
		JobID:       "talk_20240310_120000",
		SourceType:  models.SourceYouTube,
		StartedAt:   started,
		Diagnostics: datatypes.JSONMap{"stage": "acquiring"},
	}
	require.NoError(t, db.Create(&run).Error)

	var got models.ProcessingRun
	require.NoError(t, db.First(&got, "run_id = ?", "run-1").Error)
	assert.Equal(t, models.RunStatusProcessing, got.Status, "status defaults to processing")
	assert.Equal(t, "acquiring", got.Diagnostics["stage"])
	assert.False(t, got.Finished())
	assert.Zero(t, got.Duration())

	dup := models.ProcessingRun{RunID: "run-1", StartedAt: started}
	assert.Error(t, db.Create(&dup).Error, "run ids are unique")
}

func TestInitializeWithMigrations(t *testing.T) {
	tests := []struct {
		name    string
		dbPath  string
		wantErr string
	}{
		{name: "in-memory database", dbPath: ":memory:"},
		{name: "file database in a new directory", dbPath: filepath.Join(t.TempDir(), "nested", "transcripts.db")},
		{name: "database path not configured", wantErr: "database path is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			viper.Set("database.path", tt.dbPath)

			db, err := InitializeWithMigrations()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, db)
				return
			}
			require.NoError(t, err)
			defer db.Close()

			for _, obj := range db.SchemaStatus() {
				assert.True(t, obj.Present, obj.Name)
			}
		})
	}
}

func TestDB_MigrateIsRepeatable(t *testing.T) {
	db := migratedDB(t)
	require.NoError(t, db.Migrate())
	assert.True(t, db.Migrator().HasIndex(&models.ContentRecord{}, "JobID"))
}

func TestDB_SchemaStatus(t *testing.T) {
	db, err := Initialize(":memory:", false)
	require.NoError(t, err)
	defer db.Close()

	for _, obj := range db.SchemaStatus() {
		assert.False(t, obj.Present, obj.Name)
	}

	require.NoError(t, db.Migrate())
	names := make([]string, 0, 3)
	for _, obj := range db.SchemaStatus() {
		assert.True(t, obj.Present, obj.Name)
		names = append(names, obj.Name)
	}
	assert.Equal(t, []string{"content_records", "content_records.job_id", "processing_runs"}, names)
}
