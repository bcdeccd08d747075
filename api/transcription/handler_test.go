package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/media-transcript-api/api/types"
	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/internal/services/content"
	"github.com/killallgit/media-transcript-api/internal/services/pipeline"
	apperrors "github.com/killallgit/media-transcript-api/pkg/errors"
)

type MockProcessor struct {
	mock.Mock
	upload []byte
}

func (m *MockProcessor) Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	if req.Upload != nil && req.Upload.Content != nil {
		m.upload, _ = io.ReadAll(req.Upload.Content)
		req.Upload.Content = nil
	}
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.Result), args.Error(1)
}

func setupRouter(proc *MockProcessor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	deps := &types.Dependencies{Pipeline: proc}
	RegisterRoutes(router.Group("/api/v1/transcriptions"), deps)
	RegisterLegacyRoute(router, deps)
	return router
}

func storedResult() *pipeline.Result {
	rec := &models.ContentRecord{JobID: "talk_20240101_120000"}
	rec.TranscriptContent.Set("en", strings.Repeat("e", 120))
	rec.TranscriptContent.Set("ne", "नमस्ते")
	return &pipeline.Result{
		Status:           content.StatusCreated,
		RunID:            "run-1",
		JobID:            rec.JobID,
		RecordID:         "1",
		DetectedLanguage: "en",
		Message:          "Transcription processed successfully",
		Filename:         "Talk.mp4",
		Record:           rec,
	}
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestGenerate_JSON(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("Run", mock.Anything, pipeline.Request{
		SourceType:       models.SourceYouTube,
		Remote:           &pipeline.RemoteSource{URL: "https://youtube.com/watch?v=abc"},
		GenerateMetadata: true,
	}).Return(storedResult(), nil).Once()

	router := setupRouter(proc)
	w := postJSON(router, "/api/v1/transcriptions",
		`{"source_type":"YouTube","source":" https://youtube.com/watch?v=abc ","generate_metadata":"true"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp types.TranscriptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "created", resp.Outcome)
	assert.Equal(t, "talk_20240101_120000", resp.JobID)
	assert.Equal(t, "1", resp.RecordID)
	assert.Equal(t, strings.Repeat("e", 100)+"...", resp.TranscriptEN)
	assert.Equal(t, "नमस्ते...", resp.TranscriptNE)
	proc.AssertExpectations(t)
}

func TestGenerate_JSONLocalPath(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("Run", mock.Anything, pipeline.Request{
		SourceType:         models.SourceMP4,
		Upload:             &pipeline.UploadedFile{LocalPath: "talk.mp4"},
		LocalTranscription: true,
	}).Return(storedResult(), nil).Once()

	router := setupRouter(proc)
	w := postJSON(router, "/api/generate-transcription",
		`{"source_type":"mp4","source":"talk.mp4","local_transcription":true}`)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	proc.AssertExpectations(t)
}

func TestGenerate_Multipart(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("Run", mock.Anything, mock.MatchedBy(func(req pipeline.Request) bool {
		return req.SourceType == models.SourceMP4 &&
			req.Upload != nil && req.Upload.Filename == "Talk.mp4" &&
			req.GenerateMetadata && !req.LocalTranscription
	})).Return(storedResult(), nil).Once()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("source_type", "mp4"))
	require.NoError(t, mw.WriteField("generate_metadata", "True"))
	part, err := mw.CreateFormFile("source", "Talk.mp4")
	require.NoError(t, err)
	_, err = part.Write([]byte("video-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcriptions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	setupRouter(proc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []byte("video-bytes"), proc.upload)
	proc.AssertExpectations(t)
}

func TestGenerate_Rejections(t *testing.T) {
	multipartBody := func(fields map[string]string) (string, io.Reader) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		for k, v := range fields {
			_ = mw.WriteField(k, v)
		}
		_ = mw.Close()
		return mw.FormDataContentType(), &body
	}

	tests := []struct {
		name        string
		contentType string
		body        io.Reader
		wantStatus  int
		wantCode    apperrors.ErrorCode
	}{
		{
			name:        "unsupported content type",
			contentType: "text/plain",
			body:        strings.NewReader("hello"),
			wantStatus:  http.StatusUnsupportedMediaType,
			wantCode:    apperrors.ErrCodeUnsupportedMedia,
		},
		{
			name:        "malformed json",
			contentType: "application/json",
			body:        strings.NewReader("{"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    apperrors.ErrCodeInvalidInput,
		},
		{
			name:        "missing source",
			contentType: "application/json",
			body:        strings.NewReader(`{"source_type":"youtube"}`),
			wantStatus:  http.StatusBadRequest,
			wantCode:    apperrors.ErrCodeMissingField,
		},
		{
			name:        "missing source type",
			contentType: "application/json; charset=utf-8",
			body:        strings.NewReader(`{"source":"https://youtube.com/watch?v=abc"}`),
			wantStatus:  http.StatusBadRequest,
			wantCode:    apperrors.ErrCodeMissingField,
		},
	}

	mpType, mpBody := multipartBody(map[string]string{"source_type": "youtube"})
	tests = append(tests, struct {
		name        string
		contentType string
		body        io.Reader
		wantStatus  int
		wantCode    apperrors.ErrorCode
	}{name: "multipart with non mp4 type", contentType: mpType, body: mpBody, wantStatus: http.StatusBadRequest, wantCode: apperrors.ErrCodeValidation})

	mpType, mpBody = multipartBody(map[string]string{"source_type": "mp4"})
	tests = append(tests, struct {
		name        string
		contentType string
		body        io.Reader
		wantStatus  int
		wantCode    apperrors.ErrorCode
	}{name: "multipart without file", contentType: mpType, body: mpBody, wantStatus: http.StatusBadRequest, wantCode: apperrors.ErrCodeMissingField})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := new(MockProcessor)
			router := setupRouter(proc)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/transcriptions", tt.body)
			req.Header.Set("Content-Type", tt.contentType)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			var resp types.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, string(tt.wantCode), resp.Code)
			proc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
		})
	}
}

func TestGenerate_PipelineError(t *testing.T) {
	proc := new(MockProcessor)
	proc.On("Run", mock.Anything, mock.Anything).
		Return(nil, apperrors.ExternalServiceError("yt-dlp", assert.AnError).WithDetail("run_id", "run-1")).Once()

	w := postJSON(setupRouter(proc), "/api/v1/transcriptions", `{"source_type":"youtube","source":"https://youtube.com/watch?v=abc"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.KindUpstream, resp.Kind)
	assert.Equal(t, "run-1", resp.Details["run_id"])
}

func TestGenerate_NoPipeline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/transcriptions", nil)

	Generate(&types.Dependencies{})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
