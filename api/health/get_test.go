package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/media-transcript-api/api/types"
	"github.com/killallgit/media-transcript-api/internal/database"
)

type stubStore struct {
	err error
}

func (s stubStore) Ping(context.Context) error { return s.err }

func TestGet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		setupDeps      func(t *testing.T) *types.Dependencies
		expectedStatus int
		expectedBody   map[string]interface{}
	}{
		{
			name: "healthy with database and store",
			setupDeps: func(t *testing.T) *types.Dependencies {
				db, err := database.Initialize(":memory:", false)
				require.NoError(t, err)
				t.Cleanup(func() { db.Close() })
				return &types.Dependencies{
					DB:           db,
					Store:        stubStore{},
					StoreBackend: "mongo",
					Capabilities: types.Capabilities{RemoteTranscription: true},
				}
			},
			expectedStatus: http.StatusOK,
			expectedBody: map[string]interface{}{
				"status":   "healthy",
				"database": "healthy",
				"store":    "healthy",
			},
		},
		{
			name: "healthy without dependencies",
			setupDeps: func(t *testing.T) *types.Dependencies {
				return &types.Dependencies{}
			},
			expectedStatus: http.StatusOK,
			expectedBody: map[string]interface{}{
				"status":   "healthy",
				"database": "not configured",
				"store":    "not configured",
			},
		},
		{
			name: "unhealthy with closed database",
			setupDeps: func(t *testing.T) *types.Dependencies {
				db, err := database.Initialize(":memory:", false)
				require.NoError(t, err)
				require.NoError(t, db.Close())
				return &types.Dependencies{DB: db}
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody: map[string]interface{}{
				"status":   "unhealthy",
				"database": "unhealthy",
				"store":    "not configured",
			},
		},
		{
			name: "unhealthy store",
			setupDeps: func(t *testing.T) *types.Dependencies {
				return &types.Dependencies{Store: stubStore{err: errors.New("no reachable servers")}, StoreBackend: "mongo"}
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody: map[string]interface{}{
				"status":   "unhealthy",
				"database": "not configured",
				"store":    "unhealthy",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

			Get(tt.setupDeps(t))(c)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response types.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedBody["status"], response.Status)
			assert.Equal(t, tt.expectedBody["database"], response.Database["status"])
			assert.Equal(t, tt.expectedBody["store"], response.Store["status"])
		})
	}
}
