// Package middleware holds gin middleware that needs service state.
package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/media-transcript-api/internal/services/cache"
	"github.com/killallgit/media-transcript-api/internal/telemetry"
)

// CacheStatusHeader reports HIT, MISS or BYPASS
const CacheStatusHeader = "X-Cache"

// CacheConfig holds configuration for cache middleware
type CacheConfig struct {
	Cache      cache.Cache
	DefaultTTL time.Duration
	Enabled    bool
}

// cachedResponse is what a cache entry holds. Per-request headers such as
// the request id are never cached.
type cachedResponse struct {
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	CachedAt    time.Time `json:"cached_at"`
	ETag        string    `json:"etag"`
}

// responseWriter captures response for caching
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache serves repeated GET requests from the cache
func ResponseCache(cfg CacheConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.Cache == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		if shouldBypassCache(c.Request) {
			c.Header(CacheStatusHeader, "BYPASS")
			c.Next()
			return
		}

		key := cacheKey(c.Request)
		if data, found := cfg.Cache.Get(c.Request.Context(), key); found {
			var resp cachedResponse
			if err := json.Unmarshal(data, &resp); err == nil {
				if match := c.GetHeader("If-None-Match"); match != "" && match == resp.ETag {
					c.Header("ETag", resp.ETag)
					c.AbortWithStatus(http.StatusNotModified)
					return
				}
				c.Header(CacheStatusHeader, "HIT")
				c.Header("ETag", resp.ETag)
				c.Header("Age", fmt.Sprintf("%d", int(time.Since(resp.CachedAt).Seconds())))
				c.Data(resp.Status, resp.ContentType, resp.Body)
				c.Abort()
				return
			}
		}

		c.Header(CacheStatusHeader, "MISS")
		w := &responseWriter{ResponseWriter: c.Writer, body: bytes.NewBuffer(nil)}
		c.Writer = w

		c.Next()

		if w.Status() != http.StatusOK || w.body.Len() == 0 {
			return
		}
		resp := cachedResponse{
			Status:      w.Status(),
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
			CachedAt:    time.Now(),
			ETag:        etag(w.body.Bytes()),
		}
		if data, err := json.Marshal(resp); err == nil {
			_ = cfg.Cache.Set(context.WithoutCancel(c.Request.Context()), key, data, cfg.DefaultTTL)
		}
	}
}

// InvalidateOnWrite clears the cache after every non-GET request. Failed
// pipeline runs still add to the run log, so the status is not consulted.
func InvalidateOnWrite(c cache.Cache) gin.HandlerFunc {
	log := telemetry.Component("cache")

	return func(ctx *gin.Context) {
		ctx.Next()

		if c == nil || ctx.Request.Method == http.MethodGet || ctx.Request.Method == http.MethodHead {
			return
		}
		if err := c.Clear(context.WithoutCancel(ctx.Request.Context())); err != nil {
			log.Warn().Err(err).Msg("clearing response cache")
		}
	}
}

// shouldBypassCache honours no-cache, no-store and max-age=0
func shouldBypassCache(req *http.Request) bool {
	for _, directive := range strings.Split(strings.ToLower(req.Header.Get("Cache-Control")), ",") {
		switch strings.TrimSpace(directive) {
		case "no-cache", "no-store", "max-age=0":
			return true
		}
	}
	return req.Header.Get("Pragma") == "no-cache"
}

// cacheKey is the path plus sorted query parameters
func cacheKey(req *http.Request) string {
	parts := []string{req.URL.Path}

	params := req.URL.Query()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range params[k] {
			parts = append(parts, k+"="+v)
		}
	}

	return "http:" + strings.Join(parts, ":")
}

func etag(body []byte) string {
	hash := sha256.Sum256(body)
	return `"` + hex.EncodeToString(hash[:16]) + `"`
}
