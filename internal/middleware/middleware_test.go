package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

type failingCounter struct{}

func (failingCounter) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func hit(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(NewMemoryCounter(), "auth", 2, time.Minute)(okHandler())

	assert.Equal(t, http.StatusNoContent, hit(h, "10.0.0.1:1000").Code)
	rec := hit(h, "10.0.0.1:1001")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = hit(h, "10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Other clients have their own window.
	assert.Equal(t, http.StatusNoContent, hit(h, "10.0.0.2:1000").Code)
}

func TestRateLimit_WindowResets(t *testing.T) {
	counter := NewMemoryCounter()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	counter.now = func() time.Time { return now }
	h := RateLimit(counter, "auth", 1, time.Minute)(okHandler())

	assert.Equal(t, http.StatusNoContent, hit(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:1").Code)

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, hit(h, "10.0.0.1:1").Code)
}

func TestRateLimit_CounterFailureAllows(t *testing.T) {
	h := RateLimit(failingCounter{}, "auth", 1, time.Minute)(okHandler())
	assert.Equal(t, http.StatusNoContent, hit(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusNoContent, hit(h, "10.0.0.1:1").Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"path":"/missing"`)
}
