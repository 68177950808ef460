package commands

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/wessley-plates/engine/domain"
	"github.com/WessleyAI/wessley-plates/pkg/metrics"
)

type stubHandler struct {
	status string
	err    error
	got    *domain.StorageEvent
}

func (h *stubHandler) Handle(_ context.Context, ev domain.StorageEvent) (string, error) {
	h.got = &ev
	return h.status, h.err
}

func serveEvent(t *testing.T, h *stubHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := newHandler(h, metrics.New(), 256, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body)))
	return rec
}

const sampleEvent = `{"Records":[{"eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"licenseplates"},"object":{"key":"car.jpg"}}}]}`

func TestPostEventProcessed(t *testing.T) {
	h := &stubHandler{status: "processed"}
	rec := serveEvent(t, h, sampleEvent)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp EventResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "processed", resp.Status)
	require.NotNil(t, h.got)
	assert.Equal(t, "car.jpg", h.got.Records[0].ObjectKey())
}

func TestPostEventEmpty(t *testing.T) {
	rec := serveEvent(t, &stubHandler{}, `{"Records":[]}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPostEventRecognitionFailure(t *testing.T) {
	h := &stubHandler{err: &domain.RecognitionError{Bucket: "licenseplates", Key: "car.jpg", Err: errors.New("corrupt image")}}
	rec := serveEvent(t, h, sampleEvent)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "licenseplates/car.jpg")
}

func TestPostEventOtherFailure(t *testing.T) {
	rec := serveEvent(t, &stubHandler{err: errors.New("boom")}, sampleEvent)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestPostEventMalformed(t *testing.T) {
	h := &stubHandler{}
	rec := serveEvent(t, h, `{"Records":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, h.got)
}

func TestPostEventTooLarge(t *testing.T) {
	rec := serveEvent(t, &stubHandler{}, `{"Records":[],"pad":"`+strings.Repeat("x", 512)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := metrics.New()
	srv := newHandler(&stubHandler{}, reg, 256, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `platealert_http_requests_total{method="GET",code="200"} 1`)
}
