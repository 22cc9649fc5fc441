package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBacklog struct {
	pending int
	oldest  *time.Time
	err     error
}

func (s stubBacklog) Backlog(context.Context) (int, *time.Time, error) {
	return s.pending, s.oldest, s.err
}

func readinessChecks(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Checks
}

func TestReadiness(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	oldest := time.Now().Add(-90 * time.Second)
	h := NewHealthHandler(db, stubBacklog{pending: 3, oldest: &oldest}, "test")

	mock.ExpectPing()
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	outbox := readinessChecks(t, rec)["outbox"].(map[string]any)
	assert.Equal(t, float64(3), outbox["pending"])
	assert.GreaterOrEqual(t, outbox["oldest_pending_age_s"].(float64), float64(89))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"down"`)
	assert.NotContains(t, rec.Body.String(), `"outbox"`)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadiness_BacklogErrorStaysReady(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	h := NewHealthHandler(db, stubBacklog{err: errors.New("timeout")}, "test")

	mock.ExpectPing()
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	outbox := readinessChecks(t, rec)["outbox"].(map[string]any)
	assert.Equal(t, "unknown", outbox["status"])
}

func TestLiveness(t *testing.T) {
	h := NewHealthHandler(nil, nil, "1.4.2")

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"1.4.2"`)
}
