package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/josh-kwaku/sarafi-settlement/internal/handler"
	"github.com/josh-kwaku/sarafi-settlement/internal/logging"
	"github.com/josh-kwaku/sarafi-settlement/internal/repository"
	"github.com/josh-kwaku/sarafi-settlement/internal/tenant"
)

type idempotencyStore interface {
	Lookup(ctx context.Context, tenantID, key string) (*repository.IdempotencyCacheEntry, error)
	Save(ctx context.Context, entry *repository.IdempotencyCacheEntry) (bool, error)
}

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "X-Idempotent-Replayed"
	idempotencyTTL    = 24 * time.Hour
	maxIdempotencyKey = 255
)

type idempotency struct {
	store    idempotencyStore
	inFlight sync.Map
	next     http.Handler
}

// Idempotency replays the stored response when a mutating /api/ request is
// retried with the same key. Server errors are never stored so the retry
// reaches the handler again. A second request arriving while the first is
// still running gets 409 instead of a duplicate payment.
func Idempotency(store idempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return &idempotency{store: store, next: next}
	}
}

func (m *idempotency) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/api/") || !mutating(r.Method) {
		m.next.ServeHTTP(w, r)
		return
	}

	key := r.Header.Get(idempotencyHeader)
	if key == "" || len(key) > maxIdempotencyKey {
		handler.RespondAppError(w, handler.ErrMissingIdempotencyKey, nil)
		return
	}
	tenantID, ok := tenant.IDFromContext(r.Context())
	if !ok {
		handler.RespondAppError(w, handler.ErrMissingTenant, nil)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		handler.RespondAppError(w, handler.ErrInvalidRequest, nil)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	ctx := logging.With(r.Context(), "idempotency_key", key)
	log := logging.FromContext(ctx)
	hash := requestHash(r.Method, r.URL.Path, body)

	slot := tenantID + "\x00" + key
	if _, busy := m.inFlight.LoadOrStore(slot, struct{}{}); busy {
		handler.RespondAppError(w, handler.ErrIdempotencyInFlight, nil)
		return
	}
	defer m.inFlight.Delete(slot)

	cached, err := m.store.Lookup(ctx, tenantID, key)
	if err != nil {
		log.Error("idempotency lookup failed", "error", err)
		handler.RespondAppError(w, handler.ErrPersistence, nil)
		return
	}
	if cached != nil {
		if cached.RequestHash != hash {
			handler.RespondAppError(w, handler.ErrIdempotencyConflict, nil)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(cached.StatusCode)
		if _, err := w.Write(cached.ResponseBody); err != nil {
			log.Error("idempotent replay write failed", "error", err)
		}
		return
	}

	rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
	m.next.ServeHTTP(rec, r.WithContext(ctx))
	if rec.status >= http.StatusInternalServerError {
		return
	}

	now := time.Now().UTC()
	stored, err := m.store.Save(ctx, &repository.IdempotencyCacheEntry{
		Key:          key,
		TenantID:     tenantID,
		RequestHash:  hash,
		StatusCode:   rec.status,
		ResponseBody: rec.body.Bytes(),
		CreatedAt:    now,
		ExpiresAt:    now.Add(idempotencyTTL),
	})
	switch {
	case err != nil:
		log.Error("idempotency store failed", "error", err)
	case !stored:
		log.Warn("idempotency entry already present, response not stored")
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// requestHash fingerprints a request. JSON bodies are canonicalised first so
// a retry that reorders fields or whitespace still matches.
func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	io.WriteString(h, method)
	h.Write([]byte{0})
	io.WriteString(h, path)
	h.Write([]byte{0})
	h.Write(canonicalJSON(body))
	return hex.EncodeToString(h.Sum(nil))
}

func canonicalJSON(body []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return body
	}
	out, err := json.Marshal(v)
	if err != nil {
		return body
	}
	return out
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
