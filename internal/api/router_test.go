package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore is a map-backed doubt and knowledge store.
type memStore struct {
	mu        sync.Mutex
	doubts    map[string]domain.Doubt
	questions map[string]string
}

func newMemStore() *memStore {
	return &memStore{doubts: map[string]domain.Doubt{}, questions: map[string]string{}}
}

func (m *memStore) FindByKey(ctx context.Context, key, contentID string, minConfidence int) (*domain.Doubt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doubts[key+"|"+contentID]
	if !ok || d.Confidence < minConfidence {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (m *memStore) FindByKeyGlobal(ctx context.Context, key string, minConfidence int) (*domain.Doubt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.doubts {
		if d.QueryKey == key && d.Confidence >= minConfidence {
			return &d, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) Upsert(ctx context.Context, d *domain.Doubt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doubts[d.QueryKey+"|"+d.ContentID] = *d
	return nil
}

func (m *memStore) SimilarQuestions(ctx context.Context, embedding []float32, k int, minScore float64) ([]domain.SemanticCandidate, error) {
	return nil, nil
}

func (m *memStore) MergeResolution(ctx context.Context, entry domain.KnowledgeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[entry.Question.Text] = entry.Answer.Text
	return nil
}

func (m *memStore) Stats(ctx context.Context) (*domain.KnowledgeStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &domain.KnowledgeStats{
		Questions: int64(len(m.questions)),
		Answers:   int64(len(m.questions)),
		Doubts:    int64(len(m.doubts)),
	}, nil
}

func (m *memStore) doubtCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.doubts)
}

func newTestApp(t *testing.T, ping func(context.Context) error) (*App, *memStore) {
	t.Helper()
	t.Setenv("TUTOR_PROVIDER", "mock")
	t.Setenv("TUTOR_API_KEY", "")
	t.Setenv("EMBEDDING_PROVIDER", "mock")
	t.Setenv("RATE_LIMIT_RPS", "1000")
	t.Setenv("RATE_LIMIT_BURST", "1000")

	ms := newMemStore()
	app, err := NewApp(testContext(t), Stores{
		Backend:   "memory",
		Doubts:    ms,
		Knowledge: ms,
		Ping:      ping,
	}, zap.NewNop())
	require.NoError(t, err)
	return app, ms
}

func do(t *testing.T, app *App, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, func(context.Context) error { return nil })

	rec, body := do(t, app, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["backend"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealth_StoreDown(t *testing.T) {
	app, _ := newTestApp(t, func(context.Context) error { return errors.New("connection refused") })

	rec, body := do(t, app, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "error", body["status"])
}

// curatedRecursion scores 88 as a verified answer with no context.
const curatedRecursion = "# Recursion\n\n## Core idea\n\nA function that calls itself on a smaller input.\n\n" +
	"## Parts\n\n- a base case that stops\n- a recursive case that shrinks the input\n\n" +
	"1. write the base case first\n\n**Always** make progress toward the base case. " +
	"Each call adds a frame to the stack, so deep recursion on large inputs can overflow it. " +
	"Tail calls or an explicit stack avoid that in languages without tail-call elimination."

func TestAdmitThenResolveFromCache(t *testing.T) {
	app, _ := newTestApp(t, nil)

	rec, body := do(t, app, http.MethodPost, "/v1/knowledge/admit",
		`{"query":"What is recursion?","answer":`+strconv.Quote(curatedRecursion)+`}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["admitted"])

	rec, body = do(t, app, http.MethodPost, "/v1/doubts/resolve", `{"query":"What is recursion?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(domain.SourceDoubtGlobal), body["source"])
	assert.Equal(t, curatedRecursion, body["explanation"])
	assert.GreaterOrEqual(t, body["confidence"], float64(85))
}

func TestAdmit_JunkAnswerWithClaimedConfidence(t *testing.T) {
	app, ms := newTestApp(t, nil)

	rec, body := do(t, app, http.MethodPost, "/v1/knowledge/admit",
		`{"query":"What is recursion?","answer":"lol","confidence":100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["admitted"])
	assert.Less(t, body["confidence"], float64(80))
	assert.Equal(t, 0, ms.doubtCount())

	rec, body = do(t, app, http.MethodPost, "/v1/doubts/resolve", `{"query":"What is recursion?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(domain.SourceAI), body["source"])
	assert.NotEqual(t, "lol", body["explanation"])
	app.Admitter.Wait()
}

func TestResolveThroughTutor(t *testing.T) {
	app, ms := newTestApp(t, nil)

	rec, body := do(t, app, http.MethodPost, "/v1/doubts/resolve",
		`{"query":"Why is the sky blue?","context":"Physics lecture on scattering"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(domain.SourceAI), body["source"])
	assert.Contains(t, body["explanation"], "mock explanation")
	assert.NotEmpty(t, body["reliability"])

	app.Admitter.Wait()
	assert.Equal(t, 1, ms.doubtCount())
}

func TestResolve_EmptyQuery(t *testing.T) {
	app, _ := newTestApp(t, nil)

	rec, body := do(t, app, http.MethodPost, "/v1/doubts/resolve", `{"query":"   "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", body["code"])
}

func TestKnowledgeStats(t *testing.T) {
	app, _ := newTestApp(t, nil)

	rec, _ := do(t, app, http.MethodPost, "/v1/knowledge/admit",
		`{"query":"Explain hashing","answer":`+strconv.Quote(curatedRecursion)+`}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := do(t, app, http.MethodGet, "/v1/knowledge/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["questions"])
	assert.Equal(t, float64(1), body["doubts"])
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApp(t, nil)

	do(t, app, http.MethodGet, "/health", "")
	rec, _ := do(t, app, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "doubtsolver_http_requests_total")
}

// testContext mirrors testing.T.Context (Go 1.24+): the returned context is
// cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
