package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"recruitflow/internal/candidate"
	"recruitflow/internal/pipeline"
)

const (
	testSecret   = "test-secret"
	serviceToken = "svc-token"
	userID       = "3b241101-e2bb-4255-8caf-4136c566a962"

	lovelaceID = "6f1c2a0e-8d3b-4c1e-9a57-2f0b7d4e1a01"
	curieID    = "6f1c2a0e-8d3b-4c1e-9a57-2f0b7d4e1a09"
	goneID     = "6f1c2a0e-8d3b-4c1e-9a57-2f0b7d4e1aff"
)

// mockStore overrides the calls a test expects; anything else panics on the
// nil embedded interface.
type mockStore struct {
	Store
	mock.Mock
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) ListCandidates(ctx context.Context) ([]candidate.Candidate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]candidate.Candidate), args.Error(1)
}

func (m *mockStore) MarkViewed(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) GetCandidate(ctx context.Context, id string) (candidate.Candidate, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(candidate.Candidate), args.Error(1)
}

func (m *mockStore) CreateCandidate(ctx context.Context, in candidate.CreateInput) (candidate.Candidate, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(candidate.Candidate), args.Error(1)
}

func (m *mockStore) DeleteCandidate(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestApp(t *testing.T) (*App, *mockStore) {
	t.Helper()
	st := new(mockStore)
	log := zaptest.NewLogger(t)
	a := &App{
		Store:       st,
		Reconciler:  pipeline.NewReconciler(st, st, log),
		StateSecret: []byte(testSecret),
		Log:         log,
	}
	return a, st
}

func testRouter(a *App) *gin.Engine {
	return NewRouter(a, RouterConfig{
		Mode:         gin.TestMode,
		JWTSecret:    testSecret,
		StaticTokens: []string{serviceToken},
	})
}

func sessionToken(t *testing.T, secret, sub string, exp time.Time) string {
	t.Helper()
	claims := sessionClaims{
		Email:        "sam@example.com",
		UserMetadata: map[string]any{"full_name": "Sam Recruiter"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func userToken(t *testing.T) string {
	return sessionToken(t, testSecret, userID, time.Now().Add(time.Hour))
}

func do(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func held(id, last string, status candidate.Status, viewed bool) candidate.Candidate {
	applied := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return candidate.Candidate{
		ID:        id,
		FirstName: "Test",
		LastName:  last,
		Email:     last + "@example.com",
		Phone:     "+15550100",
		Position:  "Engineer",
		Status:    status,
		Viewed:    viewed,
		Version:   1,
		CreatedAt: applied,
		UpdatedAt: applied,
	}
}

func seed(a *App, cands ...candidate.Candidate) {
	for _, c := range cands {
		a.Reconciler.Apply(pipeline.Event{Op: pipeline.Upsert, Candidate: c})
	}
}

func TestHealth(t *testing.T) {
	a, st := newTestApp(t)
	seed(a, held(lovelaceID, "Lovelace", candidate.StatusNew, false))
	st.On("Ping", mock.Anything).Return(nil).Once()
	st.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()
	r := testRouter(a)

	w := do(t, r, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["candidates"])

	w = do(t, r, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}

func TestAuthMiddleware(t *testing.T) {
	a, _ := newTestApp(t)
	r := testRouter(a)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-token", http.StatusUnauthorized},
		{"wrong secret", sessionToken(t, "other", userID, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", sessionToken(t, testSecret, userID, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"no subject", sessionToken(t, testSecret, "", time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"session", userToken(t), http.StatusOK},
		{"static", serviceToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodGet, "/api/candidates", nil, tt.token)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	t.Run("basic scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/candidates", nil)
		req.Header.Set("Authorization", "Basic "+serviceToken)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCORSPreflight(t *testing.T) {
	a, _ := newTestApp(t)
	r := testRouter(a)

	req := httptest.NewRequest(http.MethodOptions, "/api/candidates", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "authorization, content-type")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
}

func TestRequestID(t *testing.T) {
	a, _ := newTestApp(t)
	r := testRouter(a)

	req := httptest.NewRequest(http.MethodGet, "/api/candidates", nil)
	req.Header.Set("Authorization", "Bearer "+serviceToken)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))

	w = do(t, r, http.MethodGet, "/api/candidates", nil, serviceToken)
	_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestNonUUIDPathIsNotFound(t *testing.T) {
	a, st := newTestApp(t)
	r := testRouter(a)

	tests := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/candidates/c1"},
		{http.MethodGet, "/api/candidates/1%27%20or%201=1/notes"},
		{http.MethodPut, "/api/tasks/abc/status"},
		{http.MethodDelete, "/api/notes/n1"},
	}
	for _, tt := range tests {
		w := do(t, r, tt.method, tt.path, nil, userToken(t))
		assert.Equal(t, http.StatusNotFound, w.Code, tt.path)
	}
	st.AssertNotCalled(t, "GetCandidate", mock.Anything, mock.Anything)
}

func TestInternalErrorsAreNotEchoed(t *testing.T) {
	a, st := newTestApp(t)
	st.On("DeleteCandidate", mock.Anything, lovelaceID).
		Return(errors.New(`pq: relation "candidates" does not exist`))

	w := do(t, testRouter(a), http.MethodDelete, "/api/candidates/"+lovelaceID, nil, userToken(t))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decode(t, w)["error"])
	assert.NotContains(t, w.Body.String(), "relation")
}

func TestListCandidates(t *testing.T) {
	a, _ := newTestApp(t)
	seed(a,
		held(lovelaceID, "Lovelace", candidate.StatusNew, false),
		held("c2", "Hopper", candidate.StatusOffer, true),
		held("c3", "Turing", candidate.StatusOffer, false),
	)
	r := testRouter(a)
	tok := userToken(t)

	w := do(t, r, http.MethodGet, "/api/candidates", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, decode(t, w)["count"])

	w = do(t, r, http.MethodGet, "/api/candidates?filter=offer", nil, tok)
	assert.EqualValues(t, 2, decode(t, w)["count"])

	// "new" means not yet opened, regardless of status
	w = do(t, r, http.MethodGet, "/api/candidates?filter=new", nil, tok)
	assert.EqualValues(t, 2, decode(t, w)["count"])

	w = do(t, r, http.MethodGet, "/api/candidates?q=HOP", nil, tok)
	body := decode(t, w)
	require.EqualValues(t, 1, body["count"])
	first := body["candidates"].([]any)[0].(map[string]any)
	assert.Equal(t, "c2", first["id"])

	w = do(t, r, http.MethodGet, "/api/candidates?filter=archived", nil, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStats(t *testing.T) {
	a, _ := newTestApp(t)
	seed(a,
		held(lovelaceID, "Lovelace", candidate.StatusNew, false),
		held("c2", "Hopper", candidate.StatusOffer, true),
		held("c3", "Turing", candidate.StatusOffer, false),
	)
	w := do(t, testRouter(a), http.MethodGet, "/api/candidates/stats", nil, userToken(t))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["new"])
	assert.EqualValues(t, 2, body["offer"])
	assert.EqualValues(t, 0, body["hired"])
}

func TestGetCandidateMarksViewedOnce(t *testing.T) {
	a, st := newTestApp(t)
	seed(a, held(lovelaceID, "Lovelace", candidate.StatusNew, false))
	st.On("MarkViewed", mock.Anything, lovelaceID).Return(nil).Once()
	r := testRouter(a)

	w := do(t, r, http.MethodGet, "/api/candidates/"+lovelaceID, nil, userToken(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["viewed"])

	w = do(t, r, http.MethodGet, "/api/candidates/"+lovelaceID, nil, userToken(t))
	require.Equal(t, http.StatusOK, w.Code)

	c, ok := a.Reconciler.Get(lovelaceID)
	require.True(t, ok)
	assert.True(t, c.Viewed)
	st.AssertNumberOfCalls(t, "MarkViewed", 1)
}

func TestGetCandidateMarkViewedFailureStillServes(t *testing.T) {
	a, st := newTestApp(t)
	seed(a, held(lovelaceID, "Lovelace", candidate.StatusNew, false))
	st.On("MarkViewed", mock.Anything, lovelaceID).Return(errors.New("timeout"))

	w := do(t, testRouter(a), http.MethodGet, "/api/candidates/"+lovelaceID, nil, userToken(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["viewed"])
}

func TestGetCandidateFromStore(t *testing.T) {
	a, st := newTestApp(t)
	st.On("GetCandidate", mock.Anything, curieID).Return(held(curieID, "Curie", candidate.StatusHired, true), nil)
	st.On("GetCandidate", mock.Anything, goneID).Return(candidate.Candidate{}, pgx.ErrNoRows)
	r := testRouter(a)

	w := do(t, r, http.MethodGet, "/api/candidates/"+curieID, nil, userToken(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Curie", decode(t, w)["last_name"])
	_, ok := a.Reconciler.Get(curieID)
	assert.True(t, ok, "fetched row is held")

	w = do(t, r, http.MethodGet, "/api/candidates/"+goneID, nil, userToken(t))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateCandidate(t *testing.T) {
	a, st := newTestApp(t)
	r := testRouter(a)

	w := do(t, r, http.MethodPost, "/api/candidates", map[string]any{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"position":   "Engineer",
		"email":      "not an address",
	}, userToken(t))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", decode(t, w)["field"])
	st.AssertNotCalled(t, "CreateCandidate", mock.Anything, mock.Anything)

	created := held(lovelaceID, "Lovelace", candidate.StatusNew, false)
	st.On("CreateCandidate", mock.Anything, mock.MatchedBy(func(in candidate.CreateInput) bool {
		return in.FirstName == "Ada" && in.RecruiterID == userID
	})).Return(created, nil).Once()

	w = do(t, r, http.MethodPost, "/api/candidates", map[string]any{
		"first_name": "  Ada ",
		"last_name":  "Lovelace",
		"position":   "Engineer",
		"email":      "ada@example.com",
	}, userToken(t))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	_, ok := a.Reconciler.Get(lovelaceID)
	assert.True(t, ok)
	st.AssertExpectations(t)
}

func TestDeleteCandidate(t *testing.T) {
	a, st := newTestApp(t)
	seed(a, held(lovelaceID, "Lovelace", candidate.StatusNew, false))
	st.On("DeleteCandidate", mock.Anything, lovelaceID).Return(nil)

	w := do(t, testRouter(a), http.MethodDelete, "/api/candidates/"+lovelaceID, nil, userToken(t))
	require.Equal(t, http.StatusOK, w.Code)
	_, ok := a.Reconciler.Get(lovelaceID)
	assert.False(t, ok)
}

func TestReloadFailure(t *testing.T) {
	a, st := newTestApp(t)
	seed(a, held(lovelaceID, "Lovelace", candidate.StatusNew, false))
	st.On("ListCandidates", mock.Anything).Return(nil, errors.New("connection refused"))

	w := do(t, testRouter(a), http.MethodPost, "/api/candidates/reload", nil, userToken(t))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Failed to load candidates", decode(t, w)["error"])
	assert.Equal(t, 1, a.Reconciler.Snapshot().Len())
}
