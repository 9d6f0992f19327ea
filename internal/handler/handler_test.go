package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/interviewer/internal/evaluator"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/profile"
	"github.com/pavelanni/interviewer/internal/questions"
	"github.com/pavelanni/interviewer/internal/session"
	"github.com/pavelanni/interviewer/internal/store"
)

type testServer struct {
	st  *store.Store
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	eval := evaluator.New(nil)
	mgr := session.New(st, questions.NewSource(nil), eval)
	h := New(mgr, profile.New(st), eval, st)
	h.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

	srv := httptest.NewServer(h.Router("en"))
	t.Cleanup(srv.Close)
	return &testServer{st: st, srv: srv}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header ...string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *testServer) createUser(t *testing.T) int64 {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/users", createUserRequest{
		Name:            "Ada",
		Email:           "ada@example.com",
		Domain:          "Software Engineering",
		ExperienceLevel: model.LevelIntermediate,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[model.User](t, resp).ID
}

func TestCreateAndGetUser(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createUser(t)

	resp := ts.do(t, http.MethodGet, fmt.Sprintf("/users/%d", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	u := decode[model.User](t, resp)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, model.LevelIntermediate, u.ExperienceLevel)
}

func TestCreateUserErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"unsupported domain", createUserRequest{Name: "Bob", Domain: "Astrology", ExperienceLevel: model.LevelBeginner}, http.StatusBadRequest},
		{"bad level", createUserRequest{Name: "Bob", Domain: "Sales", ExperienceLevel: "Guru"}, http.StatusBadRequest},
		{"duplicate email", createUserRequest{Name: "Bob", Email: "ada@example.com", Domain: "Sales", ExperienceLevel: model.LevelBeginner}, http.StatusBadRequest},
		{"not json", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/users", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, decode[errorResponse](t, resp).Error)
		})
	}
}

func TestUnknownResources(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/users/99", "/users/99/analytics", "/sessions/99"} {
		resp := ts.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
	resp := ts.do(t, http.MethodGet, "/sessions/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionFlow(t *testing.T) {
	ts := newTestServer(t)
	userID := ts.createUser(t)

	resp := ts.do(t, http.MethodPost, "/sessions", map[string]any{
		"user_id":     userID,
		"domain":      "Software Engineering",
		"preferences": map[string]any{"num_questions": 2},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	start := decode[session.StartResult](t, resp)
	require.Equal(t, 2, start.TotalQuestions)
	assert.NotEmpty(t, start.Question.Text)
	base := fmt.Sprintf("/sessions/%d", start.SessionID)

	answer := map[string]string{"answer": "I would design a REST API with clear resources, pagination and caching."}
	resp = ts.do(t, http.MethodPost, base+"/answers", answer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[session.AnswerResult](t, resp)
	assert.False(t, first.Completed)
	require.NotNil(t, first.NextQuestion)
	assert.Equal(t, 0.5, first.Progress)

	resp = ts.do(t, http.MethodPost, base+"/pause", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = ts.do(t, http.MethodPost, base+"/pause", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = ts.do(t, http.MethodPost, base+"/answers", answer)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, base+"/resume", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resumed := decode[session.ResumeResult](t, resp)
	assert.Equal(t, 2, resumed.QuestionNumber)

	resp = ts.do(t, http.MethodPost, base+"/answers", answer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	last := decode[session.AnswerResult](t, resp)
	assert.True(t, last.Completed)
	require.NotNil(t, last.Summary)
	assert.Equal(t, 2, last.Summary.TotalQuestions)

	resp = ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusCompleted, decode[model.Session](t, resp).Status)

	resp = ts.do(t, http.MethodPost, base+"/answers", answer)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = ts.do(t, http.MethodPost, base+"/end", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/users/%d/analytics", userID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	a := decode[analyticsResponse](t, resp)
	assert.Equal(t, 1, a.TotalSessions)
	assert.NotEmpty(t, a.Recommendations)
}

func TestStartSessionValidation(t *testing.T) {
	ts := newTestServer(t)
	userID := ts.createUser(t)

	resp := ts.do(t, http.MethodPost, "/sessions", map[string]any{
		"user_id":     userID,
		"domain":      "Software Engineering",
		"preferences": map[string]any{"num_questions": 11},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/sessions", map[string]any{
		"user_id": 12345,
		"domain":  "Software Engineering",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEndEarly(t *testing.T) {
	ts := newTestServer(t)
	userID := ts.createUser(t)

	resp := ts.do(t, http.MethodPost, "/sessions", map[string]any{"user_id": userID, "domain": "Design"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	start := decode[session.StartResult](t, resp)

	base := fmt.Sprintf("/sessions/%d", start.SessionID)

	resp = ts.do(t, http.MethodPost, base+"/answers", map[string]string{"answer": "I start every design with user research and sketches."})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, base+"/end", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[session.EndResult](t, resp)
	assert.Equal(t, model.StatusEndedEarly, res.Status)
	require.NotNil(t, res.Partial)
	assert.Equal(t, 1, res.Partial.QuestionsAnswered)
	assert.Equal(t, model.DefaultQuestionsPerRun, res.Partial.TotalQuestions)

	resp = ts.do(t, http.MethodPost, base+"/end", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEndWithoutAnswersCancels(t *testing.T) {
	ts := newTestServer(t)
	userID := ts.createUser(t)

	resp := ts.do(t, http.MethodPost, "/sessions", map[string]any{"user_id": userID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	start := decode[session.StartResult](t, resp)

	resp = ts.do(t, http.MethodPost, fmt.Sprintf("/sessions/%d/end", start.SessionID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[session.EndResult](t, resp)
	assert.Equal(t, model.StatusCancelled, res.Status)
	assert.Nil(t, res.Partial)
}

func TestEvaluateBatch(t *testing.T) {
	ts := newTestServer(t)
	q := model.Question{Text: "Explain caching.", Type: model.TypeTechnical, Keywords: []string{"cache", "latency"}}

	resp := ts.do(t, http.MethodPost, "/evaluate", evaluateRequest{Items: []evaluator.Item{
		{Question: q, Answer: "A cache keeps hot data close to reduce latency for repeated reads."},
		{Question: q, Answer: "no"},
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[evaluateResponse](t, resp).Evaluations
	require.Len(t, got, 2)
	assert.Greater(t, got[0].Overall, got[1].Overall)

	resp = ts.do(t, http.MethodPost, "/evaluate", evaluateRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminAuth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/admin/sessions", nil, "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	hash, err := HashAdminKey("secret")
	require.NoError(t, err)
	require.NoError(t, ts.st.SetAdminKeyHash(hash))

	resp = ts.do(t, http.MethodGet, "/admin/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")

	resp = ts.do(t, http.MethodGet, "/admin/sessions", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/admin/sessions", nil, "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]model.SessionRecord](t, resp))
}

func TestAdminExport(t *testing.T) {
	ts := newTestServer(t)
	userID := ts.createUser(t)
	resp := ts.do(t, http.MethodPost, "/sessions", map[string]any{"user_id": userID, "domain": "Sales"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	hash, err := HashAdminKey("secret")
	require.NoError(t, err)
	require.NoError(t, ts.st.SetAdminKeyHash(hash))

	resp = ts.do(t, http.MethodGet, "/admin/export", nil, "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	exp := decode[model.InterviewExport](t, resp)
	assert.Equal(t, 1, exp.NumSessions)
	assert.Equal(t, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), exp.GeneratedAt)
	require.Len(t, exp.Results, 1)
	assert.Equal(t, "Ada", exp.Results[0].UserName)
}

func TestLocalizedFeedback(t *testing.T) {
	ts := newTestServer(t)
	q := model.Question{Text: "Explain caching.", Type: model.TypeTechnical, Keywords: []string{"cache"}}

	en := decode[evaluateResponse](t, ts.do(t, http.MethodPost, "/evaluate",
		evaluateRequest{Items: []evaluator.Item{{Question: q, Answer: "no"}}}))
	ru := decode[evaluateResponse](t, ts.do(t, http.MethodPost, "/evaluate",
		evaluateRequest{Items: []evaluator.Item{{Question: q, Answer: "no"}}}, "Accept-Language", "ru"))
	require.Len(t, en.Evaluations, 1)
	require.Len(t, ru.Evaluations, 1)
	assert.NotEqual(t, en.Evaluations[0].Feedback, ru.Evaluations[0].Feedback)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
