package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"progress-service/internal/app"
	"progress-service/internal/domain"
	"progress-service/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const attemptID = "3f1c7a52-8d2e-4b6f-9a41-0c5e7d9b2a10"

func newTestRouter(t *testing.T) (http.Handler, *memory.Store) {
	return newTestRouterWithLimit(t, 0)
}

func newTestRouterWithLimit(t *testing.T, maxAnswerLength int) (http.Handler, *memory.Store) {
	t.Helper()
	clock := func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	store := memory.NewStoreWithClock(memory.SampleContent(), clock)
	submissions := app.NewSubmissionService(store, app.EngineConfig{MaxAnswerLength: maxAnswerLength}, nil)
	catalog := app.NewCatalogService(store, memory.NewLessonRepository(store, time.Minute), 0)
	h := NewHandler(submissions, catalog, memory.DefaultUserID, maxAnswerLength, nil)
	ws := NewWSHandler(submissions, catalog, memory.DefaultUserID, maxAnswerLength, nil)
	return NewRouter(h, ws), store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func lessonOneSubmission() map[string]any {
	return map[string]any{
		"attempt_id": attemptID,
		"answers": []map[string]any{
			{"problem_id": 1, "option_id": 2},
			{"problem_id": 2, "value": " 15 "},
			{"problem_id": 3, "option_id": 4},
		},
	}
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestListLessonsWithoutProgress(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/lessons", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var lessons []domain.LessonOverview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lessons))
	require.Len(t, lessons, 3)
	assert.Equal(t, "Addition Basics", lessons[0].Title)
	assert.Equal(t, domain.ProgressSummary{SolvedCount: 0, TotalCount: 3}, lessons[0].Progress)
}

func TestGetLessonHidesAnswers(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/lessons/1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "is_correct")
	assert.NotContains(t, rec.Body.String(), "answer_text")

	rec = doJSON(t, router, http.MethodGet, "/api/lessons/99", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/lessons/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitLessonAndReplay(t *testing.T) {
	router, store := newTestRouter(t)

	first := doJSON(t, router, http.MethodPost, "/api/lessons/1/submit", lessonOneSubmission(), nil)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	var res domain.SubmissionResult
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &res))
	assert.Equal(t, attemptID, res.AttemptID)
	assert.Equal(t, int64(20), res.XPGained)
	assert.Equal(t, int64(20), res.TotalXP)
	assert.Equal(t, domain.StreakSummary{Current: 1, Best: 1, Change: domain.StreakIncremented}, res.Streak)
	assert.Equal(t, domain.ProgressSummary{SolvedCount: 2, TotalCount: 3, Percent: 67}, res.LessonProgress)
	require.Len(t, res.Results, 3)
	require.NotNil(t, res.Results[1].YourAnswer.Text)
	assert.Equal(t, "15", *res.Results[1].YourAnswer.Text)
	assert.False(t, res.Results[2].Correct)

	second := doJSON(t, router, http.MethodPost, "/api/lessons/1/submit", lessonOneSubmission(), nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, store.SubmissionCount())
}

func TestSubmitLessonUppercaseAttemptIDReplays(t *testing.T) {
	router, store := newTestRouter(t)

	body := lessonOneSubmission()
	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/lessons/1/submit", body, nil).Code)
	body["attempt_id"] = "3F1C7A52-8D2E-4B6F-9A41-0C5E7D9B2A10"
	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/lessons/1/submit", body, nil).Code)
	assert.Equal(t, 1, store.SubmissionCount())
}

func TestSubmitValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	cases := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"malformed json", "/api/lessons/1/submit", "{", http.StatusBadRequest},
		{"bad lesson id", "/api/lessons/0/submit", lessonOneSubmission(), http.StatusBadRequest},
		{"non uuid attempt", "/api/lessons/1/submit", map[string]any{
			"attempt_id": "nope",
			"answers":    []map[string]any{{"problem_id": 1, "option_id": 2}},
		}, http.StatusUnprocessableEntity},
		{"empty answers", "/api/practice/submit", map[string]any{
			"attempt_id": attemptID,
			"answers":    []map[string]any{},
		}, http.StatusUnprocessableEntity},
		{"value too long", "/api/lessons/1/submit", map[string]any{
			"attempt_id": attemptID,
			"answers":    []map[string]any{{"problem_id": 2, "value": string(bytes.Repeat([]byte("9"), 65))}},
		}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, tc.path, tc.body, nil)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestSubmitHonoursConfiguredAnswerLength(t *testing.T) {
	value := strings.Repeat("9", 70)
	body := map[string]any{
		"attempt_id": attemptID,
		"answers":    []map[string]any{{"problem_id": 2, "value": value}},
	}

	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/lessons/1/submit", body, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	router, store := newTestRouterWithLimit(t, 80)
	rec = doJSON(t, router, http.MethodPost, "/api/lessons/1/submit", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res domain.SubmissionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Results, 1)
	assert.False(t, res.Results[0].Correct)
	assert.Equal(t, 1, store.SubmissionCount())
}

func TestUserHeaderIsCaseInsensitive(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, name := range []string{"X-User-ID", "x-user-id", "X-User-Id"} {
		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		req.Header.Set(name, "999")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, name)
	}
}

func TestSubmitDomainErrors(t *testing.T) {
	router, store := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/lessons/99/submit", lessonOneSubmission(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/lessons/1/submit", map[string]any{
		"attempt_id": attemptID,
		"answers":    []map[string]any{{"problem_id": 4, "value": "5"}},
	}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.ProblemID)
	assert.Equal(t, int64(4), *body.ProblemID)
	assert.Equal(t, 0, store.SubmissionCount())
}

func TestUserHeader(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/profile", nil, http.Header{UserHeader: {"999"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/profile", nil, http.Header{UserHeader: {"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/profile", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile domain.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, domain.Profile{}, profile)
}

func TestPracticeFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/practice/adaptive", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var batch struct {
		Problems []domain.PublicProblem `json:"problems"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	require.Len(t, batch.Problems, 5)
	assert.Equal(t, int64(1), batch.Problems[0].ID)

	rec = doJSON(t, router, http.MethodPost, "/api/practice/submit", map[string]any{
		"attempt_id": attemptID,
		"answers": []map[string]any{
			{"problem_id": 4, "value": "5"},
			{"problem_id": 7, "option_id": 10},
		},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res domain.SubmissionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Nil(t, res.LessonID)
	assert.Equal(t, int64(10), res.XPGained)
	assert.Equal(t, domain.ProgressSummary{SolvedCount: 1, TotalCount: 2, Percent: 50}, res.LessonProgress)
	require.Len(t, res.Results, 2)
	require.NotNil(t, res.Results[0].LessonID)
	assert.Equal(t, int64(2), *res.Results[0].LessonID)

	rec = doJSON(t, router, http.MethodGet, "/api/practice/adaptive", nil, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	for _, p := range batch.Problems {
		assert.NotEqual(t, int64(4), p.ID, "solved problems come last")
	}
}
