package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-api/internal/auth"
	"quiz-api/internal/models"
	"quiz-api/pkg/cache"
	"quiz-api/pkg/database/dbtest"
	"quiz-api/pkg/websocket"
)

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c client) do(method, path string, body interface{}) (*http.Response, []byte) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	out.ReadFrom(resp.Body)
	return resp, out.Bytes()
}

func (c client) expect(method, path string, body interface{}, status int, into interface{}) {
	c.t.Helper()
	resp, raw := c.do(method, path, body)
	if resp.StatusCode != status {
		c.t.Fatalf("%s %s = %d, want %d: %s", method, path, resp.StatusCode, status, raw)
	}
	if into != nil {
		if err := json.Unmarshal(raw, into); err != nil {
			c.t.Fatalf("decode %s: %v", raw, err)
		}
	}
}

func login(t *testing.T, base, username, password string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	resp, err := http.PostForm(base+"/api/token", form)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token for %s = %d", username, resp.StatusCode)
	}
	var tok models.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if tok.TokenType != "bearer" || tok.AccessToken == "" {
		t.Fatalf("token response = %+v", tok)
	}
	return tok.AccessToken
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := dbtest.Open(t)
	authService := auth.NewService(auth.NewRepository(db), "secret", time.Hour)
	ctx := context.Background()
	if _, err := authService.EnsureUser(ctx, "admin", "admin", true); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if _, err := authService.EnsureUser(ctx, "alice", "pw", false); err != nil {
		t.Fatalf("alice: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	hubCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	hub := websocket.NewHub(authService.Authorizer())
	go hub.Run(hubCtx)

	srv := httptest.NewServer(New(Deps{
		DB:             db,
		Auth:           authService,
		Cache:          cache.NewRedisCache(cache.NewClient(mr.Addr(), "", 0), time.Minute),
		Hub:            hub,
		AllowedOrigins: []string{"*"},
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQuizFlow(t *testing.T) {
	srv := newTestServer(t)
	anon := client{t: t, base: srv.URL}

	resp, _ := anon.do(http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %d", resp.StatusCode)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatalf("missing request id header")
	}
	resp, _ = anon.do(http.MethodGet, "/api/quiz", nil)
	if resp.StatusCode != http.StatusUnauthorized || resp.Header.Get("WWW-Authenticate") != "Bearer" {
		t.Fatalf("anonymous quiz list = %d %q", resp.StatusCode, resp.Header.Get("WWW-Authenticate"))
	}

	admin := client{t: t, base: srv.URL, token: login(t, srv.URL, "admin", "admin")}
	alice := client{t: t, base: srv.URL, token: login(t, srv.URL, "alice", "pw")}

	var me models.User
	alice.expect(http.MethodGet, "/api/users/me", nil, http.StatusOK, &me)
	if me.Username != "alice" || me.IsAdmin {
		t.Fatalf("me = %+v", me)
	}

	for _, path := range []string{"/api/users/me/", "/api/user/me", "/api/user/me/"} {
		var again models.User
		alice.expect(http.MethodGet, path, nil, http.StatusOK, &again)
		if again.ID != me.ID {
			t.Fatalf("%s = %+v", path, again)
		}
	}
	alice.expect(http.MethodGet, "/api/user", nil, http.StatusForbidden, nil)
	alice.expect(http.MethodGet, "/api/user/"+strconv.Itoa(int(me.ID)), nil, http.StatusForbidden, nil)
	var users []models.User
	admin.expect(http.MethodGet, "/api/user", nil, http.StatusOK, &users)
	if len(users) != 2 {
		t.Fatalf("users = %+v", users)
	}

	alice.expect(http.MethodPost, "/api/quiz", map[string]interface{}{"title": "nope"}, http.StatusForbidden, nil)

	var quiz models.Quiz
	admin.expect(http.MethodPost, "/api/quiz", map[string]interface{}{"title": "Go basics"}, http.StatusCreated, &quiz)

	var question models.SingleChoiceQuestion
	admin.expect(http.MethodPost, "/api/single_choice_question", map[string]interface{}{
		"quiz_id": quiz.ID, "title": "Keyword for goroutines", "correct_index": 1, "difficulty": "medium",
	}, http.StatusCreated, &question)
	for i, text := range []string{"async", "go", "spawn"} {
		admin.expect(http.MethodPost, "/api/single_choice_option", map[string]interface{}{
			"question_id": question.ID, "text": text, "index": i,
		}, http.StatusCreated, nil)
	}
	alice.expect(http.MethodPost, "/api/single_choice_option", map[string]interface{}{
		"question_id": question.ID, "text": "x", "index": 3,
	}, http.StatusForbidden, nil)

	var loaded models.Quiz
	alice.expect(http.MethodGet, "/api/quiz/"+strconv.Itoa(int(quiz.ID)), nil, http.StatusOK, &loaded)
	if len(loaded.SingleChoiceQuestions) != 1 || len(loaded.SingleChoiceQuestions[0].Options) != 3 {
		t.Fatalf("loaded quiz = %+v", loaded)
	}

	submission := map[string]interface{}{
		"single_choice_answers": []map[string]interface{}{{"question_id": question.ID, "selected_index": 1}},
	}
	submitPath := "/api/quiz/" + strconv.Itoa(int(quiz.ID)) + "/submit"
	anon.expect(http.MethodPost, submitPath, submission, http.StatusUnauthorized, nil)

	var res models.Result
	alice.expect(http.MethodPost, submitPath, submission, http.StatusCreated, &res)
	if res.Score != 2 || res.MaxScore != 2 || len(res.SingleChoiceAnswers) != 1 {
		t.Fatalf("result = %+v", res)
	}

	var board []models.LeaderboardEntry
	alice.expect(http.MethodGet, "/api/quiz/"+strconv.Itoa(int(quiz.ID))+"/leaderboard", nil, http.StatusOK, &board)
	if len(board) != 1 || board[0].Username != "alice" || board[0].Score != 2 {
		t.Fatalf("leaderboard = %+v", board)
	}

	admin.expect(http.MethodDelete, "/api/single_choice_question/"+strconv.Itoa(int(question.ID)), nil, http.StatusConflict, nil)

	var errBody struct {
		Detail string            `json:"detail"`
		Fields map[string]string `json:"fields"`
	}
	admin.expect(http.MethodPost, "/api/single_choice_question", map[string]interface{}{"quiz_id": quiz.ID}, http.StatusUnprocessableEntity, &errBody)
	if len(errBody.Fields) == 0 {
		t.Fatalf("validation error without fields: %+v", errBody)
	}

	var deleted uint
	admin.expect(http.MethodDelete, "/api/quiz/"+strconv.Itoa(int(quiz.ID)), nil, http.StatusOK, &deleted)
	if deleted != quiz.ID {
		t.Fatalf("deleted id = %d", deleted)
	}
	alice.expect(http.MethodGet, "/api/quiz/"+strconv.Itoa(int(quiz.ID)), nil, http.StatusNotFound, nil)
	alice.expect(http.MethodGet, "/api/result", nil, http.StatusOK, &[]models.Result{})
}

func TestUnknownRouteIsJSON(t *testing.T) {
	srv := newTestServer(t)
	resp, raw := client{t: t, base: srv.URL}.do(http.MethodGet, "/nope", nil)
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(string(raw), "detail") {
		t.Fatalf("unknown route = %d %s", resp.StatusCode, raw)
	}
}

func TestRecovererAnswers500(t *testing.T) {
	h := requestLog(recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) != "abc" {
		t.Fatalf("request id not echoed: %q", rec.Header().Get(requestIDHeader))
	}
}
