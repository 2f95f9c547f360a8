package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"roomchat/internal/app/dto"
	"roomchat/internal/app/uow"
	"roomchat/internal/infra/config"
	ginserver "roomchat/internal/infra/http/gin"
	"roomchat/internal/infra/obs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(driver, dsn string) config.Config {
	return config.Config{
		Env:            "test",
		DBDriver:       driver,
		DBDSN:          dsn,
		Timezone:       "UTC",
		BcryptCost:     4,
		SessionTTL:     time.Hour,
		IdempotencyTTL: time.Hour,
	}
}

func newTestRouter(t *testing.T, cfg config.Config) (*gin.Engine, *infrastructure) {
	t.Helper()
	logger := testLogger()
	infra, err := buildInfrastructure(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("buildInfrastructure: %v", err)
	}
	t.Cleanup(func() { infra.close(logger) })
	app := buildApplication(cfg, logger, infra)
	return ginserver.NewRouter(cfg, obs.Middleware{}, obs.HealthHandlers{Checks: infra.checks}, app.handlers), infra
}

type client struct {
	t      *testing.T
	router http.Handler
}

func (c client) do(method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body %s", w.Code, want, w.Body.String())
	}
}

func register(t *testing.T, c client, email, name, phone string) dto.AuthResponse {
	t.Helper()
	w := c.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "name": name, "password": "correct horse", "phone": phone, "location": "Oslo",
	}, nil)
	expectStatus(t, w, http.StatusCreated)
	return decode[dto.AuthResponse](t, w)
}

func TestChatFlow(t *testing.T) {
	drivers := map[string]config.Config{
		"memory": testConfig("memory", ""),
		"sqlite": testConfig("sqlite", "file:chatflow?mode=memory&cache=shared"),
	}
	for name, cfg := range drivers {
		t.Run(name, func(t *testing.T) {
			router, _ := newTestRouter(t, cfg)
			runChatFlow(t, client{t: t, router: router})
		})
	}
}

func runChatFlow(t *testing.T, c client) {
	expectStatus(t, c.do(http.MethodGet, "/home", "", nil, nil), http.StatusUnauthorized)

	alice := register(t, c, "alice@example.com", "Alice", "555-0100")
	bob := register(t, c, "bob@example.com", "Bob", "555-0101")
	carol := register(t, c, "carol@example.com", "Carol", "")

	w := c.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "ALICE@example.com", "name": "Dup", "password": "whatever1"}, nil)
	expectStatus(t, w, http.StatusConflict)

	empty := c.do(http.MethodGet, "/home", alice.Token, nil, nil)
	expectStatus(t, empty, http.StatusOK)
	if strings.TrimSpace(empty.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", empty.Body.String())
	}

	w = c.do(http.MethodPost, "/api/v1/rooms", alice.Token, map[string]any{"participant_ids": []string{bob.User.ID}}, nil)
	expectStatus(t, w, http.StatusCreated)
	direct := decode[dto.Room](t, w)

	w = c.do(http.MethodPost, "/api/v1/rooms", alice.Token, map[string]any{"participant_ids": []string{bob.User.ID}}, nil)
	expectStatus(t, w, http.StatusCreated)
	if again := decode[dto.Room](t, w); again.ID != direct.ID {
		t.Fatalf("direct room not reused: %s vs %s", again.ID, direct.ID)
	}
	expectStatus(t, c.do(http.MethodPost, "/api/v1/rooms", alice.Token, map[string]any{"participant_ids": []string{}}, nil), http.StatusBadRequest)
	expectStatus(t, c.do(http.MethodPost, "/api/v1/rooms", alice.Token, map[string]any{"participant_ids": []string{"ghost"}}, nil), http.StatusNotFound)

	w = c.do(http.MethodPost, "/api/v1/rooms", alice.Token, map[string]any{"participant_ids": []string{bob.User.ID, carol.User.ID}, "name": "trio"}, nil)
	expectStatus(t, w, http.StatusCreated)
	group := decode[dto.Room](t, w)

	postPath := "/api/v1/rooms/" + direct.ID + "/messages"
	key := map[string]string{"Idempotency-Key": "msg-1"}
	w = c.do(http.MethodPost, postPath, alice.Token, map[string]string{"text": "hi"}, key)
	expectStatus(t, w, http.StatusCreated)
	first := decode[dto.ChatMessage](t, w)
	w = c.do(http.MethodPost, postPath, alice.Token, map[string]string{"text": "hi"}, key)
	expectStatus(t, w, http.StatusCreated)
	if replay := decode[dto.ChatMessage](t, w); replay.ID != first.ID {
		t.Fatalf("idempotent replay returned %s, want %s", replay.ID, first.ID)
	}
	expectStatus(t, c.do(http.MethodPost, postPath, carol.Token, map[string]string{"text": "let me in"}, nil), http.StatusForbidden)
	expectStatus(t, c.do(http.MethodPost, postPath, alice.Token, map[string]string{"text": "   "}, nil), http.StatusBadRequest)
	expectStatus(t, c.do(http.MethodPost, "/api/v1/rooms/nope/messages", alice.Token, map[string]string{"text": "x"}, nil), http.StatusNotFound)

	w = c.do(http.MethodGet, postPath+"?limit=10", bob.Token, nil, nil)
	expectStatus(t, w, http.StatusOK)
	if list := decode[dto.ChatMessageList](t, w); len(list.Items) != 1 || list.Items[0].Text != "hi" {
		t.Fatalf("unexpected history: %+v", list)
	}
	expectStatus(t, c.do(http.MethodGet, postPath, carol.Token, nil, nil), http.StatusForbidden)

	w = c.do(http.MethodGet, "/home", alice.Token, nil, nil)
	expectStatus(t, w, http.StatusOK)
	raw := decode[[]json.RawMessage](t, w)
	if len(raw) != 3 {
		t.Fatalf("expected 3 summaries, got %s", w.Body.String())
	}
	assertFieldOrder(t, string(raw[0]))
	summaries := decode[[]dto.ConversationSummary](t, w)
	wantStamp := first.CreatedAt.UTC().Format("15:04")
	if s := summaries[0]; s.ID != bob.User.ID || s.LastMessage != "hi" || s.Timestamp != wantStamp || s.Unread || s.Phone != "555-0101" {
		t.Fatalf("unexpected direct summary: %+v", s)
	}
	if s := summaries[1]; s.ID != bob.User.ID || s.LastMessage != "No messages yet" || s.Avatar != "/images/default-avatar.png" {
		t.Fatalf("unexpected group summary for bob: %+v", s)
	}
	if s := summaries[2]; s.ID != carol.User.ID || s.Name != "Carol" {
		t.Fatalf("unexpected group summary for carol: %+v", s)
	}

	w = c.do(http.MethodGet, "/api/v1/conversations", carol.Token, nil, nil)
	expectStatus(t, w, http.StatusOK)
	carolView := decode[[]dto.ConversationSummary](t, w)
	if len(carolView) != 2 || carolView[0].ID != alice.User.ID || carolView[1].ID != bob.User.ID {
		t.Fatalf("unexpected carol view: %+v", carolView)
	}
	_ = group

	w = c.do(http.MethodGet, "/search?query=CAR", alice.Token, nil, nil)
	expectStatus(t, w, http.StatusOK)
	if found := decode[[]dto.UserProfile](t, w); len(found) != 1 || found[0].ID != carol.User.ID {
		t.Fatalf("unexpected search result: %+v", found)
	}
	w = c.do(http.MethodGet, "/api/v1/users/search", alice.Token, nil, nil)
	expectStatus(t, w, http.StatusOK)
	if all := decode[[]dto.UserProfile](t, w); len(all) != 3 {
		t.Fatalf("empty query should list every user, got %d", len(all))
	}

	w = c.do(http.MethodGet, "/me", bob.Token, nil, nil)
	expectStatus(t, w, http.StatusOK)
	if me := decode[dto.UserProfile](t, w); me.ID != bob.User.ID || me.Email != "bob@example.com" {
		t.Fatalf("unexpected profile: %+v", me)
	}

	w = c.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong password"}, nil)
	expectStatus(t, w, http.StatusUnauthorized)
	w = c.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "alice@example.com", "password": "correct horse"}, nil)
	expectStatus(t, w, http.StatusOK)

	expectStatus(t, c.do(http.MethodPost, "/api/v1/auth/logout", alice.Token, nil, nil), http.StatusNoContent)
	expectStatus(t, c.do(http.MethodGet, "/home", alice.Token, nil, nil), http.StatusUnauthorized)

	expectStatus(t, c.do(http.MethodPut, "/api/v1/me/avatar", bob.Token, nil, nil), http.StatusBadRequest)
}

func assertFieldOrder(t *testing.T, object string) {
	t.Helper()
	fields := []string{"id", "name", "lastMessage", "timestamp", "avatar", "unread", "email", "phone", "location", "lastSeen"}
	last := -1
	for _, f := range fields {
		idx := strings.Index(object, `"`+f+`":`)
		if idx <= last {
			t.Fatalf("field %q out of order in %s", f, object)
		}
		last = idx
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, testConfig("sqlite", "file:health?mode=memory&cache=shared"))
	c := client{t: t, router: router}
	expectStatus(t, c.do(http.MethodGet, "/livez", "", nil, nil), http.StatusOK)
	expectStatus(t, c.do(http.MethodGet, "/readyz", "", nil, nil), http.StatusOK)
	c.do(http.MethodGet, "/home", "", nil, nil)
	w := c.do(http.MethodGet, "/metrics", "", nil, nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "roomchat_http_requests_total") {
		t.Fatalf("metrics missing request counter")
	}
}

func TestLoadFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.json")
	data := `{
  "users": [
    {"id": "u1", "email": "ann@example.com", "name": "Ann", "password": "secret-pass", "last_activity_at": "2024-05-01T08:15:00Z"},
    {"id": "u2", "email": "ben@example.com", "name": "Ben", "avatar": "https://cdn.example.com/ben.png"},
    {"id": "bad", "email": "", "name": "Nobody"}
  ],
  "rooms": [
    {"id": "r1", "members": ["u1", "u2"], "created_at": "2024-05-01T08:00:00Z",
     "messages": [{"id": "m1", "author": "u2", "text": "morning", "created_at": "2024-05-01T09:30:00Z"}]},
    {"id": "r2", "members": ["u1"]}
  ]
}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write fixtures: %v", err)
	}
	infra, err := buildInfrastructure(context.Background(), testConfig("memory", ""), testLogger())
	if err != nil {
		t.Fatalf("buildInfrastructure: %v", err)
	}
	if err := loadFixtures(context.Background(), infra.uowFactory, path, testLogger()); err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	unit, err := infra.uowFactory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	rooms, err := unit.Rooms().ListForParticipant(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListForParticipant: %v", err)
	}
	if len(rooms) != 1 || rooms[0].LastMessage == nil || rooms[0].LastMessage.Text != "morning" {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}
	ann, err := unit.Users().ByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if ann.LastActivityAt.Format(time.RFC3339) != "2024-05-01T08:15:00Z" {
		t.Fatalf("last activity = %v", ann.LastActivityAt)
	}
	if err := loadFixtures(context.Background(), infra.uowFactory, filepath.Join(t.TempDir(), "missing.json"), testLogger()); err != nil {
		t.Fatalf("missing file should be skipped: %v", err)
	}
}
