package ginserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gin "github.com/gin-gonic/gin"

	"roomchat/internal/app/dto"
	"roomchat/internal/app/queries"
	authsvc "roomchat/internal/app/services/auth"
	"roomchat/internal/domain/conversation"
	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
	"roomchat/internal/infra/config"
	"roomchat/internal/infra/obs"
)

type queryBusFunc func(ctx context.Context, q queries.Query) (any, error)

func (f queryBusFunc) Ask(ctx context.Context, q queries.Query) (any, error) { return f(ctx, q) }

func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		setPrincipal(c, principal{ID: id, Token: "tok"})
		c.Next()
	}
}

func newTestRouter(bus queries.Bus, auth gin.HandlerFunc) *gin.Engine {
	return NewRouter(
		config.Config{Env: "test"},
		obs.Middleware{},
		obs.HealthHandlers{},
		Handlers{
			Conversations:  ConversationHandler{Queries: bus},
			Users:          UserHandler{Queries: bus},
			AuthMiddleware: auth,
		},
	)
}

func TestHomeRequiresAuthentication(t *testing.T) {
	called := false
	bus := queryBusFunc(func(context.Context, queries.Query) (any, error) {
		called = true
		return nil, nil
	})
	w := httptest.NewRecorder()
	newTestRouter(bus, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/home", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if called {
		t.Fatalf("query bus must not be reached without a principal")
	}
	if !strings.Contains(w.Body.String(), "auth required") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestHomeRendersSummaries(t *testing.T) {
	bus := queryBusFunc(func(_ context.Context, q queries.Query) (any, error) {
		return []dto.ConversationSummary{{
			ID: "u2", Name: "Bob", LastMessage: "hi", Timestamp: "09:05", Avatar: "/a.png",
			Email: "bob@example.com", Phone: "555", Location: "Oslo", LastSeen: "09:30",
		}}, nil
	})
	w := httptest.NewRecorder()
	newTestRouter(bus, asUser("u1")).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/home", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	want := `[{"id":"u2","name":"Bob","lastMessage":"hi","timestamp":"09:05","avatar":"/a.png","unread":false,"email":"bob@example.com","phone":"555","location":"Oslo","lastSeen":"09:30"}]`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Fatalf("body = %s\nwant   %s", got, want)
	}
}

func TestHomeRendersEmptyArray(t *testing.T) {
	bus := queryBusFunc(func(context.Context, queries.Query) (any, error) { return nil, nil })
	w := httptest.NewRecorder()
	newTestRouter(bus, asUser("u1")).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/home", nil))

	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Fatalf("body = %s, want []", got)
	}
}

func TestHomeHidesInternalErrors(t *testing.T) {
	bus := queryBusFunc(func(context.Context, queries.Query) (any, error) {
		return nil, errors.New("connection reset by peer")
	})
	w := httptest.NewRecorder()
	newTestRouter(bus, asUser("u1")).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/home", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection reset") {
		t.Fatalf("internal error leaked: %s", w.Body.String())
	}
}

func TestSearchPassesQuery(t *testing.T) {
	var seen string
	bus := queryBusFunc(func(_ context.Context, q queries.Query) (any, error) {
		seen = fmt.Sprintf("%+v", q)
		return nil, nil
	})
	w := httptest.NewRecorder()
	newTestRouter(bus, asUser("u1")).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?query=bo", nil))

	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(seen, "Query:bo") || !strings.Contains(seen, "Requester:u1") {
		t.Fatalf("unexpected query %s", seen)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{conversation.ErrUnauthenticated, http.StatusUnauthorized},
		{authsvc.ErrInvalidCredentials, http.StatusUnauthorized},
		{domainroom.ErrNotParticipant, http.StatusForbidden},
		{fmt.Errorf("load: %w", domainroom.ErrNotFound), http.StatusNotFound},
		{domainuser.ErrNotFound, http.StatusNotFound},
		{domainuser.ErrEmailAlreadyUsed, http.StatusConflict},
		{domainroom.ErrTextTooLong, http.StatusBadRequest},
		{queries.ErrNilBus, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"Bearer abc":    "abc",
		"bearer  xyz  ": "xyz",
		"Basic abc":     "",
	}
	for header, want := range cases {
		if got := extractBearerToken(header); got != want {
			t.Errorf("extractBearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
