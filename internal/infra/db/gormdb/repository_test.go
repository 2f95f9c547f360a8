package gormdb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"roomchat/internal/app/uow"
	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
)

func openTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	client, err := Open("sqlite", dsn, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func saveUser(t *testing.T, repo *UserRepository, id, name, email string, created time.Time) {
	t.Helper()
	u, err := domainuser.NewUser(domainuser.CreateParams{ID: domainuser.ID(id), Email: email, Name: name, PasswordHash: "hash", CreatedAt: created})
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if err := repo.Save(context.Background(), u); err != nil {
		t.Fatalf("Save user %s: %v", id, err)
	}
}

func TestUserRepository(t *testing.T) {
	client := openTestClient(t)
	repo := NewUserRepository(client.DB)
	ctx := context.Background()
	base := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	saveUser(t, repo, "a", "Alice", "alice@example.com", base)
	saveUser(t, repo, "b", "Bob_Builder", "bob@corp.io", base.Add(time.Minute))

	got, err := repo.ByEmail(ctx, " ALICE@example.com ")
	if err != nil || got.ID != "a" {
		t.Fatalf("ByEmail = %v, %v", got, err)
	}
	if _, err := repo.ByID(ctx, "missing"); !errors.Is(err, domainuser.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	dup, _ := domainuser.NewUser(domainuser.CreateParams{ID: "c", Email: "alice@example.com", Name: "Clone", PasswordHash: "h"})
	if err := repo.Save(ctx, dup); !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}

	got.SetAvatar("https://cdn/a.png", base.Add(time.Hour))
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded, _ := repo.ByID(ctx, "a")
	if reloaded.AvatarURL != "https://cdn/a.png" {
		t.Fatalf("avatar not persisted: %+v", reloaded)
	}

	cases := map[string][]domainuser.ID{
		"":        {"a", "b"},
		"EXAMPLE": {"a"},
		"_":       {"b"},
		"%":       {},
	}
	for query, want := range cases {
		users, err := repo.Search(ctx, query)
		if err != nil {
			t.Fatalf("Search(%q): %v", query, err)
		}
		if len(users) != len(want) {
			t.Fatalf("Search(%q) = %d users, want %d", query, len(users), len(want))
		}
		for i := range want {
			if users[i].ID != want[i] {
				t.Fatalf("Search(%q)[%d] = %s, want %s", query, i, users[i].ID, want[i])
			}
		}
	}
}

func TestRoomRepositoryRoundTrip(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()
	users := NewUserRepository(client.DB)
	rooms := NewRoomRepository(client.DB)
	base := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	saveUser(t, users, "a", "Alice", "a@x.io", base)
	saveUser(t, users, "b", "Bob", "b@x.io", base)
	saveUser(t, users, "c", "Carol", "c@x.io", base)

	r1, _ := domainroom.NewRoom(domainroom.CreateParams{ID: "r1", Members: []domainuser.ID{"a", "b"}, Now: base})
	r2, _ := domainroom.NewRoom(domainroom.CreateParams{ID: "r2", Name: "trio", Members: []domainuser.ID{"c", "a", "b"}, Now: base.Add(time.Minute)})
	r3, _ := domainroom.NewRoom(domainroom.CreateParams{ID: "r3", Members: []domainuser.ID{"b", "c"}, Now: base.Add(2 * time.Minute)})
	for _, r := range []*domainroom.Room{r1, r2, r3} {
		if err := rooms.Save(ctx, r); err != nil {
			t.Fatalf("Save room: %v", err)
		}
	}

	posted := base.Add(10 * time.Minute)
	msg, _ := r1.Post(domainroom.PostParams{ID: "m1", Author: "b", Text: "hello", Now: posted})
	if err := rooms.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	list, err := rooms.ListForParticipant(ctx, "a")
	if err != nil {
		t.Fatalf("ListForParticipant: %v", err)
	}
	if len(list) != 2 || list[0].ID != "r1" || list[1].ID != "r2" {
		t.Fatalf("unexpected rooms: %+v", list)
	}
	if len(list[0].Members) != 1 || list[0].Members[0].User == nil || list[0].Members[0].User.Name != "Bob" {
		t.Fatalf("r1 members: %+v", list[0].Members)
	}
	if list[0].LastMessage == nil || list[0].LastMessage.Text != "hello" || list[0].LastMessage.Author == nil {
		t.Fatalf("r1 last message: %+v", list[0].LastMessage)
	}
	if !list[0].UpdatedAt.Equal(posted) {
		t.Fatalf("r1 updated at = %v, want %v", list[0].UpdatedAt, posted)
	}
	if got := []domainuser.ID{list[1].Members[0].UserID, list[1].Members[1].UserID}; got[0] != "c" || got[1] != "b" {
		t.Fatalf("r2 member order = %v", got)
	}

	direct, err := rooms.FindDirect(ctx, "b", "a")
	if err != nil || direct.ID != "r1" {
		t.Fatalf("FindDirect = %v, %v", direct, err)
	}
	if _, err := rooms.FindDirect(ctx, "a", "c"); !errors.Is(err, domainroom.ErrNotFound) {
		t.Fatalf("expected no direct room for a/c, got %v", err)
	}

	dup, _ := domainroom.NewRoom(domainroom.CreateParams{ID: "r4", Members: []domainuser.ID{"b", "a"}, Now: base})
	err = client.DB.Transaction(func(tx *gorm.DB) error {
		txRooms := NewRoomRepository(tx)
		if err := txRooms.Save(ctx, dup); !errors.Is(err, domainroom.ErrDirectExists) {
			t.Fatalf("second direct room for a/b: got %v, want ErrDirectExists", err)
		}
		existing, err := txRooms.FindDirect(ctx, "a", "b")
		if err != nil || existing.ID != "r1" {
			t.Fatalf("FindDirect after conflict = %v, %v", existing, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	if err := users.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, _ = rooms.ListForParticipant(ctx, "a")
	if list[0].Members[0].User != nil || list[0].LastMessage.Author != nil {
		t.Fatalf("deleted user should leave unresolved references: %+v", list[0])
	}
}

func TestRoomRepositoryMessagesNewestWindow(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()
	users := NewUserRepository(client.DB)
	rooms := NewRoomRepository(client.DB)
	base := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	saveUser(t, users, "a", "Alice", "a@x.io", base)
	saveUser(t, users, "b", "Bob", "b@x.io", base)
	r, _ := domainroom.NewRoom(domainroom.CreateParams{ID: "r1", Members: []domainuser.ID{"a", "b"}, Now: base})
	_ = rooms.Save(ctx, r)
	for i := 0; i < 4; i++ {
		m, _ := r.Post(domainroom.PostParams{ID: domainroom.MessageID(fmt.Sprintf("m%d", i)), Author: "a", Text: fmt.Sprintf("text %d", i), Now: base.Add(time.Duration(i+1) * time.Minute)})
		if err := rooms.AppendMessage(ctx, m); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}
	msgs, err := rooms.Messages(ctx, "r1", 3)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 3 || msgs[0].ID != "m1" || msgs[2].ID != "m3" {
		t.Fatalf("unexpected window: %+v", msgs)
	}
	if _, err := rooms.Messages(ctx, "nope", 3); !errors.Is(err, domainroom.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnitOfWorkRollback(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()
	factory := Factory{DB: client.DB}

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	u, _ := domainuser.NewUser(domainuser.CreateParams{ID: "a", Email: "a@x.io", Name: "Alice", PasswordHash: "h"})
	if err := unit.Users().Save(ctx, u); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := unit.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if _, err := NewUserRepository(client.DB).ByID(ctx, "a"); !errors.Is(err, domainuser.ErrNotFound) {
		t.Fatalf("rolled back user visible: %v", err)
	}

	unit, _ = factory.Begin(ctx, uow.TxOptions{})
	_ = unit.Users().Save(ctx, u)
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := unit.Rollback(ctx); err != nil {
		t.Fatalf("Rollback after commit: %v", err)
	}
	if _, err := NewUserRepository(client.DB).ByID(ctx, "a"); err != nil {
		t.Fatalf("committed user missing: %v", err)
	}
}
