package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"roomchat/internal/app/uow"
	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
	"roomchat/internal/infra/security"
)

// disabledPasswordHash never matches a bcrypt comparison.
const disabledPasswordHash = "!"

type fixtureFile struct {
	Users []userFixture `json:"users"`
	Rooms []roomFixture `json:"rooms"`
}

type userFixture struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Location       string `json:"location"`
	Avatar         string `json:"avatar"`
	Password       string `json:"password"`
	LastActivityAt string `json:"last_activity_at"`
}

type roomFixture struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Members   []string         `json:"members"`
	CreatedAt string           `json:"created_at"`
	Messages  []messageFixture `json:"messages"`
}

type messageFixture struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// loadFixtures seeds users, rooms and messages in one unit of work. Invalid
// entries are logged and skipped.
func loadFixtures(ctx context.Context, factory uow.UoWFactory, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("fixtures file empty", "path", path)
		return nil
	}
	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	now := time.Now()
	hasher := security.BcryptHasher{}
	for _, fx := range fixtures.Users {
		hash := disabledPasswordHash
		if fx.Password != "" {
			if hash, err = hasher.Hash(fx.Password); err != nil {
				logger.Error("fixture password invalid", "user_id", fx.ID, "error", err)
				continue
			}
		}
		u, err := domainuser.NewUser(domainuser.CreateParams{
			ID:           domainuser.ID(fx.ID),
			Email:        fx.Email,
			Name:         fx.Name,
			Phone:        fx.Phone,
			Location:     fx.Location,
			PasswordHash: hash,
			CreatedAt:    now,
		})
		if err != nil {
			logger.Error("fixture user invalid", "user_id", fx.ID, "error", err)
			continue
		}
		if fx.Avatar != "" {
			u.SetAvatar(fx.Avatar, now)
		}
		u.LastActivityAt = parseFixtureTime(fx.LastActivityAt, now).UTC()
		if err := unit.Users().Save(ctx, u); err != nil {
			logger.Error("cannot store fixture user", "user_id", fx.ID, "error", err)
			continue
		}
	}

	for _, fx := range fixtures.Rooms {
		members := make([]domainuser.ID, 0, len(fx.Members))
		for _, id := range fx.Members {
			members = append(members, domainuser.ID(id))
		}
		r, err := domainroom.NewRoom(domainroom.CreateParams{
			ID:      domainroom.ID(fx.ID),
			Name:    fx.Name,
			Members: members,
			Now:     parseFixtureTime(fx.CreatedAt, now),
		})
		if err != nil {
			logger.Error("fixture room invalid", "room_id", fx.ID, "error", err)
			continue
		}
		if err := unit.Rooms().Save(ctx, r); err != nil {
			logger.Error("cannot store fixture room", "room_id", fx.ID, "error", err)
			continue
		}
		for _, mf := range fx.Messages {
			msg, err := r.Post(domainroom.PostParams{
				ID:     domainroom.MessageID(mf.ID),
				Author: domainuser.ID(mf.Author),
				Text:   mf.Text,
				Now:    parseFixtureTime(mf.CreatedAt, now),
			})
			if err != nil {
				logger.Error("fixture message invalid", "room_id", fx.ID, "message_id", mf.ID, "error", err)
				continue
			}
			if err := unit.Rooms().AppendMessage(ctx, msg); err != nil {
				logger.Error("cannot store fixture message", "room_id", fx.ID, "message_id", mf.ID, "error", err)
			}
		}
		logger.Info("room fixture imported", "room_id", r.ID, "messages", len(fx.Messages))
	}

	if err := unit.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

func parseFixtureTime(value string, fallback time.Time) time.Time {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return fallback
}
