package memory

import (
	"context"
	"strings"
	"sync"

	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
)

type roomRecord struct {
	room     domainroom.Room
	members  []domainroom.Member
	lastID   domainroom.MessageID
	messages []domainroom.Message
}

// RoomRepository stores rooms and their message history in memory, resolving
// member and author references through Users at read time.
type RoomRepository struct {
	Users domainuser.Repository

	mu     sync.RWMutex
	rooms  map[domainroom.ID]*roomRecord
	order  []domainroom.ID
	direct map[string]domainroom.ID
}

func NewRoomRepository(users domainuser.Repository) *RoomRepository {
	return &RoomRepository{
		Users: users,
		rooms:  make(map[domainroom.ID]*roomRecord),
		direct: make(map[string]domainroom.ID),
	}
}

func (r *RoomRepository) ByID(ctx context.Context, id domainroom.ID) (*domainroom.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.rooms[id]
	if !ok {
		return nil, domainroom.ErrNotFound
	}
	out := r.materialize(ctx, rec, "")
	return &out, nil
}

func (r *RoomRepository) ListForParticipant(ctx context.Context, userID domainuser.ID) ([]domainroom.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainroom.Room, 0)
	for _, id := range r.order {
		rec := r.rooms[id]
		if !hasMember(rec.members, userID) {
			continue
		}
		out = append(out, r.materialize(ctx, rec, userID))
	}
	return out, nil
}

func (r *RoomRepository) FindDirect(ctx context.Context, a, b domainuser.ID) (*domainroom.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		rec := r.rooms[id]
		if rec.room.Name != "" || len(rec.members) != 2 {
			continue
		}
		if hasMember(rec.members, a) && hasMember(rec.members, b) {
			out := r.materialize(ctx, rec, "")
			return &out, nil
		}
	}
	return nil, domainroom.ErrNotFound
}

func (r *RoomRepository) Save(ctx context.Context, room *domainroom.Room) error {
	if room == nil || strings.TrimSpace(string(room.ID)) == "" {
		return domainroom.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := room.DirectKey()
	if owner, taken := r.direct[key]; key != "" && taken && owner != room.ID {
		return domainroom.ErrDirectExists
	}
	rec, ok := r.rooms[room.ID]
	if !ok {
		rec = &roomRecord{}
		r.rooms[room.ID] = rec
		r.order = append(r.order, room.ID)
	}
	rec.room = domainroom.Room{
		ID:        room.ID,
		Name:      room.Name,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
	rec.members = make([]domainroom.Member, 0, len(room.Members))
	for _, m := range room.Members {
		rec.members = append(rec.members, domainroom.Member{UserID: m.UserID, JoinedAt: m.JoinedAt})
	}
	for k, owner := range r.direct {
		if owner == room.ID && k != key {
			delete(r.direct, k)
		}
	}
	if key != "" {
		r.direct[key] = room.ID
	}
	return nil
}

func (r *RoomRepository) AppendMessage(ctx context.Context, msg *domainroom.Message) error {
	if msg == nil || strings.TrimSpace(string(msg.ID)) == "" {
		return domainroom.ErrMessageIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rooms[msg.RoomID]
	if !ok {
		return domainroom.ErrNotFound
	}
	stored := *msg
	stored.Author = nil
	rec.messages = append(rec.messages, stored)
	if last := rec.lastMessage(); last == nil || !stored.CreatedAt.Before(last.CreatedAt) {
		rec.lastID = stored.ID
	}
	if stored.CreatedAt.After(rec.room.UpdatedAt) {
		rec.room.UpdatedAt = stored.CreatedAt
	}
	return nil
}

func (r *RoomRepository) Messages(ctx context.Context, id domainroom.ID, limit int) ([]domainroom.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.rooms[id]
	if !ok {
		return nil, domainroom.ErrNotFound
	}
	start := 0
	if limit > 0 && len(rec.messages) > limit {
		start = len(rec.messages) - limit
	}
	out := make([]domainroom.Message, 0, len(rec.messages)-start)
	for _, m := range rec.messages[start:] {
		m.Author = r.resolve(ctx, m.AuthorID)
		out = append(out, m)
	}
	return out, nil
}

// materialize copies rec into a domain room, dropping exclude from the members.
func (r *RoomRepository) materialize(ctx context.Context, rec *roomRecord, exclude domainuser.ID) domainroom.Room {
	out := rec.room
	out.Members = make([]domainroom.Member, 0, len(rec.members))
	for _, m := range rec.members {
		if exclude != "" && m.UserID == exclude {
			continue
		}
		m.User = r.resolve(ctx, m.UserID)
		out.Members = append(out.Members, m)
	}
	if last := rec.lastMessage(); last != nil {
		msg := *last
		msg.Author = r.resolve(ctx, msg.AuthorID)
		out.LastMessage = &msg
	}
	return out
}

func (r *RoomRepository) resolve(ctx context.Context, id domainuser.ID) *domainuser.User {
	if r.Users == nil {
		return nil
	}
	u, err := r.Users.ByID(ctx, id)
	if err != nil {
		return nil
	}
	return u
}

func (rec *roomRecord) lastMessage() *domainroom.Message {
	if rec.lastID == "" {
		return nil
	}
	for i := len(rec.messages) - 1; i >= 0; i-- {
		if rec.messages[i].ID == rec.lastID {
			return &rec.messages[i]
		}
	}
	return nil
}

func hasMember(members []domainroom.Member, id domainuser.ID) bool {
	for _, m := range members {
		if m.UserID == id {
			return true
		}
	}
	return false
}

var _ domainroom.Repository = (*RoomRepository)(nil)
