package gormdb

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
)

// RoomRepository persists rooms, memberships and messages. Member and author
// references are resolved against the users table on every read, so a deleted
// user surfaces as a Member or Message with a nil User.
type RoomRepository struct {
	db    *gorm.DB
	users *UserRepository
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db, users: NewUserRepository(db)}
}

func (r *RoomRepository) ByID(ctx context.Context, id domainroom.ID) (*domainroom.Room, error) {
	var m roomModel
	if err := r.db.WithContext(ctx).Where("id = ?", string(id)).Take(&m).Error; err != nil {
		return nil, translateRoomErr(err)
	}
	rooms, err := r.hydrate(ctx, []roomModel{m}, "")
	if err != nil {
		return nil, err
	}
	return &rooms[0], nil
}

func (r *RoomRepository) ListForParticipant(ctx context.Context, userID domainuser.ID) ([]domainroom.Room, error) {
	var rows []roomModel
	err := r.db.WithContext(ctx).
		Joins("JOIN room_members ON room_members.room_id = rooms.id AND room_members.user_id = ?", string(userID)).
		Order("rooms.created_at ASC, rooms.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, rows, userID)
}

func (r *RoomRepository) FindDirect(ctx context.Context, a, b domainuser.ID) (*domainroom.Room, error) {
	db := r.db.WithContext(ctx)
	memberOf := func(id domainuser.ID) *gorm.DB {
		return db.Model(&roomMemberModel{}).Select("room_id").Where("user_id = ?", string(id))
	}
	var rows []roomModel
	err := db.
		Where("name = ?", "").
		Where("id IN (?)", memberOf(a)).
		Where("id IN (?)", memberOf(b)).
		Where("(SELECT COUNT(*) FROM room_members rm WHERE rm.room_id = rooms.id) = 2").
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domainroom.ErrNotFound
	}
	rooms, err := r.hydrate(ctx, rows, "")
	if err != nil {
		return nil, err
	}
	return &rooms[0], nil
}

// Save upserts the room row and replaces its membership. The last message
// pointer is only moved by AppendMessage. The row is written under a savepoint
// so a direct-pair conflict leaves the surrounding transaction usable.
func (r *RoomRepository) Save(ctx context.Context, room *domainroom.Room) error {
	if room == nil || strings.TrimSpace(string(room.ID)) == "" {
		return domainroom.ErrIDRequired
	}
	db := r.db.WithContext(ctx)
	row := roomModel{
		ID:        string(room.ID),
		Name:      room.Name,
		CreatedAt: room.CreatedAt.UTC(),
		UpdatedAt: room.UpdatedAt.UTC(),
	}
	if key := room.DirectKey(); key != "" {
		row.DirectKey = &key
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "direct_key", "updated_at"}),
		}).Create(&row).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainroom.ErrDirectExists
	}
	if err != nil {
		return err
	}
	if err := db.Where("room_id = ?", row.ID).Delete(&roomMemberModel{}).Error; err != nil {
		return err
	}
	if len(room.Members) == 0 {
		return nil
	}
	members := make([]roomMemberModel, 0, len(room.Members))
	for i, m := range room.Members {
		members = append(members, roomMemberModel{
			RoomID:   row.ID,
			UserID:   string(m.UserID),
			Position: i,
			JoinedAt: m.JoinedAt.UTC(),
		})
	}
	return db.Create(&members).Error
}

func (r *RoomRepository) AppendMessage(ctx context.Context, msg *domainroom.Message) error {
	if msg == nil || strings.TrimSpace(string(msg.ID)) == "" {
		return domainroom.ErrMessageIDRequired
	}
	db := r.db.WithContext(ctx)
	var room roomModel
	if err := db.Where("id = ?", string(msg.RoomID)).Take(&room).Error; err != nil {
		return translateRoomErr(err)
	}
	row := newMessageModel(msg)
	if err := db.Create(&row).Error; err != nil {
		return err
	}

	updates := map[string]any{}
	latest := true
	if room.LastMessageID != "" {
		var current messageModel
		err := db.Where("id = ?", room.LastMessageID).Take(&current).Error
		switch {
		case err == nil:
			latest = !row.CreatedAt.Before(current.CreatedAt)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
	}
	if latest {
		updates["last_message_id"] = row.ID
	}
	if row.CreatedAt.After(room.UpdatedAt) {
		updates["updated_at"] = row.CreatedAt
	}
	if len(updates) == 0 {
		return nil
	}
	return db.Model(&roomModel{}).Where("id = ?", room.ID).Updates(updates).Error
}

func (r *RoomRepository) Messages(ctx context.Context, id domainroom.ID, limit int) ([]domainroom.Message, error) {
	db := r.db.WithContext(ctx)
	var exists int64
	if err := db.Model(&roomModel{}).Where("id = ?", string(id)).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, domainroom.ErrNotFound
	}
	q := db.Where("room_id = ?", string(id)).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []messageModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	authorIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		authorIDs = append(authorIDs, row.AuthorID)
	}
	authors, err := r.users.byIDs(ctx, dedupe(authorIDs))
	if err != nil {
		return nil, err
	}
	out := make([]domainroom.Message, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = row.toDomain(authors[row.AuthorID])
	}
	return out, nil
}

// hydrate loads members, last messages and the referenced users for rows,
// leaving exclude out of every member list.
func (r *RoomRepository) hydrate(ctx context.Context, rows []roomModel, exclude domainuser.ID) ([]domainroom.Room, error) {
	out := make([]domainroom.Room, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	db := r.db.WithContext(ctx)

	roomIDs := make([]string, 0, len(rows))
	lastIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		roomIDs = append(roomIDs, row.ID)
		if row.LastMessageID != "" {
			lastIDs = append(lastIDs, row.LastMessageID)
		}
	}

	memberQuery := db.Where("room_id IN ?", roomIDs)
	if exclude != "" {
		memberQuery = memberQuery.Where("user_id <> ?", string(exclude))
	}
	var members []roomMemberModel
	if err := memberQuery.Order("room_id ASC, position ASC").Find(&members).Error; err != nil {
		return nil, err
	}

	lastMessages := make(map[string]messageModel, len(lastIDs))
	if len(lastIDs) > 0 {
		var msgs []messageModel
		if err := db.Where("id IN ?", lastIDs).Find(&msgs).Error; err != nil {
			return nil, err
		}
		for _, m := range msgs {
			lastMessages[m.ID] = m
		}
	}

	userIDs := make([]string, 0, len(members)+len(lastMessages))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	for _, m := range lastMessages {
		userIDs = append(userIDs, m.AuthorID)
	}
	users, err := r.users.byIDs(ctx, dedupe(userIDs))
	if err != nil {
		return nil, err
	}

	byRoom := make(map[string][]domainroom.Member, len(rows))
	for _, m := range members {
		byRoom[m.RoomID] = append(byRoom[m.RoomID], domainroom.Member{
			UserID:   domainuser.ID(m.UserID),
			User:     users[m.UserID],
			JoinedAt: m.JoinedAt.UTC(),
		})
	}

	for _, row := range rows {
		room := domainroom.Room{
			ID:        domainroom.ID(row.ID),
			Name:      row.Name,
			Members:   byRoom[row.ID],
			CreatedAt: row.CreatedAt.UTC(),
			UpdatedAt: row.UpdatedAt.UTC(),
		}
		if room.Members == nil {
			room.Members = []domainroom.Member{}
		}
		if last, ok := lastMessages[row.LastMessageID]; ok {
			msg := last.toDomain(users[last.AuthorID])
			room.LastMessage = &msg
		}
		out = append(out, room)
	}
	return out, nil
}

func translateRoomErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainroom.ErrNotFound
	}
	return err
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

var _ domainroom.Repository = (*RoomRepository)(nil)
