package gormdb

import (
	"time"

	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
)

type userModel struct {
	ID             string    `gorm:"primaryKey;size:64"`
	Email          string    `gorm:"uniqueIndex;size:320;not null"`
	Name           string    `gorm:"size:200;not null"`
	Phone          string    `gorm:"size:64"`
	Location       string    `gorm:"size:200"`
	AvatarURL      string    `gorm:"size:1024"`
	PasswordHash   string    `gorm:"not null"`
	LastActivityAt time.Time `gorm:"autoUpdateTime:false"`
	CreatedAt      time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false"`
}

func (userModel) TableName() string { return "users" }

func newUserModel(u *domainuser.User) userModel {
	return userModel{
		ID:             string(u.ID),
		Email:          domainuser.NormalizeEmail(u.Email),
		Name:           u.Name,
		Phone:          u.Phone,
		Location:       u.Location,
		AvatarURL:      u.AvatarURL,
		PasswordHash:   u.PasswordHash,
		LastActivityAt: u.LastActivityAt.UTC(),
		CreatedAt:      u.CreatedAt.UTC(),
		UpdatedAt:      u.UpdatedAt.UTC(),
	}
}

func (m userModel) toDomain() *domainuser.User {
	return &domainuser.User{
		ID:             domainuser.ID(m.ID),
		Email:          m.Email,
		Name:           m.Name,
		Phone:          m.Phone,
		Location:       m.Location,
		AvatarURL:      m.AvatarURL,
		PasswordHash:   m.PasswordHash,
		LastActivityAt: m.LastActivityAt.UTC(),
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

// roomModel.DirectKey is set only for direct rooms. NULLs do not collide in
// the unique index, so group and named rooms are unconstrained.
type roomModel struct {
	ID            string    `gorm:"primaryKey;size:64"`
	Name          string    `gorm:"size:200"`
	DirectKey     *string   `gorm:"uniqueIndex;size:130"`
	LastMessageID string    `gorm:"size:64"`
	CreatedAt     time.Time `gorm:"index;autoCreateTime:false"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime:false"`
}

func (roomModel) TableName() string { return "rooms" }

// roomMemberModel is the room/user join row. Position keeps the order in which
// members were added.
type roomMemberModel struct {
	RoomID   string    `gorm:"primaryKey;size:64"`
	UserID   string    `gorm:"primaryKey;size:64;index"`
	Position int       `gorm:"not null"`
	JoinedAt time.Time `gorm:"autoCreateTime:false"`
}

func (roomMemberModel) TableName() string { return "room_members" }

type messageModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	RoomID    string    `gorm:"index:idx_messages_room_created,priority:1;size:64;not null"`
	AuthorID  string    `gorm:"size:64;not null"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_messages_room_created,priority:2;autoCreateTime:false"`
}

func (messageModel) TableName() string { return "messages" }

func newMessageModel(m *domainroom.Message) messageModel {
	return messageModel{
		ID:        string(m.ID),
		RoomID:    string(m.RoomID),
		AuthorID:  string(m.AuthorID),
		Text:      m.Text,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func (m messageModel) toDomain(author *domainuser.User) domainroom.Message {
	return domainroom.Message{
		ID:        domainroom.MessageID(m.ID),
		RoomID:    domainroom.ID(m.RoomID),
		AuthorID:  domainuser.ID(m.AuthorID),
		Author:    author,
		Text:      m.Text,
		CreatedAt: m.CreatedAt.UTC(),
	}
}
