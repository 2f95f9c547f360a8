package dto

import (
	"time"

	domainroom "roomchat/internal/domain/room"
)

// Room describes room metadata returned when a room is opened.
type Room struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChatMessage contains a single message payload.
type ChatMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessageList holds the most recent messages of a room, oldest first.
type ChatMessageList struct {
	Items []ChatMessage `json:"items"`
}

func MapRoom(r *domainroom.Room) Room {
	if r == nil {
		return Room{}
	}
	participants := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		participants = append(participants, string(m.UserID))
	}
	return Room{
		ID:           string(r.ID),
		Name:         r.Name,
		Participants: participants,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func MapChatMessage(m *domainroom.Message) ChatMessage {
	if m == nil {
		return ChatMessage{}
	}
	return ChatMessage{
		ID:        string(m.ID),
		RoomID:    string(m.RoomID),
		SenderID:  string(m.AuthorID),
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func MapChatMessages(msgs []domainroom.Message) ChatMessageList {
	list := ChatMessageList{Items: make([]ChatMessage, 0, len(msgs))}
	for i := range msgs {
		list.Items = append(list.Items, MapChatMessage(&msgs[i]))
	}
	return list
}
