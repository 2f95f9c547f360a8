package room

import (
	"time"

	"roomchat/internal/domain/user"
)

type RoomOpenedEvent struct {
	RoomID  ID        `json:"room_id"`
	Members []user.ID `json:"members"`
	At      time.Time `json:"at"`
}

func (e RoomOpenedEvent) EventName() string     { return "room.opened" }
func (e RoomOpenedEvent) AggregateID() string   { return string(e.RoomID) }
func (e RoomOpenedEvent) OccurredAt() time.Time { return e.At }

type MessagePostedEvent struct {
	RoomID    ID        `json:"room_id"`
	MessageID MessageID `json:"message_id"`
	AuthorID  user.ID   `json:"author_id"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
}

func (e MessagePostedEvent) EventName() string     { return "room.message_posted" }
func (e MessagePostedEvent) AggregateID() string   { return string(e.RoomID) }
func (e MessagePostedEvent) OccurredAt() time.Time { return e.At }
