package dto

import "roomchat/internal/domain/conversation"

// ConversationSummary is a chat-list row. Field names and order are part of the
// public contract of GET /home.
type ConversationSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LastMessage string `json:"lastMessage"`
	Timestamp   string `json:"timestamp"`
	Avatar      string `json:"avatar"`
	Unread      bool   `json:"unread"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Location    string `json:"location"`
	LastSeen    string `json:"lastSeen"`
}

func MapConversationSummaries(items []conversation.Summary) []ConversationSummary {
	out := make([]ConversationSummary, 0, len(items))
	for _, s := range items {
		out = append(out, ConversationSummary{
			ID:          string(s.ParticipantID),
			Name:        s.Name,
			LastMessage: s.LastMessage,
			Timestamp:   s.Timestamp,
			Avatar:      s.Avatar,
			Unread:      s.Unread,
			Email:       s.Email,
			Phone:       s.Phone,
			Location:    s.Location,
			LastSeen:    s.LastSeen,
		})
	}
	return out
}
