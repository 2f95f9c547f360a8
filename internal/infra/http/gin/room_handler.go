package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"roomchat/internal/app/commands"
	"roomchat/internal/app/dto"
	roomapp "roomchat/internal/app/handlers/rooms"
	"roomchat/internal/app/queries"
)

type RoomHTTP interface {
	Open(c *gin.Context)
	PostMessage(c *gin.Context)
	ListMessages(c *gin.Context)
}

type RoomHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type openRoomRequest struct {
	ParticipantIDs []string `json:"participant_ids"`
	Name           string   `json:"name"`
}

type postMessageRequest struct {
	Text string `json:"text"`
}

func (h RoomHandler) Open(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	req, ok := bindJSON[openRoomRequest](c)
	if !ok {
		return
	}
	cmd := roomapp.OpenRoomCommand{Requester: p.ID, ParticipantIDs: req.ParticipantIDs, Name: req.Name}
	room, err := commands.Dispatch[roomapp.OpenRoomCommand, dto.Room](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, "open room", err, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h RoomHandler) PostMessage(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	req, ok := bindJSON[postMessageRequest](c)
	if !ok {
		return
	}
	cmd := roomapp.PostMessageCommand{
		Requester: p.ID,
		RoomID:    c.Param("id"),
		Text:      req.Text,
		ClientKey: c.GetHeader("Idempotency-Key"),
	}
	msg, err := commands.Dispatch[roomapp.PostMessageCommand, dto.ChatMessage](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, "post message", err, "user_id", p.ID, "room_id", cmd.RoomID)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h RoomHandler) ListMessages(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	query := roomapp.ListMessagesQuery{
		Requester: p.ID,
		RoomID:    c.Param("id"),
		Limit:     parsePositiveInt(c.Query("limit"), roomapp.DefaultMessageLimit),
	}
	list, err := queries.Ask[roomapp.ListMessagesQuery, dto.ChatMessageList](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, "list messages", err, "user_id", p.ID, "room_id", query.RoomID)
		return
	}
	c.JSON(http.StatusOK, list)
}

func parsePositiveInt(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

var _ RoomHTTP = (*RoomHandler)(nil)
