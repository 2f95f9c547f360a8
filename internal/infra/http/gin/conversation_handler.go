package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"roomchat/internal/app/dto"
	conversationapp "roomchat/internal/app/handlers/conversations"
	"roomchat/internal/app/queries"
)

type ConversationHTTP interface {
	Home(c *gin.Context)
}

type ConversationHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

// Home returns the requester's chat list as a JSON array.
func (h ConversationHandler) Home(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	query := conversationapp.ListSummariesQuery{Requester: p.ID}
	result, err := queries.Ask[conversationapp.ListSummariesQuery, []dto.ConversationSummary](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, "list conversations", err, "user_id", p.ID)
		return
	}
	if result == nil {
		result = []dto.ConversationSummary{}
	}
	c.JSON(http.StatusOK, result)
}

var _ ConversationHTTP = (*ConversationHandler)(nil)
