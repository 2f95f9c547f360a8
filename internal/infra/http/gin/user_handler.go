package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"roomchat/internal/app/commands"
	"roomchat/internal/app/dto"
	meapp "roomchat/internal/app/handlers/me"
	userapp "roomchat/internal/app/handlers/users"
	"roomchat/internal/app/queries"
)

type UserHTTP interface {
	Search(c *gin.Context)
	UploadAvatar(c *gin.Context)
}

type UserHandler struct {
	Queries  queries.Bus
	Commands commands.Bus
	Logger   *slog.Logger
}

func (h UserHandler) Search(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	query := userapp.SearchUsersQuery{Requester: p.ID, Query: c.Query("query")}
	result, err := queries.Ask[userapp.SearchUsersQuery, []dto.UserProfile](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, "search users", err, "user_id", p.ID)
		return
	}
	if result == nil {
		result = []dto.UserProfile{}
	}
	c.JSON(http.StatusOK, result)
}

func (h UserHandler) UploadAvatar(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, meapp.MaxAvatarBytes+1<<20)
	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, h.Logger, "upload avatar", meapp.ErrAvatarTooLarge)
			return
		}
		respondError(c, h.Logger, "upload avatar", meapp.ErrAvatarMissing)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, h.Logger, "upload avatar", err, "user_id", p.ID)
		return
	}
	defer file.Close()

	cmd := meapp.UploadAvatarCommand{
		Requester:   p.ID,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Reader:      file,
	}
	profile, err := commands.Dispatch[meapp.UploadAvatarCommand, dto.UserProfile](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, "upload avatar", err, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, profile)
}

var _ UserHTTP = (*UserHandler)(nil)
