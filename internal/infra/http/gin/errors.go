package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"roomchat/internal/app/commands"
	meapp "roomchat/internal/app/handlers/me"
	"roomchat/internal/app/middleware"
	"roomchat/internal/app/queries"
	authsvc "roomchat/internal/app/services/auth"
	"roomchat/internal/domain/conversation"
	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
	"roomchat/internal/infra/obs"
	"roomchat/internal/infra/security"
	"roomchat/internal/infra/storage/s3"
)

// statusFor maps application errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, conversation.ErrUnauthenticated),
		errors.Is(err, middleware.ErrUnauthenticated),
		errors.Is(err, authsvc.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domainroom.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, domainroom.ErrNotFound),
		errors.Is(err, domainuser.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainuser.ErrEmailAlreadyUsed),
		errors.Is(err, domainroom.ErrDirectExists):
		return http.StatusConflict
	case errors.Is(err, meapp.ErrAvatarTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, meapp.ErrAvatarContentType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, s3.ErrNotConfigured),
		errors.Is(err, commands.ErrNilBus),
		errors.Is(err, queries.ErrNilBus):
		return http.StatusServiceUnavailable
	case errors.Is(err, authsvc.ErrPasswordTooShort),
		errors.Is(err, security.ErrPasswordTooLong),
		errors.Is(err, domainuser.ErrEmailRequired),
		errors.Is(err, domainuser.ErrNameRequired),
		errors.Is(err, domainroom.ErrTooFewMembers),
		errors.Is(err, domainroom.ErrIDRequired),
		errors.Is(err, domainroom.ErrTextRequired),
		errors.Is(err, domainroom.ErrTextTooLong),
		errors.Is(err, meapp.ErrAvatarMissing):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the mapped status. Unexpected errors are logged and
// hidden behind a generic message.
func respondError(c *gin.Context, logger *slog.Logger, op string, err error, attrs ...any) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error(op+" failed", append([]any{"error", err, "request_id", obs.RequestIDFromContext(c.Request.Context())}, attrs...)...)
		}
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
