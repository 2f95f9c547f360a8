package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"roomchat/internal/app/dto"
	userapp "roomchat/internal/app/handlers/users"
	"roomchat/internal/app/queries"
	authsvc "roomchat/internal/app/services/auth"
)

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
}

type AuthHandler struct {
	Service *authsvc.Service
	Queries queries.Bus
	Logger  *slog.Logger
	// OnAttempt observes register and login outcomes.
	OnAttempt func(action string, err error)
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h AuthHandler) Register(c *gin.Context) {
	req, ok := bindJSON[registerRequest](c)
	if !ok {
		return
	}
	h.authenticate(c, "register", http.StatusCreated, func(svc *authsvc.Service) (*authsvc.AuthResult, error) {
		return svc.Register(c.Request.Context(), authsvc.RegisterParams{
			Email:    req.Email,
			Name:     req.Name,
			Password: req.Password,
			Phone:    req.Phone,
			Location: req.Location,
		})
	})
}

func (h AuthHandler) Login(c *gin.Context) {
	req, ok := bindJSON[loginRequest](c)
	if !ok {
		return
	}
	h.authenticate(c, "login", http.StatusOK, func(svc *authsvc.Service) (*authsvc.AuthResult, error) {
		return svc.Login(c.Request.Context(), authsvc.LoginParams{
			Email:    strings.TrimSpace(req.Email),
			Password: req.Password,
		})
	})
}

// authenticate runs a sign-in flow and answers with the token and profile.
func (h AuthHandler) authenticate(c *gin.Context, action string, status int, run func(*authsvc.Service) (*authsvc.AuthResult, error)) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth service unavailable"})
		return
	}
	result, err := run(h.Service)
	if h.OnAttempt != nil {
		h.OnAttempt(action, err)
	}
	if err != nil {
		respondError(c, h.Logger, action, err)
		return
	}
	c.JSON(status, dto.NewAuthResponse(result.User, result.Token))
}

func (h AuthHandler) Logout(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth service unavailable"})
		return
	}
	token := extractBearerToken(c.GetHeader("Authorization"))
	if p, ok := currentPrincipal(c); ok && p.Token != "" {
		token = p.Token
	}
	if err := h.Service.Logout(c.Request.Context(), token); err != nil {
		respondError(c, h.Logger, "logout", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AuthHandler) Me(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	profile, err := queries.Ask[userapp.GetProfileQuery, dto.UserProfile](c.Request.Context(), h.Queries, userapp.GetProfileQuery{Requester: p.ID})
	if err != nil {
		respondError(c, h.Logger, "load profile", err, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// bindJSON decodes the body into T, answering 400 when it is malformed.
func bindJSON[T any](c *gin.Context) (T, bool) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return req, false
	}
	return req, true
}

var _ AuthHTTP = (*AuthHandler)(nil)
