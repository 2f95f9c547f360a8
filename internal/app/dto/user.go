package dto

import (
	"time"

	domainuser "roomchat/internal/domain/user"
)

type UserProfile struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Location       string    `json:"location"`
	Avatar         string    `json:"avatar,omitempty"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type AuthResponse struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	return UserProfile{
		ID:             string(user.ID),
		Email:          user.Email,
		Name:           user.Name,
		Phone:          user.Phone,
		Location:       user.Location,
		Avatar:         user.AvatarURL,
		LastActivityAt: user.LastActivityAt,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
}

func MapUserProfiles(users []domainuser.User) []UserProfile {
	out := make([]UserProfile, 0, len(users))
	for i := range users {
		out = append(out, MapUserProfile(&users[i]))
	}
	return out
}

func NewAuthResponse(user *domainuser.User, token string) AuthResponse {
	return AuthResponse{
		User:  MapUserProfile(user),
		Token: token,
	}
}
