package services

import (
	"net/http"

	"github.com/standard/dreamcalendar/internal/server/models"
)

// UserDTO is the outward view of a user. Password is only read on input and
// holds plaintext; it is never filled from a stored user.
type UserDTO struct {
	ID           int64  `json:"id,omitempty"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Password     string `json:"password,omitempty"`
	Role         string `json:"role,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Credentials is the login input.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthStatus is the verdict of LogInByAccessToken.
type AuthStatus int

const (
	BadRequest AuthStatus = iota + 1
	Unauthorized
	Accepted
)

// HTTPStatus maps the verdict onto an HTTP status code.
func (s AuthStatus) HTTPStatus() int {
	switch s {
	case Accepted:
		return http.StatusAccepted
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func (s AuthStatus) String() string {
	switch s {
	case BadRequest:
		return "BAD_REQUEST"
	case Unauthorized:
		return "UNAUTHORIZED"
	case Accepted:
		return "ACCEPTED"
	default:
		return "UNKNOWN"
	}
}

func toDTO(u *models.User) *UserDTO {
	return &UserDTO{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  string(u.Role),
	}
}

func toDTOs(us []*models.User) []UserDTO {
	out := make([]UserDTO, 0, len(us))
	for _, u := range us {
		out = append(out, *toDTO(u))
	}
	return out
}
