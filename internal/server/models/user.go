// Package models holds the persistent entities of the account service.
package models

import (
	"fmt"
	"time"
)

// Role is the single permission flag carried by a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole maps a stored value back to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// User is a row of the users table. AccessToken and RefreshToken hold the
// only currently valid token of each class; nil means none was issued.
type User struct {
	ID           int64
	Email        string
	Name         string
	Password     string
	Role         Role
	AccessToken  *string
	RefreshToken *string
	CreatedAt    time.Time
}
