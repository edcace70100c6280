// Package users declares the account store contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/standard/dreamcalendar/internal/server/models"
)

// Repository persists user accounts. Single-row finders return
// common.ErrorNotFound when nothing matches.
type Repository interface {
	// Create inserts user and fills in ID and CreatedAt. A taken email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByAccessToken(ctx context.Context, token string) (*models.User, error)
	FindByRefreshToken(ctx context.Context, token string) (*models.User, error)

	// FindAll lists every user ordered by id.
	FindAll(ctx context.Context) ([]*models.User, error)
	// FindByName matches name as a case-insensitive substring.
	FindByName(ctx context.Context, name string) ([]*models.User, error)

	UpdateAccessToken(ctx context.Context, id int64, token string) error
	UpdateRefreshToken(ctx context.Context, id int64, token string) error
	// UpdateTokens writes both token columns in one statement.
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string) error

	DeleteByID(ctx context.Context, id int64) error
}
