// Package services contains server-side business logic. This file implements
// UserService: account creation, password login, access token checks,
// refresh-driven renewal and plain lookups.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/standard/dreamcalendar/internal/common"
	"github.com/standard/dreamcalendar/internal/cryptox"
	"github.com/standard/dreamcalendar/internal/dbx"
	"github.com/standard/dreamcalendar/internal/logging"
	"github.com/standard/dreamcalendar/internal/server/auth"
	"github.com/standard/dreamcalendar/internal/server/models"
	"github.com/standard/dreamcalendar/internal/server/repositories/repomanager"
)

// UserService runs every use case in its own transaction. Business outcomes
// (unknown user, wrong password, stale token) are reported through nil, false
// or an AuthStatus; errors are reserved for infrastructure failures.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *cryptox.Hasher
	tokens      *auth.TokenProvider
	log         logging.Logger
}

// NewUserService wires a UserService.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, h *cryptox.Hasher, tp *auth.TokenProvider, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      h,
		tokens:      tp,
		log:         log.With("module", "user_service"),
	}
}

// Create stores a new USER account. It returns false without writing when
// the hashing algorithm is unavailable, and common.ErrorAlreadyExists when
// the email is taken.
func (s *UserService) Create(ctx context.Context, in UserDTO) (bool, error) {
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, cryptox.ErrAlgorithmUnavailable) {
			s.log.Error(ctx, "password hashing unavailable", "algorithm", s.hasher.Algorithm(), "error", err)
			return false, nil
		}
		return false, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:    in.Email,
		Name:     in.Name,
		Password: digest,
		Role:     models.RoleUser,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repomanager.Users(tx).Create(ctx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return false, err
		}
		return false, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user created", "user_id", user.ID)
	return true, nil
}

// LogInByEmailPassword checks credentials and issues a fresh token pair.
// Unknown email and wrong password both yield (nil, nil).
func (s *UserService) LogInByEmailPassword(ctx context.Context, c Credentials) (*TokenPair, error) {
	// Hash before the lookup: known and unknown emails must fail alike.
	digest, err := s.hasher.Hash(c.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	var pair *TokenPair

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.FindByEmail(ctx, c.Email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return fmt.Errorf("error searching user: %w", err)
		}

		if !cryptox.Equal(digest, user.Password) {
			return nil
		}

		access, err := s.tokens.Generate(user.Email, auth.AccessToken)
		if err != nil {
			return fmt.Errorf("error generating access token: %w", err)
		}
		refresh, err := s.tokens.Generate(user.Email, auth.RefreshToken)
		if err != nil {
			return fmt.Errorf("error generating refresh token: %w", err)
		}

		if err := repo.UpdateTokens(ctx, user.ID, access, refresh); err != nil {
			return fmt.Errorf("error saving tokens: %w", err)
		}

		pair = &TokenPair{AccessToken: access, RefreshToken: refresh}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if pair == nil {
		s.log.Debug(ctx, "login rejected")
	}
	return pair, nil
}

// LogInByAccessToken reports whether token is the caller's current, live
// access token.
func (s *UserService) LogInByAccessToken(ctx context.Context, token string) (AuthStatus, error) {
	var user *models.User

	err := dbx.WithReadTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = s.repomanager.Users(tx).FindByAccessToken(ctx, token)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return BadRequest, nil
		}
		return 0, fmt.Errorf("error searching user: %w", err)
	}

	res, err := s.tokens.ValidateToken(token, auth.AccessToken)
	if err != nil {
		return 0, err
	}

	switch res.Type {
	case auth.Valid:
		return Accepted, nil
	case auth.Expired:
		s.log.Debug(ctx, "access token expired", "user_id", user.ID)
		return Unauthorized, nil
	default:
		return BadRequest, nil
	}
}

// UpdateAccessToken renews the access token of the refresh token's owner,
// reissuing the refresh token too when it is inside its renewal window.
// (nil, nil) means the caller has to log in again.
func (s *UserService) UpdateAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.FindByRefreshToken(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return fmt.Errorf("error searching user: %w", err)
		}

		res, err := s.tokens.ValidateToken(refreshToken, auth.RefreshToken)
		if err != nil {
			return err
		}
		if res.Type != auth.Valid && res.Type != auth.Update {
			s.log.Debug(ctx, "refresh rejected", "user_id", user.ID, "verdict", res.Type.String())
			return nil
		}

		refresh := refreshToken
		if res.Type == auth.Update {
			refresh, err = s.tokens.Generate(user.Email, auth.RefreshToken)
			if err != nil {
				return fmt.Errorf("error generating refresh token: %w", err)
			}
			if err := repo.UpdateRefreshToken(ctx, user.ID, refresh); err != nil {
				return fmt.Errorf("error saving refresh token: %w", err)
			}
		}

		access, err := s.tokens.Generate(user.Email, auth.AccessToken)
		if err != nil {
			return fmt.Errorf("error generating access token: %w", err)
		}
		if err := repo.UpdateAccessToken(ctx, user.ID, access); err != nil {
			return fmt.Errorf("error saving access token: %w", err)
		}

		pair = &TokenPair{AccessToken: access, RefreshToken: refresh}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// FindAll lists every user.
func (s *UserService) FindAll(ctx context.Context) ([]UserDTO, error) {
	var users []*models.User
	err := dbx.WithReadTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		users, err = s.repomanager.Users(tx).FindAll(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return toDTOs(users), nil
}

// FindByID returns nil when no user has id.
func (s *UserService) FindByID(ctx context.Context, id int64) (*UserDTO, error) {
	return s.findOne(ctx, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		return s.repomanager.Users(tx).FindByID(ctx, id)
	})
}

// FindByEmail returns nil when no user has email.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*UserDTO, error) {
	return s.findOne(ctx, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		return s.repomanager.Users(tx).FindByEmail(ctx, email)
	})
}

// FindUsersByUsername matches name case-insensitively anywhere in the
// user's name.
func (s *UserService) FindUsersByUsername(ctx context.Context, name string) ([]UserDTO, error) {
	var users []*models.User
	err := dbx.WithReadTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		users, err = s.repomanager.Users(tx).FindByName(ctx, name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error searching users: %w", err)
	}
	return toDTOs(users), nil
}

// Delete removes the user with id. It returns false when there is none.
func (s *UserService) Delete(ctx context.Context, id int64) (bool, error) {
	deleted := false

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).DeleteByID(ctx, id); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("error deleting user: %w", err)
	}

	if deleted {
		s.log.Info(ctx, "user deleted", "user_id", id)
	}
	return deleted, nil
}

func (s *UserService) findOne(ctx context.Context, find func(context.Context, dbx.DBTX) (*models.User, error)) (*UserDTO, error) {
	var user *models.User
	err := dbx.WithReadTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = find(ctx, tx)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return toDTO(user), nil
}
