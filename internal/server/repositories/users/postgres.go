package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/standard/dreamcalendar/internal/common"
	"github.com/standard/dreamcalendar/internal/dbx"
	"github.com/standard/dreamcalendar/internal/server/models"
)

const userColumns = `id, email, name, password, role, access_token, refresh_token, created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, name, password, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Name, user.Password, string(user.Role)).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, "id", id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *PostgresRepository) FindByAccessToken(ctx context.Context, token string) (*models.User, error) {
	return r.findOne(ctx, "access_token", token)
}

func (r *PostgresRepository) FindByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return r.findOne(ctx, "refresh_token", token)
}

func (r *PostgresRepository) FindAll(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	return r.findMany(ctx, query)
}

func (r *PostgresRepository) FindByName(ctx context.Context, name string) ([]*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE lower(name) LIKE '%' || lower($1) || '%'
		 ORDER BY id`
	return r.findMany(ctx, query, likeEscaper.Replace(name))
}

func (r *PostgresRepository) UpdateAccessToken(ctx context.Context, id int64, token string) error {
	return r.exec(ctx, `UPDATE users SET access_token = $2 WHERE id = $1`, id, token)
}

func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, id int64, token string) error {
	return r.exec(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1`, id, token)
}

func (r *PostgresRepository) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string) error {
	return r.exec(ctx, `UPDATE users SET access_token = $2, refresh_token = $3 WHERE id = $1`, id, accessToken, refreshToken)
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = $1`, id)
}

// column is never user input.
func (r *PostgresRepository) findOne(ctx context.Context, column string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) findMany(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// exec runs a single-row mutation; no affected row means not found.
func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var (
		user          models.User
		role          string
		access, fresh sql.NullString
	)

	if err := s.Scan(&user.ID, &user.Email, &user.Name, &user.Password, &role, &access, &fresh, &user.CreatedAt); err != nil {
		return nil, err
	}

	parsed, err := models.ParseRole(role)
	if err != nil {
		return nil, err
	}
	user.Role = parsed

	if access.Valid {
		user.AccessToken = &access.String
	}
	if fresh.Valid {
		user.RefreshToken = &fresh.String
	}

	return &user, nil
}

var _ Repository = (*PostgresRepository)(nil)
