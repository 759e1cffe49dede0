package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"authhub/internal/identity/models"
	"authhub/pkg/platform/sentinel"
	txcontext "authhub/pkg/platform/tx"
)

// PostgresStore persists user profiles in PostgreSQL.
// This store is pure I/O—policy such as merge semantics for partial updates
// is expressed in SQL so that concurrent patches compose, but anything beyond
// that belongs in the service.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const userColumns = `id, username, email, avatar_url, preferences, profile, created_at, last_login_at`

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	prefs, err := json.Marshal(user.Preferences)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	profile, err := json.Marshal(user.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	query := `
		INSERT INTO users (id, username, email, avatar_url, preferences, profile, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		user.ID,
		user.Username,
		nullString(user.Email),
		nullString(user.AvatarURL),
		prefs,
		profile,
		user.CreatedAt,
		user.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(s.execer(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// ApplyPreferences merges the patch into the stored JSONB atomically so
// concurrent partial updates to different fields both land.
func (s *PostgresStore) ApplyPreferences(ctx context.Context, id string, patch models.PreferencesPatch) (*models.User, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("marshal preferences patch: %w", err)
	}
	query := `
		UPDATE users
		SET preferences = preferences || $2::jsonb
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(s.execer(ctx).QueryRowContext(ctx, query, id, payload))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("apply preferences: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) ApplyProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.User, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("marshal profile patch: %w", err)
	}
	query := `
		UPDATE users
		SET profile = profile || $2::jsonb
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(s.execer(ctx).QueryRowContext(ctx, query, id, payload))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("apply profile: %w", err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user    models.User
		email   sql.NullString
		avatar  sql.NullString
		prefs   []byte
		profile []byte
	)
	err := row.Scan(&user.ID, &user.Username, &email, &avatar, &prefs, &profile, &user.CreatedAt, &user.LastLoginAt)
	if err != nil {
		return nil, err
	}
	user.Email = email.String
	user.AvatarURL = avatar.String
	if err := json.Unmarshal(prefs, &user.Preferences); err != nil {
		return nil, fmt.Errorf("unmarshal preferences: %w", err)
	}
	if err := json.Unmarshal(profile, &user.Profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
