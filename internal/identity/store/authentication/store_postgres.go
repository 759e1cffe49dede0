package authentication

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"authhub/internal/identity/models"
	"authhub/internal/identity/store"
	"authhub/pkg/platform/sentinel"
	txcontext "authhub/pkg/platform/tx"
)

// PostgresStore persists authentication records in PostgreSQL.
// Uniqueness is enforced by partial unique indexes; violations are translated
// to the store package errors by constraint name.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed authentication store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// uniqueViolation maps a pq unique_violation to the store error for that
// constraint, or nil when err is something else.
func uniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	switch pqErr.Constraint {
	case "authentications_local_user_key":
		return store.ErrDuplicateLocalAuth
	case "authentications_local_email_key":
		return store.ErrEmailTaken
	case "authentications_provider_subject_key":
		return store.ErrAlreadyLinked
	default:
		return nil
	}
}

func (s *PostgresStore) CreateLocal(ctx context.Context, auth *models.Authentication) error {
	query := `
		INSERT INTO authentications (id, user_id, provider, provider_id, email, password_hash, created_at)
		VALUES ($1, $2, $3, NULL, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		auth.ID,
		auth.UserID,
		models.ProviderLocal,
		strings.ToLower(auth.Email),
		auth.PasswordHash,
		auth.CreatedAt,
	)
	if err != nil {
		if sentinelErr := uniqueViolation(err); sentinelErr != nil {
			return fmt.Errorf("create local credential: %w", sentinelErr)
		}
		return fmt.Errorf("create local credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateOAuth(ctx context.Context, auth *models.Authentication) error {
	query := `
		INSERT INTO authentications (id, user_id, provider, provider_id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, NULL, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		auth.ID,
		auth.UserID,
		auth.Provider,
		auth.ProviderID,
		nullString(auth.Email),
		auth.CreatedAt,
	)
	if err != nil {
		if sentinelErr := uniqueViolation(err); sentinelErr != nil {
			return fmt.Errorf("create oauth link: %w", sentinelErr)
		}
		return fmt.Errorf("create oauth link: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindLocalByEmail(ctx context.Context, email string) (*models.Authentication, error) {
	query := `
		SELECT id, user_id, provider, COALESCE(provider_id, ''), COALESCE(email, ''), COALESCE(password_hash, ''), created_at
		FROM authentications
		WHERE provider = $1 AND email = $2
	`
	var auth models.Authentication
	err := s.execer(ctx).QueryRowContext(ctx, query, models.ProviderLocal, strings.ToLower(email)).Scan(
		&auth.ID, &auth.UserID, &auth.Provider, &auth.ProviderID, &auth.Email, &auth.PasswordHash, &auth.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("local credential not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find local credential: %w", err)
	}
	return &auth, nil
}

func (s *PostgresStore) FindUserByProvider(ctx context.Context, provider, providerID string) (string, error) {
	query := `
		SELECT user_id FROM authentications
		WHERE provider = $1 AND provider_id = $2
	`
	var userID string
	err := s.execer(ctx).QueryRowContext(ctx, query, provider, providerID).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("provider identity not found: %w", sentinel.ErrNotFound)
		}
		return "", fmt.Errorf("find provider identity: %w", err)
	}
	return userID, nil
}

func (s *PostgresStore) ListByUserID(ctx context.Context, userID string) ([]models.AuthMethod, error) {
	query := `
		SELECT id, provider, COALESCE(email, ''), created_at
		FROM authentications
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list auth methods: %w", err)
	}
	defer rows.Close()

	var methods []models.AuthMethod
	for rows.Next() {
		var m models.AuthMethod
		if err := rows.Scan(&m.ID, &m.Provider, &m.Email, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan auth method: %w", err)
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list auth methods: %w", err)
	}
	return methods, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
