package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	identity "authhub/internal/identity/models"
	"authhub/internal/session/models"
	"authhub/pkg/platform/sentinel"
)

// PostgresStore persists sessions in PostgreSQL. The user snapshot is stored as
// JSONB; the relational columns exist only for lookup and expiry queries.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed session store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `id, user_id, user_data, device, created_at, expires_at, last_accessed_at`

func (s *PostgresStore) Save(ctx context.Context, session *models.Session) error {
	userData, err := json.Marshal(session.UserData)
	if err != nil {
		return fmt.Errorf("marshal user data: %w", err)
	}
	query := `
		INSERT INTO sessions (id, user_id, user_data, device, created_at, expires_at, last_accessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			user_data = EXCLUDED.user_data,
			expires_at = EXCLUDED.expires_at,
			last_accessed_at = EXCLUDED.last_accessed_at
	`
	_, err = s.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		userData,
		session.Device,
		session.CreatedAt,
		session.ExpiresAt,
		session.LastAccessedAt,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	session, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions by user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete sessions by user: %w", err)
	}
	return int(affected), nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(affected), nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		session  models.Session
		userData []byte
		device   sql.NullString
	)
	err := row.Scan(&session.ID, &session.UserID, &userData, &device, &session.CreatedAt, &session.ExpiresAt, &session.LastAccessedAt)
	if err != nil {
		return nil, err
	}
	session.Device = device.String
	var user identity.User
	if err := json.Unmarshal(userData, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user data: %w", err)
	}
	session.UserData = user
	return &session, nil
}
