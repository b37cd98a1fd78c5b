package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bizreport/api/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `id, user_id, token_hash, expires_at, revoked_at, created_at`

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row scanner) (models.RefreshSession, error) {
	var session models.RefreshSession
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.ExpiresAt,
		&session.RevokedAt,
		&session.CreatedAt,
	)
	return session, err
}

func (r *SessionRepository) Create(ctx context.Context, session models.RefreshSession) error {
	const query = `
		INSERT INTO refresh_sessions (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (models.RefreshSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM refresh_sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RefreshSession{}, ErrSessionNotFound
		}
		return models.RefreshSession{}, err
	}
	return session, nil
}

// FindCandidates returns the newest unrevoked sessions of userID. Expired
// rows are included; callers skip them.
func (r *SessionRepository) FindCandidates(ctx context.Context, userID string, limit int) ([]models.RefreshSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM refresh_sessions
		WHERE user_id = $1 AND revoked_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.RefreshSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Revoke marks one unrevoked session as revoked. ErrSessionNotFound means no
// row changed: the id is unknown or another request revoked it first.
func (r *SessionRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE refresh_sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) RevokeAll(ctx context.Context, userID string, at time.Time) (int64, error) {
	const query = `UPDATE refresh_sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, userID, at)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}
	return affected(res)
}

// RevokeBeyond revokes the usable sessions of userID that are older than the
// newest keep.
func (r *SessionRepository) RevokeBeyond(ctx context.Context, userID string, keep int, at time.Time) (int64, error) {
	const query = `
		UPDATE refresh_sessions SET revoked_at = $3
		WHERE id IN (
			SELECT id FROM refresh_sessions
			WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $3
			ORDER BY created_at DESC, id DESC
			OFFSET $2
		)
	`
	res, err := r.db.ExecContext(ctx, query, userID, keep, at)
	if err != nil {
		return 0, fmt.Errorf("cap sessions: %w", err)
	}
	return affected(res)
}

// Prune deletes the revoked or expired sessions of one user.
func (r *SessionRepository) Prune(ctx context.Context, userID string, now time.Time) (int64, error) {
	const query = `
		DELETE FROM refresh_sessions
		WHERE user_id = $1 AND (revoked_at IS NOT NULL OR expires_at <= $2)
	`
	res, err := r.db.ExecContext(ctx, query, userID, now)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return affected(res)
}

func (r *SessionRepository) PruneAll(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM refresh_sessions WHERE revoked_at IS NOT NULL OR expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("prune all sessions: %w", err)
	}
	return affected(res)
}
