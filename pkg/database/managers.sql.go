package database

import (
	"context"
	"time"
)

const managerColumns = `id, email, name, password_hash, role, is_active, last_login_at, created_at`

func scanManager(row interface{ Scan(...interface{}) error }) (Manager, error) {
	var i Manager
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.PasswordHash,
		&i.Role,
		&i.IsActive,
		&i.LastLoginAt,
		&i.CreatedAt,
	)
	return i, err
}

const getManagerByEmail = `-- name: GetManagerByEmail :one
SELECT ` + managerColumns + ` FROM managers WHERE lower(email) = lower($1)
`

func (q *Queries) GetManagerByEmail(ctx context.Context, email string) (Manager, error) {
	i, err := scanManager(q.db.QueryRow(ctx, getManagerByEmail, email))
	return i, notFound(err)
}

type CreateManagerParams struct {
	Email        string
	Name         string
	PasswordHash string
	Role         string
}

const upsertManager = `-- name: UpsertManager :one
INSERT INTO managers (email, name, password_hash, role)
VALUES ($1, $2, $3, $4)
ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role
RETURNING ` + managerColumns

func (q *Queries) UpsertManager(ctx context.Context, arg CreateManagerParams) (Manager, error) {
	return scanManager(q.db.QueryRow(ctx, upsertManager, arg.Email, arg.Name, arg.PasswordHash, arg.Role))
}

const touchManagerLogin = `-- name: TouchManagerLogin :exec
UPDATE managers SET last_login_at = $2 WHERE id = $1
`

func (q *Queries) TouchManagerLogin(ctx context.Context, id int32, at time.Time) error {
	_, err := q.db.Exec(ctx, touchManagerLogin, id, at)
	return err
}

const createSession = `-- name: CreateSession :one
INSERT INTO manager_sessions (token, manager_id, expires_at)
VALUES ($1, $2, $3)
RETURNING token, manager_id, expires_at, created_at
`

func (q *Queries) CreateSession(ctx context.Context, token string, managerID int32, expiresAt time.Time) (ManagerSession, error) {
	var i ManagerSession
	err := q.db.QueryRow(ctx, createSession, token, managerID, expiresAt).Scan(
		&i.Token,
		&i.ManagerID,
		&i.ExpiresAt,
		&i.CreatedAt,
	)
	return i, err
}

const getSessionManager = `-- name: GetSessionManager :one
SELECT m.id, m.email, m.name, m.password_hash, m.role, m.is_active, m.last_login_at, m.created_at
FROM manager_sessions s
JOIN managers m ON m.id = s.manager_id
WHERE s.token = $1 AND s.expires_at > $2 AND m.is_active = TRUE
`

// GetSessionManager resolves an unexpired session token to its manager.
func (q *Queries) GetSessionManager(ctx context.Context, token string, now time.Time) (Manager, error) {
	i, err := scanManager(q.db.QueryRow(ctx, getSessionManager, token, now))
	return i, notFound(err)
}

const deleteSession = `-- name: DeleteSession :exec
DELETE FROM manager_sessions WHERE token = $1
`

func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	_, err := q.db.Exec(ctx, deleteSession, token)
	return err
}

const deleteExpiredSessions = `-- name: DeleteExpiredSessions :execrows
DELETE FROM manager_sessions WHERE expires_at <= $1
`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
