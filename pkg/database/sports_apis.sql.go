package database

import (
	"context"
	"time"
)

const sportsAPIColumns = `id, name, provider, base_url, api_key, priority, is_active, daily_limit, requests_today, usage_date, last_used_at, created_at`

func scanSportsAPI(row interface{ Scan(...interface{}) error }) (SportsAPI, error) {
	var i SportsAPI
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Provider,
		&i.BaseURL,
		&i.APIKey,
		&i.Priority,
		&i.IsActive,
		&i.DailyLimit,
		&i.RequestsToday,
		&i.UsageDate,
		&i.LastUsedAt,
		&i.CreatedAt,
	)
	return i, err
}

const listSportsAPIs = `-- name: ListSportsAPIs :many
SELECT ` + sportsAPIColumns + ` FROM sports_apis
WHERE ($1::boolean = FALSE OR is_active = TRUE)
ORDER BY priority DESC, id
`

func (q *Queries) ListSportsAPIs(ctx context.Context, activeOnly bool) ([]SportsAPI, error) {
	rows, err := q.db.Query(ctx, listSportsAPIs, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SportsAPI{}
	for rows.Next() {
		i, err := scanSportsAPI(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type SportsAPIParams struct {
	Name       string `json:"name"`
	Provider   string `json:"provider"`
	BaseURL    string `json:"base_url"`
	APIKey     string `json:"api_key"`
	Priority   int32  `json:"priority"`
	IsActive   bool   `json:"is_active"`
	DailyLimit int32  `json:"daily_limit"`
}

const createSportsAPI = `-- name: CreateSportsAPI :one
INSERT INTO sports_apis (name, provider, base_url, api_key, priority, is_active, daily_limit)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + sportsAPIColumns

func (q *Queries) CreateSportsAPI(ctx context.Context, arg SportsAPIParams) (SportsAPI, error) {
	return scanSportsAPI(q.db.QueryRow(ctx, createSportsAPI,
		arg.Name, arg.Provider, arg.BaseURL, arg.APIKey, arg.Priority, arg.IsActive, arg.DailyLimit,
	))
}

const updateSportsAPI = `-- name: UpdateSportsAPI :one
UPDATE sports_apis SET
    name = $2, provider = $3, base_url = $4,
    api_key = CASE WHEN $5::text = '' THEN api_key ELSE $5 END,
    priority = $6, is_active = $7, daily_limit = $8
WHERE id = $1
RETURNING ` + sportsAPIColumns

// UpdateSportsAPI keeps the stored key when APIKey is empty.
func (q *Queries) UpdateSportsAPI(ctx context.Context, id int32, arg SportsAPIParams) (SportsAPI, error) {
	i, err := scanSportsAPI(q.db.QueryRow(ctx, updateSportsAPI,
		id, arg.Name, arg.Provider, arg.BaseURL, arg.APIKey, arg.Priority, arg.IsActive, arg.DailyLimit,
	))
	return i, notFound(err)
}

const deleteSportsAPI = `-- name: DeleteSportsAPI :exec
DELETE FROM sports_apis WHERE id = $1
`

func (q *Queries) DeleteSportsAPI(ctx context.Context, id int32) error {
	tag, err := q.db.Exec(ctx, deleteSportsAPI, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const recordSportsAPIUsage = `-- name: RecordSportsAPIUsage :exec
UPDATE sports_apis SET
    requests_today = CASE WHEN usage_date = $2::date THEN requests_today + 1 ELSE 1 END,
    usage_date = $2::date,
    last_used_at = $2
WHERE name = $1
`

// RecordSportsAPIUsage bumps the daily request counter, resetting it on a new day.
func (q *Queries) RecordSportsAPIUsage(ctx context.Context, name string, at time.Time) error {
	_, err := q.db.Exec(ctx, recordSportsAPIUsage, name, at)
	return err
}
