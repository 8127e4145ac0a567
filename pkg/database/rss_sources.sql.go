package database

import (
	"context"
	"time"
)

const rssSourceColumns = `id, name, url, language, category, priority, is_active, last_fetched_at, last_error, item_count, created_at`

func scanRSSSource(row interface{ Scan(...interface{}) error }) (RSSSource, error) {
	var i RSSSource
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.URL,
		&i.Language,
		&i.Category,
		&i.Priority,
		&i.IsActive,
		&i.LastFetchedAt,
		&i.LastError,
		&i.ItemCount,
		&i.CreatedAt,
	)
	return i, err
}

const listRSSSources = `-- name: ListRSSSources :many
SELECT ` + rssSourceColumns + ` FROM rss_sources
WHERE ($1::boolean = FALSE OR is_active = TRUE)
  AND ($2::text IS NULL OR language = $2)
ORDER BY priority DESC, name
`

func (q *Queries) ListRSSSources(ctx context.Context, activeOnly bool, language *string) ([]RSSSource, error) {
	rows, err := q.db.Query(ctx, listRSSSources, activeOnly, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []RSSSource{}
	for rows.Next() {
		i, err := scanRSSSource(rows)
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

const getRSSSource = `-- name: GetRSSSource :one
SELECT ` + rssSourceColumns + ` FROM rss_sources WHERE id = $1
`

func (q *Queries) GetRSSSource(ctx context.Context, id int32) (RSSSource, error) {
	i, err := scanRSSSource(q.db.QueryRow(ctx, getRSSSource, id))
	return i, notFound(err)
}

type RSSSourceParams struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Language string `json:"language"`
	Category string `json:"category"`
	Priority int32  `json:"priority"`
	IsActive bool   `json:"is_active"`
}

const createRSSSource = `-- name: CreateRSSSource :one
INSERT INTO rss_sources (name, url, language, category, priority, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + rssSourceColumns

func (q *Queries) CreateRSSSource(ctx context.Context, arg RSSSourceParams) (RSSSource, error) {
	return scanRSSSource(q.db.QueryRow(ctx, createRSSSource,
		arg.Name, arg.URL, arg.Language, arg.Category, arg.Priority, arg.IsActive,
	))
}

const insertRSSSourceIfMissing = `-- name: InsertRSSSourceIfMissing :execrows
INSERT INTO rss_sources (name, url, language, category, priority, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (url) DO NOTHING
`

// InsertRSSSourceIfMissing reports whether a new row was written.
func (q *Queries) InsertRSSSourceIfMissing(ctx context.Context, arg RSSSourceParams) (bool, error) {
	tag, err := q.db.Exec(ctx, insertRSSSourceIfMissing,
		arg.Name, arg.URL, arg.Language, arg.Category, arg.Priority, arg.IsActive,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const updateRSSSource = `-- name: UpdateRSSSource :one
UPDATE rss_sources SET
    name = $2, url = $3, language = $4, category = $5, priority = $6, is_active = $7
WHERE id = $1
RETURNING ` + rssSourceColumns

func (q *Queries) UpdateRSSSource(ctx context.Context, id int32, arg RSSSourceParams) (RSSSource, error) {
	i, err := scanRSSSource(q.db.QueryRow(ctx, updateRSSSource,
		id, arg.Name, arg.URL, arg.Language, arg.Category, arg.Priority, arg.IsActive,
	))
	return i, notFound(err)
}

const deleteRSSSource = `-- name: DeleteRSSSource :exec
DELETE FROM rss_sources WHERE id = $1
`

func (q *Queries) DeleteRSSSource(ctx context.Context, id int32) error {
	tag, err := q.db.Exec(ctx, deleteRSSSource, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const recordRSSFetch = `-- name: RecordRSSFetch :exec
UPDATE rss_sources SET last_fetched_at = $2, last_error = $3, item_count = $4 WHERE id = $1
`

func (q *Queries) RecordRSSFetch(ctx context.Context, id int32, at time.Time, fetchErr *string, itemCount int32) error {
	_, err := q.db.Exec(ctx, recordRSSFetch, id, at, fetchErr, itemCount)
	return err
}
