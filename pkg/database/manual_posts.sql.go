package database

import (
	"context"
	"time"
)

const manualPostColumns = `id, title, content, image_url, channel_ids, status, scheduled_at, sent_at, error, created_by, created_at, updated_at`

func scanManualPost(row interface{ Scan(...interface{}) error }) (ManualPost, error) {
	var i ManualPost
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Content,
		&i.ImageURL,
		&i.ChannelIDs,
		&i.Status,
		&i.ScheduledAt,
		&i.SentAt,
		&i.Error,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listManualPosts = `-- name: ListManualPosts :many
SELECT ` + manualPostColumns + ` FROM manual_posts
WHERE ($1::text IS NULL OR status = $1)
ORDER BY COALESCE(scheduled_at, created_at) DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListManualPosts(ctx context.Context, status *string, limit, offset int32) ([]ManualPost, error) {
	rows, err := q.db.Query(ctx, listManualPosts, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ManualPost{}
	for rows.Next() {
		i, err := scanManualPost(rows)
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

const getManualPost = `-- name: GetManualPost :one
SELECT ` + manualPostColumns + ` FROM manual_posts WHERE id = $1
`

func (q *Queries) GetManualPost(ctx context.Context, id int32) (ManualPost, error) {
	i, err := scanManualPost(q.db.QueryRow(ctx, getManualPost, id))
	return i, notFound(err)
}

type ManualPostParams struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	ImageURL    *string    `json:"image_url"`
	ChannelIDs  []int32    `json:"channel_ids"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	CreatedBy   *int32     `json:"-"`
}

const createManualPost = `-- name: CreateManualPost :one
INSERT INTO manual_posts (title, content, image_url, channel_ids, status, scheduled_at, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + manualPostColumns

func (q *Queries) CreateManualPost(ctx context.Context, arg ManualPostParams) (ManualPost, error) {
	return scanManualPost(q.db.QueryRow(ctx, createManualPost,
		arg.Title,
		arg.Content,
		arg.ImageURL,
		nonNilInt32s(arg.ChannelIDs),
		arg.Status,
		arg.ScheduledAt,
		arg.CreatedBy,
	))
}

const updateManualPost = `-- name: UpdateManualPost :one
UPDATE manual_posts SET
    title = $2,
    content = $3,
    image_url = $4,
    channel_ids = $5,
    status = $6,
    scheduled_at = $7,
    updated_at = NOW()
WHERE id = $1 AND status <> 'sent'
RETURNING ` + manualPostColumns

// UpdateManualPost edits a post that has not been sent yet.
func (q *Queries) UpdateManualPost(ctx context.Context, id int32, arg ManualPostParams) (ManualPost, error) {
	i, err := scanManualPost(q.db.QueryRow(ctx, updateManualPost,
		id,
		arg.Title,
		arg.Content,
		arg.ImageURL,
		nonNilInt32s(arg.ChannelIDs),
		arg.Status,
		arg.ScheduledAt,
	))
	return i, notFound(err)
}

const setManualPostResult = `-- name: SetManualPostResult :exec
UPDATE manual_posts SET
    status = $2,
    sent_at = $3,
    error = $4,
    updated_at = NOW()
WHERE id = $1
`

func (q *Queries) SetManualPostResult(ctx context.Context, id int32, status string, sentAt *time.Time, errMsg *string) error {
	_, err := q.db.Exec(ctx, setManualPostResult, id, status, sentAt, errMsg)
	return err
}

const deleteManualPost = `-- name: DeleteManualPost :exec
DELETE FROM manual_posts WHERE id = $1
`

func (q *Queries) DeleteManualPost(ctx context.Context, id int32) error {
	tag, err := q.db.Exec(ctx, deleteManualPost, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const claimDueManualPosts = `-- name: ClaimDueManualPosts :many
UPDATE manual_posts SET status = 'sent', sent_at = $1, updated_at = NOW()
WHERE id IN (
    SELECT id FROM manual_posts
    WHERE status = 'scheduled' AND scheduled_at <= $1
    ORDER BY scheduled_at
    LIMIT $2
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + manualPostColumns

// ClaimDueManualPosts marks due scheduled posts as sent and returns them, so
// concurrent dispatchers never pick the same row. Callers downgrade the
// status to failed when delivery does not succeed.
func (q *Queries) ClaimDueManualPosts(ctx context.Context, now time.Time, limit int32) ([]ManualPost, error) {
	rows, err := q.db.Query(ctx, claimDueManualPosts, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ManualPost{}
	for rows.Next() {
		i, err := scanManualPost(rows)
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
