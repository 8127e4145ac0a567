package database

import (
	"context"
)

const channelColumns = `id, name, telegram_chat_id, language, timezone, content_types, max_posts_per_day, is_active, created_at, updated_at`

func scanChannel(row interface{ Scan(...interface{}) error }) (Channel, error) {
	var i Channel
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.TelegramChatID,
		&i.Language,
		&i.Timezone,
		&i.ContentTypes,
		&i.MaxPostsPerDay,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listChannels = `-- name: ListChannels :many
SELECT ` + channelColumns + ` FROM channels
WHERE ($1::boolean = FALSE OR is_active = TRUE)
ORDER BY name
`

func (q *Queries) ListChannels(ctx context.Context, activeOnly bool) ([]Channel, error) {
	rows, err := q.db.Query(ctx, listChannels, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Channel{}
	for rows.Next() {
		i, err := scanChannel(rows)
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

const getChannel = `-- name: GetChannel :one
SELECT ` + channelColumns + ` FROM channels WHERE id = $1
`

func (q *Queries) GetChannel(ctx context.Context, id int32) (Channel, error) {
	i, err := scanChannel(q.db.QueryRow(ctx, getChannel, id))
	return i, notFound(err)
}

const getChannelsByIDs = `-- name: GetChannelsByIDs :many
SELECT ` + channelColumns + ` FROM channels WHERE id = ANY($1::int[]) ORDER BY id
`

func (q *Queries) GetChannelsByIDs(ctx context.Context, ids []int32) ([]Channel, error) {
	rows, err := q.db.Query(ctx, getChannelsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Channel{}
	for rows.Next() {
		i, err := scanChannel(rows)
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

type ChannelParams struct {
	Name           string   `json:"name"`
	TelegramChatID string   `json:"telegram_chat_id"`
	Language       string   `json:"language"`
	Timezone       string   `json:"timezone"`
	ContentTypes   []string `json:"content_types"`
	MaxPostsPerDay int32    `json:"max_posts_per_day"`
	IsActive       bool     `json:"is_active"`
}

const createChannel = `-- name: CreateChannel :one
INSERT INTO channels (name, telegram_chat_id, language, timezone, content_types, max_posts_per_day, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + channelColumns

func (q *Queries) CreateChannel(ctx context.Context, arg ChannelParams) (Channel, error) {
	return scanChannel(q.db.QueryRow(ctx, createChannel,
		arg.Name,
		arg.TelegramChatID,
		arg.Language,
		arg.Timezone,
		nonNilStrings(arg.ContentTypes),
		arg.MaxPostsPerDay,
		arg.IsActive,
	))
}

const updateChannel = `-- name: UpdateChannel :one
UPDATE channels SET
    name = $2,
    telegram_chat_id = $3,
    language = $4,
    timezone = $5,
    content_types = $6,
    max_posts_per_day = $7,
    is_active = $8,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + channelColumns

func (q *Queries) UpdateChannel(ctx context.Context, id int32, arg ChannelParams) (Channel, error) {
	i, err := scanChannel(q.db.QueryRow(ctx, updateChannel,
		id,
		arg.Name,
		arg.TelegramChatID,
		arg.Language,
		arg.Timezone,
		nonNilStrings(arg.ContentTypes),
		arg.MaxPostsPerDay,
		arg.IsActive,
	))
	return i, notFound(err)
}

const deleteChannel = `-- name: DeleteChannel :exec
DELETE FROM channels WHERE id = $1
`

func (q *Queries) DeleteChannel(ctx context.Context, id int32) error {
	tag, err := q.db.Exec(ctx, deleteChannel, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInt32s(s []int32) []int32 {
	if s == nil {
		return []int32{}
	}
	return s
}
