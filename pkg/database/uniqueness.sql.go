package database

import (
	"context"
	"time"
)

type InsertContentUniquenessParams struct {
	ChannelID   int32
	ContentType string
	ContentHash string
	ContentKey  string
}

const insertContentUniqueness = `-- name: InsertContentUniqueness :execrows
INSERT INTO content_uniqueness (channel_id, content_type, content_hash, content_key)
VALUES ($1, $2, $3, $4)
ON CONFLICT (channel_id, content_hash) DO NOTHING
`

// InsertContentUniqueness returns false when the hash was already recorded
// for the channel.
func (q *Queries) InsertContentUniqueness(ctx context.Context, arg InsertContentUniquenessParams) (bool, error) {
	tag, err := q.db.Exec(ctx, insertContentUniqueness,
		arg.ChannelID,
		arg.ContentType,
		arg.ContentHash,
		arg.ContentKey,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const contentUniquenessExists = `-- name: ContentUniquenessExists :one
SELECT EXISTS (
    SELECT 1 FROM content_uniqueness WHERE channel_id = $1 AND content_hash = $2
)
`

func (q *Queries) ContentUniquenessExists(ctx context.Context, channelID int32, hash string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, contentUniquenessExists, channelID, hash).Scan(&exists)
	return exists, err
}

const deleteContentUniquenessBefore = `-- name: DeleteContentUniquenessBefore :execrows
DELETE FROM content_uniqueness WHERE created_at < $1
`

func (q *Queries) DeleteContentUniquenessBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteContentUniquenessBefore, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteContentUniqueness = `-- name: DeleteContentUniqueness :execrows
DELETE FROM content_uniqueness WHERE channel_id = $1 AND content_hash = $2
`

func (q *Queries) DeleteContentUniqueness(ctx context.Context, channelID int32, hash string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteContentUniqueness, channelID, hash)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const countContentUniqueness = `-- name: CountContentUniqueness :one
SELECT COUNT(*) FROM content_uniqueness
`

func (q *Queries) CountContentUniqueness(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countContentUniqueness).Scan(&count)
	return count, err
}

