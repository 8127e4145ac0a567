package database

import (
	"context"
	"time"
)

const logColumns = `id, rule_id, channel_id, content_type, slot_key, status, message_id, error, content_preview, created_at`

func scanLog(row interface{ Scan(...interface{}) error }) (AutomationLog, error) {
	var i AutomationLog
	err := row.Scan(
		&i.ID,
		&i.RuleID,
		&i.ChannelID,
		&i.ContentType,
		&i.SlotKey,
		&i.Status,
		&i.MessageID,
		&i.Error,
		&i.ContentPreview,
		&i.CreatedAt,
	)
	return i, err
}

type CreateLogParams struct {
	RuleID         *int32
	ChannelID      *int32
	ContentType    string
	SlotKey        *string
	Status         string
	MessageID      *int64
	Error          *string
	ContentPreview *string
}

const createLog = `-- name: CreateLog :one
INSERT INTO automation_logs (rule_id, channel_id, content_type, slot_key, status, message_id, error, content_preview)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + logColumns

func (q *Queries) CreateLog(ctx context.Context, arg CreateLogParams) (AutomationLog, error) {
	return scanLog(q.db.QueryRow(ctx, createLog,
		arg.RuleID,
		arg.ChannelID,
		arg.ContentType,
		arg.SlotKey,
		arg.Status,
		arg.MessageID,
		arg.Error,
		arg.ContentPreview,
	))
}

type ListLogsParams struct {
	ChannelID   *int32
	RuleID      *int32
	Status      *string
	ContentType *string
	Since       *time.Time
	Limit       int32
	Offset      int32
}

const listLogs = `-- name: ListLogs :many
SELECT ` + logColumns + ` FROM automation_logs
WHERE ($1::int IS NULL OR channel_id = $1)
  AND ($2::int IS NULL OR rule_id = $2)
  AND ($3::text IS NULL OR status = $3)
  AND ($4::text IS NULL OR content_type = $4)
  AND ($5::timestamptz IS NULL OR created_at >= $5)
ORDER BY created_at DESC
LIMIT $6 OFFSET $7
`

func (q *Queries) ListLogs(ctx context.Context, arg ListLogsParams) ([]AutomationLog, error) {
	rows, err := q.db.Query(ctx, listLogs,
		arg.ChannelID,
		arg.RuleID,
		arg.Status,
		arg.ContentType,
		arg.Since,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []AutomationLog{}
	for rows.Next() {
		i, err := scanLog(rows)
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

const hasSuccessfulSlot = `-- name: HasSuccessfulSlot :one
SELECT EXISTS (
    SELECT 1 FROM automation_logs
    WHERE slot_key = $1 AND channel_id = $2 AND status = 'success'
)
`

func (q *Queries) HasSuccessfulSlot(ctx context.Context, slotKey string, channelID int32) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, hasSuccessfulSlot, slotKey, channelID).Scan(&exists)
	return exists, err
}

const countSlotFailures = `-- name: CountSlotFailures :one
SELECT COUNT(*) FROM automation_logs
WHERE slot_key = $1 AND channel_id = $2 AND status = 'failed'
`

func (q *Queries) CountSlotFailures(ctx context.Context, slotKey string, channelID int32) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countSlotFailures, slotKey, channelID).Scan(&count)
	return count, err
}

const countChannelPostsSince = `-- name: CountChannelPostsSince :one
SELECT COUNT(*) FROM automation_logs
WHERE channel_id = $1 AND status = 'success' AND created_at >= $2
`

func (q *Queries) CountChannelPostsSince(ctx context.Context, channelID int32, since time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countChannelPostsSince, channelID, since).Scan(&count)
	return count, err
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

const countLogsByStatusSince = `-- name: CountLogsByStatusSince :many
SELECT status, COUNT(*) FROM automation_logs
WHERE created_at >= $1
GROUP BY status
ORDER BY status
`

func (q *Queries) CountLogsByStatusSince(ctx context.Context, since time.Time) ([]StatusCount, error) {
	rows, err := q.db.Query(ctx, countLogsByStatusSince, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StatusCount{}
	for rows.Next() {
		var i StatusCount
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteLogsBefore = `-- name: DeleteLogsBefore :execrows
DELETE FROM automation_logs WHERE created_at < $1
`

func (q *Queries) DeleteLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteLogsBefore, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
