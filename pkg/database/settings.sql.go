package database

import (
	"context"
	"encoding/json"
)

const listSettings = `-- name: ListSettings :many
SELECT key, value, updated_at FROM settings ORDER BY key
`

func (q *Queries) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := q.db.Query(ctx, listSettings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Setting{}
	for rows.Next() {
		var i Setting
		var raw []byte
		if err := rows.Scan(&i.Key, &raw, &i.UpdatedAt); err != nil {
			return nil, err
		}
		i.Value = json.RawMessage(raw)
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getSetting = `-- name: GetSetting :one
SELECT key, value, updated_at FROM settings WHERE key = $1
`

func (q *Queries) GetSetting(ctx context.Context, key string) (Setting, error) {
	var i Setting
	var raw []byte
	err := q.db.QueryRow(ctx, getSetting, key).Scan(&i.Key, &raw, &i.UpdatedAt)
	if err != nil {
		return i, notFound(err)
	}
	i.Value = json.RawMessage(raw)
	return i, nil
}

const upsertSetting = `-- name: UpsertSetting :one
INSERT INTO settings (key, value, updated_at)
VALUES ($1, $2::jsonb, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
RETURNING key, value, updated_at
`

func (q *Queries) UpsertSetting(ctx context.Context, key string, value json.RawMessage) (Setting, error) {
	var i Setting
	var raw []byte
	err := q.db.QueryRow(ctx, upsertSetting, key, string(value)).Scan(&i.Key, &raw, &i.UpdatedAt)
	if err != nil {
		return i, err
	}
	i.Value = json.RawMessage(raw)
	return i, nil
}
