package database

import (
	"context"
	"time"
)

const ruleColumns = `id, name, content_type, channel_ids, time_slots, jitter_minutes, days_of_week, use_ai, include_image, enabled, last_run_at, created_at, updated_at`

func scanRule(row interface{ Scan(...interface{}) error }) (AutomationRule, error) {
	var i AutomationRule
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.ContentType,
		&i.ChannelIDs,
		&i.TimeSlots,
		&i.JitterMinutes,
		&i.DaysOfWeek,
		&i.UseAI,
		&i.IncludeImage,
		&i.Enabled,
		&i.LastRunAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listRules = `-- name: ListRules :many
SELECT ` + ruleColumns + ` FROM automation_rules
WHERE ($1::boolean = FALSE OR enabled = TRUE)
ORDER BY id
`

func (q *Queries) ListRules(ctx context.Context, enabledOnly bool) ([]AutomationRule, error) {
	rows, err := q.db.Query(ctx, listRules, enabledOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []AutomationRule{}
	for rows.Next() {
		i, err := scanRule(rows)
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

const getRule = `-- name: GetRule :one
SELECT ` + ruleColumns + ` FROM automation_rules WHERE id = $1
`

func (q *Queries) GetRule(ctx context.Context, id int32) (AutomationRule, error) {
	i, err := scanRule(q.db.QueryRow(ctx, getRule, id))
	return i, notFound(err)
}

type RuleParams struct {
	Name          string   `json:"name"`
	ContentType   string   `json:"content_type"`
	ChannelIDs    []int32  `json:"channel_ids"`
	TimeSlots     []string `json:"time_slots"`
	JitterMinutes int32    `json:"jitter_minutes"`
	DaysOfWeek    []int32  `json:"days_of_week"`
	UseAI         bool     `json:"use_ai"`
	IncludeImage  bool     `json:"include_image"`
	Enabled       bool     `json:"enabled"`
}

const createRule = `-- name: CreateRule :one
INSERT INTO automation_rules (name, content_type, channel_ids, time_slots, jitter_minutes, days_of_week, use_ai, include_image, enabled)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + ruleColumns

func (q *Queries) CreateRule(ctx context.Context, arg RuleParams) (AutomationRule, error) {
	return scanRule(q.db.QueryRow(ctx, createRule,
		arg.Name,
		arg.ContentType,
		nonNilInt32s(arg.ChannelIDs),
		nonNilStrings(arg.TimeSlots),
		arg.JitterMinutes,
		nonNilInt32s(arg.DaysOfWeek),
		arg.UseAI,
		arg.IncludeImage,
		arg.Enabled,
	))
}

const updateRule = `-- name: UpdateRule :one
UPDATE automation_rules SET
    name = $2,
    content_type = $3,
    channel_ids = $4,
    time_slots = $5,
    jitter_minutes = $6,
    days_of_week = $7,
    use_ai = $8,
    include_image = $9,
    enabled = $10,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + ruleColumns

func (q *Queries) UpdateRule(ctx context.Context, id int32, arg RuleParams) (AutomationRule, error) {
	i, err := scanRule(q.db.QueryRow(ctx, updateRule,
		id,
		arg.Name,
		arg.ContentType,
		nonNilInt32s(arg.ChannelIDs),
		nonNilStrings(arg.TimeSlots),
		arg.JitterMinutes,
		nonNilInt32s(arg.DaysOfWeek),
		arg.UseAI,
		arg.IncludeImage,
		arg.Enabled,
	))
	return i, notFound(err)
}

const deleteRule = `-- name: DeleteRule :exec
DELETE FROM automation_rules WHERE id = $1
`

func (q *Queries) DeleteRule(ctx context.Context, id int32) error {
	tag, err := q.db.Exec(ctx, deleteRule, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const touchRule = `-- name: TouchRule :exec
UPDATE automation_rules SET last_run_at = $2 WHERE id = $1
`

func (q *Queries) TouchRule(ctx context.Context, id int32, at time.Time) error {
	_, err := q.db.Exec(ctx, touchRule, id, at)
	return err
}
