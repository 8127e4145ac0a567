package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type mockDB struct {
	execTag   string
	execErr   error
	lastSQL   string
	lastArgs  []interface{}
	rowValues []interface{}
	rowErr    error
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	m.lastSQL = sql
	m.lastArgs = args
	return pgconn.NewCommandTag(m.execTag), m.execErr
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	m.lastSQL = sql
	m.lastArgs = args
	return &mockRow{values: m.rowValues, err: m.rowErr}
}

type mockRow struct {
	values []interface{}
	err    error
}

func (r *mockRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		if i >= len(r.values) {
			break
		}
		switch d := dest[i].(type) {
		case *bool:
			*d = r.values[i].(bool)
		case *int64:
			*d = r.values[i].(int64)
		}
	}
	return nil
}

func TestInsertContentUniqueness(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		want bool
	}{
		{name: "new row", tag: "INSERT 0 1", want: true},
		{name: "conflict", tag: "INSERT 0 0", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &mockDB{execTag: tt.tag}
			q := New(db)

			got, err := q.InsertContentUniqueness(context.Background(), InsertContentUniquenessParams{
				ChannelID:   1,
				ContentType: "news",
				ContentHash: "abc",
				ContentKey:  "key",
			})
			if err != nil {
				t.Fatalf("InsertContentUniqueness() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("InsertContentUniqueness() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(db.lastSQL, "ON CONFLICT (channel_id, content_hash) DO NOTHING") {
				t.Error("insert must be conflict-tolerant")
			}
		})
	}
}

func TestDeleteChannel_NotFound(t *testing.T) {
	q := New(&mockDB{execTag: "DELETE 0"})
	if err := q.DeleteChannel(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteChannel() error = %v, want ErrNotFound", err)
	}
}

func TestGetSetting_NoRows(t *testing.T) {
	q := New(&mockDB{rowErr: pgx.ErrNoRows})
	if _, err := q.GetSetting(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSetting() error = %v, want ErrNotFound", err)
	}
}

func TestHasSuccessfulSlot(t *testing.T) {
	db := &mockDB{rowValues: []interface{}{true}}
	q := New(db)

	ok, err := q.HasSuccessfulSlot(context.Background(), "3@2025-01-01T09:00", 4)
	if err != nil {
		t.Fatalf("HasSuccessfulSlot() error = %v", err)
	}
	if !ok {
		t.Error("HasSuccessfulSlot() = false, want true")
	}
	if db.lastArgs[0] != "3@2025-01-01T09:00" || db.lastArgs[1] != int32(4) {
		t.Errorf("unexpected args %v", db.lastArgs)
	}
}

func TestChannelAccepts(t *testing.T) {
	tests := []struct {
		name    string
		types   []string
		content string
		want    bool
	}{
		{name: "empty accepts all", types: nil, content: "news", want: true},
		{name: "listed", types: []string{"news", "polls"}, content: "polls", want: true},
		{name: "not listed", types: []string{"news"}, content: "coupons", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Channel{ContentTypes: tt.types}
			if got := c.Accepts(tt.content); got != tt.want {
				t.Errorf("Accepts(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}
