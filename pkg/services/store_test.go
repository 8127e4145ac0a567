package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goalcast/core/pkg/database"
)

// memStore is an in-memory stand-in for *database.Queries.
type memStore struct {
	mu sync.Mutex

	channels    map[int32]database.Channel
	rules       map[int32]database.AutomationRule
	logs        []database.AutomationLog
	settings    map[string]json.RawMessage
	posts       map[int32]database.ManualPost
	managers    map[string]database.Manager
	sessions    map[string]database.ManagerSession
	uniqueKeys  int64
	nextID      int32
	touchedRule map[int32]time.Time
	now         func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		channels:    map[int32]database.Channel{},
		rules:       map[int32]database.AutomationRule{},
		settings:    map[string]json.RawMessage{},
		posts:       map[int32]database.ManualPost{},
		managers:    map[string]database.Manager{},
		sessions:    map[string]database.ManagerSession{},
		touchedRule: map[int32]time.Time{},
		now:         time.Now,
	}
}

func (m *memStore) ListChannels(_ context.Context, activeOnly bool) ([]database.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Channel
	for _, ch := range m.channels {
		if activeOnly && !ch.IsActive {
			continue
		}
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetChannel(_ context.Context, id int32) (database.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok {
		return database.Channel{}, database.ErrNotFound
	}
	return ch, nil
}

func (m *memStore) GetChannelsByIDs(_ context.Context, ids []int32) ([]database.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Channel
	for _, id := range ids {
		if ch, ok := m.channels[id]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (m *memStore) CreateLog(_ context.Context, arg database.CreateLogParams) (database.AutomationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := database.AutomationLog{
		ID:             int64(len(m.logs) + 1),
		RuleID:         arg.RuleID,
		ChannelID:      arg.ChannelID,
		ContentType:    arg.ContentType,
		SlotKey:        arg.SlotKey,
		Status:         arg.Status,
		MessageID:      arg.MessageID,
		Error:          arg.Error,
		ContentPreview: arg.ContentPreview,
		CreatedAt:      m.now(),
	}
	m.logs = append(m.logs, l)
	return l, nil
}

func (m *memStore) logsWithStatus(status string) []database.AutomationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.AutomationLog
	for _, l := range m.logs {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out
}

func (m *memStore) GetSetting(_ context.Context, key string) (database.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[key]
	if !ok {
		return database.Setting{}, database.ErrNotFound
	}
	return database.Setting{Key: key, Value: v}, nil
}

func (m *memStore) ListRules(_ context.Context, enabledOnly bool) ([]database.AutomationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.AutomationRule
	for _, r := range m.rules {
		if enabledOnly && !r.Enabled {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetRule(_ context.Context, id int32) (database.AutomationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return database.AutomationRule{}, database.ErrNotFound
	}
	return r, nil
}

func (m *memStore) TouchRule(_ context.Context, id int32, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touchedRule[id] = at
	return nil
}

func (m *memStore) countLogs(match func(database.AutomationLog) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, l := range m.logs {
		if match(l) {
			n++
		}
	}
	return n
}

func (m *memStore) HasSuccessfulSlot(_ context.Context, slotKey string, channelID int32) (bool, error) {
	return m.countLogs(func(l database.AutomationLog) bool {
		return l.Status == database.LogStatusSuccess && l.SlotKey != nil && *l.SlotKey == slotKey &&
			l.ChannelID != nil && *l.ChannelID == channelID
	}) > 0, nil
}

func (m *memStore) CountSlotFailures(_ context.Context, slotKey string, channelID int32) (int64, error) {
	return m.countLogs(func(l database.AutomationLog) bool {
		return l.Status == database.LogStatusFailed && l.SlotKey != nil && *l.SlotKey == slotKey &&
			l.ChannelID != nil && *l.ChannelID == channelID
	}), nil
}

func (m *memStore) CountChannelPostsSince(_ context.Context, channelID int32, since time.Time) (int64, error) {
	return m.countLogs(func(l database.AutomationLog) bool {
		return l.Status == database.LogStatusSuccess && l.ChannelID != nil && *l.ChannelID == channelID &&
			!l.CreatedAt.Before(since)
	}), nil
}

func (m *memStore) CountLogsByStatusSince(_ context.Context, since time.Time) ([]database.StatusCount, error) {
	counts := map[string]int64{}
	m.mu.Lock()
	for _, l := range m.logs {
		if !l.CreatedAt.Before(since) {
			counts[l.Status]++
		}
	}
	m.mu.Unlock()
	var out []database.StatusCount
	for s, c := range counts {
		out = append(out, database.StatusCount{Status: s, Count: c})
	}
	return out, nil
}

func (m *memStore) CountContentUniqueness(context.Context) (int64, error) {
	return m.uniqueKeys, nil
}

func (m *memStore) ListManualPosts(_ context.Context, status *string, limit, offset int32) ([]database.ManualPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.ManualPost
	for _, p := range m.posts {
		if status == nil || p.Status == *status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) GetManualPost(_ context.Context, id int32) (database.ManualPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return database.ManualPost{}, database.ErrNotFound
	}
	return p, nil
}

func (m *memStore) CreateManualPost(_ context.Context, arg database.ManualPostParams) (database.ManualPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p := database.ManualPost{
		ID:          m.nextID,
		Title:       arg.Title,
		Content:     arg.Content,
		ImageURL:    arg.ImageURL,
		ChannelIDs:  arg.ChannelIDs,
		Status:      arg.Status,
		ScheduledAt: arg.ScheduledAt,
		CreatedBy:   arg.CreatedBy,
	}
	m.posts[p.ID] = p
	return p, nil
}

func (m *memStore) UpdateManualPost(_ context.Context, id int32, arg database.ManualPostParams) (database.ManualPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return database.ManualPost{}, database.ErrNotFound
	}
	p.Title, p.Content, p.ImageURL = arg.Title, arg.Content, arg.ImageURL
	p.ChannelIDs, p.Status, p.ScheduledAt = arg.ChannelIDs, arg.Status, arg.ScheduledAt
	m.posts[id] = p
	return p, nil
}

func (m *memStore) DeleteManualPost(_ context.Context, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memStore) SetManualPostResult(_ context.Context, id int32, status string, sentAt *time.Time, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return database.ErrNotFound
	}
	p.Status, p.SentAt, p.Error = status, sentAt, errMsg
	m.posts[id] = p
	return nil
}

func (m *memStore) ClaimDueManualPosts(_ context.Context, now time.Time, limit int32) ([]database.ManualPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.ManualPost
	for id, p := range m.posts {
		if int32(len(out)) == limit {
			break
		}
		if p.Status == database.PostStatusScheduled && p.ScheduledAt != nil && !p.ScheduledAt.After(now) {
			p.Status = database.PostStatusSent
			p.SentAt = &now
			m.posts[id] = p
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) GetManagerByEmail(_ context.Context, email string) (database.Manager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mg, ok := m.managers[email]
	if !ok {
		return database.Manager{}, database.ErrNotFound
	}
	return mg, nil
}

func (m *memStore) UpsertManager(_ context.Context, arg database.CreateManagerParams) (database.Manager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mg, ok := m.managers[arg.Email]
	if !ok {
		m.nextID++
		mg = database.Manager{ID: m.nextID, Email: arg.Email, IsActive: true}
	}
	mg.Name, mg.PasswordHash, mg.Role = arg.Name, arg.PasswordHash, arg.Role
	m.managers[arg.Email] = mg
	return mg, nil
}

func (m *memStore) TouchManagerLogin(context.Context, int32, time.Time) error { return nil }

func (m *memStore) CreateSession(_ context.Context, token string, managerID int32, expiresAt time.Time) (database.ManagerSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := database.ManagerSession{Token: token, ManagerID: managerID, ExpiresAt: expiresAt}
	m.sessions[token] = s
	return s, nil
}

func (m *memStore) GetSessionManager(_ context.Context, token string, now time.Time) (database.Manager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok || !s.ExpiresAt.After(now) {
		return database.Manager{}, database.ErrNotFound
	}
	for _, mg := range m.managers {
		if mg.ID == s.ManagerID {
			return mg, nil
		}
	}
	return database.Manager{}, database.ErrNotFound
}

func (m *memStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return database.ErrNotFound
	}
	delete(m.sessions, token)
	return nil
}

func (m *memStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for token, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

// recordingSender captures Telegram calls. failChats makes sends to those
// chats fail.
type recordingSender struct {
	mu        sync.Mutex
	messages  []string
	polls     []string
	failChats map[string]bool
}

var errSendFailed = errors.New("telegram: Bad Request: chat not found")

func (s *recordingSender) SendMessage(_ context.Context, chat, text string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failChats[chat] {
		return 0, errSendFailed
	}
	s.messages = append(s.messages, chat+"|"+text)
	return len(s.messages) + len(s.polls), nil
}

func (s *recordingSender) SendPhoto(ctx context.Context, chat, _, caption string) (int, error) {
	return s.SendMessage(ctx, chat, caption)
}

func (s *recordingSender) SendPoll(_ context.Context, chat, question string, _ []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failChats[chat] {
		return 0, errSendFailed
	}
	s.polls = append(s.polls, chat+"|"+question)
	return len(s.messages) + len(s.polls), nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages) + len(s.polls)
}

type memMarker struct {
	mu   sync.Mutex
	used map[string]bool
}

func newMemMarker() *memMarker { return &memMarker{used: map[string]bool{}} }

func (m *memMarker) IsUsed(_ context.Context, channelID int32, contentType, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used[markKey(channelID, contentType, key)], nil
}

func (m *memMarker) MarkUsed(_ context.Context, channelID int32, contentType, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := markKey(channelID, contentType, key)
	if m.used[k] {
		return false, nil
	}
	m.used[k] = true
	return true, nil
}

func (m *memMarker) Release(_ context.Context, channelID int32, contentType, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.used, markKey(channelID, contentType, key))
	return nil
}

func markKey(channelID int32, contentType, key string) string {
	return fmt.Sprintf("%d|%s|%s", channelID, contentType, key)
}
