package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goalcast/core/pkg/content"
	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/rss"
	"github.com/goalcast/core/pkg/scheduler"
	"github.com/goalcast/core/pkg/telegram"
)

const (
	// A slot that failed this often is given up until the next one.
	maxSlotFailures = 3
	// Live updates sent to one channel per run at most.
	maxLiveUpdatesPerRun = 5
	previewLength        = 280
	// Content type under which slot keys are reserved per channel.
	slotReservation = "slot"
)

// errAlreadyPosted means a key was reserved by an earlier or concurrent run.
var errAlreadyPosted = errors.New("content already posted")

// Outcome of one post attempt.
const (
	OutcomePosted  = "posted"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// RunSummary counts what a run did.
type RunSummary struct {
	Due     int    `json:"due"`
	Posted  int    `json:"posted"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Reason  string `json:"reason,omitempty"`
}

func (s *RunSummary) add(outcome string) {
	switch outcome {
	case OutcomePosted:
		s.Posted++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

type AutomationOptions struct {
	Timezone  *time.Location
	DueWindow time.Duration
}

// AutomationService runs rules: generate, post, record.
type AutomationService struct {
	store    AutomationStore
	registry *content.Registry
	sender   telegram.Sender
	marker   Marker
	loc      *time.Location
	window   time.Duration
	logger   *logger.Logger
}

func NewAutomationService(store AutomationStore, registry *content.Registry, sender telegram.Sender, marker Marker, opts AutomationOptions) *AutomationService {
	if opts.Timezone == nil {
		opts.Timezone = time.UTC
	}
	if opts.DueWindow <= 0 {
		opts.DueWindow = 10 * time.Minute
	}
	return &AutomationService{
		store:    store,
		registry: registry,
		sender:   sender,
		marker:   marker,
		loc:      opts.Timezone,
		window:   opts.DueWindow,
		logger:   logger.New("automation-service"),
	}
}

// Enabled reports the global automation switch. Missing means on.
func (s *AutomationService) Enabled(ctx context.Context) bool {
	return settingBool(ctx, s.store, SettingAutomationEnabled, true)
}

// Timeline plans every active rule for the given day.
func (s *AutomationService) Timeline(ctx context.Context, date time.Time) ([]scheduler.Slot, error) {
	rules, err := s.store.ListRules(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	channels, err := s.store.ListChannels(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return scheduler.BuildTimeline(rules, channels, date.In(s.loc), s.loc), nil
}

// RunDue posts every slot that fell due within the window before now.
func (s *AutomationService) RunDue(ctx context.Context, now time.Time) (RunSummary, error) {
	var summary RunSummary
	if !s.Enabled(ctx) {
		summary.Reason = "automation disabled"
		return summary, nil
	}

	rules, err := s.store.ListRules(ctx, true)
	if err != nil {
		return summary, fmt.Errorf("failed to list rules: %w", err)
	}
	channels, err := s.store.ListChannels(ctx, true)
	if err != nil {
		return summary, fmt.Errorf("failed to list channels: %w", err)
	}
	byID := make(map[int32]database.Channel, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}

	due := scheduler.Due(scheduler.BuildAround(rules, channels, now, s.loc), now, s.window)
	summary.Due = len(due)

	for _, slot := range due {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		key := slot.Key
		for _, chID := range slot.ChannelIDs {
			ch, ok := byID[chID]
			if !ok {
				continue
			}
			summary.add(s.post(ctx, postJob{
				ruleID:       &slot.RuleID,
				slotKey:      &key,
				contentType:  slot.ContentType,
				channel:      ch,
				useAI:        slot.UseAI,
				includeImage: slot.IncludeImage,
				enforceCap:   true,
			}, now))
		}
		if err := s.store.TouchRule(ctx, slot.RuleID, now); err != nil {
			s.logger.Warn().Err(err).Int32("rule_id", slot.RuleID).Msg("Failed to update rule last run")
		}
	}

	if summary.Due > 0 {
		s.logger.Info().
			Str("action", "run_due_complete").
			Int("due", summary.Due).
			Int("posted", summary.Posted).
			Int("skipped", summary.Skipped).
			Int("failed", summary.Failed).
			Msg("Due slots processed")
	}
	return summary, nil
}

// RunRule fires a rule now for all of its channels, outside the timeline.
// Manual runs ignore the global switch and daily caps.
func (s *AutomationService) RunRule(ctx context.Context, ruleID int32, now time.Time) (RunSummary, error) {
	var summary RunSummary
	rule, err := s.store.GetRule(ctx, ruleID)
	if err != nil {
		return summary, err
	}
	channels, err := s.store.GetChannelsByIDs(ctx, rule.ChannelIDs)
	if err != nil {
		return summary, fmt.Errorf("failed to load rule channels: %w", err)
	}

	for _, ch := range channels {
		if !ch.IsActive || !ch.Accepts(rule.ContentType) {
			continue
		}
		summary.Due++
		summary.add(s.post(ctx, postJob{
			ruleID:       &rule.ID,
			contentType:  rule.ContentType,
			channel:      ch,
			useAI:        rule.UseAI,
			includeImage: rule.IncludeImage,
		}, now))
	}
	if err := s.store.TouchRule(ctx, rule.ID, now); err != nil {
		s.logger.Warn().Err(err).Int32("rule_id", rule.ID).Msg("Failed to update rule last run")
	}
	return summary, nil
}

type GenerateRequest struct {
	ContentType  string `json:"content_type"`
	ChannelID    int32  `json:"channel_id"`
	UseAI        bool   `json:"use_ai"`
	IncludeImage bool   `json:"include_image"`
	Preview      bool   `json:"preview"`
}

type GenerateResult struct {
	Content   *content.Content `json:"content"`
	Sent      bool             `json:"sent"`
	MessageID int              `json:"message_id,omitempty"`
}

// Generate builds content for a channel. Without Preview the content is
// posted, marked and logged like an automated post.
func (s *AutomationService) Generate(ctx context.Context, req GenerateRequest, now time.Time) (*GenerateResult, error) {
	if !content.ValidType(req.ContentType) {
		return nil, fmt.Errorf("%w: unknown content type %q", ErrInvalidInput, req.ContentType)
	}
	ch, err := s.store.GetChannel(ctx, req.ChannelID)
	if err != nil {
		return nil, err
	}

	c, err := s.registry.Generate(ctx, req.ContentType, content.Request{
		Channel:      ch,
		UseAI:        req.UseAI,
		IncludeImage: req.IncludeImage,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}
	result := &GenerateResult{Content: c}
	if req.Preview {
		return result, nil
	}

	msgID, err := s.deliver(ctx, ch, c)
	if errors.Is(err, errAlreadyPosted) {
		return nil, fmt.Errorf("%w: %s", ErrConflict, err)
	}
	s.record(ctx, postJob{contentType: req.ContentType, channel: ch}, c, msgID, err)
	if err != nil {
		return result, fmt.Errorf("failed to post to %s: %w", ch.Name, err)
	}
	result.Sent, result.MessageID = true, msgID
	return result, nil
}

// PostLiveUpdates sends new score states to channels that explicitly list
// live updates among their content types.
func (s *AutomationService) PostLiveUpdates(ctx context.Context, now time.Time) (RunSummary, error) {
	var summary RunSummary
	if !s.Enabled(ctx) {
		summary.Reason = "automation disabled"
		return summary, nil
	}
	channels, err := s.store.ListChannels(ctx, true)
	if err != nil {
		return summary, fmt.Errorf("failed to list channels: %w", err)
	}

	for _, ch := range channels {
		if !listsType(ch, content.TypeLiveUpdates) {
			continue
		}
		for i := 0; i < maxLiveUpdatesPerRun; i++ {
			summary.Due++
			outcome := s.post(ctx, postJob{
				contentType: content.TypeLiveUpdates,
				channel:     ch,
				useAI:       ch.Language != "" && ch.Language != "en",
				enforceCap:  true,
				quietSkip:   true,
			}, now)
			summary.add(outcome)
			if outcome != OutcomePosted {
				break
			}
		}
	}
	return summary, nil
}

func listsType(ch database.Channel, contentType string) bool {
	for _, t := range ch.ContentTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

type Stats struct {
	Since       time.Time        `json:"since"`
	ByStatus    map[string]int64 `json:"by_status"`
	Channels    int              `json:"channels"`
	ActiveRules int              `json:"active_rules"`
	UniqueKeys  int64            `json:"unique_keys"`
	NextSlots   []scheduler.Slot `json:"next_slots"`
	Automation  bool             `json:"automation_enabled"`
}

// Stats summarises today's activity in the automation timezone.
func (s *AutomationService) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	since := startOfDay(now, s.loc)
	counts, err := s.store.CountLogsByStatusSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count logs: %w", err)
	}
	channels, err := s.store.ListChannels(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	rules, err := s.store.ListRules(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	keys, err := s.store.CountContentUniqueness(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count content keys: %w", err)
	}

	stats := &Stats{
		Since:       since,
		ByStatus:    make(map[string]int64, len(counts)),
		Channels:    len(channels),
		ActiveRules: len(rules),
		UniqueKeys:  keys,
		Automation:  s.Enabled(ctx),
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
	}
	timeline := scheduler.BuildTimeline(rules, channels, now.In(s.loc), s.loc)
	stats.NextSlots = scheduler.Upcoming(timeline, now, 5)
	return stats, nil
}

type postJob struct {
	ruleID       *int32
	slotKey      *string
	contentType  string
	channel      database.Channel
	useAI        bool
	includeImage bool
	enforceCap   bool
	// quietSkip suppresses skipped log rows for polling runs.
	quietSkip bool
}

// post runs one generate → send → mark → log cycle.
func (s *AutomationService) post(ctx context.Context, job postJob, now time.Time) string {
	log := s.logger.WithChannel(job.channel.ID, job.channel.TelegramChatID)
	if job.ruleID != nil {
		log = log.WithRule(*job.ruleID, job.contentType)
	}

	if job.slotKey != nil {
		done, err := s.store.HasSuccessfulSlot(ctx, *job.slotKey, job.channel.ID)
		if err != nil {
			log.Error().Err(err).Str("action", "slot_check_failed").Msg("Failed to check slot")
			return OutcomeFailed
		}
		if done {
			return ""
		}
		failures, err := s.store.CountSlotFailures(ctx, *job.slotKey, job.channel.ID)
		if err == nil && failures >= maxSlotFailures {
			return ""
		}

		claimed, err := s.reserve(ctx, job.channel.ID, slotReservation, []string{*job.slotKey})
		if errors.Is(err, errAlreadyPosted) {
			return ""
		}
		if err != nil {
			log.Error().Err(err).Str("action", "slot_reserve_failed").Msg("Failed to reserve slot")
			return OutcomeFailed
		}
		outcome := s.generateAndSend(ctx, job, now, log)
		if outcome != OutcomePosted {
			s.release(ctx, job.channel.ID, slotReservation, claimed)
		}
		return outcome
	}

	return s.generateAndSend(ctx, job, now, log)
}

func (s *AutomationService) generateAndSend(ctx context.Context, job postJob, now time.Time, log *logger.Logger) string {
	if job.enforceCap && job.channel.MaxPostsPerDay > 0 {
		sent, err := s.store.CountChannelPostsSince(ctx, job.channel.ID, startOfDay(now, s.loc))
		if err != nil {
			log.Error().Err(err).Str("action", "cap_check_failed").Msg("Failed to count channel posts")
			return OutcomeFailed
		}
		if sent >= int64(job.channel.MaxPostsPerDay) {
			if !job.quietSkip {
				s.skip(ctx, job, "daily post cap reached")
			}
			return OutcomeSkipped
		}
	}

	start := time.Now()
	c, err := s.registry.Generate(ctx, job.contentType, content.Request{
		Channel:      job.channel,
		UseAI:        job.useAI,
		IncludeImage: job.includeImage,
		Now:          now,
	})
	if errors.Is(err, content.ErrNoContent) {
		if !job.quietSkip {
			s.skip(ctx, job, err.Error())
		}
		return OutcomeSkipped
	}
	if err != nil {
		s.record(ctx, job, nil, 0, fmt.Errorf("generate: %w", err))
		log.LogPost(job.channel.ID, job.contentType, database.LogStatusFailed, 0, time.Since(start), err)
		return OutcomeFailed
	}

	msgID, err := s.deliver(ctx, job.channel, c)
	if errors.Is(err, errAlreadyPosted) {
		if !job.quietSkip {
			s.skip(ctx, job, err.Error())
		}
		return OutcomeSkipped
	}
	s.record(ctx, job, c, msgID, err)
	if err != nil {
		log.LogPost(job.channel.ID, job.contentType, database.LogStatusFailed, 0, time.Since(start), err)
		return OutcomeFailed
	}
	log.LogPost(job.channel.ID, job.contentType, database.LogStatusSuccess, msgID, time.Since(start), nil)
	return OutcomePosted
}

// deliver reserves the keys of c, then sends it. The reservation insert is
// the dedupe gate: when any key is taken nothing is sent. Keys are released
// again when Telegram rejected the post before anything went out.
func (s *AutomationService) deliver(ctx context.Context, ch database.Channel, c *content.Content) (int, error) {
	claimed, err := s.reserve(ctx, ch.ID, c.Type, c.Keys)
	if err != nil {
		return 0, err
	}

	var msgID int
	if c.Poll != nil {
		msgID, err = s.sender.SendPoll(ctx, ch.TelegramChatID, c.Poll.Question, c.Poll.Options)
	} else {
		msgID, err = telegram.Publish(ctx, s.sender, ch.TelegramChatID, c.Text, c.ImageURL, s.logger)
	}
	if err != nil && msgID == 0 {
		s.release(ctx, ch.ID, c.Type, claimed)
	}
	return msgID, err
}

// reserve marks every key for the channel. If one is already taken the
// keys claimed so far are released and errAlreadyPosted is returned.
func (s *AutomationService) reserve(ctx context.Context, channelID int32, contentType string, keys []string) ([]string, error) {
	claimed := make([]string, 0, len(keys))
	for _, key := range keys {
		inserted, err := s.marker.MarkUsed(ctx, channelID, contentType, key)
		if err != nil || !inserted {
			s.release(ctx, channelID, contentType, claimed)
			if err != nil {
				return nil, fmt.Errorf("failed to reserve content key: %w", err)
			}
			return nil, errAlreadyPosted
		}
		claimed = append(claimed, key)
	}
	return claimed, nil
}

func (s *AutomationService) release(ctx context.Context, channelID int32, contentType string, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.marker.Release(ctx, channelID, contentType, key); err != nil {
			s.logger.Error().
				Err(err).
				Str("action", "release_key_failed").
				Int32("channel_id", channelID).
				Str("content_type", contentType).
				Msg("Failed to release content key")
		}
	}
}

func (s *AutomationService) skip(ctx context.Context, job postJob, reason string) {
	_, err := s.store.CreateLog(ctx, database.CreateLogParams{
		RuleID:      job.ruleID,
		ChannelID:   &job.channel.ID,
		ContentType: job.contentType,
		SlotKey:     job.slotKey,
		Status:      database.LogStatusSkipped,
		Error:       &reason,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("action", "log_write_failed").Msg("Failed to write automation log")
	}
}

func (s *AutomationService) record(ctx context.Context, job postJob, c *content.Content, msgID int, postErr error) {
	params := database.CreateLogParams{
		RuleID:      job.ruleID,
		ChannelID:   &job.channel.ID,
		ContentType: job.contentType,
		SlotKey:     job.slotKey,
		Status:      database.LogStatusSuccess,
	}
	if c != nil {
		preview := rss.Truncate(c.Text, previewLength)
		params.ContentPreview = &preview
	}
	if postErr != nil {
		msg := postErr.Error()
		params.Status = database.LogStatusFailed
		params.Error = &msg
	} else {
		id := int64(msgID)
		params.MessageID = &id
	}
	if _, err := s.store.CreateLog(ctx, params); err != nil {
		s.logger.Error().Err(err).Str("action", "log_write_failed").Msg("Failed to write automation log")
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
