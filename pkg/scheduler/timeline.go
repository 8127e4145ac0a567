// Package scheduler expands automation rules into a daily timeline of
// posting slots.
package scheduler

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goalcast/core/pkg/database"
)

// Slot is one planned post of a rule.
type Slot struct {
	RuleID       int32     `json:"rule_id"`
	RuleName     string    `json:"rule_name"`
	ContentType  string    `json:"content_type"`
	ChannelIDs   []int32   `json:"channel_ids"`
	UseAI        bool      `json:"use_ai"`
	IncludeImage bool      `json:"include_image"`
	Scheduled    time.Time `json:"scheduled"`
	At           time.Time `json:"at"`
	Key          string    `json:"key"`
}

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time slot %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in time slot %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in time slot %q", s)
	}
	return hour, minute, nil
}

// SlotKey identifies a nominal slot of a rule; jitter does not change it.
func SlotKey(ruleID int32, scheduled time.Time) string {
	return fmt.Sprintf("%d@%s", ruleID, scheduled.Format("2006-01-02T15:04"))
}

// Jitter returns the offset for a slot, uniform over [-max, +max] minutes.
// The same rule, date and slot always get the same offset.
func Jitter(ruleID int32, date string, slot string, maxMinutes int32) time.Duration {
	if maxMinutes <= 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%d|%s|%s", ruleID, date, slot)
	span := uint64(2*maxMinutes + 1)
	offset := int64(h.Sum64()%span) - int64(maxMinutes)
	return time.Duration(offset) * time.Minute
}

func runsOn(rule database.AutomationRule, day time.Weekday) bool {
	if len(rule.DaysOfWeek) == 0 {
		return true
	}
	for _, d := range rule.DaysOfWeek {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}

// targetChannels keeps the rule's channels that are active and accept its
// content type. A nil channels map skips the filter.
func targetChannels(rule database.AutomationRule, channels map[int32]database.Channel) []int32 {
	if channels == nil {
		return rule.ChannelIDs
	}
	out := make([]int32, 0, len(rule.ChannelIDs))
	for _, id := range rule.ChannelIDs {
		ch, ok := channels[id]
		if !ok || !ch.IsActive || !ch.Accepts(rule.ContentType) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// BuildTimeline expands enabled rules into slots for the calendar day of
// date in loc, sorted by jittered time. Invalid time slots are skipped.
func BuildTimeline(rules []database.AutomationRule, channels []database.Channel, date time.Time, loc *time.Location) []Slot {
	if loc == nil {
		loc = time.UTC
	}
	local := date.In(loc)
	year, month, day := local.Date()
	dateKey := local.Format("2006-01-02")

	var byID map[int32]database.Channel
	if channels != nil {
		byID = make(map[int32]database.Channel, len(channels))
		for _, ch := range channels {
			byID[ch.ID] = ch
		}
	}

	var slots []Slot
	for _, rule := range rules {
		if !rule.Enabled || !runsOn(rule, local.Weekday()) {
			continue
		}
		targets := targetChannels(rule, byID)
		if len(targets) == 0 {
			continue
		}

		for _, clock := range rule.TimeSlots {
			hour, minute, err := ParseClock(clock)
			if err != nil {
				continue
			}
			scheduled := time.Date(year, month, day, hour, minute, 0, 0, loc)
			slots = append(slots, Slot{
				RuleID:       rule.ID,
				RuleName:     rule.Name,
				ContentType:  rule.ContentType,
				ChannelIDs:   targets,
				UseAI:        rule.UseAI,
				IncludeImage: rule.IncludeImage,
				Scheduled:    scheduled,
				At:           scheduled.Add(Jitter(rule.ID, dateKey, clock, rule.JitterMinutes)),
				Key:          SlotKey(rule.ID, scheduled),
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].At.Equal(slots[j].At) {
			return slots[i].At.Before(slots[j].At)
		}
		return slots[i].RuleID < slots[j].RuleID
	})
	return slots
}

// BuildAround returns the timelines of the days before, of and after now.
// Jitter can move a slot across midnight in either direction, so a single
// day's timeline misses slots near its edges.
func BuildAround(rules []database.AutomationRule, channels []database.Channel, now time.Time, loc *time.Location) []Slot {
	if loc == nil {
		loc = time.UTC
	}
	today := now.In(loc)
	var slots []Slot
	for _, offset := range []int{-1, 0, 1} {
		slots = append(slots, BuildTimeline(rules, channels, today.AddDate(0, 0, offset), loc)...)
	}
	return slots
}

// Due returns the slots whose time falls in (now-window, now].
func Due(slots []Slot, now time.Time, window time.Duration) []Slot {
	from := now.Add(-window)
	var due []Slot
	for _, s := range slots {
		if s.At.After(from) && !s.At.After(now) {
			due = append(due, s)
		}
	}
	return due
}

// Upcoming returns the slots after now, at most limit of them (0 = all).
func Upcoming(slots []Slot, now time.Time, limit int) []Slot {
	var out []Slot
	for _, s := range slots {
		if s.At.After(now) {
			out = append(out, s)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}
