package scheduler

import (
	"testing"
	"time"

	"github.com/goalcast/core/pkg/database"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		hour    int
		minute  int
		wantErr bool
	}{
		{input: "09:30", hour: 9, minute: 30},
		{input: " 23:59 ", hour: 23, minute: 59},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "noon", wantErr: true},
		{input: "1:2:3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			h, m, err := ParseClock(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClock() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (h != tt.hour || m != tt.minute) {
				t.Errorf("ParseClock() = %d:%d", h, m)
			}
		})
	}
}

func TestJitterBoundsAndDeterminism(t *testing.T) {
	seen := map[time.Duration]bool{}
	for day := 1; day <= 60; day++ {
		date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day).Format("2006-01-02")
		j := Jitter(7, date, "09:00", 15)
		if j < -15*time.Minute || j > 15*time.Minute {
			t.Fatalf("jitter %v out of bounds", j)
		}
		if j != Jitter(7, date, "09:00", 15) {
			t.Fatal("jitter must be deterministic")
		}
		seen[j] = true
	}
	if len(seen) < 5 {
		t.Errorf("jitter barely varies across days: %d distinct values", len(seen))
	}
	if Jitter(7, "2024-01-01", "09:00", 0) != 0 {
		t.Error("zero jitter must not move the slot")
	}
}

func TestBuildTimeline(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// Saturday
	date := time.Date(2024, 5, 4, 10, 0, 0, 0, loc)

	channels := []database.Channel{
		{ID: 1, IsActive: true},
		{ID: 2, IsActive: false},
		{ID: 3, IsActive: true, ContentTypes: []string{"news"}},
	}
	rules := []database.AutomationRule{
		{ID: 1, Name: "tips", ContentType: "betting_tips", ChannelIDs: []int32{1, 2, 3}, TimeSlots: []string{"18:00", "09:00", "bad"}, Enabled: true},
		{ID: 2, Name: "weekdays", ContentType: "news", ChannelIDs: []int32{1}, TimeSlots: []string{"08:00"}, DaysOfWeek: []int32{1, 2, 3, 4, 5}, Enabled: true},
		{ID: 3, Name: "disabled", ContentType: "news", ChannelIDs: []int32{1}, TimeSlots: []string{"08:00"}, Enabled: false},
		{ID: 4, Name: "news", ContentType: "news", ChannelIDs: []int32{3}, TimeSlots: []string{"12:00"}, JitterMinutes: 10, DaysOfWeek: []int32{6}, Enabled: true},
		{ID: 5, Name: "no channels", ContentType: "polls", ChannelIDs: []int32{2}, TimeSlots: []string{"12:00"}, Enabled: true},
	}

	slots := BuildTimeline(rules, channels, date, loc)
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d: %+v", len(slots), slots)
	}

	if slots[0].Key != "1@2024-05-04T09:00" || slots[2].Key != "1@2024-05-04T18:00" {
		t.Errorf("unexpected order/keys: %s, %s, %s", slots[0].Key, slots[1].Key, slots[2].Key)
	}
	if len(slots[0].ChannelIDs) != 1 || slots[0].ChannelIDs[0] != 1 {
		t.Errorf("tips should only target channel 1, got %v", slots[0].ChannelIDs)
	}

	news := slots[1]
	if news.RuleID != 4 {
		t.Fatalf("expected news slot second, got rule %d", news.RuleID)
	}
	if d := news.At.Sub(news.Scheduled); d < -10*time.Minute || d > 10*time.Minute {
		t.Errorf("jitter %v out of bounds", d)
	}
	if news.Scheduled.Location() != loc || news.Scheduled.Hour() != 12 {
		t.Errorf("slot not in rule timezone: %v", news.Scheduled)
	}

	again := BuildTimeline(rules, channels, date.Add(5*time.Hour), loc)
	for i := range slots {
		if !slots[i].At.Equal(again[i].At) {
			t.Errorf("timeline differs between invocations on the same day at %d", i)
		}
	}
}

func TestDue(t *testing.T) {
	base := time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)
	slots := []Slot{
		{Key: "a", At: base.Add(-15 * time.Minute)},
		{Key: "b", At: base.Add(-10 * time.Minute)},
		{Key: "c", At: base.Add(-time.Minute)},
		{Key: "d", At: base},
		{Key: "e", At: base.Add(time.Minute)},
	}

	due := Due(slots, base, 10*time.Minute)
	var keys []string
	for _, s := range due {
		keys = append(keys, s.Key)
	}
	if len(keys) != 2 || keys[0] != "c" || keys[1] != "d" {
		t.Errorf("Due() = %v, want [c d]", keys)
	}

	up := Upcoming(slots, base, 1)
	if len(up) != 1 || up[0].Key != "e" {
		t.Errorf("Upcoming() = %+v", up)
	}
}

func TestBuildAroundCrossesMidnight(t *testing.T) {
	channels := []database.Channel{{ID: 1, IsActive: true}}
	rules := []database.AutomationRule{
		{ID: 1, Name: "midnight", ContentType: "news", ChannelIDs: []int32{1}, TimeSlots: []string{"00:00"}, JitterMinutes: 30, Enabled: true},
	}
	// Jitter for 2026-03-04 00:00 is -12m.
	now := time.Date(2026, 3, 3, 23, 50, 0, 0, time.UTC)

	if due := Due(BuildTimeline(rules, channels, now, time.UTC), now, 10*time.Minute); len(due) != 0 {
		t.Fatalf("today's timeline should not hold tomorrow's slot, got %+v", due)
	}

	due := Due(BuildAround(rules, channels, now, time.UTC), now, 10*time.Minute)
	if len(due) != 1 {
		t.Fatalf("expected 1 due slot, got %d: %+v", len(due), due)
	}
	if due[0].Key != "1@2026-03-04T00:00" {
		t.Errorf("unexpected key %s", due[0].Key)
	}
	if want := time.Date(2026, 3, 3, 23, 48, 0, 0, time.UTC); !due[0].At.Equal(want) {
		t.Errorf("slot at %v, want %v", due[0].At, want)
	}

	keys := map[string]bool{}
	for _, s := range BuildAround(rules, channels, now, time.UTC) {
		if keys[s.Key] {
			t.Errorf("duplicate slot %s", s.Key)
		}
		keys[s.Key] = true
	}
	if len(keys) != 3 {
		t.Errorf("expected one slot per day for three days, got %d", len(keys))
	}
}
