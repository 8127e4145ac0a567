package sportsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Fixture is one match as returned by /fixtures.
type Fixture struct {
	Fixture FixtureInfo `json:"fixture"`
	League  League      `json:"league"`
	Teams   Teams       `json:"teams"`
	Goals   Goals       `json:"goals"`
}

type FixtureInfo struct {
	ID        int       `json:"id"`
	Referee   string    `json:"referee"`
	Timezone  string    `json:"timezone"`
	Date      time.Time `json:"date"`
	Timestamp int64     `json:"timestamp"`
	Venue     Venue     `json:"venue"`
	Status    Status    `json:"status"`
}

type Venue struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

type Status struct {
	Long    string `json:"long"`
	Short   string `json:"short"`
	Elapsed *int   `json:"elapsed"`
}

type League struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Logo    string `json:"logo"`
	Season  int    `json:"season"`
	Round   string `json:"round"`
}

type Teams struct {
	Home Team `json:"home"`
	Away Team `json:"away"`
}

type Team struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Logo   string `json:"logo"`
	Winner *bool  `json:"winner"`
}

type Goals struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

var (
	liveStatuses     = map[string]bool{"1H": true, "HT": true, "2H": true, "ET": true, "BT": true, "P": true, "LIVE": true, "INT": true, "SUSP": true}
	finishedStatuses = map[string]bool{"FT": true, "AET": true, "PEN": true}
	upcomingStatuses = map[string]bool{"NS": true, "TBD": true}
)

func (f Fixture) ID() int { return f.Fixture.ID }

// Kickoff returns the scheduled start in UTC.
func (f Fixture) Kickoff() time.Time {
	if !f.Fixture.Date.IsZero() {
		return f.Fixture.Date.UTC()
	}
	if f.Fixture.Timestamp > 0 {
		return time.Unix(f.Fixture.Timestamp, 0).UTC()
	}
	return time.Time{}
}

func (f Fixture) IsLive() bool     { return liveStatuses[f.Fixture.Status.Short] }
func (f Fixture) IsFinished() bool { return finishedStatuses[f.Fixture.Status.Short] }
func (f Fixture) IsUpcoming() bool { return upcomingStatuses[f.Fixture.Status.Short] }

// Elapsed returns the minute of play, 0 when unknown.
func (f Fixture) Elapsed() int {
	if f.Fixture.Status.Elapsed == nil {
		return 0
	}
	return *f.Fixture.Status.Elapsed
}

// Score returns the current score, with missing goals as 0.
func (f Fixture) Score() (home, away int) {
	if f.Goals.Home != nil {
		home = *f.Goals.Home
	}
	if f.Goals.Away != nil {
		away = *f.Goals.Away
	}
	return home, away
}

// Title renders "Home vs Away".
func (f Fixture) Title() string {
	return f.Teams.Home.Name + " vs " + f.Teams.Away.Name
}

// Event is a match incident from /fixtures/events.
type Event struct {
	Time struct {
		Elapsed int  `json:"elapsed"`
		Extra   *int `json:"extra"`
	} `json:"time"`
	Team struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	Player struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"player"`
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// IsGoal reports whether the event changed the score.
func (e Event) IsGoal() bool {
	return e.Type == "Goal" && e.Detail != "Missed Penalty"
}

// Odds holds the markets used for tips.
type Odds struct {
	FixtureID   int        `json:"fixture_id"`
	Bookmaker   string     `json:"bookmaker"`
	MatchWinner *ThreeWay  `json:"match_winner,omitempty"`
	OverUnder25 *OverUnder `json:"over_under_25,omitempty"`
	BothScore   *YesNo     `json:"both_teams_score,omitempty"`
}

type ThreeWay struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

type OverUnder struct {
	Over  float64 `json:"over"`
	Under float64 `json:"under"`
}

type YesNo struct {
	Yes float64 `json:"yes"`
	No  float64 `json:"no"`
}

type oddsResponse struct {
	Fixture struct {
		ID int `json:"id"`
	} `json:"fixture"`
	Bookmakers []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
		Bets []struct {
			ID     int    `json:"id"`
			Name   string `json:"name"`
			Values []struct {
				Value string `json:"value"`
				Odd   string `json:"odd"`
			} `json:"values"`
		} `json:"bets"`
	} `json:"bookmakers"`
}

// FixturesByDate lists fixtures on the given calendar day in tz.
func (c *Client) FixturesByDate(ctx context.Context, date time.Time, tz string) ([]Fixture, error) {
	params := map[string]string{"date": date.Format("2006-01-02")}
	if tz != "" {
		params["timezone"] = tz
	}
	return c.fixtures(ctx, params, true)
}

// LiveFixtures lists fixtures currently in play. Never cached.
func (c *Client) LiveFixtures(ctx context.Context) ([]Fixture, error) {
	return c.fixtures(ctx, map[string]string{"live": "all"}, false)
}

func (c *Client) fixtures(ctx context.Context, params map[string]string, cacheable bool) ([]Fixture, error) {
	resp, err := c.get(ctx, "/fixtures", params, cacheable)
	if err != nil {
		return nil, fmt.Errorf("failed to get fixtures: %w", err)
	}

	var fixtures []Fixture
	if err := json.Unmarshal(resp.Response, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fixtures response: %w", err)
	}
	return fixtures, nil
}

// FixtureEvents lists goals, cards and substitutions for a fixture.
func (c *Client) FixtureEvents(ctx context.Context, fixtureID int) ([]Event, error) {
	resp, err := c.get(ctx, "/fixtures/events", map[string]string{"fixture": strconv.Itoa(fixtureID)}, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get fixture events: %w", err)
	}

	var events []Event
	if err := json.Unmarshal(resp.Response, &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal events response: %w", err)
	}
	return events, nil
}

// FixtureOdds returns pre-match odds from the first bookmaker carrying
// them. A fixture without odds yields (nil, nil).
func (c *Client) FixtureOdds(ctx context.Context, fixtureID int) (*Odds, error) {
	resp, err := c.get(ctx, "/odds", map[string]string{"fixture": strconv.Itoa(fixtureID)}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get odds: %w", err)
	}

	var raw []oddsResponse
	if err := json.Unmarshal(resp.Response, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal odds response: %w", err)
	}
	return parseOdds(fixtureID, raw), nil
}

func parseOdds(fixtureID int, raw []oddsResponse) *Odds {
	for _, r := range raw {
		for _, bm := range r.Bookmakers {
			odds := &Odds{FixtureID: fixtureID, Bookmaker: bm.Name}
			for _, bet := range bm.Bets {
				values := make(map[string]float64, len(bet.Values))
				for _, v := range bet.Values {
					if f, err := strconv.ParseFloat(strings.TrimSpace(v.Odd), 64); err == nil {
						values[v.Value] = f
					}
				}
				switch bet.Name {
				case "Match Winner":
					if values["Home"] > 0 && values["Draw"] > 0 && values["Away"] > 0 {
						odds.MatchWinner = &ThreeWay{Home: values["Home"], Draw: values["Draw"], Away: values["Away"]}
					}
				case "Goals Over/Under":
					if values["Over 2.5"] > 0 && values["Under 2.5"] > 0 {
						odds.OverUnder25 = &OverUnder{Over: values["Over 2.5"], Under: values["Under 2.5"]}
					}
				case "Both Teams Score":
					if values["Yes"] > 0 && values["No"] > 0 {
						odds.BothScore = &YesNo{Yes: values["Yes"], No: values["No"]}
					}
				}
			}
			if odds.MatchWinner != nil || odds.OverUnder25 != nil {
				return odds
			}
		}
	}
	return nil
}
