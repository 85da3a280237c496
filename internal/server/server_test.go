package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"nba-props-analyzer/internal/analysis"
	"nba-props-analyzer/internal/history"
	"nba-props-analyzer/internal/oddsapi"
)

type fakeFeed struct {
	mu        sync.Mutex
	events    []oddsapi.Event
	odds      map[string]*oddsapi.EventOdds // key: eventID + ":" + market
	listCalls int
	oddsCalls int
}

func (f *fakeFeed) ListEvents(ctx context.Context, from, to time.Time) ([]oddsapi.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.events, nil
}

func (f *fakeFeed) GetEventOdds(ctx context.Context, eventID, markets string, bookmakers ...string) (*oddsapi.EventOdds, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oddsCalls++
	if odds, ok := f.odds[eventID+":"+markets]; ok {
		return odds, nil
	}
	return nil, &oddsapi.APIError{StatusCode: 404, Message: "no odds"}
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	return data, ok
}

func (m *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *memStore) Delete(ctx context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

const testCorpus = `Player,PTS,AST,ORB,DRB,REB,Date,MIN,Team,Opponent
Stephen Curry,30,6,1,4,5,1/10/2026,34:30,GSW,LAL
Stephen Curry,22,8,0,3,3,1/8/2026,36:00,GSW,DEN
Stephen Curry,28,5,1,2,3,1/6/2026,33:15,GSW,LAL
Stephen Curry,,,,,,1/4/2026,0,GSW,PHX
Seth Curry,12,2,0,2,2,1/9/2026,22:00,CHA,BOS
LeBron James,27,9,1,6,7,2026-01-10,38:00,LAL,GSW
`

func newTestProvider(t *testing.T) *history.Provider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game_logs.csv")
	if err := os.WriteFile(path, []byte(testCorpus), 0o644); err != nil {
		t.Fatal(err)
	}
	p := history.NewProvider(path)
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestServer(t *testing.T, feed *fakeFeed) *httptest.Server {
	t.Helper()
	provider := newTestProvider(t)
	store := newMemStore()
	analyzer := analysis.New(feed, provider, store, analysis.Config{})

	s := New(analyzer, feed, provider, store, Config{
		Regions:         "us",
		TZOffsetMinutes: 480,
		EventsCacheTTL:  5 * time.Minute,
		AllowedOrigins:  []string{"http://localhost:3000"},
	})
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeFeed{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestPlayersSearch(t *testing.T) {
	ts := newTestServer(t, &fakeFeed{})

	resp, err := http.Get(ts.URL + "/api/nba/players?q=curry")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Players []string `json:"players"`
		Count   int      `json:"count"`
	}
	decodeJSON(t, resp, &body)
	if body.Count != 2 {
		t.Errorf("count = %d, want 2 (both Currys)", body.Count)
	}
}

func TestPlayersFuzzyFallback(t *testing.T) {
	ts := newTestServer(t, &fakeFeed{})

	// Misspelled, so no substring match; fuzzy matching should recover it.
	resp, err := http.Get(ts.URL + "/api/nba/players?q=Stephan+Curry")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Players []string `json:"players"`
	}
	decodeJSON(t, resp, &body)
	if len(body.Players) != 1 || body.Players[0] != "Stephen Curry" {
		t.Errorf("players = %v, want [Stephen Curry]", body.Players)
	}
}

func TestPlayerHistory(t *testing.T) {
	ts := newTestServer(t, &fakeFeed{})

	resp, err := http.Get(ts.URL + "/api/nba/player-history?player=Stephen+Curry&metric=points&threshold=24.5")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stats history.Stats
	decodeJSON(t, resp, &stats)
	if stats.NGames != 3 {
		t.Errorf("NGames = %d, want 3 (DNP excluded by default)", stats.NGames)
	}
	if stats.POver == nil || math.Abs(*stats.POver-0.6667) > 1e-9 {
		t.Errorf("POver = %v, want 0.6667", stats.POver)
	}
}

func TestPlayerHistoryValidation(t *testing.T) {
	ts := newTestServer(t, &fakeFeed{})

	tests := []struct {
		name string
		url  string
	}{
		{"missing player", "/api/nba/player-history?threshold=24.5"},
		{"missing threshold", "/api/nba/player-history?player=Stephen+Curry"},
		{"bad metric", "/api/nba/player-history?player=Stephen+Curry&metric=steals&threshold=1.5"},
		{"negative n", "/api/nba/player-history?player=Stephen+Curry&threshold=24.5&n=-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.url)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestEventsCached(t *testing.T) {
	feed := &fakeFeed{events: []oddsapi.Event{{
		ID:           "ev-1",
		SportKey:     "basketball_nba",
		CommenceTime: time.Date(2026, 1, 17, 18, 0, 0, 0, time.UTC),
		HomeTeam:     "Boston Celtics",
		AwayTeam:     "Miami Heat",
	}}}
	ts := newTestServer(t, feed)

	url := ts.URL + "/api/nba/events?date=2026-01-17&tz_offset=0"
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Count int `json:"count"`
	}
	decodeJSON(t, resp, &body)
	if body.Count != 1 {
		t.Fatalf("count = %d, want 1", body.Count)
	}

	// Second request must come from the cache, not the feed.
	resp, err = http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	decodeJSON(t, resp, &body)
	if body.Count != 1 {
		t.Errorf("cached count = %d, want 1", body.Count)
	}

	feed.mu.Lock()
	defer feed.mu.Unlock()
	if feed.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1", feed.listCalls)
	}
}

func TestEventPlayers(t *testing.T) {
	pt := 24.5
	feed := &fakeFeed{odds: map[string]*oddsapi.EventOdds{
		"ev-1:player_points": {
			ID: "ev-1",
			Bookmakers: []oddsapi.Bookmaker{{
				Key: "draftkings",
				Markets: []oddsapi.Market{{
					Key: "player_points",
					Outcomes: []oddsapi.Outcome{
						{Name: "Over", Description: "Stephen Curry", Price: -110, Point: &pt},
						{Name: "Over", Description: "Draymond Green", Price: -110, Point: &pt},
					},
				}},
			}},
		},
	}}
	ts := newTestServer(t, feed)

	url := ts.URL + "/api/nba/events/ev-1/players"
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Players []string `json:"players"`
	}
	decodeJSON(t, resp, &body)
	want := []string{"Draymond Green", "Stephen Curry"}
	if len(body.Players) != 2 || body.Players[0] != want[0] || body.Players[1] != want[1] {
		t.Fatalf("players = %v, want %v", body.Players, want)
	}

	// Second request comes from the cache.
	resp, err = http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	feed.mu.Lock()
	defer feed.mu.Unlock()
	if feed.oddsCalls != 1 {
		t.Errorf("oddsCalls = %d, want 1", feed.oddsCalls)
	}
}

func TestEventPlayersNoProps(t *testing.T) {
	ts := newTestServer(t, &fakeFeed{})

	resp, err := http.Get(ts.URL + "/api/nba/events/ev-unknown/players")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 for an event without props", resp.StatusCode)
	}
	var body struct {
		Count int `json:"count"`
	}
	decodeJSON(t, resp, &body)
	if body.Count != 0 {
		t.Errorf("count = %d, want 0", body.Count)
	}
}

func TestDailyPicksValidation(t *testing.T) {
	ts := newTestServer(t, &fakeFeed{})

	for _, url := range []string{
		"/api/nba/daily-picks?date=01-17-2026",
		"/api/nba/daily-picks?tz_offset=abc",
		"/api/nba/daily-picks?tz_offset=2000",
	} {
		resp, err := http.Get(ts.URL + url)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", url, resp.StatusCode)
		}
	}
}

func TestTriggerAnalysisNoEvents(t *testing.T) {
	ts := newTestServer(t, &fakeFeed{})

	resp, err := http.Post(ts.URL+"/api/nba/daily-picks/trigger?date=2026-01-17", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result analysis.Result
	decodeJSON(t, resp, &result)
	if result.Message == nil {
		t.Error("expected a message when no events are scheduled")
	}
	if result.TotalPicks != 0 {
		t.Errorf("TotalPicks = %d, want 0", result.TotalPicks)
	}
}

func TestNoVig(t *testing.T) {
	ts := newTestServer(t, &fakeFeed{})

	payload := `{"books":[
		{"bookmaker":"fanduel","price_over":-110,"price_under":-110},
		{"bookmaker":"draftkings","price_over":-115,"price_under":-105}
	]}`
	resp, err := http.Post(ts.URL+"/api/nba/props/no-vig", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Books []struct {
			Bookmaker string  `json:"bookmaker"`
			FairOver  float64 `json:"fair_over"`
			FairUnder float64 `json:"fair_under"`
			Vig       float64 `json:"vig"`
		} `json:"books"`
		ConsensusMean     map[string]float64 `json:"consensus_mean"`
		ConsensusWeighted map[string]float64 `json:"consensus_weighted"`
	}
	decodeJSON(t, resp, &body)

	if len(body.Books) != 2 {
		t.Fatalf("books = %d, want 2", len(body.Books))
	}
	// Symmetric -110/-110 devigs to exactly a coin flip.
	if math.Abs(body.Books[0].FairOver-0.5) > 1e-9 {
		t.Errorf("fair_over = %f, want 0.5", body.Books[0].FairOver)
	}
	if body.Books[0].Vig <= 0 {
		t.Errorf("vig = %f, want positive", body.Books[0].Vig)
	}
	if sum := body.ConsensusMean["over"] + body.ConsensusMean["under"]; math.Abs(sum-1) > 1e-9 {
		t.Errorf("consensus_mean sums to %f, want 1", sum)
	}
	if body.ConsensusWeighted["over"] <= 0 || body.ConsensusWeighted["over"] >= 1 {
		t.Errorf("consensus_weighted over = %f, want in (0,1)", body.ConsensusWeighted["over"])
	}
}

func TestNoVigValidation(t *testing.T) {
	ts := newTestServer(t, &fakeFeed{})

	for _, payload := range []string{`{}`, `{"books":[]}`, `not json`} {
		resp, err := http.Post(ts.URL+"/api/nba/props/no-vig", "application/json", strings.NewReader(payload))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", payload, resp.StatusCode)
		}
	}
}

func TestCSVReload(t *testing.T) {
	ts := newTestServer(t, &fakeFeed{})

	resp, err := http.Post(ts.URL+"/api/nba/csv/reload", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status  string `json:"status"`
		Players int    `json:"players"`
	}
	decodeJSON(t, resp, &body)
	if body.Status != "reloaded" || body.Players != 3 {
		t.Errorf("body = %+v, want reloaded with 3 players", body)
	}
}
