// Package history serves empirical player statistics from a CSV corpus of
// NBA game logs. The corpus is parsed once into an in-memory index keyed by
// player; reloads build a fresh index and swap it in atomically so readers
// never observe a half-built one.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrDataSourceUnavailable reports a missing or unreadable corpus file.
var ErrDataSourceUnavailable = errors.New("game log corpus unavailable")

// Metric names accepted by ComputeStats.
const (
	MetricPoints   = "points"
	MetricRebounds = "rebounds"
	MetricAssists  = "assists"
	MetricPRA      = "pra"
)

// GameRecord is one parsed row of the corpus. Stat fields are nil when the
// source cell was empty or unparseable; PRA is defined only when Points is.
type GameRecord struct {
	Player   string
	Date     time.Time // zero when the date column was unparseable
	Points   *float64
	Rebounds *float64
	Assists  *float64
	PRA      *float64
	Minutes  float64 // 0 means did not play
	Team     string
	Opponent string
}

// playerIndex is an immutable snapshot of the parsed corpus.
type playerIndex struct {
	games   map[string][]GameRecord // newest-first per player
	players []string                // sorted
}

// Provider loads the corpus and answers stats queries against it.
type Provider struct {
	path   string
	loadMu sync.Mutex
	idx    atomic.Pointer[playerIndex]
}

// NewProvider builds a provider reading from path. Nothing is parsed until
// Load or the first query.
func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

// Load parses the corpus on first call and is a no-op afterwards.
func (p *Provider) Load() error {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()
	if p.idx.Load() != nil {
		return nil
	}
	return p.loadLocked()
}

// Reload re-parses the corpus and swaps in the new index. In-flight queries
// keep using the old index until the swap.
func (p *Provider) Reload() error {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()
	return p.loadLocked()
}

func (p *Provider) loadLocked() error {
	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataSourceUnavailable, err)
	}
	defer f.Close()

	idx, err := parseCorpus(f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataSourceUnavailable, err)
	}

	p.idx.Store(idx)
	slog.Info("game log corpus loaded", "path", p.path, "players", len(idx.players))
	return nil
}

func (p *Provider) ensureLoaded() (*playerIndex, error) {
	if idx := p.idx.Load(); idx != nil {
		return idx, nil
	}
	if err := p.Load(); err != nil {
		return nil, err
	}
	return p.idx.Load(), nil
}

func parseCorpus(r io.Reader) (*playerIndex, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	// Excel-exported UTF-8 files prefix the first header with a BOM.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	games := make(map[string][]GameRecord)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		player := strings.TrimSpace(field(row, "Player"))
		if player == "" {
			continue
		}

		pts := parseOptionalFloat(field(row, "PTS"))
		ast := parseOptionalFloat(field(row, "AST"))
		reb := parseOptionalFloat(field(row, "REB"))
		if reb == nil {
			orb := parseOptionalFloat(field(row, "ORB"))
			drb := parseOptionalFloat(field(row, "DRB"))
			if orb != nil && drb != nil {
				v := *orb + *drb
				reb = &v
			}
		}

		var pra *float64
		if pts != nil {
			v := *pts
			if reb != nil {
				v += *reb
			}
			if ast != nil {
				v += *ast
			}
			pra = &v
		}

		games[player] = append(games[player], GameRecord{
			Player:   player,
			Date:     parseGameDate(field(row, "Date")),
			Points:   pts,
			Rebounds: reb,
			Assists:  ast,
			PRA:      pra,
			Minutes:  parseMinutes(field(row, "MIN")),
			Team:     field(row, "Team"),
			Opponent: field(row, "Opponent"),
		})
	}

	players := make([]string, 0, len(games))
	for player, logs := range games {
		players = append(players, player)
		// Newest first; rows with no parseable date sink to the end.
		sort.SliceStable(logs, func(i, j int) bool {
			return logs[i].Date.After(logs[j].Date)
		})
	}
	sort.Strings(players)

	return &playerIndex{games: games, players: players}, nil
}

func parseOptionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseMinutes handles both "32:15" (minutes:seconds) and plain decimal
// values. Anything unparseable counts as 0 minutes.
func parseMinutes(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if mm, ss, found := strings.Cut(s, ":"); found {
		minutes, err1 := strconv.Atoi(mm)
		seconds, err2 := strconv.Atoi(ss)
		if err1 != nil || err2 != nil {
			return 0
		}
		return float64(minutes) + float64(seconds)/60
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseGameDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse("1/2/2006", s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}

// lookup finds a player's games by exact name, then by a weak substring
// fallback: the first player (in sorted order) whose name contains the
// query or is contained by it, case-insensitively.
func (idx *playerIndex) lookup(name string) (string, []GameRecord) {
	if logs, ok := idx.games[name]; ok {
		return name, logs
	}
	lower := strings.ToLower(name)
	for _, p := range idx.players {
		pl := strings.ToLower(p)
		if strings.Contains(pl, lower) || strings.Contains(lower, pl) {
			return p, idx.games[p]
		}
	}
	return name, nil
}

// ListPlayers returns all player names, or those containing search
// (case-insensitive) when it is non-empty.
func (p *Provider) ListPlayers(search string) ([]string, error) {
	idx, err := p.ensureLoaded()
	if err != nil {
		return nil, err
	}
	if search == "" {
		return idx.players, nil
	}
	lower := strings.ToLower(search)
	var matched []string
	for _, player := range idx.players {
		if strings.Contains(strings.ToLower(player), lower) {
			matched = append(matched, player)
		}
	}
	return matched, nil
}

// ListOpponents returns the distinct opponents a player has faced, sorted.
func (p *Provider) ListOpponents(player string) ([]string, error) {
	idx, err := p.ensureLoaded()
	if err != nil {
		return nil, err
	}
	_, logs := idx.lookup(player)
	return opponentsOf(logs), nil
}

func opponentsOf(logs []GameRecord) []string {
	seen := make(map[string]bool)
	var opponents []string
	for _, g := range logs {
		if g.Opponent != "" && !seen[g.Opponent] {
			seen[g.Opponent] = true
			opponents = append(opponents, g.Opponent)
		}
	}
	sort.Strings(opponents)
	return opponents
}
