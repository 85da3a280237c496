// statcheck queries the historical corpus from the command line:
//
//	statcheck "Stephen Curry" points 24.5 [recent-n]
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"nba-props-analyzer/internal/history"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: statcheck <player> <metric> <threshold> [recent-n]")
		os.Exit(2)
	}

	player := os.Args[1]
	metric := os.Args[2]
	threshold, err := strconv.ParseFloat(os.Args[3], 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad threshold %q: %v\n", os.Args[3], err)
		os.Exit(2)
	}
	recentN := 0
	if len(os.Args) > 4 {
		recentN, err = strconv.Atoi(os.Args[4])
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad recent-n %q: %v\n", os.Args[4], err)
			os.Exit(2)
		}
	}

	path := os.Getenv("CSV_DATA_PATH")
	if path == "" {
		path = "data/nba_player_game_logs.csv"
	}

	provider := history.NewProvider(path)
	if err := provider.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "loading corpus %s: %v\n", path, err)
		os.Exit(1)
	}

	stats, err := provider.ComputeStats(history.StatsQuery{
		Player:     player,
		Metric:     metric,
		Threshold:  threshold,
		RecentN:    recentN,
		ExcludeDNP: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "computing stats: %v\n", err)
		os.Exit(1)
	}

	if stats.Message != "" {
		fmt.Println(stats.Message)
		return
	}

	fmt.Printf("%s - %s over/under %.1f\n", stats.Player, stats.Metric, stats.Threshold)
	fmt.Printf("  Games: %d\n", stats.NGames)
	if stats.POver != nil {
		fmt.Printf("  P(over):  %.4f\n", *stats.POver)
	}
	if stats.PUnder != nil {
		fmt.Printf("  P(under): %.4f\n", *stats.PUnder)
	}
	if stats.EqualCount > 0 {
		fmt.Printf("  Pushes:   %d\n", stats.EqualCount)
	}
	if stats.Mean != nil && stats.Std != nil {
		fmt.Printf("  Mean: %.2f  Std: %.2f\n", *stats.Mean, *stats.Std)
	}

	fmt.Println()
	fmt.Println("Recent games (oldest first):")
	for _, g := range stats.GameLogs {
		mark := " "
		if g.IsOver {
			mark = "*"
		}
		fmt.Printf("  %s vs %s: %.1f %s\n", g.Date, g.Opponent, g.Value, mark)
	}
}
