package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for configuration values.
const (
	DefaultOddsAPIBaseURL  = "https://api.the-odds-api.com"
	DefaultRedisURL        = "redis://localhost:6379"
	DefaultCSVDataPath     = "data/nba_player_game_logs.csv"
	DefaultPort            = "8080"
	DefaultSportKey        = "basketball_nba"
	DefaultRegions         = "us"
	DefaultMinProbability  = 0.65
	DefaultMinGames        = 10
	DefaultTZOffsetMinutes = 480 // UTC+8
	DefaultEventsCacheTTL  = 5 * time.Minute
	DefaultPicksCacheTTL   = 6 * time.Hour
	DefaultAnalysisHourUTC = 12 // daily run at 12:00 UTC
	DefaultAllowedOrigins  = "http://localhost:3000"
	DefaultAlertCooldown   = 12 * time.Hour
)

// Config holds all application configuration.
type Config struct {
	OddsAPIKey     string
	OddsAPIBaseURL string
	SportKey       string
	Regions        string

	RedisURL       string
	CSVDataPath    string
	CSVDownloadURL string

	Port           string
	AllowedOrigins []string

	MinProbability  float64
	MinGames        int
	TZOffsetMinutes int // default local-day offset for scheduled runs

	EventsCacheTTL time.Duration
	PicksCacheTTL  time.Duration

	AnalysisHourUTC int
	AlertCooldown   time.Duration
}

// Load reads configuration from environment variables (and .env file if present).
func Load() Config {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := Config{
		OddsAPIKey:     os.Getenv("ODDS_API_KEY"),
		OddsAPIBaseURL: DefaultOddsAPIBaseURL,
		SportKey:       DefaultSportKey,
		Regions:        DefaultRegions,

		RedisURL:       DefaultRedisURL,
		CSVDataPath:    DefaultCSVDataPath,
		CSVDownloadURL: os.Getenv("CSV_DOWNLOAD_URL"),

		Port:           DefaultPort,
		AllowedOrigins: splitOrigins(DefaultAllowedOrigins),

		MinProbability:  DefaultMinProbability,
		MinGames:        DefaultMinGames,
		TZOffsetMinutes: DefaultTZOffsetMinutes,

		EventsCacheTTL: DefaultEventsCacheTTL,
		PicksCacheTTL:  DefaultPicksCacheTTL,

		AnalysisHourUTC: DefaultAnalysisHourUTC,
		AlertCooldown:   DefaultAlertCooldown,
	}

	if v := os.Getenv("ODDS_API_BASE_URL"); v != "" {
		cfg.OddsAPIBaseURL = v
	}

	if v := os.Getenv("SPORT_KEY"); v != "" {
		cfg.SportKey = v
	}

	if v := os.Getenv("REGIONS"); v != "" {
		cfg.Regions = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}

	if v := os.Getenv("CSV_DATA_PATH"); v != "" {
		cfg.CSVDataPath = v
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitOrigins(v)
	}

	if v := os.Getenv("MIN_PROBABILITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MinProbability = f
		}
	}

	if v := os.Getenv("MIN_GAMES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MinGames = n
		}
	}

	if v := os.Getenv("TZ_OFFSET_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TZOffsetMinutes = n
		}
	}

	if v := os.Getenv("EVENTS_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.EventsCacheTTL = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("PICKS_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PicksCacheTTL = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("ANALYSIS_HOUR_UTC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AnalysisHourUTC = n
		}
	}

	if v := os.Getenv("ALERT_COOLDOWN_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AlertCooldown = time.Duration(n) * time.Minute
		}
	}

	return cfg
}

func splitOrigins(s string) []string {
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// Validate checks that configuration values are within acceptable ranges.
func Validate(cfg Config) error {
	if cfg.OddsAPIKey == "" {
		return fmt.Errorf("ODDS_API_KEY is required")
	}
	if cfg.MinProbability < 0 || cfg.MinProbability > 1 {
		return fmt.Errorf("MIN_PROBABILITY must be between 0 and 1, got %f", cfg.MinProbability)
	}
	if cfg.MinGames < 1 {
		return fmt.Errorf("MIN_GAMES must be at least 1, got %d", cfg.MinGames)
	}
	// Offsets span UTC-12 to UTC+14.
	if cfg.TZOffsetMinutes < -720 || cfg.TZOffsetMinutes > 840 {
		return fmt.Errorf("TZ_OFFSET_MINUTES must be between -720 and 840, got %d", cfg.TZOffsetMinutes)
	}
	if cfg.AnalysisHourUTC < 0 || cfg.AnalysisHourUTC > 23 {
		return fmt.Errorf("ANALYSIS_HOUR_UTC must be between 0 and 23, got %d", cfg.AnalysisHourUTC)
	}
	if cfg.PicksCacheTTL <= 0 {
		return fmt.Errorf("PICKS_CACHE_TTL_SECONDS must be positive, got %v", cfg.PicksCacheTTL)
	}
	if cfg.EventsCacheTTL <= 0 {
		return fmt.Errorf("EVENTS_CACHE_TTL_SECONDS must be positive, got %v", cfg.EventsCacheTTL)
	}
	return nil
}
