// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// PostgreSQL – either set DatabaseURL directly, or the individual fields.
	DatabaseURL string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string

	// JWT signing secret (required in production).
	JWTSecret string

	// Server
	Debug      bool
	Port       string
	TLSDomains []string

	// Import engine
	SourceBaseURL   string        // n01 tournament API root
	LeagueBaseURL   string        // n01 league API root
	FetchDelay      time.Duration // minimum delay between detail fetches
	StartScore      int           // default leg start score
	ReviewThreshold int           // decisions below this confidence go to review
	ClubsFile       string        // club-name standardization table (yaml)
	CorrectionsFile string        // correction log applied before each run (yaml)
	Leagues         []string      // lgids monitored by cmd/nightly
	SkipTournaments []string      // tdids never imported (test events etc.)

	// MySQL – used only by cmd/migrate.
	MySQLDSN string
}

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() *Config {
	v := newViper()

	// Defaults
	v.SetDefault("DB_USER", "goldenstat")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "goldenstat")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("PORT", ":9000")
	v.SetDefault("TLS_DOMAINS", "goldenstat.se,www.goldenstat.se")
	v.SetDefault("DEBUG", false)
	v.SetDefault("SOURCE_BASE_URL", "https://tk2-228-23746.vs.sakura.ne.jp/n01/tournament")
	v.SetDefault("LEAGUE_BASE_URL", "https://tk2-228-23746.vs.sakura.ne.jp/n01/league")
	v.SetDefault("FETCH_DELAY_MS", 500)
	v.SetDefault("START_SCORE", 501)
	v.SetDefault("REVIEW_THRESHOLD", 70)
	v.SetDefault("CLUBS_FILE", "clubs.yaml")
	v.SetDefault("CORRECTIONS_FILE", "corrections.yaml")

	cfg := &Config{
		DatabaseURL:     v.GetString("DATABASE_URL"),
		DBUser:          v.GetString("DB_USER"),
		DBPass:          v.GetString("DB_PASS"),
		DBHost:          v.GetString("DB_HOST"),
		DBPort:          v.GetString("DB_PORT"),
		DBName:          v.GetString("DB_NAME"),
		DBSSLMode:       v.GetString("DB_SSLMODE"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		Debug:           v.GetBool("DEBUG"),
		Port:            v.GetString("PORT"),
		TLSDomains:      splitTrimmed(v.GetString("TLS_DOMAINS")),
		SourceBaseURL:   v.GetString("SOURCE_BASE_URL"),
		LeagueBaseURL:   v.GetString("LEAGUE_BASE_URL"),
		FetchDelay:      time.Duration(v.GetInt("FETCH_DELAY_MS")) * time.Millisecond,
		StartScore:      v.GetInt("START_SCORE"),
		ReviewThreshold: v.GetInt("REVIEW_THRESHOLD"),
		ClubsFile:       v.GetString("CLUBS_FILE"),
		CorrectionsFile: v.GetString("CORRECTIONS_FILE"),
		Leagues:         splitTrimmed(v.GetString("LEAGUES")),
		SkipTournaments: splitTrimmed(v.GetString("SKIP_TOURNAMENTS")),
		MySQLDSN:        v.GetString("MYSQL_DSN"),
	}

	cfg.validate()
	return cfg
}

// PostgresDSN returns the full PostgreSQL connection string.
// DATABASE_URL takes precedence over individual fields.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPass,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// JWTKey returns the JWT signing key as a byte slice.
func (c *Config) JWTKey() []byte {
	return []byte(c.JWTSecret)
}

func (c *Config) validate() {
	if c.DatabaseURL == "" && c.DBPass == "" {
		log.Fatal("config: DATABASE_URL or DB_PASS must be set")
	}
	if c.JWTSecret == "" {
		log.Fatal("config: JWT_SECRET must be set")
	}
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
