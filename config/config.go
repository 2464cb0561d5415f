package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DataDir        string // root of the snapshot tree
	CompetitorsDir string // per-competitor snapshot folders
	PharmaciesDir  string // own-pharmacy snapshot folders
	OwnCatalogPath string // current own-catalog snapshot (exclusion set)
	OutputDir      string // reports and audit files

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int

	CorrectionEnabled   bool
	CorrectionLookahead int    // ceiling-repair window, in snapshot steps
	Sentinel            string // rendered for missing observations

	ScheduleTimes []string // HH:MM triggers for the scrape runner
	ChromeBin     string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	dataDir := getEnv("DATA_DIR", "./Datasets")

	return &Config{
		DataDir:        dataDir,
		CompetitorsDir: getEnv("COMPETITORS_DIR", dataDir+"/competitors"),
		PharmaciesDir:  getEnv("PHARMACIES_DIR", dataDir+"/our_pharmacies"),
		OwnCatalogPath: getEnv("OWN_CATALOG_PATH", ""),
		OutputDir:      getEnv("OUTPUT_DIR", dataDir+"/reports"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 1000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		CorrectionEnabled:   getEnvBool("CORRECTION_ENABLED", true),
		CorrectionLookahead: getEnvInt("CORRECTION_LOOKAHEAD", 8),
		Sentinel:            getEnv("SENTINEL", "-"),

		ScheduleTimes: getEnvList("SCHEDULE_TIMES",
			"09:20,11:20,13:20,15:20,17:20,19:20,21:20,23:20"),
		ChromeBin: getEnv("CHROME_BIN", ""),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
