// Package config loads the broadcast service's configuration from the
// environment, with an optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries every configuration key spec.md §6 names, plus the
// ambient keys the HTTP/observability layers need.
type Config struct {
	Port         string
	ClientOrigin string

	// Identity / access policy.
	SessionSecret string
	JWTSecret     string
	AllowedIDs    []string
	AdminIDs      []string

	// OpenID fields, consumed only by the out-of-scope federation layer but
	// still parsed here so config stays the single source of truth.
	OpenIDRealm     string
	OpenIDReturnURL string

	// Fetcher.
	SoundCloudClientID     string
	YouTubeCookie          string
	YouTubeCookieFile      string
	YouTubeUserAgent       string
	ExternalFetcherFormat  string
	DisableExternalFetcher bool
	ExternalFetcherFirst   bool
}

// Load reads environment variables with defaults. A .env file in the
// working directory is applied first if present; a missing file is not an
// error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "8000"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "*"),

		SessionSecret: getEnv("SESSION_SECRET", "change-me-in-production-please"),
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production-please"),
		AllowedIDs:    getEnvAsList("ALLOWED_IDS"),
		AdminIDs:      getEnvAsList("ADMIN_IDS"),

		OpenIDRealm:     getEnv("OPENID_REALM", ""),
		OpenIDReturnURL: getEnv("OPENID_RETURN_URL", ""),

		SoundCloudClientID:     getEnv("SOUNDCLOUD_CLIENT_ID", ""),
		YouTubeCookie:          getEnv("YOUTUBE_COOKIE", ""),
		YouTubeCookieFile:      getEnv("YOUTUBE_COOKIE_FILE", ""),
		YouTubeUserAgent:       getEnv("YOUTUBE_USER_AGENT", ""),
		ExternalFetcherFormat:  getEnv("EXTERNAL_FETCHER_FORMAT", ""),
		DisableExternalFetcher: getEnvAsBool("DISABLE_EXTERNAL_FETCHER", false),
		ExternalFetcherFirst:   getEnvAsBool("EXTERNAL_FETCHER_FIRST", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultVal
}

// getEnvAsList splits a comma-separated env var, trimming whitespace and
// dropping empty entries. An unset or empty var yields nil (empty allow
// list — spec.md says that means "anyone may queue").
func getEnvAsList(key string) []string {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
