package config

import (
	"os"
	"time"
)

const (
	identityURLVar  = "IDENTITY_BASE_URL"
	storePathVar    = "TOKEN_STORE_PATH"
	staleAfterVar   = "PERMISSIONS_STALE_AFTER"
	appNameVar      = "APP_NAME"
	defaultBaseURL  = "http://localhost:8080"
	defaultAppName  = "Shop Admin Session"
	defaultStaleAge = 15 * time.Minute
)

// Config carries the environment-derived settings for the session core and
// the demo binary.
type Config struct {
	AppName         string
	IdentityBaseURL string
	TokenStorePath  string
	StaleAfter      time.Duration
}

// New reads configuration from the environment, falling back to defaults.
func New() Config {
	return Config{
		AppName:         GetEnv(appNameVar, defaultAppName),
		IdentityBaseURL: GetEnv(identityURLVar, defaultBaseURL),
		TokenStorePath:  GetEnv(storePathVar, "./data/tokens.json"),
		StaleAfter:      getDuration(staleAfterVar, defaultStaleAge),
	}
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
