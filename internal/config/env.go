package config

import (
	"os"
	"strconv"
	"strings"
)

// envOr parses the variable with parse and falls back to def when it is
// unset, blank or malformed.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnv(key, defaultValue string) string {
	return envOr(key, defaultValue, func(s string) (string, error) { return s, nil })
}

func getEnvInt(key string, defaultValue int) int {
	return envOr(key, defaultValue, strconv.Atoi)
}

func getEnvInt64(key string, defaultValue int64) int64 {
	return envOr(key, defaultValue, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

func getEnvBool(key string, defaultValue bool) bool {
	return envOr(key, defaultValue, strconv.ParseBool)
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	return envOr(key, defaultValue, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}
