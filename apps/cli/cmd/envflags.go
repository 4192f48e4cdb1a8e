package cmd

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Flag defaults read from QAKIT_* variables. Unset, empty or unparsable
// values fall back to def.

func getEnvString(key, def string) string {
	return envOr(key, def, func(s string) (string, error) { return s, nil })
}

func getEnvBool(key string, def bool) bool {
	return envOr(key, def, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "1", "true", "yes", "on":
			return true, nil
		}
		return false, nil
	})
}

func getEnvInt(key string, def int) int {
	return envOr(key, def, strconv.Atoi)
}

func getEnvFloat(key string, def float64) float64 {
	return envOr(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	return envOr(key, def, time.ParseDuration)
}

func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}
