package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookupEnv parses the variable with parse, falling back to defaultVal when it is
// unset or does not parse.
func lookupEnv[T any](key string, defaultVal T, parse func(string) (T, error)) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	result, err := parse(strings.TrimSpace(value))
	if err != nil {
		return defaultVal
	}
	return result
}

func GetEnvAsInt(key string, defaultVal int) int {
	return lookupEnv(key, defaultVal, strconv.Atoi)
}

func GetEnvAsUint64(key string, defaultVal uint64) uint64 {
	return lookupEnv(key, defaultVal, func(s string) (uint64, error) {
		return strconv.ParseUint(s, 10, 64)
	})
}

// GetEnvAsDuration accepts Go duration syntax ("90s", "720h").
func GetEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	return lookupEnv(key, defaultVal, time.ParseDuration)
}

func GetEnvAsBool(key string, defaultVal bool) bool {
	return lookupEnv(key, defaultVal, strconv.ParseBool)
}

func GetEnvAsString(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// GetEnvAsList splits a comma separated variable, dropping blank entries.
func GetEnvAsList(key string, defaultVal string) []string {
	var out []string
	for _, part := range strings.Split(GetEnvAsString(key, defaultVal), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
