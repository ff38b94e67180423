package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
)

func GetEnv(key, fallback string, log *logger.Logger) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		if log != nil {
			log.Debug("env var missing, using fallback", "key", key, "fallback", fallback)
		}
		return fallback
	}
	return val
}

func GetEnvAsInt(key string, fallback int, log *logger.Logger) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		if log != nil {
			log.Warn("env var not an int, using fallback", "key", key, "value", val)
		}
		return fallback
	}
	return n
}
