package env

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
)

var Env map[string]string

// GetEnv looks in the loaded .env first and then in the process environment.
func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok && strings.TrimSpace(val) != "" {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func GetBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(GetEnv(key, "")))
	if err != nil {
		return def
	}
	return v
}

func GetInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(GetEnv(key, "")))
	if err != nil {
		return def
	}
	return v
}

// GetDuration accepts Go duration strings ("10s", "5m").
func GetDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(GetEnv(key, "")))
	if err != nil {
		return def
	}
	return v
}

// SetupEnvFile loads the first .env found. Containers usually inject plain
// environment variables, so a missing file only produces a log line.
func SetupEnvFile() {
	envFiles := []string{
		".env",
		"../../.env", // from cmd/trashmap
		"../../../.env",
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			return
		}
	}

	Env = map[string]string{}
	log.Info("No .env file found, using process environment only")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
