package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type EventsCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	Queue   int
}

type Config struct {
	Addr       string
	LogLevel   string
	LogConsole bool

	TileSize         float64
	SpawnProbability float64
	VisibilityRadius int
	MaxCoins         int
	GameSeed         string

	StartLat float64
	StartLng float64

	RedisAddr  string
	MementoTTL time.Duration

	HotHalfLife time.Duration

	Events EventsCfg
}

func FromEnv() Config {
	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),

		TileSize:         getfloat("TILE_SIZE", 1e-4),
		SpawnProbability: getfloat("SPAWN_PROBABILITY", 0.1),
		VisibilityRadius: getint("VISIBILITY_RADIUS", 8),
		MaxCoins:         getint("MAX_COINS", 3),
		GameSeed:         getenv("GAME_SEED", "geocoin"),

		StartLat: getfloat("START_LAT", 36.989495),
		StartLng: getfloat("START_LNG", -122.062771),

		// Empty REDIS_ADDR means in-memory mementos only.
		RedisAddr:  getenv("REDIS_ADDR", ""),
		MementoTTL: getduration("MEMENTO_TTL", 0),

		HotHalfLife: getduration("HOT_HALF_LIFE", time.Minute),

		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "geocoin-events"),
			Queue:   getint("EVENTS_QUEUE", 1024),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
