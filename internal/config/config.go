package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type PurgeCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	GroupID string
}

type Config struct {
	Addr     string
	LogLevel string

	StoreDriver string
	RedisAddr   string
	SQLitePath  string

	MaxCacheSize int64
	MinCacheSize int64
	MaxEntrySize int64
	MaxAge       time.Duration

	MaxBooleanClauses int
	SpatialField      string
	CircleSegments    int
	MemoSize          int

	StoreOpTimeout time.Duration

	Purge PurgeCfg
}

func FromEnv() Config {
	maxCache := getint64("QID_CACHE_SIZE_MAX", 104857600)
	minCache := getint64("QID_CACHE_SIZE_MIN", 52428800)
	if minCache > maxCache {
		minCache = maxCache / 2
	}

	return Config{
		Addr:     getenv("ADDR", ":8090"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		StoreDriver: getenv("QID_STORE_DRIVER", "redis"),
		RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
		SQLitePath:  getenv("QID_SQLITE_PATH", "qid.db"),

		MaxCacheSize: maxCache,
		MinCacheSize: minCache,
		MaxEntrySize: getint64("QID_LARGEST_CACHEABLE_SIZE", 5242880),
		MaxAge:       getduration("QID_MAX_AGE", 7*24*time.Hour),

		MaxBooleanClauses: getint("SOLR_MAX_BOOLEAN_CLAUSES", 1024),
		SpatialField:      getenv("SPATIAL_FIELD", "geohash"),
		CircleSegments:    getint("SOLR_CIRCLE_SEGMENTS", 18),
		MemoSize:          getint("QUERY_MEMO_SIZE", 1024),

		StoreOpTimeout: getduration("STORE_OP_TIMEOUT", 250*time.Millisecond),

		Purge: PurgeCfg{
			Enabled: strings.ToLower(getenv("PURGE_ENABLED", "false")) == "true",
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "qid-purge"),
			GroupID: getenv("KAFKA_GROUP_ID", "qid-purger"),
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

func getint64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
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
