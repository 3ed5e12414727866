package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	DictSource         string
	DictBaseURL        string
	DictRoot           string
	DictJANCategory    string
	DictGTINCategory   string
	DictColumnsFile    string
	DictFetchTimeout   time.Duration
	DictMasterSheet    string
	DictMasterHasTitle bool

	GateMinInterval      time.Duration
	GateSameCodeCooldown time.Duration

	NATSURL                  string
	NATSDetectionsSubject    string
	NATSNotificationsSubject string
	NATSPublishMaxAttempts   int
	NATSDefaultSession       string

	ResilienceRetryMaxAttempts    int
	ResilienceRetryInitialBackoff time.Duration
	ResilienceRetryMaxBackoff     time.Duration
	ResilienceBreakerEnabled      bool
	ResilienceBreakerMinRequests  int
	ResilienceBreakerFailureRatio float64
	ResilienceBreakerOpenTimeout  time.Duration

	APIRateLimitRPS    float64
	APIRateLimitBurst  int
	APIMaxInFlight     int
	APIBackpressureMax time.Duration

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		DictSource:         mustEnv("DICT_SOURCE", "fs"),
		DictBaseURL:        mustEnv("DICT_BASE_URL", "http://localhost:8081/dict"),
		DictRoot:           mustEnv("DICT_ROOT", "./data/dictionary"),
		DictJANCategory:    mustEnv("DICT_JAN_CATEGORY", "jan"),
		DictGTINCategory:   mustEnv("DICT_GTIN_CATEGORY", "gtin"),
		DictColumnsFile:    mustEnv("DICT_COLUMNS_FILE", ""),
		DictFetchTimeout:   mustEnvMillis("DICT_FETCH_TIMEOUT_MS", 0),
		DictMasterSheet:    mustEnv("DICT_MASTER_SHEET", ""),
		DictMasterHasTitle: mustEnvBool("DICT_MASTER_HAS_TITLE_ROW", false),

		GateMinInterval:      mustEnvMillis("GATE_MIN_INTERVAL_MS", 650),
		GateSameCodeCooldown: mustEnvMillis("GATE_SAME_CODE_COOLDOWN_MS", 1800),

		NATSURL:                  mustEnv("NATS_URL", ""),
		NATSDetectionsSubject:    mustEnv("NATS_DETECTIONS_SUBJECT", "scanner.detections"),
		NATSNotificationsSubject: mustEnv("NATS_NOTIFICATIONS_SUBJECT", "scanner.notifications"),
		NATSPublishMaxAttempts:   mustEnvInt("NATS_PUBLISH_MAX_ATTEMPTS", 3),
		NATSDefaultSession:       mustEnv("NATS_DEFAULT_SESSION", "default"),

		ResilienceRetryMaxAttempts:    mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 1),
		ResilienceRetryInitialBackoff: mustEnvMillis("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", 100),
		ResilienceRetryMaxBackoff:     mustEnvMillis("RESILIENCE_RETRY_MAX_BACKOFF_MS", 400),
		ResilienceBreakerEnabled:      mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
		ResilienceBreakerMinRequests:  mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", 10),
		ResilienceBreakerFailureRatio: mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", 0.5),
		ResilienceBreakerOpenTimeout:  mustEnvMillis("RESILIENCE_BREAKER_OPEN_TIMEOUT_MS", 30000),

		APIRateLimitRPS:    mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:  mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIMaxInFlight:     mustEnvInt("API_MAX_IN_FLIGHT", 0),
		APIBackpressureMax: mustEnvMillis("API_BACKPRESSURE_WAIT_MS", 250),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvMillis(key string, fallbackMS int) time.Duration {
	return time.Duration(mustEnvInt(key, fallbackMS)) * time.Millisecond
}
