package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zoneinfo for FORECAST_TIMEZONE

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Open-Meteo configuration.
	ForecastURL      string
	GeocodingURL     string
	OpenMeteoTimeout time.Duration
	GeocodeCacheSize int

	// Narrative configuration.
	Timezone          *time.Location
	DefaultLanguage   string
	PhrasesFile       string
	SyntheticFallback bool
}

// Supported narrative languages, accepted for DEFAULT_LANGUAGE.
var languages = []string{"fr", "nl", "de", "en"}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("OPENMETEO_TIMEOUT", "10s"))
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid OPENMETEO_TIMEOUT")
	}

	cacheSize, err := parsePositiveInt("GEOCODE_CACHE_SIZE", 500)
	if err != nil {
		return nil, err
	}

	tzName := sharedcfg.EnvOrDefault("FORECAST_TIMEZONE", "Europe/Brussels")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_TIMEZONE %q: %w", tzName, err)
	}

	synthetic, err := parseBool("SYNTHETIC_FALLBACK", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "forecast-refresh-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "forecast-narratives"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "forecast-narrator"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		ForecastURL:      sharedcfg.EnvOrDefault("OPENMETEO_FORECAST_URL", "https://api.open-meteo.com/v1/forecast"),
		GeocodingURL:     sharedcfg.EnvOrDefault("OPENMETEO_GEOCODING_URL", "https://geocoding-api.open-meteo.com/v1/search"),
		OpenMeteoTimeout: timeout,
		GeocodeCacheSize: cacheSize,

		Timezone:          loc,
		DefaultLanguage:   strings.ToLower(sharedcfg.EnvOrDefault("DEFAULT_LANGUAGE", "fr")),
		PhrasesFile:       os.Getenv("PHRASES_FILE"),
		SyntheticFallback: synthetic,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if !slices.Contains(languages, cfg.DefaultLanguage) {
		return nil, fmt.Errorf("DEFAULT_LANGUAGE must be one of %s", strings.Join(languages, ", "))
	}
	if cfg.PhrasesFile != "" {
		if _, err := os.Stat(cfg.PhrasesFile); err != nil {
			return nil, fmt.Errorf("PHRASES_FILE: %w", err)
		}
	}

	return cfg, nil
}

func parsePositiveInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

func parseBool(name string, def bool) (bool, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}
