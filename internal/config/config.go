package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all engine settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaFeedTopic   string
	KafkaReportTopic string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	// Animation timing.
	FrameInterval time.Duration
	MaxFrameDelta time.Duration

	// Wind field interpolation and the ambient particle layer.
	InfluenceRadiusM float64
	WindParticles    int

	// Optional YAML file overriding per-hazard particle tuning.
	PresetPath string

	// Mapbox forward geocoding for --center place lookups.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := durationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	frameInterval, err := durationEnv("FRAME_INTERVAL", "33ms")
	if err != nil {
		return nil, err
	}
	maxFrameDelta, err := durationEnv("MAX_FRAME_DELTA", "250ms")
	if err != nil {
		return nil, err
	}
	if maxFrameDelta < frameInterval {
		return nil, errors.New("MAX_FRAME_DELTA must be at least FRAME_INTERVAL")
	}

	influenceKm, err := floatEnv("INFLUENCE_RADIUS_KM", "50")
	if err != nil || influenceKm <= 0 {
		return nil, errors.New("invalid INFLUENCE_RADIUS_KM")
	}

	windParticles, err := intEnv("WIND_PARTICLES", 2500, 1, 100000)
	if err != nil {
		return nil, err
	}

	mapboxTimeoutStr := envOrDefault("MAPBOX_TIMEOUT", "5s")
	mapboxTimeout, err2 := time.ParseDuration(mapboxTimeoutStr)
	if err2 != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	mapboxCacheSize := parseMapboxCacheSize()

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:     parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaFeedTopic:   envOrDefault("KAFKA_FEED_TOPIC", "hazard-field-updates"),
		KafkaReportTopic: envOrDefault("KAFKA_REPORT_TOPIC", "transformed-weather-data"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "storm-overlay-engine"),
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,

		FrameInterval: frameInterval,
		MaxFrameDelta: maxFrameDelta,

		InfluenceRadiusM: influenceKm * 1000,
		WindParticles:    windParticles,

		PresetPath: os.Getenv("PRESET_PATH"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaFeedTopic == "" {
		return nil, errors.New("KAFKA_FEED_TOPIC is required")
	}
	if cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_REPORT_TOPIC is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, part := range strings.Split(s, ",") {
		if b := strings.TrimSpace(part); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func durationEnv(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func floatEnv(key, def string) (float64, error) {
	f, err := strconv.ParseFloat(envOrDefault(key, def), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func intEnv(key string, def, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, min, max)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
