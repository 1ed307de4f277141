package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	// OraclePrivateKeyHex signs attestations. Without it the process
	// can only serve reads.
	OraclePrivateKeyHex string
	APIKey              string

	DetectorEndpoint   string
	OllamaEndpoint     string
	ReputationEndpoint string

	AttestationTTL      time.Duration
	ReviewQuorum        int
	ReputationThreshold float64

	WorkerPollInterval time.Duration
}

func Load() (Config, error) {
	// Missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "satin"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		OraclePrivateKeyHex: strings.TrimPrefix(strings.TrimSpace(os.Getenv("ORACLE_PRIVATE_KEY")), "0x"),
		APIKey:              strings.TrimSpace(os.Getenv("ORACLE_API_KEY")),

		DetectorEndpoint:   os.Getenv("DETECTOR_ENDPOINT"),
		OllamaEndpoint:     os.Getenv("OLLAMA_ENDPOINT"),
		ReputationEndpoint: os.Getenv("REPUTATION_ENDPOINT"),

		AttestationTTL:      envDuration("ATTESTATION_TTL", time.Hour),
		ReviewQuorum:        envInt("REVIEW_QUORUM", 5),
		ReputationThreshold: envFloat("REVIEW_REPUTATION_THRESHOLD", 50),

		WorkerPollInterval: envDuration("WORKER_POLL_INTERVAL", 2*time.Second),
	}, nil
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
