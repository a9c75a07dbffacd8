package config

import (
	"os"
	"strconv"

	"circapi/internal/model"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// KindPolicy holds the per-document-kind penalty parameters.
type KindPolicy struct {
	DailyRateCents  int64
	MaxPenaltyCents int64
	GracePeriodDays int
}

// CirculationConfig holds the business policy knobs of the engine.
type CirculationConfig struct {
	// LoanPeriodDays is the default due-date offset when a borrow request
	// does not carry one.
	LoanPeriodDays int
	// ReservationTTLDays sets the expiry date stamped on new reservations.
	ReservationTTLDays int
	// StrictReservationBlock keeps the absolute rule that no loan may be
	// created while the document has any active reservation. When false,
	// the head of the queue may borrow directly and their reservation is
	// fulfilled in the same transaction.
	StrictReservationBlock bool
	// Penalties maps each document kind to its rate, cap and grace period.
	Penalties map[model.DocumentKind]KindPolicy
}

// AMQPConfig holds the notification broker settings. An empty URL disables
// the broker and availability notifications fall back to the log dispatcher.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	Database    DatabaseConfig
	Circulation CirculationConfig
	AMQP        AMQPConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Circulation: CirculationConfig{
			LoanPeriodDays:         getEnvInt("CIRC_LOAN_PERIOD_DAYS", 14),
			ReservationTTLDays:     getEnvInt("CIRC_RESERVATION_TTL_DAYS", 7),
			StrictReservationBlock: getEnvBool("CIRC_STRICT_RESERVATION_BLOCK", true),
			Penalties:              loadPenalties(),
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "circulation.events"),
		},
	}
}

// loadPenalties reads one rate/cap/grace triple per document kind, with a
// shared default when a kind-specific variable is unset.
// Example: PENALTY_DAILY_RATE_CENTS_THESIS overrides PENALTY_DAILY_RATE_CENTS
// for theses only.
func loadPenalties() map[model.DocumentKind]KindPolicy {
	defRate := getEnvInt64("PENALTY_DAILY_RATE_CENTS", 50)
	defMax := getEnvInt64("PENALTY_MAX_CENTS", 2000)
	defGrace := getEnvInt("PENALTY_GRACE_DAYS", 0)

	out := make(map[model.DocumentKind]KindPolicy, len(model.Kinds))
	for _, k := range model.Kinds {
		suffix := "_" + upperSnake(string(k))
		out[k] = KindPolicy{
			DailyRateCents:  getEnvInt64("PENALTY_DAILY_RATE_CENTS"+suffix, defRate),
			MaxPenaltyCents: getEnvInt64("PENALTY_MAX_CENTS"+suffix, defMax),
			GracePeriodDays: getEnvInt("PENALTY_GRACE_DAYS"+suffix, defGrace),
		}
	}
	return out
}

func upperSnake(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'a' && b[i] <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
