package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Engine   EngineConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// EngineConfig tunes scoring, gating, and conflict handling.
type EngineConfig struct {
	SkillWeight            float64
	HeadroomWeight         float64
	EfficiencyWeight       float64
	AvailabilityWeight     float64
	BusyAvailabilityFactor float64
	SkillOvershootBonus    float64
	SituationalMatching    bool
	SituationalBonusPerTag float64
	SituationalBonusCap    float64
	AllocationUnit         int
	MaxWorkloadPerPerson   int
	MinSkillMatchThreshold float64
	ConflictCacheTTLSec    int
	SweepIntervalSec       int
	PersistTimeoutSec      int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "staff-allocation-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Engine: EngineConfig{
			SkillWeight:            getEnvAsFloat("ENGINE_SKILL_WEIGHT", 0.4),
			HeadroomWeight:         getEnvAsFloat("ENGINE_HEADROOM_WEIGHT", 0.2),
			EfficiencyWeight:       getEnvAsFloat("ENGINE_EFFICIENCY_WEIGHT", 0.3),
			AvailabilityWeight:     getEnvAsFloat("ENGINE_AVAILABILITY_WEIGHT", 0.1),
			BusyAvailabilityFactor: getEnvAsFloat("ENGINE_BUSY_AVAILABILITY_FACTOR", 0.3),
			SkillOvershootBonus:    getEnvAsFloat("ENGINE_SKILL_OVERSHOOT_BONUS", 0),
			SituationalMatching:    getEnvAsBool("ENGINE_SITUATIONAL_MATCHING", false),
			SituationalBonusPerTag: getEnvAsFloat("ENGINE_SITUATIONAL_BONUS_PER_TAG", 0.05),
			SituationalBonusCap:    getEnvAsFloat("ENGINE_SITUATIONAL_BONUS_CAP", 0.15),
			AllocationUnit:         getEnvAsInt("ENGINE_ALLOCATION_UNIT", 20),
			MaxWorkloadPerPerson:   getEnvAsInt("ENGINE_MAX_WORKLOAD_PER_PERSON", 80),
			MinSkillMatchThreshold: getEnvAsFloat("ENGINE_MIN_SKILL_MATCH_THRESHOLD", 0.3),
			ConflictCacheTTLSec:    getEnvAsInt("ENGINE_CONFLICT_CACHE_TTL_SECONDS", 300),
			SweepIntervalSec:       getEnvAsInt("ENGINE_SWEEP_INTERVAL_SECONDS", 60),
			PersistTimeoutSec:      getEnvAsInt("ENGINE_PERSIST_TIMEOUT_SECONDS", 5),
		},
	}

	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects engine tuning values outside their contracts.
func (e EngineConfig) Validate() error {
	sum := e.SkillWeight + e.HeadroomWeight + e.EfficiencyWeight + e.AvailabilityWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", sum)
	}
	for name, w := range map[string]float64{
		"skill":        e.SkillWeight,
		"headroom":     e.HeadroomWeight,
		"efficiency":   e.EfficiencyWeight,
		"availability": e.AvailabilityWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s weight out of range [0,1]: %v", name, w)
		}
	}
	if e.BusyAvailabilityFactor < 0 || e.BusyAvailabilityFactor > 1 {
		return fmt.Errorf("busy availability factor out of range [0,1]: %v", e.BusyAvailabilityFactor)
	}
	if e.AllocationUnit <= 0 || e.AllocationUnit > 100 {
		return fmt.Errorf("allocation unit out of range (0,100]: %d", e.AllocationUnit)
	}
	if e.MaxWorkloadPerPerson <= 0 || e.MaxWorkloadPerPerson > 100 {
		return fmt.Errorf("max workload per person out of range (0,100]: %d", e.MaxWorkloadPerPerson)
	}
	if e.MinSkillMatchThreshold < 0 || e.MinSkillMatchThreshold > 1 {
		return fmt.Errorf("min skill match threshold out of range [0,1]: %v", e.MinSkillMatchThreshold)
	}
	return nil
}

// PersistTimeout bounds each write-through persistence call.
func (e EngineConfig) PersistTimeout() time.Duration {
	if e.PersistTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(e.PersistTimeoutSec) * time.Second
}

// SweepInterval returns the background sweep period; zero disables sweeping.
func (e EngineConfig) SweepInterval() time.Duration {
	if e.SweepIntervalSec <= 0 {
		return 0
	}
	return time.Duration(e.SweepIntervalSec) * time.Second
}

// ConflictCacheTTL returns how long cached conflict sets stay fresh.
func (e EngineConfig) ConflictCacheTTL() time.Duration {
	if e.ConflictCacheTTLSec <= 0 {
		return 0
	}
	return time.Duration(e.ConflictCacheTTLSec) * time.Second
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
