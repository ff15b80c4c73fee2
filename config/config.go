package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Booking   BookingConfig
	Queue     QueueConfig
	Scheduler SchedulerConfig
	Storage   StorageConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port     string
	GinMode  string
	LogLevel string
}

type BookingConfig struct {
	CodeSecret         string
	ServiceFeePercent  decimal.Decimal
	TaxPercent         decimal.Decimal
	CancellationCutoff time.Duration
	MaxQuantity        int
	MaxCodeAttempts    int
}

type QueueConfig struct {
	// redis | memory
	Driver             string
	ConsumerID         string
	ClaimMinIdleTime   time.Duration
	MaxRetryCount      int
	ReadGroupBlockTime time.Duration
	BufferSize         int
}

type SchedulerConfig struct {
	InventorySyncInterval time.Duration
}

type StorageConfig struct {
	Driver string
}

var AppConfig *Config

func LoadConfig() *Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	AppConfig = &Config{
		Database:  GetDatabaseConfig(),
		Redis:     GetRedisConfig(),
		Server:    GetServerConfig(),
		Booking:   GetBookingConfig(),
		Queue:     GetQueueConfig(),
		Scheduler: GetSchedulerConfig(),
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", StorageDriverPostgres),
		},
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // 測試 DB 用 5433 port
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
		MaxConns: 10,
		MinConns: 1,
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // 測試 Redis 用 6380 port
		Password: "",
		DB:       1,
	}

	return &Config{
		Database: *testConfig,
		Redis:    testRedisConfig,
		Server: ServerConfig{
			Port:     "8080",
			GinMode:  "test",
			LogLevel: "info",
		},
		Booking: BookingConfig{
			CodeSecret:         "test-booking-code-secret",
			ServiceFeePercent:  decimal.NewFromInt(5),
			TaxPercent:         decimal.RequireFromString("7.5"),
			CancellationCutoff: 24 * time.Hour,
			MaxQuantity:        10,
			MaxCodeAttempts:    3,
		},
		Queue: QueueConfig{
			Driver:             "memory",
			ConsumerID:         "test",
			ClaimMinIdleTime:   100 * time.Millisecond,
			MaxRetryCount:      3,
			ReadGroupBlockTime: 100 * time.Millisecond,
			BufferSize:         100,
		},
		Scheduler: SchedulerConfig{InventorySyncInterval: time.Minute},
		Storage:   StorageConfig{Driver: StorageDriverMemory},
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
		MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func GetBookingConfig() BookingConfig {
	secret := getEnv("BOOKING_CODE_SECRET", "")
	if secret == "" {
		panic("BOOKING_CODE_SECRET must be set")
	}

	return BookingConfig{
		CodeSecret:         secret,
		ServiceFeePercent:  getEnvDecimal("SERVICE_FEE_PERCENT", "5"),
		TaxPercent:         getEnvDecimal("TAX_PERCENT", "7.5"),
		CancellationCutoff: getEnvDuration("CANCELLATION_CUTOFF", 24*time.Hour),
		MaxQuantity:        getEnvInt("MAX_TICKETS_PER_BOOKING", 10),
		MaxCodeAttempts:    getEnvInt("MAX_CODE_ATTEMPTS", 3),
	}
}

func GetQueueConfig() QueueConfig {
	return QueueConfig{
		Driver:             getEnv("QUEUE_DRIVER", "redis"),
		ConsumerID:         getEnv("QUEUE_CONSUMER_ID", ""),
		ClaimMinIdleTime:   getEnvDuration("QUEUE_CLAIM_MIN_IDLE", 5*time.Second),
		MaxRetryCount:      getEnvInt("QUEUE_MAX_RETRY", 5),
		ReadGroupBlockTime: getEnvDuration("QUEUE_BLOCK_TIME", 2*time.Second),
		BufferSize:         getEnvInt("QUEUE_BUFFER_SIZE", 1024),
	}
}

func GetSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		InventorySyncInterval: getEnvDuration("INVENTORY_SYNC_INTERVAL", time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		panic(err)
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		panic(err)
	}
	return v
}

func getEnvDecimal(key, fallback string) decimal.Decimal {
	v, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		panic(err)
	}
	return v
}
