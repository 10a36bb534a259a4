package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Settings struct {
	HTTPAddr string

	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	KafkaBroker string
	KafkaTopic  string

	SessionSecret       string
	SessionTTL          time.Duration
	SessionCookieSecure bool

	DataDir       string
	PublicBaseURL string

	LogLevel  string
	LogFormat string

	AdminEmail    string
	AdminPassword string
}

// Load reads the settings from the environment, falling back to defaults
// suitable for a local docker-compose setup.
func Load() (*Settings, error) {
	s := &Settings{
		HTTPAddr:      GetEnv("HTTP_ADDR", ":8080"),
		DBHost:        GetEnv("DB_HOST", "localhost"),
		DBPort:        GetEnv("DB_PORT", "5432"),
		DBName:        GetEnv("DB_NAME", "delive"),
		DBUser:        GetEnv("DB_USER", "postgres"),
		DBPassword:    GetEnv("DB_PASSWORD", ""),
		RedisHost:     GetEnv("REDIS_HOST", "localhost"),
		RedisPort:     GetEnv("REDIS_PORT", "6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		KafkaBroker:   GetEnv("KAFKA_BROKER", ""),
		KafkaTopic:    GetEnv("KAFKA_TOPIC", "orders"),
		SessionSecret: GetEnv("SESSION_SECRET", ""),
		DataDir:       GetEnv("DATA_DIR", "./data"),
		PublicBaseURL: GetEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		LogLevel:      GetEnv("LOG_LEVEL", "info"),
		LogFormat:     GetEnv("LOG_FORMAT", "text"),
		AdminEmail:    GetEnv("ADMIN_EMAIL", ""),
		AdminPassword: GetEnv("ADMIN_PASSWORD", ""),
	}

	var err error
	if s.RedisDB, err = strconv.Atoi(GetEnv("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	if s.SessionTTL, err = time.ParseDuration(GetEnv("SESSION_TTL", "336h")); err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	if s.SessionCookieSecure, err = strconv.ParseBool(GetEnv("SESSION_COOKIE_SECURE", "false")); err != nil {
		return nil, fmt.Errorf("SESSION_COOKIE_SECURE: %w", err)
	}
	if s.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET must be set")
	}
	return s, nil
}

func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func NewLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableLevelTruncation: true})
	}
	return logger
}

func MustInitPostgres(s *Settings, logger logrus.FieldLogger) *sql.DB {
	connStr := "host=" + s.DBHost + " port=" + s.DBPort + " user=" + s.DBUser +
		" password=" + s.DBPassword + " dbname=" + s.DBName + " sslmode=disable"

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}

	if err = db.Ping(); err != nil {
		logger.WithError(err).Fatal("failed to ping database")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	return db
}

func MustInitRedis(s *Settings, logger logrus.FieldLogger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     s.RedisHost + ":" + s.RedisPort,
		Password: s.RedisPassword,
		DB:       s.RedisDB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}

	return client
}

// NewKafkaWriter returns nil when no broker is configured; order events are
// then not published.
func NewKafkaWriter(s *Settings) *kafka.Writer {
	if s.KafkaBroker == "" {
		return nil
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(s.KafkaBroker, ",")...),
		Topic:                  s.KafkaTopic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
}
