package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHTTPConnID     = "nasa_api"
	DefaultPostgresConnID = "my_postgres_connection"
	DefaultScheduleAt     = "00:00"
	DefaultTimezone       = "UTC"
	DefaultHTTPTimeout    = 30
	DefaultUserAgent      = "apod-etl/1.0"
	DefaultServerAddr     = ":8080"
	DefaultAMQPQueue      = "apod_ticks"
)

// Ошибки валидации конфигурации.
var (
	ErrMissingHTTPConnID     = errors.New("http_conn_id is required")
	ErrMissingPostgresConnID = errors.New("postgres_conn_id is required")
	ErrBadScheduleTime       = errors.New("schedule.at must be in HH:MM format")
	ErrBadTimezone           = errors.New("schedule.timezone is not a known location")
	ErrBadHTTPTimeout        = errors.New("http.timeout_seconds must be non-negative")
	ErrMissingAMQPQueue      = errors.New("amqp.queue is required when amqp.url is set")
	ErrUnsupportedFormat     = errors.New("unsupported config file extension")
)

// Config хранит настройки пайплайна: идентификаторы соединений,
// расписание, HTTP-клиент, сервер и AMQP-триггер.
type Config struct {
	HTTPConnID     string                `json:"http_conn_id" yaml:"http_conn_id"`
	PostgresConnID string                `json:"postgres_conn_id" yaml:"postgres_conn_id"`
	Schedule       ScheduleConfig        `json:"schedule" yaml:"schedule"`
	HTTP           HTTPConfig            `json:"http" yaml:"http"`
	Server         ServerConfig          `json:"server" yaml:"server"`
	AMQP           AMQPConfig            `json:"amqp" yaml:"amqp"`
	Connections    map[string]Connection `json:"connections" yaml:"connections"`
}

// ScheduleConfig задаёт время ежедневного запуска.
type ScheduleConfig struct {
	At         string `json:"at" yaml:"at"`
	Timezone   string `json:"timezone" yaml:"timezone"`
	RunOnStart bool   `json:"run_on_start" yaml:"run_on_start"`
}

type HTTPConfig struct {
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	UserAgent      string `json:"user_agent" yaml:"user_agent"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

type AMQPConfig struct {
	URL   string `json:"url" yaml:"url"`
	Queue string `json:"queue" yaml:"queue"`
}

// Timeout возвращает таймаут HTTP-клиента.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// Location возвращает часовой пояс расписания.
func (s ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// Clock разбирает поле At в часы и минуты.
func (s ScheduleConfig) Clock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", s.At)
	if err != nil {
		return 0, 0, ErrBadScheduleTime
	}
	return t.Hour(), t.Minute(), nil
}

// Validate проверяет идентификаторы соединений, формат расписания и AMQP-настройки.
func (cfg *Config) Validate() error {
	if cfg.HTTPConnID == "" {
		return ErrMissingHTTPConnID
	}
	if cfg.PostgresConnID == "" {
		return ErrMissingPostgresConnID
	}
	if _, _, err := cfg.Schedule.Clock(); err != nil {
		return err
	}
	if _, err := cfg.Schedule.Location(); err != nil {
		return fmt.Errorf("%w: %s", ErrBadTimezone, cfg.Schedule.Timezone)
	}
	if cfg.HTTP.TimeoutSeconds < 0 {
		return ErrBadHTTPTimeout
	}
	if cfg.AMQP.URL != "" && cfg.AMQP.Queue == "" {
		return ErrMissingAMQPQueue
	}
	return nil
}

// Default возвращает конфигурацию со значениями по умолчанию.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.HTTPConnID == "" {
		cfg.HTTPConnID = DefaultHTTPConnID
	}
	if cfg.PostgresConnID == "" {
		cfg.PostgresConnID = DefaultPostgresConnID
	}
	if cfg.Schedule.At == "" {
		cfg.Schedule.At = DefaultScheduleAt
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = DefaultTimezone
	}
	if cfg.HTTP.TimeoutSeconds == 0 {
		cfg.HTTP.TimeoutSeconds = DefaultHTTPTimeout
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = DefaultUserAgent
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.AMQP.Queue == "" {
		cfg.AMQP.Queue = DefaultAMQPQueue
	}
	if cfg.Connections == nil {
		cfg.Connections = map[string]Connection{}
	}
}

// LoadConfig читает JSON- или YAML-файл по пути path (формат определяется
// по расширению), декодирует его в Config и подставляет значения по умолчанию.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	cfg.applyDefaults()
	return &cfg, nil
}
