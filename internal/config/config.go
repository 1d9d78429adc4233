package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config — конфигурация сервисов Conveyor.
//
// Загружается из YAML-файла (путь в CONFIG_PATH) и перекрывается
// переменными окружения. Перед чтением окружения подхватывается
// .env, если он есть. Интервалы задаются в секундах.
type Config struct {
	// DatabaseURL — DSN PostgreSQL.
	DatabaseURL string `yaml:"database_url"`

	// RabbitMQURL — адрес RabbitMQ. Пустое значение переводит API
	// во встроенный режим: executions выполняются в том же процессе.
	RabbitMQURL string `yaml:"rabbitmq_url"`

	// APIAddr — адрес HTTP API.
	APIAddr string `yaml:"api_addr"`

	// MetricsAddr — адрес /metrics и /healthz движка и scheduler'а.
	MetricsAddr string `yaml:"metrics_addr"`

	// ExportDir — каталог экспортируемых документов.
	ExportDir string `yaml:"export_dir"`

	// SchedulerIntervalSec — период опроса расписаний.
	SchedulerIntervalSec int `yaml:"scheduler_interval_sec"`

	// Providers — переопределения AI-провайдеров.
	Providers Providers `yaml:"providers"`
}

// Providers — адреса и таймауты внешних AI-сервисов.
type Providers struct {
	OpenRouterBaseURL  string `yaml:"openrouter_base_url"`
	NvidiaBaseURL      string `yaml:"nvidia_base_url"`
	HuggingFaceBaseURL string `yaml:"huggingface_base_url"`
	ChatTimeoutSec     int    `yaml:"chat_timeout_sec"`
	ImageTimeoutSec    int    `yaml:"image_timeout_sec"`
}

// SchedulerInterval возвращает период опроса расписаний.
func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.SchedulerIntervalSec) * time.Second
}

// ChatTimeout возвращает таймаут текстовой генерации.
// Ноль означает дефолт провайдера.
func (p Providers) ChatTimeout() time.Duration {
	return time.Duration(p.ChatTimeoutSec) * time.Second
}

// ImageTimeout возвращает таймаут генерации изображений.
// Ноль означает дефолт провайдера.
func (p Providers) ImageTimeout() time.Duration {
	return time.Duration(p.ImageTimeoutSec) * time.Second
}

// Load читает конфигурацию: дефолты, затем YAML, затем окружение.
func Load() (*Config, error) {
	// .env нужен только для локальной разработки, его отсутствие — норма.
	_ = godotenv.Load()

	cfg := &Config{
		APIAddr:              ":8080",
		MetricsAddr:          ":9090",
		ExportDir:            "./exports",
		SchedulerIntervalSec: 15,
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv перекрывает значения переменными окружения.
func applyEnv(cfg *Config) {
	setString(&cfg.DatabaseURL, "DB_URL")
	setString(&cfg.RabbitMQURL, "RABBITMQ_URL")
	setString(&cfg.APIAddr, "API_ADDR")
	setString(&cfg.MetricsAddr, "METRICS_ADDR")
	setString(&cfg.ExportDir, "EXPORT_DIR")
	setInt(&cfg.SchedulerIntervalSec, "SCHEDULER_INTERVAL_SEC")

	setString(&cfg.Providers.OpenRouterBaseURL, "OPENROUTER_BASE_URL")
	setString(&cfg.Providers.NvidiaBaseURL, "NVIDIA_BASE_URL")
	setString(&cfg.Providers.HuggingFaceBaseURL, "HUGGINGFACE_BASE_URL")
	setInt(&cfg.Providers.ChatTimeoutSec, "CHAT_TIMEOUT_SEC")
	setInt(&cfg.Providers.ImageTimeoutSec, "IMAGE_TIMEOUT_SEC")
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}
