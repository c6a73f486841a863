// Package config содержит логику чтения конфигурации маркетплейса.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress   = "localhost:8080"
	defaultKafkaTopic   = "taza.orders"
	defaultPollInterval = time.Minute
)

// Config содержит параметры конфигурации маркетплейса.
type Config struct {
	RunAddress        string        `env:"RUN_ADDRESS"`
	DatabaseURI       string        `env:"DATABASE_URI"`
	MarketFeedAddress string        `env:"MARKET_FEED_ADDRESS"`
	AuthSecret        string        `env:"AUTH_SECRET"`
	KafkaBrokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic        string        `env:"KAFKA_TOPIC"`
	TrendPollInterval time.Duration `env:"TREND_POLL_INTERVAL"`
}

// Parse считывает конфигурацию из .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	envCfg := Config{}
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}
	var brokers string

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.MarketFeedAddress, "r", "", "market feed address")
	flag.StringVar(&cfg.AuthSecret, "s", "", "cookie signing secret")
	flag.StringVar(&brokers, "k", "", "comma-separated kafka brokers")
	flag.StringVar(&cfg.KafkaTopic, "t", defaultKafkaTopic, "kafka topic for order events")
	flag.DurationVar(&cfg.TrendPollInterval, "p", defaultPollInterval, "market trend poll interval")

	flag.Parse()

	cfg.KafkaBrokers = splitList(brokers)

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.MarketFeedAddress != "" {
		cfg.MarketFeedAddress = envCfg.MarketFeedAddress
	}
	if envCfg.AuthSecret != "" {
		cfg.AuthSecret = envCfg.AuthSecret
	}
	if len(envCfg.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = splitList(strings.Join(envCfg.KafkaBrokers, ","))
	}
	if envCfg.KafkaTopic != "" {
		cfg.KafkaTopic = envCfg.KafkaTopic
	}
	if envCfg.TrendPollInterval > 0 {
		cfg.TrendPollInterval = envCfg.TrendPollInterval
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.TrendPollInterval <= 0 {
		return nil, fmt.Errorf("trend poll interval must be positive, got %s", cfg.TrendPollInterval)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}
