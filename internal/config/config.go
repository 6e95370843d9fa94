package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type CatalogConfig struct {
	Env string     `yaml:"env" env-default:"local"`
	HTTPServer    `yaml:"http_server"`
	RecordDB      `yaml:"record_db"`
	LogConfig     `yaml:"log_config"`
	KafkaService  `yaml:"kafka-service"`
	Sync          SyncConfig     `yaml:"sync"`
	Resolver      ResolverConfig `yaml:"resolver"`
}

type HTTPServer struct {
	Host string `yaml:"host" env-default:"0.0.0.0"`
	Port string `yaml:"port" env-default:"8080"`
}

type RecordDB struct {
	Dsn            string `yaml:"dsn"`
	MigrationsPath string `yaml:"migrations_path" env-default:"migrations"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env-default:"info"`
	LogFormat string `yaml:"log_format" env-default:"text"`
	LogOutput string `yaml:"log_output" env-default:"stdout"`
}

type KafkaService struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type SyncConfig struct {
	Topic      string `yaml:"topic" env-default:"catalog-changes"`
	GroupID    string `yaml:"group_id" env-default:"catalog-sync"`
	DebounceMs int    `yaml:"debounce_ms" env-default:"500"`
}

func (s SyncConfig) DebounceWindow() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

type ResolverConfig struct {
	WaitBoundMs    int `yaml:"wait_bound_ms" env-default:"5000"`
	PollIntervalMs int `yaml:"poll_interval_ms" env-default:"200"`
}

func (r ResolverConfig) WaitBound() time.Duration {
	return time.Duration(r.WaitBoundMs) * time.Millisecond
}

func (r ResolverConfig) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalMs) * time.Millisecond
}

func MustLoad() *CatalogConfig {

	// Processing env config variable and file
	configPath := os.Getenv("CATALOG_CONFIG_PATH")

	if configPath == "" {
		log.Fatalf("CATALOG_CONFIG_PATH was not found\n")
	}

	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("failed to find config file: %v\n", err)
	}

	// YAML to struct object
	var cfg CatalogConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	return &cfg
}
