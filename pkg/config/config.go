package config

import (
	"os"
	"strconv"
)

// DBConfig 数据库配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// MQConfig 消息队列配置
type MQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// OTelConfig controls span export; disabled means a noop tracer.
type OTelConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`
	// SampleRatio is the share of root traces kept; 0 or >= 1 keeps all of them.
	SampleRatio float64 `yaml:"sample_ratio"`
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	overrideString(&cfg.Host, "DB_HOST")
	overrideInt(&cfg.Port, "DB_PORT")
	overrideString(&cfg.User, "DB_USER")
	overrideString(&cfg.Password, "DB_PASSWORD")
	overrideString(&cfg.Name, "DB_NAME")
	overrideString(&cfg.SSLMode, "DB_SSLMODE")
}

func OverrideMQFromEnv(cfg *MQConfig) {
	overrideString(&cfg.URL, "MQ_URL")
}

func OverrideRedisFromEnv(cfg *RedisConfig) {
	overrideString(&cfg.Addr, "REDIS_ADDR")
	overrideString(&cfg.Password, "REDIS_PASSWORD")
	overrideInt(&cfg.DB, "REDIS_DB")
}

func OverrideServerFromEnv(cfg *ServerConfig) {
	overrideString(&cfg.Port, "SERVER_PORT")
}

func OverrideOTelFromEnv(cfg *OTelConfig) {
	overrideString(&cfg.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	if v := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.SampleRatio = f
		}
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = b
		}
	}
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// overrideInt ignores values that do not parse.
func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
