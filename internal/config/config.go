package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"billingengine/internal/billing"
	pkgconfig "billingengine/pkg/config"
)

// BillingConfig holds the engine and service knobs.
type BillingConfig struct {
	ReconcileTimeout     time.Duration `yaml:"reconcile_timeout"`
	ReconcileConcurrency int           `yaml:"reconcile_concurrency"`
	MinorUnit            string        `yaml:"minor_unit"`
	Numbering            string        `yaml:"numbering"`
	Classifier           string        `yaml:"classifier"` // default | strict
	OverdueInterval      time.Duration `yaml:"overdue_interval"`
	OutboxInterval       time.Duration `yaml:"outbox_interval"`
	DedupTTL             time.Duration `yaml:"dedup_ttl"`
	SlowQueryThreshold   time.Duration `yaml:"slow_query_threshold"`
}

type Config struct {
	LogLevel string                 `yaml:"log_level"`
	DB       pkgconfig.DBConfig     `yaml:"db"`
	MQ       pkgconfig.MQConfig     `yaml:"mq"`
	Redis    pkgconfig.RedisConfig  `yaml:"redis"`
	Server   pkgconfig.ServerConfig `yaml:"server"`
	Runner   pkgconfig.ServerConfig `yaml:"runner"`
	OTel     pkgconfig.OTelConfig   `yaml:"otel"`
	Billing  BillingConfig          `yaml:"billing"`
}

// Load reads CONFIG_ENV / CONFIG_DIR, merges the yaml layers and applies env overrides.
func Load() (*Config, error) {
	env := pkgconfig.GetConfigEnv()
	dir := pkgconfig.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := pkgconfig.LoadConfig(env, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := fromMap(cfgMap)
	if err != nil {
		return nil, err
	}
	if cfg.OTel.Environment == "" {
		cfg.OTel.Environment = env
	}
	return cfg, nil
}

func fromMap(cfgMap map[string]interface{}) (*Config, error) {
	// 先转回 yaml 再解析成结构体
	data, err := yaml.Marshal(cfgMap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideServerFromEnv(&cfg.Server)
	pkgconfig.OverrideOTelFromEnv(&cfg.OTel)
	if err := overrideBillingFromEnv(&cfg.Billing); err != nil {
		return nil, err
	}
	if err := cfg.Billing.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults are used for keys missing from every layer.
func Defaults() *Config {
	return &Config{
		LogLevel: "info",
		Server:   pkgconfig.ServerConfig{Port: ":8080"},
		Runner:   pkgconfig.ServerConfig{Port: ":8081"},
		OTel:     pkgconfig.OTelConfig{ServiceName: "billing-engine"},
		Billing: BillingConfig{
			ReconcileTimeout:     5 * time.Second,
			ReconcileConcurrency: 8,
			MinorUnit:            "Cents",
			Numbering:            string(billing.NumberingInternational),
			Classifier:           "default",
			OverdueInterval:      time.Hour,
			OutboxInterval:       time.Second,
			DedupTTL:             24 * time.Hour,
			SlowQueryThreshold:   100 * time.Millisecond,
		},
	}
}

func overrideBillingFromEnv(cfg *BillingConfig) error {
	if v := os.Getenv("BILLING_RECONCILE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BILLING_RECONCILE_TIMEOUT: %w", err)
		}
		cfg.ReconcileTimeout = d
	}
	if v := os.Getenv("BILLING_MINOR_UNIT"); v != "" {
		cfg.MinorUnit = v
	}
	return nil
}

func (c BillingConfig) Validate() error {
	if c.ReconcileTimeout <= 0 {
		return fmt.Errorf("billing.reconcile_timeout must be positive")
	}
	if c.ReconcileConcurrency <= 0 {
		return fmt.Errorf("billing.reconcile_concurrency must be positive")
	}
	switch billing.Numbering(c.Numbering) {
	case billing.NumberingInternational, billing.NumberingIndian:
	default:
		return fmt.Errorf("billing.numbering: unknown system %q", c.Numbering)
	}
	switch c.Classifier {
	case "default", "strict":
	default:
		return fmt.Errorf("billing.classifier: unknown classifier %q", c.Classifier)
	}
	return nil
}

// AggregateOptions turns the config into the options every aggregate call uses.
func (c BillingConfig) AggregateOptions() billing.AggregateOptions {
	classifier := billing.DefaultClassifier
	if c.Classifier == "strict" {
		classifier = billing.StrictClassifier
	}
	return billing.AggregateOptions{
		Classifier: classifier,
		Words: billing.WordsOptions{
			MinorUnit: c.MinorUnit,
			Numbering: billing.Numbering(c.Numbering),
		},
	}
}
