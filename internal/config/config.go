// Package config loads the server configuration from a YAML file, with
// environment fallbacks so a bare `go run` still comes up in demo mode.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "staffing-grid.yaml"

type ERPConfig struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	SendBatchSize  int    `yaml:"send_batch_size"`
	SendBatchGapMS int    `yaml:"send_batch_gap_ms"`
}

type Config struct {
	Addr        string    `yaml:"addr"`
	OrgID       string    `yaml:"org_id"`
	DatabaseURL string    `yaml:"database_url"`
	ERP         ERPConfig `yaml:"erp"`
}

func Default() Config {
	return Config{
		Addr:  ":8080",
		OrgID: "demo",
		ERP: ERPConfig{
			SendBatchSize:  3,
			SendBatchGapMS: 500,
		},
	}
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist. A present-but-broken file is an error, not a silent
// default.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.ERP.SendBatchSize <= 0 {
		cfg.ERP.SendBatchSize = 3
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.DatabaseURL = dsn
	}
	if token := os.Getenv("ERP_TOKEN"); token != "" {
		cfg.ERP.Token = token
	}
}

// SendBatchGap returns the inter-batch delay as a duration.
func (c Config) SendBatchGap() time.Duration {
	return time.Duration(c.ERP.SendBatchGapMS) * time.Millisecond
}
