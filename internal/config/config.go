package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

func Default() Config {
	return Config{
		Listen:      "127.0.0.1:7750",
		NatsUrl:     "nats://127.0.0.1:4222",
		DataDir:     "/var/lib/devbay",
		CatalogPath: "/etc/devbay/templates.yaml",
		PortRange:   PortRange{Start: 10000, End: 10999},
		Workers:     4,
		CreateRetry: CreateRetry{Attempts: 3, BackoffSeconds: 15},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config yaml broken: %w", err)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.PortRange.Start <= 0 || cfg.PortRange.End > 65535 {
		return fmt.Errorf("port range must be within 1-65535: [%d, %d]", cfg.PortRange.Start, cfg.PortRange.End)
	}
	if cfg.PortRange.End < cfg.PortRange.Start {
		return fmt.Errorf("port range end must not be lower than start: [%d, %d]", cfg.PortRange.Start, cfg.PortRange.End)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be >= 1: %d", cfg.Workers)
	}
	if cfg.CreateRetry.Attempts < 1 {
		return fmt.Errorf("createRetry.attempts must be >= 1: %d", cfg.CreateRetry.Attempts)
	}
	return nil
}
