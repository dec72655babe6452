package configs

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig configures the cirqle terminal client.
type ClientConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`

	// Token is a bearer token issued by the auth provider. When empty and
	// DevSecret is set, tokens are minted locally for UserID.
	Token     string `yaml:"token"`
	UserID    string `yaml:"user_id"`
	DevSecret string `yaml:"dev_secret"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:  "http://localhost:8080",
		Timeout:  15 * time.Second,
		LogFile:  "cirqle.log",
		LogLevel: "info",
	}
}

// LoadClientConfig reads path over the defaults. A missing file is not an
// error. CIRQLE_TOKEN overrides the token from the file.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read client config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse client config %s: %w", path, err)
			}
		}
	}
	if tok := os.Getenv("CIRQLE_TOKEN"); tok != "" {
		cfg.Token = tok
	}
	return cfg, nil
}
