package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         string `yaml:"port"`
	StoreBackend string `yaml:"store_backend"`
	RedisURL     string `yaml:"redis_url"`
	SQLitePath   string `yaml:"sqlite_path"`
	LogLevel     string `yaml:"log_level"`

	Market MarketConfig `yaml:"market"`
}

type MarketConfig struct {
	CLOBBaseURL  string `yaml:"clob_base_url"`
	GammaBaseURL string `yaml:"gamma_base_url"`
}

func Default() Config {
	return Config{
		Port:         "8080",
		StoreBackend: "memory",
		SQLitePath:   "./moltmarket.db",
		LogLevel:     "info",
		Market: MarketConfig{
			CLOBBaseURL:  "https://clob.polymarket.com",
			GammaBaseURL: "https://gamma-api.polymarket.com",
		},
	}
}

// LoadFile reads a yaml config over the defaults. A missing path is
// not an error; defaults plus env apply.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) ApplyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.StoreBackend = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CLOB_BASE_URL"); v != "" {
		c.Market.CLOBBaseURL = v
	}
	if v := os.Getenv("GAMMA_BASE_URL"); v != "" {
		c.Market.GammaBaseURL = v
	}
}
