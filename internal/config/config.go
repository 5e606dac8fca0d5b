// Package config centralizes runtime configuration for the agent.
// Values come from the environment (optionally seeded from a .env file);
// a YAML file referenced by VOLTIX_CONFIG overrides individual fields.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Version is the agent release version, reported by /health and /diagnostics.
const Version = "6.1.0"

// Config holds all runtime configuration for the agent process.
type Config struct {
	Port     int    `yaml:"port"`
	APIKey   string `yaml:"api_key"`
	DemoMode bool   `yaml:"demo_mode"`

	// Trust service (intent verification). An empty TrustAPIKey selects the
	// local-simulation backend.
	TrustAPIKey  string `yaml:"trust_api_key"`
	TrustBaseURL string `yaml:"trust_base_url"`
	UserID       string `yaml:"user_id"`
	AgentID      string `yaml:"agent_id"`

	// SigningSecret keys the HMAC signature on simulated intent tokens.
	SigningSecret string `yaml:"signing_secret"`

	// Optional Redis fleet event publisher.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// Load builds the configuration from the environment. A .env file in the
// working directory is loaded first if present; a YAML file named by
// VOLTIX_CONFIG is applied on top of the defaults before env overrides.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	cfg := &Config{
		Port:          3000,
		APIKey:        "mykey",
		TrustBaseURL:  "https://api.armoriq.io",
		UserID:        "voltix-agent-user",
		AgentID:       "voltix-mechanic-agent",
		SigningSecret: "voltix-dev-signing-secret",
	}

	if path := os.Getenv("VOLTIX_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			log.Printf("Config file %s ignored: %v", path, err)
		}
	}

	cfg.applyEnv()
	return cfg
}

func (c *Config) applyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return yaml.NewDecoder(f).Decode(c)
}

func (c *Config) applyEnv() {
	// Render and other PaaS hosts inject PORT; VOLTIX_PORT wins locally.
	if p := firstEnv("VOLTIX_PORT", "PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			c.Port = n
		}
	}
	if v := os.Getenv("VOLTIX_API_KEY"); v != "" {
		c.APIKey = v
	}
	c.DemoMode = c.DemoMode || envBool("VOLTIX_DEMO_MODE")
	if v := os.Getenv("ARMORIQ_API_KEY"); v != "" {
		c.TrustAPIKey = v
	}
	if v := os.Getenv("ARMORIQ_BASE_URL"); v != "" {
		c.TrustBaseURL = v
	}
	if v := os.Getenv("ARMORIQ_USER_ID"); v != "" {
		c.UserID = v
	}
	if v := os.Getenv("ARMORIQ_AGENT_ID"); v != "" {
		c.AgentID = v
	}
	if v := os.Getenv("VOLTIX_SIGNING_SECRET"); v != "" {
		c.SigningSecret = v
	}
	if v := os.Getenv("VOLTIX_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("VOLTIX_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("VOLTIX_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
}

// TrustEnabled reports whether the production verification backend is
// configured. Presence of the credential is the only toggle.
func (c *Config) TrustEnabled() bool {
	return c.TrustAPIKey != ""
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
