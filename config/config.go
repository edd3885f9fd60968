package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const devSecret = "snakeball-dev-secret-change-me"

type Config struct {
	Port           int
	Dev            bool
	JWTSecret      string
	TokenTTL       time.Duration
	DatabaseURL    string
	AllowedOrigins []string
	LogLevel       string
	LogPretty      bool

	ICEServers     []string
	TURNURL        string
	TURNUsername   string
	TURNCredential string

	// Inbound websocket messages per second and burst, per connection.
	InputRate  float64
	InputBurst int
}

func Default() Config {
	return Config{
		Port:           8080,
		Dev:            true,
		TokenTTL:       24 * time.Hour,
		AllowedOrigins: []string{"*"},
		LogLevel:       "info",
		LogPretty:      true,
		ICEServers:     []string{"stun:stun.l.google.com:19302"},
		InputRate:      30,
		InputBurst:     10,
	}
}

// LoadDotEnv loads variables from the given files into the environment. A
// missing file is not an error.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load %s", f)
		}
	}
	return nil
}

// FromEnv returns the defaults overridden by any variables that are set.
func FromEnv() Config {
	cfg := Default()

	if v, ok := lookupInt("PORT"); ok {
		cfg.Port = v
	}
	if v, ok := lookupBool("DEV"); ok {
		cfg.Dev = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v, err := time.ParseDuration(os.Getenv("TOKEN_TTL")); err == nil && v > 0 {
		cfg.TokenTTL = v
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if v := splitList(os.Getenv("ALLOWED_ORIGINS")); len(v) > 0 {
		cfg.AllowedOrigins = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookupBool("LOG_PRETTY"); ok {
		cfg.LogPretty = v
	}
	if v := splitList(os.Getenv("ICE_SERVERS")); len(v) > 0 {
		cfg.ICEServers = v
	}
	cfg.TURNURL = os.Getenv("TURN_URL")
	cfg.TURNUsername = os.Getenv("TURN_USERNAME")
	cfg.TURNCredential = os.Getenv("TURN_CREDENTIAL")
	if v, err := strconv.ParseFloat(os.Getenv("INPUT_RATE"), 64); err == nil && v > 0 {
		cfg.InputRate = v
	}
	if v, ok := lookupInt("INPUT_BURST"); ok && v > 0 {
		cfg.InputBurst = v
	}
	return cfg
}

// Validate fills development fallbacks and rejects unusable settings.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	if c.JWTSecret == "" {
		if !c.Dev {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.JWTSecret = devSecret
	}
	if c.TURNURL != "" && (c.TURNUsername == "" || c.TURNCredential == "") {
		return errors.New("TURN_URL needs TURN_USERNAME and TURN_CREDENTIAL")
	}
	return nil
}

func lookupInt(key string) (int, bool) {
	v, err := strconv.Atoi(os.Getenv(key))
	return v, err == nil
}

func lookupBool(key string) (bool, bool) {
	v, err := strconv.ParseBool(os.Getenv(key))
	return v, err == nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
