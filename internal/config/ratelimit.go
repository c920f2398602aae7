package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig drives the token-bucket middleware.  The same numbers are
// used by the redis-backed bucket and by the in-process fallback limiter, so
// behaviour stays the same when redis is down.  AuthCapacity and
// AuthRefillInterval configure the stricter bucket in front of the
// credential endpoints (login, signup, verification, password reset).
type RateLimitConfig struct {
	Enabled            bool
	Capacity           int
	RefillTokens       int
	RefillInterval     time.Duration
	AuthCapacity       int
	AuthRefillInterval time.Duration
	TTL                time.Duration
	KeyStrategy        string
	Prefix             string
	Debug              bool
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:            envBool("RATE_LIMIT_ENABLED", true),
		Capacity:           envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:       envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval:     envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		AuthCapacity:       envInt("RATE_LIMIT_AUTH_CAPACITY", 5),
		AuthRefillInterval: envDur("RATE_LIMIT_AUTH_REFILL_INTERVAL", 12*time.Second),
		TTL:                envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:        envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:             envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:              envBool("RATE_LIMIT_DEBUG", false),
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.AuthCapacity < 1 {
		def.AuthCapacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if def.AuthRefillInterval <= 0 {
		def.AuthRefillInterval = 12 * time.Second
	}
	minTTL := 5 * def.AuthRefillInterval
	if def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

// ForAuth returns a copy of the config tuned for the credential endpoints.
func (c RateLimitConfig) ForAuth() RateLimitConfig {
	c.Capacity = c.AuthCapacity
	c.RefillTokens = 1
	c.RefillInterval = c.AuthRefillInterval
	c.KeyStrategy = "ip_route"
	c.Prefix = c.Prefix + ":auth"
	return c
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
