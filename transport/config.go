package transport

import (
	"fmt"
	"maps"
	"time"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultRetryAttempts   = 3
	defaultRetryInitial    = 100 * time.Millisecond
	defaultRetryMax        = 2 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
)

// Config configures the HTTP transport.
type Config struct {
	// Name identifies the transport in logs and health reports.
	Name string `yaml:"name" mapstructure:"name"`

	// Timeout bounds each attempt. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// UserAgent overrides the default "declhttp/<version>" value.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Retry enables retries of retryable failures. Nil disables retry.
	Retry *RetryConfig `yaml:"retry" mapstructure:"retry"`

	// RateLimit throttles outgoing requests. Nil disables it.
	RateLimit *RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// CircuitBreaker fails fast after repeated failures. Nil disables it.
	CircuitBreaker *BreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
}

// RetryConfig configures exponential backoff between attempts.
type RetryConfig struct {
	MaxAttempts     uint          `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval" mapstructure:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval" mapstructure:"max_interval"`
}

// RateLimitConfig configures a token bucket: Rate requests per second with
// bursts of up to Burst.
type RateLimitConfig struct {
	Rate  float64 `yaml:"rate" mapstructure:"rate"`
	Burst int     `yaml:"burst" mapstructure:"burst"`
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures"`
	// Cooldown is how long the circuit stays open before a probe is allowed.
	Cooldown time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "http"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if r := c.Retry; r != nil {
		if r.MaxAttempts == 0 {
			r.MaxAttempts = defaultRetryAttempts
		}
		if r.InitialInterval <= 0 {
			r.InitialInterval = defaultRetryInitial
		}
		if r.MaxInterval <= 0 {
			r.MaxInterval = defaultRetryMax
		}
	}
	if rl := c.RateLimit; rl != nil && rl.Burst <= 0 {
		rl.Burst = 1
	}
	if b := c.CircuitBreaker; b != nil {
		if b.MaxFailures <= 0 {
			b.MaxFailures = defaultBreakerFailures
		}
		if b.Cooldown <= 0 {
			b.Cooldown = defaultBreakerCooldown
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("transport: timeout must be positive")
	}
	if r := c.Retry; r != nil && r.MaxInterval < r.InitialInterval {
		return fmt.Errorf("transport: retry max_interval %s is below initial_interval %s", r.MaxInterval, r.InitialInterval)
	}
	if rl := c.RateLimit; rl != nil && rl.Rate <= 0 {
		return fmt.Errorf("transport: rate_limit rate must be positive")
	}
	return nil
}

// Clone returns a deep copy so later changes to the caller's value do not
// reach a running transport.
func (c Config) Clone() Config {
	c.Headers = maps.Clone(c.Headers)
	if c.Retry != nil {
		r := *c.Retry
		c.Retry = &r
	}
	if c.RateLimit != nil {
		rl := *c.RateLimit
		c.RateLimit = &rl
	}
	if c.CircuitBreaker != nil {
		b := *c.CircuitBreaker
		c.CircuitBreaker = &b
	}
	return c
}
