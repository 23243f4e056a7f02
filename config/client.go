package config

import (
	"fmt"
	"net/url"

	"github.com/kbukum/declhttp/logger"
	"github.com/kbukum/declhttp/observability"
	"github.com/kbukum/declhttp/transport"
)

// ClientConfig configures one declarative client.
type ClientConfig struct {
	// Name identifies the client in logs and telemetry. Defaults to "declhttp".
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is prefixed to every method path. A trailing slash is dropped.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	Transport transport.Config `yaml:"transport" mapstructure:"transport"`
	Logging   logger.Config    `yaml:"logging" mapstructure:"logging"`

	// Tracing configures OTLP export. proxy.New starts the providers when
	// enabled, unless they are passed as options.
	Tracing observability.Config `yaml:"tracing" mapstructure:"tracing"`
}

// ApplyDefaults applies defaults to the client and its sections.
func (c *ClientConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "declhttp"
	}
	if c.Transport.Name == "" {
		c.Transport.Name = c.Name
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = c.Name
	}
	c.Logging.ServiceName = c.Name
	c.Transport.ApplyDefaults()
	c.Logging.ApplyDefaults()
	c.Tracing.ApplyDefaults()
}

// Validate checks the client configuration.
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https (got: %q)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url must include a host")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("base_url must not carry a query or fragment")
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.Tracing.Validate()
}
