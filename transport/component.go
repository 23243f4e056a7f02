package transport

import (
	"context"
	"fmt"
)

// HealthStatus is the health of a transport component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health reports a component's status.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component manages the lifecycle of an HTTP transport for applications
// that start and stop their dependencies explicitly. The transport is
// created in Start.
type Component struct {
	config Config
	opts   []Option
	http   *HTTP
}

// NewComponent creates a component for cfg.
func NewComponent(cfg Config, opts ...Option) *Component {
	return &Component{config: cfg, opts: opts}
}

// Name returns the transport name.
func (c *Component) Name() string {
	if c.config.Name == "" {
		return "http"
	}
	return c.config.Name
}

// Start creates the transport.
func (c *Component) Start(_ context.Context) error {
	t, err := NewHTTP(c.config, c.opts...)
	if err != nil {
		return err
	}
	c.http = t
	return nil
}

// Stop releases idle connections.
func (c *Component) Stop(_ context.Context) error {
	if c.http != nil {
		c.http.Close()
	}
	return nil
}

// Health reports unhealthy before Start and while the circuit is open.
func (c *Component) Health(_ context.Context) Health {
	h := Health{Name: c.Name(), Status: StatusHealthy}
	switch {
	case c.http == nil:
		h.Status = StatusUnhealthy
		h.Message = "not started"
	case !c.http.Available():
		h.Status = StatusUnhealthy
		h.Message = fmt.Sprintf("circuit %s", c.http.breaker.State())
	}
	return h
}

// Transport returns the started transport, or nil before Start.
func (c *Component) Transport() *HTTP {
	return c.http
}
