package observability

import "fmt"

const (
	defaultNamespace   = "flowteam"
	defaultMetricsPath = "/metrics"
)

// MetricsConfig configures the Prometheus metrics registry.
type MetricsConfig struct {
	Enabled   bool
	Endpoint  string
	Namespace string
}

// SetDefaults fills unset fields.
func (c *MetricsConfig) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = defaultMetricsPath
	}
	if c.Namespace == "" {
		c.Namespace = defaultNamespace
	}
}

// Validate checks the config.
func (c *MetricsConfig) Validate() error {
	if c.Enabled && c.Endpoint == "" {
		return fmt.Errorf("observability: endpoint is required when metrics are enabled")
	}
	return nil
}
