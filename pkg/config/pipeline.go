package config

import "fmt"

// Pipeline is the configuration for a flowline pipeline: the bounded queue,
// the worker coordinator and the observability endpoint of the demo binary.
type Pipeline struct {
	// Workers is the number of consumer goroutines.
	Workers int `yaml:"workers" json:"workers"`

	// QueueCapacity is the fixed capacity of the bounded queue.
	QueueCapacity int `yaml:"queue_capacity" json:"queue_capacity"`

	// ShutdownTimeoutSeconds bounds how long shutdown waits for workers to
	// drain the queue and exit.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" json:"shutdown_timeout_seconds"`

	// MetricsAddr is the listen address of the /metrics endpoint. Empty
	// disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`

	// Tracing enables the stdout trace exporter.
	Tracing bool `yaml:"tracing" json:"tracing"`
}

// DefaultPipeline returns the defaults used when no config file is present.
func DefaultPipeline() Pipeline {
	return Pipeline{
		Workers:                4,
		QueueCapacity:          64,
		ShutdownTimeoutSeconds: 30,
		MetricsAddr:            ":9090",
	}
}

// Validate implements the Validator contract for Pipeline values.
func (p Pipeline) Validate() error {
	if p.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", p.Workers)
	}
	if p.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be >= 1, got %d", p.QueueCapacity)
	}
	if p.ShutdownTimeoutSeconds < 1 {
		return fmt.Errorf("shutdown_timeout_seconds must be >= 1, got %d", p.ShutdownTimeoutSeconds)
	}
	return nil
}
