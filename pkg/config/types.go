package config

// Config is the admission server's static configuration.
type Config struct {
	ListenAddr    string      `yaml:"listen_addr"`
	MetricsAddr   string      `yaml:"metrics_addr,omitempty"`
	LogLevel      string      `yaml:"log_level"`
	Algorithm     string      `yaml:"algorithm"` // hop_by_hop, convolution, aggregate
	MMBP          MMBPConfig  `yaml:"mmbp"`
	InitialQueues []QueueSpec `yaml:"initial_queues,omitempty"`
}

// MMBPConfig tunes the MMBP traffic model fit.
type MMBPConfig struct {
	MaxStates            int     `yaml:"max_states"`
	IntervalWidthSeconds float64 `yaml:"interval_width_seconds"`
	StepSizeSeconds      float64 `yaml:"step_size_seconds"`
}

// QueueSpec seeds the registry with a queue at startup.
type QueueSpec struct {
	Name      string  `yaml:"name"`
	Bandwidth float64 `yaml:"bandwidth"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:  ":8080",
		MetricsAddr: ":9090",
		LogLevel:    "info",
		Algorithm:   "aggregate",
		MMBP: MMBPConfig{
			MaxStates:            10,
			IntervalWidthSeconds: 1.0,
			StepSizeSeconds:      1e-5,
		},
	}
}
