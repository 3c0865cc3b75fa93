package config

import (
	"fmt"
	"os"
)

// LoadConfig loads and parses a configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// validateConfig performs validation on the configuration.
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	validAlgorithms := map[string]bool{
		"hop_by_hop":  true,
		"convolution": true,
		"aggregate":   true,
	}
	if !validAlgorithms[cfg.Algorithm] {
		return fmt.Errorf("invalid algorithm: %s (must be hop_by_hop, convolution, or aggregate)", cfg.Algorithm)
	}

	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr cannot be empty")
	}

	if err := validateMMBP(&cfg.MMBP); err != nil {
		return fmt.Errorf("mmbp validation failed: %w", err)
	}

	queueNames := make(map[string]bool)
	for _, q := range cfg.InitialQueues {
		if q.Name == "" {
			return fmt.Errorf("initial queue name cannot be empty")
		}
		if queueNames[q.Name] {
			return fmt.Errorf("duplicate initial queue name: %s", q.Name)
		}
		queueNames[q.Name] = true
		if q.Bandwidth <= 0 {
			return fmt.Errorf("initial queue %s: bandwidth must be positive", q.Name)
		}
	}

	return nil
}

// validateMMBP validates the MMBP fitting configuration.
func validateMMBP(m *MMBPConfig) error {
	if m.MaxStates <= 0 {
		return fmt.Errorf("max_states must be positive, got %d", m.MaxStates)
	}
	if m.MaxStates > 10 {
		return fmt.Errorf("max_states cannot exceed 10, got %d", m.MaxStates)
	}
	if m.IntervalWidthSeconds <= 0 {
		return fmt.Errorf("interval_width_seconds must be positive, got %f", m.IntervalWidthSeconds)
	}
	if m.StepSizeSeconds <= 0 {
		return fmt.Errorf("step_size_seconds must be positive, got %f", m.StepSizeSeconds)
	}
	return nil
}
