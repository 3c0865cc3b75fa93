package config

import "testing"

func TestParseConfigYAML(t *testing.T) {
	yamlText := `
listen_addr: ":8080"
log_level: info
algorithm: aggregate
mmbp:
  max_states: 10
  interval_width_seconds: 1.0
  step_size_seconds: 0.00001
initial_queues:
  - name: uplink0
    bandwidth: 1.25e8
`
	cfg, err := ParseConfigYAMLString(yamlText)
	if err != nil {
		t.Fatalf("ParseConfigYAMLString() error = %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.Algorithm != "aggregate" {
		t.Errorf("Algorithm = %q, want aggregate", cfg.Algorithm)
	}
	if len(cfg.InitialQueues) != 1 || cfg.InitialQueues[0].Name != "uplink0" {
		t.Errorf("InitialQueues = %+v, want one queue named uplink0", cfg.InitialQueues)
	}
}

func TestParseConfigYAMLInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad log level", `listen_addr: ":8080"
log_level: verbose
algorithm: aggregate
mmbp: {max_states: 10, interval_width_seconds: 1, step_size_seconds: 0.00001}`},
		{"bad algorithm", `listen_addr: ":8080"
log_level: info
algorithm: quantum
mmbp: {max_states: 10, interval_width_seconds: 1, step_size_seconds: 0.00001}`},
		{"too many mmbp states", `listen_addr: ":8080"
log_level: info
algorithm: aggregate
mmbp: {max_states: 20, interval_width_seconds: 1, step_size_seconds: 0.00001}`},
		{"duplicate queue name", `listen_addr: ":8080"
log_level: info
algorithm: aggregate
mmbp: {max_states: 10, interval_width_seconds: 1, step_size_seconds: 0.00001}
initial_queues:
  - {name: q0, bandwidth: 100}
  - {name: q0, bandwidth: 200}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfigYAMLString(tt.yaml); err == nil {
				t.Errorf("ParseConfigYAMLString() expected error, got nil")
			}
		})
	}
}
