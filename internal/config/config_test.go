package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allEnvVars = []string{
	"CONFIG_FILE", "SERVICE_PRINCIPAL", "HTTP_PORT", "GRPC_PORT", "METRICS_PORT", "AUTO_CONNECT",
	"SOURCE_KIND", "SOURCE_URL", "SOURCE_BROKERS", "SOURCE_TOPIC", "SOURCE_SUBJECT",
	"SOURCE_DIAL_TIMEOUT", "MOCK_INTERVAL", "MOCK_LOOP",
	"SESSION_ENDPOINT_CAPACITY", "SESSION_PALETTE", "VIEW_REFRESH_INTERVAL",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_PARTIAL", "KAFKA_TOPIC_FINAL",
	"KAFKA_PRINCIPAL", "FORWARD_QUEUE_SIZE", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv() {
	for _, v := range allEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg := Load()

	if cfg.Service.Principal != "svc-live-transcript" {
		t.Errorf("expected default principal 'svc-live-transcript', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default http port '8080', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected default grpc port '50051', got %s", cfg.Service.GRPCPort)
	}
	if cfg.Service.AutoConnect {
		t.Error("expected auto connect to default to false")
	}

	if cfg.Source.Kind != "sse" {
		t.Errorf("expected default source 'sse', got %s", cfg.Source.Kind)
	}
	if cfg.Source.URL != "http://localhost:8000/transcribe" {
		t.Errorf("unexpected default source url %s", cfg.Source.URL)
	}
	if cfg.Source.DialTimeout != 10*time.Second {
		t.Errorf("expected default dial timeout 10s, got %v", cfg.Source.DialTimeout)
	}

	if cfg.Session.EndpointCapacity != 5 {
		t.Errorf("expected default endpoint capacity 5, got %d", cfg.Session.EndpointCapacity)
	}
	if len(cfg.Session.Palette) != 6 {
		t.Errorf("expected 6 palette entries, got %d", len(cfg.Session.Palette))
	}
	if cfg.Session.RefreshInterval != time.Second {
		t.Errorf("expected default refresh interval 1s, got %v", cfg.Session.RefreshInterval)
	}

	if cfg.Kafka.Enabled {
		t.Error("expected kafka forwarding disabled by default")
	}
	if cfg.Kafka.QueueSize != 256 {
		t.Errorf("expected default queue size 256, got %d", cfg.Kafka.QueueSize)
	}

	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv()
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_PORT", "9999")
	os.Setenv("AUTO_CONNECT", "true")
	os.Setenv("SOURCE_KIND", "KAFKA")
	os.Setenv("SOURCE_BROKERS", "k1:9092, k2:9092,")
	os.Setenv("SOURCE_DIAL_TIMEOUT", "3s")
	os.Setenv("SESSION_ENDPOINT_CAPACITY", "8")
	os.Setenv("SESSION_PALETTE", "red,teal")
	os.Setenv("KAFKA_ENABLED", "1")
	os.Setenv("LOG_LEVEL", "debug")
	defer clearEnv()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.HTTPPort)
	}
	if !cfg.Service.AutoConnect {
		t.Error("expected auto connect true")
	}
	if cfg.Source.Kind != "kafka" {
		t.Errorf("expected source kind normalised to 'kafka', got %s", cfg.Source.Kind)
	}
	if len(cfg.Source.Brokers) != 2 || cfg.Source.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers %v", cfg.Source.Brokers)
	}
	if cfg.Source.DialTimeout != 3*time.Second {
		t.Errorf("expected dial timeout 3s, got %v", cfg.Source.DialTimeout)
	}
	if cfg.Session.EndpointCapacity != 8 {
		t.Errorf("expected endpoint capacity 8, got %d", cfg.Session.EndpointCapacity)
	}
	if len(cfg.Session.Palette) != 2 || cfg.Session.Palette[0] != "red" {
		t.Errorf("unexpected palette %v", cfg.Session.Palette)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected kafka enabled")
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv()
	os.Setenv("SOURCE_DIAL_TIMEOUT", "soon")
	os.Setenv("SESSION_ENDPOINT_CAPACITY", "five")
	os.Setenv("MOCK_LOOP", "maybe")
	os.Setenv("SESSION_PALETTE", " , ")
	defer clearEnv()

	cfg := Load()

	if cfg.Source.DialTimeout != 10*time.Second {
		t.Errorf("expected default dial timeout on invalid input, got %v", cfg.Source.DialTimeout)
	}
	if cfg.Session.EndpointCapacity != 5 {
		t.Errorf("expected default endpoint capacity on invalid input, got %d", cfg.Session.EndpointCapacity)
	}
	if cfg.Source.MockLoop {
		t.Error("expected default mock loop on invalid input")
	}
	if len(cfg.Session.Palette) != 6 {
		t.Errorf("expected default palette on empty list, got %v", cfg.Session.Palette)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv()
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	defer clearEnv()

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
service:
  http_port: "7070"
source:
  kind: mock
  mock_interval: 50ms
session:
  palette: [amber, slate]
observability:
  log_level: warn
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	os.Setenv("CONFIG_FILE", path)
	os.Setenv("LOG_LEVEL", "error")
	defer clearEnv()

	cfg := Load()

	if cfg.Service.HTTPPort != "7070" {
		t.Errorf("expected file http port '7070', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Source.Kind != "mock" {
		t.Errorf("expected file source kind 'mock', got %s", cfg.Source.Kind)
	}
	if cfg.Source.MockInterval != 50*time.Millisecond {
		t.Errorf("expected file mock interval 50ms, got %v", cfg.Source.MockInterval)
	}
	if len(cfg.Session.Palette) != 2 || cfg.Session.Palette[1] != "slate" {
		t.Errorf("unexpected palette %v", cfg.Session.Palette)
	}
	if cfg.Observability.LogLevel != "error" {
		t.Errorf("expected env to override file log level, got %s", cfg.Observability.LogLevel)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected untouched default grpc port, got %s", cfg.Service.GRPCPort)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}
