// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration is the full service configuration.
type Configuration struct {
	Service       Service       `yaml:"service"`
	Source        Source        `yaml:"source"`
	Session       Session       `yaml:"session"`
	Kafka         Kafka         `yaml:"kafka"`
	Observability Observability `yaml:"observability"`
}

// Service holds process level settings.
type Service struct {
	Principal   string `yaml:"principal"`
	HTTPPort    string `yaml:"http_port"`
	GRPCPort    string `yaml:"grpc_port"`
	MetricsPort string `yaml:"metrics_port"`
	AutoConnect bool   `yaml:"auto_connect"`
}

// Source selects and configures the upstream event stream.
type Source struct {
	Kind         string        `yaml:"kind"` // sse, websocket, kafka, nats, mock
	URL          string        `yaml:"url"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	Subject      string        `yaml:"subject"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	MockInterval time.Duration `yaml:"mock_interval"`
	MockLoop     bool          `yaml:"mock_loop"`
}

// Session holds aggregation settings.
type Session struct {
	EndpointCapacity int           `yaml:"endpoint_capacity"`
	Palette          []string      `yaml:"palette"`
	RefreshInterval  time.Duration `yaml:"refresh_interval"`
}

// Kafka configures forwarding of partial and final events.
type Kafka struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	TopicPartial string   `yaml:"topic_partial"`
	TopicFinal   string   `yaml:"topic_final"`
	Principal    string   `yaml:"principal"`
	QueueSize    int      `yaml:"queue_size"`
}

// Observability holds logging settings.
type Observability struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the built-in configuration.
func Defaults() *Configuration {
	return &Configuration{
		Service: Service{
			Principal:   "svc-live-transcript",
			HTTPPort:    "8080",
			GRPCPort:    "50051",
			MetricsPort: "9090",
		},
		Source: Source{
			Kind:         "sse",
			URL:          "http://localhost:8000/transcribe",
			Brokers:      []string{"localhost:9092"},
			Topic:        "transcript.events",
			Subject:      "transcript.events",
			DialTimeout:  10 * time.Second,
			MockInterval: 300 * time.Millisecond,
		},
		Session: Session{
			EndpointCapacity: 5,
			Palette:          []string{"blue", "green", "purple", "orange", "pink", "cyan"},
			RefreshInterval:  time.Second,
		},
		Kafka: Kafka{
			Brokers:      []string{"localhost:9092"},
			TopicPartial: "transcript.partial",
			TopicFinal:   "transcript.final",
			QueueSize:    256,
		},
		Observability: Observability{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load builds the configuration. A YAML file named by CONFIG_FILE is applied
// over the defaults, then environment variables override both. Invalid
// values fall back to the previous layer.
func Load() *Configuration {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "config: ignoring %s: %v\n", path, err)
		}
	}
	cfg.applyEnv()
	return cfg
}

// LoadFile returns the defaults overlaid with the YAML file at path.
func LoadFile(path string) (*Configuration, error) {
	cfg := Defaults()
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Configuration) applyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}
	return nil
}

func (c *Configuration) applyEnv() {
	c.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", c.Service.Principal)
	c.Service.HTTPPort = envOrDefault("HTTP_PORT", c.Service.HTTPPort)
	c.Service.GRPCPort = envOrDefault("GRPC_PORT", c.Service.GRPCPort)
	c.Service.MetricsPort = envOrDefault("METRICS_PORT", c.Service.MetricsPort)
	c.Service.AutoConnect = envOrDefaultBool("AUTO_CONNECT", c.Service.AutoConnect)

	c.Source.Kind = strings.ToLower(envOrDefault("SOURCE_KIND", c.Source.Kind))
	c.Source.URL = envOrDefault("SOURCE_URL", c.Source.URL)
	c.Source.Brokers = envOrDefaultList("SOURCE_BROKERS", c.Source.Brokers)
	c.Source.Topic = envOrDefault("SOURCE_TOPIC", c.Source.Topic)
	c.Source.Subject = envOrDefault("SOURCE_SUBJECT", c.Source.Subject)
	c.Source.DialTimeout = envOrDefaultDuration("SOURCE_DIAL_TIMEOUT", c.Source.DialTimeout)
	c.Source.MockInterval = envOrDefaultDuration("MOCK_INTERVAL", c.Source.MockInterval)
	c.Source.MockLoop = envOrDefaultBool("MOCK_LOOP", c.Source.MockLoop)

	c.Session.EndpointCapacity = envOrDefaultInt("SESSION_ENDPOINT_CAPACITY", c.Session.EndpointCapacity)
	c.Session.Palette = envOrDefaultList("SESSION_PALETTE", c.Session.Palette)
	c.Session.RefreshInterval = envOrDefaultDuration("VIEW_REFRESH_INTERVAL", c.Session.RefreshInterval)

	c.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = envOrDefaultList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.TopicPartial = envOrDefault("KAFKA_TOPIC_PARTIAL", c.Kafka.TopicPartial)
	c.Kafka.TopicFinal = envOrDefault("KAFKA_TOPIC_FINAL", c.Kafka.TopicFinal)
	c.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", c.Kafka.Principal)
	if c.Kafka.Principal == "" {
		c.Kafka.Principal = c.Service.Principal
	}
	c.Kafka.QueueSize = envOrDefaultInt("FORWARD_QUEUE_SIZE", c.Kafka.QueueSize)

	c.Observability.LogLevel = envOrDefault("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = envOrDefault("LOG_FORMAT", c.Observability.LogFormat)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
