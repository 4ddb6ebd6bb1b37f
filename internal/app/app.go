package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"live-transcript-service/internal/config"
	"live-transcript-service/internal/events"
	"live-transcript-service/internal/ingest"
	"live-transcript-service/internal/observability/logging"
	"live-transcript-service/internal/service/transcript"
	"live-transcript-service/internal/session"
)

// Application holds process-wide state for the service: the live session,
// the ingestor feeding it and the Kafka forwarder observing it.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration
	Session     *session.Session
	Ingestor    *ingest.Ingestor
	Publisher   *events.Publisher
	Forwarder   *events.Forwarder
}

// New constructs an Application reading from the source selected in cfg.
func New(cfg *config.Configuration) (*Application, error) {
	src, err := ingest.NewSource(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("build source: %w", err)
	}
	return NewWithSource(cfg, src), nil
}

// NewWithSource constructs an Application reading from src.
func NewWithSource(cfg *config.Configuration, src ingest.Source) *Application {
	a := &Application{
		Cfg:    cfg,
		Logger: logging.WithComponent("application"),
	}

	a.Session = session.New(transcript.Config{
		Palette:          cfg.Session.Palette,
		EndpointCapacity: cfg.Session.EndpointCapacity,
	})
	a.Publisher = events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicPartial: cfg.Kafka.TopicPartial,
		TopicFinal:   cfg.Kafka.TopicFinal,
		Principal:    cfg.Kafka.Principal,
	})
	a.Forwarder = events.NewForwarder(a.Publisher, cfg.Kafka.QueueSize, a.Session.ID)
	a.Session.Engine().SetObserver(a.Forwarder)
	a.Ingestor = ingest.New(a.Session, src)

	a.Logger.Info().
		Str("method", "New").
		Str("sourceKind", src.Kind()).
		Str("source", src.Describe()).
		Bool("kafkaForwarding", a.Publisher.Enabled()).
		Msg("Live transcript application created")
	return a
}

// Start records the startup time.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Str("method", "Start").
		Time("startupTime", a.StartupTime).
		Msg("Live transcript service starting")
	return nil
}

// Shutdown closes the stream, flushes forwarded events and closes the Kafka
// writers.
func (a *Application) Shutdown() {
	a.Logger.Info().Str("method", "Shutdown").Msg("Live transcript service shutting down")

	a.Ingestor.Close()
	a.Forwarder.Close()
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Error().Err(err).Str("method", "Shutdown").Msg("Error closing Kafka publisher")
	}
}
