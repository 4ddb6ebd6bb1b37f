package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"
)

// KafkaSource reads message values from partition 0 of a topic, starting at
// the newest offset so only live events are seen.
type KafkaSource struct {
	brokers []string
	topic   string
}

// NewKafkaSource creates a source for topic on brokers.
func NewKafkaSource(brokers []string, topic string) *KafkaSource {
	return &KafkaSource{brokers: brokers, topic: topic}
}

func (s *KafkaSource) Kind() string { return KindKafka }

func (s *KafkaSource) Describe() string {
	return fmt.Sprintf("kafka://%s/%s", strings.Join(s.brokers, ","), s.topic)
}

// Open checks that the partition leader is reachable, then starts a reader.
func (s *KafkaSource) Open(ctx context.Context) (Stream, error) {
	if len(s.brokers) == 0 {
		return nil, fmt.Errorf("open kafka stream: no brokers configured")
	}

	conn, err := kafka.DialLeader(ctx, "tcp", s.brokers[0], s.topic, 0)
	if err != nil {
		return nil, fmt.Errorf("dial kafka leader: %w", err)
	}
	conn.Close()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   s.brokers,
		Topic:     s.topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	if err := reader.SetOffset(kafka.LastOffset); err != nil {
		reader.Close()
		return nil, fmt.Errorf("seek kafka reader: %w", err)
	}

	return &kafkaStream{reader: reader}, nil
}

type kafkaStream struct {
	reader    *kafka.Reader
	closeOnce sync.Once
}

func (s *kafkaStream) Recv(ctx context.Context) ([]byte, error) {
	msg, err := s.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read kafka message: %w", err)
	}
	return msg.Value, nil
}

func (s *kafkaStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.reader.Close()
	})
	return err
}
