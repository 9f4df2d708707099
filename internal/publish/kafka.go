package publish

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ayusman/posturelab/internal/posture"
)

// EventTypeAnalysisCompleted is the type field of published events.
const EventTypeAnalysisCompleted = "analysis.completed"

// DefaultTopic is used when KafkaConfig.Topic is empty.
const DefaultTopic = "posture.analyses"

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	// WriteTimeout bounds a single delivery. Zero means 5s.
	WriteTimeout time.Duration
}

// Event is the message value written to Kafka.
type Event struct {
	Type      string            `json:"type"`
	Source    string            `json:"source"`
	Analysis  *posture.Analysis `json:"analysis"`
	Note      string            `json:"note"`
	Published time.Time         `json:"publishedAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var errNoBrokers = errors.New("at least one kafka broker is required")

// KafkaPublisher writes each report as a JSON event keyed by analysis ID.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewKafkaPublisher creates a publisher backed by a kafka-go Writer.
func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errNoBrokers
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, cfg, logger), nil
}

func newKafkaPublisher(w messageWriter, cfg KafkaConfig, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaPublisher{
		writer:  w,
		topic:   cfg.Topic,
		timeout: timeout,
		logger:  logger.With("component", "kafka_publisher"),
		now:     time.Now,
	}
}

// Name implements Sink.
func (p *KafkaPublisher) Name() string {
	return "kafka"
}

// Publish writes one event for the report.
func (p *KafkaPublisher) Publish(ctx context.Context, report *posture.Report) error {
	if report == nil || report.Analysis == nil {
		return nil
	}

	value, err := json.Marshal(Event{
		Type:      EventTypeAnalysisCompleted,
		Source:    SourceFrom(ctx),
		Analysis:  report.Analysis,
		Note:      report.Note,
		Published: p.now().UTC(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(report.Analysis.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventTypeAnalysisCompleted)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}

	p.logger.Debug("event published", "topic", p.topic, "analysis", report.Analysis.ID)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
