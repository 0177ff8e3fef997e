package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/logger"
)

// KafkaConfig configures the Kafka-backed work queue.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
	GroupID string   `yaml:"group_id" mapstructure:"group_id"`
	// BatchTimeout bounds producer-side batching latency.
	BatchTimeout time.Duration `yaml:"batch_timeout" mapstructure:"batch_timeout"`
}

// ApplyDefaults applies default values to Kafka configuration.
func (c *KafkaConfig) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.Topic == "" {
		c.Topic = "flowkit.jobs"
	}
	if c.GroupID == "" {
		c.GroupID = "flowkit-workers"
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 10 * time.Millisecond
	}
}

// Validate validates Kafka configuration.
func (c *KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("queue.brokers is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("queue.topic is required")
	}
	return nil
}

// KafkaQueue is a WorkQueue on a Kafka topic. Messages are keyed by job id
// so retries of the same job land on the same partition; consumer-group
// semantics give at-least-once delivery across the worker pool.
type KafkaQueue struct {
	writer *kafkago.Writer
	reader *kafkago.Reader
	topic  string
	log    *logger.Logger
}

// NewKafkaQueue creates a KafkaQueue from configuration.
func NewKafkaQueue(cfg KafkaConfig, log *logger.Logger) (*KafkaQueue, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka queue config: %w", err)
	}

	qlog := log.WithComponent("queue.kafka")

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafkago.RequireAll,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			qlog.Error("writer: "+msg, map[string]interface{}{
				"args": fmt.Sprintf("%v", args),
			})
		}),
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			qlog.Error("reader: "+msg, map[string]interface{}{
				"args":        fmt.Sprintf("%v", args),
				"queue_topic": cfg.Topic,
			})
		}),
	})

	qlog.Info("kafka queue initialized", map[string]interface{}{
		"brokers":     cfg.Brokers,
		"queue_topic": cfg.Topic,
		"group_id":    cfg.GroupID,
	})

	return &KafkaQueue{
		writer: writer,
		reader: reader,
		topic:  cfg.Topic,
		log:    qlog,
	}, nil
}

func (q *KafkaQueue) Enqueue(ctx context.Context, msg Message) error {
	msg.EnqueuedAt = time.Now().UTC()
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Internal("marshaling queue message", err)
	}

	err = q.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(msg.JobID),
		Value: data,
	})
	if err != nil {
		return errors.QueueUnavailable(err)
	}

	q.log.Debug("message enqueued", logger.Fields(
		logger.FieldJobID, msg.JobID,
		logger.FieldPipelineID, msg.PipelineID,
		"attempt", msg.Attempt,
	))
	return nil
}

func (q *KafkaQueue) Dequeue(ctx context.Context) (*Message, error) {
	kmsg, err := q.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.QueueUnavailable(err)
	}

	var msg Message
	if err := json.Unmarshal(kmsg.Value, &msg); err != nil {
		return nil, errors.Internal("unmarshaling queue message", err)
	}
	return &msg, nil
}

func (q *KafkaQueue) Close() error {
	rerr := q.reader.Close()
	werr := q.writer.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

var _ WorkQueue = (*KafkaQueue)(nil)
