package appkafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter defines an interface for writing messages to Kafka.
type KafkaWriter interface {
	WriteMessages(messages ...kafka.Message) error
	Close() error
}

// KafkaReader defines an interface for reading messages from Kafka.
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConfig holds configuration parameters for Kafka.
type KafkaConfig struct {
	Brokers      []string      // list of Kafka brokers
	Topic        string        // topic name
	Partition    int           // partition number (used for low-level writes)
	WriteTimeout time.Duration // write timeout, zero or less means no deadline
	ReadTimeout  time.Duration // max wait for a fetch on the reader side
	GroupID      string        // consumer group ID, empty reads the partition directly
}

// RealKafkaWriter implements KafkaWriter using kafka.Conn (low-level writes).
// The connection is dialled lazily so a CLI command that never mutates
// anything never touches the broker.
type RealKafkaWriter struct {
	mu     sync.Mutex
	conn   *kafka.Conn
	config KafkaConfig
	dial   func(ctx context.Context, network, address, topic string, partition int) (*kafka.Conn, error)
}

// NewKafkaWriter creates a writer for cfg.
func NewKafkaWriter(cfg KafkaConfig) *RealKafkaWriter {
	if len(cfg.Brokers) == 0 {
		cfg.Brokers = []string{"localhost:9092"}
	}
	return &RealKafkaWriter{config: cfg, dial: kafka.DialLeader}
}

func (w *RealKafkaWriter) connect() (*kafka.Conn, error) {
	if w.conn != nil {
		return w.conn, nil
	}
	ctx := context.Background()
	if w.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.WriteTimeout)
		defer cancel()
	}
	conn, err := w.dial(ctx, "tcp", w.config.Brokers[0], w.config.Topic, w.config.Partition)
	if err != nil {
		return nil, err
	}
	w.conn = conn
	return conn, nil
}

func (w *RealKafkaWriter) WriteMessages(messages ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	conn, err := w.connect()
	if err != nil {
		return err
	}
	if conn == nil {
		return errors.New("kafka connection is nil")
	}
	if w.config.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
	}
	if _, err := conn.WriteMessages(messages...); err != nil {
		// drop the broken connection, the next write redials
		conn.Close()
		w.conn = nil
		return err
	}
	return nil
}

func (w *RealKafkaWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		err := w.conn.Close()
		w.conn = nil
		return err
	}
	return nil
}

// RealKafkaReader implements KafkaReader using kafka.Reader.
type RealKafkaReader struct {
	reader *kafka.Reader
}

// NewKafkaReader creates a reader. With a GroupID it joins the consumer
// group; without one it tails the configured partition from the end.
func NewKafkaReader(cfg KafkaConfig) KafkaReader {
	if len(cfg.Brokers) == 0 {
		cfg.Brokers = []string{"localhost:9092"}
	}
	rc := kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  cfg.ReadTimeout,
	}
	if cfg.GroupID != "" {
		rc.CommitInterval = time.Second
	} else {
		rc.Partition = cfg.Partition
		rc.StartOffset = kafka.LastOffset
	}
	return &RealKafkaReader{reader: kafka.NewReader(rc)}
}

func (r *RealKafkaReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	return r.reader.ReadMessage(ctx)
}

func (r *RealKafkaReader) Close() error {
	return r.reader.Close()
}
