package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/vmihailenco/msgpack/v5"
)

// LogSink writes entries to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, entry Entry) error {
	s.logger.InfoContext(ctx, "audit",
		"timestamp", entry.Timestamp,
		"actor", entry.Actor,
		"action", entry.Action,
		"family", entry.Family,
		"id", entry.EntityID,
		"description", entry.Description,
		"related", len(entry.RelatedIDs),
	)
	return nil
}

// MemorySink keeps entries in memory.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

func (s *MemorySink) Write(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Entries returns a copy of the recorded entries.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Producer is the part of a kgo.Client used by KafkaSink.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
}

// KafkaSink publishes msgpack-encoded entries to a topic, keyed by entity id
// so entries of one record stay ordered within a partition.
type KafkaSink struct {
	producer Producer
	topic    string
	logger   *slog.Logger
	client   *kgo.Client
}

// NewKafkaSink connects a franz-go client to brokers.
func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("audit: kafka client: %w", err)
	}

	sink := NewKafkaSinkWithProducer(client, topic, logger)
	sink.client = client
	return sink, nil
}

// NewKafkaSinkWithProducer creates a KafkaSink on an existing producer.
func NewKafkaSinkWithProducer(producer Producer, topic string, logger *slog.Logger) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, logger: logger}
}

// Write encodes entry and produces it asynchronously. Delivery failures
// are logged.
func (s *KafkaSink) Write(ctx context.Context, entry Entry) error {
	value, err := msgpack.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("audit: encode entry: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(entry.EntityID.String()),
		Value: value,
	}
	s.producer.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			s.logger.Warn("audit delivery failed", "topic", r.Topic, "error", err)
		}
	})
	return nil
}

// Close flushes buffered records and closes the client created by
// NewKafkaSink.
func (s *KafkaSink) Close(ctx context.Context) error {
	err := s.producer.Flush(ctx)
	if s.client != nil {
		s.client.Close()
	}
	return err
}

// DecodeEntry reverses the encoding used by KafkaSink.
func DecodeEntry(value []byte) (Entry, error) {
	var entry Entry
	if err := msgpack.Unmarshal(value, &entry); err != nil {
		return Entry{}, fmt.Errorf("audit: decode entry: %w", err)
	}
	return entry, nil
}
