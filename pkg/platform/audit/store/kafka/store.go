// Package kafka streams security events to a Kafka topic as JSON.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	audit "shieldgate/pkg/platform/audit"
)

// Producer is the subset of the platform Kafka producer the store needs.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Store implements audit.Store by publishing one record per event, keyed
// by client IP so a client's events stay ordered within a partition.
type Store struct {
	producer Producer
	topic    string
}

// New creates a Kafka-backed audit store.
func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

func (s *Store) Append(ctx context.Context, event audit.SecurityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode security event: %w", err)
	}
	headers := map[string]string{
		"kind":     string(event.Kind),
		"severity": string(event.Severity),
	}
	if event.RequestID != "" {
		headers["request_id"] = event.RequestID
	}
	if err := s.producer.Produce(ctx, s.topic, []byte(event.ClientIP), payload, headers); err != nil {
		return fmt.Errorf("publish security event: %w", err)
	}
	return nil
}
