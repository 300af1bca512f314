// Package events publishes creation lifecycle events to Kafka for
// downstream consumers (indexers, notification services).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"solana-token-forge/internal/domain"
)

// Topics carrying creation lifecycle events.
const (
	TopicTokenCreated   = "token-created"
	TopicCreationFailed = "creation-failed"
)

// TokenCreatedEvent is the payload published on token-created.
type TokenCreatedEvent struct {
	Mint                 string  `json:"mint"`
	TokenAccount         string  `json:"token_account"`
	Creator              string  `json:"creator"`
	Network              string  `json:"network"`
	Name                 string  `json:"name"`
	Symbol               string  `json:"symbol"`
	Decimals             int     `json:"decimals"`
	Supply               uint64  `json:"supply"`
	TransactionSignature string  `json:"tx_signature"`
	ExplorerURL          string  `json:"explorer_url"`
	MetadataURI          *string `json:"metadata_uri,omitempty"`
	CreatedAt            int64   `json:"created_at"`
}

// CreationFailedEvent is the payload published on creation-failed.
// Reason is the sanitized user-facing message, never raw error text.
type CreationFailedEvent struct {
	Creator  string `json:"creator"`
	Network  string `json:"network"`
	Reason   string `json:"reason"`
	FailedAt int64  `json:"failed_at"`
}

// messageWriter is the kafka.Writer surface the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes lifecycle events, keyed by creator address
// so one creator's events stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher connects a publisher to the given brokers.
func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 100 * time.Millisecond,
		},
	}
}

// newKafkaPublisherWithWriter is the test seam.
func newKafkaPublisherWithWriter(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// TokenCreated publishes the produced artifact of a successful run.
func (p *KafkaPublisher) TokenCreated(ctx context.Context, record *domain.MintRecord) error {
	return p.publish(ctx, TopicTokenCreated, record.Creator, TokenCreatedEvent{
		Mint:                 record.Mint,
		TokenAccount:         record.TokenAccount,
		Creator:              record.Creator,
		Network:              string(record.Network),
		Name:                 record.Name,
		Symbol:               record.Symbol,
		Decimals:             record.Decimals,
		Supply:               record.Supply,
		TransactionSignature: record.TransactionSignature,
		ExplorerURL:          record.ExplorerURL,
		MetadataURI:          record.MetadataURI,
		CreatedAt:            record.CreatedAt,
	})
}

// CreationFailed publishes a terminal failure with its sanitized reason.
func (p *KafkaPublisher) CreationFailed(ctx context.Context, creator string, network domain.Network, reason string) error {
	return p.publish(ctx, TopicCreationFailed, creator, CreationFailedEvent{
		Creator:  creator,
		Network:  string(network),
		Reason:   reason,
		FailedAt: time.Now().UnixMilli(),
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
