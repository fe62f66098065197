package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cosmifi/gateway/ports"
)

const (
	DefaultTopicPrefix = "cosmifi.auth"

	KindWalletVerified = "wallet_verified"
	KindLogout         = "logout"
)

// AuthEvent is the payload of every authentication event
type AuthEvent struct {
	Kind       string    `json:"kind"`
	Address    string    `json:"address"`
	TokenID    string    `json:"token_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	prefix    string
}

// NewWatermillPublisher creates a new Watermill publisher. Events go to
// "<prefix>.<kind>"; an empty prefix selects DefaultTopicPrefix.
func NewWatermillPublisher(publisher message.Publisher, prefix string) ports.EventPublisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &WatermillPublisher{
		publisher: publisher,
		prefix:    prefix,
	}
}

// Topic returns the topic events of kind are published on
func Topic(prefix, kind string) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "." + kind
}

// PublishWalletVerified announces a successful wallet verification
func (p *WatermillPublisher) PublishWalletVerified(ctx context.Context, address string, tokenID string) error {
	return p.publish(ctx, KindWalletVerified, address, tokenID)
}

// PublishLogout announces a revoked token so other instances can drop caches
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	return p.publish(ctx, KindLogout, address, tokenID)
}

func (p *WatermillPublisher) publish(ctx context.Context, kind, address, tokenID string) error {
	event := AuthEvent{
		Kind:       kind,
		Address:    address,
		TokenID:    tokenID,
		OccurredAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(Topic(p.prefix, kind), msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
