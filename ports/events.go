package ports

import "context"

// EventPublisher publishes authentication events to other instances
type EventPublisher interface {
	PublishWalletVerified(ctx context.Context, address string, tokenID string) error
	PublishLogout(ctx context.Context, address string, tokenID string) error
}
