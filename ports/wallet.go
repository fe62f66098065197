package ports

import "context"

// WalletSigner asks a wallet to sign a message. It may block until the user
// answers a prompt; cancelling ctx is not guaranteed to dismiss that prompt.
type WalletSigner interface {
	SignMessage(ctx context.Context, address, message string) (string, error)
}
