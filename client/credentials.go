// Package client builds wallet credentials for the gateway and calls its API.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cosmifi/gateway/core"
	"github.com/cosmifi/gateway/internal/logger"
	"github.com/cosmifi/gateway/ports"
	"go.uber.org/zap"
)

var (
	ErrNotConnected       = errors.New("wallet not connected")
	ErrRecentCancellation = errors.New("user recently cancelled signature request, please wait before trying again")
	ErrSignatureRejected  = errors.New("user rejected signature")
	ErrSigningFailed      = errors.New("unable to sign message")
)

// CredentialBuilder produces the headers the gateway's wallet mode expects,
// reusing recent signatures so the wallet is not prompted on every request.
type CredentialBuilder struct {
	signer ports.WalletSigner
	cache  *SignatureCache
	apiKey string
	log    *zap.Logger
}

// NewCredentialBuilder creates a builder. apiKey fills the bearer slot and the
// apikey header; the wallet triple carries the actual authentication.
func NewCredentialBuilder(signer ports.WalletSigner, cache *SignatureCache, apiKey string, log *zap.Logger) *CredentialBuilder {
	if cache == nil {
		cache = NewSignatureCache(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CredentialBuilder{
		signer: signer,
		cache:  cache,
		apiKey: apiKey,
		log:    log.Named("credentials"),
	}
}

// AuthHeaders returns wallet credentials for address, prompting the wallet
// only when no signature younger than CacheDuration is cached.
//
// ctx is handed to the signer, but cancelling it is not guaranteed to dismiss
// a prompt the wallet is already showing.
func (b *CredentialBuilder) AuthHeaders(ctx context.Context, address string) (core.Headers, error) {
	if address == "" {
		return core.Headers{}, ErrNotConnected
	}

	now := b.cache.Now()

	if record, active := b.cache.InCooldown(address); active {
		b.log.Debug("signing suppressed during cooldown",
			zap.String("wallet", logger.Short(address)),
			zap.Int("failures", record.FailureCount),
		)
		return core.Headers{}, ErrRecentCancellation
	}

	if cached, ok := b.cache.Signature(address); ok {
		b.log.Debug("using cached signature", zap.String("wallet", logger.Short(address)))
		challenge := core.NewChallenge(address, cached.Timestamp)
		return b.headers(address, challenge.Message(), cached.Signature), nil
	}

	challenge := core.NewChallenge(address, now)
	signature, err := b.signer.SignMessage(ctx, address, challenge.Message())
	if err != nil {
		record := b.cache.RecordFailure(address, now)
		b.log.Warn("failed to sign message",
			zap.String("wallet", logger.Short(address)),
			zap.Int("failures", record.FailureCount),
			zap.Error(err),
		)
		if isUserRejection(err) {
			return core.Headers{}, fmt.Errorf("%w: %v", ErrSignatureRejected, err)
		}
		return core.Headers{}, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	b.cache.StoreSignature(address, signature, challenge.IssuedAt)
	return b.headers(address, challenge.Message(), signature), nil
}

// Invalidate drops the cached signature for address so the next call prompts again
func (b *CredentialBuilder) Invalidate(address string) {
	b.cache.Forget(address)
}

func (b *CredentialBuilder) headers(address, message, signature string) core.Headers {
	return core.Headers{
		Authorization: core.BearerPrefix + b.apiKey,
		WalletAddress: address,
		Message:       message,
		Signature:     signature,
		APIKey:        b.apiKey,
	}
}

// Wallets that do not wrap ErrUserRejected still report it in the message
func isUserRejection(err error) bool {
	return errors.Is(err, core.ErrUserRejected) || strings.Contains(err.Error(), "User rejected")
}
