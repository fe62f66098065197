package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cosmifi/gateway/core"
	"github.com/cosmifi/gateway/internal/logger"
	"github.com/cosmifi/gateway/internal/metrics"
	"github.com/cosmifi/gateway/ports"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ErrMissingFields is returned when a verification request is incomplete
var ErrMissingFields = errors.New("missing required fields: walletAddress, signature, message")

// Session is the result of a successful wallet verification
type Session struct {
	Token         string    `json:"token"`
	WalletAddress string    `json:"walletAddress"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// AuthService handles wallet verification and token lifecycle
type AuthService struct {
	verifier ports.SignatureVerifier
	issuer   ports.TokenIssuer
	revoker  ports.TokenRevoker
	eventPub ports.EventPublisher
	log      *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	verifier ports.SignatureVerifier,
	issuer ports.TokenIssuer,
	revoker ports.TokenRevoker,
	eventPub ports.EventPublisher,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		verifier: verifier,
		issuer:   issuer,
		revoker:  revoker,
		eventPub: eventPub,
		log:      log.Named("auth"),
	}
}

// VerifyWallet checks that signature over message was produced by address and
// issues an identity token usable in bearer mode
func (s *AuthService) VerifyWallet(ctx context.Context, address, signature, message string) (*Session, error) {
	if address == "" || signature == "" || message == "" {
		metrics.WalletVerifications.WithLabelValues("invalid_request").Inc()
		return nil, ErrMissingFields
	}

	if !common.IsHexAddress(address) {
		metrics.WalletVerifications.WithLabelValues("invalid_request").Inc()
		return nil, core.ErrInvalidAddress
	}

	valid, err := s.verifier.Verify(address, message, signature)
	if err != nil {
		metrics.WalletVerifications.WithLabelValues("invalid_signature").Inc()
		return nil, fmt.Errorf("signature verification failed: %w", errors.Join(core.ErrInvalidSignature, err))
	}
	if !valid {
		metrics.WalletVerifications.WithLabelValues("invalid_signature").Inc()
		return nil, core.ErrInvalidSignature
	}

	token, tokenID, expiresAt, err := s.issuer.IssueToken(address)
	if err != nil {
		metrics.WalletVerifications.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	// Subscribers only observe verifications; a lost event must not fail the login
	if err := s.eventPub.PublishWalletVerified(ctx, address, tokenID); err != nil {
		metrics.EventPublishFailures.WithLabelValues("wallet_verified").Inc()
		s.log.Warn("failed to publish wallet verified event",
			zap.String("wallet", logger.Short(address)),
			zap.Error(err),
		)
	}

	metrics.WalletVerifications.WithLabelValues("success").Inc()
	s.log.Info("wallet verified", zap.String("wallet", logger.Short(address)), zap.Time("expires_at", expiresAt))

	return &Session{
		Token:         token,
		WalletAddress: address,
		ExpiresAt:     expiresAt,
	}, nil
}

// Logout revokes an issued token
func (s *AuthService) Logout(ctx context.Context, token string) error {
	address, tokenID, err := s.revoker.RevokeToken(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	// The token is already revoked in the store, which is the critical part
	if err := s.eventPub.PublishLogout(ctx, address, tokenID); err != nil {
		metrics.EventPublishFailures.WithLabelValues("logout").Inc()
		s.log.Warn("failed to publish logout event",
			zap.String("wallet", logger.Short(address)),
			zap.Error(err),
		)
	}

	return nil
}
