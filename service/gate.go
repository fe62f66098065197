package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cosmifi/gateway/core"
	"github.com/cosmifi/gateway/internal/logger"
	"github.com/cosmifi/gateway/internal/metrics"
	"github.com/cosmifi/gateway/ports"
	"go.uber.org/zap"
)

// maxClockSkew is how far in the future a challenge timestamp may be
const maxClockSkew = time.Minute

var errSignatureMissing = errors.New("wallet headers present without signature")

// GatePolicy tunes how strictly wallet credentials are checked
type GatePolicy struct {
	// RequireSignature denies wallet mode requests without X-Actual-Signature.
	// When false, wallet headers alone authenticate the caller.
	RequireSignature bool

	// MaxMessageAge bounds the timestamp embedded in the signed message.
	// Zero disables the check.
	MaxMessageAge time.Duration
}

// DefaultGatePolicy requires a signature and leaves message age unchecked
func DefaultGatePolicy() GatePolicy {
	return GatePolicy{RequireSignature: true}
}

// Gate decides whether a request's credentials authenticate a principal
type Gate struct {
	verifier ports.SignatureVerifier
	identity ports.IdentityProvider
	policy   GatePolicy
	log      *zap.Logger

	now func() time.Time
}

// NewGate creates a new auth gate
func NewGate(
	verifier ports.SignatureVerifier,
	identity ports.IdentityProvider,
	policy GatePolicy,
	log *zap.Logger,
) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	if !policy.RequireSignature {
		log.Warn("auth gate accepts unsigned wallet headers; set auth.require_signature to close this")
	}

	return &Gate{
		verifier: verifier,
		identity: identity,
		policy:   policy,
		log:      log.Named("gate"),
		now:      time.Now,
	}
}

// Evaluate selects exactly one authentication mode for h and validates it.
// It never panics and never returns an error: every failure is a denied Outcome.
func (g *Gate) Evaluate(ctx context.Context, h core.Headers) (out core.Outcome) {
	start := time.Now()
	mode := core.SelectMode(h)

	defer func() {
		if r := recover(); r != nil {
			out = core.Deny(core.ReasonSignatureVerificationFailed, fmt.Errorf("gate panic: %v", r))
		}
		g.record(mode, h, out, time.Since(start))
	}()

	switch mode {
	case core.ModeWallet, core.ModeWalletHeadersOnly:
		return g.evaluateWallet(mode, h)
	case core.ModeBearer:
		return g.evaluateBearer(ctx, h)
	default:
		return core.Deny(core.ReasonMissingCredentials, nil)
	}
}

func (g *Gate) evaluateWallet(mode core.Mode, h core.Headers) core.Outcome {
	principal := &core.Principal{
		WalletAddress: h.WalletAddress,
		Source:        core.SourceWalletSignature,
	}

	if g.skipsVerification(mode, h) {
		return core.Allow(principal)
	}

	if h.Signature == "" {
		return core.Deny(core.ReasonMissingCredentials, errSignatureMissing)
	}

	if g.policy.MaxMessageAge > 0 {
		if err := g.checkFreshness(h); err != nil {
			return core.Deny(core.ReasonInvalidSignature, err)
		}
	}

	valid, err := g.verifier.Verify(h.WalletAddress, h.Message, h.Signature)
	if err != nil {
		return core.Deny(core.ReasonSignatureVerificationFailed, err)
	}
	if !valid {
		return core.Deny(core.ReasonInvalidSignature, core.ErrInvalidSignature)
	}

	return core.Allow(principal)
}

// skipsVerification reports the lenient paths: headers-only requests are never
// verified, even when signed, and unsigned wallet requests pass as is.
func (g *Gate) skipsVerification(mode core.Mode, h core.Headers) bool {
	if g.policy.RequireSignature {
		return false
	}
	return mode == core.ModeWalletHeadersOnly || h.Signature == ""
}

func (g *Gate) checkFreshness(h core.Headers) error {
	challenge, err := core.ParseChallenge(h.Message)
	if err != nil {
		return err
	}

	if !strings.EqualFold(challenge.WalletAddress, h.WalletAddress) {
		return fmt.Errorf("message signed for %s: %w", logger.Short(challenge.WalletAddress), core.ErrInvalidChallenge)
	}

	now := g.now()
	if challenge.IssuedAt.After(now.Add(maxClockSkew)) || now.Sub(challenge.IssuedAt) > g.policy.MaxMessageAge {
		return fmt.Errorf("issued at %s: %w", challenge.IssuedAt.UTC().Format(time.RFC3339), core.ErrStaleChallenge)
	}

	return nil
}

func (g *Gate) evaluateBearer(ctx context.Context, h core.Headers) core.Outcome {
	token, _ := h.BearerToken()

	user, err := g.identity.GetUserForToken(ctx, token)
	if err != nil {
		return core.Deny(core.ReasonInvalidToken, err)
	}
	if user == nil {
		return core.Deny(core.ReasonInvalidToken, core.ErrInvalidToken)
	}
	if user.WalletAddress == "" {
		return core.Deny(core.ReasonInvalidToken, fmt.Errorf("%w: no wallet address claim", core.ErrInvalidToken))
	}

	return core.Allow(&core.Principal{
		WalletAddress: user.WalletAddress,
		Source:        core.SourceBearerIdentity,
	})
}

func (g *Gate) record(mode core.Mode, h core.Headers, out core.Outcome, elapsed time.Duration) {
	metrics.AuthGateDuration.WithLabelValues(mode.String()).Observe(elapsed.Seconds())

	if out.Allowed() {
		metrics.AuthDecisions.WithLabelValues(mode.String(), "allowed", "").Inc()

		fields := []zap.Field{
			zap.String("mode", mode.String()),
			zap.String("wallet", logger.Short(out.Principal().WalletAddress)),
		}
		if mode.IsWallet() && g.skipsVerification(mode, h) {
			g.log.Warn("wallet request allowed without signature check", fields...)
			return
		}
		g.log.Debug("request authenticated", fields...)
		return
	}

	reason := out.Reason()
	metrics.AuthDecisions.WithLabelValues(mode.String(), "denied", reason.String()).Inc()

	fields := []zap.Field{
		zap.String("mode", mode.String()),
		zap.String("reason", reason.String()),
		zap.String("wallet", logger.Short(h.WalletAddress)),
	}
	if cause := out.Cause(); cause != nil {
		fields = append(fields, zap.Error(cause))
	}

	switch {
	case reason == core.ReasonSignatureVerificationFailed,
		errors.Is(out.Cause(), core.ErrProviderUnavailable):
		g.log.Warn("request denied", fields...)
	default:
		g.log.Info("request denied", fields...)
	}
}
