package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Source identifies which authentication path produced a Principal
type Source int

const (
	SourceWalletSignature Source = iota + 1
	SourceBearerIdentity
)

func (s Source) String() string {
	switch s {
	case SourceWalletSignature:
		return "wallet_signature"
	case SourceBearerIdentity:
		return "bearer_identity"
	default:
		return "unknown"
	}
}

// Principal is the authenticated identity attached to an allowed request.
// It is built per request and never persisted.
type Principal struct {
	WalletAddress string // As received for wallet mode, provider claim for bearer mode
	Source        Source
}

// Key returns the lowercase wallet address, suitable for storage keys
func (p *Principal) Key() string {
	return strings.ToLower(p.WalletAddress)
}

// User is what an identity provider resolves a bearer token to
type User struct {
	ID            string
	WalletAddress string
}

const (
	challengePrefix  = "Sign this message to authenticate with CosmiFi. Wallet: "
	challengeStampID = " Timestamp: "
)

// Challenge is the message a wallet signs to authenticate
type Challenge struct {
	WalletAddress string
	IssuedAt      time.Time
}

// NewChallenge creates a challenge for address at the given instant
func NewChallenge(address string, issuedAt time.Time) Challenge {
	return Challenge{WalletAddress: address, IssuedAt: issuedAt}
}

// IssuedAtMillis returns the timestamp embedded in the message
func (c Challenge) IssuedAtMillis() int64 {
	return c.IssuedAt.UnixMilli()
}

// Message renders the canonical challenge text. The same wallet and timestamp
// always render the same string.
func (c Challenge) Message() string {
	return challengePrefix + c.WalletAddress + challengeStampID + strconv.FormatInt(c.IssuedAtMillis(), 10)
}

// ParseChallenge extracts wallet and timestamp from a challenge message
func ParseChallenge(message string) (Challenge, error) {
	rest, ok := strings.CutPrefix(message, challengePrefix)
	if !ok {
		return Challenge{}, fmt.Errorf("missing challenge prefix: %w", ErrInvalidChallenge)
	}

	idx := strings.LastIndex(rest, challengeStampID)
	if idx <= 0 {
		return Challenge{}, fmt.Errorf("missing timestamp: %w", ErrInvalidChallenge)
	}

	millis, err := strconv.ParseInt(rest[idx+len(challengeStampID):], 10, 64)
	if err != nil {
		return Challenge{}, fmt.Errorf("bad timestamp: %w", ErrInvalidChallenge)
	}

	return Challenge{
		WalletAddress: rest[:idx],
		IssuedAt:      time.UnixMilli(millis),
	}, nil
}
