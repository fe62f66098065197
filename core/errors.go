package core

import "errors"

var (
	ErrTokenExpired        = errors.New("token has expired")
	ErrTokenRevoked        = errors.New("token has been revoked")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidAddress      = errors.New("invalid ethereum address")
	ErrInvalidChallenge    = errors.New("invalid challenge")
	ErrStaleChallenge      = errors.New("challenge timestamp outside allowed window")
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// ErrUserRejected is returned by wallets when the holder declines to sign
	ErrUserRejected = errors.New("User rejected the request")
)
