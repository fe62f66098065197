package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cosmifi/gateway/adapters/identity"
	"github.com/cosmifi/gateway/adapters/verifier"
	"github.com/cosmifi/gateway/adapters/wallet"
	"github.com/cosmifi/gateway/core"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const scenarioAddress = "0xABC0000000000000000000000000000000000123"

type fakeVerifier struct {
	valid bool
	err   error
	calls int
	panic bool
}

func (f *fakeVerifier) Verify(address, message, signature string) (bool, error) {
	f.calls++
	if f.panic {
		panic("verifier blew up")
	}
	return f.valid, f.err
}

type fakeIdentity struct {
	users map[string]*core.User
	err   error
	calls int
}

func (f *fakeIdentity) GetUserForToken(ctx context.Context, token string) (*core.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.users[token], nil
}

func scenarioMessage() string {
	return core.NewChallenge(scenarioAddress, time.UnixMilli(1700000000000)).Message()
}

func walletHeaders() core.Headers {
	return core.Headers{
		Authorization: "Bearer static-anon-key",
		WalletAddress: scenarioAddress,
		Message:       scenarioMessage(),
		Signature:     "0xdef0",
	}
}

func TestGate_ValidSignatureAllowed(t *testing.T) {
	v := &fakeVerifier{valid: true}
	id := &fakeIdentity{}
	gate := NewGate(v, id, DefaultGatePolicy(), nil)

	out := gate.Evaluate(context.Background(), walletHeaders())

	require.True(t, out.Allowed())
	assert.Equal(t, scenarioAddress, out.Principal().WalletAddress)
	assert.Equal(t, core.SourceWalletSignature, out.Principal().Source)
	assert.Equal(t, 1, v.calls)
	assert.Zero(t, id.calls, "wallet mode must not consult the identity provider")
}

func TestGate_InvalidSignatureDenied(t *testing.T) {
	gate := NewGate(&fakeVerifier{valid: false}, &fakeIdentity{}, DefaultGatePolicy(), nil)

	out := gate.Evaluate(context.Background(), walletHeaders())

	require.False(t, out.Allowed())
	assert.Nil(t, out.Principal())
	assert.Equal(t, core.ReasonInvalidSignature, out.Reason())
	assert.Equal(t, "Invalid wallet signature", out.Reason().Message())
}

func TestGate_VerifierErrorDenied(t *testing.T) {
	v := &fakeVerifier{err: core.ErrInvalidSignature}
	gate := NewGate(v, &fakeIdentity{}, DefaultGatePolicy(), nil)

	out := gate.Evaluate(context.Background(), walletHeaders())

	require.False(t, out.Allowed())
	assert.Equal(t, core.ReasonSignatureVerificationFailed, out.Reason())
	assert.ErrorIs(t, out.Cause(), core.ErrInvalidSignature)
}

func TestGate_MissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		headers core.Headers
	}{
		{name: "no headers"},
		{name: "api key only", headers: core.Headers{APIKey: "anon"}},
		{name: "malformed bearer", headers: core.Headers{Authorization: "Token abc"}},
		{name: "wallet without message", headers: core.Headers{WalletAddress: scenarioAddress}},
		{name: "message without wallet", headers: core.Headers{Message: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVerifier{valid: true}
			id := &fakeIdentity{}
			gate := NewGate(v, id, DefaultGatePolicy(), nil)

			out := gate.Evaluate(context.Background(), tt.headers)

			require.False(t, out.Allowed())
			assert.Equal(t, core.ReasonMissingCredentials, out.Reason())
			assert.Equal(t, "Missing or invalid token", out.Reason().Message())
			assert.Zero(t, v.calls)
			assert.Zero(t, id.calls)
		})
	}
}

func TestGate_BearerOnly(t *testing.T) {
	id := &fakeIdentity{users: map[string]*core.User{
		"good-token": {ID: "user-1", WalletAddress: "0xfeed000000000000000000000000000000000001"},
	}}
	v := &fakeVerifier{}
	gate := NewGate(v, id, DefaultGatePolicy(), nil)

	out := gate.Evaluate(context.Background(), core.Headers{Authorization: "Bearer good-token"})

	require.True(t, out.Allowed())
	assert.Equal(t, "0xfeed000000000000000000000000000000000001", out.Principal().WalletAddress)
	assert.Equal(t, core.SourceBearerIdentity, out.Principal().Source)
	assert.Zero(t, v.calls)
}

func TestGate_BearerDenied(t *testing.T) {
	tests := []struct {
		name     string
		identity *fakeIdentity
	}{
		{name: "unknown token", identity: &fakeIdentity{users: map[string]*core.User{}}},
		{name: "expired token", identity: &fakeIdentity{err: core.ErrTokenExpired}},
		{name: "provider down", identity: &fakeIdentity{err: core.ErrProviderUnavailable}},
		{name: "user without wallet", identity: &fakeIdentity{users: map[string]*core.User{"stale": {ID: "user-1"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(&fakeVerifier{}, tt.identity, DefaultGatePolicy(), nil)

			out := gate.Evaluate(context.Background(), core.Headers{Authorization: "Bearer stale"})

			require.False(t, out.Allowed())
			assert.Equal(t, core.ReasonInvalidToken, out.Reason())
			assert.Equal(t, "Invalid token", out.Reason().Message())
			assert.Equal(t, 1, tt.identity.calls)
			assert.Nil(t, out.Principal())
		})
	}
}

func TestGate_WalletTakesPriorityOverBearer(t *testing.T) {
	id := &fakeIdentity{users: map[string]*core.User{
		"static-anon-key": {ID: "anon", WalletAddress: "0xother"},
	}}
	gate := NewGate(&fakeVerifier{valid: true}, id, DefaultGatePolicy(), nil)

	out := gate.Evaluate(context.Background(), walletHeaders())

	require.True(t, out.Allowed())
	assert.Equal(t, scenarioAddress, out.Principal().WalletAddress)
	assert.Zero(t, id.calls)
}

func TestGate_StrictPolicy(t *testing.T) {
	tests := []struct {
		name    string
		headers core.Headers
		reason  core.Reason
	}{
		{
			name: "wallet mode without signature",
			headers: core.Headers{
				Authorization: "Bearer anon",
				WalletAddress: scenarioAddress,
				Message:       scenarioMessage(),
			},
			reason: core.ReasonMissingCredentials,
		},
		{
			name: "headers only without signature",
			headers: core.Headers{
				WalletAddress: scenarioAddress,
				Message:       scenarioMessage(),
			},
			reason: core.ReasonMissingCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVerifier{valid: true}
			gate := NewGate(v, &fakeIdentity{}, DefaultGatePolicy(), nil)

			out := gate.Evaluate(context.Background(), tt.headers)

			require.False(t, out.Allowed())
			assert.Equal(t, tt.reason, out.Reason())
			assert.Zero(t, v.calls)
		})
	}

	t.Run("headers only with signature is verified", func(t *testing.T) {
		v := &fakeVerifier{valid: false}
		gate := NewGate(v, &fakeIdentity{}, DefaultGatePolicy(), nil)

		h := walletHeaders()
		h.Authorization = ""
		out := gate.Evaluate(context.Background(), h)

		require.False(t, out.Allowed())
		assert.Equal(t, core.ReasonInvalidSignature, out.Reason())
		assert.Equal(t, 1, v.calls)
	})
}

func TestGate_LenientPolicy(t *testing.T) {
	obsCore, logs := observer.New(zapcore.WarnLevel)
	v := &fakeVerifier{valid: false}
	gate := NewGate(v, &fakeIdentity{}, GatePolicy{RequireSignature: false}, zap.New(obsCore))

	t.Run("unsigned wallet mode allowed", func(t *testing.T) {
		h := walletHeaders()
		h.Signature = ""

		out := gate.Evaluate(context.Background(), h)

		require.True(t, out.Allowed())
		assert.Equal(t, scenarioAddress, out.Principal().WalletAddress)
	})

	t.Run("headers only allowed without checks", func(t *testing.T) {
		h := walletHeaders()
		h.Authorization = ""

		out := gate.Evaluate(context.Background(), h)

		require.True(t, out.Allowed())
	})

	t.Run("signed wallet mode still verified", func(t *testing.T) {
		out := gate.Evaluate(context.Background(), walletHeaders())

		require.False(t, out.Allowed())
		assert.Equal(t, core.ReasonInvalidSignature, out.Reason())
	})

	assert.Equal(t, 1, v.calls)
	assert.Equal(t, 2, logs.FilterMessage("wallet request allowed without signature check").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("accepts unsigned wallet headers").Len())
}

func TestGate_MaxMessageAge(t *testing.T) {
	issued := time.UnixMilli(1700000000000)
	policy := GatePolicy{RequireSignature: true, MaxMessageAge: 5 * time.Minute}

	tests := []struct {
		name    string
		now     time.Time
		message string
		allowed bool
		cause   error
	}{
		{name: "fresh", now: issued.Add(time.Minute), message: scenarioMessage(), allowed: true},
		{name: "small future skew", now: issued.Add(-30 * time.Second), message: scenarioMessage(), allowed: true},
		{name: "stale", now: issued.Add(6 * time.Minute), message: scenarioMessage(), cause: core.ErrStaleChallenge},
		{name: "far future", now: issued.Add(-2 * time.Minute), message: scenarioMessage(), cause: core.ErrStaleChallenge},
		{name: "foreign template", now: issued, message: "hello", cause: core.ErrInvalidChallenge},
		{
			name:    "lowercased wallet in message",
			now:     issued,
			message: core.NewChallenge(strings.ToLower(scenarioAddress), issued).Message(),
			allowed: true,
		},
		{
			name:    "other wallet in message",
			now:     issued,
			message: core.NewChallenge("0x1111111111111111111111111111111111111111", issued).Message(),
			cause:   core.ErrInvalidChallenge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVerifier{valid: true}
			gate := NewGate(v, &fakeIdentity{}, policy, nil)
			gate.now = func() time.Time { return tt.now }

			h := walletHeaders()
			h.Message = tt.message
			out := gate.Evaluate(context.Background(), h)

			assert.Equal(t, tt.allowed, out.Allowed())
			if !tt.allowed {
				assert.Equal(t, core.ReasonInvalidSignature, out.Reason())
				assert.ErrorIs(t, out.Cause(), tt.cause)
				assert.Zero(t, v.calls)
			}
		})
	}
}

func TestGate_RecoversFromPanic(t *testing.T) {
	gate := NewGate(&fakeVerifier{panic: true}, &fakeIdentity{}, DefaultGatePolicy(), nil)

	var out core.Outcome
	require.NotPanics(t, func() {
		out = gate.Evaluate(context.Background(), walletHeaders())
	})

	require.False(t, out.Allowed())
	assert.Equal(t, core.ReasonSignatureVerificationFailed, out.Reason())
	assert.Error(t, out.Cause())
}

func TestGate_LogsDenialCause(t *testing.T) {
	obsCore, logs := observer.New(zapcore.InfoLevel)
	cause := errors.New("rpc timeout")
	gate := NewGate(&fakeVerifier{err: cause}, &fakeIdentity{}, DefaultGatePolicy(), zap.New(obsCore))

	gate.Evaluate(context.Background(), walletHeaders())

	entries := logs.FilterMessage("request denied").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "signature_verification_failed", fields["reason"])
	assert.Equal(t, "rpc timeout", fields["error"])
	assert.Equal(t, "wallet", fields["mode"])
}

func TestGate_RealSignatureRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := wallet.NewKeySigner(key)

	challenge := core.NewChallenge(signer.Address(), time.Now())
	sig, err := signer.SignMessage(context.Background(), signer.Address(), challenge.Message())
	require.NoError(t, err)

	policy := GatePolicy{RequireSignature: true, MaxMessageAge: time.Minute}
	gate := NewGate(verifier.NewEthVerifier(), &fakeIdentity{}, policy, nil)

	h := core.Headers{
		Authorization: "Bearer anon",
		WalletAddress: signer.Address(),
		Message:       challenge.Message(),
		Signature:     sig,
	}
	out := gate.Evaluate(context.Background(), h)
	require.True(t, out.Allowed())
	assert.Equal(t, signer.Address(), out.Principal().WalletAddress)

	// A signature over a different message must not authenticate
	h.Message = core.NewChallenge(signer.Address(), challenge.IssuedAt.Add(time.Second)).Message()
	out = gate.Evaluate(context.Background(), h)
	require.False(t, out.Allowed())
	assert.Equal(t, core.ReasonInvalidSignature, out.Reason())
}

func TestGate_SupabaseUserWithoutWalletDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-1","user_metadata":{}}`))
	}))
	t.Cleanup(srv.Close)

	gate := NewGate(&fakeVerifier{}, identity.NewSupabaseProvider(srv.URL, "anon", srv.Client()), DefaultGatePolicy(), nil)

	out := gate.Evaluate(context.Background(), core.Headers{Authorization: "Bearer tok"})

	require.False(t, out.Allowed())
	assert.Nil(t, out.Principal())
	assert.Equal(t, core.ReasonInvalidToken, out.Reason())
	assert.ErrorIs(t, out.Cause(), core.ErrInvalidToken)
}

func TestGate_BearerUserWithoutWalletCause(t *testing.T) {
	id := &fakeIdentity{users: map[string]*core.User{"tok": {ID: "user-1"}}}
	gate := NewGate(&fakeVerifier{}, id, DefaultGatePolicy(), nil)

	out := gate.Evaluate(context.Background(), core.Headers{Authorization: "Bearer tok"})

	require.False(t, out.Allowed())
	assert.ErrorIs(t, out.Cause(), core.ErrInvalidToken)
}
