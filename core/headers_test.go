package core

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectMode(t *testing.T) {
	tests := []struct {
		name    string
		headers Headers
		want    Mode
	}{
		{
			name:    "nothing",
			headers: Headers{},
			want:    ModeNone,
		},
		{
			name:    "wallet with bearer",
			headers: Headers{Authorization: "Bearer key", WalletAddress: "0xabc", Message: "m", Signature: "0x01"},
			want:    ModeWallet,
		},
		{
			name:    "wallet with bearer and no signature",
			headers: Headers{Authorization: "Bearer key", WalletAddress: "0xabc", Message: "m"},
			want:    ModeWallet,
		},
		{
			name:    "wallet without bearer",
			headers: Headers{WalletAddress: "0xabc", Message: "m"},
			want:    ModeWalletHeadersOnly,
		},
		{
			name:    "wallet with malformed bearer",
			headers: Headers{Authorization: "Basic abc", WalletAddress: "0xabc", Message: "m"},
			want:    ModeWalletHeadersOnly,
		},
		{
			name:    "bearer only",
			headers: Headers{Authorization: "Bearer tok"},
			want:    ModeBearer,
		},
		{
			name:    "bearer with address but no message",
			headers: Headers{Authorization: "Bearer tok", WalletAddress: "0xabc"},
			want:    ModeBearer,
		},
		{
			name:    "lowercase scheme is not bearer",
			headers: Headers{Authorization: "bearer tok"},
			want:    ModeNone,
		},
		{
			name:    "message only",
			headers: Headers{Message: "m"},
			want:    ModeNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectMode(tt.headers))
		})
	}
}

func TestHeadersFromHTTPCaseInsensitive(t *testing.T) {
	h := http.Header{}
	h.Set("authorization", "Bearer key")
	h.Set("x-wallet-address", "0xabc")
	h.Set("x-message", "msg")
	h.Set("x-actual-signature", "0xsig")
	h.Set("APIKEY", "anon")

	got := HeadersFromHTTP(h)
	assert.Equal(t, Headers{
		Authorization: "Bearer key",
		WalletAddress: "0xabc",
		Message:       "msg",
		Signature:     "0xsig",
		APIKey:        "anon",
	}, got)
}

func TestHeadersApplyRoundTrip(t *testing.T) {
	in := Headers{Authorization: "Bearer key", WalletAddress: "0xabc", Message: "msg", Signature: "0xsig"}
	h := http.Header{}
	in.Apply(h)

	assert.Equal(t, in, HeadersFromHTTP(h))
	assert.Empty(t, h.Get(HeaderAPIKey))
}

func TestBearerToken(t *testing.T) {
	tok, ok := Headers{Authorization: "Bearer abc.def"}.BearerToken()
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	_, ok = Headers{Authorization: "Token abc"}.BearerToken()
	assert.False(t, ok)
}

func TestOutcome(t *testing.T) {
	p := &Principal{WalletAddress: "0xabc", Source: SourceBearerIdentity}
	allowed := Allow(p)
	assert.True(t, allowed.Allowed())
	assert.Same(t, p, allowed.Principal())
	assert.Equal(t, ReasonNone, allowed.Reason())

	cause := errors.New("boom")
	denied := Deny(ReasonInvalidToken, cause)
	assert.False(t, denied.Allowed())
	assert.Nil(t, denied.Principal())
	assert.Equal(t, "Invalid token", denied.Reason().Message())
	assert.Equal(t, cause, denied.Cause())
}

func TestReasonMessages(t *testing.T) {
	assert.Equal(t, "Missing or invalid token", ReasonMissingCredentials.Message())
	assert.Equal(t, "Invalid wallet signature", ReasonInvalidSignature.Message())
	assert.Equal(t, "Invalid token", ReasonInvalidToken.Message())
	assert.Equal(t, "Signature verification failed", ReasonSignatureVerificationFailed.Message())
}
