package tokenizer

import (
	"context"
	"testing"
	"time"

	"github.com/cosmifi/gateway/adapters/store"
	"github.com/cosmifi/gateway/core"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("tokenizer-test-secret-of-32-bytes!")

const testAddress = "0xAbC0000000000000000000000000000000000123"

func newTokenizer(t *testing.T) *JWTTokenizer {
	t.Helper()
	tok, err := NewJWTTokenizer(testSecret, time.Hour, store.NewMemoryStore())
	require.NoError(t, err)
	return tok
}

func TestNewJWTTokenizer_ShortSecret(t *testing.T) {
	_, err := NewJWTTokenizer([]byte("short"), time.Hour, nil)
	assert.ErrorIs(t, err, ErrSecretTooShort)
}

func TestNewJWTTokenizer_DefaultTTL(t *testing.T) {
	tok, err := NewJWTTokenizer(testSecret, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, tok.ttl)
}

func TestIssueAndResolve(t *testing.T) {
	tok := newTokenizer(t)

	token, jti, expiresAt, err := tok.IssueToken(testAddress)
	require.NoError(t, err)
	assert.NotEmpty(t, jti)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	user, err := tok.GetUserForToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, testAddress, user.WalletAddress)
	assert.Equal(t, testAddress, user.ID)
}

func TestGetUserForToken_Invalid(t *testing.T) {
	tok := newTokenizer(t)

	other, err := NewJWTTokenizer([]byte("another-secret-that-is-32-bytes-long"), time.Hour, nil)
	require.NoError(t, err)
	foreign, _, _, err := other.IssueToken(testAddress)
	require.NoError(t, err)

	hs256 := jwt.NewWithClaims(jwt.SigningMethodHS256, WalletClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		WalletAddress:    testAddress,
	})
	wrongAlg, err := hs256.SignedString(testSecret)
	require.NoError(t, err)

	noWallet := jwt.NewWithClaims(jwt.SigningMethodHS512, WalletClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	missingWallet, err := noWallet.SignedString(testSecret)
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS512, WalletClaims{WalletAddress: testAddress})
	missingExp, err := noExp.SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: foreign},
		{name: "wrong algorithm", token: wrongAlg},
		{name: "missing wallet claim", token: missingWallet},
		{name: "missing expiry", token: missingExp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tok.GetUserForToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, core.ErrInvalidToken)
		})
	}
}

func TestGetUserForToken_Expired(t *testing.T) {
	tok := newTokenizer(t)
	tok.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, _, err := tok.IssueToken(testAddress)
	require.NoError(t, err)

	tok.now = time.Now
	_, err = tok.GetUserForToken(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestRevokeToken(t *testing.T) {
	tok := newTokenizer(t)
	ctx := context.Background()

	token, jti, _, err := tok.IssueToken(testAddress)
	require.NoError(t, err)

	address, revokedID, err := tok.RevokeToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, testAddress, address)
	assert.Equal(t, jti, revokedID)

	_, err = tok.GetUserForToken(ctx, token)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRevokeToken_Expired(t *testing.T) {
	tok := newTokenizer(t)
	tok.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, jti, _, err := tok.IssueToken(testAddress)
	require.NoError(t, err)
	tok.now = time.Now

	_, revokedID, err := tok.RevokeToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, jti, revokedID)

	revoked, err := tok.store.IsRevoked(context.Background(), jti)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRevokeToken_Invalid(t *testing.T) {
	tok := newTokenizer(t)
	_, _, err := tok.RevokeToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
