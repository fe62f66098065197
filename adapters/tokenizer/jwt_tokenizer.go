package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cosmifi/gateway/core"
	"github.com/cosmifi/gateway/ports"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// MinSecretLength is the minimum HS512 secret size in bytes
	MinSecretLength = 32

	// DefaultTokenTTL is how long an issued identity token stays valid
	DefaultTokenTTL = 24 * time.Hour

	Issuer = "cosmifi"

	// expiredRevocationTTL keeps revocation records for already-expired tokens
	// long enough to absorb clock skew between instances
	expiredRevocationTTL = time.Hour
)

// ErrSecretTooShort is returned for secrets below MinSecretLength
var ErrSecretTooShort = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)

// JWTTokenizer issues and verifies HS512 identity tokens. It serves as the
// bearer identity provider and consults the store for revoked tokens.
type JWTTokenizer struct {
	secret []byte
	ttl    time.Duration
	store  ports.RevocationStore
	now    func() time.Time
}

// NewJWTTokenizer creates a new JWT tokenizer. ttl <= 0 selects DefaultTokenTTL.
func NewJWTTokenizer(secret []byte, ttl time.Duration, store ports.RevocationStore) (*JWTTokenizer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTTokenizer{
		secret: secret,
		ttl:    ttl,
		store:  store,
		now:    time.Now,
	}, nil
}

var (
	_ ports.IdentityProvider = (*JWTTokenizer)(nil)
	_ ports.TokenIssuer      = (*JWTTokenizer)(nil)
	_ ports.TokenRevoker     = (*JWTTokenizer)(nil)
)

// IssueToken signs a token for address
func (j *JWTTokenizer) IssueToken(address string) (string, string, time.Time, error) {
	now := j.now()
	expiresAt := now.Add(j.ttl)
	jti := uuid.New().String()

	claims := WalletClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   address,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		WalletAddress: address,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	signedToken, err := token.SignedString(j.secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, jti, expiresAt, nil
}

// GetUserForToken verifies tokenStr and resolves it to the wallet it was issued for
func (j *JWTTokenizer) GetUserForToken(ctx context.Context, tokenStr string) (*core.User, error) {
	claims, err := j.parse(tokenStr)
	if err != nil {
		return nil, err
	}

	if j.store != nil {
		revoked, err := j.store.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("checking revocation: %w: %v", core.ErrProviderUnavailable, err)
		}
		if revoked {
			return nil, core.ErrTokenRevoked
		}
	}

	return &core.User{
		ID:            claims.Subject,
		WalletAddress: claims.WalletAddress,
	}, nil
}

// RevokeToken records the token id as invalid until the token would have expired.
// Expired tokens are accepted so a client can always log out.
func (j *JWTTokenizer) RevokeToken(ctx context.Context, tokenStr string) (string, string, error) {
	if j.store == nil {
		return "", "", errors.New("token revocation requires a store")
	}

	claims := &WalletClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, j.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return "", "", fmt.Errorf("%w: missing jti", core.ErrInvalidToken)
	}

	remaining := expiredRevocationTTL
	if claims.ExpiresAt != nil {
		if ttl := claims.ExpiresAt.Sub(j.now()); ttl > 0 {
			remaining = ttl
		}
	}

	if err := j.store.Revoke(ctx, claims.ID, remaining); err != nil {
		return "", "", fmt.Errorf("failed to revoke token: %w", err)
	}

	return claims.WalletAddress, claims.ID, nil
}

func (j *JWTTokenizer) parse(tokenStr string) (*WalletClaims, error) {
	claims := &WalletClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, j.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	if claims.WalletAddress == "" {
		return nil, fmt.Errorf("%w: missing wallet_address", core.ErrInvalidToken)
	}

	return claims, nil
}

func (j *JWTTokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return j.secret, nil
}
