package tokenizer

import "github.com/golang-jwt/jwt/v5"

// WalletClaims combines standard claims with the wallet that proved ownership
type WalletClaims struct {
	jwt.RegisteredClaims
	WalletAddress string `json:"wallet_address"`
	Role          string `json:"role,omitempty"`
}
