package core

import (
	"net/http"
	"strings"
)

// Header names exchanged between the credential builder and the gate
const (
	HeaderAuthorization = "Authorization"
	HeaderWalletAddress = "X-Wallet-Address"
	HeaderMessage       = "X-Message"
	HeaderSignature     = "X-Actual-Signature"
	HeaderAPIKey        = "apikey"
	HeaderClientInfo    = "x-client-info"

	// BearerPrefix is the expected scheme prefix of the Authorization header
	BearerPrefix = "Bearer "
)

// Headers carries the credential headers of a single request
type Headers struct {
	Authorization string
	WalletAddress string
	Message       string
	Signature     string
	APIKey        string
}

// HeadersFromHTTP extracts credential headers. Lookup is case-insensitive.
func HeadersFromHTTP(h http.Header) Headers {
	return Headers{
		Authorization: h.Get(HeaderAuthorization),
		WalletAddress: h.Get(HeaderWalletAddress),
		Message:       h.Get(HeaderMessage),
		Signature:     h.Get(HeaderSignature),
		APIKey:        h.Get(HeaderAPIKey),
	}
}

// Apply writes the non-empty credential headers onto h
func (c Headers) Apply(h http.Header) {
	set := func(k, v string) {
		if v != "" {
			h.Set(k, v)
		}
	}
	set(HeaderAuthorization, c.Authorization)
	set(HeaderWalletAddress, c.WalletAddress)
	set(HeaderMessage, c.Message)
	set(HeaderSignature, c.Signature)
	set(HeaderAPIKey, c.APIKey)
}

// HasBearer reports whether Authorization carries the bearer scheme
func (c Headers) HasBearer() bool {
	return strings.HasPrefix(c.Authorization, BearerPrefix)
}

// BearerToken returns the Authorization value with the scheme stripped
func (c Headers) BearerToken() (string, bool) {
	return strings.CutPrefix(c.Authorization, BearerPrefix)
}

func (c Headers) hasWalletPair() bool {
	return c.WalletAddress != "" && c.Message != ""
}

// Mode is the authentication path selected for a request
type Mode int

const (
	ModeNone Mode = iota
	// ModeWallet: well-formed bearer plus wallet address and message
	ModeWallet
	// ModeWalletHeadersOnly: wallet address and message without a well-formed bearer
	ModeWalletHeadersOnly
	// ModeBearer: bearer header only, resolved by the identity provider
	ModeBearer
)

func (m Mode) String() string {
	switch m {
	case ModeWallet:
		return "wallet"
	case ModeWalletHeadersOnly:
		return "wallet_headers_only"
	case ModeBearer:
		return "bearer"
	default:
		return "none"
	}
}

// IsWallet reports whether m authenticates through a wallet signature
func (m Mode) IsWallet() bool {
	return m == ModeWallet || m == ModeWalletHeadersOnly
}

// SelectMode picks exactly one authentication mode, in priority order:
// wallet, wallet headers only, bearer, none.
func SelectMode(h Headers) Mode {
	switch {
	case h.HasBearer() && h.hasWalletPair():
		return ModeWallet
	case h.hasWalletPair():
		return ModeWalletHeadersOnly
	case h.HasBearer():
		return ModeBearer
	default:
		return ModeNone
	}
}
