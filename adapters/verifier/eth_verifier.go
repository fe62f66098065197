package verifier

import (
	"fmt"

	"github.com/cosmifi/gateway/core"
	"github.com/cosmifi/gateway/ports"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// EthVerifier verifies EIP-191 personal_sign signatures, the format wallets
// produce for signMessage
type EthVerifier struct{}

// NewEthVerifier creates a new signature verifier
func NewEthVerifier() ports.SignatureVerifier {
	return &EthVerifier{}
}

// Verify recovers the signer of message and compares it to address
func (v *EthVerifier) Verify(address, message, signature string) (bool, error) {
	if !common.IsHexAddress(address) {
		return false, fmt.Errorf("%q: %w", address, core.ErrInvalidAddress)
	}

	decodedSig, err := hexutil.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}
	if len(decodedSig) != crypto.SignatureLength {
		return false, fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, core.ErrInvalidSignature)
	}

	// Wallets emit V as 27/28, go-ethereum recovers with 0/1
	if decodedSig[crypto.RecoveryIDOffset] >= 27 {
		decodedSig[crypto.RecoveryIDOffset] -= 27
	}
	if decodedSig[crypto.RecoveryIDOffset] > 1 {
		return false, fmt.Errorf("invalid recovery id: %w", core.ErrInvalidSignature)
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), decodedSig)
	if err != nil {
		return false, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub) == common.HexToAddress(address), nil
}
