package core

// Reason explains why a request was denied. Reasons are for logs and metrics;
// the wire carries only Message().
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMissingCredentials
	ReasonInvalidSignature
	ReasonInvalidToken
	ReasonSignatureVerificationFailed
)

func (r Reason) String() string {
	switch r {
	case ReasonMissingCredentials:
		return "missing_credentials"
	case ReasonInvalidSignature:
		return "invalid_signature"
	case ReasonInvalidToken:
		return "invalid_token"
	case ReasonSignatureVerificationFailed:
		return "signature_verification_failed"
	default:
		return "none"
	}
}

// Message is the error text returned to the caller
func (r Reason) Message() string {
	switch r {
	case ReasonMissingCredentials:
		return "Missing or invalid token"
	case ReasonInvalidSignature:
		return "Invalid wallet signature"
	case ReasonInvalidToken:
		return "Invalid token"
	default:
		return "Signature verification failed"
	}
}

// Outcome is the gate decision: either Allowed with a principal or Denied with a reason
type Outcome struct {
	principal *Principal
	reason    Reason
	cause     error
}

// Allow builds an allowed outcome
func Allow(p *Principal) Outcome {
	return Outcome{principal: p}
}

// Deny builds a denied outcome. cause may be nil.
func Deny(reason Reason, cause error) Outcome {
	return Outcome{reason: reason, cause: cause}
}

func (o Outcome) Allowed() bool {
	return o.principal != nil
}

// Principal is nil for denied outcomes
func (o Outcome) Principal() *Principal {
	return o.principal
}

func (o Outcome) Reason() Reason {
	return o.reason
}

// Cause is the internal error behind a denial, never sent to the caller
func (o Outcome) Cause() error {
	return o.cause
}
