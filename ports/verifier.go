package ports

// SignatureVerifier checks that signature over message was produced by address.
// A false result means the signature is well-formed but belongs to someone else;
// an error means it could not be checked at all.
type SignatureVerifier interface {
	Verify(address, message, signature string) (bool, error)
}
