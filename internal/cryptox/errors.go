package cryptox

import "errors"

// Failure kinds produced by the hasher and the encryptor. None of them is
// recovered inside this package; callers decide how to surface them.
var (
	ErrAlgorithmUnavailable = errors.New("crypto: algorithm unavailable")
	ErrInvalidParameters    = errors.New("crypto: invalid parameters")
	ErrPaddingMismatch      = errors.New("crypto: padding mismatch")
	ErrBlockSizeMismatch    = errors.New("crypto: input is not a multiple of the block size")
	ErrInvalidKey           = errors.New("crypto: invalid key")
)

// IsEncryptionFailure reports whether err belongs to the encryptor failure
// family, including algorithm unavailability.
func IsEncryptionFailure(err error) bool {
	return errors.Is(err, ErrAlgorithmUnavailable) ||
		errors.Is(err, ErrInvalidParameters) ||
		errors.Is(err, ErrPaddingMismatch) ||
		errors.Is(err, ErrBlockSizeMismatch) ||
		errors.Is(err, ErrInvalidKey)
}
