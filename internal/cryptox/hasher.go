// Package cryptox holds the credential hasher and the symmetric encryptor
// used by token issuance.
package cryptox

import (
	"crypto"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	// register the digests selectable by name
	_ "crypto/sha256"
	_ "crypto/sha512"

	_ "golang.org/x/crypto/blake2b"
)

// DefaultHashAlgorithm is used when no algorithm is configured.
const DefaultHashAlgorithm = "sha256"

var hashAlgorithms = map[string]crypto.Hash{
	"sha256":      crypto.SHA256,
	"sha384":      crypto.SHA384,
	"sha512":      crypto.SHA512,
	"blake2b-256": crypto.BLAKE2b_256,
	"blake2b-512": crypto.BLAKE2b_512,
}

// Hasher produces deterministic, unsalted hex digests of passwords.
//
// The algorithm is looked up on every call so that a misconfigured name
// surfaces as ErrAlgorithmUnavailable from Hash rather than at startup.
type Hasher struct {
	algorithm string
}

// NewHasher returns a Hasher for the named algorithm. An empty name selects
// DefaultHashAlgorithm.
func NewHasher(algorithm string) *Hasher {
	if algorithm == "" {
		algorithm = DefaultHashAlgorithm
	}
	return &Hasher{algorithm: strings.ToLower(algorithm)}
}

// Algorithm returns the configured algorithm name.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Check reports whether the configured algorithm can be resolved.
func (h *Hasher) Check() error {
	_, err := h.resolve()
	return err
}

// Hash returns the lowercase hex digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	ch, err := h.resolve()
	if err != nil {
		return "", err
	}

	d := ch.New()
	d.Write([]byte(plaintext))

	return hex.EncodeToString(d.Sum(nil)), nil
}

// Verify hashes plaintext and compares it with digest in constant time.
func (h *Hasher) Verify(plaintext, digest string) (bool, error) {
	candidate, err := h.Hash(plaintext)
	if err != nil {
		return false, err
	}
	return Equal(candidate, digest), nil
}

// Equal compares two digests in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (h *Hasher) resolve() (crypto.Hash, error) {
	ch, ok := hashAlgorithms[h.algorithm]
	if !ok || !ch.Available() {
		return 0, fmt.Errorf("%w: %q", ErrAlgorithmUnavailable, h.algorithm)
	}
	return ch, nil
}
