package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/standard/dreamcalendar/internal/common"
	"golang.org/x/crypto/argon2"
)

// keySalt is fixed: the same secret must always yield the same key so that
// tokens survive restarts.
var keySalt = []byte("dreamcalendar/token-subject/v1")

// DeriveKey stretches an arbitrary secret into a 32-byte AES-256 key with
// Argon2id.
func DeriveKey(secret []byte) []byte {
	return argon2.IDKey(secret, keySalt, 1, 19*1024, 2, 32)
}

// Encryptor performs AES-CBC encryption with PKCS#7 padding. The IV is
// generated per message and returned next to the ciphertext.
type Encryptor struct {
	block cipher.Block
}

// NewEncryptor builds an Encryptor from a raw AES key of 16, 24 or 32 bytes.
func NewEncryptor(key []byte) (*Encryptor, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Encryptor{block: block}, nil
}

// NewEncryptorFromSecret derives the key from secret with DeriveKey.
func NewEncryptorFromSecret(secret string) (*Encryptor, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrInvalidKey)
	}
	return NewEncryptor(DeriveKey([]byte(secret)))
}

// Encrypt pads and encrypts plaintext under a fresh random IV.
func (e *Encryptor) Encrypt(plaintext []byte) (ciphertext, iv []byte, err error) {
	iv, err = common.GenerateRandBytes(e.block.BlockSize())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAlgorithmUnavailable, err)
	}

	ciphertext, err = e.EncryptWithIV(plaintext, iv)
	if err != nil {
		return nil, nil, err
	}

	return ciphertext, iv, nil
}

// EncryptWithIV pads and encrypts plaintext under the given IV.
func (e *Encryptor) EncryptWithIV(plaintext, iv []byte) ([]byte, error) {
	if len(iv) != e.block.BlockSize() {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrInvalidParameters, e.block.BlockSize(), len(iv))
	}

	padded := pkcs7Pad(plaintext, e.block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(e.block, iv).CryptBlocks(out, padded)

	return out, nil
}

// Decrypt reverses Encrypt. A wrong key or corrupted ciphertext almost
// always shows up as ErrPaddingMismatch.
func (e *Encryptor) Decrypt(ciphertext, iv []byte) ([]byte, error) {
	bs := e.block.BlockSize()

	if len(iv) != bs {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrInvalidParameters, bs, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlockSizeMismatch, len(ciphertext))
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(e.block, iv).CryptBlocks(out, ciphertext)

	return pkcs7Unpad(out, bs)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, ErrPaddingMismatch
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrPaddingMismatch
		}
	}
	return b[:len(b)-n], nil
}
