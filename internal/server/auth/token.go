// Package auth issues and validates the access and refresh tokens of the
// account service.
//
// Tokens are HS256 JWTs. The subject email is never stored in clear: it is
// encrypted with the process-wide Encryptor and carried as base64 next to
// its IV.
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/standard/dreamcalendar/internal/cryptox"
)

// TokenClass tells access tokens from refresh tokens.
type TokenClass int

const (
	AccessToken TokenClass = iota + 1
	RefreshToken
)

func (c TokenClass) String() string {
	switch c {
	case AccessToken:
		return "access"
	case RefreshToken:
		return "refresh"
	default:
		return "unknown"
	}
}

// ValidationType is the verdict of ValidateToken.
type ValidationType int

const (
	// Valid: signature ok, not expired, no action needed.
	Valid ValidationType = iota + 1
	// Expired: past the embedded expiry.
	Expired
	// Invalid: malformed, wrong signature, wrong class.
	Invalid
	// Update: valid refresh token inside the renewal window; reissue it.
	Update
)

func (v ValidationType) String() string {
	switch v {
	case Valid:
		return "VALID"
	case Expired:
		return "EXPIRED"
	case Invalid:
		return "INVALID"
	case Update:
		return "UPDATE"
	default:
		return "UNKNOWN"
	}
}

// ValidationResult carries the verdict and, when the token parsed, what it
// says about itself.
type ValidationResult struct {
	Type      ValidationType
	Subject   string
	ExpiresAt time.Time
}

// Claims is the JWT payload.
type Claims struct {
	jwt.RegisteredClaims
	Class            string `json:"cls"`
	EncryptedSubject string `json:"sub_enc"`
	IV               string `json:"iv"`
}

// Lifetimes configures token expiry. The exp claim has whole-second
// precision, so a token may expire up to one second before now+lifetime.
type Lifetimes struct {
	Access  time.Duration
	Refresh time.Duration
	// RenewalWindow is the trailing part of a refresh token's life during
	// which validation answers Update.
	RenewalWindow time.Duration
}

// Validate checks that every lifetime is positive and that the renewal
// window is shorter than the refresh lifetime.
func (l Lifetimes) Validate() error {
	if l.Access <= 0 || l.Refresh <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if l.RenewalWindow < 0 || l.RenewalWindow >= l.Refresh {
		return fmt.Errorf("renewal window %s must be within refresh lifetime %s", l.RenewalWindow, l.Refresh)
	}
	return nil
}

// Option tweaks a TokenProvider.
type Option func(*TokenProvider)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *TokenProvider) {
		p.now = now
	}
}

// TokenProvider signs and validates tokens. It holds no mutable state and is
// safe for concurrent use.
type TokenProvider struct {
	secret    []byte
	encryptor *cryptox.Encryptor
	lifetimes Lifetimes
	now       func() time.Time
}

// NewTokenProvider returns a provider signing with secret.
func NewTokenProvider(secret []byte, enc *cryptox.Encryptor, lt Lifetimes, opts ...Option) (*TokenProvider, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if enc == nil {
		return nil, errors.New("token encryptor must not be nil")
	}
	if err := lt.Validate(); err != nil {
		return nil, err
	}

	p := &TokenProvider{
		secret:    secret,
		encryptor: enc,
		lifetimes: lt,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Generate builds a signed token for subject. Encryption failures are
// returned as is.
func (p *TokenProvider) Generate(subject string, class TokenClass) (string, error) {
	ttl, err := p.lifetime(class)
	if err != nil {
		return "", err
	}

	ciphertext, iv, err := p.encryptor.Encrypt([]byte(subject))
	if err != nil {
		return "", err
	}

	now := p.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Class:            class.String(),
		EncryptedSubject: base64.RawURLEncoding.EncodeToString(ciphertext),
		IV:               base64.RawURLEncoding.EncodeToString(iv),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", class, err)
	}

	return token, nil
}

// ValidateToken classifies token for the given class.
//
// Parse failures, bad signatures and class mismatches are Invalid. A token
// past its expiry is Expired. A refresh token whose remaining life is within
// the renewal window is Update; anything else is Valid. The error return is
// reserved for decryption failures of a correctly signed token.
func (p *TokenProvider) ValidateToken(token string, class TokenClass) (ValidationResult, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(token, claims, p.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		if claims.Class != class.String() {
			return ValidationResult{Type: Invalid}, nil
		}
		return ValidationResult{Type: Expired, ExpiresAt: claims.ExpiresAt.Time}, nil
	default:
		return ValidationResult{Type: Invalid}, nil
	}

	if claims.Class != class.String() || claims.EncryptedSubject == "" || claims.IV == "" {
		return ValidationResult{Type: Invalid}, nil
	}

	ciphertext, err := base64.RawURLEncoding.DecodeString(claims.EncryptedSubject)
	if err != nil {
		return ValidationResult{Type: Invalid}, nil
	}
	iv, err := base64.RawURLEncoding.DecodeString(claims.IV)
	if err != nil {
		return ValidationResult{Type: Invalid}, nil
	}

	subject, err := p.encryptor.Decrypt(ciphertext, iv)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("decrypt token subject: %w", err)
	}

	res := ValidationResult{
		Type:      Valid,
		Subject:   string(subject),
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if class == RefreshToken && res.ExpiresAt.Sub(p.now()) <= p.lifetimes.RenewalWindow {
		res.Type = Update
	}

	return res, nil
}

func (p *TokenProvider) keyFunc(*jwt.Token) (any, error) {
	return p.secret, nil
}

func (p *TokenProvider) lifetime(class TokenClass) (time.Duration, error) {
	switch class {
	case AccessToken:
		return p.lifetimes.Access, nil
	case RefreshToken:
		return p.lifetimes.Refresh, nil
	default:
		return 0, fmt.Errorf("unknown token class %d", class)
	}
}
