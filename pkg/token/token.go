package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates bearer tokens for the realtime gateway. It
// implements fanout.TokenVerifier.
type Verifier struct {
	secret []byte
	issuer string
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithIssuer pins the expected iss claim. Tokens from other issuers are
// rejected. Empty means any issuer is accepted.
func WithIssuer(issuer string) VerifierOption {
	return func(v *Verifier) {
		v.issuer = issuer
	}
}

// NewVerifier creates a verifier over a shared HS256 secret.
func NewVerifier(secret string, opts ...VerifierOption) (*Verifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	v := &Verifier{secret: []byte(secret)}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// RecipientID parses and validates a token, returning the recipient id
// from its subject claim.
func (v *Verifier) RecipientID(tokenString string) (int64, error) {
	parseOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(v.issuer))
	}

	tok, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return v.secret, nil },
		parseOpts...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, ErrInvalidSubject
	}

	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSubject, sub)
	}
	return id, nil
}

// Issue signs a token for a recipient, valid for ttl. Primarily for
// development tooling and tests; production deployments usually mint
// tokens in the application that owns user sessions.
func (v *Verifier) Issue(recipientID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(recipientID, 10),
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
