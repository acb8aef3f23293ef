// Package auth issues and validates the signed bearer tokens that carry a
// user's identity between requests.
//
// Tokens are stateless HS256 JWTs. There is no server-side session store,
// so a token cannot be revoked before it expires, and a valid token does
// not guarantee that the user it names still exists.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/user-service/internal/apperr"
)

// ErrInvalidToken is returned for every validation failure: bad signature,
// malformed input, wrong algorithm or issuer, and expiry all look the same
// to the caller.
var ErrInvalidToken = &apperr.Error{Kind: apperr.KindAuth, Message: "Token is invalid"}

// Claims is the JWT payload. UserName keeps the claim name used by
// existing clients.
type Claims struct {
	UserName string `json:"UserName"`
	jwt.RegisteredClaims
}

// Token is a signed token and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Identity is what a validated token proves about the caller.
type Identity struct {
	UserName  string
	ExpiresAt time.Time
}

// TokenService signs and verifies session tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Option customises a TokenService.
type Option func(*TokenService)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService builds a service signing with secret. Tokens live for ttl.
func NewTokenService(secret, issuer string, ttl time.Duration, opts ...Option) *TokenService {
	s := &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Issue builds and signs a token for userName.
func (s *TokenService) Issue(userName string) (Token, error) {
	if len(s.secret) == 0 {
		return Token{}, apperr.Configuration("token signing secret is not configured")
	}
	// the claim must equal the stored name byte for byte, so it is never trimmed
	if strings.TrimSpace(userName) == "" {
		return Token{}, apperr.Validation("missing required field: UserName")
	}

	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := Claims{
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userName,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// Validate verifies raw and returns the identity it carries.
func (s *TokenService) Validate(raw string) (Identity, error) {
	if len(s.secret) == 0 || raw == "" {
		return Identity{}, ErrInvalidToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, parserOpts...)
	if err != nil || !tok.Valid || claims.UserName == "" {
		return Identity{}, ErrInvalidToken
	}

	id := Identity{UserName: claims.UserName}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
