package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtClaims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// JWTSigner signs HS256 JSON Web Tokens.
type JWTSigner struct {
	secret []byte
	now    func() time.Time
}

func NewJWTSigner(secret []byte) (*JWTSigner, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes, got %d", len(secret))
	}
	return &JWTSigner{secret: secret, now: time.Now}, nil
}

func (s *JWTSigner) Sign(claims Claims, ttl time.Duration) (string, error) {
	// NumericDate has second precision
	now := s.now().Truncate(time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		UserID:  claims.UserID,
		Email:   claims.Email,
		Purpose: claims.Purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenSigning, err)
	}
	return signed, nil
}

func (s *JWTSigner) Verify(tokenStr string) (*Claims, error) {
	return s.parse(tokenStr, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
}

func (s *JWTSigner) VerifySignature(tokenStr string) (*Claims, error) {
	return s.parse(tokenStr, jwt.WithoutClaimsValidation())
}

func (s *JWTSigner) Decode(tokenStr string) (*Claims, error) {
	claims := &jwtClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims.toClaims(), nil
}

func (s *JWTSigner) parse(tokenStr string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims.toClaims(), nil
}

func (c *jwtClaims) toClaims() *Claims {
	out := &Claims{
		ID:      c.RegisteredClaims.ID,
		UserID:  c.UserID,
		Email:   c.Email,
		Purpose: c.Purpose,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}
