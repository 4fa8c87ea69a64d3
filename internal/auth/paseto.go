package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// PasetoSigner handles PASETO token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoSigner struct {
	symmetricKey paseto.V4SymmetricKey
	now          func() time.Time
}

func NewPasetoSigner(symmetricKey []byte) (*PasetoSigner, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoSigner{
		symmetricKey: key,
		now:          time.Now,
	}, nil
}

func (s *PasetoSigner) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := s.now().Truncate(time.Second)

	token := paseto.NewToken()
	token.SetJti(uuid.NewString())
	token.SetSubject(claims.UserID)
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(ttl))
	token.SetString("user_id", claims.UserID)
	token.SetString("email", claims.Email)
	if claims.Purpose != "" {
		token.SetString("purpose", claims.Purpose)
	}

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

func (s *PasetoSigner) Verify(tokenStr string) (*Claims, error) {
	claims, err := s.VerifySignature(tokenStr)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(claims.ExpiresAt) {
		return nil, ErrExpiredToken
	}
	return claims, nil
}

// VerifySignature decrypts and authenticates the token. Expiry is left to
// Verify so the clock stays injectable.
func (s *PasetoSigner) VerifySignature(tokenStr string) (*Claims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	userID, err := token.GetString("user_id")
	if err != nil || userID == "" {
		return nil, ErrInvalidToken
	}

	email, err := token.GetString("email")
	if err != nil {
		return nil, ErrInvalidToken
	}

	// absent on bearer tokens
	purpose, _ := token.GetString("purpose")

	jti, err := token.GetJti()
	if err != nil {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Claims{
		ID:        jti,
		UserID:    userID,
		Email:     email,
		Purpose:   purpose,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Decode for v4.local still needs the key: the payload is encrypted.
func (s *PasetoSigner) Decode(tokenStr string) (*Claims, error) {
	return s.VerifySignature(tokenStr)
}
