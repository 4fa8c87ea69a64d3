package auth

import (
	"context"
	"time"

	"github.com/redmonkez12/task-api/internal/logging"
)

// DefaultTokenTTL applies when Generate is called with a non-positive ttl.
const DefaultTokenTTL = 24 * time.Hour

// TokenManager issues, validates and revokes bearer tokens.
type TokenManager struct {
	signer Signer
	store  RevocationStore
	cache  *RevocationCache
	now    func() time.Time
}

// NewTokenManager wires a signer to the revocation denylist. cache may be nil.
func NewTokenManager(signer Signer, store RevocationStore, cache *RevocationCache) *TokenManager {
	return &TokenManager{
		signer: signer,
		store:  store,
		cache:  cache,
		now:    time.Now,
	}
}

// Generate signs claims into a token valid for ttl.
func (m *TokenManager) Generate(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return m.signer.Sign(claims, ttl)
}

// Decode reads claims without verifying the token.
func (m *TokenManager) Decode(token string) (*Claims, error) {
	return m.signer.Decode(token)
}

// Validate returns the claims of a live token. Revocation is checked before
// the signature so a revoked token reports ErrRevokedToken even if expired.
func (m *TokenManager) Validate(ctx context.Context, token string) (*Claims, error) {
	revoked, err := m.isRevoked(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrRevokedToken
	}

	return m.signer.Verify(token)
}

// Revoke adds token to the denylist. Expired but authentic tokens can be
// revoked; forged ones cannot.
func (m *TokenManager) Revoke(ctx context.Context, token string) error {
	claims, err := m.signer.VerifySignature(token)
	if err != nil {
		return err
	}

	if err := m.store.Add(ctx, token, claims.ExpiresAt); err != nil {
		return err
	}

	if m.cache != nil {
		if err := m.cache.Add(ctx, token, claims.ExpiresAt.Sub(m.now())); err != nil {
			logging.GetLoggerFromContext(ctx).Warn("failed to cache revoked token", "error", err)
		}
	}

	return nil
}

// SweepExpired drops denylist entries for tokens that have expired.
func (m *TokenManager) SweepExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx)
}

func (m *TokenManager) isRevoked(ctx context.Context, token string) (bool, error) {
	if m.cache != nil {
		hit, err := m.cache.IsRevoked(ctx, token)
		if err != nil {
			logging.GetLoggerFromContext(ctx).Warn("revocation cache unavailable", "error", err)
		} else if hit {
			return true, nil
		}
	}

	return m.store.IsRevoked(ctx, token)
}
