package store

import (
	"context"
	"time"
)

// RevokeToken records a token id as logged out until it would have expired.
func (s *Store) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO revoked_tokens (id, expires_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`),
		tokenID, dbTime(expiresAt))
	return err
}

// IsTokenRevoked reports whether a token id was logged out.
func (s *Store) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.db.Rebind(`SELECT COUNT(*) FROM revoked_tokens WHERE id = ?`), tokenID)
	return count > 0, err
}

// CleanupRevokedTokens removes revocations of tokens that have expired anyway.
func (s *Store) CleanupRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM revoked_tokens WHERE expires_at < ?`), dbTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
