package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/example/locksync/internal/crypto"
	"github.com/example/locksync/internal/db"
)

// PGStore keeps the single vendor token row in postgres with both token
// values encrypted at rest.
type PGStore struct {
	db   *db.DB
	aead *crypto.AEAD
}

func NewPGStore(d *db.DB, aead *crypto.AEAD) *PGStore {
	return &PGStore{db: d, aead: aead}
}

func (s *PGStore) Load(ctx context.Context) (Token, error) {
	var (
		access, refresh string
		expiresAt       *time.Time
	)
	err := s.db.QueryRow(ctx, `SELECT access_token, refresh_token, expires_at FROM vendor_credentials WHERE id=1`).
		Scan(&access, &refresh, &expiresAt)
	if db.IsNotFound(err) {
		return Token{}, nil
	}
	if err != nil {
		return Token{}, err
	}

	var tok Token
	if access != "" {
		tok.AccessToken, err = s.aead.DecryptString(access)
		if err != nil {
			return Token{}, fmt.Errorf("decrypt access token (wrong TOKEN_PASSPHRASE?): %w", err)
		}
	}
	if refresh != "" {
		tok.RefreshToken, err = s.aead.DecryptString(refresh)
		if err != nil {
			return Token{}, fmt.Errorf("decrypt refresh token (wrong TOKEN_PASSPHRASE?): %w", err)
		}
	}
	if expiresAt != nil {
		tok.ExpiresAt = *expiresAt
	}
	return tok, nil
}

func (s *PGStore) Save(ctx context.Context, t Token) error {
	access, err := s.aead.EncryptToString(t.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.aead.EncryptToString(t.RefreshToken)
	if err != nil {
		return err
	}
	return s.db.Exec(ctx, `
INSERT INTO vendor_credentials (id, access_token, refresh_token, expires_at, updated_at)
VALUES (1, $1, $2, $3, now())
ON CONFLICT (id) DO UPDATE
SET access_token=EXCLUDED.access_token,
    refresh_token=EXCLUDED.refresh_token,
    expires_at=EXCLUDED.expires_at,
    updated_at=now()`,
		access, refresh, t.ExpiresAt)
}
