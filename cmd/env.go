package cmd

import (
	"context"

	"github.com/example/locksync/internal/codelog"
	"github.com/example/locksync/internal/config"
	"github.com/example/locksync/internal/credential"
	"github.com/example/locksync/internal/crypto"
	"github.com/example/locksync/internal/db"
	"github.com/example/locksync/internal/migrate"
	"github.com/example/locksync/internal/ttlock"
)

// env wires the pieces every command needs: config, database (migrated),
// credential manager, vendor client and the reconciliation log.
type env struct {
	cfg    config.Config
	db     *db.DB
	tokens *credential.PGStore
	creds  *credential.Manager
	vendor *ttlock.Client
	log    *codelog.PG
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := migrate.Up(ctx, d); err != nil {
		d.Close()
		return nil, err
	}

	aead, err := crypto.NewFromPassphrase(cfg.TokenPassphrase)
	if err != nil {
		d.Close()
		return nil, err
	}

	tokens := credential.NewPGStore(d, aead)
	creds := credential.NewManager(tokens, cfg.OAuthHost, cfg.ClientID, cfg.ClientSecret, cfg.VendorTimeout)

	return &env{
		cfg:    cfg,
		db:     d,
		tokens: tokens,
		creds:  creds,
		vendor: ttlock.New(cfg.APIBase, cfg.ClientID, creds, cfg.VendorTimeout),
		log:    codelog.NewPG(d),
	}, nil
}

func (e *env) close() {
	e.db.Close()
}
