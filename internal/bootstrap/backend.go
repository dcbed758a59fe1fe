package bootstrap

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"github.com/firebase-recipes/recipes-api/config"
	"github.com/firebase-recipes/recipes-api/internal/auth"
	"github.com/firebase-recipes/recipes-api/internal/recipes/store"
)

// Backend is the record store selected by configuration plus everything it
// holds open.
type Backend struct {
	Store    store.Store
	Checks   map[string]store.Pinger
	Verifier auth.TokenVerifier

	closers []func() error
}

// Close releases clients in reverse order of opening.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// OpenBackend builds the store named by STORE_BACKEND, puts the Redis page
// cache in front of it when REDIS_ADDR is set, and picks a token verifier.
func OpenBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *Backend, err error) {
	b := &Backend{Checks: map[string]store.Pinger{}}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	var app *firebase.App
	if cfg.Firebase.CredentialsPath != "" {
		app, err = auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			return nil, err
		}
	}

	switch cfg.Store.Backend {
	case config.BackendFirestore:
		if app == nil {
			return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required for the firestore backend")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		fs := store.NewFirestoreStore(client, log.Named("firestore"))
		b.Store = fs
		b.Checks["firestore"] = fs

	case config.BackendPostgres:
		pool, err := OpenDB(ctx, DBOptions{
			DSN:      cfg.Database.ConnString(),
			MaxConns: int32(cfg.Database.MaxConns),
			MinConns: int32(cfg.Database.MinConns),
		})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() error { pool.Close(); return nil })
		pg := store.NewPostgresStore(pool, log.Named("postgres"))
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		b.Store = pg
		b.Checks["postgres"] = pg

	case config.BackendMemory:
		mem := store.NewMemoryStore(log.Named("memory"))
		b.Store = mem
		b.Checks["memory"] = mem

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Redis.Enabled() {
		client, err := OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		cached := store.NewCachedStore(b.Store, client, cfg.Redis.CacheTTL, log.Named("cache"))
		b.Store = cached
		b.Checks["redis"] = cached
	}

	b.Verifier, err = newVerifier(ctx, app, cfg, log)
	if err != nil {
		return nil, err
	}

	log.Info("store backend ready",
		zap.String("backend", cfg.Store.Backend),
		zap.Bool("cache", cfg.Redis.Enabled()),
	)
	return b, nil
}

func newVerifier(ctx context.Context, app *firebase.App, cfg *config.Config, log *zap.Logger) (auth.TokenVerifier, error) {
	if app == nil {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required in production")
		}
		log.Warn("no Firebase credentials, accepting dev:<uid> tokens")
		return auth.DevVerifier{}, nil
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return auth.NewFirebaseVerifier(client), nil
}
