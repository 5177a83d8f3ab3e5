package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"smartspend/internal/backend"
	"smartspend/internal/config"
	"smartspend/internal/format"
	"smartspend/internal/identity"
	"smartspend/internal/log"
	"smartspend/internal/store"
)

type sessionOptions struct {
	Owner    string
	DBPath   string
	LogLevel string
}

// session is one owner's loaded store plus what is needed to release it.
type session struct {
	owner    string
	store    *store.Store
	currency format.Currency
	logger   *log.Logger
	cleanup  backend.CleanupFunc
}

func openSession(ctx context.Context, opts *sessionOptions) (*session, error) {
	cfg := config.Load()
	if opts.DBPath != "" {
		cfg.DataBackend = config.BackendSQLite
		cfg.SQLiteDBPath = opts.DBPath
	}
	owner := strings.TrimSpace(opts.Owner)
	if owner == "" {
		owner = cfg.OwnerID
	}
	if owner == "" {
		return nil, errors.New("no owner: pass --owner or set OWNER_ID")
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(opts.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentCLI,
		Output:    os.Stderr,
	})
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Using the memory backend, nothing is persisted")
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend: %w", err)
	}

	st, err := store.New(store.Options{
		Backend:      res.Backend,
		Identity:     identity.Fixed(owner),
		Notifier:     res.Notifier,
		Logger:       logger,
		SeedDefaults: cfg.SeedDefaultCategories,
	})
	if err == nil {
		err = st.Load(ctx)
	}
	if err != nil {
		_ = res.Cleanup()
		return nil, fmt.Errorf("failed to load data for %s: %w", owner, err)
	}

	return &session{
		owner:    owner,
		store:    st,
		currency: format.NewCurrency(cfg.Currency, cfg.CurrencyDecimals),
		logger:   logger,
		cleanup:  res.Cleanup,
	}, nil
}

func (s *session) Close() {
	s.store.Dispose()
	if err := s.cleanup(); err != nil {
		s.logger.Error("failed to close backend", log.FieldError, err)
	}
}
