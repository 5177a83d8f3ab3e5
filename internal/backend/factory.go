package backend

import (
	"context"
	"errors"
	"fmt"

	"smartspend/internal/amqp"
	"smartspend/internal/log"
	"smartspend/internal/storage"
	"smartspend/internal/storage/memory"
)

type factory struct {
	logger *log.Logger
}

// NewFactory returns the Factory used by the binaries.
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the configured store backend. A broker that cannot be
// reached is logged and skipped; the store then runs without a notifier.
func (f *factory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		be  storage.Backend
		err error
	)
	switch config.Kind {
	case SQLite:
		be, err = storage.NewSQLiteRepository(config.SQLitePath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		f.logger.InfoContext(ctx, "Opened SQLite backend", "db_path", config.SQLitePath)
	case Memory:
		be = memory.New()
		f.logger.InfoContext(ctx, "Opened memory backend")
	}

	res := &Result{Backend: be}
	if ev := config.Events; ev.Enabled() {
		client, err := amqp.NewClient(ev.URL, ev.Exchange, ev.Queue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Broker unreachable, change events disabled", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Publishing change events", "exchange", ev.Exchange, "queue", ev.Queue)
			res.Publisher = client
			res.Notifier = client
		}
	}

	res.Cleanup = func() error {
		var errs []error
		if res.Publisher != nil {
			errs = append(errs, res.Publisher.Close())
		}
		errs = append(errs, be.Close())
		return errors.Join(errs...)
	}
	return res, nil
}
