// Package backend assembles the persistence collaborator and the optional
// change-event publisher from configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"smartspend/internal/amqp"
	"smartspend/internal/config"
	"smartspend/internal/storage"
	"smartspend/internal/store"
)

// Kind names a persistence implementation.
type Kind string

const (
	SQLite Kind = "sqlite"
	Memory Kind = "memory"
)

var kinds = []Kind{SQLite, Memory}

// Kinds lists the supported persistence implementations.
func Kinds() []Kind {
	return slices.Clone(kinds)
}

// ParseKind accepts a kind name in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(kinds, k) {
		return "", fmt.Errorf("unknown backend %q: must be one of %v", s, kinds)
	}
	return k, nil
}

// Events locates the AMQP exchange change events are published to.
type Events struct {
	URL      string
	Exchange string
	Queue    string
}

// Enabled reports whether a broker is configured.
func (e Events) Enabled() bool {
	return e.URL != ""
}

type Config struct {
	Kind       Kind
	SQLitePath string
	Events     Events
}

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("app config is nil")
	}
	kind, err := ParseKind(cfg.DataBackend)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Kind:       kind,
		SQLitePath: cfg.SQLiteDBPath,
		Events: Events{
			URL:      cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
			Queue:    cfg.AMQPQueue,
		},
	}, nil
}

func (c Config) Validate() error {
	if _, err := ParseKind(string(c.Kind)); err != nil {
		return err
	}
	if c.Kind == SQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return errors.New("sqlite backend needs a database path")
	}
	if c.Events.Enabled() && (c.Events.Exchange == "" || c.Events.Queue == "") {
		return errors.New("change events need both an exchange and a queue")
	}
	return nil
}

// CleanupFunc releases the resources held by a Result.
type CleanupFunc func() error

// Result is an assembled backend. Notifier and Publisher are nil when change
// events are disabled or the broker could not be reached.
type Result struct {
	Backend   storage.Backend
	Notifier  store.Notifier
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Factory builds a Result from a Config.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}
