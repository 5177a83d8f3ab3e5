package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"smartspend/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// schemaVersion reports the migration version recorded in m; zero when the
// database has never been migrated.
func schemaVersion(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, err
	case dirty:
		return v, fmt.Errorf("schema version %d is dirty", v)
	}
	return v, nil
}

// migrateSchema applies the embedded migrations to the database at dbPath.
// It uses its own connection because the migrate driver closes it.
func migrateSchema(dbPath string, logger *log.Logger) error {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("sqlite migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		conn.Close()
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		conn.Close()
		return fmt.Errorf("migrator: %w", err)
	}
	defer m.Close()

	from, err := schemaVersion(m)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("Schema up to date", "version", from)
			return nil
		}
		return fmt.Errorf("apply migrations from version %d: %w", from, err)
	}
	to, err := schemaVersion(m)
	if err != nil {
		return err
	}
	logger.Info("Schema migrated", "from", from, "to", to, "path", dbPath)
	return nil
}
