package repository

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies every pending up migration found in dir.
func RunMigrations(databaseURL, dir string) error {
	if databaseURL == "" {
		return errors.New("RunMigrations: database url is empty")
	}
	if dir == "" {
		return errors.New("RunMigrations: migrations dir is empty")
	}

	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return fmt.Errorf("RunMigrations: init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("RunMigrations: up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("RunMigrations: version: %w", err)
	}
	if dirty {
		return fmt.Errorf("RunMigrations: version %d is dirty, fix it manually", version)
	}
	return nil
}
