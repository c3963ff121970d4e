package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/abtswath/rubick/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// catalogModels is every table owned by the catalog, in FK order.
var catalogModels = []any{
	&models.Area{},
	&models.Channel{},
	&models.Way{},
	&models.Resource{},
	&models.Season{},
	&models.Format{},
	&models.Series{},
	&models.File{},
	&models.Favorite{},
}

// fkIndexes covers every foreign-key column the aggregation engine filters
// on with batched IN queries.
var fkIndexes = []string{
	"CREATE INDEX IF NOT EXISTS series_id ON files (series_id ASC)",
	"CREATE INDEX IF NOT EXISTS way_id ON files (way_id ASC)",
	"CREATE INDEX IF NOT EXISTS season_id ON formats (season_id ASC)",
	"CREATE INDEX IF NOT EXISTS area_id ON resources (area_id ASC)",
	"CREATE INDEX IF NOT EXISTS channel_id ON resources (channel_id ASC)",
	"CREATE INDEX IF NOT EXISTS resource_id ON seasons (resource_id ASC)",
	"CREATE INDEX IF NOT EXISTS format_id ON series (format_id ASC)",
}

var pragmas = []string{
	"PRAGMA foreign_keys=ON",
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
}

// Open opens the catalog store, creating its directory on first use.
func Open(path string, logger *slog.Logger) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: NewGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	for _, pragma := range pragmas {
		if err := gdb.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return gdb, nil
}

// Migrate creates the schema. Every statement is create-if-absent, so it is
// safe to run on every startup.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(catalogModels...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	for _, stmt := range fkIndexes {
		if err := gdb.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}

// Reset clears every catalog table and its autoincrement counter in one
// transaction, returning the store to its just-migrated state. Used when an
// aborted first-run import has to start over.
func Reset(gdb *gorm.DB) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		names := make([]string, 0, len(catalogModels))
		for _, model := range catalogModels {
			stmt := &gorm.Statement{DB: tx}
			if err := stmt.Parse(model); err != nil {
				return fmt.Errorf("parse model: %w", err)
			}
			name := stmt.Schema.Table
			if err := tx.Exec("DELETE FROM " + name).Error; err != nil {
				return fmt.Errorf("clear %s: %w", name, err)
			}
			names = append(names, name)
		}
		// sqlite_sequence only exists after the first AUTOINCREMENT insert.
		tx.Exec("DELETE FROM sqlite_sequence WHERE name IN ?", names)
		return nil
	})
}
