package database

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// versionTable records which schema files have been applied, with their checksum
const versionTable = "procurement_schema_versions"

// Migration is one numbered schema file, e.g. "003_requisitions.sql"
type Migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// Migrator brings the procurement schema up to date
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// RunMigrations applies the pending files of fsys in version order. A file that
// changed after it was applied stops the run before anything new is applied.
func (m *Migrator) RunMigrations(fsys fs.FS) error {
	if _, err := m.db.Exec(`CREATE TABLE IF NOT EXISTS ` + versionTable + ` (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		checksum TEXT NOT NULL,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create %s: %w", versionTable, err)
	}

	applied, err := m.appliedChecksums()
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	var pending []Migration
	for _, mig := range migrations {
		checksum, ok := applied[mig.Version]
		if !ok {
			pending = append(pending, mig)
			continue
		}
		if checksum != mig.Checksum {
			return fmt.Errorf("migration %03d_%s was modified after it was applied", mig.Version, mig.Name)
		}
	}

	for _, mig := range pending {
		if err := m.apply(mig); err != nil {
			return fmt.Errorf("failed to apply migration %03d_%s: %w", mig.Version, mig.Name, err)
		}
		m.logger.Info("Schema migration applied",
			zap.Int("version", mig.Version),
			zap.String("name", mig.Name))
	}

	m.logger.Info("Procurement schema is current",
		zap.String("path", m.db.Path()),
		zap.Int("applied", len(pending)),
		zap.Int("total", len(migrations)))
	return nil
}

func (m *Migrator) appliedChecksums() (map[int]string, error) {
	rows, err := m.db.Query(`SELECT version, checksum FROM ` + versionTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]string)
	for rows.Next() {
		var version int
		var checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

// apply runs the file and records it in one transaction
func (m *Migrator) apply(mig Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(mig.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO `+versionTable+` (version, name, checksum) VALUES (?, ?, ?)`,
		mig.Version, mig.Name, mig.Checksum,
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}

// LoadMigrations reads the numbered .sql files of fsys sorted by version.
// "002_catalog.sql" is version 2 named "catalog"; two files may not share a version.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	var migrations []Migration
	seen := make(map[int]string)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".sql") {
			return nil
		}

		filename := path.Base(p)
		var version int
		if _, err := fmt.Sscanf(filename, "%d", &version); err != nil {
			return fmt.Errorf("invalid migration filename format: %s", filename)
		}
		if other, dup := seen[version]; dup {
			return fmt.Errorf("migrations %s and %s share version %d", other, filename, version)
		}
		seen[version] = filename

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", p, err)
		}

		var name string
		if parts := strings.SplitN(filename, "_", 2); len(parts) == 2 {
			name = strings.TrimSuffix(parts[1], ".sql")
		}

		sum := sha256.Sum256(content)
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			SQL:      string(content),
			Checksum: hex.EncodeToString(sum[:]),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
