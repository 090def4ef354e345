package database

import (
	"fmt"
	"log"
	"sort"

	"gorm.io/gorm"
)

// MigrationFunc applies one schema change inside the step's transaction.
type MigrationFunc func(tx *gorm.DB) error

// Migration is a single versioned schema change. Downgrade may be nil, in
// which case the migration cannot be reversed.
type Migration struct {
	Version     int
	Description string
	Upgrade     MigrationFunc
	Downgrade   MigrationFunc
}

// Migrator applies registered migrations against the schema_version ledger.
// The ledger is append-only under upgrades; current version = MAX(version).
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

func NewMigrator(db *gorm.DB, migrations []Migration) *Migrator {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return &Migrator{db: db, migrations: sorted}
}

// ensureLedger creates the version ledger table on a fresh store. A store
// without the table is at version 0.
func (m *Migrator) ensureLedger() error {
	return m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version     INTEGER NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`).Error
}

// CurrentVersion returns the highest applied migration version, or 0 for a
// fresh store.
func (m *Migrator) CurrentVersion() (int, error) {
	if err := m.ensureLedger(); err != nil {
		return 0, fmt.Errorf("creating schema_version table: %w", err)
	}
	var version int
	err := m.db.Raw("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// MigrateTo brings the schema to the target version. Upgrades apply every
// registered migration in (current, target] ascending; downgrades apply
// (target, current] descending and require every step to be reversible —
// the chain is validated before anything is touched. Each step runs as its
// own transaction together with its ledger row, so a failure aborts that
// step only; prior steps of the same call stay committed.
func (m *Migrator) MigrateTo(target int) error {
	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}
	if current == target {
		log.Printf("Database already at schema version %d", target)
		return nil
	}
	if target > current {
		return m.upgrade(current, target)
	}
	return m.downgrade(current, target)
}

// MigrateToLatest migrates to the highest registered version.
func (m *Migrator) MigrateToLatest() error {
	if len(m.migrations) == 0 {
		log.Println("No migrations registered")
		return nil
	}
	return m.MigrateTo(m.migrations[len(m.migrations)-1].Version)
}

func (m *Migrator) upgrade(current, target int) error {
	for _, mig := range m.migrations {
		if mig.Version <= current || mig.Version > target {
			continue
		}
		mig := mig
		log.Printf("Upgrading to schema version %d: %s", mig.Version, mig.Description)
		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := mig.Upgrade(tx); err != nil {
				return err
			}
			return tx.Exec(
				"INSERT INTO schema_version (version, description) VALUES (?, ?)",
				mig.Version, mig.Description,
			).Error
		})
		if err != nil {
			return fmt.Errorf("applying migration %d: %w", mig.Version, err)
		}
	}
	return nil
}

func (m *Migrator) downgrade(current, target int) error {
	var steps []Migration
	for i := len(m.migrations) - 1; i >= 0; i-- {
		mig := m.migrations[i]
		if mig.Version > current || mig.Version <= target {
			continue
		}
		steps = append(steps, mig)
	}

	// The whole chain must be reversible before anything is touched.
	for _, mig := range steps {
		if mig.Downgrade == nil {
			return fmt.Errorf(
				"cannot downgrade: migration %d (%s) has no downgrade",
				mig.Version, mig.Description,
			)
		}
	}

	for _, mig := range steps {
		mig := mig
		log.Printf("Reverting schema version %d: %s", mig.Version, mig.Description)
		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := mig.Downgrade(tx); err != nil {
				return err
			}
			return tx.Exec("DELETE FROM schema_version WHERE version = ?", mig.Version).Error
		})
		if err != nil {
			return fmt.Errorf("reverting migration %d: %w", mig.Version, err)
		}
	}
	return nil
}
