package database

import "gorm.io/gorm"

// Migrations is the ordered schema history of the task store. Version 1 is
// the 0→1 bootstrap of the base schema and cannot be reversed.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "base schema: tasks, tags, associations, full-text index",
		Upgrade:     migrateV1BaseSchema,
	},
	{
		Version:     2,
		Description: "query indexes for list filters",
		Upgrade:     migrateV2AddIndexes,
		Downgrade:   rollbackV2AddIndexes,
	},
}

// The FTS index is external-content over tasks(title, notes) and is kept in
// sync by triggers, so every create/update/delete maintains it without any
// application-side bookkeeping. Porter stemming + unicode61 folding.
func migrateV1BaseSchema(tx *gorm.DB) error {
	return tx.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			notes        TEXT,
			due_date     TEXT,
			due_time     TEXT,
			priority     INTEGER NOT NULL DEFAULT 0,
			completed    INTEGER NOT NULL DEFAULT 0,
			completed_at DATETIME,
			created_at   DATETIME NOT NULL,
			modified_at  DATETIME NOT NULL,
			device_id    TEXT NOT NULL DEFAULT '',
			version      INTEGER NOT NULL DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS tags (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			color      TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS task_tags (
			task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			tag_id  TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (task_id, tag_id)
		);

		CREATE VIRTUAL TABLE IF NOT EXISTS tasks_fts USING fts5(
			title,
			notes,
			content='tasks',
			tokenize='porter unicode61'
		);

		CREATE TRIGGER IF NOT EXISTS tasks_fts_insert AFTER INSERT ON tasks BEGIN
			INSERT INTO tasks_fts(rowid, title, notes)
			VALUES (new.rowid, new.title, new.notes);
		END;

		CREATE TRIGGER IF NOT EXISTS tasks_fts_delete AFTER DELETE ON tasks BEGIN
			INSERT INTO tasks_fts(tasks_fts, rowid, title, notes)
			VALUES ('delete', old.rowid, old.title, old.notes);
		END;

		CREATE TRIGGER IF NOT EXISTS tasks_fts_update AFTER UPDATE OF title, notes ON tasks BEGIN
			INSERT INTO tasks_fts(tasks_fts, rowid, title, notes)
			VALUES ('delete', old.rowid, old.title, old.notes);
			INSERT INTO tasks_fts(rowid, title, notes)
			VALUES (new.rowid, new.title, new.notes);
		END;
	`).Error
}

func migrateV2AddIndexes(tx *gorm.DB) error {
	return tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(completed);
		CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
		CREATE INDEX IF NOT EXISTS idx_tasks_modified_at ON tasks(modified_at);
		CREATE INDEX IF NOT EXISTS idx_task_tags_tag_id ON task_tags(tag_id);
	`).Error
}

func rollbackV2AddIndexes(tx *gorm.DB) error {
	return tx.Exec(`
		DROP INDEX IF EXISTS idx_tasks_completed;
		DROP INDEX IF EXISTS idx_tasks_due_date;
		DROP INDEX IF EXISTS idx_tasks_modified_at;
		DROP INDEX IF EXISTS idx_task_tags_tag_id;
	`).Error
}
