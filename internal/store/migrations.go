package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notifications (
	id        TEXT PRIMARY KEY,
	remote_id INTEGER NOT NULL DEFAULT 0,
	type      TEXT NOT NULL,
	message   TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	read      INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	priority  TEXT NOT NULL DEFAULT 'medium',
	position  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_position ON notifications(position);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE notifications ADD COLUMN location TEXT NOT NULL DEFAULT '';
ALTER TABLE notifications ADD COLUMN value REAL NOT NULL DEFAULT 0;
ALTER TABLE notifications ADD COLUMN unit TEXT NOT NULL DEFAULT '';

CREATE INDEX IF NOT EXISTS idx_notifications_remote_id ON notifications(remote_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
