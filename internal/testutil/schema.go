package testutil

// cacheSchemaSQL reproduces the tables of the Amplenote desktop cache that
// the engine reads. The engine never creates these; only fixtures do.
const cacheSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	rowid INTEGER PRIMARY KEY,
	remote_uuid TEXT UNIQUE,
	local_uuid TEXT UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	metadata TEXT,
	text TEXT NOT NULL DEFAULT '',
	remote_content TEXT,
	remote_digest TEXT,
	updated_at TEXT
);

CREATE TABLE IF NOT EXISTS note_references (
	local_uuid TEXT NOT NULL,
	referenced_uuid TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY,
	uuid TEXT NOT NULL UNIQUE,
	local_uuid TEXT,
	remote_uuid TEXT,
	deleted INTEGER DEFAULT 0,
	calendar_sync_required INTEGER DEFAULT 0,
	notify_at INTEGER,
	attrs TEXT,
	content TEXT,
	due INTEGER,
	done INTEGER DEFAULT 0,
	is_scheduled_bullet INTEGER DEFAULT 0,
	parent_uuid TEXT,
	priority INTEGER
);

CREATE TABLE IF NOT EXISTS task_references (
	source_uuid TEXT NOT NULL,
	target_uuid TEXT NOT NULL,
	relation TEXT
);
`

const searchSchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS notes_search_index USING fts4(content='notes', name, text, tokenize=porter);
CREATE VIRTUAL TABLE IF NOT EXISTS tasks_search_index USING fts4(text, tokenize=porter);
`
