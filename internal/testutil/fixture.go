package testutil

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"amplecache/internal/attrs"
)

// Cache builds an Amplenote cache file for tests through a writable
// connection. Call Finish before opening it read-only.
type Cache struct {
	t    testing.TB
	db   *sql.DB
	path string
	fts  bool
}

type Note struct {
	RemoteUUID    string
	LocalUUID     string
	Name          string
	Text          string
	Metadata      string
	RemoteContent string
	RemoteDigest  string
	UpdatedAt     string
}

type Task struct {
	ID                   int64
	UUID                 string
	LocalUUID            string
	RemoteUUID           string
	Deleted              bool
	Done                 bool
	CalendarSyncRequired bool
	ScheduledBullet      bool
	NotifyAt             *int64
	Due                  *int64
	Priority             *int64
	ParentUUID           string
	// Attrs is stored verbatim so tests can plant malformed documents.
	Attrs   string
	Content string
	// Text feeds the full-text index; it defaults to the flattened Content.
	Text string
}

func NewCache(t testing.TB) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amplenote.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(cacheSchemaSQL); err != nil {
		t.Fatalf("create cache schema: %v", err)
	}
	c := &Cache{t: t, db: db, path: path, fts: true}
	if _, err := db.Exec(searchSchemaSQL); err != nil {
		if !strings.Contains(err.Error(), "no such module") {
			t.Fatalf("create search schema: %v", err)
		}
		c.fts = false
	}
	t.Cleanup(func() { _ = db.Close() })
	return c
}

// RequireFTS skips the calling test when the driver lacks FTS4.
func (c *Cache) RequireFTS(t testing.TB) {
	t.Helper()
	if !c.fts {
		t.Skip("sqlite driver built without fts4")
	}
}

func (c *Cache) Path() string { return c.path }

// Finish closes the writable connection and returns the file path.
func (c *Cache) Finish() string {
	c.t.Helper()
	if err := c.db.Close(); err != nil {
		c.t.Fatalf("close fixture db: %v", err)
	}
	return c.path
}

func (c *Cache) AddNote(n Note) int64 {
	c.t.Helper()
	res, err := c.db.Exec(`INSERT INTO notes(remote_uuid, local_uuid, name, metadata, text, remote_content, remote_digest, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		nullable(n.RemoteUUID), nullable(n.LocalUUID), n.Name, nullable(n.Metadata), n.Text,
		nullable(n.RemoteContent), nullable(n.RemoteDigest), nullable(n.UpdatedAt))
	if err != nil {
		c.t.Fatalf("insert note %q: %v", n.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		c.t.Fatalf("note rowid: %v", err)
	}
	if c.fts {
		if _, err := c.db.Exec("INSERT INTO notes_search_index(docid, name, text) VALUES(?, ?, ?)", id, n.Name, n.Text); err != nil {
			c.t.Fatalf("index note %q: %v", n.Name, err)
		}
	}
	return id
}

func (c *Cache) AddTask(tk Task) int64 {
	c.t.Helper()
	var id any
	if tk.ID != 0 {
		id = tk.ID
	}
	res, err := c.db.Exec(`INSERT INTO tasks(id, uuid, local_uuid, remote_uuid, deleted, calendar_sync_required, notify_at,
		attrs, content, due, done, is_scheduled_bullet, parent_uuid, priority)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, tk.UUID, nullable(tk.LocalUUID), nullable(tk.RemoteUUID), tk.Deleted, tk.CalendarSyncRequired,
		tk.NotifyAt, nullable(tk.Attrs), nullable(tk.Content), tk.Due, tk.Done, tk.ScheduledBullet,
		nullable(tk.ParentUUID), tk.Priority)
	if err != nil {
		c.t.Fatalf("insert task %s: %v", tk.UUID, err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		c.t.Fatalf("task id: %v", err)
	}
	text := tk.Text
	if text == "" {
		text, _ = attrs.ContentText([]byte(tk.Content))
	}
	if c.fts {
		if _, err := c.db.Exec("INSERT INTO tasks_search_index(docid, text) VALUES(?, ?)", rowID, text); err != nil {
			c.t.Fatalf("index task %s: %v", tk.UUID, err)
		}
	}
	return rowID
}

func (c *Cache) AddNoteReference(from, to string) {
	c.t.Helper()
	if _, err := c.db.Exec("INSERT INTO note_references(local_uuid, referenced_uuid) VALUES(?, ?)", from, to); err != nil {
		c.t.Fatalf("insert note reference: %v", err)
	}
}

func (c *Cache) AddTaskReference(source, target, relation string) {
	c.t.Helper()
	if _, err := c.db.Exec("INSERT INTO task_references(source_uuid, target_uuid, relation) VALUES(?, ?, ?)", source, target, relation); err != nil {
		c.t.Fatalf("insert task reference: %v", err)
	}
}

// TaskContent wraps text in a minimal ProseMirror paragraph document.
func TaskContent(text string) string {
	return `[{"type":"paragraph","content":[{"type":"text","text":` + quote(text) + `}]}]`
}

func quote(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func Int64(v int64) *int64 { return &v }
