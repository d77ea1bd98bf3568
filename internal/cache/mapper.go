package cache

import (
	"database/sql"
	"fmt"
	"log/slog"

	"amplecache/internal/attrs"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(rows rowScanner) (Task, error) {
	var (
		t                             Task
		localUUID, remoteUUID, parent sql.NullString
		attrsRaw, content             sql.NullString
		deleted, calSync, done, sched sql.NullInt64
		notifyAt, due, priority       sql.NullInt64
	)
	err := rows.Scan(
		&t.ID, &t.UUID, &localUUID, &remoteUUID, &deleted, &calSync,
		&notifyAt, &attrsRaw, &content, &due, &done, &sched, &parent, &priority,
	)
	if err != nil {
		return Task{}, fmt.Errorf("scan task: %w", err)
	}
	t.LocalUUID = nullString(localUUID)
	t.RemoteUUID = nullString(remoteUUID)
	t.ParentUUID = nullString(parent)
	t.Deleted = intBool(deleted)
	t.CalendarSyncRequired = intBool(calSync)
	t.Done = intBool(done)
	t.ScheduledBullet = intBool(sched)
	t.NotifyAt = nullInt(notifyAt)
	t.Due = nullInt(due)
	t.Priority = nullInt(priority)

	if attrsRaw.Valid {
		decoded, ok := attrs.Decode([]byte(attrsRaw.String))
		if !ok {
			slog.Warn("task attrs unreadable", "task", t.UUID, "id", t.ID)
			t.AttrsUnavailable = true
		}
		t.Attrs = decoded
	}
	flags := t.Attrs.FlagSet()
	t.IsUrgent = flags.Urgent()
	t.IsImportant = flags.Important()

	if content.Valid {
		t.Content = content.String
		text, ok := attrs.ContentText([]byte(content.String))
		if !ok {
			slog.Debug("task content unreadable", "task", t.UUID)
		}
		t.Text = text
	}
	return t, nil
}

// scanNote reads NoteColumns followed by the snippet column.
func scanNote(rows rowScanner) (Note, string, error) {
	var (
		n                             Note
		rowID                         int64
		remoteUUID, localUUID         sql.NullString
		name, metadata, text          sql.NullString
		remoteContent, digest, update sql.NullString
		snippet                       sql.NullString
	)
	err := rows.Scan(
		&rowID, &remoteUUID, &localUUID, &name, &metadata, &text,
		&remoteContent, &digest, &update, &snippet,
	)
	if err != nil {
		return Note{}, "", fmt.Errorf("scan note: %w", err)
	}
	n.RemoteUUID = nullString(remoteUUID)
	n.LocalUUID = nullString(localUUID)
	n.Name = name.String
	n.Text = text.String
	n.Metadata = nullString(metadata)
	n.RemoteContent = nullString(remoteContent)
	n.RemoteDigest = nullString(digest)
	n.UpdatedAt = nullString(update)
	return n, snippet.String, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func intBool(v sql.NullInt64) bool {
	return v.Valid && v.Int64 != 0
}
