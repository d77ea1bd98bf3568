package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"amplecache/internal/query"
)

// SearchNotes runs a full-text query over note names and bodies.
func (e *Engine) SearchNotes(ctx context.Context, text string, limit int) (Page[NoteSearchResult], error) {
	if strings.TrimSpace(text) == "" {
		return Page[NoteSearchResult]{}, &query.UsageError{Field: "query", Reason: "must not be empty"}
	}
	stmt, err := query.BuildNoteQuery(query.NoteFilter{Text: text, Limit: limit}, e.searchPaging())
	if err != nil {
		return Page[NoteSearchResult]{}, err
	}
	items, more, err := e.runNotes(ctx, stmt)
	if err != nil {
		return Page[NoteSearchResult]{}, err
	}
	return Page[NoteSearchResult]{Items: items, HasMore: more}, nil
}

// GetNote looks a note up by remote or local UUID and resolves its
// references. A missing note is (nil, nil).
func (e *Engine) GetNote(ctx context.Context, id string) (*Note, error) {
	if err := query.ValidateUUID("uuid", id); err != nil {
		return nil, err
	}
	row := e.r.QueryRowContext(ctx,
		"SELECT "+query.NoteColumns+", NULL FROM notes AS n WHERE n.remote_uuid = ? OR n.local_uuid = ? ORDER BY n.rowid ASC LIMIT 1",
		id, id)
	n, _, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	note := &n

	refs, err := e.noteReferences(ctx, id)
	if err != nil {
		return nil, err
	}
	note.References = &refs
	return note, nil
}

// FindNotesByName matches a case-insensitive substring of the note name.
func (e *Engine) FindNotesByName(ctx context.Context, partial string, limit int) (Page[Note], error) {
	if partial == "" {
		return Page[Note]{}, &query.UsageError{Field: "name", Reason: "must not be empty"}
	}
	stmt, err := query.BuildNoteQuery(query.NoteFilter{NameContains: partial, SortBy: query.SortName, Limit: limit}, e.searchPaging())
	if err != nil {
		return Page[Note]{}, err
	}
	items, more, err := e.runNotes(ctx, stmt)
	if err != nil {
		return Page[Note]{}, err
	}
	return Page[Note]{Items: notesOnly(items), HasMore: more}, nil
}

// ListNotes pages through notes, alphabetically unless f says otherwise.
func (e *Engine) ListNotes(ctx context.Context, f query.NoteFilter) (Page[Note], error) {
	if f.SortBy == "" && strings.TrimSpace(f.Text) == "" {
		f.SortBy = query.SortName
	}
	stmt, err := query.BuildNoteQuery(f, e.listPaging())
	if err != nil {
		return Page[Note]{}, err
	}
	items, more, err := e.runNotes(ctx, stmt)
	if err != nil {
		return Page[Note]{}, err
	}
	return Page[Note]{Items: notesOnly(items), HasMore: more}, nil
}

// RecentNotes lists notes by modification time, newest first.
func (e *Engine) RecentNotes(ctx context.Context, limit int) (Page[Note], error) {
	return e.ListNotes(ctx, query.NoteFilter{SortBy: query.SortUpdated, Limit: limit})
}

// NoteReferences returns the notes linking to id and the notes id links to.
func (e *Engine) NoteReferences(ctx context.Context, id string) (NoteReferences, error) {
	if err := query.ValidateUUID("uuid", id); err != nil {
		return NoteReferences{}, err
	}
	return e.noteReferences(ctx, id)
}

const incomingReferencesSQL = "SELECT DISTINCT r.local_uuid, COALESCE(n.name, '') FROM note_references AS r" +
	" LEFT JOIN notes AS n ON r.local_uuid IN (n.local_uuid, n.remote_uuid)" +
	" WHERE r.referenced_uuid IN " + query.NoteIdentitySet +
	" ORDER BY 2 COLLATE NOCASE, 1"

const outgoingReferencesSQL = "SELECT DISTINCT r.referenced_uuid, COALESCE(n.name, '') FROM note_references AS r" +
	" LEFT JOIN notes AS n ON r.referenced_uuid IN (n.local_uuid, n.remote_uuid)" +
	" WHERE r.local_uuid IN " + query.NoteIdentitySet +
	" ORDER BY 2 COLLATE NOCASE, 1"

func (e *Engine) noteReferences(ctx context.Context, id string) (NoteReferences, error) {
	incoming, err := e.referenceList(ctx, incomingReferencesSQL, id)
	if err != nil {
		return NoteReferences{}, fmt.Errorf("incoming references: %w", err)
	}
	outgoing, err := e.referenceList(ctx, outgoingReferencesSQL, id)
	if err != nil {
		return NoteReferences{}, fmt.Errorf("outgoing references: %w", err)
	}
	return NoteReferences{ReferencedBy: incoming, References: outgoing}, nil
}

func (e *Engine) referenceList(ctx context.Context, stmt, id string) ([]NoteReference, error) {
	rows, err := e.r.QueryContext(ctx, stmt, query.NoteIdentityArgs(id)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []NoteReference{}
	for rows.Next() {
		var ref NoteReference
		if err := rows.Scan(&ref.UUID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
