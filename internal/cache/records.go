package cache

import "amplecache/internal/attrs"

// Page is one window of an ordered listing. HasMore reports that at least
// one further row matched beyond the window.
type Page[T any] struct {
	Items   []T  `json:"items"`
	HasMore bool `json:"has_more"`
}

type Note struct {
	RemoteUUID    *string `json:"remote_uuid"`
	LocalUUID     *string `json:"local_uuid"`
	Name          string  `json:"name"`
	Metadata      *string `json:"metadata,omitempty"`
	Text          string  `json:"text"`
	RemoteContent *string `json:"remote_content,omitempty"`
	RemoteDigest  *string `json:"remote_digest,omitempty"`
	UpdatedAt     *string `json:"updated_at,omitempty"`

	// References is filled by GetNote only.
	References *NoteReferences `json:"note_references,omitempty"`
}

// UUID is the note's preferred identity: the remote one once synced.
func (n Note) UUID() string {
	if n.RemoteUUID != nil && *n.RemoteUUID != "" {
		return *n.RemoteUUID
	}
	if n.LocalUUID != nil {
		return *n.LocalUUID
	}
	return ""
}

type NoteSearchResult struct {
	Note
	Snippet string `json:"snippet"`
}

type NoteReference struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// NoteReferences holds both directions of the note reference graph around
// one note.
type NoteReferences struct {
	ReferencedBy []NoteReference `json:"referenced_by"`
	References   []NoteReference `json:"references"`
}

type Task struct {
	ID                   int64   `json:"id"`
	UUID                 string  `json:"uuid"`
	LocalUUID            *string `json:"local_uuid,omitempty"`
	RemoteUUID           *string `json:"remote_uuid,omitempty"`
	Deleted              bool    `json:"deleted"`
	Done                 bool    `json:"done"`
	CalendarSyncRequired bool    `json:"calendar_sync_required"`
	ScheduledBullet      bool    `json:"is_scheduled_bullet"`
	NotifyAt             *int64  `json:"notify_at"`
	Due                  *int64  `json:"due"`
	ParentUUID           *string `json:"parent_uuid"`
	Priority             *int64  `json:"priority"`

	Text    string `json:"text"`
	Content string `json:"-"`

	Attrs attrs.Attrs `json:"attrs"`
	// AttrsUnavailable marks a row whose attribute document could not be
	// decoded; Attrs is then empty.
	AttrsUnavailable bool `json:"attrs_unavailable,omitempty"`

	IsUrgent    bool `json:"is_urgent"`
	IsImportant bool `json:"is_important"`
}
