package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"amplecache/internal/query"
	"amplecache/internal/testutil"
)

func noteNames(notes []Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Name
	}
	return out
}

func TestFindNotesByNameScenario(t *testing.T) {
	fx := testutil.NewCache(t)
	fx.AddNote(testutil.Note{RemoteUUID: uuid.NewString(), LocalUUID: uuid.NewString(), Name: "Meeting Notes", Text: "agenda"})
	fx.AddNote(testutil.Note{LocalUUID: uuid.NewString(), Name: "Groceries"})
	engine := openTestEngine(t, fx)
	ctx := context.Background()

	page, err := engine.FindNotesByName(ctx, "meeting", 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "Meeting Notes" {
		t.Fatalf("expected Meeting Notes, got %v", noteNames(page.Items))
	}

	page, err = engine.FindNotesByName(ctx, "zzz", 0)
	if err != nil {
		t.Fatalf("find zzz: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected no notes, got %v", noteNames(page.Items))
	}
}

func TestFindNotesByNameEscapesWildcards(t *testing.T) {
	fx := testutil.NewCache(t)
	fx.AddNote(testutil.Note{LocalUUID: uuid.NewString(), Name: "100% done"})
	fx.AddNote(testutil.Note{LocalUUID: uuid.NewString(), Name: "100 items"})
	engine := openTestEngine(t, fx)

	page, err := engine.FindNotesByName(context.Background(), "100%", 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "100% done" {
		t.Fatalf("expected literal %% match, got %v", noteNames(page.Items))
	}
}

func TestGetNoteByEitherIdentity(t *testing.T) {
	fx := testutil.NewCache(t)
	remote, local := uuid.NewString(), uuid.NewString()
	fx.AddNote(testutil.Note{RemoteUUID: remote, LocalUUID: local, Name: "Plan", Text: "# Plan", RemoteDigest: "abc", UpdatedAt: "2024-01-02T03:04:05Z"})
	engine := openTestEngine(t, fx)
	ctx := context.Background()

	for _, id := range []string{remote, local} {
		note, err := engine.GetNote(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if note == nil || note.Name != "Plan" || note.Text != "# Plan" {
			t.Fatalf("expected Plan via %s, got %+v", id, note)
		}
		if note.UUID() != remote {
			t.Fatalf("expected remote uuid preferred, got %s", note.UUID())
		}
		if note.RemoteDigest == nil || *note.RemoteDigest != "abc" {
			t.Fatalf("expected digest, got %v", note.RemoteDigest)
		}
		if note.References == nil {
			t.Fatalf("expected references to be resolved")
		}
	}

	note, err := engine.GetNote(ctx, uuid.NewString())
	if err != nil || note != nil {
		t.Fatalf("expected (nil, nil) for unknown note, got %+v, %v", note, err)
	}
}

func TestNoteReferencesBothDirections(t *testing.T) {
	fx := testutil.NewCache(t)
	hubRemote, hubLocal := uuid.NewString(), uuid.NewString()
	inbound, outbound := uuid.NewString(), uuid.NewString()
	fx.AddNote(testutil.Note{RemoteUUID: hubRemote, LocalUUID: hubLocal, Name: "Hub"})
	fx.AddNote(testutil.Note{LocalUUID: inbound, Name: "Alpha"})
	fx.AddNote(testutil.Note{LocalUUID: outbound, Name: "Beta"})
	fx.AddNoteReference(inbound, hubRemote)
	fx.AddNoteReference(hubLocal, outbound)
	engine := openTestEngine(t, fx)

	for _, id := range []string{hubRemote, hubLocal} {
		refs, err := engine.NoteReferences(context.Background(), id)
		if err != nil {
			t.Fatalf("references via %s: %v", id, err)
		}
		if len(refs.ReferencedBy) != 1 || refs.ReferencedBy[0].UUID != inbound || refs.ReferencedBy[0].Name != "Alpha" {
			t.Fatalf("unexpected referenced_by: %+v", refs.ReferencedBy)
		}
		if len(refs.References) != 1 || refs.References[0].UUID != outbound || refs.References[0].Name != "Beta" {
			t.Fatalf("unexpected references: %+v", refs.References)
		}
	}

	refs, err := engine.NoteReferences(context.Background(), outbound)
	if err != nil {
		t.Fatalf("references: %v", err)
	}
	if refs.References == nil || len(refs.References) != 0 {
		t.Fatalf("expected empty non-nil outgoing list, got %#v", refs.References)
	}
}

func TestListNotesAlphabeticalWithPaging(t *testing.T) {
	fx := testutil.NewCache(t)
	for _, name := range []string{"delta", "Alpha", "charlie", "bravo"} {
		fx.AddNote(testutil.Note{LocalUUID: uuid.NewString(), Name: name})
	}
	engine := openTestEngine(t, fx)
	ctx := context.Background()

	page, err := engine.ListNotes(ctx, query.NoteFilter{Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := strings.Join(noteNames(page.Items), ","); got != "Alpha,bravo,charlie" || !page.HasMore {
		t.Fatalf("unexpected first page %s (more=%v)", got, page.HasMore)
	}
	page, err = engine.ListNotes(ctx, query.NoteFilter{Limit: 3, Offset: 3})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if got := strings.Join(noteNames(page.Items), ","); got != "delta" || page.HasMore {
		t.Fatalf("unexpected second page %s (more=%v)", got, page.HasMore)
	}
}

func TestRecentNotesNewestFirst(t *testing.T) {
	fx := testutil.NewCache(t)
	fx.AddNote(testutil.Note{LocalUUID: uuid.NewString(), Name: "old", UpdatedAt: "2023-01-01T00:00:00Z"})
	fx.AddNote(testutil.Note{LocalUUID: uuid.NewString(), Name: "never"})
	fx.AddNote(testutil.Note{LocalUUID: uuid.NewString(), Name: "new", UpdatedAt: "2024-06-01T00:00:00Z"})
	engine := openTestEngine(t, fx)

	page, err := engine.RecentNotes(context.Background(), 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if got := strings.Join(noteNames(page.Items), ","); got != "new,old,never" {
		t.Fatalf("unexpected order %s", got)
	}
}

func TestSearchNotesReturnsSnippet(t *testing.T) {
	fx := testutil.NewCache(t)
	fx.RequireFTS(t)
	fx.AddNote(testutil.Note{RemoteUUID: uuid.NewString(), Name: "Garden", Text: "Planting tomatoes in the spring garden"})
	fx.AddNote(testutil.Note{RemoteUUID: uuid.NewString(), Name: "Taxes", Text: "Receipts and forms"})
	engine := openTestEngine(t, fx)

	page, err := engine.SearchNotes(context.Background(), "tomato", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "Garden" {
		t.Fatalf("expected Garden via stemming, got %+v", page.Items)
	}
	if !strings.Contains(page.Items[0].Snippet, "[") {
		t.Fatalf("expected highlighted snippet, got %q", page.Items[0].Snippet)
	}
}
