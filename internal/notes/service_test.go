package notes

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/marknotes/internal/database"
	"github.com/dukerupert/marknotes/internal/markdown"
	"github.com/dukerupert/marknotes/internal/model"
	"github.com/dukerupert/marknotes/internal/store"
)

type mockNoteStore struct {
	notes  map[int64]model.Note
	nextID int64
	// conflict, when set, runs inside Update between read and write and
	// forces a conflict.
	conflict func(id int64)
	failWith error
}

func newMockNoteStore() *mockNoteStore {
	return &mockNoteStore{notes: make(map[int64]model.Note)}
}

func (m *mockNoteStore) Create(n model.Note) (*model.Note, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.nextID++
	n.ID = m.nextID
	m.notes[n.ID] = n
	return &n, nil
}

func (m *mockNoteStore) GetAll() ([]model.Note, error) {
	var out []model.Note
	for _, n := range m.notes {
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *mockNoteStore) GetByID(id int64) (*model.Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &n, nil
}

func (m *mockNoteStore) Update(id int64, mutate func(*model.Note) error) (*model.Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if err := mutate(&n); err != nil {
		return nil, err
	}
	if m.conflict != nil {
		m.conflict(id)
		return nil, fmt.Errorf("update note %d: %w", id, model.ErrConflict)
	}
	m.notes[id] = n
	return &n, nil
}

func (m *mockNoteStore) Delete(id int64) error {
	if _, ok := m.notes[id]; !ok {
		return model.ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *mockNoteStore) Exists(id int64) (bool, error) {
	_, ok := m.notes[id]
	return ok, nil
}

type countingProcessor struct {
	*markdown.Processor
	renders   int
	validates int
}

func (c *countingProcessor) Render(source string) string {
	c.renders++
	return c.Processor.Render(source)
}

func (c *countingProcessor) Validate(source string) markdown.ValidationResult {
	c.validates++
	return c.Processor.Validate(source)
}

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	t := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestService() (*Service, *mockNoteStore, *countingProcessor) {
	st := newMockNoteStore()
	md := &countingProcessor{Processor: markdown.NewProcessor()}
	return NewService(st, md, WithClock(tickingClock())), st, md
}

func ptr(s string) *string { return &s }

func TestCreateNoteDefaults(t *testing.T) {
	svc, _, _ := newTestService()

	note, err := svc.CreateNote(nil, nil)
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	if note.Title != model.DefaultTitle {
		t.Errorf("title = %q, want %q", note.Title, model.DefaultTitle)
	}
	if note.MarkdownContent != "" {
		t.Errorf("markdown_content = %q, want empty", note.MarkdownContent)
	}
	if !note.CreatedAt.Equal(note.UpdatedAt) {
		t.Errorf("created_at %v != updated_at %v", note.CreatedAt, note.UpdatedAt)
	}
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	svc, _, _ := newTestService()

	cases := []struct{ title, content string }{
		{"Test", "# Hi"},
		{"Unicode ✓", "*émphasis*"},
		{strings.Repeat("x", model.TitleMaxLength), ""},
		{strings.Repeat("é", model.TitleMaxLength), "body"},
	}
	for _, c := range cases {
		created, err := svc.CreateNote(ptr(c.title), ptr(c.content))
		if err != nil {
			t.Fatalf("create %q: %v", c.title, err)
		}
		got, err := svc.GetNote(created.ID)
		if err != nil {
			t.Fatalf("get %d: %v", created.ID, err)
		}
		if got.Title != c.title || got.MarkdownContent != c.content {
			t.Errorf("got (%q, %q), want (%q, %q)", got.Title, got.MarkdownContent, c.title, c.content)
		}
		if !got.CreatedAt.Equal(got.UpdatedAt) {
			t.Errorf("created_at %v != updated_at %v", got.CreatedAt, got.UpdatedAt)
		}
	}
}

func TestCreateNoteRejectsBadTitles(t *testing.T) {
	svc, st, _ := newTestService()

	for _, title := range []string{"", "   ", strings.Repeat("x", model.TitleMaxLength+1)} {
		_, err := svc.CreateNote(ptr(title), nil)
		if !errors.Is(err, ErrInvalidNote) {
			t.Errorf("title %q: err = %v, want ErrInvalidNote", title, err)
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected *ValidationError, got %T", err)
		}
		if _, ok := verr.FieldMessages()["title"]; !ok {
			t.Errorf("expected a title message, got %v", verr.FieldMessages())
		}
	}
	if len(st.notes) != 0 {
		t.Errorf("store holds %d notes, want 0", len(st.notes))
	}
}

func TestCreateNoteStoreFailure(t *testing.T) {
	svc, st, _ := newTestService()
	st.failWith = errors.New("disk gone")

	if _, err := svc.CreateNote(ptr("x"), nil); err == nil || errors.Is(err, ErrInvalidNote) {
		t.Errorf("err = %v, want infrastructure error", err)
	}
}

func TestUpdateNotePartial(t *testing.T) {
	svc, _, _ := newTestService()
	note, _ := svc.CreateNote(ptr("Title"), ptr("Content"))

	// Title only.
	updated, err := svc.UpdateNote(note.ID, ptr("New Title"), nil)
	if err != nil {
		t.Fatalf("update title: %v", err)
	}
	if updated.Title != "New Title" || updated.MarkdownContent != "Content" {
		t.Errorf("after title update got (%q, %q)", updated.Title, updated.MarkdownContent)
	}

	// Content only.
	updated, err = svc.UpdateNote(note.ID, nil, ptr("New Content"))
	if err != nil {
		t.Fatalf("update content: %v", err)
	}
	if updated.Title != "New Title" || updated.MarkdownContent != "New Content" {
		t.Errorf("after content update got (%q, %q)", updated.Title, updated.MarkdownContent)
	}

	// Neither: only updated_at moves.
	before, _ := svc.GetNote(note.ID)
	updated, err = svc.UpdateNote(note.ID, nil, nil)
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if updated.Title != before.Title || updated.MarkdownContent != before.MarkdownContent {
		t.Errorf("empty update changed fields: %+v", updated)
	}
	if !updated.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("updated_at = %v, want after %v", updated.UpdatedAt, before.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(note.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", note.CreatedAt, updated.CreatedAt)
	}
}

func TestUpdateNoteEmptyStringReplaces(t *testing.T) {
	svc, _, _ := newTestService()
	note, _ := svc.CreateNote(ptr("Title"), ptr("Content"))

	updated, err := svc.UpdateNote(note.ID, nil, ptr(""))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.MarkdownContent != "" {
		t.Errorf("markdown_content = %q, want empty", updated.MarkdownContent)
	}
}

func TestUpdateNoteRejectsBadTitle(t *testing.T) {
	svc, _, _ := newTestService()
	note, _ := svc.CreateNote(ptr("Title"), nil)

	_, err := svc.UpdateNote(note.ID, ptr(strings.Repeat("y", 101)), nil)
	if !errors.Is(err, ErrInvalidNote) {
		t.Fatalf("err = %v, want ErrInvalidNote", err)
	}
	got, _ := svc.GetNote(note.ID)
	if got.Title != "Title" {
		t.Errorf("title = %q, want unchanged", got.Title)
	}
}

func TestUpdateNoteNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.UpdateNote(42, ptr("x"), nil); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateNoteConflictOnDeletedNote(t *testing.T) {
	svc, st, _ := newTestService()
	note, _ := svc.CreateNote(ptr("Title"), nil)

	st.conflict = func(id int64) { delete(st.notes, id) }

	if _, err := svc.UpdateNote(note.ID, ptr("x"), nil); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateNoteConflictUnresolved(t *testing.T) {
	svc, st, _ := newTestService()
	note, _ := svc.CreateNote(ptr("Title"), nil)

	st.conflict = func(int64) {}

	_, err := svc.UpdateNote(note.ID, ptr("x"), nil)
	if !errors.Is(err, model.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestListNotesOrder(t *testing.T) {
	svc, _, _ := newTestService()

	a, _ := svc.CreateNote(ptr("A"), nil)
	svc.CreateNote(ptr("B"), nil)
	if _, err := svc.UpdateNote(a.ID, nil, ptr("touched")); err != nil {
		t.Fatalf("update: %v", err)
	}

	notes, err := svc.ListNotes()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notes) != 2 || notes[0].Title != "A" || notes[1].Title != "B" {
		t.Errorf("order = %v, want [A B]", titles(notes))
	}
}

func titles(notes []model.Note) []string {
	var out []string
	for _, n := range notes {
		out = append(out, n.Title)
	}
	return out
}

func TestGetNoteAsHTML(t *testing.T) {
	svc, _, md := newTestService()

	empty, _ := svc.CreateNote(ptr("Empty"), nil)
	html, err := svc.GetNoteAsHTML(empty.ID)
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if html != "" {
		t.Errorf("html = %q, want empty", html)
	}
	if md.renders != 0 {
		t.Errorf("renderer called %d times for empty content", md.renders)
	}

	note, _ := svc.CreateNote(ptr("Hi"), ptr("# Hi"))
	html, err = svc.GetNoteAsHTML(note.ID)
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if !strings.Contains(html, "<h1>Hi</h1>") {
		t.Errorf("html = %q, want <h1>Hi</h1>", html)
	}

	if _, err := svc.GetNoteAsHTML(999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLintMarkdown(t *testing.T) {
	svc, st, md := newTestService()

	for _, in := range []*string{nil, ptr("")} {
		got := svc.LintMarkdown(in)
		if !got.IsValid {
			t.Errorf("LintMarkdown(%v) invalid: %+v", in, got)
		}
	}
	if md.validates != 0 {
		t.Errorf("processor called %d times for empty input", md.validates)
	}

	if got := svc.LintMarkdown(ptr("# Title\n\nBody")); !got.IsValid {
		t.Errorf("expected valid, got %+v", got)
	}
	if got := svc.LintMarkdown(ptr("bad \xff byte")); got.IsValid || got.Error == "" {
		t.Errorf("expected invalid with detail, got %+v", got)
	}
	if len(st.notes) != 0 {
		t.Error("lint touched the store")
	}
}

func TestDeleteNote(t *testing.T) {
	svc, _, _ := newTestService()
	note, _ := svc.CreateNote(ptr("Bye"), nil)

	if err := svc.DeleteNote(note.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetNote(note.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("get err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteNote(note.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

// TestNoteLifecycleSQLite walks a note through its whole life against the
// real store.
func TestNoteLifecycleSQLite(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	svc := NewService(store.NewNoteStore(db), markdown.NewProcessor())

	note, err := svc.CreateNote(ptr("Test"), ptr("# Hi"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if note.ID == 0 || note.Title != "Test" || note.MarkdownContent != "# Hi" {
		t.Fatalf("unexpected note %+v", note)
	}

	html, err := svc.GetNoteAsHTML(note.ID)
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if !strings.Contains(html, "<h1>Hi</h1>") {
		t.Errorf("html = %q, want <h1>Hi</h1>", html)
	}

	if _, err := svc.UpdateNote(note.ID, nil, ptr("# Bye")); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := svc.GetNote(note.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Test" || got.MarkdownContent != "# Bye" {
		t.Errorf("got (%q, %q), want (Test, # Bye)", got.Title, got.MarkdownContent)
	}
	if !got.UpdatedAt.After(note.UpdatedAt) {
		t.Errorf("updated_at %v not after %v", got.UpdatedAt, note.UpdatedAt)
	}

	if err := svc.DeleteNote(note.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetNote(note.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("get err = %v, want ErrNotFound", err)
	}
}
