// Package notes holds the note operations exposed to request handlers. It
// applies defaults and the partial-update policy, validates titles before
// anything reaches the store, and turns store conflicts into outcomes
// callers can act on.
package notes

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/dukerupert/marknotes/internal/markdown"
	"github.com/dukerupert/marknotes/internal/model"
)

// Store is the durable note collection. Implementations return
// model.ErrNotFound for unknown ids and model.ErrConflict when Update loses
// a race with another writer.
type Store interface {
	Create(n model.Note) (*model.Note, error)
	GetAll() ([]model.Note, error)
	GetByID(id int64) (*model.Note, error)
	Update(id int64, mutate func(*model.Note) error) (*model.Note, error)
	Delete(id int64) error
	Exists(id int64) (bool, error)
}

// Processor renders and validates markdown.
type Processor interface {
	Render(source string) string
	Validate(source string) markdown.ValidationResult
}

type Service struct {
	store  Store
	md     Processor
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now as the source of timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, md Processor, opts ...Option) *Service {
	s := &Service{
		store:  store,
		md:     md,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

func validateNote(n *model.Note) error {
	err := validation.ValidateStruct(n,
		validation.Field(&n.Title,
			validation.Required.Error("title is required"),
			validation.By(func(value any) error {
				if strings.TrimSpace(value.(string)) == "" {
					return validation.NewError("notes.title_blank", "title must not be blank")
				}
				return nil
			}),
			validation.RuneLength(1, model.TitleMaxLength).
				Error(fmt.Sprintf("title must be at most %d characters", model.TitleMaxLength)),
		),
	)
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		return &ValidationError{Fields: fields}
	}
	return err
}

// ListNotes returns every note, most recently updated first.
func (s *Service) ListNotes() ([]model.Note, error) {
	return s.store.GetAll()
}

// CreateNote stores a new note. A nil title becomes model.DefaultTitle and
// nil content becomes empty.
func (s *Service) CreateNote(title, markdownContent *string) (*model.Note, error) {
	n := model.Note{Title: model.DefaultTitle}
	if title != nil {
		n.Title = *title
	}
	if markdownContent != nil {
		n.MarkdownContent = *markdownContent
	}
	if err := validateNote(&n); err != nil {
		return nil, err
	}

	now := s.timestamp()
	n.CreatedAt = now
	n.UpdatedAt = now

	created, err := s.store.Create(n)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	s.logger.Debug("note created", "id", created.ID)
	return created, nil
}

// GetNote returns model.ErrNotFound for unknown ids.
func (s *Service) GetNote(id int64) (*model.Note, error) {
	return s.store.GetByID(id)
}

// GetNoteAsHTML renders the note's markdown. Empty content yields "" without
// invoking the renderer.
func (s *Service) GetNoteAsHTML(id int64) (string, error) {
	n, err := s.store.GetByID(id)
	if err != nil {
		return "", err
	}
	if n.MarkdownContent == "" {
		return "", nil
	}
	return s.md.Render(n.MarkdownContent), nil
}

// LintMarkdown validates markdownText without touching the store. Nil or
// empty text is valid.
func (s *Service) LintMarkdown(markdownText *string) markdown.ValidationResult {
	if markdownText == nil || *markdownText == "" {
		return markdown.ValidationResult{IsValid: true, Message: markdown.MessageEmpty}
	}
	return s.md.Validate(*markdownText)
}

// UpdateNote replaces the fields that are non-nil and always refreshes
// updatedAt. A nil field keeps its stored value, so a field cannot be
// cleared by omission. If the write loses a race and the note is gone
// afterwards the result is model.ErrNotFound; any other conflict is
// returned wrapping model.ErrConflict.
func (s *Service) UpdateNote(id int64, title, markdownContent *string) (*model.Note, error) {
	if title != nil {
		probe := model.Note{Title: *title}
		if err := validateNote(&probe); err != nil {
			return nil, err
		}
	}

	now := s.timestamp()
	updated, err := s.store.Update(id, func(n *model.Note) error {
		if title != nil {
			n.Title = *title
		}
		if markdownContent != nil {
			n.MarkdownContent = *markdownContent
		}
		n.UpdatedAt = now
		return nil
	})
	if err == nil {
		s.logger.Debug("note updated", "id", id)
		return updated, nil
	}
	if !errors.Is(err, model.ErrConflict) {
		return nil, err
	}

	exists, existsErr := s.store.Exists(id)
	if existsErr != nil {
		return nil, fmt.Errorf("recheck note %d after conflict: %w", id, existsErr)
	}
	if !exists {
		return nil, model.ErrNotFound
	}
	s.logger.Warn("unresolved update conflict", "id", id)
	return nil, err
}

// DeleteNote removes the note permanently.
func (s *Service) DeleteNote(id int64) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.logger.Debug("note deleted", "id", id)
	return nil
}
