package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/marknotes/internal/markdown"
	"github.com/dukerupert/marknotes/internal/model"
	"github.com/dukerupert/marknotes/internal/notes"
	"github.com/dukerupert/marknotes/internal/websocket"
)

type NoteHandler struct {
	notes  *notes.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewNoteHandler(svc *notes.Service, hub *websocket.Hub, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{notes: svc, hub: hub, logger: logger}
}

func (h *NoteHandler) publish(e websocket.Event) {
	if h.hub != nil {
		h.hub.Publish(e)
	}
}

// noteRequest uses pointers so an omitted or null field can be told apart
// from an empty one.
type noteRequest struct {
	Title           *string `json:"title"`
	MarkdownContent *string `json:"markdownContent"`
}

type lintRequest struct {
	MarkdownText *string `json:"markdownText"`
}

func notFoundMessage(id int64) string {
	return fmt.Sprintf("Note with ID %d not found.", id)
}

// writeInvalid answers 400 for a title that failed validation.
func writeInvalid(w http.ResponseWriter, err error) bool {
	var verr *notes.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "invalid note",
		"fields": verr.FieldMessages(),
	})
	return true
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.notes.ListNotes()
	if errors.Is(err, model.ErrStorageMissing) {
		writeError(w, http.StatusNotFound, "Notes table is not found.")
		return
	}
	if err != nil {
		h.logger.Error("failed to list notes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}
	if list == nil {
		list = []model.Note{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	note, err := h.notes.CreateNote(req.Title, req.MarkdownContent)
	if writeInvalid(w, err) {
		return
	}
	if err != nil {
		h.logger.Error("failed to create note", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create note")
		return
	}

	h.publish(websocket.NoteCreated(note))

	w.Header().Set("Location", fmt.Sprintf("/api/notes/%d", note.ID))
	writeJSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	note, err := h.notes.GetNote(id)
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFoundMessage(id))
		return
	}
	if err != nil {
		h.logger.Error("failed to get note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get note")
		return
	}

	body, err := json.Marshal(note)
	if err != nil {
		h.logger.Error("failed to encode note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get note")
		return
	}
	if notModified(w, r, body) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *NoteHandler) HTML(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	out, err := h.notes.GetNoteAsHTML(id)
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFoundMessage(id))
		return
	}
	if err != nil {
		h.logger.Error("failed to render note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render note")
		return
	}

	body := []byte(out)
	if notModified(w, r, body) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *NoteHandler) Lint(w http.ResponseWriter, r *http.Request) {
	var req lintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result := h.notes.LintMarkdown(req.MarkdownText)
	if !result.IsValid {
		writeJSON(w, http.StatusBadRequest, result)
		return
	}
	writeJSON(w, http.StatusOK, markdown.ValidationResult{IsValid: true, Message: result.Message})
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	note, err := h.notes.UpdateNote(id, req.Title, req.MarkdownContent)
	if writeInvalid(w, err) {
		return
	}
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFoundMessage(id))
		return
	}
	if err != nil {
		h.logger.Error("failed to update note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update note")
		return
	}

	h.publish(websocket.NoteUpdated(note))

	w.WriteHeader(http.StatusNoContent)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	err = h.notes.DeleteNote(id)
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFoundMessage(id))
		return
	}
	if err != nil {
		h.logger.Error("failed to delete note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete note")
		return
	}

	h.publish(websocket.NoteDeleted(id))

	w.WriteHeader(http.StatusNoContent)
}
