package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/noteshelf/noteshelf/internal/access"
	"github.com/noteshelf/noteshelf/internal/forms"
	"github.com/noteshelf/noteshelf/internal/session"
	"github.com/noteshelf/noteshelf/internal/store"
)

// NoteForm shows the add-note form to the page owner.
func (h *Handler) NoteForm(w http.ResponseWriter, r *http.Request) {
	d := access.RequireOwner(session.FromContext(r.Context()), pathUsername(r))
	if !d.Allowed {
		deny(w, r, d)
		return
	}
	h.render(w, r, http.StatusOK, pageNoteForm, pageData{Title: "New note", Form: forms.NoteInput{}})
}

// AddNote stores a note owned by the logged-in user. The owner is taken from
// the session; no submitted field can change it.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	d := access.RequireOwner(sess, pathUsername(r))
	if !d.Allowed {
		deny(w, r, d)
		return
	}

	values, csrfOK, err := parsePost(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := forms.ParseNoteInput(values)
	data := pageData{Title: "New note", Form: form}
	if !csrfOK {
		data.Errors = csrfErrors()
		h.render(w, r, http.StatusBadRequest, pageNoteForm, data)
		return
	}

	if _, err := h.notes.Create(r.Context(), d.Username, form); err != nil {
		if errs, ok := formErrors(err); ok {
			data.Errors = errs
			h.render(w, r, http.StatusOK, pageNoteForm, data)
			return
		}
		h.lookupError(w, r, "create note", err)
		return
	}

	sess.AddFlash("Note added")
	redirect(w, r, userPath(d.Username))
}

// ShowNote renders a single note to its owner.
func (h *Handler) ShowNote(w http.ResponseWriter, r *http.Request) {
	d := access.RequireOwner(session.FromContext(r.Context()), pathUsername(r))
	if !d.Allowed {
		deny(w, r, d)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "noteID"))
	if err != nil || id < 1 {
		h.NotFound(w, r)
		return
	}

	note, err := h.notes.Get(r.Context(), id)
	if err == nil && note.Owner != d.Username {
		err = store.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.NotFound(w, r)
			return
		}
		h.serverError(w, r, "load note", err)
		return
	}

	h.render(w, r, http.StatusOK, pageNote, pageData{Title: note.Title, Note: note})
}
