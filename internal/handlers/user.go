package handlers

import (
	"net/http"

	"github.com/noteshelf/noteshelf/internal/access"
	"github.com/noteshelf/noteshelf/internal/session"
)

// ShowUser renders the profile and notes of the logged-in user. Any other
// visitor is sent home with a message.
func (h *Handler) ShowUser(w http.ResponseWriter, r *http.Request) {
	d := access.RequireOwner(session.FromContext(r.Context()), pathUsername(r))
	if !d.Allowed {
		deny(w, r, d)
		return
	}

	user, err := h.users.GetOrNotFound(r.Context(), d.Username)
	if err != nil {
		h.lookupError(w, r, "load user", err)
		return
	}

	notes, err := h.notes.ListByOwner(r.Context(), user.Username)
	if err != nil {
		h.serverError(w, r, "list notes", err)
		return
	}

	h.render(w, r, http.StatusOK, pageUser, pageData{
		Title: user.Username,
		User:  user,
		Notes: notes,
	})
}

// DeleteUser removes the account together with its notes and logs out.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	d := access.RequireOwner(sess, pathUsername(r))
	if !d.Allowed {
		deny(w, r, d)
		return
	}

	_, csrfOK, err := parsePost(r)
	if err != nil || !csrfOK {
		http.Error(w, msgCSRF, http.StatusBadRequest)
		return
	}

	if err := h.users.Delete(r.Context(), d.Username); err != nil {
		h.lookupError(w, r, "delete user", err)
		return
	}

	h.logger.InfoContext(r.Context(), "user deleted", "username", d.Username)
	sess.Logout()
	sess.AddFlash("Account deleted")
	redirect(w, r, "/")
}
