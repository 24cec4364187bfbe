package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/noteshelf/noteshelf/internal/access"
	"github.com/noteshelf/noteshelf/internal/forms"
	"github.com/noteshelf/noteshelf/internal/session"
	"github.com/noteshelf/noteshelf/internal/store"
)

const (
	formFieldCSRF = "csrf_token"
	formErrorKey  = "form"

	msgCSRF = "Invalid request, please try again."
)

// conflictMessages maps the conflicting column to the message shown next to
// the form field.
var conflictMessages = map[string]string{
	"username": "Username already taken.",
	"email":    "Email already registered.",
}

// pathUsername returns the {username} route parameter. chi matches against
// the escaped path, so the value is unescaped before use.
func pathUsername(r *http.Request) string {
	raw := chi.URLParam(r, "username")
	username, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return username
}

func userPath(username string) string {
	return "/users/" + url.PathEscape(username)
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// deny sends the user home with the decision's message.
func deny(w http.ResponseWriter, r *http.Request, d access.Decision) {
	session.FromContext(r.Context()).AddFlash(d.Reason)
	redirect(w, r, "/")
}

// parsePost parses the form body and checks its CSRF token.
func parsePost(r *http.Request) (url.Values, bool, error) {
	if err := r.ParseForm(); err != nil {
		return nil, false, err
	}
	ok := session.FromContext(r.Context()).ValidCSRF(r.PostForm.Get(formFieldCSRF))
	return r.PostForm, ok, nil
}

func csrfErrors() forms.ValidationErrors {
	errs := forms.ValidationErrors{}
	errs.Add(formErrorKey, msgCSRF)
	return errs
}

// formErrors converts a service error into messages for the form, reporting
// false when err is not a user-correctable input problem.
func formErrors(err error) (forms.ValidationErrors, bool) {
	var verrs forms.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}

	var conflict *store.ConflictError
	if errors.As(err, &conflict) {
		errs := forms.ValidationErrors{}
		msg, ok := conflictMessages[conflict.Field]
		if !ok {
			msg = "Already in use."
		}
		errs.Add(conflict.Field, msg)
		return errs, true
	}
	return nil, false
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, pageNotFound, pageData{Title: "Not found"})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg, "path", r.URL.Path, "error", err)
	h.render(w, r, http.StatusInternalServerError, pageError, pageData{Title: "Error"})
}

// lookupError renders 404 for store.ErrNotFound and 500 otherwise.
func (h *Handler) lookupError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		h.NotFound(w, r)
		return
	}
	h.serverError(w, r, msg, err)
}
