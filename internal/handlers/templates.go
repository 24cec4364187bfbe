package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/noteshelf/noteshelf/internal/forms"
	"github.com/noteshelf/noteshelf/internal/session"
	"github.com/noteshelf/noteshelf/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page templates, each rendered inside templates/base.html.
const (
	pageRegister = "register.html"
	pageLogin    = "login.html"
	pageUser     = "user.html"
	pageNoteForm = "note_form.html"
	pageNote     = "note.html"
	pageNotFound = "not_found.html"
	pageError    = "error.html"
)

var pages = []string{pageRegister, pageLogin, pageUser, pageNoteForm, pageNote, pageNotFound, pageError}

// pageData is the value every template executes against. Fields a page does
// not use are left zero.
type pageData struct {
	Title       string
	CurrentUser string
	CSRFToken   string
	Flashes     []string
	Errors      forms.ValidationErrors
	Form        any
	User        types.User
	Notes       []types.Note
	Note        types.Note
}

func parseTemplates() (map[string]*template.Template, error) {
	parsed := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, err
		}
		parsed[page] = tmpl
	}
	return parsed, nil
}

// render executes page into a buffer first so a template failure still
// produces a clean 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	sess := session.FromContext(r.Context())
	data.CurrentUser, _ = sess.CurrentUser()
	data.CSRFToken = sess.CSRFToken()
	data.Flashes = sess.PopFlashes()

	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.ErrorContext(r.Context(), "render template", "page", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
