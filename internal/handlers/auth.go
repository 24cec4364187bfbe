package handlers

import (
	"errors"
	"net/http"

	"github.com/noteshelf/noteshelf/internal/forms"
	"github.com/noteshelf/noteshelf/internal/services"
	"github.com/noteshelf/noteshelf/internal/session"
)

const msgInvalidCredentials = "Invalid username or password."

// Index sends visitors to the registration page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/register", http.StatusFound)
}

// RegisterForm shows the sign-up form, or the user's page when already
// logged in.
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if username, ok := session.FromContext(r.Context()).CurrentUser(); ok {
		http.Redirect(w, r, userPath(username), http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, pageRegister, pageData{Title: "Register", Form: forms.Registration{}})
}

// Register creates the account, logs it in and redirects to its page.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	values, csrfOK, err := parsePost(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := forms.ParseRegistration(values)
	data := pageData{Title: "Register", Form: form}
	if !csrfOK {
		data.Errors = csrfErrors()
		h.render(w, r, http.StatusBadRequest, pageRegister, data)
		return
	}

	user, err := h.users.Register(r.Context(), form)
	if err != nil {
		if errs, ok := formErrors(err); ok {
			data.Errors = errs
			h.render(w, r, http.StatusOK, pageRegister, data)
			return
		}
		h.serverError(w, r, "register user", err)
		return
	}

	sess := session.FromContext(r.Context())
	sess.Login(user.Username)
	sess.AddFlash(user.Username + " account created")
	h.logger.InfoContext(r.Context(), "user registered", "username", user.Username)
	redirect(w, r, userPath(user.Username))
}

// LoginForm shows the login form, or the user's page when already logged in.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if username, ok := session.FromContext(r.Context()).CurrentUser(); ok {
		http.Redirect(w, r, userPath(username), http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, pageLogin, pageData{Title: "Log in", Form: forms.Login{}})
}

// Login checks the credentials and starts the session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	values, csrfOK, err := parsePost(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := forms.ParseLogin(values)
	data := pageData{Title: "Log in", Form: forms.Login{Username: form.Username}}
	if !csrfOK {
		data.Errors = csrfErrors()
		h.render(w, r, http.StatusBadRequest, pageLogin, data)
		return
	}
	if errs := form.Validate(); len(errs) > 0 {
		data.Errors = errs
		h.render(w, r, http.StatusOK, pageLogin, data)
		return
	}

	user, err := h.users.Authenticate(r.Context(), form.Username, form.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		h.logger.InfoContext(r.Context(), "failed login", "username", form.Username)
		data.Errors = forms.ValidationErrors{}
		data.Errors.Add(formErrorKey, msgInvalidCredentials)
		h.render(w, r, http.StatusOK, pageLogin, data)
		return
	}
	if err != nil {
		h.serverError(w, r, "authenticate user", err)
		return
	}

	sess := session.FromContext(r.Context())
	sess.Login(user.Username)
	sess.AddFlash("Welcome back")
	redirect(w, r, userPath(user.Username))
}

// Logout clears the session. A bad CSRF token leaves the session untouched.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	_, csrfOK, err := parsePost(r)
	if err != nil || !csrfOK {
		http.Error(w, msgCSRF, http.StatusBadRequest)
		return
	}

	sess := session.FromContext(r.Context())
	sess.Logout()
	sess.AddFlash("Logged out")
	redirect(w, r, "/")
}
