// Package forms holds the HTML form payloads accepted by the web handlers
// together with their validation rules. Validation is pure: it never touches
// the database, so uniqueness is reported separately by the store.
package forms

import (
	"net/mail"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/noteshelf/noteshelf/types"
)

// bcrypt ignores everything past 72 bytes, so longer passwords are rejected.
const maxPasswordBytes = 72

// ValidationErrors maps a form field name to its error messages.
type ValidationErrors map[string][]string

// Add records msg against field.
func (v ValidationErrors) Add(field, msg string) {
	v[field] = append(v[field], msg)
}

// Get returns the messages for field.
func (v ValidationErrors) Get(field string) []string {
	return v[field]
}

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(v[field], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns v as an error, or nil when there are no messages.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Registration is the payload of the sign-up form.
type Registration struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}

// ParseRegistration reads a Registration from submitted form values.
func ParseRegistration(values url.Values) Registration {
	return Registration{
		Username:  strings.TrimSpace(values.Get("username")),
		Password:  values.Get("password"),
		Email:     strings.TrimSpace(values.Get("email")),
		FirstName: strings.TrimSpace(values.Get("first_name")),
		LastName:  strings.TrimSpace(values.Get("last_name")),
	}
}

func (f Registration) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if required(errs, "username", f.Username, types.UsernameMaxLen) && !validUsername(f.Username) {
		errs.Add("username", "Username may only contain letters, digits, dots, underscores and hyphens.")
	}
	password(errs, f.Password)
	if required(errs, "email", f.Email, types.EmailMaxLen) && !validEmail(f.Email) {
		errs.Add("email", "Invalid email address.")
	}
	required(errs, "first_name", f.FirstName, types.FirstNameMaxLen)
	required(errs, "last_name", f.LastName, types.LastNameMaxLen)
	return errs
}

// Login is the payload of the login form.
type Login struct {
	Username string
	Password string
}

// ParseLogin reads a Login from submitted form values.
func ParseLogin(values url.Values) Login {
	return Login{
		Username: strings.TrimSpace(values.Get("username")),
		Password: values.Get("password"),
	}
}

func (f Login) Validate() ValidationErrors {
	errs := ValidationErrors{}
	required(errs, "username", f.Username, types.UsernameMaxLen)
	if f.Password == "" {
		errs.Add("password", "This field is required.")
	} else if utf8.RuneCountInString(f.Password) > types.PasswordMaxLen {
		errs.Add("password", tooLong(types.PasswordMaxLen))
	}
	return errs
}

// NoteInput is the payload of the add-note form. It deliberately has no owner
// field: the owner always comes from the session.
type NoteInput struct {
	Title   string
	Content string
}

// ParseNoteInput reads a NoteInput from submitted form values.
func ParseNoteInput(values url.Values) NoteInput {
	return NoteInput{
		Title:   strings.TrimSpace(values.Get("title")),
		Content: strings.TrimSpace(values.Get("content")),
	}
}

func (f NoteInput) Validate() ValidationErrors {
	errs := ValidationErrors{}
	required(errs, "title", f.Title, types.TitleMaxLen)
	if f.Content == "" {
		errs.Add("content", "This field is required.")
	}
	return errs
}

// required checks presence and maximum length, reporting whether value
// passed both.
func required(errs ValidationErrors, field, value string, maxLen int) bool {
	if value == "" {
		errs.Add(field, "This field is required.")
		return false
	}
	if utf8.RuneCountInString(value) > maxLen {
		errs.Add(field, tooLong(maxLen))
		return false
	}
	return true
}

func password(errs ValidationErrors, value string) {
	switch {
	case value == "":
		errs.Add("password", "This field is required.")
	case utf8.RuneCountInString(value) > types.PasswordMaxLen:
		errs.Add("password", tooLong(types.PasswordMaxLen))
	case len(value) > maxPasswordBytes:
		errs.Add("password", "Password is too long.")
	}
}

// validUsername limits names to characters that survive a URL path segment
// unescaped.
func validUsername(value string) bool {
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			return false
		}
	}
	return value != "." && value != ".."
}

// validEmail accepts a bare address such as "alice@example.com".
func validEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return false
	}
	at := strings.LastIndex(value, "@")
	return at > 0 && strings.Contains(value[at+1:], ".")
}

func tooLong(maxLen int) string {
	return "Field cannot be longer than " + strconv.Itoa(maxLen) + " characters."
}
