package forms

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteshelf/noteshelf/types"
)

func validRegistration() Registration {
	return Registration{
		Username:  "alice",
		Password:  "secret123",
		Email:     "alice@x.com",
		FirstName: "Alice",
		LastName:  "A",
	}
}

func TestRegistration_Validate(t *testing.T) {
	require.Empty(t, validRegistration().Validate())

	tests := []struct {
		name   string
		mutate func(*Registration)
		field  string
	}{
		{"missing username", func(r *Registration) { r.Username = "" }, "username"},
		{"username too long", func(r *Registration) { r.Username = strings.Repeat("u", 21) }, "username"},
		{"username with slash", func(r *Registration) { r.Username = "a/b" }, "username"},
		{"username with space", func(r *Registration) { r.Username = "a b" }, "username"},
		{"username with percent", func(r *Registration) { r.Username = "a%2Fb" }, "username"},
		{"username non-ascii", func(r *Registration) { r.Username = "zoë" }, "username"},
		{"username dot segment", func(r *Registration) { r.Username = ".." }, "username"},
		{"missing password", func(r *Registration) { r.Password = "" }, "password"},
		{"password too long", func(r *Registration) { r.Password = strings.Repeat("p", 101) }, "password"},
		{"password over bcrypt limit", func(r *Registration) { r.Password = strings.Repeat("p", 80) }, "password"},
		{"missing email", func(r *Registration) { r.Email = "" }, "email"},
		{"email without at", func(r *Registration) { r.Email = "alice.x.com" }, "email"},
		{"email with display name", func(r *Registration) { r.Email = "Alice <alice@x.com>" }, "email"},
		{"email without domain dot", func(r *Registration) { r.Email = "alice@localhost" }, "email"},
		{"email too long", func(r *Registration) { r.Email = strings.Repeat("a", 45) + "@x.com" }, "email"},
		{"first name too long", func(r *Registration) { r.FirstName = strings.Repeat("f", 31) }, "first_name"},
		{"missing last name", func(r *Registration) { r.LastName = "" }, "last_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validRegistration()
			tt.mutate(&form)
			errs := form.Validate()
			assert.NotEmpty(t, errs.Get(tt.field), "errors: %v", errs)
			assert.Error(t, errs.Err())
		})
	}
}

func TestRegistration_LimitsCountCharacters(t *testing.T) {
	form := validRegistration()
	form.FirstName = strings.Repeat("é", types.FirstNameMaxLen)
	assert.Empty(t, form.Validate())
}

func TestRegistration_AcceptsUsernamePunctuation(t *testing.T) {
	for _, name := range []string{"alice.smith", "bob_2", "carol-x", "D.E_F-9"} {
		form := validRegistration()
		form.Username = name
		assert.Empty(t, form.Validate(), name)
	}
}

func TestParseRegistration_TrimsExceptPassword(t *testing.T) {
	form := ParseRegistration(url.Values{
		"username":   {"  alice "},
		"password":   {" secret "},
		"email":      {" alice@x.com"},
		"first_name": {"Alice "},
		"last_name":  {" A"},
	})
	assert.Equal(t, Registration{
		Username:  "alice",
		Password:  " secret ",
		Email:     "alice@x.com",
		FirstName: "Alice",
		LastName:  "A",
	}, form)
}

func TestLogin_Validate(t *testing.T) {
	assert.Empty(t, Login{Username: "alice", Password: "secret123"}.Validate())

	errs := Login{}.Validate()
	assert.NotEmpty(t, errs.Get("username"))
	assert.NotEmpty(t, errs.Get("password"))

	errs = Login{Username: strings.Repeat("a", 21), Password: "x"}.Validate()
	assert.NotEmpty(t, errs.Get("username"))
}

func TestNoteInput_Validate(t *testing.T) {
	assert.Empty(t, NoteInput{Title: "Groceries", Content: "milk"}.Validate())

	errs := NoteInput{Title: strings.Repeat("t", 101)}.Validate()
	assert.NotEmpty(t, errs.Get("title"))
	assert.NotEmpty(t, errs.Get("content"))
}

func TestParseNoteInput_IgnoresOwner(t *testing.T) {
	form := ParseNoteInput(url.Values{
		"title":   {"Title"},
		"content": {"Body"},
		"owner":   {"mallory"},
	})
	assert.Equal(t, NoteInput{Title: "Title", Content: "Body"}, form)
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{}
	assert.NoError(t, errs.Err())

	errs.Add("username", "This field is required.")
	errs.Add("email", "Invalid email address.")
	assert.Equal(t, "validation failed: email: Invalid email address.; username: This field is required.", errs.Error())
}
