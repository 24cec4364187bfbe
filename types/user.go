package types

import "time"

// Field limits shared by the forms and the database schema.
const (
	UsernameMaxLen  = 20
	PasswordMaxLen  = 100
	EmailMaxLen     = 50
	FirstNameMaxLen = 30
	LastNameMaxLen  = 30
)

// User represents an account in the system.
// Username is the primary identity and never changes once created.
type User struct {
	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// PasswordHash is the salted hash of the user's password.
	// It redacts itself when printed, logged or encoded.
	PasswordHash PasswordHash `json:"-" db:"password_hash"`

	// Email is the user's email address. Unique across all users.
	Email string `json:"email" db:"email"`

	// FirstName is the user's given name.
	FirstName string `json:"first_name" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"last_name" db:"last_name"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewUser returns an unsaved User for the given profile, hashing rawPassword
// at the given bcrypt cost.
func NewUser(username, rawPassword, email, firstName, lastName string, cost int) (User, error) {
	hash, err := HashPassword(rawPassword, cost)
	if err != nil {
		return User{}, err
	}
	return User{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
	}, nil
}

// FullName joins first and last name for display.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
