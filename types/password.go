package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

const redacted = "[REDACTED]"

// ErrPasswordTooLong is returned when a password exceeds what bcrypt accepts.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// PasswordHash is an opaque bcrypt hash. The zero value matches nothing.
//
// The raw hash only leaves the value through driver.Valuer, so it can be
// stored but not printed, logged or encoded by accident.
type PasswordHash struct {
	hash []byte
}

// HashPassword derives a salted hash of raw at the given bcrypt cost.
func HashPassword(raw string, cost int) (PasswordHash, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return PasswordHash{}, ErrPasswordTooLong
		}
		return PasswordHash{}, fmt.Errorf("hash password: %w", err)
	}
	return PasswordHash{hash: hashed}, nil
}

// Matches reports whether raw is the password this hash was derived from.
// The comparison is constant-time.
func (p PasswordHash) Matches(raw string) bool {
	if len(p.hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(p.hash, []byte(raw)) == nil
}

// IsZero reports whether the hash is unset.
func (p PasswordHash) IsZero() bool {
	return len(p.hash) == 0
}

func (p PasswordHash) String() string {
	return redacted
}

func (p PasswordHash) GoString() string {
	return "types.PasswordHash{" + redacted + "}"
}

func (p PasswordHash) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

func (p PasswordHash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

func (p PasswordHash) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Value implements driver.Valuer.
func (p PasswordHash) Value() (driver.Value, error) {
	if len(p.hash) == 0 {
		return nil, errors.New("empty password hash")
	}
	return string(p.hash), nil
}

// Scan implements sql.Scanner.
func (p *PasswordHash) Scan(src any) error {
	switch v := src.(type) {
	case string:
		p.hash = []byte(v)
	case []byte:
		p.hash = append([]byte(nil), v...)
	case nil:
		p.hash = nil
	default:
		return fmt.Errorf("cannot scan %T into PasswordHash", src)
	}
	return nil
}
