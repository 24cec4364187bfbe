// Package access decides whether the current session may act on a resource.
package access

import "github.com/noteshelf/noteshelf/internal/session"

// Denial messages shown to the user as flashes.
const (
	MsgLoginRequired = "You must be logged in to view!"
	MsgNotOwner      = "You can only view your own page."
)

// Decision is the outcome of an access check. Callers must inspect Allowed;
// a denied Decision carries the flash message to show.
type Decision struct {
	Allowed  bool
	Username string
	Reason   string
}

// RequireAuthenticated allows any logged-in session.
func RequireAuthenticated(s *session.Session) Decision {
	username, ok := s.CurrentUser()
	if !ok {
		return Decision{Reason: MsgLoginRequired}
	}
	return Decision{Allowed: true, Username: username}
}

// RequireOwner allows only the session whose identity is exactly owner.
// Anonymous sessions are denied before the identity comparison.
func RequireOwner(s *session.Session, owner string) Decision {
	d := RequireAuthenticated(s)
	if !d.Allowed {
		return d
	}
	if d.Username != owner {
		return Decision{Username: d.Username, Reason: MsgNotOwner}
	}
	return d
}
