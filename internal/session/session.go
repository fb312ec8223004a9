package session

import (
	"strings"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
)

// Session is the identity of the shopper or admin issuing one operation. It
// is passed explicitly to every service call.
type Session struct {
	UserID      string
	Email       string
	DisplayName string
}

// Anonymous reports whether no user is signed in.
func (s Session) Anonymous() bool {
	return strings.TrimSpace(s.UserID) == ""
}

// Require returns Unauthenticated for an anonymous session.
func (s Session) Require() error {
	if s.Anonymous() {
		return apperr.NewUnauthenticated()
	}
	return nil
}

// Name is the display name, falling back to the email.
func (s Session) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Email
}

// Admins is the set of emails allowed to run admin operations.
type Admins map[string]struct{}

// NewAdmins builds the set from a list of emails (case-insensitive).
func NewAdmins(emails []string) Admins {
	a := Admins{}
	for _, e := range emails {
		a[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return a
}

// Allows reports whether s may run admin operations.
func (a Admins) Allows(s Session) bool {
	if s.Anonymous() {
		return false
	}
	_, ok := a[strings.ToLower(s.Email)]
	return ok
}
