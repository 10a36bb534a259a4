// Package access holds the request gates. Each gate is a pure predicate over
// the session; adapters in the HTTP layer turn a decision into a redirect or
// an error response.
package access

import "delive/storefront/internal/domain"

type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

type Guard func(sess *domain.Session) Decision

func RequiresSession(sess *domain.Session) Decision {
	if sess.Authenticated() {
		return Allow
	}
	return RedirectLogin
}

func RequiresAdmin(sess *domain.Session) Decision {
	if sess.Authenticated() && sess.User.Role == domain.RoleAdmin {
		return Allow
	}
	return Forbidden
}
