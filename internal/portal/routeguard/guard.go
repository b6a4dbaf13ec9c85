// Package routeguard decides, from session state alone, whether the portal
// client may show a view. It is advisory: the server's access guard is the
// enforcement point.
package routeguard

import (
	"strings"

	authdomain "eportfolio/backend/internal/domain/auth"
	"eportfolio/backend/internal/portal/session"
)

const (
	// LoginPath is the public sign-in view.
	LoginPath = "/login"
	// RootPath redirects to the sign-in view or the caller's dashboard.
	RootPath = "/"
)

// Kind is the outcome of a guard decision.
type Kind int

const (
	Allow Kind = iota
	Redirect
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Decision tells the caller what to render. Location is set only for Redirect.
type Decision struct {
	Kind     Kind
	Location string
}

func allow() Decision { return Decision{Kind: Allow} }

func redirect(location string) Decision {
	return Decision{Kind: Redirect, Location: location}
}

// Decide guards a view that requires role.
func Decide(required authdomain.Role, snap session.Snapshot) Decision {
	if !snap.IsAuthenticated {
		return redirect(LoginPath)
	}
	if role := snap.Role(); role != required {
		return redirect(authdomain.DefaultPath(role))
	}
	return allow()
}

// Resolve maps a view path to its required role by the first path segment and
// guards it. Redirects win over NotFound, so a guest asking for an unknown
// dashboard page is sent to sign in first.
func Resolve(path string, snap session.Snapshot) Decision {
	path = normalize(path)

	switch path {
	case LoginPath:
		return allow()
	case RootPath:
		if !snap.IsAuthenticated {
			return redirect(LoginPath)
		}
		return redirect(authdomain.DefaultPath(snap.Role()))
	}

	segment, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	required := authdomain.Role(segment)
	if !required.Valid() {
		return Decision{Kind: NotFound}
	}

	if d := Decide(required, snap); d.Kind != Allow {
		return d
	}
	if !known(required, path) {
		return Decision{Kind: NotFound}
	}
	return allow()
}

func known(role authdomain.Role, path string) bool {
	for _, entry := range authdomain.Navigation(role) {
		if entry.Path == path {
			return true
		}
	}
	return false
}

func normalize(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return RootPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return RootPath
		}
	}
	return path
}
