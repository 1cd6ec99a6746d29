// Package access maps caller credentials to roles and gates routes on them.
package access

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"librarydesk/internal/domain"
	"librarydesk/internal/httpx"
)

// Role is the privilege level of a caller. Higher values include lower ones.
type Role int

const (
	RoleNone Role = iota
	RoleStaff
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleStaff:
		return "staff"
	case RoleAdmin:
		return "admin"
	default:
		return "none"
	}
}

// DefaultHeader carries the shared-secret token.
const DefaultHeader = "X-Library-Token"

// Resolver turns an opaque credential into a role. RoleNone with a nil error
// means the credential is unknown.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (Role, error)
}

// StaticResolver compares against two fixed tokens.
type StaticResolver struct {
	AdminToken string
	StaffToken string
}

func (s StaticResolver) Resolve(_ context.Context, credential string) (Role, error) {
	if tokenMatches(credential, s.AdminToken) {
		return RoleAdmin, nil
	}
	if tokenMatches(credential, s.StaffToken) {
		return RoleStaff, nil
	}
	return RoleNone, nil
}

func tokenMatches(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// Guard enforces minimum roles.
type Guard struct {
	resolver Resolver
	header   string
}

// NewGuard builds a guard reading credentials from header.
func NewGuard(resolver Resolver, header string) *Guard {
	if header == "" {
		header = DefaultHeader
	}
	return &Guard{resolver: resolver, header: header}
}

// Authorize resolves credential and checks it against min.
func (g *Guard) Authorize(ctx context.Context, credential string, min Role) (Role, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return RoleNone, domain.Errorf(domain.ErrUnauthorized, "missing credential")
	}
	role, err := g.resolver.Resolve(ctx, credential)
	if err != nil {
		return RoleNone, err
	}
	if role == RoleNone {
		return RoleNone, domain.Errorf(domain.ErrUnauthorized, "invalid credential")
	}
	if role < min {
		return role, domain.Errorf(domain.ErrForbidden, "%s role required", min)
	}
	return role, nil
}

// Require is middleware that rejects callers below min. RoleNone lets every
// request through but still records a valid caller's role.
func (g *Guard) Require(min Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := r.Header.Get(g.header)
			if min == RoleNone {
				role := RoleNone
				if credential != "" {
					role, _ = g.resolver.Resolve(r.Context(), strings.TrimSpace(credential))
				}
				next.ServeHTTP(w, r.WithContext(WithRole(r.Context(), role)))
				return
			}

			role, err := g.Authorize(r.Context(), credential, min)
			if err != nil {
				httpx.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithRole(r.Context(), role)))
		})
	}
}

type ctxKey struct{}

// WithRole stores the caller's role on ctx.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, ctxKey{}, role)
}

// RoleFrom returns the role stored by Require, RoleNone if absent.
func RoleFrom(ctx context.Context) Role {
	role, _ := ctx.Value(ctxKey{}).(Role)
	return role
}
