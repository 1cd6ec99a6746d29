package access

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"librarydesk/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testResolver = StaticResolver{AdminToken: "admin-secret", StaffToken: "staff-secret"}

func TestStaticResolver(t *testing.T) {
	ctx := context.Background()

	role, err := testResolver.Resolve(ctx, "admin-secret")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	role, _ = testResolver.Resolve(ctx, "staff-secret")
	assert.Equal(t, RoleStaff, role)

	role, _ = testResolver.Resolve(ctx, "nope")
	assert.Equal(t, RoleNone, role)

	role, _ = StaticResolver{}.Resolve(ctx, "")
	assert.Equal(t, RoleNone, role, "empty configured token never matches")
}

func TestAuthorize(t *testing.T) {
	g := NewGuard(testResolver, "")
	ctx := context.Background()

	_, err := g.Authorize(ctx, "", RoleStaff)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = g.Authorize(ctx, "guess", RoleStaff)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = g.Authorize(ctx, "staff-secret", RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	role, err := g.Authorize(ctx, "admin-secret", RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)
}

func TestRequireMiddleware(t *testing.T) {
	g := NewGuard(testResolver, DefaultHeader)

	var seen Role
	r := chi.NewRouter()
	r.With(g.Require(RoleAdmin)).Delete("/delete_book/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = RoleFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	r.With(g.Require(RoleNone)).Get("/available_books", func(w http.ResponseWriter, r *http.Request) {
		seen = RoleFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		status int
		role   Role
	}{
		{"missing token", http.MethodDelete, "/delete_book/B101", "", http.StatusUnauthorized, RoleNone},
		{"unknown token", http.MethodDelete, "/delete_book/B101", "x", http.StatusUnauthorized, RoleNone},
		{"staff too low", http.MethodDelete, "/delete_book/B101", "staff-secret", http.StatusForbidden, RoleNone},
		{"admin ok", http.MethodDelete, "/delete_book/B101", "admin-secret", http.StatusOK, RoleAdmin},
		{"public anonymous", http.MethodGet, "/available_books", "", http.StatusOK, RoleNone},
		{"public staff", http.MethodGet, "/available_books", "staff-secret", http.StatusOK, RoleStaff},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = RoleNone
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set(DefaultHeader, tc.token)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.role, seen)
		})
	}
}
