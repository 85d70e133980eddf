package router

import (
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/config"
	"github.com/iliyamo/venue-reservation/internal/handler"
)

// The revoke-all form of logout identifies the user from the bearer
// token, so it must be registered behind JWTAuth; the refresh-token form
// stays open.  Both registrations are asserted here so a route shuffle
// cannot silently strand one of them.
func TestAuthRoutesRegistered(t *testing.T) {
	e := echo.New()
	a := handler.NewAuthHandler(config.Config{}, nil, nil)
	RegisterAuth(e, a, "secret")

	want := map[string]bool{
		"POST /v1/auth/register": false,
		"POST /v1/auth/login":    false,
		"POST /v1/auth/refresh":  false,
		"POST /v1/auth/logout":   false,
		"POST /v1/logout":        false,
		"GET /v1/me":             false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, seen := range want {
		if !seen {
			t.Errorf("route %s not registered", key)
		}
	}
}
