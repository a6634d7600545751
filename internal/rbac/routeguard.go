package rbac

import (
	"log/slog"
	"net/http"

	"github.com/wirebird/crm/internal/auth"
	"github.com/wirebird/crm/internal/transport/middleware"
)

// Decision is the outcome of a route authorization check.
type Decision int

const (
	Allow Decision = iota
	RedirectToLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectHome:
		return "redirect_home"
	}
	return "unknown"
}

// AuthorizeRoute decides whether a session may enter a route. The order of
// checks is load-bearing: the Admin bypass runs before role-list membership,
// and a nil allowedRoles means "authenticated-only", not "no access".
func AuthorizeRoute(user *auth.User, allowedRoles []Role) Decision {
	if user == nil {
		return RedirectToLogin
	}

	role := ResolveRole(user.Role)
	if role == RoleAdmin {
		return Allow
	}

	if allowedRoles == nil {
		return Allow
	}

	for _, allowed := range allowedRoles {
		if role == allowed {
			return Allow
		}
	}

	return RedirectHome
}

// RouteGuard exposes AuthorizeRoute as chi middleware. RedirectToLogin maps
// to 401 and RedirectHome to 403, each with a redirect hint so the SPA knows
// where to send the user.
type RouteGuard struct {
	logger *slog.Logger
}

func NewRouteGuard(logger *slog.Logger) *RouteGuard {
	return &RouteGuard{logger: logger}
}

// RequireAuthenticated guards a route with no role restriction.
func (g *RouteGuard) RequireAuthenticated() func(http.Handler) http.Handler {
	return g.require(nil)
}

// RequireRoles guards a route declaring an allowedRoles set. Admin always
// passes regardless of the list.
func (g *RouteGuard) RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	if roles == nil {
		roles = []Role{}
	}
	return g.require(roles)
}

func (g *RouteGuard) require(allowedRoles []Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := auth.UserFromContext(r.Context())

			decision := AuthorizeRoute(user, allowedRoles)
			middleware.RecordRouteGuardDecision(decision.String())

			switch decision {
			case Allow:
				next.ServeHTTP(w, r)
			case RedirectToLogin:
				g.logger.Warn("route guard: unauthenticated", "path", r.URL.Path)
				writeGuardResponse(w, http.StatusUnauthorized, "/login")
			case RedirectHome:
				g.logger.Warn("route guard: role not allowed",
					"path", r.URL.Path,
					"user_id", user.ID,
					"role", user.Role)
				writeGuardResponse(w, http.StatusForbidden, "/")
			}
		})
	}
}

func writeGuardResponse(w http.ResponseWriter, status int, redirect string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"redirect":"` + redirect + `"}`))
}
