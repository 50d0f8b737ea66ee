package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller for a request: identity plus the role
// and permission codes the menu builder and fan-out admission checks consume.
type Principal struct {
	ID          string
	Name        string
	TenantID    string
	Roles       []string
	Permissions []string
	Superuser   bool
}

// Authenticated reports whether this principal carries a real identity.
// The zero Principal is the anonymous guest.
func (p Principal) Authenticated() bool {
	return p.ID != ""
}

// HasRole reports whether the principal holds the given role code.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal holds at least one of the codes.
func (p Principal) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// HasPermission reports whether the principal holds the given capability code.
func (p Principal) HasPermission(perm string) bool {
	for _, c := range p.Permissions {
		if c == perm {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the principal holds at least one of the codes.
func (p Principal) HasAnyPermission(perms ...string) bool {
	for _, c := range perms {
		if p.HasPermission(c) {
			return true
		}
	}
	return false
}

type Claims struct {
	jwt.RegisteredClaims
	Name        string   `json:"name"`
	TenantID    string   `json:"tenant_id"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Superuser   bool     `json:"superuser"`
}

// JWTMiddleware authenticates requests with an HMAC-signed bearer token and
// stores the resulting Principal on the request context. Requests without an
// Authorization header proceed as the anonymous guest; handlers that need an
// identity gate on RequireRole / RequirePermission instead.
func JWTMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			p := Principal{
				ID:          claims.Subject,
				Name:        claims.Name,
				TenantID:    claims.TenantID,
				Roles:       claims.Roles,
				Permissions: claims.Permissions,
				Superuser:   claims.Superuser,
			}

			// Expose the tenant claim for the tenant middleware.
			c.Set("jwt_tenant_id", claims.TenantID)

			ctx := context.WithValue(c.Request().Context(), principalKey, p)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// DevAuthMiddleware is a permissive middleware for development that grants
// unauthenticated requests a superuser principal.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				c.Set("jwt_tenant_id", "default")
				p := Principal{
					ID:        "dev-user",
					Name:      "Dev User",
					TenantID:  "default",
					Roles:     []string{"admin"},
					Superuser: true,
				}
				ctx := context.WithValue(c.Request().Context(), principalKey, p)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

// PrincipalFromContext returns the request principal, or the anonymous guest
// when the request carried no credentials.
func PrincipalFromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey).(Principal)
	return p
}

// WithPrincipal returns a context carrying the given principal. Used by tests
// and by the websocket admission path.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
