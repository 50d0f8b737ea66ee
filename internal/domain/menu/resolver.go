package menu

import (
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
)

// EchoResolver resolves named routes against the echo route table. The table
// is snapshotted lazily on first use, so the resolver can be constructed
// during wiring before every handler has registered its routes.
type EchoResolver struct {
	echo *echo.Echo

	once   sync.Once
	byName map[string]string // route name -> path pattern
	byPath map[string]string // static path -> route name
	params []paramRoute
}

type paramRoute struct {
	name     string
	segments []string
}

func NewEchoResolver(e *echo.Echo) *EchoResolver {
	return &EchoResolver{echo: e}
}

func (r *EchoResolver) snapshot() {
	r.once.Do(func() {
		r.byName = make(map[string]string)
		r.byPath = make(map[string]string)
		for _, route := range r.echo.Routes() {
			if route.Name == "" || route.Method != "GET" {
				continue
			}
			r.byName[route.Name] = route.Path
			if strings.Contains(route.Path, ":") {
				r.params = append(r.params, paramRoute{name: route.Name, segments: strings.Split(route.Path, "/")})
			} else {
				r.byPath[route.Path] = route.Name
			}
		}
	})
}

// Reverse builds the concrete path for a named route, substituting ":param"
// segments from params. It reports false when the route is unknown or a
// parameter is missing, so callers can drop the link instead of rendering a
// broken one.
func (r *EchoResolver) Reverse(name string, params map[string]string) (string, bool) {
	r.snapshot()
	pattern, ok := r.byName[name]
	if !ok {
		return "", false
	}
	if !strings.Contains(pattern, ":") {
		return pattern, true
	}
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		value, ok := params[seg[1:]]
		if !ok || value == "" {
			return "", false
		}
		segments[i] = value
	}
	return strings.Join(segments, "/"), true
}

// RouteName maps a request path back to its registered route name.
func (r *EchoResolver) RouteName(path string) (string, bool) {
	r.snapshot()
	if name, ok := r.byPath[path]; ok {
		return name, true
	}
	parts := strings.Split(path, "/")
	for _, route := range r.params {
		if matchSegments(route.segments, parts) {
			return route.name, true
		}
	}
	return "", false
}

func matchSegments(pattern, parts []string) bool {
	if len(pattern) != len(parts) {
		return false
	}
	for i, seg := range pattern {
		if strings.HasPrefix(seg, ":") {
			if parts[i] == "" {
				return false
			}
			continue
		}
		if seg != parts[i] {
			return false
		}
	}
	return true
}
