package menu

import (
	"context"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
)

// SyncFromRoutes walks the registered route table and creates the menu items
// that are missing: one header per owning component, one route-backed link
// per named GET route. Existing headers (by title) and links (by route name)
// are left untouched, so re-running only ever adds. Returns the number of
// items created.
func (s *Service) SyncFromRoutes(ctx context.Context, routes []*echo.Route) (int, error) {
	created := 0
	headers := make(map[string]*MenuItem)

	for _, route := range routes {
		if route.Method != "GET" || route.Name == "" {
			continue
		}
		component, local, ok := splitRouteName(route.Name)
		if !ok {
			continue
		}

		headerTitle := humanize(component)
		header, cached := headers[headerTitle]
		if !cached {
			existing, err := s.repo.FindHeaderByTitle(ctx, headerTitle)
			if err != nil {
				return created, err
			}
			if existing == nil {
				existing = &MenuItem{
					Title:         headerTitle,
					ItemType:      ItemTypeHeader,
					ShowInMenu:    true,
					IsActive:      true,
					AutoGenerated: true,
				}
				if err := s.repo.Create(ctx, existing); err != nil {
					return created, err
				}
				created++
			}
			header = existing
			headers[headerTitle] = header
		}

		existing, err := s.repo.FindLinkByRouteName(ctx, route.Name)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}

		target := route.Name
		item := &MenuItem{
			Title:         humanize(local),
			ItemType:      ItemTypeLink,
			LinkType:      LinkTypeRoute,
			LinkTarget:    &target,
			ParentID:      &header.ID,
			ShowInMenu:    true,
			IsActive:      true,
			AutoGenerated: true,
		}
		if err := s.repo.Create(ctx, item); err != nil {
			return created, err
		}
		created++
	}

	if created > 0 {
		s.cache.Bump(ctx)
	}
	s.logger.Info().Int("created", created).Msg("menu sync completed")
	return created, nil
}

// splitRouteName derives (component, local name) from a route name. It
// handles both short dotted names ("reception.list_services") and echo's
// default handler-derived names
// (".../internal/domain/reception.(*Handler).ListReceptions-fm").
func splitRouteName(name string) (string, string, bool) {
	name = strings.TrimSuffix(name, "-fm")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return "", "", false
	}
	component := parts[0]
	local := parts[len(parts)-1]
	if component == "" || local == "" {
		return "", "", false
	}
	return component, local, true
}

// humanize turns "list_services" or "ListServices" into "List Services".
func humanize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	var b strings.Builder
	var prev rune
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(prev) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	words := strings.Fields(b.String())
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
