package menu

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// TreeNode is what templates and SPA clients render. URL is nil for
// structural items and for named routes that fail to reverse-resolve, so a
// dead link is skipped rather than rendered with a placeholder.
type TreeNode struct {
	ID         uuid.UUID   `json:"id"`
	Title      string      `json:"title"`
	Type       string      `json:"type"`
	URL        *string     `json:"url"`
	Icon       *string     `json:"icon,omitempty"`
	Badge      *string     `json:"badge,omitempty"`
	CSSClass   *string     `json:"css_class,omitempty"`
	ShowInMenu bool        `json:"show_in_menu"`
	Active     bool        `json:"active"`
	Children   []*TreeNode `json:"children"`
}

// URLResolver turns named routes into concrete paths and maps a request path
// back to its route name for highlight matching.
type URLResolver interface {
	Reverse(name string, params map[string]string) (string, bool)
	RouteName(path string) (string, bool)
}

// Builder constructs permission-filtered navigation trees.
type Builder struct {
	resolver URLResolver
}

func NewBuilder(resolver URLResolver) *Builder {
	return &Builder{resolver: resolver}
}

// BuildTree partitions the flat item set into a tree, drops everything the
// principal cannot access, prunes empty headers and dividers, and marks the
// active trail for the current path.
//
// Access semantics: a superuser sees everything; link items with no
// configured roles or permissions are public; otherwise the principal must
// be authenticated and match at least one required role (when any are set)
// and at least one required permission (when any are set).
func (b *Builder) BuildTree(items []*MenuItem, principal auth.Principal, currentPath string) []*TreeNode {
	roots, children := partition(items)

	currentRoute := ""
	if b.resolver != nil {
		if name, ok := b.resolver.RouteName(currentPath); ok {
			currentRoute = name
		}
	}

	return b.buildLevel(roots, children, principal, currentPath, currentRoute)
}

func partition(items []*MenuItem) ([]*MenuItem, map[uuid.UUID][]*MenuItem) {
	var roots []*MenuItem
	children := make(map[uuid.UUID][]*MenuItem)
	for _, item := range items {
		if item.ParentID == nil {
			roots = append(roots, item)
		} else {
			children[*item.ParentID] = append(children[*item.ParentID], item)
		}
	}
	sort.SliceStable(roots, func(i, j int) bool { return roots[i].Order < roots[j].Order })
	for _, siblings := range children {
		sort.SliceStable(siblings, func(i, j int) bool { return siblings[i].Order < siblings[j].Order })
	}
	return roots, children
}

func (b *Builder) buildLevel(items []*MenuItem, children map[uuid.UUID][]*MenuItem, principal auth.Principal, currentPath, currentRoute string) []*TreeNode {
	var nodes []*TreeNode
	for _, item := range items {
		if !item.IsActive || !item.ShowInMenu {
			continue
		}

		childNodes := b.buildLevel(children[item.ID], children, principal, currentPath, currentRoute)

		if item.ItemType == ItemTypeHeader || item.ItemType == ItemTypeDivider {
			// Structural items survive only with accessible children.
			if len(childNodes) == 0 {
				continue
			}
		} else if !hasAccess(item, principal) {
			continue
		}

		node := &TreeNode{
			ID:         item.ID,
			Title:      item.Title,
			Type:       item.ItemType,
			URL:        b.resolveURL(item),
			Icon:       item.Icon,
			Badge:      item.Badge,
			CSSClass:   item.CSSClass,
			ShowInMenu: item.ShowInMenu,
			Active:     b.isActive(item, currentPath, currentRoute),
			Children:   childNodes,
		}
		for _, child := range childNodes {
			if child.Active {
				node.Active = true
				break
			}
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func hasAccess(item *MenuItem, principal auth.Principal) bool {
	if principal.Superuser {
		return true
	}
	if item.Unrestricted() {
		return true
	}
	if !principal.Authenticated() {
		return false
	}
	if len(item.RequiredRoles) > 0 && !principal.HasAnyRole(item.RequiredRoles...) {
		return false
	}
	if len(item.Permissions) > 0 && !principal.HasAnyPermission(item.Permissions...) {
		return false
	}
	return true
}

func (b *Builder) resolveURL(item *MenuItem) *string {
	if item.ItemType != ItemTypeLink || item.LinkTarget == nil {
		return nil
	}
	switch item.LinkType {
	case LinkTypeRoute:
		if b.resolver == nil {
			return nil
		}
		params, err := item.ParsedRouteParams()
		if err != nil {
			return nil
		}
		url, ok := b.resolver.Reverse(*item.LinkTarget, params)
		if !ok {
			return nil
		}
		return &url
	case LinkTypePath, LinkTypeExternal:
		return item.LinkTarget
	}
	return nil
}

func (b *Builder) isActive(item *MenuItem, currentPath, currentRoute string) bool {
	if item.ItemType != ItemTypeLink || item.LinkTarget == nil {
		return false
	}
	if currentRoute != "" {
		for _, name := range item.HighlightURLNames {
			if name == currentRoute {
				return true
			}
		}
	}
	switch item.LinkType {
	case LinkTypeRoute:
		return currentRoute != "" && *item.LinkTarget == currentRoute
	case LinkTypePath:
		return currentPath != "" && strings.HasPrefix(currentPath, *item.LinkTarget)
	case LinkTypeExternal:
		return currentPath == *item.LinkTarget
	}
	return false
}
