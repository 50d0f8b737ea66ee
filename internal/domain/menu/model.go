package menu

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	ItemTypeLink    = "link"
	ItemTypeHeader  = "header"
	ItemTypeDivider = "divider"
)

const (
	LinkTypeRoute    = "route"
	LinkTypePath     = "path"
	LinkTypeExternal = "external"
)

var validItemTypes = map[string]bool{
	ItemTypeLink:    true,
	ItemTypeHeader:  true,
	ItemTypeDivider: true,
}

var validLinkTypes = map[string]bool{
	LinkTypeRoute:    true,
	LinkTypePath:     true,
	LinkTypeExternal: true,
}

// MenuItem is one node of the navigation tree. Link items point at a named
// route, a static path or an external URL; headers and dividers are purely
// structural and never carry a target.
type MenuItem struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	Title             string          `db:"title" json:"title"`
	ItemType          string          `db:"item_type" json:"item_type"`
	LinkType          string          `db:"link_type" json:"link_type,omitempty"`
	LinkTarget        *string         `db:"link_target" json:"link_target,omitempty"`
	RouteParams       json.RawMessage `db:"route_params" json:"route_params,omitempty"`
	ParentID          *uuid.UUID      `db:"parent_id" json:"parent_id,omitempty"`
	Order             int             `db:"sort_order" json:"order"`
	Icon              *string         `db:"icon" json:"icon,omitempty"`
	Badge             *string         `db:"badge" json:"badge,omitempty"`
	CSSClass          *string         `db:"css_class" json:"css_class,omitempty"`
	ShowInMenu        bool            `db:"show_in_menu" json:"show_in_menu"`
	IsActive          bool            `db:"is_active" json:"is_active"`
	AutoGenerated     bool            `db:"auto_generated" json:"auto_generated"`
	Permissions       []string        `db:"permissions" json:"permissions"`
	RequiredRoles     []string        `db:"required_roles" json:"required_roles"`
	HighlightURLNames []string        `db:"highlight_url_names" json:"highlight_url_names"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Validate checks the item's own fields. Parent-cycle detection needs the
// repository and lives on the service.
func (m *MenuItem) Validate() error {
	if m.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !validItemTypes[m.ItemType] {
		return fmt.Errorf("invalid item_type: %s", m.ItemType)
	}
	switch m.ItemType {
	case ItemTypeHeader, ItemTypeDivider:
		if m.LinkTarget != nil && *m.LinkTarget != "" {
			return fmt.Errorf("%s items must not carry a link target", m.ItemType)
		}
	case ItemTypeLink:
		if !validLinkTypes[m.LinkType] {
			return fmt.Errorf("invalid link_type: %s", m.LinkType)
		}
		if m.LinkTarget == nil || *m.LinkTarget == "" {
			return fmt.Errorf("link items require a link_target")
		}
	}
	if _, err := m.ParsedRouteParams(); err != nil {
		return fmt.Errorf("route_params: %w", err)
	}
	return nil
}

// ParsedRouteParams decodes the stored route arguments. An empty blob is an
// empty map.
func (m *MenuItem) ParsedRouteParams() (map[string]string, error) {
	if len(m.RouteParams) == 0 {
		return map[string]string{}, nil
	}
	var params map[string]string
	if err := json.Unmarshal(m.RouteParams, &params); err != nil {
		return nil, err
	}
	return params, nil
}

// Unrestricted reports whether the item carries no permission or role
// requirement at all.
func (m *MenuItem) Unrestricted() bool {
	return len(m.Permissions) == 0 && len(m.RequiredRoles) == 0
}
