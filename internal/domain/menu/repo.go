package menu

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists menu items. The Find helpers return nil (not an error)
// when nothing matches; auto-sync leans on that for idempotency.
type Repository interface {
	Create(ctx context.Context, item *MenuItem) error
	Update(ctx context.Context, item *MenuItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*MenuItem, error)
	// ListVisible returns active items with show_in_menu set, the input the
	// tree builder works from.
	ListVisible(ctx context.Context) ([]*MenuItem, error)
	ListAll(ctx context.Context) ([]*MenuItem, error)
	FindHeaderByTitle(ctx context.Context, title string) (*MenuItem, error)
	FindLinkByRouteName(ctx context.Context, routeName string) (*MenuItem, error)
}
