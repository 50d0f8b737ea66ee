package menu

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const menuCols = `id, title, item_type, link_type, link_target, route_params, parent_id, sort_order,
	icon, badge, css_class, show_in_menu, is_active, auto_generated,
	permissions, required_roles, highlight_url_names, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, item *MenuItem) error {
	item.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO menu_item (
			id, title, item_type, link_type, link_target, route_params, parent_id, sort_order,
			icon, badge, css_class, show_in_menu, is_active, auto_generated,
			permissions, required_roles, highlight_url_names
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		item.ID, item.Title, item.ItemType, item.LinkType, item.LinkTarget, item.RouteParams,
		item.ParentID, item.Order, item.Icon, item.Badge, item.CSSClass,
		item.ShowInMenu, item.IsActive, item.AutoGenerated,
		item.Permissions, item.RequiredRoles, item.HighlightURLNames,
	)
	return err
}

func (r *repoPG) Update(ctx context.Context, item *MenuItem) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE menu_item SET
			title=$2, item_type=$3, link_type=$4, link_target=$5, route_params=$6,
			parent_id=$7, sort_order=$8, icon=$9, badge=$10, css_class=$11,
			show_in_menu=$12, is_active=$13, auto_generated=$14,
			permissions=$15, required_roles=$16, highlight_url_names=$17, updated_at=NOW()
		WHERE id = $1`,
		item.ID, item.Title, item.ItemType, item.LinkType, item.LinkTarget, item.RouteParams,
		item.ParentID, item.Order, item.Icon, item.Badge, item.CSSClass,
		item.ShowInMenu, item.IsActive, item.AutoGenerated,
		item.Permissions, item.RequiredRoles, item.HighlightURLNames,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM menu_item WHERE id = $1`, id)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*MenuItem, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+menuCols+` FROM menu_item WHERE id = $1`, id))
}

func (r *repoPG) ListVisible(ctx context.Context) ([]*MenuItem, error) {
	return r.list(ctx, `SELECT `+menuCols+` FROM menu_item WHERE is_active AND show_in_menu ORDER BY sort_order, created_at`)
}

func (r *repoPG) ListAll(ctx context.Context) ([]*MenuItem, error) {
	return r.list(ctx, `SELECT `+menuCols+` FROM menu_item ORDER BY sort_order, created_at`)
}

func (r *repoPG) list(ctx context.Context, sql string) ([]*MenuItem, error) {
	rows, err := r.conn(ctx).Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*MenuItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repoPG) FindHeaderByTitle(ctx context.Context, title string) (*MenuItem, error) {
	item, err := scanItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+menuCols+` FROM menu_item WHERE item_type = 'header' AND title = $1 LIMIT 1`, title))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return item, err
}

func (r *repoPG) FindLinkByRouteName(ctx context.Context, routeName string) (*MenuItem, error) {
	item, err := scanItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+menuCols+` FROM menu_item WHERE item_type = 'link' AND link_type = 'route' AND link_target = $1 LIMIT 1`,
		routeName))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return item, err
}

func scanItem(row pgx.Row) (*MenuItem, error) {
	var item MenuItem
	if err := row.Scan(&item.ID, &item.Title, &item.ItemType, &item.LinkType, &item.LinkTarget,
		&item.RouteParams, &item.ParentID, &item.Order, &item.Icon, &item.Badge, &item.CSSClass,
		&item.ShowInMenu, &item.IsActive, &item.AutoGenerated,
		&item.Permissions, &item.RequiredRoles, &item.HighlightURLNames,
		&item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}
