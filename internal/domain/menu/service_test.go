package menu

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/cache"
)

type memRepo struct {
	items map[uuid.UUID]*MenuItem
	lists int
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[uuid.UUID]*MenuItem)}
}

func (m *memRepo) Create(_ context.Context, item *MenuItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	m.items[item.ID] = item
	return nil
}

func (m *memRepo) Update(_ context.Context, item *MenuItem) error {
	if _, ok := m.items[item.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.items[item.ID] = item
	return nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*MenuItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return item, nil
}

func (m *memRepo) ListVisible(_ context.Context) ([]*MenuItem, error) {
	m.lists++
	var out []*MenuItem
	for _, item := range m.items {
		if item.IsActive && item.ShowInMenu {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memRepo) ListAll(_ context.Context) ([]*MenuItem, error) {
	var out []*MenuItem
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, nil
}

func (m *memRepo) FindHeaderByTitle(_ context.Context, title string) (*MenuItem, error) {
	for _, item := range m.items {
		if item.ItemType == ItemTypeHeader && item.Title == title {
			return item, nil
		}
	}
	return nil, nil
}

func (m *memRepo) FindLinkByRouteName(_ context.Context, routeName string) (*MenuItem, error) {
	for _, item := range m.items {
		if item.ItemType == ItemTypeLink && item.LinkType == LinkTypeRoute &&
			item.LinkTarget != nil && *item.LinkTarget == routeName {
			return item, nil
		}
	}
	return nil, nil
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	builder := NewBuilder(&staticResolver{routes: map[string]string{}})
	treeCache := NewTreeCache(cache.NewMemoryStore(), time.Hour, zerolog.Nop())
	return NewService(repo, builder, treeCache, zerolog.Nop()), repo
}

// -- parent cycles --

func TestCreate_SelfParentRejected(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	item := linkItem("A", "a", nil)
	if err := svc.Create(ctx, item); err != nil {
		t.Fatal(err)
	}
	stored := repo.items[item.ID]
	stored.ParentID = &stored.ID
	if err := svc.Update(ctx, stored); err == nil {
		t.Error("item must not be its own parent")
	}
}

func TestUpdate_CycleRejectedAtDepth(t *testing.T) {
	for _, depth := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("depth_%d", depth), func(t *testing.T) {
			svc, _ := newTestService()
			ctx := context.Background()

			// chain[0] is the root; each next item hangs off the previous.
			chain := make([]*MenuItem, depth+1)
			for i := range chain {
				var parent *uuid.UUID
				if i > 0 {
					parent = &chain[i-1].ID
				}
				chain[i] = linkItem(fmt.Sprintf("item%d", i), fmt.Sprintf("r%d", i), parent)
				if err := svc.Create(ctx, chain[i]); err != nil {
					t.Fatal(err)
				}
			}

			// re-parenting the root under the deepest descendant closes a loop
			root := chain[0]
			root.ParentID = &chain[depth].ID
			if err := svc.Update(ctx, root); err == nil {
				t.Errorf("cycle of depth %d must be rejected", depth)
			}
		})
	}
}

// -- cache behavior --

func TestTree_CacheHitAndVersionInvalidation(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	principal := auth.Principal{ID: "u1", Roles: []string{"physician"}}

	if err := svc.Create(ctx, linkItem("Home", "home", nil)); err != nil {
		t.Fatal(err)
	}
	listsAfterCreate := repo.lists

	first, err := svc.Tree(ctx, principal, "/")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Tree(ctx, principal, "/elsewhere")
	if err != nil {
		t.Fatal(err)
	}
	if repo.lists != listsAfterCreate+1 {
		t.Errorf("second build must hit the cache, repo queried %d times", repo.lists-listsAfterCreate)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("cache hit must return identical content")
	}

	// any write bumps the version and forces a rebuild
	if err := svc.Create(ctx, linkItem("Ward", "ward", nil)); err != nil {
		t.Fatal(err)
	}
	third, err := svc.Tree(ctx, principal, "/")
	if err != nil {
		t.Fatal(err)
	}
	if repo.lists != listsAfterCreate+2 {
		t.Error("version bump must force a cache miss")
	}
	if len(third) != 2 {
		t.Errorf("rebuilt tree must include the new item, got %d nodes", len(third))
	}
}

func TestTree_DeleteInvalidatesCache(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	principal := auth.Principal{ID: "u1"}

	item := linkItem("Home", "home", nil)
	if err := svc.Create(ctx, item); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Tree(ctx, principal, "/"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, item.ID); err != nil {
		t.Fatal(err)
	}
	tree, err := svc.Tree(ctx, principal, "/")
	if err != nil {
		t.Fatal(err)
	}
	if len(tree) != 0 {
		t.Errorf("deleted item must vanish after rebuild, got %d nodes", len(tree))
	}
}

func TestTree_SeparatePrincipalsSeparateEntries(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	restricted := linkItem("Ward", "ward", nil)
	restricted.RequiredRoles = []string{"nurse"}
	if err := svc.Create(ctx, restricted); err != nil {
		t.Fatal(err)
	}

	nurse := auth.Principal{ID: "n1", Roles: []string{"nurse"}}
	guest := auth.Principal{}

	nurseTree, _ := svc.Tree(ctx, nurse, "/")
	guestTree, _ := svc.Tree(ctx, guest, "/")
	if len(nurseTree) != 1 {
		t.Error("nurse should see the ward link")
	}
	if len(guestTree) != 0 {
		t.Error("guest tree must not leak the nurse's cached tree")
	}
}

// -- auto-sync --

func syncRoutes() []*echo.Route {
	return []*echo.Route{
		{Method: "GET", Path: "/api/v1/receptions", Name: "reception.list_receptions"},
		{Method: "GET", Path: "/api/v1/service-types", Name: "reception.list_service_types"},
		{Method: "GET", Path: "/api/v1/menu/tree", Name: "menu.tree"},
		{Method: "POST", Path: "/api/v1/receptions", Name: "reception.create"}, // non-GET skipped
		{Method: "GET", Path: "/health", Name: ""},                             // unnamed skipped
	}
}

func TestSyncFromRoutes_CreatesHeadersAndLinks(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, err := svc.SyncFromRoutes(ctx, syncRoutes())
	if err != nil {
		t.Fatal(err)
	}
	// 2 headers (Reception, Menu) + 3 links
	if created != 5 {
		t.Errorf("created = %d, want 5", created)
	}

	header, _ := repo.FindHeaderByTitle(ctx, "Reception")
	if header == nil {
		t.Fatal("expected Reception header")
	}
	link, _ := repo.FindLinkByRouteName(ctx, "reception.list_receptions")
	if link == nil {
		t.Fatal("expected link for reception.list_receptions")
	}
	if link.Title != "List Receptions" {
		t.Errorf("humanized title = %q, want List Receptions", link.Title)
	}
	if link.ParentID == nil || *link.ParentID != header.ID {
		t.Error("link must hang under its component header")
	}
	if !link.AutoGenerated {
		t.Error("synced items must be flagged auto_generated")
	}
}

func TestSyncFromRoutes_Idempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.SyncFromRoutes(ctx, syncRoutes()); err != nil {
		t.Fatal(err)
	}
	again, err := svc.SyncFromRoutes(ctx, syncRoutes())
	if err != nil {
		t.Fatal(err)
	}
	if again != 0 {
		t.Errorf("second run created %d items, want 0", again)
	}
}

func TestSyncFromRoutes_DefaultEchoNames(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	routes := []*echo.Route{{
		Method: "GET",
		Path:   "/api/v1/receptions",
		Name:   "github.com/clinicdesk/clinicdesk/internal/domain/reception.(*Handler).ListReceptions-fm",
	}}
	created, err := svc.SyncFromRoutes(ctx, routes)
	if err != nil {
		t.Fatal(err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want header + link", created)
	}
	if h, _ := repo.FindHeaderByTitle(ctx, "Reception"); h == nil {
		t.Error("component must derive from the handler package name")
	}
	link, _ := repo.FindLinkByRouteName(ctx, routes[0].Name)
	if link == nil || link.Title != "List Receptions" {
		t.Errorf("expected humanized method-name title, got %+v", link)
	}
}

func TestHumanize(t *testing.T) {
	cases := map[string]string{
		"list_services":  "List Services",
		"ListReceptions": "List Receptions",
		"tree":           "Tree",
		"reception":      "Reception",
	}
	for in, want := range cases {
		if got := humanize(in); got != want {
			t.Errorf("humanize(%q) = %q, want %q", in, got, want)
		}
	}
}
