package menu

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/cache"
)

// VersionKey is the shared counter bumped on every menu item write. All
// cached trees key on its value, so one increment invalidates everything.
const VersionKey = "menu:version"

// TreeCache stores built navigation trees keyed by principal identity and
// menu version. The current request path is deliberately not part of the
// key: a tree cached while viewing one page keeps that page's highlight
// until the next version bump or TTL expiry. Per-principal highlights going
// stale is a cheaper failure mode than a cache entry per path.
type TreeCache struct {
	store  cache.Store
	ttl    time.Duration
	logger zerolog.Logger
}

func NewTreeCache(store cache.Store, ttl time.Duration, logger zerolog.Logger) *TreeCache {
	return &TreeCache{store: store, ttl: ttl, logger: logger}
}

// Version reads the current menu version.
func (c *TreeCache) Version(ctx context.Context) int64 {
	return c.store.Counter(ctx, VersionKey)
}

// Bump invalidates every cached tree by advancing the version.
func (c *TreeCache) Bump(ctx context.Context) int64 {
	return c.store.Incr(ctx, VersionKey)
}

func (c *TreeCache) key(principal auth.Principal, version int64) string {
	identity := principal.ID
	if identity == "" {
		identity = "guest"
	}
	return fmt.Sprintf("menu:tree:%s:%d", identity, version)
}

// Get returns the cached tree for the principal at the current version.
func (c *TreeCache) Get(ctx context.Context, principal auth.Principal) ([]*TreeNode, bool) {
	data, ok := c.store.Get(ctx, c.key(principal, c.Version(ctx)))
	if !ok {
		return nil, false
	}
	var nodes []*TreeNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		c.logger.Warn().Err(err).Msg("discarding corrupt cached menu tree")
		return nil, false
	}
	return nodes, true
}

// Put stores a freshly built tree. Failures degrade to a rebuild on the next
// request and are swallowed by the store.
func (c *TreeCache) Put(ctx context.Context, principal auth.Principal, nodes []*TreeNode) {
	data, err := json.Marshal(nodes)
	if err != nil {
		c.logger.Warn().Err(err).Msg("menu tree marshal failed")
		return
	}
	c.store.Set(ctx, c.key(principal, c.Version(ctx)), data, c.ttl)
}
