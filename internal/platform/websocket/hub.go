// Package websocket delivers live service-status updates to role-scoped
// dashboards. Clients join one group per responsible-role code; every ledger
// transition is broadcast to the group of the role that owns the service
// type. Delivery is best-effort and at-most-once: a disconnected subscriber
// misses the update until the next transition or a page reload.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// Publisher is the fan-out contract consumed by the status ledger. The
// payload is already a flat, cheap-to-derive message; implementations must
// not block the originating write.
type Publisher interface {
	Publish(ctx context.Context, roleCode string, payload interface{}) error
}

// Client represents a single dashboard connection pinned to one role group.
type Client struct {
	UserID string
	Group  string
	Send   chan []byte
	conn   *gorillawebsocket.Conn
}

// Hub tracks connected dashboard clients by role group. All operations are
// thread-safe via sync.RWMutex.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]struct{} // role code -> set of clients
	logger zerolog.Logger
}

// NewHub creates a Hub ready to manage dashboard clients.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		groups: make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

// Register adds a client to its role group.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.groups[client.Group] == nil {
		h.groups[client.Group] = make(map[*Client]struct{})
	}
	h.groups[client.Group][client] = struct{}{}
}

// Unregister removes a client from its group and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.groups[client.Group]
	if !ok {
		return
	}
	if _, ok := subscribers[client]; !ok {
		return
	}
	delete(subscribers, client)
	if len(subscribers) == 0 {
		delete(h.groups, client.Group)
	}
	close(client.Send)
}

// Publish broadcasts a payload to every client in the given role group.
// Marshalling or delivery problems are logged and swallowed; a transition
// must never fail because its notification could not be delivered.
func (h *Hub) Publish(_ context.Context, roleCode string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Str("group", roleCode).Msg("marshal broadcast payload")
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	subscribers, ok := h.groups[roleCode]
	if !ok {
		return nil
	}

	for client := range subscribers {
		select {
		case client.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
	return nil
}

// GroupCount returns the number of clients in a role group.
func (h *Hub) GroupCount(roleCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[roleCode])
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, g := range h.groups {
		n += len(g)
	}
	return n
}

// ---------------------------------------------------------------------------
// Handler — Echo HTTP handler for dashboard WebSocket connections
// ---------------------------------------------------------------------------

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// Handler upgrades dashboard connections and enforces group admission.
type Handler struct {
	hub            *Hub
	viewPermission string
}

// NewHandler creates a handler bound to the given Hub. viewPermission is the
// capability code a principal must hold to watch the live work queue.
func NewHandler(hub *Hub, viewPermission string) *Handler {
	return &Handler{hub: hub, viewPermission: viewPermission}
}

// RegisterRoutes registers the dashboard WebSocket endpoint.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws/dashboard", h.HandleConnect)
}

// HandleConnect admits an authenticated principal that holds the view
// permission and at least one role, then joins it to the group named after
// its first role code. A role override via the "role" query parameter is
// honored only when the principal actually holds that role.
func (h *Handler) HandleConnect(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	if !p.Authenticated() {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if !p.Superuser && !p.HasPermission(h.viewPermission) {
		return echo.NewHTTPError(http.StatusForbidden, "missing dashboard permission")
	}
	if len(p.Roles) == 0 && !p.Superuser {
		return echo.NewHTTPError(http.StatusForbidden, "no assigned role")
	}

	group := ""
	if len(p.Roles) > 0 {
		group = p.Roles[0]
	}
	if requested := c.QueryParam("role"); requested != "" {
		if !p.Superuser && !p.HasRole(requested) {
			return echo.NewHTTPError(http.StatusForbidden, "role not held")
		}
		group = requested
	}
	if group == "" {
		return echo.NewHTTPError(http.StatusForbidden, "no assigned role")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		UserID: p.ID,
		Group:  group,
		Send:   make(chan []byte, 256),
		conn:   ws,
	}

	h.hub.Register(client)

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

// readPump drains inbound frames until the connection drops. Dashboard
// clients are receive-only; anything they send is discarded.
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.hub.Unregister(client)
		client.conn.Close()
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump writes messages from the Send channel to the connection.
func (h *Handler) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}
