package menu

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

type Handler struct {
	svc    *Service
	routes func() []*echo.Route
}

// NewHandler creates the menu handler. routes supplies the live route table
// for the sync endpoint; pass e.Routes bound to the server's echo instance.
func NewHandler(svc *Service, routes func() []*echo.Route) *Handler {
	return &Handler{svc: svc, routes: routes}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// The tree endpoint is open: anonymous principals get the public subset.
	api.GET("/menu/tree", h.GetTree)

	admin := api.Group("/menu", auth.RequireRole("admin"))
	admin.GET("/items", h.ListItems)
	admin.GET("/items/:id", h.GetItem)
	admin.POST("/items", h.CreateItem)
	admin.PUT("/items/:id", h.UpdateItem)
	admin.DELETE("/items/:id", h.DeleteItem)
	admin.POST("/sync", h.Sync)
}

func (h *Handler) GetTree(c echo.Context) error {
	principal := auth.PrincipalFromContext(c.Request().Context())
	// Clients pass the page they are rendering in ?path=; the highlight is
	// computed against it, not against this endpoint's own URL.
	path := c.QueryParam("path")
	if path == "" {
		path = c.Request().URL.Path
	}
	nodes, err := h.svc.Tree(c.Request().Context(), principal, path)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, nodes)
}

func (h *Handler) ListItems(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "menu item not found")
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) CreateItem(c echo.Context) error {
	var item MenuItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var item MenuItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item.ID = id
	if err := h.svc.Update(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Sync(c echo.Context) error {
	count, err := h.svc.SyncFromRoutes(c.Request().Context(), h.routes())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"created": count})
}
