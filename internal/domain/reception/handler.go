package reception

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar", "technician"))
	readGroup.GET("/receptions", h.ListReceptions).Name = "reception.list_receptions"
	readGroup.GET("/receptions/:id", h.GetReception)
	readGroup.GET("/receptions/:id/services", h.ListServices)
	readGroup.GET("/service-types", h.ListServiceTypes).Name = "reception.list_service_types"
	readGroup.GET("/services", h.ListServicesByStatus).Name = "reception.list_services"
	readGroup.GET("/services/:id", h.GetService)
	readGroup.GET("/services/:id/status-history", h.GetStatusHistory)
	readGroup.GET("/services/:id/durations", h.GetDurations)

	writeGroup := api.Group("", auth.RequireRole("admin", "registrar"))
	writeGroup.POST("/receptions", h.CreateReception)
	writeGroup.POST("/receptions/:id/services", h.AddService)
	writeGroup.POST("/service-types", h.CreateServiceType)

	// Any clinical role can move a service through its lifecycle.
	statusGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar", "technician"))
	statusGroup.PATCH("/services/:id/status", h.UpdateServiceStatus)
}

func (h *Handler) CreateReception(c echo.Context) error {
	var rec Reception
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateReception(c.Request().Context(), &rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetReception(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.GetReception(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "reception not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListReceptions(c echo.Context) error {
	pg := pagination.FromContext(c)
	recs, total, err := h.svc.ListReceptions(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(recs, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateServiceType(c echo.Context) error {
	var st ServiceType
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateServiceType(c.Request().Context(), &st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *Handler) ListServiceTypes(c echo.Context) error {
	types, err := h.svc.ListServiceTypes(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, types)
}

type addServiceRequest struct {
	ServiceTypeCode string     `json:"service_type_code"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
}

func (h *Handler) AddService(c echo.Context) error {
	receptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req addServiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ServiceTypeCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "service_type_code is required")
	}
	svc, err := h.svc.AddService(c.Request().Context(), receptionID, req.ServiceTypeCode, req.ScheduledAt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, svc)
}

func (h *Handler) GetService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	svc, err := h.svc.GetService(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "service not found")
	}
	return c.JSON(http.StatusOK, svc)
}

func (h *Handler) ListServices(c echo.Context) error {
	receptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	svcs, err := h.svc.ListServices(c.Request().Context(), receptionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, svcs)
}

func (h *Handler) ListServicesByStatus(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" {
		status = StatusPending
	}
	pg := pagination.FromContext(c)
	svcs, total, err := h.svc.ListServicesByStatus(c.Request().Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(svcs, total, pg.Limit, pg.Offset))
}

type updateStatusRequest struct {
	Status string  `json:"status"`
	Note   *string `json:"note"`
}

func (h *Handler) UpdateServiceStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}

	var actorID *uuid.UUID
	if p := auth.PrincipalFromContext(c.Request().Context()); p.Authenticated() {
		if uid, err := uuid.Parse(p.ID); err == nil {
			actorID = &uid
		}
	}

	changed, err := h.svc.Transition(c.Request().Context(), id, req.Status, actorID, req.Note)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "service not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	svc, err := h.svc.GetService(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"changed": changed,
		"service": svc,
	})
}

func (h *Handler) GetStatusHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	events, err := h.svc.StatusHistory(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if events == nil {
		events = []*StatusEvent{}
	}
	return c.JSON(http.StatusOK, events)
}

func (h *Handler) GetDurations(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	summary, err := h.svc.Durations(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "service not found")
	}
	return c.JSON(http.StatusOK, summary)
}
