package cardiology

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/cardiology", auth.RequireRole("admin", "physician", "cardiologist", "technician"))
	g.POST("/ecg", h.CreateECG)
	g.GET("/ecg/:id", h.GetECG)
	g.POST("/holter", h.CreateInstallation)
	g.GET("/holter/:id", h.GetInstallation)
	g.POST("/holter/:id/reception", h.RecordReception)
	g.POST("/holter/:id/reading", h.RecordReading)
	g.POST("/holter/:id/report", h.RecordReport)
}

func (h *Handler) CreateECG(c echo.Context) error {
	var rec ECGRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateECG(c.Request().Context(), &rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetECG(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.GetECG(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "ecg record not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) CreateInstallation(c echo.Context) error {
	var inst HolterInstallation
	if err := c.Bind(&inst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateInstallation(c.Request().Context(), &inst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, inst)
}

func (h *Handler) GetInstallation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inst, err := h.svc.GetInstallation(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "installation not found")
	}
	return c.JSON(http.StatusOK, inst)
}

func (h *Handler) RecordReception(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var rec HolterReception
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec.InstallationID = id
	if err := h.svc.RecordReception(c.Request().Context(), &rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) RecordReading(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var rd HolterReading
	if err := c.Bind(&rd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rd.InstallationID = id
	if err := h.svc.RecordReading(c.Request().Context(), &rd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rd)
}

func (h *Handler) RecordReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var rp HolterReport
	if err := c.Bind(&rp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rp.InstallationID = id
	if err := h.svc.RecordReport(c.Request().Context(), &rp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rp)
}
