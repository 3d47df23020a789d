package vitals

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
	"github.com/hms/hms/internal/platform/validate"
)

type Handler struct {
	svc *Service
	v   *validate.Validator
}

func NewHandler(svc *Service, v *validate.Validator) *Handler {
	return &Handler{svc: svc, v: v}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/vitals")

	read := g.Group("", auth.RequireRole("admin", "doctor", "nurse", "lab_tech"))
	read.GET("/:id", h.Get)
	read.GET("/patient/:patientId", h.ListByPatient)
	read.GET("/patient/:patientId/latest", h.Latest)
	read.GET("/encounter/:encounterId", h.ListByEncounter)

	bedside := g.Group("", auth.RequireRole("admin", "doctor", "nurse"))
	bedside.POST("", h.Record)
}

func (h *Handler) Record(c echo.Context) error {
	var v VitalSigns
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.v.Validate(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	recordedBy := auth.UserNameFromContext(c.Request().Context())
	if err := h.svc.Record(c.Request().Context(), &v, recordedBy); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, &v)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "vital signs not found")
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p := pagination.FromContext(c)
	out, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, p.Limit, p.Offset))
}

func (h *Handler) Latest(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	v, err := h.svc.Latest(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no vital signs recorded for patient")
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListByEncounter(c echo.Context) error {
	encounterID, err := uuid.Parse(c.Param("encounterId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid encounter id")
	}
	out, err := h.svc.ListByEncounter(c.Request().Context(), encounterID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}
