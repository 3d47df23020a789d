package scheduling

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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
	g := api.Group("/appointments")

	read := g.Group("", auth.RequireRole("admin", "doctor", "nurse", "receptionist"))
	read.GET("", h.Search)
	read.GET("/:id", h.Get)
	read.GET("/doctor/:doctorId/day", h.DoctorDay)

	desk := g.Group("", auth.RequireRole("admin", "receptionist", "nurse"))
	desk.POST("", h.Book)
	desk.PUT("/:id/reschedule", h.Reschedule)
	desk.PATCH("/:id/status", h.UpdateStatus)
}

func (h *Handler) Book(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.v.Validate(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Book(c.Request().Context(), &a); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, &a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in RescheduleInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.v.Validate(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Reschedule(c.Request().Context(), id, &in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Status string `json:"status" validate:"required,oneof=Booked CheckedIn Completed Cancelled NoShow"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.v.Validate(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DoctorDay(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	day := time.Now().UTC()
	if d := c.QueryParam("date"); d != "" {
		day, err = time.Parse("2006-01-02", d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
	}
	out, err := h.svc.DoctorDay(c.Request().Context(), doctorID, day)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Search(c echo.Context) error {
	p := pagination.FromContext(c)
	params := SearchParams{
		DoctorID:  c.QueryParam("doctor_id"),
		PatientID: c.QueryParam("patient_id"),
		Status:    c.QueryParam("status"),
		Date:      c.QueryParam("date"),
	}
	out, total, err := h.svc.Search(c.Request().Context(), params, p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, p.Limit, p.Offset))
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrSlotTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
