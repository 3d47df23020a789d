package lab

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/validate"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
	v   *validate.Validator
}

func NewHandler(svc *Service, v *validate.Validator) *Handler {
	return &Handler{svc: svc, v: v}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	lab := api.Group("/lab")

	// Catalog reads are open to every clinical role plus the front desk.
	catalogRead := lab.Group("", auth.RequireRole("admin", "doctor", "nurse", "lab_tech", "receptionist"))
	catalogRead.GET("/tests", h.ListTests)
	catalogRead.GET("/tests/:id", h.GetTest)

	catalogWrite := lab.Group("", auth.RequireRole("admin"))
	catalogWrite.POST("/tests", h.CreateTest)
	catalogWrite.PATCH("/tests/:id", h.UpdateTest)
	catalogWrite.DELETE("/tests/:id", h.DeactivateTest)

	clinical := lab.Group("", auth.RequireRole("admin", "doctor", "nurse", "lab_tech"))
	clinical.GET("/orders", h.ListOrders)
	clinical.GET("/orders/:id", h.GetOrder)
	clinical.GET("/orders/:id/results", h.ListOrderResults)
	clinical.GET("/orders/:id/report", h.GetReport)
	clinical.GET("/reports/:id", h.GetReport)
	clinical.GET("/queue", h.Queue)

	ordering := lab.Group("", auth.RequireRole("admin", "doctor"))
	ordering.POST("/orders", h.CreateOrder)
	ordering.PATCH("/results/:id/review", h.ReviewResult)

	bench := lab.Group("", auth.RequireRole("admin", "lab_tech", "nurse"))
	bench.PATCH("/orders/:id/tests/:testId/status", h.UpdateTestStatus)

	resulting := lab.Group("", auth.RequireRole("admin", "lab_tech"))
	resulting.POST("/orders/:id/tests/:testId/results", h.EnterResult)
	resulting.PATCH("/results/:id/amend", h.AmendResult)
	resulting.POST("/orders/:id/report", h.GenerateReport)
}

// httpError translates workflow errors into transport status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, ErrVersionConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNoReport):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

// -- Catalog --

func (h *Handler) CreateTest(c echo.Context) error {
	var t LabTest
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.v.Validate(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateTest(c.Request().Context(), &t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.GetTest(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "test not found")
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTests(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, key := range []string{"category", "active", "q"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}
	items, total, err := h.svc.SearchTests(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateTest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var t LabTest
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.v.Validate(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.ID = id
	if err := h.svc.UpdateTest(c.Request().Context(), &t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeactivateTest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeactivateTest(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Orders --

func (h *Handler) CreateOrder(c echo.Context) error {
	var in CreateOrderInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.v.Validate(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	order, err := h.svc.CreateOrder(c.Request().Context(), &in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *Handler) GetOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	detail, err := h.svc.GetOrderDetail(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) ListOrders(c echo.Context) error {
	pg := pagination.FromContext(c)
	patientID := c.QueryParam("patient_id")
	if patientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	pid, err := uuid.Parse(patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	items, total, err := h.svc.ListOrdersByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Queue(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := QueueParams{
		OrderStatus: c.QueryParam("order_status"),
		TestStatus:  c.QueryParam("test_status"),
		Priority:    c.QueryParam("priority"),
		Category:    c.QueryParam("category"),
		PatientID:   c.QueryParam("patient_id"),
		Query:       c.QueryParam("q"),
	}
	items, total, err := h.svc.Queue(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateTestStatus(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	testID, err := uuid.Parse(c.Param("testId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid test id")
	}
	var body struct {
		Status string `json:"status" validate:"required,oneof=Ordered Collected InProgress Completed Cancelled"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.v.Validate(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	order, err := h.svc.UpdateTestStatus(c.Request().Context(), orderID, testID, body.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, order)
}

// -- Results --

func (h *Handler) EnterResult(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	testID, err := uuid.Parse(c.Param("testId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid test id")
	}
	var in EnterResultInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.v.Validate(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	performedBy := auth.UserNameFromContext(c.Request().Context())
	result, err := h.svc.EnterResult(c.Request().Context(), orderID, testID, &in, performedBy)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) ListOrderResults(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	results, err := h.svc.ListOrderResults(c.Request().Context(), orderID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) ReviewResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	reviewedBy := auth.UserNameFromContext(c.Request().Context())
	result, err := h.svc.ReviewResult(c.Request().Context(), id, reviewedBy)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) AmendResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in EnterResultInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.v.Validate(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	amendedBy := auth.UserNameFromContext(c.Request().Context())
	result, err := h.svc.AmendResult(c.Request().Context(), id, &in, amendedBy)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// -- Reports --

func (h *Handler) GetReport(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	report, err := h.svc.GetReport(c.Request().Context(), orderID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) GenerateReport(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	report, err := h.svc.GenerateReport(c.Request().Context(), orderID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}
