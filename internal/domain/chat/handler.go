package chat

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
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
	g := api.Group("/chat")

	// Ask and browse are open to every authenticated user.
	g.POST("/ask", h.Ask)
	g.GET("/faqs", h.ListFAQs)

	admin := g.Group("", auth.RequireRole("admin"))
	admin.POST("/faqs", h.CreateFAQ)
	admin.DELETE("/faqs/:id", h.DeleteFAQ)
}

func (h *Handler) Ask(c echo.Context) error {
	var in AskInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.v.Validate(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ans, err := h.svc.Ask(c.Request().Context(), in.Question)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, ans)
}

func (h *Handler) ListFAQs(c echo.Context) error {
	faqs, err := h.svc.ListFAQs(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, faqs)
}

func (h *Handler) CreateFAQ(c echo.Context) error {
	var f FAQ
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.v.Validate(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateFAQ(c.Request().Context(), &f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, &f)
}

func (h *Handler) DeleteFAQ(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteFAQ(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "faq not found")
	}
	return c.NoContent(http.StatusNoContent)
}
