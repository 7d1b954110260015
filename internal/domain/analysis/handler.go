package analysis

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/superonehealth/api/internal/platform/auth"
	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/pkg/apitypes"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/health-analysis/latest", h.Latest)
	api.GET("/health-analysis/trends", h.Trends)
	api.GET("/health-analysis/:id", h.Get)
	api.GET("/dashboard/overview", h.Dashboard)
}

func (h *Handler) Get(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "health analysis not found")
	}
	a, err := h.svc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return respond.OK(c, a)
}

func (h *Handler) Latest(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Latest(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return respond.OK(c, a)
}

func (h *Handler) Trends(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	months := 0
	if raw := c.QueryParam("months"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return respond.Validation([]apitypes.FieldError{{
				Field: "months", Rule: "numeric", Message: "months must be an integer",
			}})
		}
		months = v
	}
	report, err := h.svc.Trends(c.Request().Context(), userID, months)
	if err != nil {
		return err
	}
	return respond.OK(c, report)
}

func (h *Handler) Dashboard(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	overview, err := h.svc.Dashboard(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return respond.OK(c, overview)
}
