package notifications

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/superonehealth/api/internal/platform/auth"
	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/notifications", h.List)
	api.GET("/notifications/unread-count", h.UnreadCount)
	api.PUT("/notifications/read-all", h.MarkAllRead)
	api.PUT("/notifications/:id/read", h.MarkRead)
}

func (h *Handler) List(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	f := Filters{Category: c.QueryParam("category")}
	if v, err := strconv.ParseBool(c.QueryParam("unread_only")); err == nil {
		f.UnreadOnly = v
	}
	pg := pagination.FromContext(c, pagination.Standard)

	out, total, err := h.svc.List(c.Request().Context(), userID, f, pg)
	if err != nil {
		return err
	}
	return respond.List(c, out, pg.Block(len(out), total))
}

func (h *Handler) MarkRead(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	n, err := h.svc.MarkRead(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return respond.OK(c, n)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return respond.OKMessage(c, map[string]int{"marked_read": n}, "all notifications marked as read")
}

func (h *Handler) UnreadCount(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	count, err := h.svc.Unread(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return respond.OK(c, count)
}
