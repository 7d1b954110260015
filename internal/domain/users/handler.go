package users

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/superonehealth/api/internal/platform/auth"
	"github.com/superonehealth/api/internal/platform/respond"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the auth endpoints onto the public group and the
// profile endpoints onto the authenticated group.
func (h *Handler) RegisterRoutes(public, authed *echo.Group) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)
	public.POST("/auth/refresh", h.Refresh)
	public.POST("/auth/forgot-password", h.ForgotPassword)

	authed.POST("/auth/logout", h.Logout)
	authed.GET("/users/me", h.Me)
	authed.PUT("/users/me", h.UpdateMe)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	session, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return respond.Created(c, session)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	session, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return respond.OK(c, session)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	session, err := h.svc.Refresh(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return respond.OK(c, session)
}

func (h *Handler) Logout(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := h.svc.Logout(c.Request().Context(), userID, req); err != nil {
		return err
	}
	return respond.OKMessage(c, nil, "logged out")
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := h.svc.ForgotPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return respond.OKMessage(c, nil, "if the account exists, a reset email has been sent")
}

func (h *Handler) Me(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.Profile(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return respond.OK(c, u)
}

func (h *Handler) UpdateMe(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	return respond.OK(c, u)
}
