package catalog

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
	api.GET("/tests", h.ListTests)
	api.GET("/tests/search/suggestions", h.Suggestions)
	api.GET("/tests/:id", h.GetTest)
	api.POST("/tests/:id/favorite", h.AddFavorite)
	api.DELETE("/tests/:id/favorite", h.RemoveFavorite)
	api.GET("/favorites/tests", h.ListFavorites)

	api.GET("/packages", h.ListPackages)
	api.GET("/packages/:id", h.GetPackage)
}

func (h *Handler) ListTests(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}

	f := TestFilters{
		Search:          c.QueryParam("search"),
		Category:        c.QueryParam("category"),
		SampleType:      c.QueryParam("sample_type"),
		SortBy:          c.QueryParam("sort_by"),
		SortOrder:       c.QueryParam("sort_order"),
		PriceMin:        floatParam(c, "price_min"),
		PriceMax:        floatParam(c, "price_max"),
		FastingRequired: boolParam(c, "fasting_required"),
		Featured:        boolParam(c, "featured"),
		Available:       boolParam(c, "available"),
	}
	pg := pagination.FromContext(c, pagination.Tests)

	list, total, err := h.svc.ListTests(c.Request().Context(), userID, f, pg)
	if err != nil {
		return err
	}
	return respond.List(c, list, pg.Block(len(list.Tests), total))
}

func (h *Handler) GetTest(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "test not found")
	}
	t, err := h.svc.GetTest(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return respond.OK(c, t)
}

func (h *Handler) AddFavorite(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "test not found")
	}
	if err := h.svc.AddFavorite(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return respond.OKMessage(c, nil, "added to favorites")
}

func (h *Handler) RemoveFavorite(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "test not found")
	}
	if err := h.svc.RemoveFavorite(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return respond.OKMessage(c, nil, "removed from favorites")
}

func (h *Handler) ListFavorites(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c, pagination.Tests)
	tests, total, err := h.svc.ListFavorites(c.Request().Context(), userID, pg)
	if err != nil {
		return err
	}
	return respond.List(c, tests, pg.Block(len(tests), total))
}

func (h *Handler) Suggestions(c echo.Context) error {
	names, err := h.svc.Suggestions(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return respond.OK(c, map[string]interface{}{"suggestions": names})
}

func (h *Handler) ListPackages(c echo.Context) error {
	f := PackageFilters{
		Search:       c.QueryParam("search"),
		Category:     c.QueryParam("category"),
		PriceMin:     floatParam(c, "price_min"),
		PriceMax:     floatParam(c, "price_max"),
		TestCountMin: intParam(c, "test_count_min"),
		TestCountMax: intParam(c, "test_count_max"),
	}
	pg := pagination.FromContext(c, pagination.Packages)

	pkgs, total, err := h.svc.ListPackages(c.Request().Context(), f, pg)
	if err != nil {
		return err
	}
	return respond.List(c, pkgs, pg.Block(len(pkgs), total))
}

func (h *Handler) GetPackage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "package not found")
	}
	p, err := h.svc.GetPackage(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, p)
}

func floatParam(c echo.Context, name string) *float64 {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func intParam(c echo.Context, name string) *int {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

func boolParam(c echo.Context, name string) *bool {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}
