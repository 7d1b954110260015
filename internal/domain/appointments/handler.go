package appointments

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/superonehealth/api/internal/platform/auth"
	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/pkg/apitypes"
	"github.com/superonehealth/api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/facilities", h.ListFacilities)
	api.GET("/facilities/:id", h.GetFacility)
	api.GET("/timeslots/:facilityId", h.TimeSlots)

	api.POST("/appointments", h.Book)
	api.GET("/appointments", h.List)
	api.GET("/appointments/:id", h.Get)
	api.PUT("/appointments/:id/cancel", h.Cancel)
	api.PUT("/appointments/:id/reschedule", h.Reschedule)
}

func (h *Handler) ListFacilities(c echo.Context) error {
	f := FacilityFilters{
		Search:    c.QueryParam("search"),
		Type:      c.QueryParam("type"),
		Service:   c.QueryParam("service"),
		Latitude:  floatParam(c, "lat"),
		Longitude: floatParam(c, "lng"),
		RadiusKm:  floatParam(c, "radius_km"),
		RatingMin: floatParam(c, "rating_min"),
	}
	pg := pagination.FromContext(c, pagination.Standard)

	facilities, total, err := h.svc.ListFacilities(c.Request().Context(), f, pg)
	if err != nil {
		return err
	}
	return respond.List(c, facilities, pg.Block(len(facilities), total))
}

func (h *Handler) GetFacility(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "facility not found")
	}
	f, err := h.svc.GetFacility(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, f)
}

func (h *Handler) TimeSlots(c echo.Context) error {
	facilityID, err := uuid.Parse(c.Param("facilityId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "facility not found")
	}
	slots, err := h.svc.TimeSlots(c.Request().Context(), facilityID, c.QueryParam("date"))
	if err != nil {
		return err
	}
	return respond.OK(c, map[string]interface{}{"date": c.QueryParam("date"), "slots": slots})
}

func (h *Handler) Book(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	appt, err := h.svc.Book(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	return respond.Created(c, appt)
}

func (h *Handler) List(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}

	f := AppointmentFilters{Status: c.QueryParam("status")}
	if v, err := strconv.ParseBool(c.QueryParam("upcoming")); err == nil {
		f.Upcoming = v
	}
	if raw := c.QueryParam("from"); raw != "" {
		d, err := apitypes.ParseDate(raw)
		if err != nil {
			return respond.Validation([]apitypes.FieldError{{Field: "from", Rule: "dateonly", Message: err.Error()}})
		}
		f.From = &d
	}
	if raw := c.QueryParam("to"); raw != "" {
		d, err := apitypes.ParseDate(raw)
		if err != nil {
			return respond.Validation([]apitypes.FieldError{{Field: "to", Rule: "dateonly", Message: err.Error()}})
		}
		f.To = &d
	}
	pg := pagination.FromContext(c, pagination.Standard)

	appts, total, err := h.svc.List(c.Request().Context(), userID, f, pg)
	if err != nil {
		return err
	}
	return respond.List(c, appts, pg.Block(len(appts), total))
}

func (h *Handler) Get(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	appt, err := h.svc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return respond.OK(c, appt)
}

func (h *Handler) Cancel(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	appt, err := h.svc.Cancel(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return respond.OKMessage(c, appt, "appointment cancelled")
}

func (h *Handler) Reschedule(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	var req RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	appt, err := h.svc.Reschedule(c.Request().Context(), userID, id, req)
	if err != nil {
		return err
	}
	return respond.OKMessage(c, appt, "appointment rescheduled")
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
