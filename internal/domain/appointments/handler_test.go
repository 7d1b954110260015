package appointments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/superonehealth/api/internal/platform/respond"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	svc, repo := newTestService()
	return NewHandler(svc), repo, echo.New()
}

func authedJSON(e *echo.Echo, method, target, body string, userID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID.String())
	return c, rec
}

func TestHandler_BookAndGet(t *testing.T) {
	h, repo, e := newTestHandler()
	f := repo.addFacility()
	userID := uuid.New()

	body := `{"facility_id":"` + f.ID.String() + `","service_type":"visit_lab","date":"2026-09-15","time_slot":"10:00"}`
	c, rec := authedJSON(e, http.MethodPost, "/api/v1/appointments", body, userID)
	if err := h.Book(c); err != nil {
		t.Fatalf("book: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var env struct {
		Success bool         `json:"success"`
		Data    *Appointment `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Data == nil {
		t.Fatalf("bad envelope: %s", rec.Body.String())
	}
	if !strings.HasPrefix(env.Data.ConfirmationNumber, "SO-") {
		t.Errorf("confirmation number %q missing prefix", env.Data.ConfirmationNumber)
	}

	gc, grec := authedJSON(e, http.MethodGet, "/api/v1/appointments/"+env.Data.ID.String(), "", userID)
	gc.SetParamNames("id")
	gc.SetParamValues(env.Data.ID.String())
	if err := h.Get(gc); err != nil {
		t.Fatalf("get: %v", err)
	}
	if grec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", grec.Code)
	}
}

func TestHandler_BookSlotConflict(t *testing.T) {
	h, repo, e := newTestHandler()
	f := repo.addFacility()

	body := `{"facility_id":"` + f.ID.String() + `","service_type":"visit_lab","date":"2026-09-15","time_slot":"10:00"}`
	c, _ := authedJSON(e, http.MethodPost, "/api/v1/appointments", body, uuid.New())
	if err := h.Book(c); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	c2, _ := authedJSON(e, http.MethodPost, "/api/v1/appointments", body, uuid.New())
	err := h.Book(c2)
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != http.StatusConflict {
		t.Fatalf("expected 409 conflict, got %v", err)
	}
}

func TestHandler_BookMissingFields(t *testing.T) {
	h, _, e := newTestHandler()

	c, _ := authedJSON(e, http.MethodPost, "/api/v1/appointments", `{}`, uuid.New())
	err := h.Book(c)
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 validation error, got %v", err)
	}
	if len(respErr.Fields) < 3 {
		t.Errorf("expected errors for every missing field, got %+v", respErr.Fields)
	}
}

func TestHandler_GetForeignAppointment(t *testing.T) {
	h, repo, e := newTestHandler()
	f := repo.addFacility()

	owner := uuid.New()
	body := `{"facility_id":"` + f.ID.String() + `","service_type":"visit_lab","date":"2026-09-15","time_slot":"10:00"}`
	c, rec := authedJSON(e, http.MethodPost, "/api/v1/appointments", body, owner)
	if err := h.Book(c); err != nil {
		t.Fatalf("book: %v", err)
	}
	var env struct {
		Data *Appointment `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}

	gc, _ := authedJSON(e, http.MethodGet, "/api/v1/appointments/"+env.Data.ID.String(), "", uuid.New())
	gc.SetParamNames("id")
	gc.SetParamValues(env.Data.ID.String())
	err := h.Get(gc)
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != http.StatusNotFound {
		t.Fatalf("foreign appointment must 404, got %v", err)
	}
}

func TestHandler_TimeSlots(t *testing.T) {
	h, repo, e := newTestHandler()
	f := repo.addFacility()

	c, rec := authedJSON(e, http.MethodGet, "/api/v1/timeslots/"+f.ID.String()+"?date=2026-09-15", "", uuid.New())
	c.SetParamNames("facilityId")
	c.SetParamValues(f.ID.String())
	if err := h.TimeSlots(c); err != nil {
		t.Fatalf("timeslots: %v", err)
	}

	var env struct {
		Data struct {
			Date  string     `json:"date"`
			Slots []TimeSlot `json:"slots"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 09:00-17:00 at 30 minutes is 16 slots.
	if len(env.Data.Slots) != 16 {
		t.Fatalf("got %d slots, want 16", len(env.Data.Slots))
	}
	if env.Data.Date != "2026-09-15" {
		t.Errorf("date echo = %q", env.Data.Date)
	}
}

func TestHandler_ListFiltersBadDate(t *testing.T) {
	h, _, e := newTestHandler()

	c, _ := authedJSON(e, http.MethodGet, "/api/v1/appointments?from=garbage", "", uuid.New())
	err := h.List(c)
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed from date, got %v", err)
	}
}

func TestHandler_CancelFlow(t *testing.T) {
	h, repo, e := newTestHandler()
	f := repo.addFacility()
	userID := uuid.New()

	body := `{"facility_id":"` + f.ID.String() + `","service_type":"visit_lab","date":"2026-09-15","time_slot":"10:00"}`
	c, rec := authedJSON(e, http.MethodPost, "/api/v1/appointments", body, userID)
	if err := h.Book(c); err != nil {
		t.Fatalf("book: %v", err)
	}
	var env struct {
		Data *Appointment `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}

	cc, crec := authedJSON(e, http.MethodPut, "/api/v1/appointments/"+env.Data.ID.String()+"/cancel", "", userID)
	cc.SetParamNames("id")
	cc.SetParamValues(env.Data.ID.String())
	if err := h.Cancel(cc); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if crec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", crec.Code)
	}
	var cenv struct {
		Data    *Appointment `json:"data"`
		Message string       `json:"message"`
	}
	if err := json.Unmarshal(crec.Body.Bytes(), &cenv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cenv.Data.CanCancel || cenv.Data.CanReschedule {
		t.Error("cancelled appointment should expose no actions")
	}
	if cenv.Message == "" {
		t.Error("cancel response missing message")
	}
}

func TestHandler_RescheduleBadID(t *testing.T) {
	h, _, e := newTestHandler()

	c, _ := authedJSON(e, http.MethodPut, "/api/v1/appointments/nope/reschedule",
		`{"date":"2026-09-16","time_slot":"11:00"}`, uuid.New())
	c.SetParamNames("id")
	c.SetParamValues("nope")
	err := h.Reschedule(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed id, got %v", err)
	}
}

func TestHandler_ListFacilities(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.addFacility()

	c, rec := authedJSON(e, http.MethodGet, "/api/v1/facilities?rating_min=4", "", uuid.New())
	if err := h.ListFacilities(c); err != nil {
		t.Fatalf("list facilities: %v", err)
	}

	var env struct {
		Data []*Facility `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 1 {
		t.Fatalf("expected 1 facility, got %d", len(env.Data))
	}
}
