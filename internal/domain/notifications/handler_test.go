package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/superonehealth/api/pkg/apitypes"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	svc, repo, _ := newTestService()
	return NewHandler(svc), repo, echo.New()
}

func authedReq(e *echo.Echo, method, target string, userID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID.String())
	return c, rec
}

func TestHandler_ListUnreadOnly(t *testing.T) {
	h, repo, e := newTestHandler()
	userID := uuid.New()
	seed(repo, userID, apitypes.NotificationReport, false)
	seed(repo, userID, apitypes.NotificationReport, true)

	c, rec := authedReq(e, http.MethodGet, "/api/v1/notifications?unread_only=true", userID)
	if err := h.List(c); err != nil {
		t.Fatalf("list: %v", err)
	}

	var env struct {
		Data       []*Notification      `json:"data"`
		Pagination *apitypes.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 1 || env.Data[0].IsRead {
		t.Fatalf("unread filter wrong: %s", rec.Body.String())
	}
	if env.Pagination == nil || env.Pagination.Total != 1 {
		t.Errorf("pagination block wrong: %+v", env.Pagination)
	}
}

func TestHandler_MarkReadRoundTrip(t *testing.T) {
	h, repo, e := newTestHandler()
	userID := uuid.New()
	n := seed(repo, userID, apitypes.NotificationHealth, false)

	c, rec := authedReq(e, http.MethodPut, "/api/v1/notifications/"+n.ID.String()+"/read", userID)
	c.SetParamNames("id")
	c.SetParamValues(n.ID.String())
	if err := h.MarkRead(c); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	cc, crec := authedReq(e, http.MethodGet, "/api/v1/notifications/unread-count", userID)
	if err := h.UnreadCount(cc); err != nil {
		t.Fatalf("unread count: %v", err)
	}
	var env struct {
		Data *UnreadCount `json:"data"`
	}
	if err := json.Unmarshal(crec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Count != 0 {
		t.Errorf("count = %d, want 0", env.Data.Count)
	}
}

func TestHandler_MarkAllRead(t *testing.T) {
	h, repo, e := newTestHandler()
	userID := uuid.New()
	seed(repo, userID, apitypes.NotificationReport, false)
	seed(repo, userID, apitypes.NotificationHealth, false)

	c, rec := authedReq(e, http.MethodPut, "/api/v1/notifications/read-all", userID)
	if err := h.MarkAllRead(c); err != nil {
		t.Fatalf("mark all read: %v", err)
	}

	var env struct {
		Data    map[string]int `json:"data"`
		Message string         `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data["marked_read"] != 2 {
		t.Errorf("marked_read = %d, want 2", env.Data["marked_read"])
	}
	if env.Message == "" {
		t.Error("message missing")
	}
}

func TestHandler_MarkReadBadID(t *testing.T) {
	h, _, e := newTestHandler()

	c, _ := authedReq(e, http.MethodPut, "/api/v1/notifications/nope/read", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues("nope")
	err := h.MarkRead(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed id, got %v", err)
	}
}
