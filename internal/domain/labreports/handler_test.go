package labreports

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/pkg/apitypes"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _, _, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func multipartUpload(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, content := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
		hdr.Set("Content-Type", "application/pdf")
		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func uploadContext(e *echo.Echo, target string, body *bytes.Buffer, contentType string, userID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID.String())
	return c, rec
}

func TestHandler_Upload(t *testing.T) {
	h, e := newTestHandler()

	body, ct := multipartUpload(t, "file", map[string]string{"cbc.pdf": "%PDF-1.4 fake"})
	c, rec := uploadContext(e, "/api/v1/upload/lab-report", body, ct, uuid.New())
	if err := h.Upload(c); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var env struct {
		Success bool       `json:"success"`
		Data    *LabReport `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Data == nil {
		t.Fatalf("bad envelope: %s", rec.Body.String())
	}
	if env.Data.ProcessingStatus != apitypes.ProcessingPending {
		t.Errorf("status = %s, want pending", env.Data.ProcessingStatus)
	}
	if env.Data.FileName != "cbc.pdf" {
		t.Errorf("file name = %q", env.Data.FileName)
	}
}

func TestHandler_UploadMissingFile(t *testing.T) {
	h, e := newTestHandler()

	body, ct := multipartUpload(t, "other", map[string]string{"cbc.pdf": "x"})
	c, _ := uploadContext(e, "/api/v1/upload/lab-report", body, ct, uuid.New())
	err := h.Upload(c)
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 without file part, got %v", err)
	}
}

func TestHandler_UploadBatch(t *testing.T) {
	h, e := newTestHandler()

	body, ct := multipartUpload(t, "files", map[string]string{
		"a.pdf": "%PDF a",
		"b.pdf": "%PDF b",
	})
	c, rec := uploadContext(e, "/api/v1/upload/lab-reports/batch", body, ct, uuid.New())
	if err := h.UploadBatch(c); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var env struct {
		Data []BatchResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 2 {
		t.Fatalf("got %d results, want 2", len(env.Data))
	}
	for _, r := range env.Data {
		if !r.Accepted {
			t.Errorf("file %s rejected: %+v", r.FileName, r.Errors)
		}
	}
}

func TestHandler_UploadBatchTooMany(t *testing.T) {
	h, e := newTestHandler()

	files := map[string]string{}
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		files[n+".pdf"] = "%PDF " + n
	}
	body, ct := multipartUpload(t, "files", files)
	c, _ := uploadContext(e, "/api/v1/upload/lab-reports/batch", body, ct, uuid.New())
	err := h.UploadBatch(c)
	respErr := respond.AsError(err)
	if respErr == nil || respErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for 6 files, got %v", err)
	}
}

func TestHandler_StatusAndHistory(t *testing.T) {
	h, e := newTestHandler()
	userID := uuid.New()

	body, ct := multipartUpload(t, "file", map[string]string{"cbc.pdf": "%PDF"})
	c, rec := uploadContext(e, "/api/v1/upload/lab-report", body, ct, userID)
	if err := h.Upload(c); err != nil {
		t.Fatalf("upload: %v", err)
	}
	var env struct {
		Data *LabReport `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}

	sreq := httptest.NewRequest(http.MethodGet, "/api/v1/upload/status/"+env.Data.ID.String(), nil)
	srec := httptest.NewRecorder()
	sc := e.NewContext(sreq, srec)
	sc.Set("user_id", userID.String())
	sc.SetParamNames("id")
	sc.SetParamValues(env.Data.ID.String())
	if err := h.Status(sc); err != nil {
		t.Fatalf("status: %v", err)
	}
	var senv struct {
		Data *UploadStatus `json:"data"`
	}
	if err := json.Unmarshal(srec.Body.Bytes(), &senv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if senv.Data.Status != apitypes.ProcessingPending || senv.Data.Progress != 0 {
		t.Errorf("status wrong: %+v", senv.Data)
	}

	hreq := httptest.NewRequest(http.MethodGet, "/api/v1/upload/history?status=pending", nil)
	hrec := httptest.NewRecorder()
	hc := e.NewContext(hreq, hrec)
	hc.Set("user_id", userID.String())
	if err := h.History(hc); err != nil {
		t.Fatalf("history: %v", err)
	}
	var henv struct {
		Data       []*LabReport         `json:"data"`
		Pagination *apitypes.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(hrec.Body.Bytes(), &henv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(henv.Data) != 1 || henv.Pagination == nil || henv.Pagination.Total != 1 {
		t.Fatalf("history wrong: %s", hrec.Body.String())
	}
}

func TestHandler_DeleteBadID(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reports/nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uuid.NewString())
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := h.Delete(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed id, got %v", err)
	}
}
