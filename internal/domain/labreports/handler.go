package labreports

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/superonehealth/api/internal/platform/auth"
	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/internal/platform/validate"
	"github.com/superonehealth/api/pkg/apitypes"
	"github.com/superonehealth/api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the upload endpoints on the (longer-timeout) upload
// group and the report reads on the standard group.
func (h *Handler) RegisterRoutes(api, upload *echo.Group) {
	upload.POST("/upload/lab-report", h.Upload)
	upload.POST("/upload/lab-reports/batch", h.UploadBatch)

	api.GET("/upload/status/:id", h.Status)
	api.GET("/upload/history", h.History)
	api.GET("/reports/:id", h.Get)
	api.DELETE("/reports/:id", h.Delete)
	api.POST("/reports/:id/resubmit", h.Resubmit)
}

func (h *Handler) Upload(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return respond.Validation([]apitypes.FieldError{{
			Field: "file", Rule: "required", Message: "multipart field \"file\" is required",
		}})
	}
	up, err := readUpload(c, fh)
	if err != nil {
		return err
	}
	rpt, err := h.svc.UploadReport(c.Request().Context(), userID, up)
	if err != nil {
		return err
	}
	return respond.Created(c, rpt)
}

func (h *Handler) UploadBatch(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return respond.Validation([]apitypes.FieldError{{
			Field: "files", Rule: "required", Message: "multipart form with \"files\" is required",
		}})
	}
	headers := form.File["files"]
	if len(headers) > validate.MaxBatchFiles {
		// Reject before reading any bytes.
		return respond.Validation([]apitypes.FieldError{{
			Field: "files", Rule: "max",
			Message: fmt.Sprintf("at most %d files per batch", validate.MaxBatchFiles),
		}})
	}

	ups := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		up, err := readUpload(c, fh)
		if err != nil {
			return err
		}
		ups = append(ups, up)
	}

	results, err := h.svc.UploadBatch(c.Request().Context(), userID, ups)
	if err != nil {
		return err
	}
	return respond.OK(c, results)
}

func (h *Handler) Status(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	status, err := h.svc.Status(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return respond.OK(c, status)
}

func (h *Handler) History(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	f := Filters{
		Status:   c.QueryParam("status"),
		Category: c.QueryParam("category"),
	}
	pg := pagination.FromContext(c, pagination.Standard)

	reports, total, err := h.svc.History(c.Request().Context(), userID, f, pg)
	if err != nil {
		return err
	}
	return respond.List(c, reports, pg.Block(len(reports), total))
}

func (h *Handler) Get(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	rpt, err := h.svc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return respond.OK(c, rpt)
}

func (h *Handler) Delete(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	if err := h.svc.Delete(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return respond.OKMessage(c, nil, "report deleted")
}

func (h *Handler) Resubmit(c echo.Context) error {
	userID, err := auth.UserUUID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	rpt, err := h.svc.Resubmit(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return respond.OKMessage(c, rpt, "report resubmitted for processing")
}

// readUpload pulls one multipart file into memory. Oversized files are
// cut off at the limit and rejected by metadata validation.
func readUpload(c echo.Context, fh *multipart.FileHeader) (Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return Upload{}, respond.Internal(err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, validate.MaxUploadBytes+1))
	if err != nil {
		return Upload{}, respond.Internal(err)
	}
	return Upload{
		FileName:     fh.Filename,
		Size:         fh.Size,
		MimeType:     fh.Header.Get(echo.HeaderContentType),
		DocumentType: c.FormValue("document_type"),
		Category:     c.FormValue("category"),
		Content:      content,
	}, nil
}
