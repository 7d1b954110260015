// Package pagination implements the shared offset/limit paging used by every
// list endpoint. Defaults and caps vary per resource; the response block is
// always {offset, limit, total, has_more}.
package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/superonehealth/api/pkg/apitypes"
)

// Defaults is the per-resource paging policy.
type Defaults struct {
	Limit int
	Max   int
}

// Per-resource policies. Catalog endpoints page smaller than the rest.
var (
	Standard = Defaults{Limit: 20, Max: 100}
	Tests    = Defaults{Limit: 20, Max: 50}
	Packages = Defaults{Limit: 10, Max: 20}
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts offset/limit from the echo context, clamping to the
// resource's policy. Negative or malformed values fall back to defaults.
func FromContext(c echo.Context, d Defaults) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = d.Limit
	}
	if limit > d.Max {
		limit = d.Max
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Block builds the envelope pagination block for a page of returned items.
// has_more is computed from the returned count, not the requested limit, so a
// short final page reports correctly.
func (p Params) Block(returned, total int) *apitypes.Pagination {
	return &apitypes.Pagination{
		Offset:  p.Offset,
		Limit:   p.Limit,
		Total:   total,
		HasMore: p.Offset+returned < total,
	}
}

// SQL returns the LIMIT/OFFSET clause for hand-written queries.
func (p Params) SQL() string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.Limit, p.Offset)
}

// HasNext reports whether results exist past the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page, clamped at 0.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}
