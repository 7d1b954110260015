package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/superonehealth/api/internal/platform/cache"
	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/internal/platform/validate"
	"github.com/superonehealth/api/pkg/apitypes"
	"github.com/superonehealth/api/pkg/facets"
	"github.com/superonehealth/api/pkg/pagination"
)

const (
	suggestionLimit = 10

	defaultListTTL   = 30 * time.Minute
	defaultDetailTTL = 2 * time.Hour
)

type Service struct {
	repo      Repository
	cache     *cache.TTL
	listTTL   time.Duration
	detailTTL time.Duration
	logger    zerolog.Logger
}

func NewService(repo Repository, c *cache.TTL, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     c,
		listTTL:   defaultListTTL,
		detailTTL: defaultDetailTTL,
		logger:    logger,
	}
}

// SetTTLs overrides the cache lifetimes (config-driven).
func (s *Service) SetTTLs(list, detail time.Duration) {
	if list > 0 {
		s.listTTL = list
	}
	if detail > 0 {
		s.detailTTL = detail
	}
}

// TestList is the GET /tests payload: one page plus the facet block.
type TestList struct {
	Tests            []*Test                   `json:"tests"`
	AvailableFilters map[string][]facets.Count `json:"available_filters"`
}

func (s *Service) ListTests(ctx context.Context, userID uuid.UUID, f TestFilters, pg pagination.Params) (*TestList, int, error) {
	if fields := validate.RangePair("price_min", "price_max", f.PriceMin, f.PriceMax); fields != nil {
		return nil, 0, respond.Validation(fields)
	}
	if err := checkSort(f.SortBy, f.SortOrder); err != nil {
		return nil, 0, err
	}

	key := testListKey(f, pg)
	var list *TestList
	var total int
	if hit, ok := s.cache.Get(key); ok {
		entry := hit.(*testListEntry)
		list, total = entry.list, entry.total
	} else {
		tests, n, err := s.repo.ListTests(ctx, f, pg)
		if err != nil {
			return nil, 0, respond.Internal(err)
		}
		available, err := facets.Compute(ctx, s.repo, facetFilters(f), testFacetDimensions)
		if err != nil {
			return nil, 0, respond.Internal(err)
		}
		list = &TestList{Tests: tests, AvailableFilters: available}
		total = n
		s.cache.Set(key, &testListEntry{list: list, total: n}, s.listTTL)
	}

	return s.markFavorites(ctx, userID, list), total, nil
}

type testListEntry struct {
	list  *TestList
	total int
}

// markFavorites returns a copy of the cached page with per-user favorite
// flags applied. The cache itself never holds user-specific state.
func (s *Service) markFavorites(ctx context.Context, userID uuid.UUID, list *TestList) *TestList {
	favs, err := s.repo.FavoriteIDs(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("load favorite ids")
		favs = nil
	}
	out := &TestList{
		Tests:            make([]*Test, len(list.Tests)),
		AvailableFilters: list.AvailableFilters,
	}
	for i, t := range list.Tests {
		cp := *t
		cp.IsFavorite = favs[t.ID]
		out.Tests[i] = &cp
	}
	return out
}

func (s *Service) GetTest(ctx context.Context, userID, id uuid.UUID) (*Test, error) {
	key := "test:" + id.String()
	var t *Test
	if hit, ok := s.cache.Get(key); ok {
		t = hit.(*Test)
	} else {
		loaded, err := s.repo.GetTest(ctx, id)
		if err != nil {
			if errors.Is(err, ErrTestNotFound) {
				return nil, respond.NotFound("test", id.String())
			}
			return nil, respond.Internal(err)
		}
		s.cache.Set(key, loaded, s.detailTTL)
		t = loaded
	}

	favs, err := s.repo.FavoriteIDs(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("load favorite ids")
	}
	cp := *t
	cp.IsFavorite = favs[id]
	return &cp, nil
}

func (s *Service) AddFavorite(ctx context.Context, userID, testID uuid.UUID) error {
	if err := s.repo.AddFavorite(ctx, userID, testID); err != nil {
		if errors.Is(err, ErrTestNotFound) {
			return respond.NotFound("test", testID.String())
		}
		return respond.Internal(err)
	}
	return nil
}

func (s *Service) RemoveFavorite(ctx context.Context, userID, testID uuid.UUID) error {
	if err := s.repo.RemoveFavorite(ctx, userID, testID); err != nil {
		return respond.Internal(err)
	}
	return nil
}

func (s *Service) ListFavorites(ctx context.Context, userID uuid.UUID, pg pagination.Params) ([]*Test, int, error) {
	tests, total, err := s.repo.ListFavorites(ctx, userID, pg)
	if err != nil {
		return nil, 0, respond.Internal(err)
	}
	for _, t := range tests {
		t.IsFavorite = true
	}
	return tests, total, nil
}

func (s *Service) Suggestions(ctx context.Context, q string) ([]string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []string{}, nil
	}
	names, err := s.repo.Suggest(ctx, q, suggestionLimit)
	if err != nil {
		return nil, respond.Internal(err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *Service) ListPackages(ctx context.Context, f PackageFilters, pg pagination.Params) ([]*HealthPackage, int, error) {
	if fields := validate.RangePair("price_min", "price_max", f.PriceMin, f.PriceMax); fields != nil {
		return nil, 0, respond.Validation(fields)
	}
	if fields := validate.IntRangePair("test_count_min", "test_count_max", f.TestCountMin, f.TestCountMax); fields != nil {
		return nil, 0, respond.Validation(fields)
	}

	pkgs, total, err := s.repo.ListPackages(ctx, f, pg)
	if err != nil {
		return nil, 0, respond.Internal(err)
	}
	for _, p := range pkgs {
		s.checkPricing(p)
	}
	return pkgs, total, nil
}

func (s *Service) GetPackage(ctx context.Context, id uuid.UUID) (*HealthPackage, error) {
	key := "package:" + id.String()
	if hit, ok := s.cache.Get(key); ok {
		return hit.(*HealthPackage), nil
	}

	p, err := s.repo.GetPackage(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPackageNotFound) {
			return nil, respond.NotFound("package", id.String())
		}
		return nil, respond.Internal(err)
	}
	s.checkPricing(p)

	tests, err := s.repo.GetTestsByIDs(ctx, p.TestIDs)
	if err != nil {
		return nil, respond.Internal(err)
	}
	p.Tests = tests

	s.cache.Set(key, p, s.detailTTL)
	return p, nil
}

// checkPricing verifies the package_price <= individual_price invariant on
// the read path. The database constraint makes this unreachable, but a
// violation is worth a loud log rather than a negative discount on screen.
func (s *Service) checkPricing(p *HealthPackage) {
	if p.PackagePrice > p.IndividualPrice {
		s.logger.Error().
			Str("package_id", p.ID.String()).
			Float64("package_price", p.PackagePrice).
			Float64("individual_price", p.IndividualPrice).
			Msg("package pricing invariant violated")
	}
}

func checkSort(sortBy, sortOrder string) error {
	var fields []apitypes.FieldError
	switch sortBy {
	case "", "price", "name", "popularity":
	default:
		fields = append(fields, apitypes.FieldError{
			Field: "sort_by", Rule: "oneof",
			Message: "sort_by must be one of price, name, popularity",
		})
	}
	switch sortOrder {
	case "", "asc", "desc":
	default:
		fields = append(fields, apitypes.FieldError{
			Field: "sort_order", Rule: "oneof",
			Message: "sort_order must be asc or desc",
		})
	}
	if fields != nil {
		return respond.Validation(fields)
	}
	return nil
}

// facetFilters projects the active list filters onto facet dimensions.
func facetFilters(f TestFilters) facets.Filters {
	out := facets.Filters{}
	if f.Search != "" {
		out["search"] = f.Search
	}
	if f.Category != "" {
		out["category"] = f.Category
	}
	if f.SampleType != "" {
		out["sample_type"] = f.SampleType
	}
	if f.FastingRequired != nil {
		out["fasting_requirement"] = fmt.Sprintf("%t", *f.FastingRequired)
	}
	if f.Featured != nil {
		out["featured"] = fmt.Sprintf("%t", *f.Featured)
	}
	if f.Available != nil {
		out["available"] = fmt.Sprintf("%t", *f.Available)
	}
	if f.PriceMin != nil || f.PriceMax != nil {
		out["price_band"] = encodePriceBand(f.PriceMin, f.PriceMax)
	}
	return out
}

// testListKey builds the cache key for a filtered, paged test list.
func testListKey(f TestFilters, pg pagination.Params) string {
	return fmt.Sprintf("tests:%s|%s|%v|%v|%v|%s|%v|%v|%s|%s|%d|%d",
		f.Search, f.Category, ptrF(f.PriceMin), ptrF(f.PriceMax),
		ptrB(f.FastingRequired), f.SampleType, ptrB(f.Featured), ptrB(f.Available),
		f.SortBy, f.SortOrder, pg.Limit, pg.Offset)
}

func ptrF(v *float64) interface{} {
	if v == nil {
		return "-"
	}
	return *v
}

func ptrB(v *bool) interface{} {
	if v == nil {
		return "-"
	}
	return *v
}
