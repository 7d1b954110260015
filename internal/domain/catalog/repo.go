package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/superonehealth/api/pkg/facets"
	"github.com/superonehealth/api/pkg/pagination"
)

var (
	ErrTestNotFound    = errors.New("test not found")
	ErrPackageNotFound = errors.New("package not found")
)

type Repository interface {
	ListTests(ctx context.Context, f TestFilters, pg pagination.Params) ([]*Test, int, error)
	GetTest(ctx context.Context, id uuid.UUID) (*Test, error)
	GetTestsByIDs(ctx context.Context, ids []uuid.UUID) ([]*Test, error)
	// CountBy implements facets.Counter for the test facet dimensions.
	CountBy(ctx context.Context, dimension string, filters facets.Filters) ([]facets.Count, error)
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)

	AddFavorite(ctx context.Context, userID, testID uuid.UUID) error
	RemoveFavorite(ctx context.Context, userID, testID uuid.UUID) error
	ListFavorites(ctx context.Context, userID uuid.UUID, pg pagination.Params) ([]*Test, int, error)
	FavoriteIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)

	ListPackages(ctx context.Context, f PackageFilters, pg pagination.Params) ([]*HealthPackage, int, error)
	GetPackage(ctx context.Context, id uuid.UUID) (*HealthPackage, error)
}
