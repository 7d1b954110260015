package catalog

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/superonehealth/api/pkg/apitypes"
)

// Test is one bookable diagnostic test.
type Test struct {
	ID                 uuid.UUID                   `json:"id"`
	Name               string                      `json:"name"`
	Description        string                      `json:"description,omitempty"`
	Category           apitypes.HealthCategory     `json:"category"`
	Price              float64                     `json:"price"`
	FastingRequirement apitypes.FastingRequirement `json:"fasting_requirement"`
	SampleType         apitypes.SampleType         `json:"sample_type"`
	TurnaroundHours    int                         `json:"turnaround_hours"`
	Featured           bool                        `json:"featured"`
	Available          bool                        `json:"available"`
	Popularity         int                         `json:"popularity"`
	IsFavorite         bool                        `json:"is_favorite"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
}

// HealthPackage bundles tests at a discount. Savings and discount percentage
// are derived, never stored: savings = individual - package, discount =
// round(savings / individual * 100).
type HealthPackage struct {
	ID                 uuid.UUID               `json:"id"`
	Name               string                  `json:"name"`
	Description        string                  `json:"description,omitempty"`
	Category           apitypes.HealthCategory `json:"category"`
	PackagePrice       float64                 `json:"package_price"`
	IndividualPrice    float64                 `json:"individual_price"`
	Savings            float64                 `json:"savings"`
	DiscountPercentage int                     `json:"discount_percentage"`
	TestIDs            []uuid.UUID             `json:"test_ids"`
	Tests              []*Test                 `json:"tests,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

// derivePricing fills the computed pricing fields. A stored package price
// above the individual price violates the write-side constraint; reads clamp
// savings to zero rather than reporting a negative discount.
func (p *HealthPackage) derivePricing() {
	p.Savings = p.IndividualPrice - p.PackagePrice
	if p.Savings < 0 {
		p.Savings = 0
	}
	if p.IndividualPrice > 0 {
		p.DiscountPercentage = int(math.Round(p.Savings / p.IndividualPrice * 100))
	} else {
		p.DiscountPercentage = 0
	}
}

// TestFilters are the AND-composed query filters for GET /tests.
type TestFilters struct {
	Search          string
	Category        string
	PriceMin        *float64
	PriceMax        *float64
	FastingRequired *bool
	SampleType      string
	Featured        *bool
	Available       *bool
	SortBy          string
	SortOrder       string
}

// PackageFilters are the query filters for GET /packages.
type PackageFilters struct {
	Search       string
	Category     string
	PriceMin     *float64
	PriceMax     *float64
	TestCountMin *int
	TestCountMax *int
}

// Facet dimensions exposed as available_filters on the test list.
var testFacetDimensions = []string{"category", "sample_type", "fasting_requirement", "price_band"}

// Price bands used by the price_band facet.
const (
	priceBandLow  = "0-500"
	priceBandMid  = "500-1500"
	priceBandHigh = "1500-3000"
	priceBandTop  = "3000+"
)
