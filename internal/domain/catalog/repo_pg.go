package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/superonehealth/api/internal/platform/db"
	"github.com/superonehealth/api/pkg/facets"
	"github.com/superonehealth/api/pkg/pagination"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const testCols = `id, name, COALESCE(description, '') AS description, category, price, fasting_requirement,
	sample_type, turnaround_hours, featured, available, popularity,
	created_at, updated_at`

// testWhere builds the AND-composed filter clause for the tests table.
func testWhere(f TestFilters) (string, []interface{}) {
	where := "WHERE 1=1"
	var args []interface{}

	add := func(clause string, val interface{}) {
		args = append(args, val)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}

	if f.Search != "" {
		args = append(args, f.Search)
		n := len(args)
		where += fmt.Sprintf(" AND (name ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", n, n)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.PriceMin != nil {
		add("price >= $%d", *f.PriceMin)
	}
	if f.PriceMax != nil {
		add("price <= $%d", *f.PriceMax)
	}
	if f.FastingRequired != nil {
		if *f.FastingRequired {
			add("fasting_requirement <> $%d", "none")
		} else {
			add("fasting_requirement = $%d", "none")
		}
	}
	if f.SampleType != "" {
		add("sample_type = $%d", f.SampleType)
	}
	if f.Featured != nil {
		add("featured = $%d", *f.Featured)
	}
	if f.Available != nil {
		add("available = $%d", *f.Available)
	}
	return where, args
}

// testOrder maps the whitelisted sort keys onto ORDER BY clauses. The
// handler has already rejected anything outside the whitelist.
func testOrder(sortBy, sortOrder string) string {
	col := map[string]string{
		"price":      "price",
		"name":       "name",
		"popularity": "popularity",
	}[sortBy]
	if col == "" {
		col = "popularity"
	}
	dir := "DESC"
	if sortOrder == "asc" {
		dir = "ASC"
	} else if sortBy != "" && sortOrder == "" && sortBy != "popularity" {
		dir = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id", col, dir)
}

func (r *repoPG) ListTests(ctx context.Context, f TestFilters, pg pagination.Params) ([]*Test, int, error) {
	where, args := testWhere(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM tests `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + testCols + ` FROM tests ` + where + ` ` +
		testOrder(f.SortBy, f.SortOrder) + ` ` + pg.SQL()
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectTests(rows, total)
}

func (r *repoPG) GetTest(ctx context.Context, id uuid.UUID) (*Test, error) {
	t, err := scanTest(r.conn(ctx).QueryRow(ctx, `SELECT `+testCols+` FROM tests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTestNotFound
	}
	return t, err
}

func (r *repoPG) GetTestsByIDs(ctx context.Context, ids []uuid.UUID) ([]*Test, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+testCols+` FROM tests WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tests, _, err := collectTests(rows, 0)
	return tests, err
}

// facetColumns maps facet dimensions onto groupable SQL expressions.
var facetColumns = map[string]string{
	"category":            "category",
	"sample_type":         "sample_type",
	"fasting_requirement": "fasting_requirement",
	"price_band": `CASE
		WHEN price < 500 THEN '` + priceBandLow + `'
		WHEN price < 1500 THEN '` + priceBandMid + `'
		WHEN price < 3000 THEN '` + priceBandHigh + `'
		ELSE '` + priceBandTop + `' END`,
}

func (r *repoPG) CountBy(ctx context.Context, dimension string, filters facets.Filters) ([]facets.Count, error) {
	expr, ok := facetColumns[dimension]
	if !ok {
		return nil, fmt.Errorf("unknown facet dimension %q", dimension)
	}

	f := filtersToTestFilters(filters)
	where, args := testWhere(f)

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+expr+` AS bucket, COUNT(*) FROM tests `+where+` GROUP BY bucket ORDER BY bucket`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []facets.Count
	for rows.Next() {
		var c facets.Count
		if err := rows.Scan(&c.Value, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *repoPG) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT name FROM tests
		WHERE available AND name ILIKE $1 || '%'
		ORDER BY popularity DESC, name
		LIMIT $2`, prefix, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *repoPG) AddFavorite(ctx context.Context, userID, testID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO favorite_tests (user_id, test_id)
		SELECT $1, id FROM tests WHERE id = $2
		ON CONFLICT DO NOTHING`, userID, testID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the test does not exist or it was already a favorite;
		// distinguish so missing tests 404.
		if _, err := r.GetTest(ctx, testID); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) RemoveFavorite(ctx context.Context, userID, testID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM favorite_tests WHERE user_id = $1 AND test_id = $2`, userID, testID)
	return err
}

func (r *repoPG) ListFavorites(ctx context.Context, userID uuid.UUID, pg pagination.Params) ([]*Test, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM favorite_tests WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT t.id, t.name, COALESCE(t.description, '') AS description, t.category,
			t.price, t.fasting_requirement, t.sample_type, t.turnaround_hours,
			t.featured, t.available, t.popularity, t.created_at, t.updated_at
		FROM favorite_tests f
		JOIN tests t ON t.id = f.test_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC `+pg.SQL(), userID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectTests(rows, total)
}

func (r *repoPG) FavoriteIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT test_id FROM favorite_tests WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

const pkgCols = `p.id, p.name, COALESCE(p.description, '') AS description, p.category, p.package_price,
	p.individual_price, p.created_at, p.updated_at`

func packageWhere(f PackageFilters) (string, []interface{}) {
	where := "WHERE 1=1"
	var args []interface{}

	add := func(clause string, val interface{}) {
		args = append(args, val)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}

	if f.Search != "" {
		add("p.name ILIKE '%%' || $%d || '%%'", f.Search)
	}
	if f.Category != "" {
		add("p.category = $%d", f.Category)
	}
	if f.PriceMin != nil {
		add("p.package_price >= $%d", *f.PriceMin)
	}
	if f.PriceMax != nil {
		add("p.package_price <= $%d", *f.PriceMax)
	}
	if f.TestCountMin != nil {
		add("(SELECT COUNT(*) FROM package_tests pt WHERE pt.package_id = p.id) >= $%d", *f.TestCountMin)
	}
	if f.TestCountMax != nil {
		add("(SELECT COUNT(*) FROM package_tests pt WHERE pt.package_id = p.id) <= $%d", *f.TestCountMax)
	}
	return where, args
}

func (r *repoPG) ListPackages(ctx context.Context, f PackageFilters, pg pagination.Params) ([]*HealthPackage, int, error) {
	where, args := packageWhere(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM packages p `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+pkgCols+`,
			COALESCE(array_agg(pt.test_id) FILTER (WHERE pt.test_id IS NOT NULL), '{}')
		FROM packages p
		LEFT JOIN package_tests pt ON pt.package_id = p.id
		`+where+`
		GROUP BY p.id
		ORDER BY p.package_price, p.id `+pg.SQL(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var pkgs []*HealthPackage
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, 0, err
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, total, rows.Err()
}

func (r *repoPG) GetPackage(ctx context.Context, id uuid.UUID) (*HealthPackage, error) {
	p, err := scanPackage(r.conn(ctx).QueryRow(ctx, `
		SELECT `+pkgCols+`,
			COALESCE(array_agg(pt.test_id) FILTER (WHERE pt.test_id IS NOT NULL), '{}')
		FROM packages p
		LEFT JOIN package_tests pt ON pt.package_id = p.id
		WHERE p.id = $1
		GROUP BY p.id`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	return p, err
}

func scanTest(row pgx.Row) (*Test, error) {
	var t Test
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Category, &t.Price, &t.FastingRequirement,
		&t.SampleType, &t.TurnaroundHours, &t.Featured, &t.Available, &t.Popularity,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTests(rows pgx.Rows, total int) ([]*Test, int, error) {
	var tests []*Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, 0, err
		}
		tests = append(tests, t)
	}
	return tests, total, rows.Err()
}

func scanPackage(row pgx.Row) (*HealthPackage, error) {
	var p HealthPackage
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.PackagePrice,
		&p.IndividualPrice, &p.CreatedAt, &p.UpdatedAt, &p.TestIDs,
	)
	if err != nil {
		return nil, err
	}
	p.derivePricing()
	return &p, nil
}

// filtersToTestFilters converts a facet filter map back into the SQL filter
// struct. Facet counting reuses the exact WHERE builder the list uses, so
// the numbers always agree with what selecting the value would return. The
// price constraint travels under the "price_band" key ("min,max" with empty
// slots) so dropping that one dimension drops both bounds.
func filtersToTestFilters(f facets.Filters) TestFilters {
	tf := TestFilters{
		Search:     f["search"],
		Category:   f["category"],
		SampleType: f["sample_type"],
	}
	if v, ok := f["fasting_requirement"]; ok {
		b := v == "true"
		tf.FastingRequired = &b
	}
	if v, ok := f["featured"]; ok {
		b := v == "true"
		tf.Featured = &b
	}
	if v, ok := f["available"]; ok {
		b := v == "true"
		tf.Available = &b
	}
	if v, ok := f["price_band"]; ok {
		if minStr, maxStr, found := strings.Cut(v, ","); found {
			if x, err := strconv.ParseFloat(minStr, 64); err == nil {
				tf.PriceMin = &x
			}
			if x, err := strconv.ParseFloat(maxStr, 64); err == nil {
				tf.PriceMax = &x
			}
		}
	}
	return tf
}

// encodePriceBand packs optional price bounds into the facet filter value
// read back by filtersToTestFilters.
func encodePriceBand(min, max *float64) string {
	var minStr, maxStr string
	if min != nil {
		minStr = strconv.FormatFloat(*min, 'f', -1, 64)
	}
	if max != nil {
		maxStr = strconv.FormatFloat(*max, 'f', -1, 64)
	}
	return minStr + "," + maxStr
}
