package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/angelmondragon/littlemirai-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/pagination"
	"github.com/shopspring/decimal"
)

// Filters are the knobs of the catalog filter panel. Multi-value filters match any-of.
type Filters struct {
	Categories  []enums.ProductCategory
	Sizes       []string
	AgeGroups   []enums.AgeGroup
	PriceRanges []enums.PriceRange
	SaleOnly    bool
	NewOnly     bool
	Query       string
	Sort        enums.ProductSort
	Pagination  pagination.Params
}

// SizeSet merges explicit sizes with the sizes implied by age groups.
func (f Filters) SizeSet() []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(size string) {
		if size == "" {
			return
		}
		if _, ok := seen[size]; ok {
			return
		}
		seen[size] = struct{}{}
		out = append(out, size)
	}
	for _, size := range f.Sizes {
		add(size)
	}
	for _, group := range f.AgeGroups {
		add(group.Size())
	}
	return out
}

// ActiveCount mirrors the badge on the filter toggle.
func (f Filters) ActiveCount() int {
	n := len(f.Categories) + len(f.Sizes) + len(f.AgeGroups) + len(f.PriceRanges)
	if f.SaleOnly {
		n++
	}
	if f.NewOnly {
		n++
	}
	return n
}

type priceBounds struct {
	min decimal.Decimal
	max *decimal.Decimal
}

// Buckets are half-open so every price lands in exactly one.
var priceRangeBounds = map[enums.PriceRange]priceBounds{
	enums.PriceRangeUnder25: {min: decimal.Zero, max: decimalPtr(25)},
	enums.PriceRange25To50:  {min: decimal.NewFromInt(25), max: decimalPtr(50)},
	enums.PriceRangeOver50:  {min: decimal.NewFromInt(50)},
}

func decimalPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// ParseFilters reads filters from query parameters. Repeated keys and comma
// separated values are both accepted.
func ParseFilters(values url.Values) (Filters, error) {
	var f Filters
	var invalid []string

	for _, raw := range multi(values, "category") {
		category, err := enums.ParseProductCategory(raw)
		if err != nil {
			invalid = append(invalid, "category")
			continue
		}
		f.Categories = append(f.Categories, category)
	}
	f.Sizes = multi(values, "size")
	for _, raw := range multi(values, "age_group") {
		group, err := enums.ParseAgeGroup(raw)
		if err != nil {
			invalid = append(invalid, "age_group")
			continue
		}
		f.AgeGroups = append(f.AgeGroups, group)
	}
	for _, raw := range multi(values, "price_range") {
		r, err := enums.ParsePriceRange(raw)
		if err != nil {
			invalid = append(invalid, "price_range")
			continue
		}
		f.PriceRanges = append(f.PriceRanges, r)
	}

	var err error
	if f.SaleOnly, err = parseBool(values.Get("sale")); err != nil {
		invalid = append(invalid, "sale")
	}
	if f.NewOnly, err = parseBool(values.Get("new")); err != nil {
		invalid = append(invalid, "new")
	}
	f.Query = strings.TrimSpace(values.Get("q"))

	if f.Sort, err = enums.ParseProductSort(values.Get("sort")); err != nil {
		invalid = append(invalid, "sort")
	}
	if f.Pagination.Limit, err = parseInt(values.Get("limit")); err != nil {
		invalid = append(invalid, "limit")
	}
	if f.Pagination.Page, err = parseInt(values.Get("page")); err != nil {
		invalid = append(invalid, "page")
	}

	if len(invalid) > 0 {
		return Filters{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid catalog filters").
			WithDetails(map[string]any{"fields": invalid})
	}
	return f, nil
}

func multi(values url.Values, key string) []string {
	var out []string
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
