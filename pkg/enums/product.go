package enums

import "fmt"

// ProductCategory represents the catalog categories shown in the filter panel.
type ProductCategory string

const (
	ProductCategoryClothing    ProductCategory = "Clothing"
	ProductCategoryFootwear    ProductCategory = "Footwear"
	ProductCategoryAccessories ProductCategory = "Accessories"
	ProductCategoryHeadwear    ProductCategory = "Headwear"
)

var validProductCategories = []ProductCategory{
	ProductCategoryClothing,
	ProductCategoryFootwear,
	ProductCategoryAccessories,
	ProductCategoryHeadwear,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}

// AgeGroup maps a shopper-facing age bracket onto a garment size.
type AgeGroup string

const (
	AgeGroupNewborn AgeGroup = "Newborn"
	AgeGroupInfant  AgeGroup = "Infant"
	AgeGroupToddler AgeGroup = "Toddler"
	AgeGroupWalker  AgeGroup = "Walker"
)

var ageGroupSizes = map[AgeGroup]string{
	AgeGroupNewborn: "0-3M",
	AgeGroupInfant:  "3-6M",
	AgeGroupToddler: "6-12M",
	AgeGroupWalker:  "12-18M",
}

// Size returns the garment size matching the age group.
func (a AgeGroup) Size() string {
	return ageGroupSizes[a]
}

// IsValid reports whether the value is a known AgeGroup.
func (a AgeGroup) IsValid() bool {
	_, ok := ageGroupSizes[a]
	return ok
}

// ParseAgeGroup converts raw input into an AgeGroup.
func ParseAgeGroup(value string) (AgeGroup, error) {
	group := AgeGroup(value)
	if !group.IsValid() {
		return "", fmt.Errorf("invalid age group %q", value)
	}
	return group, nil
}

// PriceRange is one of the fixed price buckets offered by the filter panel.
type PriceRange string

const (
	PriceRangeUnder25 PriceRange = "0-25"
	PriceRange25To50  PriceRange = "25-50"
	PriceRangeOver50  PriceRange = "50+"
)

var validPriceRanges = []PriceRange{
	PriceRangeUnder25,
	PriceRange25To50,
	PriceRangeOver50,
}

// IsValid reports whether the value is a known PriceRange.
func (p PriceRange) IsValid() bool {
	for _, candidate := range validPriceRanges {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePriceRange converts raw input into a PriceRange.
func ParsePriceRange(value string) (PriceRange, error) {
	for _, candidate := range validPriceRanges {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price range %q", value)
}

// ProductSort controls catalog ordering.
type ProductSort string

const (
	ProductSortFeatured  ProductSort = "featured"
	ProductSortPriceAsc  ProductSort = "price_asc"
	ProductSortPriceDesc ProductSort = "price_desc"
	ProductSortRating    ProductSort = "rating"
	ProductSortNewest    ProductSort = "newest"
	ProductSortName      ProductSort = "name"
)

var validProductSorts = []ProductSort{
	ProductSortFeatured,
	ProductSortPriceAsc,
	ProductSortPriceDesc,
	ProductSortRating,
	ProductSortNewest,
	ProductSortName,
}

// IsValid reports whether the value is a known ProductSort.
func (s ProductSort) IsValid() bool {
	for _, candidate := range validProductSorts {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductSort converts raw input into a ProductSort; empty input means featured.
func ParseProductSort(value string) (ProductSort, error) {
	if value == "" {
		return ProductSortFeatured, nil
	}
	for _, candidate := range validProductSorts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort %q", value)
}
