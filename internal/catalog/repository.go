package catalog

import (
	"context"
	"strings"

	"github.com/angelmondragon/littlemirai-storefront/internal/repo"
	"github.com/angelmondragon/littlemirai-storefront/pkg/db"
	"github.com/angelmondragon/littlemirai-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"gorm.io/gorm"
)

// Repository reads catalog products.
type Repository interface {
	List(ctx context.Context, filters Filters) ([]Product, error)
	Get(ctx context.Context, id int64) (*Product, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(conn)}
}

// List applies the column filters in SQL. Size matching and pagination are
// left to the service since sizes are stored as a JSON list.
func (r *repository) List(ctx context.Context, filters Filters) ([]Product, error) {
	q := r.Query(ctx, &Product{})

	if len(filters.Categories) > 0 {
		q = q.Where("category IN ?", filters.Categories)
	}
	if len(filters.PriceRanges) > 0 {
		clauses := make([]string, 0, len(filters.PriceRanges))
		args := make([]any, 0, len(filters.PriceRanges)*2)
		for _, pr := range filters.PriceRanges {
			bounds, ok := priceRangeBounds[pr]
			if !ok {
				continue
			}
			if bounds.max == nil {
				clauses = append(clauses, "(price >= ?)")
				args = append(args, bounds.min.InexactFloat64())
				continue
			}
			clauses = append(clauses, "(price >= ? AND price < ?)")
			args = append(args, bounds.min.InexactFloat64(), bounds.max.InexactFloat64())
		}
		if len(clauses) > 0 {
			q = q.Where(strings.Join(clauses, " OR "), args...)
		}
	}
	if filters.SaleOnly {
		q = q.Where("is_sale = ?", true)
	}
	if filters.NewOnly {
		q = q.Where("is_new = ?", true)
	}
	if query := strings.TrimSpace(filters.Query); query != "" {
		pattern := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var products []Product
	if err := q.Order(orderClause(filters.Sort)).Find(&products).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Product, error) {
	var product Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get product")
	}
	return &product, nil
}

func orderClause(sort enums.ProductSort) string {
	switch sort {
	case enums.ProductSortPriceAsc:
		return "price ASC, id ASC"
	case enums.ProductSortPriceDesc:
		return "price DESC, id ASC"
	case enums.ProductSortRating:
		return "rating DESC, review_count DESC, id ASC"
	case enums.ProductSortNewest:
		return "is_new DESC, created_at DESC, id DESC"
	case enums.ProductSortName:
		return "name ASC, id ASC"
	default:
		return "id ASC"
	}
}
