package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/littlemirai-storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
	"github.com/angelmondragon/littlemirai-storefront/pkg/pagination"
	"golang.org/x/sync/singleflight"
)

// Page is one page of catalog results.
type Page struct {
	Products []Product          `json:"products"`
	Page     pagination.PageInfo `json:"page"`
}

// Service exposes catalog reads to controllers.
type Service interface {
	List(ctx context.Context, filters Filters) (*Page, error)
	Get(ctx context.Context, id int64) (*Product, error)
}

type service struct {
	repo   Repository
	logg   *logger.Logger
	lookup singleflight.Group
}

// NewService builds a catalog service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) List(ctx context.Context, filters Filters) (*Page, error) {
	products, err := s.repo.List(ctx, filters)
	if err != nil {
		s.logg.Error(ctx, "catalog list failed", err)
		return nil, err
	}

	if sizes := filters.SizeSet(); len(sizes) > 0 {
		matched := products[:0]
		for _, p := range products {
			if offersAny(p, sizes) {
				matched = append(matched, p)
			}
		}
		products = matched
	}

	start, end := filters.Pagination.Window(len(products))
	return &Page{
		Products: append([]Product{}, products[start:end]...),
		Page:     filters.Pagination.Info(len(products)),
	}, nil
}

// Get collapses concurrent lookups of the same product into one query.
func (s *service) Get(ctx context.Context, id int64) (*Product, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	v, err, _ := s.lookup.Do(strconv.FormatInt(id, 10), func() (any, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			s.logg.Error(ctx, "catalog get failed", err)
		}
		return nil, err
	}
	product := *v.(*Product)
	return &product, nil
}

func offersAny(p Product, sizes []string) bool {
	for _, size := range sizes {
		if p.HasSize(size) {
			return true
		}
	}
	return false
}

// ToLineItemInput turns a product choice into a cart line. Empty size or color
// picks the first offered option.
func ToLineItemInput(p Product, size, color string) (cart.LineItemInput, error) {
	size = strings.TrimSpace(size)
	color = strings.TrimSpace(color)

	var invalid []string
	if size == "" && len(p.Sizes) > 0 {
		size = p.Sizes[0]
	} else if size != "" && !p.HasSize(size) {
		invalid = append(invalid, "size")
	}
	if color == "" && len(p.Colors) > 0 {
		color = p.Colors[0]
	} else if color != "" && !p.HasColor(color) {
		invalid = append(invalid, "color")
	}
	if len(invalid) > 0 {
		return cart.LineItemInput{}, pkgerrors.New(pkgerrors.CodeValidation, "option not offered for product").
			WithDetails(map[string]any{"fields": invalid, "product_id": p.ID})
	}

	return cart.LineItemInput{
		ProductID:         p.ID,
		Name:              p.Name,
		UnitPrice:         p.Price,
		OriginalUnitPrice: p.OriginalPrice,
		ImageRef:          p.Image,
		SelectedSize:      size,
		SelectedColor:     color,
		OnSale:            p.IsSale,
	}, nil
}
