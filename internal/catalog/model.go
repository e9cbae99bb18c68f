package catalog

import (
	"time"

	dbtypes "github.com/angelmondragon/littlemirai-storefront/pkg/db/types"
	"github.com/angelmondragon/littlemirai-storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry as stored in the products table.
type Product struct {
	ID            int64                 `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name          string                `gorm:"not null" json:"name"`
	Description   string                `gorm:"not null;default:''" json:"description"`
	Price         decimal.Decimal       `gorm:"type:numeric(10,2);not null" json:"price"`
	OriginalPrice *decimal.Decimal      `gorm:"type:numeric(10,2)" json:"original_price,omitempty"`
	Image         string                `gorm:"not null" json:"image"`
	Sizes         dbtypes.StringList    `gorm:"type:text;not null" json:"sizes"`
	Colors        dbtypes.StringList    `gorm:"type:text;not null" json:"colors"`
	Rating        float64               `gorm:"type:numeric(2,1);not null;default:0" json:"rating"`
	ReviewCount   int                   `gorm:"not null;default:0" json:"review_count"`
	Category      enums.ProductCategory `gorm:"not null" json:"category"`
	IsNew         bool                  `gorm:"not null;default:false" json:"is_new"`
	IsSale        bool                  `gorm:"not null;default:false" json:"is_sale"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// HasSize reports whether the product is offered in size.
func (p Product) HasSize(size string) bool {
	return p.Sizes.Contains(size)
}

// HasColor reports whether the product is offered in color.
func (p Product) HasColor(color string) bool {
	return p.Colors.Contains(color)
}
