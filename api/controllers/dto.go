package controllers

import (
	"context"

	"github.com/angelmondragon/littlemirai-storefront/internal/cart"
	"github.com/angelmondragon/littlemirai-storefront/internal/checkout"
	"github.com/angelmondragon/littlemirai-storefront/internal/shoppers"
	"github.com/angelmondragon/littlemirai-storefront/pkg/types"
)

// ShopperRegistry owns per-visitor carts and checkout sessions.
type ShopperRegistry interface {
	Get(id string) (*shoppers.Shopper, bool)
	GetOrCreate(id string) *shoppers.Shopper
	BeginCheckout(ctx context.Context, id string) (*checkout.Flow, error)
	AbandonCheckout(ctx context.Context, id string) bool
}

type addItemRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity" validate:"min=0,max=99"`
}

type updateItemRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Size      string `json:"size" validate:"required"`
	Color     string `json:"color" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=0,max=99"`
}

type billingRequest struct {
	SameAsShipping bool           `json:"same_as_shipping"`
	Address        *types.Address `json:"address" validate:"required_without=SameAsShipping"`
}

type paymentMethodRequest struct {
	Method string `json:"method" validate:"required,payment_method"`
}

type cartResponse struct {
	Items  []cart.LineItem `json:"items"`
	IsOpen bool            `json:"is_open"`
	Totals cart.Totals     `json:"totals"`
}

func newCartResponse(state cart.State, totals cart.Totals) cartResponse {
	items := state.Items
	if items == nil {
		items = []cart.LineItem{}
	}
	return cartResponse{Items: items, IsOpen: state.IsOpen, Totals: totals}
}

type checkoutResponse struct {
	Session checkout.Session `json:"session"`
	Totals  cart.Totals      `json:"totals"`
}

type confirmResponse struct {
	checkout.ConfirmOutcome
	Totals cart.Totals `json:"totals"`
}

type paymentMethodView struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Gateway   bool   `json:"gateway"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}
