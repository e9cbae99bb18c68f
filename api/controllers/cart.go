package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/littlemirai-storefront/api/middleware"
	"github.com/angelmondragon/littlemirai-storefront/api/responses"
	"github.com/angelmondragon/littlemirai-storefront/api/validators"
	"github.com/angelmondragon/littlemirai-storefront/internal/cart"
	"github.com/angelmondragon/littlemirai-storefront/internal/catalog"
	"github.com/angelmondragon/littlemirai-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
)

func CartGet(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(reg, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		responses.WriteSuccess(w, newCartResponse(store.View()))
	})
}

// CartAddItem resolves the product from the catalog and adds it with the
// chosen size and color. Missing size or color fall back to the first option.
func CartAddItem(reg ShopperRegistry, products catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return withEditableCart(reg, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		if products == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := products.Get(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := catalog.ToLineItemInput(*product, payload.Size, payload.Color)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.AddItem(input, payload.Quantity)
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(store.View()))
	})
}

// CartUpdateItem sets a line's quantity; zero removes the line.
func CartUpdateItem(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withEditableCart(reg, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.UpdateQuantity(cart.Key{ProductID: payload.ProductID, Size: payload.Size, Color: payload.Color}, payload.Quantity)
		responses.WriteSuccess(w, newCartResponse(store.View()))
	})
}

// CartRemoveItem reads the line key from the query string.
func CartRemoveItem(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withEditableCart(reg, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		q := r.URL.Query()
		productID, err := validators.ParsePathID(q.Get("product_id"), "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := cart.Key{
			ProductID: productID,
			Size:      strings.TrimSpace(q.Get("size")),
			Color:     strings.TrimSpace(q.Get("color")),
		}
		store.RemoveItem(key)
		responses.WriteSuccess(w, newCartResponse(store.View()))
	})
}

func CartOpen(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(reg, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		store.Open()
		responses.WriteSuccess(w, newCartResponse(store.View()))
	})
}

func CartClose(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(reg, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		store.Close()
		responses.WriteSuccess(w, newCartResponse(store.View()))
	})
}

func CartClear(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withEditableCart(reg, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		store.Clear()
		responses.WriteSuccess(w, newCartResponse(store.View()))
	})
}

type cartHandler func(w http.ResponseWriter, r *http.Request, store *cart.Store)

func withCart(reg ShopperRegistry, logg *logger.Logger, next cartHandler) http.HandlerFunc {
	return withShopper(reg, logg, false, next)
}

// withEditableCart rejects line changes while a hosted payment is pending:
// the amount is fixed when the page opens and the cart is cleared on success.
func withEditableCart(reg ShopperRegistry, logg *logger.Logger, next cartHandler) http.HandlerFunc {
	return withShopper(reg, logg, true, next)
}

func withShopper(reg ShopperRegistry, logg *logger.Logger, edits bool, next cartHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shopper registry unavailable"))
			return
		}
		shopperID, err := shopperIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shopper := reg.GetOrCreate(shopperID)
		if edits && shopper.PaymentPending() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is locked while a payment is in progress").
				WithDetails(map[string]any{"step": enums.CheckoutStepReview}))
			return
		}
		next(w, r, shopper.Cart)
	}
}

func shopperIDFromContext(r *http.Request) (string, error) {
	id := middleware.ShopperIDFromContext(r.Context())
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shopper id missing").
			WithDetails(map[string]any{"header": middleware.ShopperIDHeader})
	}
	return id, nil
}
