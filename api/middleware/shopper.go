package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/littlemirai-storefront/api/responses"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
)

const ShopperIDHeader = "X-Shopper-Id"

// Shopper resolves the visitor id from the X-Shopper-Id header, issuing a new
// one when absent. The id is echoed back so the client can keep it.
func Shopper(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			shopperID := strings.TrimSpace(r.Header.Get(ShopperIDHeader))
			if shopperID == "" {
				shopperID = uuid.NewString()
			} else if _, err := uuid.Parse(shopperID); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid shopper id").
					WithDetails(map[string]any{"header": ShopperIDHeader}))
				return
			}

			w.Header().Set(ShopperIDHeader, shopperID)

			ctx := WithShopperID(r.Context(), shopperID)
			if logg != nil {
				ctx = logg.WithShopperID(ctx, shopperID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
