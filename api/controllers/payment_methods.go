package controllers

import (
	"net/http"

	"github.com/angelmondragon/littlemirai-storefront/api/responses"
	"github.com/angelmondragon/littlemirai-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
)

// PaymentMethods lists every method with its current availability. Gateway
// methods need a configured gateway that finished loading.
func PaymentMethods(gateway GatewayStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gatewayReason := ""
		switch {
		case gateway == nil:
			gatewayReason = pkgerrors.MetadataFor(pkgerrors.CodeConfiguration).PublicMessage
		case gateway.Configured() != nil:
			gatewayReason = pkgerrors.MetadataFor(pkgerrors.CodeConfiguration).PublicMessage
		case !gateway.Ready():
			gatewayReason = pkgerrors.MetadataFor(pkgerrors.CodeGatewayUnavailable).PublicMessage
		}

		methods := enums.PaymentMethods()
		views := make([]paymentMethodView, 0, len(methods))
		for _, m := range methods {
			view := paymentMethodView{ID: m.String(), Label: m.Label(), Gateway: m.IsGateway(), Available: true}
			if m.IsGateway() && gatewayReason != "" {
				view.Available = false
				view.Reason = gatewayReason
			}
			views = append(views, view)
		}
		responses.WriteSuccess(w, views)
	}
}
