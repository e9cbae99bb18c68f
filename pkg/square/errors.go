package square

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
)

// translateError maps an SDK failure onto the storefront error codes. The
// HTTP status picks the base code; a reused idempotency key or an
// authentication category in the body overrides it.
func translateError(err error, op string) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf("square %s failed", op)

	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
	}
	code := codeForStatus(apiErr.StatusCode)
	for _, sqErr := range apiErrors(apiErr) {
		switch {
		case sqErr == nil:
			continue
		case sqErr.Code == sq.ErrorCodeIdempotencyKeyReused:
			return pkgerrors.Wrap(pkgerrors.CodeIdempotency, err, message)
		case sqErr.Category == sq.ErrorCategoryAuthenticationError:
			return pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, message)
		}
	}
	return pkgerrors.Wrap(code, err, message)
}

// apiErrors decodes the {"errors": [...]} body the SDK keeps as the wrapped error text.
func apiErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil || apiErr.Unwrap() == nil {
		return nil
	}
	raw := strings.TrimSpace(apiErr.Unwrap().Error())
	if raw == "" {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if json.Unmarshal([]byte(raw), &body) != nil {
		return nil
	}
	return body.Errors
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.CodeConfiguration
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeDependency
	case status >= 400 && status < 500:
		return pkgerrors.CodeGatewayFailure
	default:
		return pkgerrors.CodeDependency
	}
}
