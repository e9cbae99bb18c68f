package payments

import (
	"context"

	"github.com/google/uuid"
)

// OrderIssuer hands out the server-side order identifier a payment attempt is bound to.
type OrderIssuer interface {
	IssueOrderID(ctx context.Context) (string, error)
}

// UUIDIssuer issues ids of the form order_<uuid>.
type UUIDIssuer struct{}

func (UUIDIssuer) IssueOrderID(context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return "order_" + id.String(), nil
}
