package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stripe/stripe-go/v84"
)

// ErrorDump flattens an error chain for structured logs. Catalog queries can
// surface postgres details and gateway calls can surface Stripe details.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Retryable  bool     `json:"retryable"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`

	StripeType      string `json:"stripe_type,omitempty"`
	StripeCode      string `json:"stripe_code,omitempty"`
	StripeDecline   string `json:"stripe_decline_code,omitempty"`
	StripeRequestID string `json:"stripe_request_id,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error(), Code: CodeInternal}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	d.Retryable = MetadataFor(d.Code).Retryable

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	d.fillPostgres(err)
	d.fillStripe(err)
	return d
}

func (d *ErrorDump) fillPostgres(err error) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
		return
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	}
}

func (d *ErrorDump) fillStripe(err error) {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return
	}
	d.StripeType = string(stripeErr.Type)
	d.StripeCode = string(stripeErr.Code)
	d.StripeDecline = string(stripeErr.DeclineCode)
	d.StripeRequestID = stripeErr.RequestID
}

// LogFields returns the non-empty parts of the dump keyed for the logger.
func (d ErrorDump) LogFields() map[string]any {
	fields := map[string]any{
		"error_message": d.TopMessage,
		"error_code":    d.Code,
		"retryable":     d.Retryable,
		"error_chain":   d.Chain,
	}
	optional := map[string]string{
		"pg_code":           d.PGCode,
		"pg_constraint":     d.PGConstraint,
		"pg_table":          d.PGTable,
		"pg_detail":         d.PGDetail,
		"pg_message":        d.PGMessage,
		"stripe_type":       d.StripeType,
		"stripe_code":       d.StripeCode,
		"stripe_decline":    d.StripeDecline,
		"stripe_request_id": d.StripeRequestID,
	}
	for key, value := range optional {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
