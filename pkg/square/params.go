package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"
)

// PaymentLinkParams describes a quick-pay hosted checkout.
type PaymentLinkParams struct {
	Name           string
	AmountMinor    int64
	Currency       string
	LocationID     string
	ReferenceID    string
	Description    string
	RedirectURL    string
	BuyerEmail     string
	BuyerPhone     string
	IdempotencyKey string
}

func (p PaymentLinkParams) toSquareRequest(idempotencyKey string) *sqcheckout.CreatePaymentLinkRequest {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "Order"
	}
	req := &sqcheckout.CreatePaymentLinkRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		QuickPay: &sq.QuickPay{
			Name:       name,
			PriceMoney: moneyPtr(p.AmountMinor, p.Currency),
			LocationID: p.LocationID,
		},
	}
	if trimmed := strings.TrimSpace(p.Description); trimmed != "" {
		req.Description = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.ReferenceID); trimmed != "" {
		req.PaymentNote = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.RedirectURL); trimmed != "" {
		req.CheckoutOptions = &sq.CheckoutOptions{RedirectURL: ptrString(trimmed)}
	}
	email := strings.TrimSpace(p.BuyerEmail)
	phone := strings.TrimSpace(p.BuyerPhone)
	if email != "" || phone != "" {
		req.PrePopulatedData = &sq.PrePopulatedData{
			BuyerEmail:       ptrString(email),
			BuyerPhoneNumber: ptrString(phone),
		}
	}
	return req
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "INR"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
