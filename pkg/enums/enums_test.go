package enums

import "testing"

func TestPaymentMethodGatewayFamily(t *testing.T) {
	for _, method := range []PaymentMethod{PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetBanking, PaymentMethodWallet} {
		if !method.IsGateway() {
			t.Fatalf("%s should be settled through the gateway", method)
		}
		if method.Label() == "" {
			t.Fatalf("%s missing label", method)
		}
	}
	if PaymentMethodCOD.IsGateway() {
		t.Fatal("cash on delivery must not require the gateway")
	}
	if PaymentMethod("bitcoin").IsGateway() {
		t.Fatal("unknown methods are not gateway methods")
	}
	if _, err := ParsePaymentMethod("paypal"); err == nil {
		t.Fatal("expected parse error for unknown method")
	}
}

func TestAgeGroupSizes(t *testing.T) {
	cases := map[string]string{
		"Newborn": "0-3M",
		"Infant":  "3-6M",
		"Toddler": "6-12M",
		"Walker":  "12-18M",
	}
	for raw, size := range cases {
		group, err := ParseAgeGroup(raw)
		if err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
		if group.Size() != size {
			t.Fatalf("%s expected %s got %s", raw, size, group.Size())
		}
	}
	if _, err := ParseAgeGroup("Teen"); err == nil {
		t.Fatal("expected error for unknown age group")
	}
}

func TestParseProductSortDefaultsToFeatured(t *testing.T) {
	sort, err := ParseProductSort("")
	if err != nil || sort != ProductSortFeatured {
		t.Fatalf("expected featured, got %q err=%v", sort, err)
	}
	if _, err := ParseProductSort("cheapest"); err == nil {
		t.Fatal("expected error for unknown sort")
	}
}

func TestCheckoutStepTerminal(t *testing.T) {
	if !CheckoutStepPlaced.IsTerminal() {
		t.Fatal("placed is terminal")
	}
	if CheckoutStepReview.IsTerminal() {
		t.Fatal("review is not terminal")
	}
}
