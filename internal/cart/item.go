package cart

import "github.com/shopspring/decimal"

// Key identifies a cart row. Two items with equal keys are the same row.
type Key struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// LineItemInput is what the catalog hands over when a shopper adds a variant.
type LineItemInput struct {
	ProductID         int64            `json:"product_id"`
	Name              string           `json:"name"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	OriginalUnitPrice *decimal.Decimal `json:"original_unit_price,omitempty"`
	ImageRef          string           `json:"image"`
	SelectedSize      string           `json:"selected_size"`
	SelectedColor     string           `json:"selected_color"`
	OnSale            bool             `json:"on_sale"`
}

// Key returns the identity of the variant being added.
func (in LineItemInput) Key() Key {
	return Key{ProductID: in.ProductID, Size: in.SelectedSize, Color: in.SelectedColor}
}

// LineItem is one row of the cart. Quantity is always at least 1.
type LineItem struct {
	ProductID         int64            `json:"product_id"`
	Name              string           `json:"name"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	OriginalUnitPrice *decimal.Decimal `json:"original_unit_price,omitempty"`
	ImageRef          string           `json:"image"`
	SelectedSize      string           `json:"selected_size"`
	SelectedColor     string           `json:"selected_color"`
	Quantity          int              `json:"quantity"`
	OnSale            bool             `json:"on_sale"`
}

func (l LineItem) Key() Key {
	return Key{ProductID: l.ProductID, Size: l.SelectedSize, Color: l.SelectedColor}
}

// LineTotal is unit price times quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Savings is the markdown shown on sale rows; zero when the row is not discounted.
func (l LineItem) Savings() decimal.Decimal {
	if !l.OnSale || l.OriginalUnitPrice == nil || !l.OriginalUnitPrice.GreaterThan(l.UnitPrice) {
		return decimal.Zero
	}
	return l.OriginalUnitPrice.Sub(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func newLineItem(in LineItemInput, quantity int) LineItem {
	item := LineItem{
		ProductID:     in.ProductID,
		Name:          in.Name,
		UnitPrice:     in.UnitPrice,
		ImageRef:      in.ImageRef,
		SelectedSize:  in.SelectedSize,
		SelectedColor: in.SelectedColor,
		Quantity:      quantity,
		OnSale:        in.OnSale,
	}
	if in.OriginalUnitPrice != nil {
		original := *in.OriginalUnitPrice
		item.OriginalUnitPrice = &original
	}
	return item
}

func (l LineItem) clone() LineItem {
	if l.OriginalUnitPrice != nil {
		original := *l.OriginalUnitPrice
		l.OriginalUnitPrice = &original
	}
	return l
}

// State is the full cart: insertion-ordered rows plus drawer visibility.
type State struct {
	Items  []LineItem `json:"items"`
	IsOpen bool       `json:"is_open"`
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := State{IsOpen: s.IsOpen, Items: make([]LineItem, len(s.Items))}
	for i, item := range s.Items {
		out.Items[i] = item.clone()
	}
	return out
}

// IsEmpty reports whether the cart has no rows.
func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// Find returns the row matching key.
func (s State) Find(key Key) (LineItem, bool) {
	for _, item := range s.Items {
		if item.Key() == key {
			return item, true
		}
	}
	return LineItem{}, false
}
