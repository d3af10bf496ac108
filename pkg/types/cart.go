package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLineItem is one server-confirmed row of a cart. Quantity is always >= 1;
// removal is the only way to reach zero.
type CartLineItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ImagePath   string          `json:"imagePath,omitempty"`
}

// LineTotal is price times quantity.
func (i CartLineItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartSnapshot is the full item list the shop API returned for one cart id.
type CartSnapshot struct {
	CartID    string         `json:"cartId"`
	Items     []CartLineItem `json:"items"`
	FetchedAt time.Time      `json:"fetchedAt"`
}

// Contains reports whether productID has a line in the snapshot.
func (s *CartSnapshot) Contains(productID string) bool {
	if s == nil {
		return false
	}
	for _, item := range s.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// ProductIDs returns the ids in snapshot order.
func (s *CartSnapshot) ProductIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Subtotal sums the line totals of items.
func Subtotal(items []CartLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// CheckoutHandoff is the one-shot item set written just before the visitor is sent to checkout.
type CheckoutHandoff struct {
	CartID     string         `json:"cartId"`
	Items      []CartLineItem `json:"items"`
	Selected   bool           `json:"selected"`
	Subtotal   string         `json:"subtotal"`
	PreparedAt time.Time      `json:"preparedAt"`
}
