package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductRef is the lightweight product card kept in the wishlist and recently-viewed slots.
type ProductRef struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	ImagePath   string          `json:"imagePath,omitempty"`
	At          time.Time       `json:"at"`
}
