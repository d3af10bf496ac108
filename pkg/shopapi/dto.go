package shopapi

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-session/pkg/types"
)

// Application-level response codes carried in every envelope.
const (
	CodeSuccess       = "00"
	CodeAlreadyExists = "01"
)

type envelope struct {
	ResponseCode string          `json:"responseCode"`
	Message      string          `json:"message"`
	Data         json.RawMessage `json:"data"`
}

// AddItemRequest is the body of POST /carts/{cartId}/items.
type AddItemRequest struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ImagePath   string          `json:"imagePath,omitempty"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type loginRequest struct {
	ContactNumber string `json:"contactNumber"`
	Password      string `json:"password"`
}

// cartData accepts either a bare item array or {"items": [...]}.
type cartData struct {
	Items []types.CartLineItem
}

func (c *cartData) UnmarshalJSON(raw []byte) error {
	var items []types.CartLineItem
	if err := json.Unmarshal(raw, &items); err == nil {
		c.Items = items
		return nil
	}
	var wrapped struct {
		Items []types.CartLineItem `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return err
	}
	c.Items = wrapped.Items
	return nil
}
