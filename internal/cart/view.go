package cart

import (
	"github.com/angelmondragon/storefront-session/internal/session"
	"github.com/angelmondragon/storefront-session/pkg/types"
)

// View is the cart as rendered to the storefront.
type View struct {
	CartID           string     `json:"cartId,omitempty"`
	Items            []ItemView `json:"items"`
	SelectedIDs      []string   `json:"selectedIds"`
	AllSelected      bool       `json:"allSelected"`
	ItemCount        int        `json:"itemCount"`
	Subtotal         string     `json:"subtotal"`
	SelectedSubtotal string     `json:"selectedSubtotal"`
}

type ItemView struct {
	types.CartLineItem
	LineTotal string `json:"lineTotal"`
	Selected  bool   `json:"selected"`
}

// BatchFailure names one product the batch could not remove.
type BatchFailure struct {
	ProductID string `json:"productId"`
	Error     string `json:"error"`
}

// BatchResult reports a batch removal; earlier removals are kept when later ones fail.
type BatchResult struct {
	Cart    *View          `json:"cart"`
	Removed []string       `json:"removed"`
	Failed  []BatchFailure `json:"failed"`
}

func buildView(sess *session.Session) *View {
	view := &View{
		CartID:           sess.CartID,
		Items:            []ItemView{},
		SelectedIDs:      sess.SelectedIDs(),
		Subtotal:         "0.00",
		SelectedSubtotal: "0.00",
	}
	if sess.Cart == nil {
		return view
	}
	selected := make(map[string]struct{}, len(view.SelectedIDs))
	for _, id := range view.SelectedIDs {
		selected[id] = struct{}{}
	}
	for _, item := range sess.Cart.Items {
		_, isSelected := selected[item.ProductID]
		view.Items = append(view.Items, ItemView{
			CartLineItem: item,
			LineTotal:    item.LineTotal().StringFixed(2),
			Selected:     isSelected,
		})
		view.ItemCount += item.Quantity
	}
	view.AllSelected = len(view.Items) > 0 && len(view.SelectedIDs) == len(view.Items)
	view.Subtotal = types.Subtotal(sess.Cart.Items).StringFixed(2)
	view.SelectedSubtotal = types.Subtotal(sess.SelectedItems()).StringFixed(2)
	return view
}
