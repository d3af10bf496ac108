// Package session holds the per-visitor context that the cart, checkout and
// customer services read and write.
package session

import (
	"github.com/angelmondragon/storefront-session/pkg/types"
)

// Slot names as persisted in the slot store.
const (
	SlotCustomer       = "customer"
	SlotCartID         = "cart_id"
	SlotCartSnapshot   = "cart_snapshot"
	SlotSelection      = "cart_selection"
	SlotCheckout       = "checkout_items"
	SlotRecentlyViewed = "recently_viewed"
	SlotWishlist       = "wishlist"
)

// Slots lists every slot in load order.
var Slots = []string{
	SlotCustomer,
	SlotCartID,
	SlotCartSnapshot,
	SlotSelection,
	SlotCheckout,
	SlotRecentlyViewed,
	SlotWishlist,
}

// Session is the explicit session context. It is loaded once per request and
// saved back through Manager; nothing else reads the slot store directly.
type Session struct {
	ID             string
	CartID         string
	Customer       *types.CustomerIdentity
	Cart           *types.CartSnapshot
	Selection      SelectionSet
	Handoff        *types.CheckoutHandoff
	RecentlyViewed []types.ProductRef
	Wishlist       []types.ProductRef

	// baseline holds the encoded slot values as last loaded or saved.
	baseline map[string][]byte
}

func New(id string) *Session {
	return &Session{
		ID:        id,
		Selection: NewSelectionSet(),
		baseline:  map[string][]byte{},
	}
}

// HasIdentity reports whether a current customer is known.
func (s *Session) HasIdentity() bool {
	return s.Customer != nil && s.Customer.CustomerAccountNumber != ""
}

// SelectedIDs is the selection restricted to the current cart, in cart order.
func (s *Session) SelectedIDs() []string {
	if s.Selection == nil {
		return []string{}
	}
	return s.Selection.Filter(s.Cart.ProductIDs())
}

// SelectedItems returns the cart lines whose ids are selected.
func (s *Session) SelectedItems() []types.CartLineItem {
	items := []types.CartLineItem{}
	if s.Cart == nil {
		return items
	}
	for _, item := range s.Cart.Items {
		if s.Selection.Has(item.ProductID) {
			items = append(items, item)
		}
	}
	return items
}

// ReplaceCart installs a freshly fetched snapshot and drops selected ids that
// are no longer in it.
func (s *Session) ReplaceCart(snapshot *types.CartSnapshot) {
	s.Cart = snapshot
	if snapshot != nil && s.CartID == "" {
		s.CartID = snapshot.CartID
	}
	s.PruneSelection()
}

// PruneSelection keeps only ids present in the current snapshot.
func (s *Session) PruneSelection() {
	s.Selection = NewSelectionSet(s.SelectedIDs()...)
}

// ClearIdentity forgets the current customer and any pending checkout handoff.
func (s *Session) ClearIdentity() {
	s.Customer = nil
	s.Handoff = nil
}
