package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-session/pkg/kvstore"
	"github.com/angelmondragon/storefront-session/pkg/logger"
	"github.com/angelmondragon/storefront-session/pkg/types"
)

// Manager loads and saves sessions against a slot store.
type Manager struct {
	store kvstore.Store
	ttl   time.Duration
	logg  *logger.Logger
}

func NewManager(store kvstore.Store, ttl time.Duration, logg *logger.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("slot store required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Manager{store: store, ttl: ttl, logg: logg}, nil
}

// Load reads every slot of the session. Missing, unreadable or undecodable
// slots come back empty; the failure is logged and loading continues.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("session id required")
	}
	sess := New(id)
	raws := m.readSlots(ctx, id)
	for _, slot := range Slots {
		raw, ok := raws[slot]
		if !ok {
			continue
		}
		if err := decodeSlot(sess, slot, raw); err != nil {
			m.logg.Warn(m.slotCtx(ctx, id, slot, err), "session slot undecodable, treating as empty")
			sess.baseline[slot] = raw
			continue
		}
		encoded, err := encodeSlot(sess, slot)
		if err != nil {
			sess.baseline[slot] = raw
			continue
		}
		sess.baseline[slot] = encoded
	}
	// A lost cart_id slot is recoverable from the snapshot; the next save
	// writes it back.
	if sess.CartID == "" && sess.Cart != nil && sess.Cart.CartID != "" {
		sess.CartID = sess.Cart.CartID
	}
	return sess, nil
}

// readSlots prefers one batched read and falls back to per-slot reads when the
// batch fails.
func (m *Manager) readSlots(ctx context.Context, id string) map[string][]byte {
	if batch, ok := m.store.(kvstore.BatchGetter); ok {
		raws, err := batch.GetSlots(ctx, id, Slots)
		if err == nil {
			return raws
		}
		m.logg.Warn(m.logg.WithField(ctx, "reason", err.Error()), "session batch read failed, reading slots one by one")
	}
	raws := make(map[string][]byte, len(Slots))
	for _, slot := range Slots {
		raw, err := m.store.Get(ctx, kvstore.Key{Session: id, Slot: slot})
		if err != nil {
			if !errors.Is(err, kvstore.ErrNotFound) {
				m.logg.Warn(m.slotCtx(ctx, id, slot, err), "session slot read failed")
			}
			continue
		}
		raws[slot] = raw
	}
	return raws
}

// Save writes the given slots (all when none are named) whose value changed
// since load. Empty values delete the slot. Every other slot still held by the
// session gets its expiry re-armed, so slots written once live as long as the
// session stays active.
func (m *Manager) Save(ctx context.Context, sess *Session, slots ...string) error {
	if sess == nil {
		return errors.New("session required")
	}
	if sess.baseline == nil {
		sess.baseline = map[string][]byte{}
	}
	if len(slots) == 0 {
		slots = Slots
	}
	var errs error
	written := make(map[string]bool, len(slots))
	for _, slot := range slots {
		encoded, err := encodeSlot(sess, slot)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("encode %s: %w", slot, err))
			continue
		}
		if bytes.Equal(encoded, sess.baseline[slot]) {
			continue
		}
		key := kvstore.Key{Session: sess.ID, Slot: slot}
		if encoded == nil {
			err = m.store.Delete(ctx, key)
		} else {
			err = m.store.Set(ctx, key, encoded, m.ttl)
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("write %s: %w", slot, err))
			continue
		}
		written[slot] = true
		if encoded == nil {
			delete(sess.baseline, slot)
		} else {
			sess.baseline[slot] = encoded
		}
	}
	m.touch(ctx, sess, written)
	return errs
}

// touch re-arms the ttl of stored slots that this save did not rewrite.
// Failures are logged, not returned.
func (m *Manager) touch(ctx context.Context, sess *Session, written map[string]bool) {
	if m.ttl <= 0 {
		return
	}
	keys := make([]kvstore.Key, 0, len(Slots))
	for _, slot := range Slots {
		if written[slot] || sess.baseline[slot] == nil {
			continue
		}
		keys = append(keys, kvstore.Key{Session: sess.ID, Slot: slot})
	}
	if len(keys) == 0 {
		return
	}
	if err := m.store.Touch(ctx, m.ttl, keys...); err != nil {
		m.logg.Warn(m.logg.WithFields(ctx, map[string]any{"session_id": sess.ID, "error": err.Error()}), "session slot ttl refresh failed")
	}
}

// TakeHandoff removes the stored checkout handoff and returns it. When several
// requests race for the same handoff only one gets it; the others, and a
// session without one, get nil.
func (m *Manager) TakeHandoff(ctx context.Context, sess *Session) (*types.CheckoutHandoff, error) {
	if sess == nil {
		return nil, errors.New("session required")
	}
	raw, err := m.store.Take(ctx, kvstore.Key{Session: sess.ID, Slot: SlotCheckout})
	sess.Handoff = nil
	delete(sess.baseline, SlotCheckout)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("take %s: %w", SlotCheckout, err)
	}
	var handoff types.CheckoutHandoff
	if err := json.Unmarshal(raw, &handoff); err != nil {
		m.logg.Warn(m.slotCtx(ctx, sess.ID, SlotCheckout, err), "session slot undecodable, treating as empty")
		return nil, nil
	}
	return &handoff, nil
}

// SaveBestEffort saves and logs failures instead of returning them.
func (m *Manager) SaveBestEffort(ctx context.Context, sess *Session, slots ...string) {
	if err := m.Save(ctx, sess, slots...); err != nil {
		for _, each := range multierr.Errors(err) {
			m.logg.Warn(m.logg.WithFields(ctx, map[string]any{"session_id": sess.ID, "error": each.Error()}), "session slot write failed")
		}
	}
}

func (m *Manager) slotCtx(ctx context.Context, id, slot string, err error) context.Context {
	return m.logg.WithFields(ctx, map[string]any{"session_id": id, "slot": slot, "error": err.Error()})
}

func decodeSlot(sess *Session, slot string, raw []byte) error {
	switch slot {
	case SlotCustomer:
		var identity types.CustomerIdentity
		if err := json.Unmarshal(raw, &identity); err != nil {
			return err
		}
		sess.Customer = &identity
	case SlotCartID:
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			plain := strings.TrimSpace(string(raw))
			if plain == "" || strings.ContainsAny(plain, "{}[]\"") {
				return err
			}
			id = plain
		}
		sess.CartID = id
	case SlotCartSnapshot:
		var snapshot types.CartSnapshot
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			return err
		}
		sess.Cart = &snapshot
	case SlotSelection:
		var selection SelectionSet
		if err := json.Unmarshal(raw, &selection); err != nil {
			return err
		}
		sess.Selection = selection
	case SlotCheckout:
		var handoff types.CheckoutHandoff
		if err := json.Unmarshal(raw, &handoff); err != nil {
			return err
		}
		sess.Handoff = &handoff
	case SlotRecentlyViewed:
		var products []types.ProductRef
		if err := json.Unmarshal(raw, &products); err != nil {
			return err
		}
		sess.RecentlyViewed = products
	case SlotWishlist:
		var products []types.ProductRef
		if err := json.Unmarshal(raw, &products); err != nil {
			return err
		}
		sess.Wishlist = products
	default:
		return fmt.Errorf("unknown slot %q", slot)
	}
	return nil
}

// encodeSlot returns nil for an empty slot.
func encodeSlot(sess *Session, slot string) ([]byte, error) {
	switch slot {
	case SlotCustomer:
		if sess.Customer == nil {
			return nil, nil
		}
		return json.Marshal(sess.Customer)
	case SlotCartID:
		if sess.CartID == "" {
			return nil, nil
		}
		return json.Marshal(sess.CartID)
	case SlotCartSnapshot:
		if sess.Cart == nil {
			return nil, nil
		}
		return json.Marshal(sess.Cart)
	case SlotSelection:
		if len(sess.Selection) == 0 {
			return nil, nil
		}
		return json.Marshal(sess.Selection)
	case SlotCheckout:
		if sess.Handoff == nil {
			return nil, nil
		}
		return json.Marshal(sess.Handoff)
	case SlotRecentlyViewed:
		if len(sess.RecentlyViewed) == 0 {
			return nil, nil
		}
		return json.Marshal(sess.RecentlyViewed)
	case SlotWishlist:
		if len(sess.Wishlist) == 0 {
			return nil, nil
		}
		return json.Marshal(sess.Wishlist)
	default:
		return nil, fmt.Errorf("unknown slot %q", slot)
	}
}
