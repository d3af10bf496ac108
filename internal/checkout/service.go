package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-session/internal/session"
	"github.com/angelmondragon/storefront-session/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-session/pkg/errors"
	"github.com/angelmondragon/storefront-session/pkg/logger"
	"github.com/angelmondragon/storefront-session/pkg/types"
)

// Destination is the path the storefront navigates to once a handoff is ready.
const Destination = "/checkout"

type sessionSaver interface {
	Save(ctx context.Context, sess *session.Session, slots ...string) error
	TakeHandoff(ctx context.Context, sess *session.Session) (*types.CheckoutHandoff, error)
}

// Service hands the cart over to the checkout page.
type Service interface {
	Prepare(ctx context.Context, sess *session.Session) (*Result, error)
	Consume(ctx context.Context, sess *session.Session) (*types.CheckoutHandoff, error)
}

// Result of Prepare. Without an identity only Status is set.
type Result struct {
	Status      enums.CheckoutStatus   `json:"status"`
	Destination string                 `json:"destination,omitempty"`
	Handoff     *types.CheckoutHandoff `json:"handoff,omitempty"`
}

type service struct {
	sessions sessionSaver
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(sessions sessionSaver, logg *logger.Logger) (Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session saver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{sessions: sessions, logg: logg, now: time.Now}, nil
}

// Prepare writes the checkout handoff: the selected lines when anything is
// selected, otherwise the whole cart. It makes no remote call. A visitor with
// no identity gets authentication_required and nothing is written.
func (s *service) Prepare(ctx context.Context, sess *session.Session) (*Result, error) {
	if !sess.HasIdentity() {
		return &Result{Status: enums.CheckoutStatusAuthenticationRequired}, nil
	}
	ctx = s.logg.WithCustomer(ctx, sess.Customer.CustomerAccountNumber, sess.Customer.IsGuest)

	if sess.Cart == nil || len(sess.Cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	items := sess.SelectedItems()
	selected := len(items) > 0
	if !selected {
		items = append([]types.CartLineItem{}, sess.Cart.Items...)
	}

	handoff := &types.CheckoutHandoff{
		CartID:     sess.CartID,
		Items:      items,
		Selected:   selected,
		Subtotal:   types.Subtotal(items).StringFixed(2),
		PreparedAt: s.now().UTC(),
	}

	previous := sess.Handoff
	sess.Handoff = handoff
	if err := s.sessions.Save(ctx, sess, session.SlotCheckout); err != nil {
		sess.Handoff = previous
		s.logg.Error(ctx, "failed to store checkout handoff", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not store checkout items")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"cart_id":  sess.CartID,
		"items":    len(items),
		"selected": selected,
	}), "checkout handoff prepared")

	return &Result{
		Status:      enums.CheckoutStatusReady,
		Destination: Destination,
		Handoff:     handoff,
	}, nil
}

// Consume returns the pending handoff and clears it so it is read once, even
// when two requests consume the same session concurrently.
func (s *service) Consume(ctx context.Context, sess *session.Session) (*types.CheckoutHandoff, error) {
	if sess.Handoff == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout items pending")
	}
	previous := sess.Handoff
	handoff, err := s.sessions.TakeHandoff(ctx, sess)
	if err != nil {
		sess.Handoff = previous
		s.logg.Error(ctx, "failed to clear checkout handoff", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not clear checkout items")
	}
	if handoff == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout items pending")
	}
	return handoff, nil
}
