package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/storefront-session/internal/session"
	pkgerrors "github.com/angelmondragon/storefront-session/pkg/errors"
	"github.com/angelmondragon/storefront-session/pkg/logger"
	"github.com/angelmondragon/storefront-session/pkg/metrics"
	"github.com/angelmondragon/storefront-session/pkg/shopapi"
	"github.com/angelmondragon/storefront-session/pkg/types"
)

const (
	opAdd         = "add"
	opSetQuantity = "set_quantity"
	opRemove      = "remove"
	opBatchRemove = "batch_remove"
)

type cartAPI interface {
	GetCart(ctx context.Context, cartID string) (*types.CartSnapshot, error)
	AddCartItem(ctx context.Context, cartID string, item shopapi.AddItemRequest) error
	UpdateCartItem(ctx context.Context, cartID, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, cartID, productID string) error
}

type sessionSaver interface {
	SaveBestEffort(ctx context.Context, sess *session.Session, slots ...string)
}

// Service runs cart mutations through guard, remote mutation, refresh, selection
// prune and session save.
type Service interface {
	View(ctx context.Context, sess *session.Session) (*View, error)
	Add(ctx context.Context, sess *session.Session, input AddInput) (*View, error)
	SetQuantity(ctx context.Context, sess *session.Session, productID string, quantity int) (*View, error)
	Remove(ctx context.Context, sess *session.Session, productID string) (*View, error)
	BatchRemove(ctx context.Context, sess *session.Session, productIDs []string) (*BatchResult, error)
	ToggleAll(ctx context.Context, sess *session.Session) (*View, error)
	ToggleOne(ctx context.Context, sess *session.Session, productID string) (*View, error)
}

// AddInput describes one add-to-cart request. Quantity defaults to 1.
type AddInput struct {
	ProductID   string
	ProductName string
	Price       decimal.Decimal
	Quantity    int
	ImagePath   string
}

type service struct {
	api      cartAPI
	sessions sessionSaver
	guard    *Guard
	refresh  singleflight.Group
	metrics  *metrics.CartMetrics
	logg     *logger.Logger
	newID    func() string
}

// NewService wires the cart service. m may be nil.
func NewService(api cartAPI, sessions sessionSaver, guard *Guard, m *metrics.CartMetrics, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("shop api client required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session saver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if guard == nil {
		guard = NewGuard()
	}
	return &service{
		api:      api,
		sessions: sessions,
		guard:    guard,
		metrics:  m,
		logg:     logg,
		newID:    uuid.NewString,
	}, nil
}

func (s *service) View(ctx context.Context, sess *session.Session) (*View, error) {
	if sess.CartID == "" {
		return buildView(sess), nil
	}
	if err := s.refreshCart(ctx, sess); err != nil {
		return nil, err
	}
	s.sessions.SaveBestEffort(ctx, sess)
	return buildView(sess), nil
}

func (s *service) Add(ctx context.Context, sess *session.Session, input AddInput) (*View, error) {
	input.ProductID = strings.TrimSpace(input.ProductID)
	if input.ProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}

	if sess.CartID == "" {
		sess.CartID = s.newID()
		sess.ReplaceCart(&types.CartSnapshot{CartID: sess.CartID, Items: []types.CartLineItem{}})
	} else if sess.Cart == nil {
		if err := s.refreshCart(ctx, sess); err != nil {
			return nil, err
		}
	}

	if sess.Cart.Contains(input.ProductID) {
		s.metrics.IncMutation(opAdd, metrics.OutcomeRejected)
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already in cart").
			WithDetails(map[string]any{"productId": input.ProductID})
	}

	return s.mutate(ctx, sess, opAdd, func(ctx context.Context, cartID string) error {
		return s.api.AddCartItem(ctx, cartID, shopapi.AddItemRequest{
			ProductID:   input.ProductID,
			ProductName: input.ProductName,
			Price:       input.Price,
			Quantity:    input.Quantity,
			ImagePath:   input.ImagePath,
		})
	}, nil)
}

// SetQuantity ignores quantities below 1; removal is the only path to zero.
func (s *service) SetQuantity(ctx context.Context, sess *session.Session, productID string, quantity int) (*View, error) {
	if quantity < 1 {
		return buildView(sess), nil
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if sess.CartID == "" || (sess.Cart != nil && !sess.Cart.Contains(productID)) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	return s.mutate(ctx, sess, opSetQuantity, func(ctx context.Context, cartID string) error {
		return s.api.UpdateCartItem(ctx, cartID, productID, quantity)
	}, nil)
}

func (s *service) Remove(ctx context.Context, sess *session.Session, productID string) (*View, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if sess.CartID == "" {
		return buildView(sess), nil
	}
	return s.mutate(ctx, sess, opRemove, func(ctx context.Context, cartID string) error {
		return s.api.RemoveCartItem(ctx, cartID, productID)
	}, func() {
		sess.Selection.Remove(productID)
	})
}

// BatchRemove removes each id with its own request. Failures do not undo earlier
// removals; the cart is re-fetched once at the end either way. An empty list
// means the current selection.
func (s *service) BatchRemove(ctx context.Context, sess *session.Session, productIDs []string) (*BatchResult, error) {
	ids := dedupe(productIDs)
	if len(ids) == 0 {
		ids = sess.SelectedIDs()
	}
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no products selected for removal")
	}
	if sess.CartID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}

	release, ok := s.guard.TryAcquire(sess.CartID)
	if !ok {
		s.metrics.IncMutation(opBatchRemove, metrics.OutcomeRejected)
		return nil, busyError()
	}
	defer release()

	ctx = s.logg.WithCartID(ctx, sess.CartID)
	result := &BatchResult{Removed: []string{}, Failed: []BatchFailure{}}
	var errs error
	for _, id := range ids {
		if err := s.api.RemoveCartItem(ctx, sess.CartID, id); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("remove %s: %w", id, err))
			result.Failed = append(result.Failed, BatchFailure{ProductID: id, Error: failureMessage(err)})
			continue
		}
		sess.Selection.Remove(id)
		result.Removed = append(result.Removed, id)
	}

	outcome := metrics.OutcomeSuccess
	if errs != nil {
		outcome = metrics.OutcomeError
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"failed": len(result.Failed),
			"error":  errs.Error(),
		}), "batch remove partially failed")
	}
	s.metrics.IncMutation(opBatchRemove, outcome)

	refreshErr := s.refreshCart(ctx, sess)
	s.sessions.SaveBestEffort(ctx, sess)
	if refreshErr != nil {
		return nil, refreshErr
	}
	result.Cart = buildView(sess)
	return result, nil
}

// ToggleAll selects every current line, or clears the selection when every line
// is already selected.
func (s *service) ToggleAll(ctx context.Context, sess *session.Session) (*View, error) {
	if err := s.ensureSnapshot(ctx, sess); err != nil {
		return nil, err
	}
	ids := sess.Cart.ProductIDs()
	if len(ids) > 0 && len(sess.SelectedIDs()) == len(ids) {
		sess.Selection = session.NewSelectionSet()
	} else {
		sess.Selection = session.NewSelectionSet(ids...)
	}
	s.sessions.SaveBestEffort(ctx, sess, session.SlotSelection)
	return buildView(sess), nil
}

func (s *service) ToggleOne(ctx context.Context, sess *session.Session, productID string) (*View, error) {
	if err := s.ensureSnapshot(ctx, sess); err != nil {
		return nil, err
	}
	if !sess.Cart.Contains(productID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	sess.PruneSelection()
	sess.Selection.Toggle(productID)
	s.sessions.SaveBestEffort(ctx, sess, session.SlotSelection)
	return buildView(sess), nil
}

// mutate is the shared pipeline. A failed remote mutation abandons the
// operation: no refresh, no retry, no local change.
func (s *service) mutate(ctx context.Context, sess *session.Session, op string, call func(ctx context.Context, cartID string) error, onSuccess func()) (*View, error) {
	release, ok := s.guard.TryAcquire(sess.CartID)
	if !ok {
		s.metrics.IncMutation(op, metrics.OutcomeRejected)
		return nil, busyError()
	}
	defer release()

	ctx = s.logg.WithCartID(ctx, sess.CartID)
	if err := call(ctx, sess.CartID); err != nil {
		s.metrics.IncMutation(op, metrics.OutcomeError)
		return nil, mapShopError(err)
	}
	s.metrics.IncMutation(op, metrics.OutcomeSuccess)
	if onSuccess != nil {
		onSuccess()
	}

	refreshErr := s.refreshCart(ctx, sess)
	s.sessions.SaveBestEffort(ctx, sess)
	if refreshErr != nil {
		return nil, refreshErr
	}
	return buildView(sess), nil
}

func (s *service) ensureSnapshot(ctx context.Context, sess *session.Session) error {
	if sess.Cart != nil {
		return nil
	}
	if sess.CartID == "" {
		sess.Cart = &types.CartSnapshot{Items: []types.CartLineItem{}}
		return nil
	}
	return s.refreshCart(ctx, sess)
}

// refreshCart replaces the snapshot wholesale. Concurrent refreshes of the same
// cart share one request.
func (s *service) refreshCart(ctx context.Context, sess *session.Session) error {
	cartID := sess.CartID
	value, err, _ := s.refresh.Do(cartID, func() (any, error) {
		return s.api.GetCart(ctx, cartID)
	})
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"cart_id": cartID, "error": err.Error()}), "cart refresh failed")
		return mapShopError(err)
	}
	shared := value.(*types.CartSnapshot)
	snapshot := &types.CartSnapshot{
		CartID:    cartID,
		Items:     append([]types.CartLineItem{}, shared.Items...),
		FetchedAt: shared.FetchedAt,
	}
	sess.ReplaceCart(snapshot)
	return nil
}

func busyError() error {
	return pkgerrors.New(pkgerrors.CodeBusy, "another cart update is still in progress")
}

// mapShopError turns an application-level rejection into a user-facing
// validation error carrying the server message.
func mapShopError(err error) error {
	if business, ok := shopapi.AsBusiness(err); ok {
		msg := business.Message
		if msg == "" {
			msg = "cart update rejected"
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, msg)
	}
	return err
}

func failureMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	if business, ok := shopapi.AsBusiness(err); ok && business.Message != "" {
		return business.Message
	}
	return err.Error()
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
