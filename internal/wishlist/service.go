package wishlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-session/internal/session"
	pkgerrors "github.com/angelmondragon/storefront-session/pkg/errors"
	"github.com/angelmondragon/storefront-session/pkg/types"
)

type sessionSaver interface {
	SaveBestEffort(ctx context.Context, sess *session.Session, slots ...string)
}

// Service keeps the session's wishlist slot.
type Service interface {
	List(ctx context.Context, sess *session.Session) []types.ProductRef
	Add(ctx context.Context, sess *session.Session, product types.ProductRef) ([]types.ProductRef, error)
	Remove(ctx context.Context, sess *session.Session, productID string) ([]types.ProductRef, error)
	Contains(sess *session.Session, productID string) bool
}

type service struct {
	sessions sessionSaver
	now      func() time.Time
}

// NewService builds a wishlist service with the required dependencies.
func NewService(sessions sessionSaver) (Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session saver required")
	}
	return &service{sessions: sessions, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, sess *session.Session) []types.ProductRef {
	return cloneRefs(sess.Wishlist)
}

// Add puts product at the front of the wishlist. Adding a product that is
// already listed leaves the list untouched.
func (s *service) Add(ctx context.Context, sess *session.Session, product types.ProductRef) ([]types.ProductRef, error) {
	product.ProductID = strings.TrimSpace(product.ProductID)
	if product.ProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if s.Contains(sess, product.ProductID) {
		return cloneRefs(sess.Wishlist), nil
	}
	if product.At.IsZero() {
		product.At = s.now().UTC()
	}
	sess.Wishlist = append([]types.ProductRef{product}, sess.Wishlist...)
	s.sessions.SaveBestEffort(ctx, sess, session.SlotWishlist)
	return cloneRefs(sess.Wishlist), nil
}

func (s *service) Remove(ctx context.Context, sess *session.Session, productID string) ([]types.ProductRef, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	kept := make([]types.ProductRef, 0, len(sess.Wishlist))
	for _, ref := range sess.Wishlist {
		if ref.ProductID != productID {
			kept = append(kept, ref)
		}
	}
	if len(kept) == len(sess.Wishlist) {
		return cloneRefs(sess.Wishlist), nil
	}
	sess.Wishlist = kept
	s.sessions.SaveBestEffort(ctx, sess, session.SlotWishlist)
	return cloneRefs(sess.Wishlist), nil
}

func (s *service) Contains(sess *session.Session, productID string) bool {
	for _, ref := range sess.Wishlist {
		if ref.ProductID == productID {
			return true
		}
	}
	return false
}

func cloneRefs(refs []types.ProductRef) []types.ProductRef {
	out := make([]types.ProductRef, len(refs))
	copy(out, refs)
	return out
}
