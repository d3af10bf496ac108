// Package recent tracks the products a session looked at, newest first.
package recent

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

type Service interface {
	Record(ctx context.Context, sess *session.Session, product types.ProductRef) ([]types.ProductRef, error)
	List(ctx context.Context, sess *session.Session) []types.ProductRef
}

type service struct {
	sessions sessionSaver
	limit    int
	now      func() time.Time
}

func NewService(sessions sessionSaver, limit int) (Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session saver required")
	}
	if limit < 1 {
		return nil, fmt.Errorf("recently viewed limit must be positive")
	}
	return &service{sessions: sessions, limit: limit, now: time.Now}, nil
}

// Record moves product to the front, dropping any earlier view of it and
// anything past the limit.
func (s *service) Record(ctx context.Context, sess *session.Session, product types.ProductRef) ([]types.ProductRef, error) {
	product.ProductID = strings.TrimSpace(product.ProductID)
	if product.ProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product.At = s.now().UTC()

	next := make([]types.ProductRef, 0, s.limit)
	next = append(next, product)
	for _, ref := range sess.RecentlyViewed {
		if len(next) == s.limit {
			break
		}
		if ref.ProductID == product.ProductID {
			continue
		}
		next = append(next, ref)
	}
	sess.RecentlyViewed = next
	s.sessions.SaveBestEffort(ctx, sess, session.SlotRecentlyViewed)
	return s.List(ctx, sess), nil
}

func (s *service) List(ctx context.Context, sess *session.Session) []types.ProductRef {
	out := make([]types.ProductRef, len(sess.RecentlyViewed))
	copy(out, sess.RecentlyViewed)
	return out
}
