package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-session/internal/session"
	"github.com/angelmondragon/storefront-session/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-session/pkg/errors"
	"github.com/angelmondragon/storefront-session/pkg/logger"
	"github.com/angelmondragon/storefront-session/pkg/shopapi"
	"github.com/angelmondragon/storefront-session/pkg/types"
)

type customerAPI interface {
	CreateCustomer(ctx context.Context, identity types.CustomerIdentity) (*types.CustomerIdentity, error)
	LoginCustomer(ctx context.Context, contactNumber, password string) (*types.CustomerIdentity, error)
	GetCustomer(ctx context.Context, accountNumber string) (*types.CustomerIdentity, error)
}

type sessionSaver interface {
	SaveBestEffort(ctx context.Context, sess *session.Session, slots ...string)
}

// Service owns the current-customer identity of a session.
type Service interface {
	ContinueAsGuest(ctx context.Context, sess *session.Session, contactNumber string) (*GuestResult, error)
	Login(ctx context.Context, sess *session.Session, contactNumber, password string) (*types.CustomerIdentity, error)
	Logout(ctx context.Context, sess *session.Session)
	Current(ctx context.Context, sess *session.Session) (*types.CustomerIdentity, error)
	Sync(ctx context.Context, sess *session.Session) (*types.CustomerIdentity, error)
}

// GuestResult is the outcome of ContinueAsGuest. login_required is a normal
// outcome, not an error: the storefront switches to the login form.
type GuestResult struct {
	Outcome  enums.GuestOutcome      `json:"outcome"`
	Customer *types.CustomerIdentity `json:"customer,omitempty"`
	Login    *LoginPrefill           `json:"login,omitempty"`
	Message  string                  `json:"message,omitempty"`
}

type LoginPrefill struct {
	ContactNumber string `json:"contactNumber"`
}

// ServiceParams bundles the dependencies of the customer service.
type ServiceParams struct {
	API              customerAPI
	Sessions         sessionSaver
	Logger           *logger.Logger
	GuestEmailDomain string
}

type service struct {
	api         customerAPI
	sessions    sessionSaver
	logg        *logger.Logger
	emailDomain string
	newID       func() string
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("shop api client required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session saver required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	domain := strings.TrimSpace(params.GuestEmailDomain)
	if domain == "" {
		return nil, fmt.Errorf("guest email domain required")
	}
	return &service{
		api:         params.API,
		sessions:    params.Sessions,
		logg:        params.Logger,
		emailDomain: domain,
		newID:       uuid.NewString,
		now:         time.Now,
	}, nil
}

func (s *service) ContinueAsGuest(ctx context.Context, sess *session.Session, contactNumber string) (*GuestResult, error) {
	contact, err := NormalizeContactNumber(contactNumber)
	if err != nil {
		return nil, err
	}

	guest := NewGuestSession(s.newID(), contact, s.emailDomain, s.now())
	created, err := s.api.CreateCustomer(ctx, guest.Registration())
	if err != nil {
		if shopapi.IsAlreadyExists(err) {
			s.logg.Info(s.logg.WithField(ctx, "outcome", enums.GuestOutcomeLoginRequired.String()), "guest contact already registered")
			business, _ := shopapi.AsBusiness(err)
			return &GuestResult{
				Outcome: enums.GuestOutcomeLoginRequired,
				Login:   &LoginPrefill{ContactNumber: contact},
				Message: business.Message,
			}, nil
		}
		if business, ok := shopapi.AsBusiness(err); ok {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, messageOr(business.Message, "guest checkout rejected"))
		}
		return nil, err
	}

	identity := guest.Promote(created)
	sess.Customer = &identity
	s.sessions.SaveBestEffort(ctx, sess, session.SlotCustomer)

	s.logg.Info(s.logg.WithCustomer(ctx, identity.CustomerAccountNumber, true), "guest identity created")
	return &GuestResult{Outcome: enums.GuestOutcomeCreated, Customer: &identity}, nil
}

func (s *service) Login(ctx context.Context, sess *session.Session, contactNumber, password string) (*types.CustomerIdentity, error) {
	contact, err := NormalizeContactNumber(contactNumber)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(password) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}

	remote, err := s.api.LoginCustomer(ctx, contact, password)
	if err != nil {
		if business, ok := shopapi.AsBusiness(err); ok {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, messageOr(business.Message, "invalid credentials"))
		}
		return nil, err
	}
	if !remote.AccountStatus.Usable() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}

	identity := types.CustomerIdentity{ContactNumber: contact, AccountType: enums.AccountTypeRegistered}.MergeFrom(*remote)
	identity.IsGuest = false
	if identity.CustomerAccountNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shop api returned a customer without an account number")
	}
	sess.Customer = &identity
	s.sessions.SaveBestEffort(ctx, sess, session.SlotCustomer)

	s.logg.Info(s.logg.WithCustomer(ctx, identity.CustomerAccountNumber, false), "customer logged in")
	return &identity, nil
}

// Logout forgets the identity along with any checkout handoff prepared for it.
func (s *service) Logout(ctx context.Context, sess *session.Session) {
	sess.ClearIdentity()
	s.sessions.SaveBestEffort(ctx, sess, session.SlotCustomer, session.SlotCheckout)
}

func (s *service) Current(ctx context.Context, sess *session.Session) (*types.CustomerIdentity, error) {
	if !sess.HasIdentity() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no current customer")
	}
	return sess.Customer, nil
}

// Sync re-reads the account. A deactivated account clears the local identity.
func (s *service) Sync(ctx context.Context, sess *session.Session) (*types.CustomerIdentity, error) {
	if !sess.HasIdentity() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no current customer")
	}
	current := *sess.Customer
	ctx = s.logg.WithCustomer(ctx, current.CustomerAccountNumber, current.IsGuest)

	remote, err := s.api.GetCustomer(ctx, current.CustomerAccountNumber)
	if err != nil {
		if business, ok := shopapi.AsBusiness(err); ok {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, messageOr(business.Message, "customer lookup failed"))
		}
		return nil, err
	}
	if !remote.AccountStatus.Usable() {
		s.logg.Warn(ctx, "account deactivated remotely, clearing identity")
		s.Logout(ctx, sess)
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}

	merged := current.MergeFrom(*remote)
	sess.Customer = &merged
	s.sessions.SaveBestEffort(ctx, sess, session.SlotCustomer)
	return &merged, nil
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}
