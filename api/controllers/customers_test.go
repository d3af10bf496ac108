package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storefront-session/internal/customers"
	"github.com/angelmondragon/storefront-session/internal/session"
	"github.com/angelmondragon/storefront-session/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-session/pkg/errors"
	"github.com/angelmondragon/storefront-session/pkg/types"
)

type stubCustomers struct {
	guest     *customers.GuestResult
	err       error
	loggedOut bool
	synced    bool
}

func (s *stubCustomers) ContinueAsGuest(ctx context.Context, sess *session.Session, contact string) (*customers.GuestResult, error) {
	return s.guest, s.err
}

func (s *stubCustomers) Login(ctx context.Context, sess *session.Session, contact, password string) (*types.CustomerIdentity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &types.CustomerIdentity{CustomerAccountNumber: "C-1", ContactNumber: contact}, nil
}

func (s *stubCustomers) Logout(ctx context.Context, sess *session.Session) { s.loggedOut = true }

func (s *stubCustomers) Current(ctx context.Context, sess *session.Session) (*types.CustomerIdentity, error) {
	return &types.CustomerIdentity{CustomerAccountNumber: "C-1"}, nil
}

func (s *stubCustomers) Sync(ctx context.Context, sess *session.Session) (*types.CustomerIdentity, error) {
	s.synced = true
	return &types.CustomerIdentity{CustomerAccountNumber: "C-1"}, nil
}

func TestContinueAsGuestLoginRequiredIsSuccessResponse(t *testing.T) {
	t.Parallel()

	svc := &stubCustomers{guest: &customers.GuestResult{
		Outcome: enums.GuestOutcomeLoginRequired,
		Login:   &customers.LoginPrefill{ContactNumber: "0551234567"},
	}}
	rec := httptest.NewRecorder()
	CustomerContinueAsGuest(svc, nil).ServeHTTP(rec, sessionRequest(http.MethodPost, "/api/v1/customers/guest", `{"contactNumber":"0551234567"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data struct {
			Outcome string `json:"outcome"`
			Login   struct {
				ContactNumber string `json:"contactNumber"`
			} `json:"login"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Outcome != "login_required" || envelope.Data.Login.ContactNumber != "0551234567" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestContinueAsGuestCreatedIs201(t *testing.T) {
	t.Parallel()

	svc := &stubCustomers{guest: &customers.GuestResult{Outcome: enums.GuestOutcomeCreated}}
	rec := httptest.NewRecorder()
	CustomerContinueAsGuest(svc, nil).ServeHTTP(rec, sessionRequest(http.MethodPost, "/api/v1/customers/guest", `{"contactNumber":"0551234567"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
}

func TestCustomerLoginFailureIsUnauthorized(t *testing.T) {
	t.Parallel()

	svc := &stubCustomers{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "Wrong password")}
	rec := httptest.NewRecorder()
	CustomerLogin(svc, nil).ServeHTTP(rec, sessionRequest(http.MethodPost, "/api/v1/customers/login", `{"contactNumber":"0551234567","password":"x"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	CustomerLogin(svc, nil).ServeHTTP(rec, sessionRequest(http.MethodPost, "/api/v1/customers/login", `{"contactNumber":"0551234567"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing password should be 400, got %d", rec.Code)
	}
}

func TestCustomerLogoutAndSync(t *testing.T) {
	t.Parallel()

	svc := &stubCustomers{}
	rec := httptest.NewRecorder()
	CustomerLogout(svc, nil).ServeHTTP(rec, sessionRequest(http.MethodPost, "/api/v1/customers/logout", ""))
	if rec.Code != http.StatusNoContent || !svc.loggedOut {
		t.Fatalf("expected 204 and logout, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	CustomerMe(svc, nil).ServeHTTP(rec, sessionRequest(http.MethodGet, "/api/v1/customers/me?sync=true", ""))
	if rec.Code != http.StatusOK || !svc.synced {
		t.Fatalf("expected synced lookup, got %d", rec.Code)
	}
}
