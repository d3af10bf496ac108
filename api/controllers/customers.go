package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-session/api/middleware"
	"github.com/angelmondragon/storefront-session/api/responses"
	"github.com/angelmondragon/storefront-session/api/validators"
	"github.com/angelmondragon/storefront-session/internal/customers"
	"github.com/angelmondragon/storefront-session/pkg/enums"
	"github.com/angelmondragon/storefront-session/pkg/logger"
)

type guestRequest struct {
	ContactNumber string `json:"contactNumber" validate:"required,max=32"`
}

type loginRequest struct {
	ContactNumber string `json:"contactNumber" validate:"required,max=32"`
	Password      string `json:"password" validate:"required,max=256"`
}

// CustomerContinueAsGuest registers a guest identity. An already-registered
// contact number yields outcome login_required with a prefilled login form.
func CustomerContinueAsGuest(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := middleware.RequireSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload guestRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ContinueAsGuest(r.Context(), sess, payload.ContactNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if result.Outcome == enums.GuestOutcomeCreated {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

func CustomerLogin(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := middleware.RequireSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload loginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		identity, err := svc.Login(r.Context(), sess, payload.ContactNumber, payload.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, identity)
	}
}

func CustomerLogout(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := middleware.RequireSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		svc.Logout(r.Context(), sess)
		w.WriteHeader(http.StatusNoContent)
	}
}

// CustomerMe returns the current identity; ?sync=true re-reads it from the shop.
func CustomerMe(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := middleware.RequireSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lookup := svc.Current
		if r.URL.Query().Get("sync") == "true" {
			lookup = svc.Sync
		}
		identity, err := lookup(r.Context(), sess)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, identity)
	}
}
