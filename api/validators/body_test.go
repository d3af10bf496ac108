package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/storefront-session/pkg/errors"
)

type quantityPayload struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type idsPayload struct {
	ProductIDs []string `json:"productIds" validate:"omitempty,dive,required"`
}

func TestDecodeJSONBodyValidation(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{}`))
	var payload quantityPayload
	err := DecodeJSONBody(req, &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["quantity"] != "is required" {
		t.Fatalf("expected json field name in details, got %#v", typed.Details())
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"quantity":1,"qty":2}`))
	var payload quantityPayload
	if err := DecodeJSONBody(req, &payload); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeOptionalJSONBodyAcceptsEmptyBody(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	var payload idsPayload
	if err := DecodeOptionalJSONBody(req, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload.ProductIDs) != 0 {
		t.Fatalf("expected empty payload, got %+v", payload)
	}

	req = httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	var required quantityPayload
	if err := DecodeJSONBody(req, &required); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestProductIDParam(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodDelete, "/cart/items/%20A-1%20", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("productId", " A-1 ")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	id, err := ProductIDParam(req)
	if err != nil || id != "A-1" {
		t.Fatalf("got %q err=%v", id, err)
	}

	empty := httptest.NewRequest(http.MethodDelete, "/cart/items/", nil)
	if _, err := ProductIDParam(empty); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type productPayload struct {
	ProductID string `json:"productId" validate:"required,productid"`
}

func TestProductIDTagRejectsSlashesAndAcceptsPadding(t *testing.T) {
	t.Parallel()

	var ok productPayload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"productId":" SKU-1 "}`))
	if err := DecodeJSONBody(req, &ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var bad productPayload
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"productId":"a/b"}`))
	if err := DecodeJSONBody(req, &bad); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	var dest productPayload
	payload := `{"productId":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	err := DecodeJSONBody(req, &dest)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected size error, got %v", err)
	}
}
