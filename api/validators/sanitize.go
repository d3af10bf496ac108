package validators

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/storefront-session/pkg/errors"
)

const maxProductIDLen = 128

func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

// ValidProductID accepts ids the shop API can take as a path segment.
func ValidProductID(id string) bool {
	if id == "" || len(id) > maxProductIDLen || strings.TrimSpace(id) != id {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c < 0x20 || c == 0x7f || c == '/' {
			return false
		}
	}
	return true
}

// ProductIDParam reads the {productId} route parameter.
func ProductIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "productId"))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if !ValidProductID(id) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid product id").
			WithDetails(map[string]any{"productId": SanitizeString(id, maxProductIDLen)})
	}
	return id, nil
}
