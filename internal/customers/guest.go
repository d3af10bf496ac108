package customers

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-session/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-session/pkg/errors"
	"github.com/angelmondragon/storefront-session/pkg/types"
)

const (
	minContactDigits = 10
	guestFirstName   = "Guest"
)

// GuestSession is the ephemeral identity of a visitor who chose to check out
// without an account. It becomes a CustomerIdentity only through Promote, once
// the shop API has accepted it.
type GuestSession struct {
	AccountNumber string
	ContactNumber string
	Email         string
	StartedAt     time.Time
}

// NewGuestSession derives the placeholder record for contactNumber, which must
// already be normalized.
func NewGuestSession(accountNumber, contactNumber, emailDomain string, now time.Time) GuestSession {
	return GuestSession{
		AccountNumber: accountNumber,
		ContactNumber: contactNumber,
		Email:         fmt.Sprintf("guest%s@%s", contactNumber, emailDomain),
		StartedAt:     now.UTC(),
	}
}

// Registration is the record submitted to the customer-creation endpoint.
func (g GuestSession) Registration() types.CustomerIdentity {
	return types.CustomerIdentity{
		CustomerAccountNumber: g.AccountNumber,
		FirstName:             guestFirstName,
		LastName:              g.ContactNumber,
		ContactNumber:         g.ContactNumber,
		Email:                 g.Email,
		IsGuest:               true,
		AccountType:           enums.AccountTypeGuest,
		AccountStatus:         enums.AccountStatusActive,
	}
}

// Promote merges what the server returned over the synthesized record.
func (g GuestSession) Promote(server *types.CustomerIdentity) types.CustomerIdentity {
	identity := g.Registration()
	if server != nil {
		identity = identity.MergeFrom(*server)
	}
	identity.IsGuest = true
	return identity
}

// NormalizeContactNumber strips spaces, dashes, parentheses and a leading plus,
// then requires at least ten digits and nothing else.
func NormalizeContactNumber(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "contact number is required")
	}
	trimmed = strings.TrimPrefix(trimmed, "+")

	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case r == ' ' || r == '-' || r == '(' || r == ')':
			continue
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			return "", pkgerrors.New(pkgerrors.CodeValidation, "contact number may only contain digits")
		}
	}
	digits := b.String()
	if len(digits) < minContactDigits {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("contact number must have at least %d digits", minContactDigits))
	}
	return digits, nil
}
