package types

import "github.com/angelmondragon/storefront-session/pkg/enums"

// CustomerIdentity is the single "current customer" shape shared by guest and registered visitors.
type CustomerIdentity struct {
	CustomerAccountNumber string              `json:"customerAccountNumber"`
	FirstName             string              `json:"firstName"`
	LastName              string              `json:"lastName"`
	ContactNumber         string              `json:"contactNumber"`
	Address               string              `json:"address,omitempty"`
	Email                 string              `json:"email"`
	IsGuest               bool                `json:"isGuest"`
	AccountType           enums.AccountType   `json:"accountType"`
	AccountStatus         enums.AccountStatus `json:"accountStatus"`
}

// MergeFrom overlays every non-empty field of server onto a copy of c.
// IsGuest is kept from c because the shop API does not echo it reliably.
func (c CustomerIdentity) MergeFrom(server CustomerIdentity) CustomerIdentity {
	merged := c
	if server.CustomerAccountNumber != "" {
		merged.CustomerAccountNumber = server.CustomerAccountNumber
	}
	if server.FirstName != "" {
		merged.FirstName = server.FirstName
	}
	if server.LastName != "" {
		merged.LastName = server.LastName
	}
	if server.ContactNumber != "" {
		merged.ContactNumber = server.ContactNumber
	}
	if server.Address != "" {
		merged.Address = server.Address
	}
	if server.Email != "" {
		merged.Email = server.Email
	}
	if server.AccountType != "" {
		merged.AccountType = server.AccountType
	}
	if server.AccountStatus != "" {
		merged.AccountStatus = server.AccountStatus
	}
	return merged
}
