package enums

import (
	"fmt"
	"strings"
)

// AccountType distinguishes synthesized guest identities from registered customers.
type AccountType string

const (
	AccountTypeGuest      AccountType = "guest"
	AccountTypeRegistered AccountType = "registered"
)

var validAccountTypes = []AccountType{
	AccountTypeGuest,
	AccountTypeRegistered,
}

// String implements fmt.Stringer.
func (a AccountType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AccountType.
func (a AccountType) IsValid() bool {
	for _, candidate := range validAccountTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAccountType converts raw input into an AccountType.
func ParseAccountType(value string) (AccountType, error) {
	for _, candidate := range validAccountTypes {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account type %q", value)
}

// AccountStatus mirrors the shop API account status.
type AccountStatus string

const (
	AccountStatusActive      AccountStatus = "active"
	AccountStatusInactive    AccountStatus = "inactive"
	AccountStatusDeactivated AccountStatus = "deactivated"
)

var validAccountStatuses = []AccountStatus{
	AccountStatusActive,
	AccountStatusInactive,
	AccountStatusDeactivated,
}

// String implements fmt.Stringer.
func (a AccountStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AccountStatus.
func (a AccountStatus) IsValid() bool {
	for _, candidate := range validAccountStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// Usable reports whether the account may keep acting as the current customer.
// Unknown statuses are treated as usable; only explicit deactivation revokes the local copy.
func (a AccountStatus) Usable() bool {
	normalized := AccountStatus(strings.ToLower(strings.TrimSpace(string(a))))
	return normalized != AccountStatusInactive && normalized != AccountStatusDeactivated
}

// ParseAccountStatus converts raw input into an AccountStatus.
func ParseAccountStatus(value string) (AccountStatus, error) {
	for _, candidate := range validAccountStatuses {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account status %q", value)
}
