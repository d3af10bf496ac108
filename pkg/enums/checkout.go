package enums

// CheckoutStatus is the outcome of preparing a checkout handoff.
type CheckoutStatus string

const (
	CheckoutStatusReady                  CheckoutStatus = "ready"
	CheckoutStatusAuthenticationRequired CheckoutStatus = "authentication_required"
)

// String implements fmt.Stringer.
func (c CheckoutStatus) String() string {
	return string(c)
}

// GuestOutcome is the outcome of a continue-as-guest attempt.
type GuestOutcome string

const (
	GuestOutcomeCreated       GuestOutcome = "created"
	GuestOutcomeLoginRequired GuestOutcome = "login_required"
)

// String implements fmt.Stringer.
func (g GuestOutcome) String() string {
	return string(g)
}
