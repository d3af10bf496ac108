package metrics

const namespace = "storefront"

// Outcome labels shared by the request and mutation counters.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
