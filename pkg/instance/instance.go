package instance

import "os"

// ID names this process in logs and lock ownership. Platform-provided names win
// over the hostname.
func ID() string {
	for _, env := range []string{"STOREFRONT_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(env); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
