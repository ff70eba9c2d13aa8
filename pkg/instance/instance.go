package instance

import (
	"os"

	"github.com/angelmondragon/orderdesk/pkg/env"
)

// GetID returns the process identifier used for lock ownership and logs:
// ORDERDESK_WORKER_ID (or WORKER_ID), then the hostname, then a fixed default.
func GetID() string {
	if id := env.Get("WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
