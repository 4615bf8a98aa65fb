// Package httpx owns the process-wide outbound HTTP client shared by every
// service that talks to the network.
package httpx

import (
	"net/http"
	"sync"
	"time"
)

// requestTimeout bounds any single outbound request, including large audio
// downloads and uploads.
const requestTimeout = 60 * time.Second

var (
	once   sync.Once
	client *http.Client
)

// Shared returns the process-wide HTTP client, initialized on first use.
// Concurrent first callers observe exactly one initialization.
func Shared() *http.Client {
	once.Do(func() {
		client = &http.Client{Timeout: requestTimeout}
	})
	return client
}
