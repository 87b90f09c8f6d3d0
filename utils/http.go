// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient returns a client for upstream API calls. The per-request
// deadline is expected to come from the request context; timeout is a backstop.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
