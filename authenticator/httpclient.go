package authenticator

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// NewHTTPClient returns a pooled client for calls to the identity provider and
// Graph. A zero timeout leaves the client without a deadline.
func NewHTTPClient(timeout time.Duration) *http.Client {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout
	return client
}
