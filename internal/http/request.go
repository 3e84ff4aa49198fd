package http

import (
	"context"
	"io"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/kumar303/ezboot/internal/version"
)

// UserAgent identifies ezboot to the servers it talks to.
func UserAgent() string {
	return "ezboot/" + version.Version
}

// NewRetryableRequestWithContext is a wrapper around retryablehttp.NewRequestWithContext that sets the
// ezboot User-Agent.
func NewRetryableRequestWithContext(ctx context.Context, method, url string, body io.Reader) (*retryablehttp.Request, error) {
	r, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return r, err
	}
	r.Header.Set("User-Agent", UserAgent())

	return r, err
}
