package http

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// NewRetryableClient returns a new pre-configured instance of retryablehttp.Client.
// Only transport failures are retried. Any response, whatever its status, is handed back to the caller.
func NewRetryableClient(timeout time.Duration) *retryablehttp.Client {
	return &retryablehttp.Client{
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
		RetryWaitMin: 1 * time.Second,
		RetryWaitMax: 30 * time.Second,
		RetryMax:     3,
		CheckRetry:   RetryTransportErrors,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
}

// RetryTransportErrors is a retryablehttp.CheckRetry policy that retries requests which never produced a
// response. Errors the default policy deems permanent (bad scheme, TLS verification) are not retried.
func RetryTransportErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil {
		return false, nil
	}

	retry, e := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	if retry {
		log.Debug().Err(err).Msg("Retrying request")
	}
	return retry, e
}
