package infra

import (
	"time"

	"github.com/imroc/req/v3"
)

// NewHttpClient builds the client used by queuectl to talk to a running
// server. The client keeps cookies, so a login followed by another call
// reuses the teacher session.
func NewHttpClient(baseURL string, debug bool) *req.Client {
	// Network errors are retried here; the server never retries on its own.
	client := req.C().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(time.Second)

	if debug {
		client.EnableDumpEachRequest()
	}
	return client
}
