// Package httpapi is the HTTP side of the harness: a retrying resty client
// per API test and a dispatcher that routes a Request to the handler for
// its verb.
package httpapi

import (
	"math"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// RetryPolicy controls how a session retries gateway failures.
type RetryPolicy struct {
	Count    int
	Factor   time.Duration
	Statuses []int
}

// DefaultRetryPolicy retries 502/503/504 five times, sleeping
// Factor * 2^(n-1) before the nth retry.
var DefaultRetryPolicy = RetryPolicy{
	Count:    5,
	Factor:   5 * time.Second,
	Statuses: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
}

// Backoff returns the wait before retry attempt n (1-based).
func (p RetryPolicy) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return time.Duration(float64(p.Factor) * math.Pow(2, float64(n-1)))
}

func (p RetryPolicy) retryable(status int) bool {
	for _, s := range p.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// NewSession returns a client with the default retry policy.
func NewSession() *resty.Client {
	return NewSessionWithPolicy(DefaultRetryPolicy)
}

// NewSessionWithPolicy returns a client that retries with p. When retries
// are exhausted the last response is returned as-is, without an error.
// The client has no timeout.
func NewSessionWithPolicy(p RetryPolicy) *resty.Client {
	client := resty.New()
	client.SetRetryCount(p.Count)
	client.SetRetryWaitTime(0)
	client.SetRetryMaxWaitTime(p.Backoff(p.Count))
	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil || resp == nil {
			return false
		}
		return p.retryable(resp.StatusCode())
	})
	client.SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
		attempt := 1
		if resp != nil && resp.Request != nil && resp.Request.Attempt > 0 {
			attempt = resp.Request.Attempt
		}
		return p.Backoff(attempt), nil
	})
	return client
}

// Close releases idle connections held by the session.
func Close(client *resty.Client) {
	if client == nil {
		return
	}
	client.GetClient().CloseIdleConnections()
}
