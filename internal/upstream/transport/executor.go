// Package transport performs the physical HTTP attempts. Each attempt gets a
// fresh resty client carrying the selected identity's headers and cookie jar,
// the selected proxy, and the cloudflare-bp round tripper, so no fingerprint
// state leaks between identities.
package transport

import (
	"context"
	"errors"
	"net"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"github.com/vthibault/annonce/internal/core/domain"
)

// DefaultTimeout bounds an attempt when the request spec carries none.
const DefaultTimeout = 15 * time.Second

// Executor issues single physical attempts.
type Executor struct {
	timeout time.Duration
}

// New creates an executor. timeout is the per-attempt default; zero falls
// back to DefaultTimeout.
func New(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Do performs one attempt and maps the response (or transport failure) into
// the classifier's result value. It never returns an error: failure shape is
// part of the result.
func (e *Executor) Do(ctx context.Context, spec domain.RequestSpec, id domain.Identity, proxy *domain.ProxyEndpoint) domain.Result {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}

	client := resty.New().SetTimeout(timeout)
	if jar, err := cookiejar.New(nil); err == nil {
		client.SetCookieJar(jar)
	}
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("User-Agent", id.UserAgent)
	for k, v := range id.Headers {
		client.SetHeader(k, v)
	}
	if proxy != nil {
		client.SetProxy(proxy.URL())
	}

	req := client.R().SetContext(ctx)
	if spec.Body != nil {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(spec.Body)
	}

	resp, err := req.Execute(spec.Method, spec.URL)
	if err != nil {
		return domain.Result{Err: err, ErrKind: kindOf(err)}
	}

	return domain.Result{
		StatusCode:  resp.StatusCode(),
		Body:        resp.Body(),
		ContentType: resp.Header().Get("Content-Type"),
	}
}

// kindOf buckets a transport error for diagnostics. Timed-out attempts are
// classified upstream as transient, same as any other transport failure.
func kindOf(err error) domain.ErrKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrKindTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.ErrKindDNS
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.ErrKindConnection
	}
	return domain.ErrKindOther
}
