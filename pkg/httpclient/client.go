// Package httpclient builds the *http.Client used to reach the server.
package httpclient

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/countly/countly-sdk-go/pkg/version"
)

// UserAgent identifies this SDK, its version and platform.
func UserAgent() string {
	return fmt.Sprintf("countly-%s/%s (%s; %s)", version.SDKName, version.Version, runtime.GOOS, runtime.GOARCH)
}

type HTTPOptions struct {
	userAgent string
	timeout   time.Duration
	header    http.Header
	transport http.RoundTripper
}

type Opt func(*HTTPOptions)

func WithUserAgent(userAgent string) Opt {
	return func(o *HTTPOptions) {
		o.userAgent = userAgent
	}
}

func WithTimeout(timeout time.Duration) Opt {
	return func(o *HTTPOptions) {
		o.timeout = timeout
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Opt {
	return func(o *HTTPOptions) {
		if o.header == nil {
			o.header = make(http.Header)
		}
		o.header.Set(key, value)
	}
}

// WithTransport replaces http.DefaultTransport as the underlying round tripper.
func WithTransport(rt http.RoundTripper) Opt {
	return func(o *HTTPOptions) {
		o.transport = rt
	}
}

func NewHTTPClient(opts ...Opt) *http.Client {
	o := HTTPOptions{
		userAgent: UserAgent(),
		timeout:   30 * time.Second,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &http.Client{
		Timeout: o.timeout,
		Transport: &headerTransport{
			userAgent: o.userAgent,
			header:    o.header,
			rt:        o.transport,
		},
	}
}

type headerTransport struct {
	userAgent string
	header    http.Header
	rt        http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r2 := req.Clone(req.Context())
	for k, v := range t.header {
		r2.Header[k] = v
	}
	if t.userAgent != "" && r2.Header.Get("User-Agent") == "" {
		r2.Header.Set("User-Agent", t.userAgent)
	}
	return t.rt.RoundTrip(r2)
}
