// Package network provides the HTTP transport shared by every media server call.
package network

import (
	"net/http"
	"time"

	"github.com/kinema-cli/kinema/constant"
	"github.com/kinema-cli/kinema/log"
	"golang.org/x/net/http2"
)

// Client is used for calls that carry no server credentials, such as AniSkip and release checks.
var Client = &http.Client{
	Timeout:   30 * time.Second,
	Transport: &userAgent{next: newTransport()},
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 32
	t.MaxIdleConnsPerHost = 16
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second

	if err := http2.ConfigureTransport(t); err != nil {
		log.Warnf("http2 unavailable, falling back to http/1.1: %v", err)
	}

	return t
}

// NewAuthorized returns a client that stamps every request with the given
// authorization header. Manifest and segment requests can be slow on a cold
// transcoder, so the timeout is generous.
func NewAuthorized(authorization string) *http.Client {
	return &http.Client{
		Timeout: time.Minute,
		Transport: &userAgent{
			next:          newTransport(),
			authorization: authorization,
		},
	}
}

type userAgent struct {
	next          http.RoundTripper
	authorization string
}

func (u *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", constant.UserAgent)

	if u.authorization != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", u.authorization)
	}

	return u.next.RoundTrip(req)
}
