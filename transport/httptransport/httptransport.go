// Package httptransport sends wirefunc requests over HTTP.
//
// Calls map to "<base>/<endpoint>". Verbs with a body (POST, PUT, PATCH)
// send the packed body as JSON; GET and DELETE put every packed field in the
// query string, its value rendered as wire text.
package httptransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"github.com/reoring/wirefunc"
)

// ContentType is sent with request bodies and expected from servers.
const ContentType = "application/json"

// RequestIDHeader carries wirefunc.Request.ID.
const RequestIDHeader = "X-Request-Id"

// DefaultMaxResponseBytes bounds response bodies read by a Transport.
const DefaultMaxResponseBytes = 4 << 20

// Transport is a wirefunc.Transport over net/http.
type Transport struct {
	base     *url.URL
	client   *http.Client
	header   http.Header
	maxBytes int64
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(c *http.Client) Option { return func(t *Transport) { t.client = c } }

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option { return func(t *Transport) { t.header.Add(key, value) } }

// WithMaxResponseBytes bounds the response body; 0 disables the limit.
func WithMaxResponseBytes(n int64) Option { return func(t *Transport) { t.maxBytes = n } }

// New returns a Transport rooted at baseURL.
func New(baseURL string, opts ...Option) (*Transport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httptransport: base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("httptransport: base url %q: scheme must be http or https", baseURL)
	}
	t := &Transport{
		base:     u,
		client:   &http.Client{Timeout: 30 * time.Second},
		header:   make(http.Header),
		maxBytes: DefaultMaxResponseBytes,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Send implements wirefunc.Transport. Non-2xx statuses become a
// *wirefunc.TransportError carrying the status and the start of the body.
func (t *Transport) Send(ctx context.Context, req wirefunc.Request) ([]byte, error) {
	hreq, err := t.newRequest(ctx, req)
	if err != nil {
		return nil, &wirefunc.TransportError{Endpoint: req.Endpoint, Cause: err}
	}
	resp, err := t.client.Do(hreq)
	if err != nil {
		return nil, &wirefunc.TransportError{Endpoint: req.Endpoint, Cause: err}
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if t.maxBytes > 0 {
		body = io.LimitReader(resp.Body, t.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &wirefunc.TransportError{Endpoint: req.Endpoint, Status: resp.StatusCode, Cause: err}
	}
	if t.maxBytes > 0 && int64(len(data)) > t.maxBytes {
		return nil, &wirefunc.TransportError{
			Endpoint: req.Endpoint,
			Status:   resp.StatusCode,
			Cause:    fmt.Errorf("response exceeds %d bytes", t.maxBytes),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &wirefunc.TransportError{
			Endpoint: req.Endpoint,
			Status:   resp.StatusCode,
			Cause:    fmt.Errorf("unexpected status %s: %s", resp.Status, snippet(data)),
		}
	}
	return data, nil
}

func (t *Transport) newRequest(ctx context.Context, req wirefunc.Request) (*http.Request, error) {
	u := *t.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + url.PathEscape(req.Endpoint)

	var body io.Reader
	switch req.Verb {
	case http.MethodGet, http.MethodDelete:
		q, err := Query(req.Body)
		if err != nil {
			return nil, err
		}
		u.RawQuery = q.Encode()
	default:
		data, err := req.Encode()
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Verb, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range t.header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	for k, v := range req.Header {
		hreq.Header.Set(k, v)
	}
	hreq.Header.Set("Accept", ContentType)
	if body != nil {
		hreq.Header.Set("Content-Type", ContentType)
	}
	if req.ID != uuid.Nil {
		hreq.Header.Set(RequestIDHeader, req.ID.String())
	}
	return hreq, nil
}

// Query renders a packed body as query parameters: one parameter per wire
// key, the value encoded as wire text.
func Query(body map[string]any) (url.Values, error) {
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	q := make(url.Values, len(body))
	for _, k := range keys {
		data, err := wirefunc.EncodeWire(body[k])
		if err != nil {
			return nil, fmt.Errorf("query parameter %q: %w", k, err)
		}
		q.Set(k, string(data))
	}
	return q, nil
}

// FromQuery is the inverse of Query: each parameter value is parsed as wire
// text.
func FromQuery(q url.Values, opt wirefunc.ParseOpt) (map[string]any, error) {
	out := make(map[string]any, len(q))
	for k, vs := range q {
		if len(vs) == 0 {
			continue
		}
		v, err := wirefunc.ParseWire([]byte(vs[0]), opt)
		if err != nil {
			return nil, fmt.Errorf("query parameter %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func snippet(b []byte) string {
	const max = 256
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
