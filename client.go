package wirefunc

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Transport sends a request and returns the complete response text. It owns
// connection management, cancellation and any retry policy.
type Transport interface {
	Send(ctx context.Context, req Request) ([]byte, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) ([]byte, error)

func (f TransportFunc) Send(ctx context.Context, req Request) ([]byte, error) { return f(ctx, req) }

// Client runs calls over a Transport. It is safe for concurrent use.
type Client struct {
	transport Transport
	logger    zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l zerolog.Logger) ClientOption { return func(c *Client) { c.logger = l } }

// NewClient returns a Client sending through t.
func NewClient(t Transport, opts ...ClientOption) *Client {
	c := &Client{transport: t, logger: zerolog.Nop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Call builds, sends and handles one call of e.
func (c *Client) Call(ctx context.Context, e *Endpoint, params map[string]any) Outcome[any, any] {
	req, err := e.Build(params)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", e.name).Msg("build request")
		return failed[any, any](err)
	}
	return c.roundTrip(ctx, e, req)
}

// CallTyped is Client.Call for a TypedEndpoint.
func CallTyped[P, T, E any](ctx context.Context, c *Client, t TypedEndpoint[P, T, E], p P) Outcome[T, E] {
	req, err := t.Build(p)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", t.ep.name).Msg("build request")
		return failed[T, E](err)
	}
	return ConvertOutcome[T, E](c.roundTrip(ctx, t.ep, req))
}

func (c *Client) roundTrip(ctx context.Context, e *Endpoint, req Request) Outcome[any, any] {
	log := c.logger.With().
		Str("endpoint", e.name).
		Str("verb", e.verb).
		Str("request_id", req.ID.String()).
		Logger()
	start := time.Now()
	log.Debug().Int("fields", len(req.Body)).Msg("call start")

	raw, err := c.transport.Send(ctx, req)
	if err != nil {
		if _, ok := AsTransportError(err); !ok {
			err = &TransportError{Endpoint: e.name, Cause: err}
		}
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("transport failed")
		return failed[any, any](err)
	}
	out := e.HandleResponse(ctx, raw)
	if out.Error != nil {
		log.Warn().Err(out.Error).Dur("elapsed", time.Since(start)).Msg("response rejected")
		return out
	}
	log.Debug().
		Stringer("variant", out.Response.Variant()).
		Dur("elapsed", time.Since(start)).
		Msg("call done")
	return out
}
