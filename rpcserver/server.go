// Package rpcserver serves wirefunc endpoints: it verifies packed request
// bodies against each endpoint's params schema, runs the handler and answers
// with tagged result text.
package rpcserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	zipkin "github.com/openzipkin/zipkin-go"
	"github.com/rs/zerolog"

	"github.com/reoring/wirefunc"
	"github.com/reoring/wirefunc/transport/ziptrace"
)

// HandlerFunc implements one endpoint. params is the verified request keyed
// by logical field names. A returned error aborts the call without a result;
// domain failures belong in an Err result instead.
type HandlerFunc func(ctx context.Context, params wirefunc.Record) (wirefunc.Result[any, any], error)

// ErrUnknownEndpoint is returned for requests naming no registered endpoint.
var ErrUnknownEndpoint = errors.New("rpcserver: unknown endpoint")

// RequestError wraps a request that failed to parse or verify.
type RequestError struct {
	Endpoint string
	Err      error
}

func (e *RequestError) Error() string { return fmt.Sprintf("rpcserver: %s: bad request: %v", e.Endpoint, e.Err) }
func (e *RequestError) Unwrap() error { return e.Err }

type route struct {
	ep      *wirefunc.Endpoint
	handler HandlerFunc
}

// Server dispatches requests to registered endpoints. It is safe for
// concurrent use; registration usually happens before serving.
type Server struct {
	mu       sync.RWMutex
	routes   map[string]route
	logger   zerolog.Logger
	parseOpt wirefunc.ParseOpt
	tracer   *zipkin.Tracer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option { return func(s *Server) { s.logger = l } }

// WithParseOpt sets the options used to parse request bodies
// (DefaultParseOpt otherwise).
func WithParseOpt(opt wirefunc.ParseOpt) Option { return func(s *Server) { s.parseOpt = opt } }

// WithTracer records a server span per request, joining B3-propagated traces.
func WithTracer(t *zipkin.Tracer) Option { return func(s *Server) { s.tracer = t } }

// New returns an empty Server.
func New(opts ...Option) *Server {
	s := &Server{
		routes:   make(map[string]route),
		logger:   zerolog.Nop(),
		parseOpt: DefaultParseOpt(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register binds h to ep. Endpoint names must be unique.
func (s *Server) Register(ep *wirefunc.Endpoint, h HandlerFunc) error {
	if ep == nil || h == nil {
		return errors.New("rpcserver: endpoint and handler required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.routes[ep.Name()]; dup {
		return fmt.Errorf("rpcserver: endpoint %q already registered", ep.Name())
	}
	s.routes[ep.Name()] = route{ep: ep, handler: h}
	return nil
}

// MustRegister is like Register but panics on error.
func (s *Server) MustRegister(ep *wirefunc.Endpoint, h HandlerFunc) {
	if err := s.Register(ep, h); err != nil {
		panic(err)
	}
}

// Endpoints returns the registered endpoints ordered by name.
func (s *Server) Endpoints() []*wirefunc.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*wirefunc.Endpoint, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r.ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func (s *Server) lookup(name string) (route, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routes[name]
	return r, ok
}

// Serve answers one transport-level request with result text. It is the
// handler used by message transports; the HTTP binding shares it.
func (s *Server) Serve(ctx context.Context, req wirefunc.Request) ([]byte, error) {
	rt, ok := s.lookup(req.Endpoint)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, req.Endpoint)
	}
	params, err := wirefunc.Verify(ctx, req.Body, rt.ep.Params())
	if err != nil {
		return nil, &RequestError{Endpoint: req.Endpoint, Err: err}
	}
	return s.call(ctx, rt, params.(wirefunc.Record), func(k string) string { return req.Header[k] })
}

// call runs the handler; header reads transport metadata of the request.
func (s *Server) call(ctx context.Context, rt route, params wirefunc.Record, header func(string) string) ([]byte, error) {
	start := time.Now()
	log := s.logger.With().Str("endpoint", rt.ep.Name()).Logger()
	if s.tracer != nil {
		span, sctx := ziptrace.ServerSpan(ctx, s.tracer, rt.ep.Name(), header)
		defer span.Finish()
		ctx = sctx
	}
	ctx = ContextWithParams(ctx, params)

	res, err := rt.handler(ctx, params)
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("handler failed")
		return nil, err
	}
	wire, err := rt.ep.Result().Encode(ctx, res)
	if err != nil {
		log.Error().Err(err).Msg("handler result does not match its schema")
		return nil, fmt.Errorf("rpcserver: %s: encode result: %w", rt.ep.Name(), err)
	}
	raw, err := wirefunc.EncodeWire(wire)
	if err != nil {
		return nil, err
	}
	log.Debug().Stringer("variant", res.Variant()).Dur("elapsed", time.Since(start)).Msg("served")
	return raw, nil
}
