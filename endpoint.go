package wirefunc

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
)

// Request is the transport-agnostic description of one call.
type Request struct {
	// ID is a random correlation id; message transports use it to match the
	// reply to the call.
	ID       uuid.UUID
	Endpoint string
	Verb     string
	Body     map[string]any // packed: keys are wire keys
	// Header carries transport metadata such as trace propagation. Transports
	// forward it as HTTP headers or message headers.
	Header map[string]string
}

// SetHeader sets a metadata entry, allocating Header when needed.
func (r *Request) SetHeader(key, value string) {
	if r.Header == nil {
		r.Header = make(map[string]string)
	}
	r.Header[key] = value
}

// Encode renders the packed body as wire text.
func (r Request) Encode() ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	return EncodeWire(r.Body)
}

// Outcome is what a call yields: exactly one of Error and Response is set.
type Outcome[T, E any] struct {
	Error    error
	Response *Result[T, E]
}

// Failed reports whether the call failed before producing a Result.
func (o Outcome[T, E]) Failed() bool { return o.Error != nil }

func failed[T, E any](err error) Outcome[T, E] { return Outcome[T, E]{Error: err} }

func succeeded[T, E any](r Result[T, E]) Outcome[T, E] { return Outcome[T, E]{Response: &r} }

// Endpoint couples an endpoint name and verb with its params schema and
// result schema.
type Endpoint struct {
	name     string
	verb     string
	params   *ObjectSchema
	result   *ResultSchema
	protocol Protocol
	parseOpt ParseOpt
}

// EndpointOption configures an Endpoint.
type EndpointOption func(*Endpoint)

// WithProtocol overrides DefaultProtocol for the endpoint's responses.
func WithProtocol(p Protocol) EndpointOption { return func(e *Endpoint) { e.protocol = p } }

// WithParseOpt sets the options used to parse response text.
func WithParseOpt(opt ParseOpt) EndpointOption { return func(e *Endpoint) { e.parseOpt = opt } }

var verbs = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "PATCH": {}, "DELETE": {},
}

// NewEndpoint declares an endpoint. params may be nil for endpoints without
// parameters; ok and err type the two result branches.
func NewEndpoint(name, verb string, params *ObjectSchema, ok, err Schema, opts ...EndpointOption) (*Endpoint, error) {
	if name == "" {
		return nil, &SchemaError{Code: CodeInvalidSchema, Message: "endpoint name must not be empty"}
	}
	verb = strings.ToUpper(verb)
	if _, known := verbs[verb]; !known {
		return nil, &SchemaError{Code: CodeInvalidSchema, Subject: verb, Message: "unsupported verb"}
	}
	if params == nil {
		params = Object().MustBuild()
	}
	e := &Endpoint{name: name, verb: verb, params: params, protocol: DefaultProtocol}
	for _, o := range opts {
		o(e)
	}
	rs, rerr := NewResultSchema(ok, err, e.protocol)
	if rerr != nil {
		return nil, rerr
	}
	e.result = rs
	return e, nil
}

// MustEndpoint is like NewEndpoint but panics on error.
func MustEndpoint(name, verb string, params *ObjectSchema, ok, err Schema, opts ...EndpointOption) *Endpoint {
	e, rerr := NewEndpoint(name, verb, params, ok, err, opts...)
	if rerr != nil {
		panic(rerr)
	}
	return e
}

func (e *Endpoint) Name() string          { return e.name }
func (e *Endpoint) Verb() string          { return e.verb }
func (e *Endpoint) Params() *ObjectSchema { return e.params }
func (e *Endpoint) Result() *ResultSchema { return e.result }
func (e *Endpoint) ParseOpt() ParseOpt    { return e.parseOpt }

// Build packs logical params into a Request.
func (e *Endpoint) Build(params map[string]any) (Request, error) {
	body, err := Pack(e.params, params)
	if err != nil {
		return Request{}, err
	}
	return e.request(body)
}

func (e *Endpoint) request(body map[string]any) (Request, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return Request{}, fmt.Errorf("wirefunc: request id: %w", err)
	}
	return Request{ID: id, Endpoint: e.name, Verb: e.verb, Body: body}, nil
}

// HandleResponse turns raw response text into an Outcome: parse, classify by
// discriminant, verify the branch payload. It is the single place where
// failures become values; nothing escapes it, including panics, and it is
// idempotent for the same input.
func (e *Endpoint) HandleResponse(ctx context.Context, raw []byte) (out Outcome[any, any]) {
	defer func() {
		if r := recover(); r != nil {
			out = failed[any, any](fmt.Errorf("wirefunc: %s: response handling panicked: %v", e.name, r))
		}
	}()
	v, err := ParseWire(raw, e.parseOpt)
	if err != nil {
		return failed[any, any](err)
	}
	res, err := e.result.Classify(ctx, v)
	if err != nil {
		return failed[any, any](err)
	}
	return succeeded(res)
}

func (e *Endpoint) String() string { return e.verb + " " + e.name }
