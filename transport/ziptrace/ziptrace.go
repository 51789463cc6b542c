// Package ziptrace records a Zipkin client span around every call made
// through a wirefunc.Transport and propagates it to the server in B3 headers.
package ziptrace

import (
	"context"
	"strconv"

	zipkin "github.com/openzipkin/zipkin-go"
	"github.com/openzipkin/zipkin-go/model"
	"github.com/openzipkin/zipkin-go/propagation/b3"

	"github.com/reoring/wirefunc"
)

// Span tags.
const (
	EndpointTag  = "wirefunc.endpoint"
	VerbTag      = "wirefunc.verb"
	RequestIDTag = "wirefunc.request_id"
	BytesTag     = "wirefunc.response_bytes"
)

// Transport decorates another Transport with tracing.
type Transport struct {
	next   wirefunc.Transport
	tracer *zipkin.Tracer
}

// Wrap returns next traced by tracer.
func Wrap(next wirefunc.Transport, tracer *zipkin.Tracer) *Transport {
	return &Transport{next: next, tracer: tracer}
}

// Send starts a client span named after the endpoint, injects it into the
// request headers and finishes it when next returns.
func (t *Transport) Send(ctx context.Context, req wirefunc.Request) ([]byte, error) {
	span, ctx := t.tracer.StartSpanFromContext(ctx, "wirefunc.call."+req.Endpoint, zipkin.Kind(model.Client))
	defer span.Finish()

	span.Tag(EndpointTag, req.Endpoint)
	span.Tag(VerbTag, req.Verb)
	span.Tag(RequestIDTag, req.ID.String())

	// copy so the caller's request is left as built
	if len(req.Header) > 0 {
		h := make(map[string]string, len(req.Header)+4)
		for k, v := range req.Header {
			h[k] = v
		}
		req.Header = h
	}
	Inject(&req, span.Context())

	raw, err := t.next.Send(ctx, req)
	if err != nil {
		zipkin.TagError.Set(span, err.Error())
		return nil, err
	}
	span.Tag(BytesTag, strconv.Itoa(len(raw)))
	return raw, nil
}

// Inject writes sc into req as B3 headers.
func Inject(req *wirefunc.Request, sc model.SpanContext) {
	req.SetHeader(b3.TraceID, sc.TraceID.String())
	req.SetHeader(b3.SpanID, sc.ID.String())
	if sc.ParentID != nil {
		req.SetHeader(b3.ParentSpanID, sc.ParentID.String())
	}
	if sc.Sampled != nil {
		sampled := "0"
		if *sc.Sampled {
			sampled = "1"
		}
		req.SetHeader(b3.Sampled, sampled)
	}
}

// Extract reads B3 headers written by Inject. Lookup is exact, so callers
// holding canonicalized HTTP headers should use a case-insensitive get.
func Extract(get func(key string) string) (model.SpanContext, bool) {
	sc, err := b3.ParseHeaders(get(b3.TraceID), get(b3.SpanID), get(b3.ParentSpanID), get(b3.Sampled), get(b3.Flags))
	if err != nil || sc == nil {
		return model.SpanContext{}, false
	}
	return *sc, true
}

// ServerSpan starts a server span for a served request, joining the trace
// propagated in its headers when present. The caller finishes the span.
func ServerSpan(ctx context.Context, tracer *zipkin.Tracer, endpoint string, get func(key string) string) (zipkin.Span, context.Context) {
	opts := []zipkin.SpanOption{zipkin.Kind(model.Server)}
	if sc, ok := Extract(get); ok {
		opts = append(opts, zipkin.Parent(sc))
	}
	span := tracer.StartSpan("wirefunc.serve."+endpoint, opts...)
	span.Tag(EndpointTag, endpoint)
	return span, zipkin.NewContext(ctx, span)
}
