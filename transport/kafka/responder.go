package kafka

import (
	"context"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/reoring/wirefunc"
)

// Handler answers one request with complete result text.
type Handler interface {
	Serve(ctx context.Context, req wirefunc.Request) ([]byte, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req wirefunc.Request) ([]byte, error)

func (f HandlerFunc) Serve(ctx context.Context, req wirefunc.Request) ([]byte, error) { return f(ctx, req) }

// Responder is the serving side of the transport: it reads the request
// topic and produces each answer on the topic named by the request's
// reply-to header.
type Responder struct {
	requests sarama.PartitionConsumer
	producer sarama.SyncProducer
	handler  Handler
	parseOpt wirefunc.ParseOpt
	logger   zerolog.Logger
}

// ResponderOption configures a Responder.
type ResponderOption func(*Responder)

// WithResponderLogger sets the responder's logger.
func WithResponderLogger(l zerolog.Logger) ResponderOption {
	return func(r *Responder) { r.logger = l }
}

// WithRequestParseOpt sets the options used to parse request bodies.
func WithRequestParseOpt(opt wirefunc.ParseOpt) ResponderOption {
	return func(r *Responder) { r.parseOpt = opt }
}

// NewResponder returns a Responder; call Run to start serving.
func NewResponder(requests sarama.PartitionConsumer, producer sarama.SyncProducer, h Handler, opts ...ResponderOption) *Responder {
	r := &Responder{requests: requests, producer: producer, handler: h, logger: zerolog.Nop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run serves requests until ctx is done or the request consumer closes.
// Requests that cannot be read or handled are logged and left unanswered.
func (r *Responder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-r.requests.Messages():
			if !ok {
				return nil
			}
			if err := r.serve(ctx, msg); err != nil {
				r.logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("request dropped")
			}
		}
	}
}

func (r *Responder) serve(ctx context.Context, msg *sarama.ConsumerMessage) error {
	req, replyTo, err := DecodeRequest(msg, r.parseOpt)
	if err != nil {
		return err
	}
	raw, err := r.handler.Serve(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", req.Endpoint, err)
	}
	_, _, err = r.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   replyTo,
		Key:     sarama.StringEncoder(req.Endpoint),
		Value:   sarama.ByteEncoder(raw),
		Headers: []sarama.RecordHeader{{Key: []byte(HeaderRequestID), Value: []byte(req.ID.String())}},
	})
	if err == nil {
		r.logger.Debug().Str("endpoint", req.Endpoint).Str("request_id", req.ID.String()).Msg("replied")
	}
	return err
}

// DecodeRequest rebuilds a wirefunc.Request from a request message and
// returns the topic the reply belongs on.
func DecodeRequest(msg *sarama.ConsumerMessage, opt wirefunc.ParseOpt) (wirefunc.Request, string, error) {
	var req wirefunc.Request
	var replyTo string
	for _, h := range msg.Headers {
		if h == nil {
			continue
		}
		switch k, v := string(h.Key), string(h.Value); k {
		case HeaderRequestID:
			id, err := uuid.FromString(v)
			if err != nil {
				return req, "", fmt.Errorf("kafka: request id: %w", err)
			}
			req.ID = id
		case HeaderEndpoint:
			req.Endpoint = v
		case HeaderVerb:
			req.Verb = v
		case HeaderReplyTo:
			replyTo = v
		default:
			req.SetHeader(k, v)
		}
	}
	switch {
	case req.ID == uuid.Nil:
		return req, "", fmt.Errorf("kafka: message at offset %d has no request id", msg.Offset)
	case req.Endpoint == "":
		return req, "", fmt.Errorf("kafka: request %s has no endpoint", req.ID)
	case replyTo == "":
		return req, "", fmt.Errorf("kafka: request %s has no reply topic", req.ID)
	}
	v, err := wirefunc.ParseWire(msg.Value, opt)
	if err != nil {
		return req, "", err
	}
	body, ok := v.(map[string]any)
	if !ok {
		return req, "", fmt.Errorf("kafka: request %s: body is %s, want object", req.ID, wirefunc.KindOf(v))
	}
	req.Body = body
	return req, replyTo, nil
}
