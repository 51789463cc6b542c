// Package kafka carries wirefunc requests over Kafka topics.
//
// A call is one message on the request topic. Its value is the packed body,
// and its headers name the endpoint, the verb, the request id and the reply
// topic. The responder answers on the reply topic with the result text and
// the same request id; the Transport matches replies to pending calls by
// that id.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/reoring/wirefunc"
)

// Message header keys.
const (
	HeaderRequestID = "wirefunc-request-id"
	HeaderEndpoint  = "wirefunc-endpoint"
	HeaderVerb      = "wirefunc-verb"
	HeaderReplyTo   = "wirefunc-reply-to"
)

// ErrTimeout is returned when no reply arrives within Config.Timeout.
var ErrTimeout = errors.New("kafka: timed out waiting for reply")

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("kafka: transport closed")

// Config names the topics used by a Transport.
type Config struct {
	RequestTopic string
	ReplyTopic   string
	// Timeout bounds the wait for a reply; zero waits for ctx only.
	Timeout time.Duration
}

func (c Config) validate() error {
	if c.RequestTopic == "" {
		return errors.New("kafka: request topic required")
	}
	if c.ReplyTopic == "" {
		return errors.New("kafka: reply topic required")
	}
	return nil
}

// Transport is a wirefunc.Transport using a producer for requests and a
// partition consumer for replies.
type Transport struct {
	cfg      Config
	producer sarama.SyncProducer
	replies  sarama.PartitionConsumer
	consumer sarama.Consumer
	logger   zerolog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]chan []byte
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger used for unmatched or malformed replies.
func WithLogger(l zerolog.Logger) Option { return func(t *Transport) { t.logger = l } }

// WithConsumer hands the consumer that owns the reply partition to the
// Transport; Close closes it after the partition consumer.
func WithConsumer(c sarama.Consumer) Option { return func(t *Transport) { t.consumer = c } }

// New starts a Transport over an existing producer and reply consumer. The
// Transport owns both and closes them in Close.
func New(producer sarama.SyncProducer, replies sarama.PartitionConsumer, cfg Config, opts ...Option) (*Transport, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	t := &Transport{
		cfg:      cfg,
		producer: producer,
		replies:  replies,
		logger:   zerolog.Nop(),
		pending:  make(map[uuid.UUID]chan []byte),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	t.wg.Add(1)
	go t.consume()
	return t, nil
}

// Dial connects to brokers and consumes partition 0 of the reply topic from
// the newest offset.
func Dial(brokers []string, cfg Config, sc *sarama.Config, opts ...Option) (*Transport, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if sc == nil {
		sc = NewSaramaConfig()
	}
	producer, err := sarama.NewSyncProducer(brokers, sc)
	if err != nil {
		return nil, err
	}
	consumer, err := sarama.NewConsumer(brokers, sc)
	if err != nil {
		producer.Close()
		return nil, err
	}
	pc, err := consumer.ConsumePartition(cfg.ReplyTopic, 0, sarama.OffsetNewest)
	if err != nil {
		producer.Close()
		consumer.Close()
		return nil, err
	}
	return New(producer, pc, cfg, append([]Option{WithConsumer(consumer)}, opts...)...)
}

// NewSaramaConfig returns the client configuration the transport needs:
// record headers (Kafka 0.11+) and producer successes.
func NewSaramaConfig() *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V0_11_0_0
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Consumer.Return.Errors = true
	return sc
}

// Send implements wirefunc.Transport.
func (t *Transport) Send(ctx context.Context, req wirefunc.Request) ([]byte, error) {
	body, err := req.Encode()
	if err != nil {
		return nil, err
	}
	ch := make(chan []byte, 1)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.pending[req.ID] = ch
	t.mu.Unlock()
	defer t.forget(req.ID)

	msg := &sarama.ProducerMessage{
		Topic:   t.cfg.RequestTopic,
		Key:     sarama.StringEncoder(req.Endpoint),
		Value:   sarama.ByteEncoder(body),
		Headers: requestHeaders(req, t.cfg.ReplyTopic),
	}
	if _, _, err := t.producer.SendMessage(msg); err != nil {
		return nil, err
	}

	var timeout <-chan time.Time
	if t.cfg.Timeout > 0 {
		timer := time.NewTimer(t.cfg.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case raw := <-ch:
		return raw, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, ErrTimeout
	case <-t.done:
		return nil, ErrClosed
	}
}

func (t *Transport) forget(id uuid.UUID) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

func (t *Transport) consume() {
	defer t.wg.Done()
	for {
		select {
		case <-t.done:
			return
		case msg, ok := <-t.replies.Messages():
			if !ok {
				return
			}
			t.deliver(msg)
		}
	}
}

func (t *Transport) deliver(msg *sarama.ConsumerMessage) {
	raw := header(msg.Headers, HeaderRequestID)
	id, err := uuid.FromString(raw)
	if err != nil {
		t.logger.Warn().Str("request_id", raw).Int64("offset", msg.Offset).Msg("reply without valid request id")
		return
	}
	t.mu.Lock()
	ch, ok := t.pending[id]
	delete(t.pending, id)
	t.mu.Unlock()
	if !ok {
		t.logger.Debug().Str("request_id", raw).Msg("reply for unknown or abandoned request")
		return
	}
	ch <- msg.Value
}

// Close stops reply consumption, fails pending calls with ErrClosed and
// closes the producer and consumer.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	close(t.done)
	t.wg.Wait()
	var errs []error
	if err := t.replies.Close(); err != nil {
		errs = append(errs, err)
	}
	if t.consumer != nil {
		if err := t.consumer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := t.producer.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("kafka: close: %w", errors.Join(errs...))
	}
	return nil
}

func requestHeaders(req wirefunc.Request, replyTo string) []sarama.RecordHeader {
	hs := []sarama.RecordHeader{
		{Key: []byte(HeaderRequestID), Value: []byte(req.ID.String())},
		{Key: []byte(HeaderEndpoint), Value: []byte(req.Endpoint)},
		{Key: []byte(HeaderVerb), Value: []byte(req.Verb)},
		{Key: []byte(HeaderReplyTo), Value: []byte(replyTo)},
	}
	for k, v := range req.Header {
		hs = append(hs, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	return hs
}

func header(hs []*sarama.RecordHeader, key string) string {
	for _, h := range hs {
		if h != nil && string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}
