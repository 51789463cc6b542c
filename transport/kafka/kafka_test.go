package kafka_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/require"

	"github.com/reoring/wirefunc"
	"github.com/reoring/wirefunc/transport/kafka"
)

var greet = wirefunc.MustEndpoint("greet", "POST",
	wirefunc.Object().Field("name", wirefunc.String()).Required().MustBuild(),
	wirefunc.String(), wirefunc.String())

var cfg = kafka.Config{RequestTopic: "wirefunc.requests", ReplyTopic: "wirefunc.replies", Timeout: 2 * time.Second}

func replyPartition(t *testing.T) (*mocks.PartitionConsumer, sarama.PartitionConsumer) {
	t.Helper()
	consumer := mocks.NewConsumer(t, nil)
	exp := consumer.ExpectConsumePartition(cfg.ReplyTopic, 0, sarama.OffsetNewest)
	pc, err := consumer.ConsumePartition(cfg.ReplyTopic, 0, sarama.OffsetNewest)
	require.NoError(t, err)
	return exp, pc
}

func replyFor(id, text string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Value:   []byte(text),
		Headers: []*sarama.RecordHeader{{Key: []byte(kafka.HeaderRequestID), Value: []byte(id)}},
	}
}

func TestTransport_RequestReply(t *testing.T) {
	exp, pc := replyPartition(t)
	producer := mocks.NewSyncProducer(t, nil)

	req, err := greet.Build(map[string]any{"name": "alice"})
	require.NoError(t, err)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"a":"alice"}` {
			return fmt.Errorf("unexpected body %s", val)
		}
		// a reply for someone else first; it must be ignored
		exp.YieldMessage(replyFor("6ba7b810-9dad-11d1-80b4-00c04fd430c8", `{"a":2,"b":"not yours"}`))
		exp.YieldMessage(replyFor(req.ID.String(), `{"a":1,"b":"hello alice"}`))
		return nil
	})

	tr, err := kafka.New(producer, pc, cfg)
	require.NoError(t, err)
	defer tr.Close()

	raw, err := tr.Send(context.Background(), req)
	require.NoError(t, err)
	out := greet.HandleResponse(context.Background(), raw)
	require.NoError(t, out.Error)
	v, ok := out.Response.Ok()
	require.True(t, ok)
	require.Equal(t, "hello alice", v)
}

func TestTransport_Timeout(t *testing.T) {
	_, pc := replyPartition(t)
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()

	short := cfg
	short.Timeout = 20 * time.Millisecond
	tr, err := kafka.New(producer, pc, short)
	require.NoError(t, err)
	defer tr.Close()

	req, err := greet.Build(map[string]any{"name": "alice"})
	require.NoError(t, err)
	_, err = tr.Send(context.Background(), req)
	require.ErrorIs(t, err, kafka.ErrTimeout)

	out := wirefunc.NewClient(wirefunc.TransportFunc(func(ctx context.Context, r wirefunc.Request) ([]byte, error) {
		return nil, kafka.ErrTimeout
	})).Call(context.Background(), greet, map[string]any{"name": "alice"})
	te, ok := wirefunc.AsTransportError(out.Error)
	require.True(t, ok)
	require.ErrorIs(t, te, kafka.ErrTimeout)
}

func TestTransport_ProducerFailure(t *testing.T) {
	_, pc := replyPartition(t)
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	tr, err := kafka.New(producer, pc, cfg)
	require.NoError(t, err)
	defer tr.Close()

	req, err := greet.Build(map[string]any{"name": "alice"})
	require.NoError(t, err)
	_, err = tr.Send(context.Background(), req)
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestTransport_SendAfterClose(t *testing.T) {
	_, pc := replyPartition(t)
	producer := mocks.NewSyncProducer(t, nil)
	tr, err := kafka.New(producer, pc, cfg)
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	req, err := greet.Build(map[string]any{"name": "alice"})
	require.NoError(t, err)
	_, err = tr.Send(context.Background(), req)
	require.True(t, errors.Is(err, kafka.ErrClosed))
}

// parentConsumer records Close; the partition consumer is the one in use.
type parentConsumer struct {
	sarama.Consumer
	closed int
}

func (c *parentConsumer) Close() error {
	c.closed++
	return nil
}

func TestTransport_CloseClosesConsumer(t *testing.T) {
	_, pc := replyPartition(t)
	parent := &parentConsumer{}
	tr, err := kafka.New(mocks.NewSyncProducer(t, nil), pc, cfg, kafka.WithConsumer(parent))
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	require.Equal(t, 1, parent.closed)
}

func TestDial_ValidatesConfigFirst(t *testing.T) {
	_, err := kafka.Dial([]string{"127.0.0.1:1"}, kafka.Config{ReplyTopic: "r"}, nil)
	require.EqualError(t, err, "kafka: request topic required")
}

func TestNew_ValidatesConfig(t *testing.T) {
	_, err := kafka.New(nil, nil, kafka.Config{ReplyTopic: "r"})
	require.Error(t, err)
	_, err = kafka.New(nil, nil, kafka.Config{RequestTopic: "q"})
	require.Error(t, err)
}

func TestResponder_AnswersOnReplyTopic(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)
	exp := consumer.ExpectConsumePartition(cfg.RequestTopic, 0, sarama.OffsetOldest)
	requests, err := consumer.ConsumePartition(cfg.RequestTopic, 0, sarama.OffsetOldest)
	require.NoError(t, err)

	replied := make(chan string, 1)
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		replied <- string(val)
		return nil
	})

	var seen wirefunc.Request
	h := kafka.HandlerFunc(func(ctx context.Context, req wirefunc.Request) ([]byte, error) {
		seen = req
		return []byte(`{"a":1,"b":"hi ` + req.Body["a"].(string) + `"}`), nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- kafka.NewResponder(requests, producer, h).Run(ctx) }()

	req, err := greet.Build(map[string]any{"name": "bob"})
	require.NoError(t, err)
	req.SetHeader("x-b3-traceid", "abc")
	body, err := req.Encode()
	require.NoError(t, err)
	hs := []*sarama.RecordHeader{
		{Key: []byte(kafka.HeaderRequestID), Value: []byte(req.ID.String())},
		{Key: []byte(kafka.HeaderEndpoint), Value: []byte("greet")},
		{Key: []byte(kafka.HeaderVerb), Value: []byte("POST")},
		{Key: []byte(kafka.HeaderReplyTo), Value: []byte(cfg.ReplyTopic)},
		{Key: []byte("x-b3-traceid"), Value: []byte("abc")},
	}
	exp.YieldMessage(&sarama.ConsumerMessage{Value: body, Headers: hs})

	select {
	case got := <-replied:
		require.Equal(t, `{"a":1,"b":"hi bob"}`, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no reply produced")
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, req.ID, seen.ID)
	require.Equal(t, "abc", seen.Header["x-b3-traceid"])
}

func TestDecodeRequest_Rejects(t *testing.T) {
	id := []byte("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	cases := map[string]*sarama.ConsumerMessage{
		"no id": {Value: []byte(`{}`), Headers: []*sarama.RecordHeader{
			{Key: []byte(kafka.HeaderEndpoint), Value: []byte("e")},
			{Key: []byte(kafka.HeaderReplyTo), Value: []byte("r")},
		}},
		"bad id": {Value: []byte(`{}`), Headers: []*sarama.RecordHeader{
			{Key: []byte(kafka.HeaderRequestID), Value: []byte("nope")},
		}},
		"no reply topic": {Value: []byte(`{}`), Headers: []*sarama.RecordHeader{
			{Key: []byte(kafka.HeaderRequestID), Value: id},
			{Key: []byte(kafka.HeaderEndpoint), Value: []byte("e")},
		}},
		"body not object": {Value: []byte(`[1]`), Headers: []*sarama.RecordHeader{
			{Key: []byte(kafka.HeaderRequestID), Value: id},
			{Key: []byte(kafka.HeaderEndpoint), Value: []byte("e")},
			{Key: []byte(kafka.HeaderReplyTo), Value: []byte("r")},
		}},
		"body missing colon": {Value: []byte(`{"a" "x"}`), Headers: []*sarama.RecordHeader{
			{Key: []byte(kafka.HeaderRequestID), Value: id},
			{Key: []byte(kafka.HeaderEndpoint), Value: []byte("e")},
			{Key: []byte(kafka.HeaderReplyTo), Value: []byte("r")},
		}},
	}
	for name, msg := range cases {
		_, _, err := kafka.DecodeRequest(msg, wirefunc.ParseOpt{})
		require.Error(t, err, name)
	}
}
