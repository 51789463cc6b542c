package main

import (
	"context"
	"fmt"

	zipkin "github.com/openzipkin/zipkin-go"
	"github.com/openzipkin/zipkin-go/model"
	"github.com/openzipkin/zipkin-go/reporter"
	zipkinhttp "github.com/openzipkin/zipkin-go/reporter/http"
	"github.com/rs/zerolog"

	"github.com/reoring/wirefunc"
	"github.com/reoring/wirefunc/internal/config"
	"github.com/reoring/wirefunc/internal/observability"
	"github.com/reoring/wirefunc/transport/httptransport"
	"github.com/reoring/wirefunc/transport/kafka"
	"github.com/reoring/wirefunc/transport/ziptrace"
)

func callCmd(e env, args []string) error {
	var c common
	fs := newFlagSet("call")
	c.register(fs)
	name := fs.String("endpoint", "", "endpoint to call")
	params := fs.String("params", "{}", "logical params as JSON, or - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, reg, err := c.load()
	if err != nil {
		return err
	}
	ep, err := endpoint(reg, *name)
	if err != nil {
		return err
	}
	p, err := readParams(e, *params, cfg.Parse.Opt())
	if err != nil {
		return err
	}

	logger := observability.InitLogger("wirefunc", cfg.Log.Level)
	t, closeTransport, err := newTransport(cfg, logger)
	if err != nil {
		return err
	}
	defer closeTransport()

	tracer, closeTracer, err := newTracer(cfg)
	if err != nil {
		return err
	}
	defer closeTracer()
	if tracer != nil {
		t = ziptrace.Wrap(t, tracer)
	}

	ctx := context.Background()
	if cfg.Client.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Client.Timeout)
		defer cancel()
	}
	client := wirefunc.NewClient(t, wirefunc.WithLogger(logger))
	return printOutcome(e.stdout, client.Call(ctx, ep, p))
}

// newTransport builds the transport selected by client.transport.
func newTransport(cfg config.Config, logger zerolog.Logger) (wirefunc.Transport, func(), error) {
	switch cfg.Client.Transport {
	case config.TransportKafka:
		t, err := kafka.Dial(cfg.Kafka.Brokers, kafkaConfig(cfg), nil, kafka.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("dial kafka: %w", err)
		}
		return t, func() {
			if err := t.Close(); err != nil {
				logger.Warn().Err(err).Msg("close kafka transport")
			}
		}, nil
	default:
		opts := []httptransport.Option{httptransport.WithMaxResponseBytes(cfg.Parse.MaxBytes)}
		for k, v := range cfg.Client.Headers {
			opts = append(opts, httptransport.WithHeader(k, v))
		}
		t, err := httptransport.New(cfg.Client.BaseURL, opts...)
		if err != nil {
			return nil, nil, err
		}
		return t, func() {}, nil
	}
}

func kafkaConfig(cfg config.Config) kafka.Config {
	return kafka.Config{
		RequestTopic: cfg.Kafka.RequestTopic,
		ReplyTopic:   cfg.Kafka.ReplyTopic,
		Timeout:      cfg.Kafka.Timeout,
	}
}

// newTracer returns a tracer reporting to zipkin.reporter_url, or nil when
// tracing is disabled.
func newTracer(cfg config.Config) (*zipkin.Tracer, func(), error) {
	if !cfg.Zipkin.Enabled {
		return nil, func() {}, nil
	}
	return tracerWith(zipkinhttp.NewReporter(cfg.Zipkin.ReporterURL), cfg.Zipkin.ServiceName)
}

func tracerWith(rep reporter.Reporter, service string) (*zipkin.Tracer, func(), error) {
	tracer, err := zipkin.NewTracer(rep, zipkin.WithLocalEndpoint(&model.Endpoint{ServiceName: service}))
	if err != nil {
		_ = rep.Close()
		return nil, nil, fmt.Errorf("zipkin tracer: %w", err)
	}
	return tracer, func() { _ = rep.Close() }, nil
}
