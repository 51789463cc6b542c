package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shopify/sarama"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/reoring/wirefunc"
	"github.com/reoring/wirefunc/internal/config"
	"github.com/reoring/wirefunc/internal/observability"
	"github.com/reoring/wirefunc/rpcserver"
	"github.com/reoring/wirefunc/schemafile"
	"github.com/reoring/wirefunc/transport/kafka"
)

// stub is the canned answer of one endpoint: exactly one of ok and err.
type stub struct {
	variant wirefunc.Variant
	value   any
}

func (s stub) result() wirefunc.Result[any, any] {
	if s.variant == wirefunc.VariantErr {
		return wirefunc.Err[any, any](s.value)
	}
	return wirefunc.Ok[any, any](s.value)
}

// loadStubs reads a YAML mapping of endpoint name to {ok: value} or
// {err: value}. Values use logical field names.
func loadStubs(data []byte) (map[string]stub, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("stubs: %w", err)
	}
	out := make(map[string]stub, len(raw))
	for name, m := range raw {
		ok, hasOk := m[wirefunc.TagOk]
		errv, hasErr := m[wirefunc.TagErr]
		switch {
		case len(m) == 1 && hasOk:
			out[name] = stub{variant: wirefunc.VariantOk, value: ok}
		case len(m) == 1 && hasErr:
			out[name] = stub{variant: wirefunc.VariantErr, value: errv}
		default:
			return nil, fmt.Errorf("stubs: %s: want exactly one of %q and %q", name, wirefunc.TagOk, wirefunc.TagErr)
		}
	}
	return out, nil
}

// stubServer registers every endpoint of reg. Endpoints without a stub fail
// with a handler error.
func stubServer(reg *schemafile.Registry, stubs map[string]stub, opts ...rpcserver.Option) (*rpcserver.Server, error) {
	for name := range stubs {
		if _, ok := reg.Endpoint(name); !ok {
			return nil, fmt.Errorf("stubs: unknown endpoint %q", name)
		}
	}
	srv := rpcserver.New(opts...)
	for _, name := range reg.EndpointNames() {
		ep, _ := reg.Endpoint(name)
		s, ok := stubs[name]
		h := func(context.Context, wirefunc.Record) (wirefunc.Result[any, any], error) {
			if !ok {
				return wirefunc.Result[any, any]{}, fmt.Errorf("no stub for %s", name)
			}
			return s.result(), nil
		}
		if err := srv.Register(ep, h); err != nil {
			return nil, err
		}
	}
	return srv, nil
}

func serveCmd(e env, args []string) error {
	var c common
	fs := newFlagSet("serve")
	c.register(fs)
	listen := fs.String("listen", "", "listen address (overrides server.listen)")
	stubsPath := fs.String("stubs", "", "YAML stubs file (overrides server.stubs)")
	overKafka := fs.Bool("kafka", false, "serve the kafka request topic instead of HTTP")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, reg, err := c.load()
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *stubsPath != "" {
		cfg.Server.Stubs = *stubsPath
	}
	stubs := map[string]stub{}
	if cfg.Server.Stubs != "" {
		data, err := os.ReadFile(cfg.Server.Stubs)
		if err != nil {
			return err
		}
		if stubs, err = loadStubs(data); err != nil {
			return err
		}
	}

	logger := observability.InitLogger("wirefunc-serve", cfg.Log.Level)
	opts := []rpcserver.Option{rpcserver.WithLogger(logger), rpcserver.WithParseOpt(cfg.Parse.Opt())}
	tracer, closeTracer, err := newTracer(cfg)
	if err != nil {
		return err
	}
	defer closeTracer()
	if tracer != nil {
		opts = append(opts, rpcserver.WithTracer(tracer))
	}
	srv, err := stubServer(reg, stubs, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *overKafka {
		return serveKafka(ctx, cfg, srv, logger)
	}
	return serveHTTP(ctx, cfg.Server.Listen, srv, logger)
}

func serveHTTP(ctx context.Context, addr string, srv *rpcserver.Server, logger zerolog.Logger) error {
	hs := &http.Server{Addr: addr, Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	logger.Info().Str("addr", addr).Int("endpoints", len(srv.Endpoints())).Msg("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func serveKafka(ctx context.Context, cfg config.Config, srv *rpcserver.Server, logger zerolog.Logger) error {
	sc := kafka.NewSaramaConfig()
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, sc)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer producer.Close()
	consumer, err := sarama.NewConsumer(cfg.Kafka.Brokers, sc)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	defer consumer.Close()
	pc, err := consumer.ConsumePartition(cfg.Kafka.RequestTopic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("consume %s: %w", cfg.Kafka.RequestTopic, err)
	}
	defer pc.Close()

	logger.Info().Str("topic", cfg.Kafka.RequestTopic).Int("endpoints", len(srv.Endpoints())).Msg("serving")
	r := kafka.NewResponder(pc, producer, srv,
		kafka.WithResponderLogger(logger),
		kafka.WithRequestParseOpt(cfg.Parse.Opt()),
	)
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
