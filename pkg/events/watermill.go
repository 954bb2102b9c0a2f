// Package events provides the catalog's pub/sub EventBus built on Watermill.
//
// Two transports are available, selected by cfg.EventsTransport:
//   - memory: Watermill GoChannel. Events stay inside the process; subscribers
//     registered in the same process (cmd/api) receive them. Nothing is durable.
//   - postgres: Watermill SQL over PostgreSQL. Events survive restarts and are
//     consumed by cmd/worker. Subscribers share a ConsumerGroup
//     (<service>-consumer), so each message is processed by one instance.
//
// Handlers should be idempotent. On failure a message is Nacked and redelivered;
// the bus retries up to 3 times with exponential backoff before giving up.
//
// Every Publish opens a producer span and every delivery a consumer span in the
// same trace, so a cache write in cmd/worker links back to the API request.
package events

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/productcatalog/pkg/config"
	"github.com/ghuser/productcatalog/pkg/logger"
	"github.com/ghuser/productcatalog/pkg/telemetry"
)

const (
	maxRetries          = 3
	retryBaseDelay      = time.Second
	shutdownTimeout     = 30 * time.Second
	forwarderTopic      = "_forwarder_queue" // internal outbox topic for the Forwarder daemon
	memoryChannelBuffer = 64
)

// EventBus publishes and subscribes catalog events over the configured transport.
type EventBus struct {
	transport    string
	publisher    message.Publisher // either direct publisher or forwarder-decorated
	subscriber   message.Subscriber
	fwd          *forwarder.Forwarder // non-nil only when forwarder mode is running
	db           *sql.DB              // nil for the memory transport
	log          logger.Logger
	wg           sync.WaitGroup
	retryDelay   time.Duration
	useForwarder bool
}

// NewEventBus initializes a publisher and subscriber for cfg.EventsTransport.
// With the postgres transport, schema tables are created automatically on first use.
func NewEventBus(cfg *config.Config, log logger.Logger) (*EventBus, error) {
	return newEventBus(cfg, log, false)
}

// NewEventBusWithForwarder creates an EventBus that uses the Forwarder pattern
// for at-least-once event delivery. Publish writes messages to a durable SQL
// queue; the Forwarder daemon (started with StartForwarder) asynchronously
// forwards them to the target topic.
//
// The memory transport has nothing durable to forward through, so the flag is
// ignored there and the bus behaves like NewEventBus.
func NewEventBusWithForwarder(cfg *config.Config, log logger.Logger) (*EventBus, error) {
	return newEventBus(cfg, log, true)
}

func newEventBus(cfg *config.Config, log logger.Logger, useForwarder bool) (*EventBus, error) {
	switch cfg.EventsTransport {
	case config.TransportMemory, "":
		return newMemoryEventBus(log), nil
	case config.TransportPostgres:
		return newPostgresEventBus(cfg, log, useForwarder)
	default:
		return nil, fmt.Errorf("events: unknown transport %q", cfg.EventsTransport)
	}
}

func newMemoryEventBus(log logger.Logger) *EventBus {
	// Each Publish waits for the subscriber's ack, so one topic is consumed
	// in publish order.
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            memoryChannelBuffer,
		BlockPublishUntilSubscriberAck: true,
	}, &slogAdapter{log: log})
	return &EventBus{
		transport:  config.TransportMemory,
		publisher:  ch,
		subscriber: ch,
		log:        log,
		retryDelay: retryBaseDelay,
	}
}

func newPostgresEventBus(cfg *config.Config, log logger.Logger, useForwarder bool) (*EventBus, error) {
	db, err := sql.Open("pgx", cfg.EventsDatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("events: open db: %w", err)
	}
	wlog := &slogAdapter{log: log}

	pub, err := newSQLPublisher(db, wlog)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	// Forwarder mode envelopes each message onto the outbox topic; the daemon
	// started by StartForwarder delivers it to the catalog topic.
	var publisher message.Publisher = pub
	if useForwarder {
		publisher = forwarder.NewPublisher(pub, forwarder.PublisherConfig{ForwarderTopic: forwarderTopic})
	}

	sub, err := newSQLSubscriber(db, cfg.ServiceName+"-consumer", wlog)
	if err != nil {
		_ = pub.Close()
		_ = db.Close()
		return nil, err
	}

	return &EventBus{
		transport:    config.TransportPostgres,
		publisher:    publisher,
		subscriber:   sub,
		db:           db,
		log:          log,
		retryDelay:   retryBaseDelay,
		useForwarder: useForwarder,
	}, nil
}

// newSQLPublisher and newSQLSubscriber share one schema so the API, the
// forwarder, and cmd/worker read and write the same tables.
func newSQLPublisher(db *sql.DB, wlog watermill.LoggerAdapter) (*watermillsql.Publisher, error) {
	pub, err := watermillsql.NewPublisher(db, watermillsql.PublisherConfig{
		SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
		AutoInitializeSchema: true,
	}, wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new publisher: %w", err)
	}
	return pub, nil
}

func newSQLSubscriber(db *sql.DB, consumerGroup string, wlog watermill.LoggerAdapter) (*watermillsql.Subscriber, error) {
	sub, err := watermillsql.NewSubscriber(db, watermillsql.SubscriberConfig{
		SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
		ConsumerGroup:    consumerGroup,
	}, wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new subscriber %s: %w", consumerGroup, err)
	}
	return sub, nil
}

// Transport reports which transport the bus was built with.
func (q *EventBus) Transport() string {
	return q.transport
}

// StartForwarder runs the daemon that moves catalog events from the outbox
// topic to catalog.listings. Only valid once, on a postgres bus created with
// NewEventBusWithForwarder. Returns when the daemon is running.
func (q *EventBus) StartForwarder(ctx context.Context) error {
	switch {
	case !q.useForwarder:
		return fmt.Errorf("events: StartForwarder called on non-forwarder EventBus")
	case q.fwd != nil:
		return fmt.Errorf("events: forwarder already started")
	}
	wlog := &slogAdapter{log: q.log}

	outbox, err := newSQLSubscriber(q.db, "forwarder-consumer", wlog)
	if err != nil {
		return err
	}
	target, err := newSQLPublisher(q.db, wlog)
	if err != nil {
		_ = outbox.Close()
		return err
	}
	fwd, err := forwarder.NewForwarder(outbox, target, wlog, forwarder.Config{ForwarderTopic: forwarderTopic})
	if err != nil {
		_ = target.Close()
		_ = outbox.Close()
		return fmt.Errorf("events: create forwarder: %w", err)
	}
	q.fwd = fwd

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.log.InfoContext(ctx, "events: forwarder started", "topic", forwarderTopic)
		if err := fwd.Run(ctx); err != nil {
			q.log.ErrorContext(ctx, "events: forwarder stopped with error", "error", err)
			return
		}
		q.log.InfoContext(ctx, "events: forwarder stopped")
	}()

	select {
	case <-fwd.Running():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("events: context cancelled waiting for forwarder: %w", ctx.Err())
	}
}

// Publish sends msgs to topic inside a producer span. The span's trace context
// is written into each message's metadata so the consumer continues the trace.
func (q *EventBus) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	ctx, span := telemetry.Tracer().Start(ctx, "publish "+topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "watermill"),
			attribute.String("messaging.destination.name", topic),
			attribute.String("messaging.transport", q.transport),
			attribute.Int("messaging.batch.message_count", len(msgs)),
		),
	)
	defer span.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for _, msg := range msgs {
		for k, v := range carrier {
			msg.Metadata.Set(k, v)
		}
	}
	if err := q.publisher.Publish(topic, msgs...); err != nil { //nolint:contextcheck
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("events: publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe runs handler for every message on topic in a background goroutine.
// Each handler call gets a context that continues the publisher's trace and
// carries the message's workspace_id for logging.
//
// Ack/Nack is managed by the bus:
//   - handler returns nil   → Ack
//   - handler returns error → retried up to 3× with exponential backoff (1s, 2s, 4s)
//   - all retries exhausted → error sent to the returned channel, then
//     Nack (postgres, redelivered) or Ack (memory, dropped; a redelivery would
//     hold the blocked publisher forever)
//
// The returned error channel holds 100 errors and must be drained. All
// in-flight handlers complete before Close returns.
func (q *EventBus) Subscribe(ctx context.Context, topic string, handler func(context.Context, *message.Message) error) (<-chan error, error) {
	ch, err := q.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("events: subscribe to %s: %w", topic, err)
	}

	errCh := make(chan error, 100)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer close(errCh)
		for msg := range ch {
			q.consume(ctx, topic, msg, handler, errCh)
		}
	}()
	return errCh, nil
}

func (q *EventBus) consume(ctx context.Context, topic string, msg *message.Message, handler func(context.Context, *message.Message) error, errCh chan<- error) {
	carrier := propagation.MapCarrier{}
	for k, v := range msg.Metadata {
		carrier[k] = v
	}
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)
	msgCtx, span := telemetry.Tracer().Start(msgCtx, "process "+topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "watermill"),
			attribute.String("messaging.destination.name", topic),
			attribute.String("messaging.message.id", msg.UUID),
			attribute.String("messaging.event_type", msg.Metadata.Get("event_type")),
		),
	)
	defer span.End()
	if ws := msg.Metadata.Get("workspace_id"); ws != "" {
		msgCtx = logger.WithAttrs(msgCtx, "workspace_id", ws)
	}

	err := retryWithBackoff(msgCtx, msg, handler, maxRetries, q.retryDelay, q.log)
	if err == nil {
		msg.Ack()
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	select {
	case errCh <- err:
	default:
		q.log.ErrorContext(msgCtx, "events: error channel full, dropping error", "error", err, "topic", topic)
	}
	q.reject(msg)
}

func (q *EventBus) reject(msg *message.Message) {
	if q.transport == config.TransportMemory {
		msg.Ack()
		return
	}
	msg.Nack()
}

// retryWithBackoff calls handler up to maxRetries times with exponential backoff.
// Returns nil on first success; returns the last error after all retries exhaust.
func retryWithBackoff(
	ctx context.Context,
	msg *message.Message,
	handler func(context.Context, *message.Message) error,
	maxRetries int,
	baseDelay time.Duration,
	log logger.Logger,
) error {
	delay := baseDelay
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		if attempt < maxRetries {
			log.WarnContext(ctx, "events: handler failed, retrying",
				"attempt", attempt,
				"max_retries", maxRetries,
				"next_delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return fmt.Errorf("events: handler failed after %d retries: %w", maxRetries, err)
}

// Ping checks transport health. The memory transport is always reachable.
func (q *EventBus) Ping(ctx context.Context) error {
	if q.db == nil {
		return nil
	}
	if err := q.db.PingContext(ctx); err != nil {
		return fmt.Errorf("events: ping db: %w", err)
	}
	return nil
}

// Close gracefully shuts down the EventBus.
// Shutdown order: stop subscriber → stop forwarder (if running) → wait for
// in-flight handlers (30 s max) → close publisher → close database connection.
// For the memory transport publisher and subscriber are the same GoChannel;
// its second Close is a no-op.
func (q *EventBus) Close() error {
	if err := q.subscriber.Close(); err != nil {
		return fmt.Errorf("events: close subscriber: %w", err)
	}

	if q.fwd != nil {
		if err := q.fwd.Close(); err != nil {
			return fmt.Errorf("events: close forwarder: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	select {
	case <-done:
	case <-ctx.Done():
		q.log.Error("events: timed out waiting for in-flight handlers to complete")
	}

	if err := q.publisher.Close(); err != nil {
		return fmt.Errorf("events: close publisher: %w", err)
	}
	if q.db == nil {
		return nil
	}
	return q.db.Close()
}

// slogAdapter bridges logger.Logger to watermill.LoggerAdapter.
type slogAdapter struct{ log logger.Logger }

func (a *slogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(msg, append(fieldsToArgs(fields), "error", err)...)
}
func (a *slogAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &slogAdapter{log: a.log.With(fieldsToArgs(fields)...)}
}

func fieldsToArgs(fields watermill.LogFields) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
