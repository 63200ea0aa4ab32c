// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/bytedance/sonic"

	"github.com/gogpu/frame/callback"
)

// DefaultTopic is the topic a Bus uses unless WithTopic is given.
const DefaultTopic = "frame.actions"

var (
	// ErrClosed is returned by operations on a closed Bus.
	ErrClosed = errors.New("action: bus closed")

	// ErrStarted is returned by a second Start.
	ErrStarted = errors.New("action: bus already started")

	// ErrMalformed is wrapped when a message payload is not an envelope.
	ErrMalformed = errors.New("action: malformed message")
)

var codec = sonic.ConfigStd

// Envelope is the wire form of an action message.
type Envelope struct {
	Callback callback.ID     `json:"callback"`
	Argument json.RawMessage `json:"argument,omitempty"`
}

// Encode marshals an envelope invoking id with arg.
func Encode(id callback.ID, arg any) ([]byte, error) {
	raw, err := codec.Marshal(arg)
	if err != nil {
		return nil, fmt.Errorf("action: encode argument: %w", err)
	}
	return codec.Marshal(Envelope{Callback: id, Argument: raw})
}

// Decode unmarshals an envelope.
func Decode(payload []byte) (Envelope, error) {
	var env Envelope
	if err := codec.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if env.Callback.IsZero() {
		return Envelope{}, fmt.Errorf("%w: missing callback id", ErrMalformed)
	}
	return env, nil
}

type request struct {
	uuid string
	env  Envelope
}

// Option configures a Bus.
type Option func(*options)

type options struct {
	topic string
	pub   message.Publisher
	sub   message.Subscriber
	log   *slog.Logger
}

// WithTopic sets the topic to publish and subscribe on.
func WithTopic(topic string) Option {
	return func(o *options) { o.topic = topic }
}

// WithPubSub uses an external publisher and subscriber instead of an
// in-process gochannel. The caller keeps ownership of both.
func WithPubSub(pub message.Publisher, sub message.Subscriber) Option {
	return func(o *options) {
		o.pub = pub
		o.sub = sub
	}
}

// WithLogger sets the logger. It is also handed to the in-process pubsub.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// Bus queues invocation requests from a watermill subscriber until the
// frame loop drains them.
type Bus struct {
	inv   callback.Invoker
	topic string
	pub   message.Publisher
	sub   message.Subscriber
	owned *gochannel.GoChannel
	log   *slog.Logger

	mu      sync.Mutex
	queue   []request
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewBus creates a bus invoking callbacks through inv.
func NewBus(inv callback.Invoker, opts ...Option) *Bus {
	o := options{topic: DefaultTopic}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.New(slog.DiscardHandler)
	}
	b := &Bus{inv: inv, topic: o.topic, pub: o.pub, sub: o.sub, log: o.log}
	if b.pub == nil || b.sub == nil {
		b.owned = gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, watermill.NewSlogLogger(o.log))
		b.pub, b.sub = b.owned, b.owned
	}
	return b
}

// SetLogger replaces the logger. Nil silences logging.
func (b *Bus) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	b.mu.Lock()
	b.log = l
	b.mu.Unlock()
}

func (b *Bus) logger() *slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.log
}

// Topic returns the topic the bus uses.
func (b *Bus) Topic() string { return b.topic }

// Start subscribes to the topic and queues incoming requests until ctx is
// cancelled or the bus is closed.
func (b *Bus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.closed:
		return ErrClosed
	case b.started:
		return ErrStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	msgs, err := b.sub.Subscribe(ctx, b.topic)
	if err != nil {
		cancel()
		return fmt.Errorf("action: subscribe %s: %w", b.topic, err)
	}
	b.started = true
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.consume(msgs)
	return nil
}

func (b *Bus) consume(msgs <-chan *message.Message) {
	defer close(b.done)
	for msg := range msgs {
		env, err := Decode(msg.Payload)
		if err != nil {
			// Redelivery cannot fix a bad payload.
			b.logger().Warn("action: dropping message", "uuid", msg.UUID, "err", err)
			msg.Ack()
			continue
		}
		b.mu.Lock()
		b.queue = append(b.queue, request{uuid: msg.UUID, env: env})
		b.mu.Unlock()
		msg.Ack()
	}
}

// Publish sends a request to invoke id with arg.
func (b *Bus) Publish(id callback.ID, arg any) error {
	payload, err := Encode(id, arg)
	if err != nil {
		return err
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return b.pub.Publish(b.topic, message.NewMessage(watermill.NewUUID(), payload))
}

// Enqueue queues a request without going through the pubsub.
func (b *Bus) Enqueue(env Envelope) {
	b.mu.Lock()
	b.queue = append(b.queue, request{env: env})
	b.mu.Unlock()
}

// Pending returns the number of queued requests.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Drain invokes every queued request in arrival order. It must run on the
// goroutine that owns the callbacks' world, typically as a frame pre-frame
// hook. Failures do not stop the drain; they are returned joined.
//
// If ctx is cancelled, the remaining requests stay queued.
func (b *Bus) Drain(ctx context.Context) error {
	b.mu.Lock()
	queue := b.queue
	b.queue = nil
	log := b.log
	b.mu.Unlock()

	var errs []error
	for i, req := range queue {
		if err := ctx.Err(); err != nil {
			b.mu.Lock()
			b.queue = append(queue[i:len(queue):len(queue)], b.queue...)
			b.mu.Unlock()
			errs = append(errs, err)
			break
		}
		if err := b.invoke(req); err != nil {
			log.Warn("action: invocation failed",
				"uuid", req.uuid,
				"callback", req.env.Callback.String(),
				"err", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) invoke(req request) error {
	raw := req.env.Argument
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	arg, err := b.inv.Decode(req.env.Callback, raw, codec.Unmarshal)
	if err != nil {
		return err
	}
	return b.inv.Invoke(req.env.Callback, arg)
}

// Close stops consuming and closes the in-process pubsub if the bus owns
// one. Queued requests are discarded.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	cancel, done := b.cancel, b.done
	b.queue = nil
	b.mu.Unlock()

	var err error
	if b.owned != nil {
		err = b.owned.Close()
	}
	if cancel != nil {
		cancel()
		<-done
	}
	return err
}
