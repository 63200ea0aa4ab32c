// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package callback

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Invocation describes a finished Invoke call.
type Invocation struct {
	ID       ID
	Name     string
	Err      error
	Duration time.Duration
}

// Invoker is the type-erased view of a Registry, for callers that do not
// know the world type.
type Invoker interface {
	Invoke(id ID, arg any) error

	// Decode unmarshals raw into a value of id's argument type.
	Decode(id ID, raw []byte, unmarshal func([]byte, any) error) (any, error)
}

type entry[W any] struct {
	id       ID
	name     string
	prepared bool
	prepare  func(*Context[W]) error
	accepts  func(any) bool
	call     func(*Context[W], any) error
}

// info stays in the registry while the entry is checked out.
type info struct {
	name    string
	argType reflect.Type
	decode  func(raw []byte, unmarshal func([]byte, any) error) (any, error)
	seq     uint64
}

// Registry owns a world and the callables that act on it.
//
// Registry is safe for concurrent use; the world itself is only touched
// by callables, one id at a time.
type Registry[W any] struct {
	mu       sync.Mutex
	world    W
	entries  map[ID]*entry[W]
	infos    map[ID]info
	seq      uint64
	log      *slog.Logger
	observer func(Invocation)
}

var _ Invoker = (*Registry[struct{}])(nil)

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	log      *slog.Logger
	observer func(Invocation)
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(o *registryOptions) { o.log = l }
}

// WithObserver registers fn to be called after every invocation of a
// known id. fn must not invoke the registry.
func WithObserver(fn func(Invocation)) RegistryOption {
	return func(o *registryOptions) { o.observer = fn }
}

// New creates a registry over world.
func New[W any](world W, opts ...RegistryOption) *Registry[W] {
	var o registryOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.New(slog.DiscardHandler)
	}
	return &Registry[W]{
		world:    world,
		entries:  make(map[ID]*entry[W]),
		infos:    make(map[ID]info),
		log:      o.log,
		observer: o.observer,
	}
}

// SetLogger replaces the logger. Nil silences logging.
func (r *Registry[W]) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	r.mu.Lock()
	r.log = l
	r.mu.Unlock()
}

// SetObserver replaces the invocation observer.
func (r *Registry[W]) SetObserver(fn func(Invocation)) {
	r.mu.Lock()
	r.observer = fn
	r.mu.Unlock()
}

// World returns the shared state.
func (r *Registry[W]) World() W { return r.world }

// Option configures a single registration.
type Option func(*entryOptions)

type entryOptions struct {
	name    string
	prepare any
}

// WithName labels the callable for logs and metrics.
func WithName(name string) Option {
	return func(o *entryOptions) { o.name = name }
}

// WithPrepare runs fn once, before the first invocation. If fn fails the
// invocation fails and preparation is retried on the next one.
func WithPrepare[W any](fn func(*Context[W]) error) Option {
	return func(o *entryOptions) { o.prepare = fn }
}

// Register stores fn under a fresh id. It does not invoke fn.
//
// Register panics if a WithPrepare option was built for a different world
// type, which is a programming error.
func Register[W, A any](r *Registry[W], fn func(*Context[W], A) error, opts ...Option) ID {
	var o entryOptions
	for _, opt := range opts {
		opt(&o)
	}
	e := &entry[W]{
		id:   newID(),
		name: o.name,
		accepts: func(arg any) bool {
			_, ok := arg.(A)
			return ok
		},
		call: func(c *Context[W], arg any) error {
			return fn(c, arg.(A))
		},
	}
	if o.prepare != nil {
		p, ok := o.prepare.(func(*Context[W]) error)
		if !ok {
			panic(fmt.Sprintf("callback: prepare %T does not match registry world %T", o.prepare, r.world))
		}
		e.prepare = p
	}
	decode := func(raw []byte, unmarshal func([]byte, any) error) (any, error) {
		var a A
		if err := unmarshal(raw, &a); err != nil {
			return nil, err
		}
		return a, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.entries[e.id] = e
	r.infos[e.id] = info{
		name:    o.name,
		argType: reflect.TypeFor[A](),
		decode:  decode,
		seq:     r.seq,
	}
	return e.id
}

// Has reports whether id is registered. A checked-out id is still
// registered.
func (r *Registry[W]) Has(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.infos[id]
	return ok
}

// Executing reports whether id is checked out.
func (r *Registry[W]) Executing(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, known := r.infos[id]
	_, present := r.entries[id]
	return known && !present
}

// Len returns the number of registered ids.
func (r *Registry[W]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.infos)
}

// Name returns the name given at registration.
func (r *Registry[W]) Name(id ID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.infos[id].name
}

// Lookup returns the id registered under name.
func (r *Registry[W]) Lookup(name string) (ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		found ID
		seq   uint64
	)
	for id, in := range r.infos {
		if in.name == name && (found.IsZero() || in.seq < seq) {
			found, seq = id, in.seq
		}
	}
	return found, !found.IsZero()
}

// ArgumentType returns the parameter type of id's callable.
func (r *Registry[W]) ArgumentType(id ID) (reflect.Type, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.infos[id]
	return in.argType, ok
}

// Unregister removes id. It fails with ErrUnknownID if id is unknown or
// currently executing.
func (r *Registry[W]) Unregister(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	delete(r.entries, id)
	delete(r.infos, id)
	return nil
}

// Decode implements Invoker.
func (r *Registry[W]) Decode(id ID, raw []byte, unmarshal func([]byte, any) error) (any, error) {
	r.mu.Lock()
	in, ok := r.infos[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	v, err := in.decode(raw, unmarshal)
	if err != nil {
		return nil, fmt.Errorf("%w: %s wants %v: %w", ErrArgumentType, id, in.argType, err)
	}
	return v, nil
}

// Invoke runs id's callable with arg.
//
// The entry is checked out for the duration of the call. Deferred
// mutations are applied only if the callable succeeds. A panic is
// recovered into a *PanicError.
//
// Deferred mutations run in order. If one panics, those before it stay
// applied, the rest are skipped and the returned error wraps the
// *PanicError.
func (r *Registry[W]) Invoke(id ID, arg any) (err error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	delete(r.entries, id)
	log, observer := r.log, r.observer
	r.mu.Unlock()

	start := time.Now()
	defer func() {
		r.mu.Lock()
		r.entries[id] = e
		r.mu.Unlock()
		if observer != nil {
			observer(Invocation{ID: id, Name: e.name, Err: err, Duration: time.Since(start)})
		}
	}()

	if !e.accepts(arg) {
		in, _ := r.ArgumentType(id)
		return fmt.Errorf("%w: %s wants %v, got %T", ErrArgumentType, id, in, arg)
	}

	c := &Context[W]{World: r.world, id: id, name: e.name, reg: r}
	if err := r.run(c, func() error {
		if !e.prepared && e.prepare != nil {
			if err := e.prepare(c); err != nil {
				return fmt.Errorf("callback: prepare %s: %w", id, err)
			}
		}
		e.prepared = true
		return e.call(c, arg)
	}); err != nil {
		log.Warn("callback: invocation failed", "id", id.String(), "name", e.name, "err", err)
		return err
	}

	for i, fn := range c.deferred {
		if err := r.run(c, func() error { fn(r.world); return nil }); err != nil {
			log.Warn("callback: deferred mutation failed",
				"id", id.String(), "name", e.name, "applied", i, "skipped", len(c.deferred)-i-1, "err", err)
			return fmt.Errorf("callback: deferred mutation %d of %d for %s: %w", i+1, len(c.deferred), id, err)
		}
	}
	return nil
}

func (r *Registry[W]) run(c *Context[W], fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{ID: c.id, Value: v}
		}
	}()
	return fn()
}
