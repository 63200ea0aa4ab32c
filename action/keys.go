// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package action

import (
	"log/slog"
	"sync"

	"github.com/gogpu/frame"
	"github.com/gogpu/frame/callback"
	"github.com/gogpu/gpucontext"
)

type chord struct {
	key  gpucontext.Key
	mods gpucontext.Modifiers
}

type binding struct {
	id  callback.ID
	arg any
}

// KeyBindings invokes callbacks when bound keys are pressed. It implements
// frame.EventHandler, so it runs on the frame loop goroutine.
type KeyBindings struct {
	inv callback.Invoker

	mu       sync.Mutex
	bindings map[chord]binding
	log      *slog.Logger
}

var _ frame.EventHandler = (*KeyBindings)(nil)

// NewKeyBindings creates an empty binding table invoking through inv.
func NewKeyBindings(inv callback.Invoker) *KeyBindings {
	return &KeyBindings{
		inv:      inv,
		bindings: make(map[chord]binding),
		log:      slog.New(slog.DiscardHandler),
	}
}

// SetLogger replaces the logger. Nil silences logging.
func (k *KeyBindings) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	k.mu.Lock()
	k.log = l
	k.mu.Unlock()
}

// Bind invokes id with arg when key is pressed with exactly mods held.
// A later Bind of the same chord replaces the earlier one.
func (k *KeyBindings) Bind(key gpucontext.Key, mods gpucontext.Modifiers, id callback.ID, arg any) {
	k.mu.Lock()
	k.bindings[chord{key, mods}] = binding{id: id, arg: arg}
	k.mu.Unlock()
}

// Unbind removes the binding for key and mods.
func (k *KeyBindings) Unbind(key gpucontext.Key, mods gpucontext.Modifiers) {
	k.mu.Lock()
	delete(k.bindings, chord{key, mods})
	k.mu.Unlock()
}

// Len returns the number of bindings.
func (k *KeyBindings) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.bindings)
}

// HandleEvent implements frame.EventHandler.
func (k *KeyBindings) HandleEvent(ev frame.Event) {
	if ev.Kind != frame.EventKeyPress {
		return
	}
	k.mu.Lock()
	b, ok := k.bindings[chord{ev.Key, ev.Mods}]
	log := k.log
	k.mu.Unlock()
	if !ok {
		return
	}
	if err := k.inv.Invoke(b.id, b.arg); err != nil {
		log.Warn("action: key binding failed", "key", int(ev.Key), "callback", b.id.String(), "err", err)
	}
}
