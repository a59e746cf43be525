package engine

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/relabs-tech/step_counter/internal/session"
)

// Subscription is the opaque handle returned by Subscribe and consumed
// by Unsubscribe, so removal never depends on func identity.
type Subscription string

// Listener receives a session snapshot after every state-affecting
// event: an accepted step, start, stop, or reset.
type Listener func(session.Record)

type registry struct {
	mu        sync.Mutex
	listeners map[Subscription]Listener
}

func newRegistry() *registry {
	return &registry{listeners: make(map[Subscription]Listener)}
}

func (r *registry) subscribe(fn Listener) Subscription {
	token := Subscription(uuid.NewString())
	r.mu.Lock()
	r.listeners[token] = fn
	r.mu.Unlock()
	return token
}

func (r *registry) unsubscribe(token Subscription) {
	r.mu.Lock()
	delete(r.listeners, token)
	r.mu.Unlock()
}

// notify invokes every current listener synchronously with the snapshot.
// A panicking listener is recovered and logged; the remaining listeners
// still run and engine state is untouched.
func (r *registry) notify(rec session.Record) {
	r.mu.Lock()
	fns := make([]Listener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.Printf("engine: listener panic: %v", p)
				}
			}()
			fn(rec)
		}()
	}
}
