package handle

import (
	"runtime"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/glyphlab/hbwasm/errors"
)

// Ptr is a foreign object pointer in guest linear memory.
// Ptr 0 is the null pointer and always invalid.
type Ptr uint32

// DestroyFunc releases one foreign reference count for a pointer.
type DestroyFunc func(Ptr)

// Registry is a weak identity map for one wrapped resource type.
// All mutations are serialized by a single mutex; concurrent collection and
// lookup of the same pointer would otherwise race between use-after-release
// and duplicate-wrapper creation.
type Registry[T any] struct {
	name     string
	destroy  DestroyFunc
	entries  map[Ptr]weak.Pointer[T]
	mu       sync.Mutex
	disarmed atomic.Bool
}

// NewRegistry creates a registry for one resource type. name appears in
// error messages; destroy decrements the foreign reference count once.
func NewRegistry[T any](name string, destroy DestroyFunc) *Registry[T] {
	return &Registry[T]{
		name:    name,
		destroy: destroy,
		entries: make(map[Ptr]weak.Pointer[T]),
	}
}

// Wrap returns the canonical wrapper for p. The incoming foreign reference
// is consumed either way: a new wrapper adopts it, or, if a live wrapper
// already exists, it is released on the spot and the existing wrapper is
// returned unchanged.
//
// construct is only invoked when no live wrapper exists. The returned
// wrapper releases its reference when the garbage collector reclaims it.
func (r *Registry[T]) Wrap(p Ptr, construct func(Ptr) *T) (*T, error) {
	if p == 0 {
		return nil, errors.InvalidHandle(errors.PhaseRegistry, r.name)
	}
	if r.disarmed.Load() {
		return nil, errors.Closed(r.name + " registry")
	}

	r.mu.Lock()
	if wp, ok := r.entries[p]; ok {
		if v := wp.Value(); v != nil {
			r.mu.Unlock()
			// Caller's reference is redundant; drop it now or it leaks.
			r.destroy(p)
			return v, nil
		}
		// Wrapper collected but its cleanup has not fired yet. The old
		// reference is still owed one destroy, which the pending cleanup
		// will deliver; a fresh wrapper adopting the incoming reference is
		// balanced on its own.
	}

	v := construct(p)
	r.entries[p] = weak.Make(v)
	r.mu.Unlock()

	runtime.AddCleanup(v, r.release, p)
	return v, nil
}

// Get returns the live wrapper for p without consuming a reference, or
// (nil, false) if none exists. Used by callback dispatch to map a foreign
// pointer back to the wrapper it belongs to.
func (r *Registry[T]) Get(p Ptr) (*T, bool) {
	if p == 0 {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	wp, ok := r.entries[p]
	if !ok {
		return nil, false
	}
	v := wp.Value()
	if v == nil {
		return nil, false
	}
	return v, true
}

// Len returns the number of live wrappers.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, wp := range r.entries {
		if wp.Value() != nil {
			n++
		}
	}
	return n
}

// Disarm permanently disables destroy-on-collection and refuses further
// wraps. Call before tearing down the foreign library so no cleanup ever
// reaches a closed runtime.
func (r *Registry[T]) Disarm() {
	r.disarmed.Store(true)
}

// release runs as the wrapper's runtime cleanup: let the entry lapse, then
// issue the single destroy this wrapper owes.
func (r *Registry[T]) release(p Ptr) {
	if r.disarmed.Load() {
		return
	}

	r.mu.Lock()
	// Only remove the entry if it still refers to a dead wrapper; a newer
	// wrapper may have reoccupied the slot between collection and cleanup.
	if wp, ok := r.entries[p]; ok && wp.Value() == nil {
		delete(r.entries, p)
	}
	r.mu.Unlock()

	r.destroy(p)
}
