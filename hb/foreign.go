package hb

import (
	"context"

	hbwasm "github.com/glyphlab/hbwasm"
	"github.com/glyphlab/hbwasm/engine"
)

// Foreign is the call surface the library is built on. engine.Instance is the
// production implementation; tests substitute a scripted fake.
type Foreign interface {
	// Call invokes an exported function with raw i32/i64 arguments and
	// returns the first result, or 0 for void functions.
	Call(ctx context.Context, name string, args ...uint64) (uint64, error)

	// Memory returns the instance's linear memory.
	Memory() hbwasm.Memory

	// Alloc allocates on the guest heap. Free releases such an allocation.
	Alloc(ctx context.Context, size uint32) (uint32, error)
	Free(ctx context.Context, ptr uint32)

	// Callbacks returns the callback table host trampolines dispatch through.
	Callbacks() *engine.CallbackTable

	Close(ctx context.Context) error
}

var _ Foreign = (*engine.Instance)(nil)
