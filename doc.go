// Package hbwasm provides Go bindings to the HarfBuzz text shaping engine,
// running HarfBuzz compiled to WebAssembly in-process via wazero. No cgo and
// no system HarfBuzz installation are required.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	hbwasm/              Root package with core Memory and Allocator interfaces
//	├── hb/              High-level API: blobs, faces, fonts, buffers, shaping
//	├── engine/          Low-level wazero integration and host callback dispatch
//	├── handle/          Weak-reference registry tying wrappers to guest handles
//	├── abi/             Fixed-point numbers, tags and C struct layouts
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Load the engine and shape a run of text:
//
//	lib, err := hb.Open(ctx, wasmBytes, hb.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer lib.Close(ctx)
//
//	blob, err := lib.NewBlobFromFile(ctx, "font.ttf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	face, err := lib.NewFace(ctx, blob, 0)
//	font, err := lib.NewFont(ctx, face)
//
//	buf, err := lib.NewBuffer(ctx)
//	buf.AddString(ctx, "Hello, World!")
//	buf.GuessSegmentProperties(ctx)
//
//	if err := lib.Shape(ctx, font, buf, nil); err != nil {
//	    log.Fatal(err)
//	}
//	infos, _ := buf.GlyphInfos(ctx)
//	positions, _ := buf.GlyphPositions(ctx)
//
// # Wrapper Identity
//
// Every guest-side object (blob, face, font, buffer, ...) is represented by
// exactly one Go wrapper at a time. Wrapping a handle that already has a live
// wrapper returns that wrapper and releases the redundant guest reference, so
// refcounts stay balanced. When a wrapper becomes unreachable, a runtime
// cleanup releases the underlying guest reference. Closing the Library disarms
// all registries first, so late cleanups never touch a dead instance.
//
// # Thread Safety
//
// Library and its registries are safe for concurrent use. Calls into the WASM
// instance are serialized internally; wrapper methods may be called from any
// goroutine.
//
// # Memory Model
//
// WASM linear memory can only grow, never shrink. This is a WebAssembly
// specification limitation. When the guest frees memory, it remains allocated
// but available for reuse within the WASM instance. For long-running processes
// that shape many large fonts, consider recycling the Library periodically.
package hbwasm
