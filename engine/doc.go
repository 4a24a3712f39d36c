// Package engine wraps wazero to run the HarfBuzz WASM module and exposes the
// low-level call surface the hb package builds on: raw exported function
// calls, guest memory access, guest-heap allocation and the "hbw" host module
// that routes guest callback trampolines back into Go.
package engine
