// Package handle provides the weak identity registry that maps foreign
// HarfBuzz object pointers to their unique Go wrappers.
//
// HarfBuzz objects are reference counted by the library itself. A wrapper
// owns exactly one such reference and releases it when the Go garbage
// collector reclaims the wrapper. The registry guarantees identity
// round-tripping: while a wrapper for a given pointer is alive, wrapping
// that pointer again returns the same wrapper and immediately releases the
// redundant reference the caller obtained. Omitting that release would leak
// one native reference per redundant wrap.
//
// # Lifecycle
//
// The registry holds weak pointers only, so it never keeps a wrapper alive.
// When a wrapper becomes unreachable, a runtime cleanup issues exactly one
// destroy call against the foreign pointer and lets the registry entry
// lapse.
//
// # Teardown
//
// Destroy-on-collection must not outlive the wasm instance that owns the
// pointers. Disarm switches the registry off: pending cleanups become
// no-ops and new wraps are refused. hb.Library disarms every registry
// before closing its runtime, which makes teardown deterministic instead of
// depending on collector timing.
package handle
