// Package hb is the high-level HarfBuzz API: blobs, faces, fonts, buffers,
// shaping, sets and OpenType introspection.
//
// Every object a method returns is the canonical wrapper for its underlying
// handle. Wrappers release their handle when the garbage collector reclaims
// them; Library.Close disarms that machinery before tearing the instance
// down, so teardown order never matters to callers.
//
// Go callbacks installed through FontFuncs, UnicodeFuncs or
// NewFaceForTables run while a foreign call is in flight. They may read and
// return values but must not call back into the Library.
package hb
