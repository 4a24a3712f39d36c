// Package abi defines the fixed memory layouts shared with the HarfBuzz
// wasm32 build: struct field order, signedness and sizes reproduce the
// hb-*.h headers bit for bit, and positional values convert through the
// library's 16.6 fixed-point scale at the boundary.
//
// Nothing here is designed by this repository; the layouts are contractually
// fixed by the HarfBuzz headers and wasm32's ILP32 data model (pointers are
// 4 bytes, little endian).
package abi
