package hb

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	hbwasm "github.com/glyphlab/hbwasm"
	"github.com/glyphlab/hbwasm/engine"
	hberrors "github.com/glyphlab/hbwasm/errors"
	"github.com/glyphlab/hbwasm/handle"
)

// Config holds configuration for opening a library.
type Config struct {
	// MemoryLimitPages caps instance memory in 64KB pages. 0 means default.
	MemoryLimitPages uint32

	// CacheDir enables persistent compilation caching across runs.
	CacheDir string
}

// Library is a loaded HarfBuzz instance together with the wrapper registries
// that keep Go objects and guest handles in one-to-one correspondence.
type Library struct {
	f   Foreign
	eng *engine.Engine
	mod *engine.Module

	blobs        *handle.Registry[Blob]
	buffers      *handle.Registry[Buffer]
	faces        *handle.Registry[Face]
	fonts        *handle.Registry[Font]
	fontFuncs    *handle.Registry[FontFuncs]
	unicodeFuncs *handle.Registry[UnicodeFuncs]
	shapePlans   *handle.Registry[ShapePlan]
	sets         *handle.Registry[Set]

	// Languages are interned and immortal on the guest side, so they live in
	// a plain strong map rather than a registry.
	langMu    sync.Mutex
	langByPtr map[uint32]*Language

	closed atomic.Bool
}

// Open compiles and instantiates the HarfBuzz WASM module and returns a ready
// Library. The returned Library owns the engine and closes it on Close.
func Open(ctx context.Context, wasmBytes []byte, cfg Config) (*Library, error) {
	eng, err := engine.NewWithConfig(ctx, &engine.Config{
		MemoryLimitPages: cfg.MemoryLimitPages,
		CacheDir:         cfg.CacheDir,
	})
	if err != nil {
		return nil, err
	}

	mod, err := eng.Compile(ctx, wasmBytes)
	if err != nil {
		eng.Close(ctx)
		return nil, err
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		mod.Close(ctx)
		eng.Close(ctx)
		return nil, err
	}

	lib := NewLibrary(inst)
	lib.eng = eng
	lib.mod = mod
	return lib, nil
}

// NewLibrary builds a Library over an existing Foreign. The Library takes
// ownership of f: Close disarms the registries and then closes f.
func NewLibrary(f Foreign) *Library {
	l := &Library{
		f:         f,
		langByPtr: make(map[uint32]*Language),
	}
	l.blobs = handle.NewRegistry[Blob]("blob", l.destroyFunc("hb_blob_destroy"))
	l.buffers = handle.NewRegistry[Buffer]("buffer", l.destroyFunc("hb_buffer_destroy"))
	l.faces = handle.NewRegistry[Face]("face", l.destroyFunc("hb_face_destroy"))
	l.fonts = handle.NewRegistry[Font]("font", l.destroyFunc("hb_font_destroy"))
	l.fontFuncs = handle.NewRegistry[FontFuncs]("font_funcs", l.destroyFunc("hb_font_funcs_destroy"))
	l.unicodeFuncs = handle.NewRegistry[UnicodeFuncs]("unicode_funcs", l.destroyFunc("hb_unicode_funcs_destroy"))
	l.shapePlans = handle.NewRegistry[ShapePlan]("shape_plan", l.destroyFunc("hb_shape_plan_destroy"))
	l.sets = handle.NewRegistry[Set]("set", l.destroyFunc("hb_set_destroy"))
	return l
}

func (l *Library) destroyFunc(sym string) handle.DestroyFunc {
	return func(p handle.Ptr) {
		if _, err := l.f.Call(context.Background(), sym, uint64(p)); err != nil {
			engine.Logger().Warn("release of foreign reference failed",
				zap.String("symbol", sym),
				zap.Uint32("ptr", uint32(p)),
				zap.Error(err))
		}
	}
}

// Close disarms every registry, then tears down the instance. Wrappers that
// the collector reclaims afterwards become no-ops instead of reaching into a
// dead instance. Close is idempotent.
func (l *Library) Close(ctx context.Context) error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}

	l.blobs.Disarm()
	l.buffers.Disarm()
	l.faces.Disarm()
	l.fonts.Disarm()
	l.fontFuncs.Disarm()
	l.unicodeFuncs.Disarm()
	l.shapePlans.Disarm()
	l.sets.Disarm()

	err := l.f.Close(ctx)
	if l.mod != nil {
		if cerr := l.mod.Close(ctx); err == nil {
			err = cerr
		}
	}
	if l.eng != nil {
		if cerr := l.eng.Close(ctx); err == nil {
			err = cerr
		}
	}
	return err
}

func (l *Library) call(ctx context.Context, sym string, args ...uint64) (uint64, error) {
	if l.closed.Load() {
		return 0, hberrors.Closed("library")
	}
	return l.f.Call(ctx, sym, args...)
}

func (l *Library) mem() hbwasm.Memory {
	return l.f.Memory()
}

// Version reports the HarfBuzz version compiled into the module.
func (l *Library) Version(ctx context.Context) (major, minor, micro uint32, err error) {
	out, err := l.f.Alloc(ctx, 12)
	if err != nil {
		return 0, 0, 0, err
	}
	defer l.f.Free(ctx, out)

	if _, err = l.call(ctx, "hb_version", uint64(out), uint64(out+4), uint64(out+8)); err != nil {
		return 0, 0, 0, err
	}
	mem := l.mem()
	if major, err = mem.ReadU32(out); err != nil {
		return 0, 0, 0, err
	}
	if minor, err = mem.ReadU32(out + 4); err != nil {
		return 0, 0, 0, err
	}
	micro, err = mem.ReadU32(out + 8)
	return major, minor, micro, err
}

// VersionString returns the HarfBuzz version as a string.
func (l *Library) VersionString(ctx context.Context) (string, error) {
	ptr, err := l.call(ctx, "hb_version_string")
	if err != nil {
		return "", err
	}
	return l.readCString(uint32(ptr))
}

// VersionAtLeast reports whether the module's HarfBuzz is at least the given
// version.
func (l *Library) VersionAtLeast(ctx context.Context, major, minor, micro uint32) (bool, error) {
	v, err := l.call(ctx, "hb_version_atleast", uint64(major), uint64(minor), uint64(micro))
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// wrap helpers funnel raw foreign returns through the registries.

func (l *Library) wrapBlob(ret uint64) (*Blob, error) {
	return l.blobs.Wrap(handle.Ptr(uint32(ret)), func(p handle.Ptr) *Blob {
		return &Blob{lib: l, ptr: p}
	})
}

func (l *Library) wrapBuffer(ret uint64) (*Buffer, error) {
	return l.buffers.Wrap(handle.Ptr(uint32(ret)), func(p handle.Ptr) *Buffer {
		return &Buffer{lib: l, ptr: p}
	})
}

func (l *Library) wrapFace(ret uint64) (*Face, error) {
	return l.faces.Wrap(handle.Ptr(uint32(ret)), func(p handle.Ptr) *Face {
		return &Face{lib: l, ptr: p}
	})
}

func (l *Library) wrapFont(ret uint64) (*Font, error) {
	return l.fonts.Wrap(handle.Ptr(uint32(ret)), func(p handle.Ptr) *Font {
		return &Font{lib: l, ptr: p}
	})
}

func (l *Library) wrapFontFuncs(ret uint64) (*FontFuncs, error) {
	return l.fontFuncs.Wrap(handle.Ptr(uint32(ret)), func(p handle.Ptr) *FontFuncs {
		return &FontFuncs{lib: l, ptr: p}
	})
}

func (l *Library) wrapUnicodeFuncs(ret uint64) (*UnicodeFuncs, error) {
	return l.unicodeFuncs.Wrap(handle.Ptr(uint32(ret)), func(p handle.Ptr) *UnicodeFuncs {
		return &UnicodeFuncs{lib: l, ptr: p}
	})
}

func (l *Library) wrapShapePlan(ret uint64) (*ShapePlan, error) {
	return l.shapePlans.Wrap(handle.Ptr(uint32(ret)), func(p handle.Ptr) *ShapePlan {
		return &ShapePlan{lib: l, ptr: p}
	})
}

func (l *Library) wrapSet(ret uint64) (*Set, error) {
	return l.sets.Wrap(handle.Ptr(uint32(ret)), func(p handle.Ptr) *Set {
		return &Set{lib: l, ptr: p}
	})
}

// withCString copies s into guest memory with a trailing NUL for the duration
// of fn.
func (l *Library) withCString(ctx context.Context, s string, fn func(ptr uint32) error) error {
	ptr, err := l.f.Alloc(ctx, uint32(len(s))+1)
	if err != nil {
		return err
	}
	defer l.f.Free(ctx, ptr)

	buf := make([]byte, len(s)+1)
	copy(buf, s)
	if err := l.mem().Write(ptr, buf); err != nil {
		return err
	}
	return fn(ptr)
}

// withScratch allocates a zeroed guest scratch buffer for the duration of fn.
func (l *Library) withScratch(ctx context.Context, size uint32, fn func(ptr uint32) error) error {
	ptr, err := l.f.Alloc(ctx, size)
	if err != nil {
		return err
	}
	defer l.f.Free(ctx, ptr)

	if err := l.mem().Write(ptr, make([]byte, size)); err != nil {
		return err
	}
	return fn(ptr)
}

// readCString reads a NUL-terminated guest string.
func (l *Library) readCString(ptr uint32) (string, error) {
	if ptr == 0 {
		return "", nil
	}
	mem := l.mem()
	var out []byte
	for off := ptr; ; off += 64 {
		chunk, err := mem.Read(off, 64)
		if err != nil {
			// Tail of memory; fall back to byte-wise reads.
			for {
				b, berr := mem.ReadU8(off)
				if berr != nil {
					return "", fmt.Errorf("unterminated string at %d: %w", ptr, berr)
				}
				if b == 0 {
					return string(out), nil
				}
				out = append(out, b)
				off++
			}
		}
		if i := bytes.IndexByte(chunk, 0); i >= 0 {
			return string(append(out, chunk[:i]...)), nil
		}
		out = append(out, chunk...)
	}
}

// i32arg encodes a signed 32-bit value as a raw call argument.
func i32arg(v int32) uint64 {
	return uint64(uint32(v))
}
