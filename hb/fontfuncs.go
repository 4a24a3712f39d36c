package hb

import (
	"context"

	"go.uber.org/zap"

	hbwasm "github.com/glyphlab/hbwasm"
	"github.com/glyphlab/hbwasm/abi"
	"github.com/glyphlab/hbwasm/engine"
	"github.com/glyphlab/hbwasm/handle"
)

// FontFuncs wraps hb_font_funcs_t, a virtual method table for font metric
// queries. Install Go callbacks with the Set*Func methods, then attach the
// table to a font with Font.SetFuncs.
//
// Callbacks resolve their owning Font through the registry rather than a
// captured pointer, so a callback never extends a wrapper's lifetime.
type FontFuncs struct {
	lib *Library
	ptr handle.Ptr
}

// Callback signatures. All run during a foreign call and must not call back
// into the Library.
type (
	NominalGlyphFunc   func(font *Font, unicode rune) (Glyph, bool)
	VariationGlyphFunc func(font *Font, unicode, selector rune) (Glyph, bool)
	GlyphAdvanceFunc   func(font *Font, glyph Glyph) abi.Position
	GlyphOriginFunc    func(font *Font, glyph Glyph) (x, y abi.Position, ok bool)
	GlyphKerningFunc   func(font *Font, first, second Glyph) abi.Position
	GlyphExtentsFunc   func(font *Font, glyph Glyph) (abi.GlyphExtents, bool)
	GlyphNameFunc      func(font *Font, glyph Glyph) (string, bool)
	GlyphFromNameFunc  func(font *Font, name string) (Glyph, bool)
	FontExtentsFunc    func(font *Font) (abi.FontExtents, bool)
)

// NewFontFuncs creates an empty font funcs table.
func (l *Library) NewFontFuncs(ctx context.Context) (*FontFuncs, error) {
	raw, err := l.call(ctx, "hb_font_funcs_create")
	if err != nil {
		return nil, err
	}
	return l.wrapFontFuncs(raw)
}

// EmptyFontFuncs returns the canonical empty table, which reports every
// query as unsupported.
func (l *Library) EmptyFontFuncs(ctx context.Context) (*FontFuncs, error) {
	raw, err := l.call(ctx, "hb_font_funcs_get_empty")
	if err != nil {
		return nil, err
	}
	if _, err := l.call(ctx, "hb_font_funcs_reference", raw); err != nil {
		return nil, err
	}
	return l.wrapFontFuncs(raw)
}

func (ff *FontFuncs) IsImmutable(ctx context.Context) (bool, error) {
	v, err := ff.lib.call(ctx, "hb_font_funcs_is_immutable", uint64(ff.ptr))
	return v != 0, err
}

func (ff *FontFuncs) MakeImmutable(ctx context.Context) error {
	_, err := ff.lib.call(ctx, "hb_font_funcs_make_immutable", uint64(ff.ptr))
	return err
}

// fontView resolves the canonical Font wrapper for a guest pointer, or a
// transient view if the wrapper has been collected.
func (l *Library) fontView(p handle.Ptr) *Font {
	if f, ok := l.fonts.Get(p); ok {
		return f
	}
	return &Font{lib: l, ptr: p}
}

// install registers a callback token and binds it into one slot of the guest
// table. The shim attaches a destroy notify that retires the token when the
// slot is replaced or the table dies.
func (ff *FontFuncs) install(ctx context.Context, sym string, fn engine.CallbackFunc) error {
	table := ff.lib.f.Callbacks()
	token := table.Register(fn)
	if _, err := ff.lib.call(ctx, sym, uint64(ff.ptr), uint64(uint32(token))); err != nil {
		table.Drop(token)
		return err
	}
	return nil
}

func writeCallbackErr(sym string, err error) uint64 {
	engine.Logger().Warn("font funcs callback result write failed",
		zap.String("slot", sym), zap.Error(err))
	return 0
}

// SetNominalGlyphFunc installs the nominal codepoint-to-glyph mapping.
func (ff *FontFuncs) SetNominalGlyphFunc(ctx context.Context, fn NominalGlyphFunc) error {
	l := ff.lib
	return ff.install(ctx, "hbw_font_funcs_set_nominal_glyph_func",
		func(_ context.Context, mem hbwasm.Memory, args []uint64) uint64 {
			font := l.fontView(handle.Ptr(uint32(args[0])))
			glyph, ok := fn(font, rune(uint32(args[1])))
			if !ok {
				return 0
			}
			if err := mem.WriteU32(uint32(args[2]), uint32(glyph)); err != nil {
				return writeCallbackErr("nominal_glyph", err)
			}
			return 1
		})
}

// SetVariationGlyphFunc installs the variation-selector glyph mapping.
func (ff *FontFuncs) SetVariationGlyphFunc(ctx context.Context, fn VariationGlyphFunc) error {
	l := ff.lib
	return ff.install(ctx, "hbw_font_funcs_set_variation_glyph_func",
		func(_ context.Context, mem hbwasm.Memory, args []uint64) uint64 {
			font := l.fontView(handle.Ptr(uint32(args[0])))
			glyph, ok := fn(font, rune(uint32(args[1])), rune(uint32(args[2])))
			if !ok {
				return 0
			}
			if err := mem.WriteU32(uint32(args[3]), uint32(glyph)); err != nil {
				return writeCallbackErr("variation_glyph", err)
			}
			return 1
		})
}

func (ff *FontFuncs) setAdvanceFunc(ctx context.Context, sym string, fn GlyphAdvanceFunc) error {
	l := ff.lib
	return ff.install(ctx, sym,
		func(_ context.Context, _ hbwasm.Memory, args []uint64) uint64 {
			font := l.fontView(handle.Ptr(uint32(args[0])))
			return uint64(uint32(fn(font, Glyph(uint32(args[1])))))
		})
}

// SetGlyphHAdvanceFunc installs the horizontal advance callback.
func (ff *FontFuncs) SetGlyphHAdvanceFunc(ctx context.Context, fn GlyphAdvanceFunc) error {
	return ff.setAdvanceFunc(ctx, "hbw_font_funcs_set_glyph_h_advance_func", fn)
}

// SetGlyphVAdvanceFunc installs the vertical advance callback.
func (ff *FontFuncs) SetGlyphVAdvanceFunc(ctx context.Context, fn GlyphAdvanceFunc) error {
	return ff.setAdvanceFunc(ctx, "hbw_font_funcs_set_glyph_v_advance_func", fn)
}

func (ff *FontFuncs) setOriginFunc(ctx context.Context, sym string, fn GlyphOriginFunc) error {
	l := ff.lib
	return ff.install(ctx, sym,
		func(_ context.Context, mem hbwasm.Memory, args []uint64) uint64 {
			font := l.fontView(handle.Ptr(uint32(args[0])))
			x, y, ok := fn(font, Glyph(uint32(args[1])))
			if !ok {
				return 0
			}
			if err := mem.WriteU32(uint32(args[2]), uint32(int32(x))); err != nil {
				return writeCallbackErr("glyph_origin", err)
			}
			if err := mem.WriteU32(uint32(args[3]), uint32(int32(y))); err != nil {
				return writeCallbackErr("glyph_origin", err)
			}
			return 1
		})
}

// SetGlyphHOriginFunc installs the horizontal origin callback.
func (ff *FontFuncs) SetGlyphHOriginFunc(ctx context.Context, fn GlyphOriginFunc) error {
	return ff.setOriginFunc(ctx, "hbw_font_funcs_set_glyph_h_origin_func", fn)
}

// SetGlyphVOriginFunc installs the vertical origin callback.
func (ff *FontFuncs) SetGlyphVOriginFunc(ctx context.Context, fn GlyphOriginFunc) error {
	return ff.setOriginFunc(ctx, "hbw_font_funcs_set_glyph_v_origin_func", fn)
}

// SetGlyphHKerningFunc installs the horizontal kerning callback.
func (ff *FontFuncs) SetGlyphHKerningFunc(ctx context.Context, fn GlyphKerningFunc) error {
	l := ff.lib
	return ff.install(ctx, "hbw_font_funcs_set_glyph_h_kerning_func",
		func(_ context.Context, _ hbwasm.Memory, args []uint64) uint64 {
			font := l.fontView(handle.Ptr(uint32(args[0])))
			return uint64(uint32(fn(font, Glyph(uint32(args[1])), Glyph(uint32(args[2])))))
		})
}

// SetGlyphExtentsFunc installs the glyph extents callback.
func (ff *FontFuncs) SetGlyphExtentsFunc(ctx context.Context, fn GlyphExtentsFunc) error {
	l := ff.lib
	return ff.install(ctx, "hbw_font_funcs_set_glyph_extents_func",
		func(_ context.Context, mem hbwasm.Memory, args []uint64) uint64 {
			font := l.fontView(handle.Ptr(uint32(args[0])))
			extents, ok := fn(font, Glyph(uint32(args[1])))
			if !ok {
				return 0
			}
			if err := abi.WriteGlyphExtents(mem, uint32(args[2]), extents); err != nil {
				return writeCallbackErr("glyph_extents", err)
			}
			return 1
		})
}

// SetGlyphNameFunc installs the glyph naming callback.
func (ff *FontFuncs) SetGlyphNameFunc(ctx context.Context, fn GlyphNameFunc) error {
	l := ff.lib
	return ff.install(ctx, "hbw_font_funcs_set_glyph_name_func",
		func(_ context.Context, mem hbwasm.Memory, args []uint64) uint64 {
			font := l.fontView(handle.Ptr(uint32(args[0])))
			name, ok := fn(font, Glyph(uint32(args[1])))
			if !ok {
				return 0
			}
			buf, size := uint32(args[2]), uint32(args[3])
			if size == 0 {
				return 0
			}
			if uint32(len(name)) >= size {
				name = name[:size-1]
			}
			out := make([]byte, len(name)+1)
			copy(out, name)
			if err := mem.Write(buf, out); err != nil {
				return writeCallbackErr("glyph_name", err)
			}
			return 1
		})
}

// SetGlyphFromNameFunc installs the reverse glyph naming callback.
func (ff *FontFuncs) SetGlyphFromNameFunc(ctx context.Context, fn GlyphFromNameFunc) error {
	l := ff.lib
	return ff.install(ctx, "hbw_font_funcs_set_glyph_from_name_func",
		func(_ context.Context, mem hbwasm.Memory, args []uint64) uint64 {
			font := l.fontView(handle.Ptr(uint32(args[0])))
			namePtr, nameLen := uint32(args[1]), int32(uint32(args[2]))

			var name string
			if nameLen < 0 {
				s, err := readCStringFrom(mem, namePtr)
				if err != nil {
					return writeCallbackErr("glyph_from_name", err)
				}
				name = s
			} else {
				raw, err := mem.Read(namePtr, uint32(nameLen))
				if err != nil {
					return writeCallbackErr("glyph_from_name", err)
				}
				name = string(raw)
			}

			glyph, ok := fn(font, name)
			if !ok {
				return 0
			}
			if err := mem.WriteU32(uint32(args[3]), uint32(glyph)); err != nil {
				return writeCallbackErr("glyph_from_name", err)
			}
			return 1
		})
}

func (ff *FontFuncs) setFontExtentsFunc(ctx context.Context, sym string, fn FontExtentsFunc) error {
	l := ff.lib
	return ff.install(ctx, sym,
		func(_ context.Context, mem hbwasm.Memory, args []uint64) uint64 {
			font := l.fontView(handle.Ptr(uint32(args[0])))
			extents, ok := fn(font)
			if !ok {
				return 0
			}
			if err := abi.WriteFontExtents(mem, uint32(args[1]), extents); err != nil {
				return writeCallbackErr("font_extents", err)
			}
			return 1
		})
}

// SetFontHExtentsFunc installs the horizontal font metrics callback.
func (ff *FontFuncs) SetFontHExtentsFunc(ctx context.Context, fn FontExtentsFunc) error {
	return ff.setFontExtentsFunc(ctx, "hbw_font_funcs_set_font_h_extents_func", fn)
}

// SetFontVExtentsFunc installs the vertical font metrics callback.
func (ff *FontFuncs) SetFontVExtentsFunc(ctx context.Context, fn FontExtentsFunc) error {
	return ff.setFontExtentsFunc(ctx, "hbw_font_funcs_set_font_v_extents_func", fn)
}

// readCStringFrom reads a NUL-terminated string from an arbitrary memory,
// used inside callbacks where the Library helper is off limits.
func readCStringFrom(mem hbwasm.Memory, ptr uint32) (string, error) {
	var out []byte
	for off := ptr; ; off++ {
		b, err := mem.ReadU8(off)
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(out), nil
		}
		out = append(out, b)
	}
}
