package hb

import (
	"context"
	"math"

	"github.com/glyphlab/hbwasm/abi"
	"github.com/glyphlab/hbwasm/handle"
)

// Glyph is a glyph index within a face.
type Glyph uint32

// Font wraps hb_font_t, a face at a particular scale and variation setting.
type Font struct {
	lib *Library
	ptr handle.Ptr
}

// NewFont creates a font for a face. The scale defaults to the face's units
// per em and the font funcs default to the built-in OpenType implementation.
func (l *Library) NewFont(ctx context.Context, face *Face) (*Font, error) {
	raw, err := l.call(ctx, "hb_font_create", uint64(face.ptr))
	if err != nil {
		return nil, err
	}
	return l.wrapFont(raw)
}

// EmptyFont returns the canonical empty font.
func (l *Library) EmptyFont(ctx context.Context) (*Font, error) {
	raw, err := l.call(ctx, "hb_font_get_empty")
	if err != nil {
		return nil, err
	}
	if _, err := l.call(ctx, "hb_font_reference", raw); err != nil {
		return nil, err
	}
	return l.wrapFont(raw)
}

// SubFont creates a child font that inherits from f.
func (f *Font) SubFont(ctx context.Context) (*Font, error) {
	raw, err := f.lib.call(ctx, "hb_font_create_sub_font", uint64(f.ptr))
	if err != nil {
		return nil, err
	}
	return f.lib.wrapFont(raw)
}

// Face returns the face this font renders.
func (f *Font) Face(ctx context.Context) (*Face, error) {
	raw, err := f.lib.call(ctx, "hb_font_get_face", uint64(f.ptr))
	if err != nil {
		return nil, err
	}
	// The getter lends a reference; take our own before wrapping.
	if _, err := f.lib.call(ctx, "hb_face_reference", raw); err != nil {
		return nil, err
	}
	return f.lib.wrapFace(raw)
}

// Parent returns the parent font, or nil for a root font.
func (f *Font) Parent(ctx context.Context) (*Font, error) {
	raw, err := f.lib.call(ctx, "hb_font_get_parent", uint64(f.ptr))
	if err != nil {
		return nil, err
	}
	if raw == 0 {
		return nil, nil
	}
	if _, err := f.lib.call(ctx, "hb_font_reference", raw); err != nil {
		return nil, err
	}
	return f.lib.wrapFont(raw)
}

// Scale returns the font scale in 16.16 units per em along each axis.
func (f *Font) Scale(ctx context.Context) (x, y int32, err error) {
	err = f.lib.withScratch(ctx, 8, func(ptr uint32) error {
		if _, err := f.lib.call(ctx, "hb_font_get_scale",
			uint64(f.ptr), uint64(ptr), uint64(ptr+4)); err != nil {
			return err
		}
		mem := f.lib.mem()
		xv, err := mem.ReadU32(ptr)
		if err != nil {
			return err
		}
		yv, err := mem.ReadU32(ptr + 4)
		if err != nil {
			return err
		}
		x, y = int32(xv), int32(yv)
		return nil
	})
	return x, y, err
}

func (f *Font) SetScale(ctx context.Context, x, y int32) error {
	_, err := f.lib.call(ctx, "hb_font_set_scale",
		uint64(f.ptr), i32arg(x), i32arg(y))
	return err
}

// PPEM returns pixels per em along each axis, 0 if unset.
func (f *Font) PPEM(ctx context.Context) (x, y uint32, err error) {
	err = f.lib.withScratch(ctx, 8, func(ptr uint32) error {
		if _, err := f.lib.call(ctx, "hb_font_get_ppem",
			uint64(f.ptr), uint64(ptr), uint64(ptr+4)); err != nil {
			return err
		}
		mem := f.lib.mem()
		if x, err = mem.ReadU32(ptr); err != nil {
			return err
		}
		y, err = mem.ReadU32(ptr + 4)
		return err
	})
	return x, y, err
}

func (f *Font) SetPPEM(ctx context.Context, x, y uint32) error {
	_, err := f.lib.call(ctx, "hb_font_set_ppem",
		uint64(f.ptr), uint64(x), uint64(y))
	return err
}

// Ptem returns point size per em, 0 if unset.
func (f *Font) Ptem(ctx context.Context) (float32, error) {
	v, err := f.lib.call(ctx, "hb_font_get_ptem", uint64(f.ptr))
	return math.Float32frombits(uint32(v)), err
}

func (f *Font) SetPtem(ctx context.Context, ptem float32) error {
	_, err := f.lib.call(ctx, "hb_font_set_ptem",
		uint64(f.ptr), uint64(math.Float32bits(ptem)))
	return err
}

func (f *Font) IsImmutable(ctx context.Context) (bool, error) {
	v, err := f.lib.call(ctx, "hb_font_is_immutable", uint64(f.ptr))
	return v != 0, err
}

func (f *Font) MakeImmutable(ctx context.Context) error {
	_, err := f.lib.call(ctx, "hb_font_make_immutable", uint64(f.ptr))
	return err
}

// SetFuncs installs custom font funcs on this font.
func (f *Font) SetFuncs(ctx context.Context, funcs *FontFuncs) error {
	_, err := f.lib.call(ctx, "hb_font_set_funcs",
		uint64(f.ptr), uint64(funcs.ptr), 0, 0)
	return err
}

// SetOTFuncs installs the built-in OpenType font funcs.
func (f *Font) SetOTFuncs(ctx context.Context) error {
	_, err := f.lib.call(ctx, "hb_ot_font_set_funcs", uint64(f.ptr))
	return err
}

// SetVariations applies variation axis settings.
func (f *Font) SetVariations(ctx context.Context, variations []abi.Variation) error {
	if len(variations) == 0 {
		return nil
	}
	size := uint32(len(variations)) * abi.VariationSize
	ptr, err := f.lib.f.Alloc(ctx, size)
	if err != nil {
		return err
	}
	defer f.lib.f.Free(ctx, ptr)

	if err := abi.WriteVariations(f.lib.mem(), ptr, variations); err != nil {
		return err
	}
	_, err = f.lib.call(ctx, "hb_font_set_variations",
		uint64(f.ptr), uint64(ptr), uint64(uint32(len(variations))))
	return err
}

// SetVarCoordsDesign sets variation coordinates in design units.
func (f *Font) SetVarCoordsDesign(ctx context.Context, coords []float32) error {
	if len(coords) == 0 {
		return nil
	}
	ptr, err := f.lib.f.Alloc(ctx, uint32(len(coords))*4)
	if err != nil {
		return err
	}
	defer f.lib.f.Free(ctx, ptr)

	mem := f.lib.mem()
	for i, c := range coords {
		if err := mem.WriteU32(ptr+uint32(i)*4, math.Float32bits(c)); err != nil {
			return err
		}
	}
	_, err = f.lib.call(ctx, "hb_font_set_var_coords_design",
		uint64(f.ptr), uint64(ptr), uint64(uint32(len(coords))))
	return err
}

// SetVarCoordsNormalized sets variation coordinates in normalized 2.14 units.
func (f *Font) SetVarCoordsNormalized(ctx context.Context, coords []int32) error {
	if len(coords) == 0 {
		return nil
	}
	arr := make([]uint32, len(coords))
	for i, c := range coords {
		arr[i] = uint32(c)
	}
	ptr, err := f.lib.f.Alloc(ctx, uint32(len(arr))*4)
	if err != nil {
		return err
	}
	defer f.lib.f.Free(ctx, ptr)

	if err := abi.WriteU32Array(f.lib.mem(), ptr, arr); err != nil {
		return err
	}
	_, err = f.lib.call(ctx, "hb_font_set_var_coords_normalized",
		uint64(f.ptr), uint64(ptr), uint64(uint32(len(arr))))
	return err
}

// VarCoordsNormalized returns the font's normalized variation coordinates.
func (f *Font) VarCoordsNormalized(ctx context.Context) ([]int32, error) {
	var coords []int32
	err := f.lib.withScratch(ctx, 4, func(lenPtr uint32) error {
		arr, err := f.lib.call(ctx, "hb_font_get_var_coords_normalized",
			uint64(f.ptr), uint64(lenPtr))
		if err != nil {
			return err
		}
		n, err := f.lib.mem().ReadU32(lenPtr)
		if err != nil {
			return err
		}
		if arr == 0 || n == 0 {
			return nil
		}
		raw, err := abi.ReadU32Array(f.lib.mem(), uint32(arr), n)
		if err != nil {
			return err
		}
		coords = make([]int32, len(raw))
		for i, c := range raw {
			coords[i] = int32(c)
		}
		return nil
	})
	return coords, err
}

// Glyph looks up the glyph for a codepoint, optionally under a variation
// selector.
func (f *Font) Glyph(ctx context.Context, unicode rune, variationSelector rune) (Glyph, bool, error) {
	var glyph Glyph
	var ok bool
	err := f.lib.withScratch(ctx, 4, func(out uint32) error {
		v, err := f.lib.call(ctx, "hb_font_get_glyph",
			uint64(f.ptr), uint64(uint32(unicode)), uint64(uint32(variationSelector)), uint64(out))
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		ok = true
		g, err := f.lib.mem().ReadU32(out)
		glyph = Glyph(g)
		return err
	})
	return glyph, ok, err
}

// NominalGlyph looks up the default glyph for a codepoint.
func (f *Font) NominalGlyph(ctx context.Context, unicode rune) (Glyph, bool, error) {
	var glyph Glyph
	var ok bool
	err := f.lib.withScratch(ctx, 4, func(out uint32) error {
		v, err := f.lib.call(ctx, "hb_font_get_nominal_glyph",
			uint64(f.ptr), uint64(uint32(unicode)), uint64(out))
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		ok = true
		g, err := f.lib.mem().ReadU32(out)
		glyph = Glyph(g)
		return err
	})
	return glyph, ok, err
}

// VariationGlyph looks up the glyph for a codepoint under a variation
// selector.
func (f *Font) VariationGlyph(ctx context.Context, unicode, variationSelector rune) (Glyph, bool, error) {
	var glyph Glyph
	var ok bool
	err := f.lib.withScratch(ctx, 4, func(out uint32) error {
		v, err := f.lib.call(ctx, "hb_font_get_variation_glyph",
			uint64(f.ptr), uint64(uint32(unicode)), uint64(uint32(variationSelector)), uint64(out))
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		ok = true
		g, err := f.lib.mem().ReadU32(out)
		glyph = Glyph(g)
		return err
	})
	return glyph, ok, err
}

// GlyphHAdvance returns the horizontal advance for a glyph.
func (f *Font) GlyphHAdvance(ctx context.Context, glyph Glyph) (abi.Position, error) {
	v, err := f.lib.call(ctx, "hb_font_get_glyph_h_advance",
		uint64(f.ptr), uint64(glyph))
	return abi.Position(int32(uint32(v))), err
}

// GlyphVAdvance returns the vertical advance for a glyph.
func (f *Font) GlyphVAdvance(ctx context.Context, glyph Glyph) (abi.Position, error) {
	v, err := f.lib.call(ctx, "hb_font_get_glyph_v_advance",
		uint64(f.ptr), uint64(glyph))
	return abi.Position(int32(uint32(v))), err
}

// GlyphHOrigin returns the horizontal-layout origin for a glyph, or false if
// the font defines none.
func (f *Font) GlyphHOrigin(ctx context.Context, glyph Glyph) (x, y abi.Position, ok bool, err error) {
	return f.glyphOrigin(ctx, "hb_font_get_glyph_h_origin", glyph)
}

// GlyphVOrigin returns the vertical-layout origin for a glyph, or false if
// the font defines none.
func (f *Font) GlyphVOrigin(ctx context.Context, glyph Glyph) (x, y abi.Position, ok bool, err error) {
	return f.glyphOrigin(ctx, "hb_font_get_glyph_v_origin", glyph)
}

func (f *Font) glyphOrigin(ctx context.Context, sym string, glyph Glyph) (x, y abi.Position, ok bool, err error) {
	err = f.lib.withScratch(ctx, 8, func(out uint32) error {
		v, err := f.lib.call(ctx, sym,
			uint64(f.ptr), uint64(glyph), uint64(out), uint64(out+4))
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		ok = true
		x, y, err = f.readPositionPair(out)
		return err
	})
	return x, y, ok, err
}

// GlyphHKerning returns the kerning adjustment between two glyphs.
func (f *Font) GlyphHKerning(ctx context.Context, left, right Glyph) (abi.Position, error) {
	v, err := f.lib.call(ctx, "hb_font_get_glyph_h_kerning",
		uint64(f.ptr), uint64(left), uint64(right))
	return abi.Position(int32(uint32(v))), err
}

// GlyphVKerning returns the vertical kerning adjustment between two glyphs.
func (f *Font) GlyphVKerning(ctx context.Context, top, bottom Glyph) (abi.Position, error) {
	v, err := f.lib.call(ctx, "hb_font_get_glyph_v_kerning",
		uint64(f.ptr), uint64(top), uint64(bottom))
	return abi.Position(int32(uint32(v))), err
}

// GlyphContourPoint returns one outline point of a glyph, or false if the
// font cannot provide it.
func (f *Font) GlyphContourPoint(ctx context.Context, glyph Glyph, pointIndex uint32) (x, y abi.Position, ok bool, err error) {
	err = f.lib.withScratch(ctx, 8, func(out uint32) error {
		v, err := f.lib.call(ctx, "hb_font_get_glyph_contour_point",
			uint64(f.ptr), uint64(glyph), uint64(pointIndex), uint64(out), uint64(out+4))
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		ok = true
		x, y, err = f.readPositionPair(out)
		return err
	})
	return x, y, ok, err
}

func (f *Font) readPositionPair(ptr uint32) (x, y abi.Position, err error) {
	mem := f.lib.mem()
	xv, err := mem.ReadU32(ptr)
	if err != nil {
		return 0, 0, err
	}
	yv, err := mem.ReadU32(ptr + 4)
	if err != nil {
		return 0, 0, err
	}
	return abi.Position(int32(xv)), abi.Position(int32(yv)), nil
}

// GlyphExtents returns ink extents for a glyph.
func (f *Font) GlyphExtents(ctx context.Context, glyph Glyph) (abi.GlyphExtents, bool, error) {
	var extents abi.GlyphExtents
	var ok bool
	err := f.lib.withScratch(ctx, abi.GlyphExtentsSize, func(out uint32) error {
		v, err := f.lib.call(ctx, "hb_font_get_glyph_extents",
			uint64(f.ptr), uint64(glyph), uint64(out))
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		ok = true
		extents, err = abi.ReadGlyphExtents(f.lib.mem(), out)
		return err
	})
	return extents, ok, err
}

// HExtents returns the font's horizontal metrics.
func (f *Font) HExtents(ctx context.Context) (abi.FontExtents, bool, error) {
	return f.fontExtents(ctx, "hb_font_get_h_extents")
}

// VExtents returns the font's vertical metrics.
func (f *Font) VExtents(ctx context.Context) (abi.FontExtents, bool, error) {
	return f.fontExtents(ctx, "hb_font_get_v_extents")
}

func (f *Font) fontExtents(ctx context.Context, sym string) (abi.FontExtents, bool, error) {
	var extents abi.FontExtents
	var ok bool
	err := f.lib.withScratch(ctx, abi.FontExtentsSize, func(out uint32) error {
		v, err := f.lib.call(ctx, sym, uint64(f.ptr), uint64(out))
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		ok = true
		extents, err = abi.ReadFontExtents(f.lib.mem(), out)
		return err
	})
	return extents, ok, err
}

// GlyphName returns the glyph's name, or false if the font has none.
func (f *Font) GlyphName(ctx context.Context, glyph Glyph) (string, bool, error) {
	var name string
	var ok bool
	err := f.lib.withScratch(ctx, 128, func(buf uint32) error {
		v, err := f.lib.call(ctx, "hb_font_get_glyph_name",
			uint64(f.ptr), uint64(glyph), uint64(buf), 128)
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		ok = true
		name, err = f.lib.readCString(buf)
		return err
	})
	return name, ok, err
}

// GlyphFromName resolves a glyph by name.
func (f *Font) GlyphFromName(ctx context.Context, name string) (Glyph, bool, error) {
	var glyph Glyph
	var ok bool
	err := f.lib.withCString(ctx, name, func(namePtr uint32) error {
		return f.lib.withScratch(ctx, 4, func(out uint32) error {
			v, err := f.lib.call(ctx, "hb_font_get_glyph_from_name",
				uint64(f.ptr), uint64(namePtr), i32arg(-1), uint64(out))
			if err != nil {
				return err
			}
			if v == 0 {
				return nil
			}
			ok = true
			g, err := f.lib.mem().ReadU32(out)
			glyph = Glyph(g)
			return err
		})
	})
	return glyph, ok, err
}

// GlyphToString renders a glyph as "gidDDD" or its name.
func (f *Font) GlyphToString(ctx context.Context, glyph Glyph) (string, error) {
	var name string
	err := f.lib.withScratch(ctx, 128, func(buf uint32) error {
		if _, err := f.lib.call(ctx, "hb_font_glyph_to_string",
			uint64(f.ptr), uint64(glyph), uint64(buf), 128); err != nil {
			return err
		}
		var err error
		name, err = f.lib.readCString(buf)
		return err
	})
	return name, err
}

// GlyphFromString parses a glyph name or "gidDDD" form, matching
// hb_font_glyph_from_string.
func (f *Font) GlyphFromString(ctx context.Context, s string) (Glyph, bool, error) {
	var glyph Glyph
	var ok bool
	err := f.lib.withCString(ctx, s, func(strPtr uint32) error {
		return f.lib.withScratch(ctx, 4, func(out uint32) error {
			v, err := f.lib.call(ctx, "hb_font_glyph_from_string",
				uint64(f.ptr), uint64(strPtr), i32arg(-1), uint64(out))
			if err != nil {
				return err
			}
			if v == 0 {
				return nil
			}
			ok = true
			g, err := f.lib.mem().ReadU32(out)
			glyph = Glyph(g)
			return err
		})
	})
	return glyph, ok, err
}

// GlyphAdvanceForDirection returns the advance for a glyph in a direction.
func (f *Font) GlyphAdvanceForDirection(ctx context.Context, glyph Glyph, dir Direction) (x, y abi.Position, err error) {
	err = f.lib.withScratch(ctx, 8, func(out uint32) error {
		if _, err := f.lib.call(ctx, "hb_font_get_glyph_advance_for_direction",
			uint64(f.ptr), uint64(glyph), uint64(dir), uint64(out), uint64(out+4)); err != nil {
			return err
		}
		mem := f.lib.mem()
		xv, err := mem.ReadU32(out)
		if err != nil {
			return err
		}
		yv, err := mem.ReadU32(out + 4)
		if err != nil {
			return err
		}
		x = abi.Position(int32(xv))
		y = abi.Position(int32(yv))
		return nil
	})
	return x, y, err
}

// GlyphOriginForDirection returns the origin for a glyph in a direction.
func (f *Font) GlyphOriginForDirection(ctx context.Context, glyph Glyph, dir Direction) (x, y abi.Position, err error) {
	return f.glyphOriginDirOp(ctx, "hb_font_get_glyph_origin_for_direction", glyph, dir, 0, 0)
}

// AddGlyphOriginForDirection adds the glyph's origin in a direction to the
// given coordinates.
func (f *Font) AddGlyphOriginForDirection(ctx context.Context, glyph Glyph, dir Direction, x, y abi.Position) (abi.Position, abi.Position, error) {
	return f.glyphOriginDirOp(ctx, "hb_font_add_glyph_origin_for_direction", glyph, dir, x, y)
}

// SubtractGlyphOriginForDirection subtracts the glyph's origin in a direction
// from the given coordinates.
func (f *Font) SubtractGlyphOriginForDirection(ctx context.Context, glyph Glyph, dir Direction, x, y abi.Position) (abi.Position, abi.Position, error) {
	return f.glyphOriginDirOp(ctx, "hb_font_subtract_glyph_origin_for_direction", glyph, dir, x, y)
}

// glyphOriginDirOp runs one of the origin-for-direction calls, which take the
// coordinate pair as in-out pointers.
func (f *Font) glyphOriginDirOp(ctx context.Context, sym string, glyph Glyph, dir Direction, x, y abi.Position) (abi.Position, abi.Position, error) {
	err := f.lib.withScratch(ctx, 8, func(out uint32) error {
		mem := f.lib.mem()
		if err := mem.WriteU32(out, uint32(x)); err != nil {
			return err
		}
		if err := mem.WriteU32(out+4, uint32(y)); err != nil {
			return err
		}
		if _, err := f.lib.call(ctx, sym,
			uint64(f.ptr), uint64(glyph), uint64(dir), uint64(out), uint64(out+4)); err != nil {
			return err
		}
		var err error
		x, y, err = f.readPositionPair(out)
		return err
	})
	return x, y, err
}
