package abi

import (
	"encoding/binary"

	hbwasm "github.com/glyphlab/hbwasm"
)

// Struct sizes on wasm32 (ILP32, little endian), from the hb-*.h headers.
const (
	SegmentPropertiesSize = 20 // hb_segment_properties_t
	GlyphInfoSize         = 20 // hb_glyph_info_t
	GlyphPositionSize     = 20 // hb_glyph_position_t
	FontExtentsSize       = 48 // hb_font_extents_t
	GlyphExtentsSize      = 16 // hb_glyph_extents_t
	FeatureSize           = 16 // hb_feature_t
	VarAxisInfoSize       = 32 // hb_ot_var_axis_info_t
	VariationSize         = 8  // hb_variation_t
	MathGlyphVariantSize  = 8  // hb_ot_math_glyph_variant_t
	MathGlyphPartSize     = 20 // hb_ot_math_glyph_part_t
)

// RawSegmentProperties mirrors hb_segment_properties_t: the (direction,
// script, language) triple describing one run of text. Language is an
// hb_language_t pointer; the two trailing reserved pointers are always
// written as zero.
type RawSegmentProperties struct {
	Direction uint32
	Script    uint32
	Language  uint32
}

// ReadSegmentProperties decodes a segment properties struct at ptr.
func ReadSegmentProperties(mem hbwasm.Memory, ptr uint32) (RawSegmentProperties, error) {
	b, err := mem.Read(ptr, SegmentPropertiesSize)
	if err != nil {
		return RawSegmentProperties{}, err
	}
	return RawSegmentProperties{
		Direction: binary.LittleEndian.Uint32(b[0:]),
		Script:    binary.LittleEndian.Uint32(b[4:]),
		Language:  binary.LittleEndian.Uint32(b[8:]),
	}, nil
}

// WriteSegmentProperties encodes sp at ptr, zeroing the reserved fields.
func WriteSegmentProperties(mem hbwasm.Memory, ptr uint32, sp RawSegmentProperties) error {
	var b [SegmentPropertiesSize]byte
	binary.LittleEndian.PutUint32(b[0:], sp.Direction)
	binary.LittleEndian.PutUint32(b[4:], sp.Script)
	binary.LittleEndian.PutUint32(b[8:], sp.Language)
	return mem.Write(ptr, b[:])
}

// GlyphInfo mirrors the public fields of hb_glyph_info_t. The two private
// var fields are not surfaced.
type GlyphInfo struct {
	Codepoint uint32
	Mask      uint32
	Cluster   uint32
}

// ReadGlyphInfos decodes n consecutive glyph info structs at ptr.
func ReadGlyphInfos(mem hbwasm.Memory, ptr uint32, n uint32) ([]GlyphInfo, error) {
	if n == 0 {
		return nil, nil
	}
	b, err := mem.Read(ptr, n*GlyphInfoSize)
	if err != nil {
		return nil, err
	}
	out := make([]GlyphInfo, n)
	for i := range out {
		off := i * GlyphInfoSize
		out[i] = GlyphInfo{
			Codepoint: binary.LittleEndian.Uint32(b[off:]),
			Mask:      binary.LittleEndian.Uint32(b[off+4:]),
			Cluster:   binary.LittleEndian.Uint32(b[off+8:]),
		}
	}
	return out, nil
}

// GlyphPosition mirrors hb_glyph_position_t with 16.6 positions.
type GlyphPosition struct {
	XAdvance Position
	YAdvance Position
	XOffset  Position
	YOffset  Position
}

// ReadGlyphPositions decodes n consecutive glyph position structs at ptr.
func ReadGlyphPositions(mem hbwasm.Memory, ptr uint32, n uint32) ([]GlyphPosition, error) {
	if n == 0 {
		return nil, nil
	}
	b, err := mem.Read(ptr, n*GlyphPositionSize)
	if err != nil {
		return nil, err
	}
	out := make([]GlyphPosition, n)
	for i := range out {
		off := i * GlyphPositionSize
		out[i] = GlyphPosition{
			XAdvance: Position(binary.LittleEndian.Uint32(b[off:])),
			YAdvance: Position(binary.LittleEndian.Uint32(b[off+4:])),
			XOffset:  Position(binary.LittleEndian.Uint32(b[off+8:])),
			YOffset:  Position(binary.LittleEndian.Uint32(b[off+12:])),
		}
	}
	return out, nil
}

// FontExtents mirrors the public fields of hb_font_extents_t. Ascender is
// typically positive and descender negative in coordinate systems that
// grow up.
type FontExtents struct {
	Ascender  Position
	Descender Position
	LineGap   Position
}

// ReadFontExtents decodes a font extents struct at ptr.
func ReadFontExtents(mem hbwasm.Memory, ptr uint32) (FontExtents, error) {
	b, err := mem.Read(ptr, FontExtentsSize)
	if err != nil {
		return FontExtents{}, err
	}
	return FontExtents{
		Ascender:  Position(binary.LittleEndian.Uint32(b[0:])),
		Descender: Position(binary.LittleEndian.Uint32(b[4:])),
		LineGap:   Position(binary.LittleEndian.Uint32(b[8:])),
	}, nil
}

// WriteFontExtents encodes fe at ptr, zeroing the nine reserved slots.
// Used when a host font-funcs callback fills an extents out-parameter.
func WriteFontExtents(mem hbwasm.Memory, ptr uint32, fe FontExtents) error {
	var b [FontExtentsSize]byte
	binary.LittleEndian.PutUint32(b[0:], uint32(fe.Ascender))
	binary.LittleEndian.PutUint32(b[4:], uint32(fe.Descender))
	binary.LittleEndian.PutUint32(b[8:], uint32(fe.LineGap))
	return mem.Write(ptr, b[:])
}

// GlyphExtents mirrors hb_glyph_extents_t. Height is negative in coordinate
// systems that grow up.
type GlyphExtents struct {
	XBearing Position
	YBearing Position
	Width    Position
	Height   Position
}

// ReadGlyphExtents decodes a glyph extents struct at ptr.
func ReadGlyphExtents(mem hbwasm.Memory, ptr uint32) (GlyphExtents, error) {
	b, err := mem.Read(ptr, GlyphExtentsSize)
	if err != nil {
		return GlyphExtents{}, err
	}
	return GlyphExtents{
		XBearing: Position(binary.LittleEndian.Uint32(b[0:])),
		YBearing: Position(binary.LittleEndian.Uint32(b[4:])),
		Width:    Position(binary.LittleEndian.Uint32(b[8:])),
		Height:   Position(binary.LittleEndian.Uint32(b[12:])),
	}, nil
}

// WriteGlyphExtents encodes ge at ptr.
func WriteGlyphExtents(mem hbwasm.Memory, ptr uint32, ge GlyphExtents) error {
	var b [GlyphExtentsSize]byte
	binary.LittleEndian.PutUint32(b[0:], uint32(ge.XBearing))
	binary.LittleEndian.PutUint32(b[4:], uint32(ge.YBearing))
	binary.LittleEndian.PutUint32(b[8:], uint32(ge.Width))
	binary.LittleEndian.PutUint32(b[12:], uint32(ge.Height))
	return mem.Write(ptr, b[:])
}

// Feature mirrors hb_feature_t: one OpenType feature request covering a
// cluster range of the buffer.
type Feature struct {
	Tag   Tag
	Value uint32
	Start uint32
	End   uint32
}

// ReadFeature decodes a feature struct at ptr.
func ReadFeature(mem hbwasm.Memory, ptr uint32) (Feature, error) {
	b, err := mem.Read(ptr, FeatureSize)
	if err != nil {
		return Feature{}, err
	}
	return Feature{
		Tag:   Tag(binary.LittleEndian.Uint32(b[0:])),
		Value: binary.LittleEndian.Uint32(b[4:]),
		Start: binary.LittleEndian.Uint32(b[8:]),
		End:   binary.LittleEndian.Uint32(b[12:]),
	}, nil
}

// WriteFeatures encodes features as a contiguous array at ptr.
func WriteFeatures(mem hbwasm.Memory, ptr uint32, features []Feature) error {
	b := make([]byte, len(features)*FeatureSize)
	for i, f := range features {
		off := i * FeatureSize
		binary.LittleEndian.PutUint32(b[off:], uint32(f.Tag))
		binary.LittleEndian.PutUint32(b[off+4:], f.Value)
		binary.LittleEndian.PutUint32(b[off+8:], f.Start)
		binary.LittleEndian.PutUint32(b[off+12:], f.End)
	}
	return mem.Write(ptr, b)
}

// VarAxisInfo mirrors hb_ot_var_axis_info_t: one variation axis of a
// variable font. The trailing reserved word is ignored.
type VarAxisInfo struct {
	AxisIndex    uint32
	Tag          Tag
	NameID       uint32
	Flags        uint32
	MinValue     float32
	DefaultValue float32
	MaxValue     float32
}

// ReadVarAxisInfos decodes n consecutive axis info structs at ptr.
func ReadVarAxisInfos(mem hbwasm.Memory, ptr uint32, n uint32) ([]VarAxisInfo, error) {
	if n == 0 {
		return nil, nil
	}
	b, err := mem.Read(ptr, n*VarAxisInfoSize)
	if err != nil {
		return nil, err
	}
	out := make([]VarAxisInfo, n)
	for i := range out {
		off := i * VarAxisInfoSize
		out[i] = VarAxisInfo{
			AxisIndex:    binary.LittleEndian.Uint32(b[off:]),
			Tag:          Tag(binary.LittleEndian.Uint32(b[off+4:])),
			NameID:       binary.LittleEndian.Uint32(b[off+8:]),
			Flags:        binary.LittleEndian.Uint32(b[off+12:]),
			MinValue:     f32(b[off+16:]),
			DefaultValue: f32(b[off+20:]),
			MaxValue:     f32(b[off+24:]),
		}
	}
	return out, nil
}

// Variation mirrors hb_variation_t: one axis tag with a design-space value.
type Variation struct {
	Tag   Tag
	Value float32
}

// WriteVariations encodes variations as a contiguous array at ptr.
func WriteVariations(mem hbwasm.Memory, ptr uint32, variations []Variation) error {
	b := make([]byte, len(variations)*VariationSize)
	for i, v := range variations {
		off := i * VariationSize
		binary.LittleEndian.PutUint32(b[off:], uint32(v.Tag))
		binary.LittleEndian.PutUint32(b[off+4:], f32bits(v.Value))
	}
	return mem.Write(ptr, b)
}

// MathGlyphVariant mirrors hb_ot_math_glyph_variant_t.
type MathGlyphVariant struct {
	Glyph   uint32
	Advance Position
}

// ReadMathGlyphVariants decodes n consecutive glyph variant structs at ptr.
func ReadMathGlyphVariants(mem hbwasm.Memory, ptr uint32, n uint32) ([]MathGlyphVariant, error) {
	if n == 0 {
		return nil, nil
	}
	b, err := mem.Read(ptr, n*MathGlyphVariantSize)
	if err != nil {
		return nil, err
	}
	out := make([]MathGlyphVariant, n)
	for i := range out {
		off := i * MathGlyphVariantSize
		out[i] = MathGlyphVariant{
			Glyph:   binary.LittleEndian.Uint32(b[off:]),
			Advance: Position(binary.LittleEndian.Uint32(b[off+4:])),
		}
	}
	return out, nil
}

// MathGlyphPart mirrors hb_ot_math_glyph_part_t.
type MathGlyphPart struct {
	Glyph                uint32
	StartConnectorLength Position
	EndConnectorLength   Position
	FullAdvance          Position
	Flags                uint32
}

// ReadMathGlyphParts decodes n consecutive glyph part structs at ptr.
func ReadMathGlyphParts(mem hbwasm.Memory, ptr uint32, n uint32) ([]MathGlyphPart, error) {
	if n == 0 {
		return nil, nil
	}
	b, err := mem.Read(ptr, n*MathGlyphPartSize)
	if err != nil {
		return nil, err
	}
	out := make([]MathGlyphPart, n)
	for i := range out {
		off := i * MathGlyphPartSize
		out[i] = MathGlyphPart{
			Glyph:                binary.LittleEndian.Uint32(b[off:]),
			StartConnectorLength: Position(binary.LittleEndian.Uint32(b[off+4:])),
			EndConnectorLength:   Position(binary.LittleEndian.Uint32(b[off+8:])),
			FullAdvance:          Position(binary.LittleEndian.Uint32(b[off+12:])),
			Flags:                binary.LittleEndian.Uint32(b[off+16:]),
		}
	}
	return out, nil
}

// ReadU32Array decodes n consecutive uint32 values at ptr. Used for tag and
// index enumeration out-arrays.
func ReadU32Array(mem hbwasm.Memory, ptr uint32, n uint32) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	b, err := mem.Read(ptr, n*4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}

// WriteU32Array encodes values as a contiguous array at ptr.
func WriteU32Array(mem hbwasm.Memory, ptr uint32, values []uint32) error {
	b := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return mem.Write(ptr, b)
}
