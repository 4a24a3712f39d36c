package hb

import (
	"context"

	"github.com/glyphlab/hbwasm/abi"
)

// OTMathConstant is hb_ot_math_constant_t.
type OTMathConstant uint32

const (
	MathConstantScriptPercentScaleDown OTMathConstant = iota
	MathConstantScriptScriptPercentScaleDown
	MathConstantDelimitedSubFormulaMinHeight
	MathConstantDisplayOperatorMinHeight
	MathConstantMathLeading
	MathConstantAxisHeight
	MathConstantAccentBaseHeight
	MathConstantFlattenedAccentBaseHeight
	MathConstantSubscriptShiftDown
	MathConstantSubscriptTopMax
	MathConstantSubscriptBaselineDropMin
	MathConstantSuperscriptShiftUp
	MathConstantSuperscriptShiftUpCramped
	MathConstantSuperscriptBottomMin
	MathConstantSuperscriptBaselineDropMax
	MathConstantSubSuperscriptGapMin
	MathConstantSuperscriptBottomMaxWithSubscript
	MathConstantSpaceAfterScript
	MathConstantUpperLimitGapMin
	MathConstantUpperLimitBaselineRiseMin
	MathConstantLowerLimitGapMin
	MathConstantLowerLimitBaselineDropMin
	MathConstantStackTopShiftUp
	MathConstantStackTopDisplayStyleShiftUp
	MathConstantStackBottomShiftDown
	MathConstantStackBottomDisplayStyleShiftDown
	MathConstantStackGapMin
	MathConstantStackDisplayStyleGapMin
	MathConstantStretchStackTopShiftUp
	MathConstantStretchStackBottomShiftDown
	MathConstantStretchStackGapAboveMin
	MathConstantStretchStackGapBelowMin
	MathConstantFractionNumeratorShiftUp
	MathConstantFractionNumeratorDisplayStyleShiftUp
	MathConstantFractionDenominatorShiftDown
	MathConstantFractionDenominatorDisplayStyleShiftDown
	MathConstantFractionNumeratorGapMin
	MathConstantFractionNumDisplayStyleGapMin
	MathConstantFractionRuleThickness
	MathConstantFractionDenominatorGapMin
	MathConstantFractionDenomDisplayStyleGapMin
	MathConstantSkewedFractionHorizontalGap
	MathConstantSkewedFractionVerticalGap
	MathConstantOverbarVerticalGap
	MathConstantOverbarRuleThickness
	MathConstantOverbarExtraAscender
	MathConstantUnderbarVerticalGap
	MathConstantUnderbarRuleThickness
	MathConstantUnderbarExtraDescender
	MathConstantRadicalVerticalGap
	MathConstantRadicalDisplayStyleVerticalGap
	MathConstantRadicalRuleThickness
	MathConstantRadicalExtraAscender
	MathConstantRadicalKernBeforeDegree
	MathConstantRadicalKernAfterDegree
	MathConstantRadicalDegreeBottomRaisePercent
)

// OTMathKern is hb_ot_math_kern_t.
type OTMathKern uint32

const (
	MathKernTopRight OTMathKern = iota
	MathKernTopLeft
	MathKernBottomRight
	MathKernBottomLeft
)

// OTMathHasData reports whether the face has a MATH table.
func (f *Face) OTMathHasData(ctx context.Context) (bool, error) {
	v, err := f.lib.call(ctx, "hb_ot_math_has_data", uint64(f.ptr))
	return v != 0, err
}

// OTMathConstant returns a MATH table constant scaled to the font.
func (f *Font) OTMathConstant(ctx context.Context, c OTMathConstant) (abi.Position, error) {
	v, err := f.lib.call(ctx, "hb_ot_math_get_constant",
		uint64(f.ptr), uint64(c))
	return abi.Position(int32(uint32(v))), err
}

// OTMathGlyphItalicsCorrection returns a glyph's italics correction.
func (f *Font) OTMathGlyphItalicsCorrection(ctx context.Context, glyph Glyph) (abi.Position, error) {
	v, err := f.lib.call(ctx, "hb_ot_math_get_glyph_italics_correction",
		uint64(f.ptr), uint64(glyph))
	return abi.Position(int32(uint32(v))), err
}

// OTMathGlyphTopAccentAttachment returns a glyph's top accent anchor.
func (f *Font) OTMathGlyphTopAccentAttachment(ctx context.Context, glyph Glyph) (abi.Position, error) {
	v, err := f.lib.call(ctx, "hb_ot_math_get_glyph_top_accent_attachment",
		uint64(f.ptr), uint64(glyph))
	return abi.Position(int32(uint32(v))), err
}

// OTMathIsGlyphExtendedShape reports whether a glyph is an extended shape.
func (f *Face) OTMathIsGlyphExtendedShape(ctx context.Context, glyph Glyph) (bool, error) {
	v, err := f.lib.call(ctx, "hb_ot_math_is_glyph_extended_shape",
		uint64(f.ptr), uint64(glyph))
	return v != 0, err
}

// OTMathGlyphKerning returns the math kerning at a correction height.
func (f *Font) OTMathGlyphKerning(ctx context.Context, glyph Glyph, kern OTMathKern, correctionHeight abi.Position) (abi.Position, error) {
	v, err := f.lib.call(ctx, "hb_ot_math_get_glyph_kerning",
		uint64(f.ptr), uint64(glyph), uint64(kern), i32arg(int32(correctionHeight)))
	return abi.Position(int32(uint32(v))), err
}

// OTMathMinConnectorOverlap returns the minimum overlap for glyph assembly
// connectors in a direction.
func (f *Font) OTMathMinConnectorOverlap(ctx context.Context, dir Direction) (abi.Position, error) {
	v, err := f.lib.call(ctx, "hb_ot_math_get_min_connector_overlap",
		uint64(f.ptr), uint64(dir))
	return abi.Position(int32(uint32(v))), err
}

// OTMathGlyphVariants returns the stretch variants of a glyph in a direction.
func (f *Font) OTMathGlyphVariants(ctx context.Context, glyph Glyph, dir Direction) ([]abi.MathGlyphVariant, error) {
	const page = 16

	scratch, err := f.lib.f.Alloc(ctx, 4+page*abi.MathGlyphVariantSize)
	if err != nil {
		return nil, err
	}
	defer f.lib.f.Free(ctx, scratch)
	countPtr, arrPtr := scratch, scratch+4

	mem := f.lib.mem()
	var out []abi.MathGlyphVariant
	for start := uint32(0); ; {
		if err := mem.WriteU32(countPtr, page); err != nil {
			return nil, err
		}
		total, err := f.lib.call(ctx, "hb_ot_math_get_glyph_variants",
			uint64(f.ptr), uint64(glyph), uint64(dir),
			uint64(start), uint64(countPtr), uint64(arrPtr))
		if err != nil {
			return nil, err
		}
		got, err := mem.ReadU32(countPtr)
		if err != nil {
			return nil, err
		}
		if got > 0 {
			variants, err := abi.ReadMathGlyphVariants(mem, arrPtr, got)
			if err != nil {
				return nil, err
			}
			out = append(out, variants...)
		}
		start += got
		if got == 0 || start >= uint32(total) {
			return out, nil
		}
	}
}

// OTMathGlyphAssembly returns the parts composing a stretched glyph and the
// assembly's italics correction.
func (f *Font) OTMathGlyphAssembly(ctx context.Context, glyph Glyph, dir Direction) ([]abi.MathGlyphPart, abi.Position, error) {
	const page = 16

	scratch, err := f.lib.f.Alloc(ctx, 8+page*abi.MathGlyphPartSize)
	if err != nil {
		return nil, 0, err
	}
	defer f.lib.f.Free(ctx, scratch)
	countPtr, italicsPtr, arrPtr := scratch, scratch+4, scratch+8

	mem := f.lib.mem()
	var out []abi.MathGlyphPart
	var italics abi.Position
	for start := uint32(0); ; {
		if err := mem.WriteU32(countPtr, page); err != nil {
			return nil, 0, err
		}
		total, err := f.lib.call(ctx, "hb_ot_math_get_glyph_assembly",
			uint64(f.ptr), uint64(glyph), uint64(dir),
			uint64(start), uint64(countPtr), uint64(arrPtr), uint64(italicsPtr))
		if err != nil {
			return nil, 0, err
		}
		got, err := mem.ReadU32(countPtr)
		if err != nil {
			return nil, 0, err
		}
		if got > 0 {
			parts, err := abi.ReadMathGlyphParts(mem, arrPtr, got)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, parts...)
		}
		iv, err := mem.ReadU32(italicsPtr)
		if err != nil {
			return nil, 0, err
		}
		italics = abi.Position(int32(iv))
		start += got
		if got == 0 || start >= uint32(total) {
			return out, italics, nil
		}
	}
}
