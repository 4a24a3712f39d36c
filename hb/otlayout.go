package hb

import (
	"context"

	"github.com/glyphlab/hbwasm/abi"
)

// OpenType layout table tags.
var (
	OTTagGSUB = abi.TagFromString("GSUB")
	OTTagGPOS = abi.TagFromString("GPOS")
	OTTagGDEF = abi.TagFromString("GDEF")
	OTTagJSTF = abi.TagFromString("JSTF")
	OTTagBASE = abi.TagFromString("BASE")
)

// OTLayoutGlyphClass is hb_ot_layout_glyph_class_t.
type OTLayoutGlyphClass uint32

const (
	OTLayoutGlyphClassUnclassified OTLayoutGlyphClass = iota
	OTLayoutGlyphClassBaseGlyph
	OTLayoutGlyphClassLigature
	OTLayoutGlyphClassMark
	OTLayoutGlyphClassComponent
)

// otNoFeatureIndex etc. are the C API's not-found sentinels.
const (
	otNoFeatureIndex  = 0xffff
	otNoScriptIndex   = 0xffff
	otNoLanguageIndex = 0xffff
)

// pagedCall fetches one page of a start_offset/count getter and returns the
// total item count.
type pagedCall func(start, countPtr, arrPtr uint32) (uint64, error)

// fetchU32List drains a paged getter into a slice.
func (l *Library) fetchU32List(ctx context.Context, fn pagedCall) ([]uint32, error) {
	const page = 32

	countPtr, err := l.f.Alloc(ctx, 4+page*4)
	if err != nil {
		return nil, err
	}
	defer l.f.Free(ctx, countPtr)
	arrPtr := countPtr + 4

	mem := l.mem()
	var out []uint32
	for start := uint32(0); ; {
		if err := mem.WriteU32(countPtr, page); err != nil {
			return nil, err
		}
		total, err := fn(start, countPtr, arrPtr)
		if err != nil {
			return nil, err
		}
		got, err := mem.ReadU32(countPtr)
		if err != nil {
			return nil, err
		}
		if got > 0 {
			vals, err := abi.ReadU32Array(mem, arrPtr, got)
			if err != nil {
				return nil, err
			}
			out = append(out, vals...)
		}
		start += got
		if got == 0 || start >= uint32(total) {
			return out, nil
		}
	}
}

func tagsOf(vals []uint32) []abi.Tag {
	tags := make([]abi.Tag, len(vals))
	for i, v := range vals {
		tags[i] = abi.Tag(v)
	}
	return tags
}

// OTLayoutHasGlyphClasses reports whether the face's GDEF classifies glyphs.
func (f *Face) OTLayoutHasGlyphClasses(ctx context.Context) (bool, error) {
	v, err := f.lib.call(ctx, "hb_ot_layout_has_glyph_classes", uint64(f.ptr))
	return v != 0, err
}

// OTLayoutHasSubstitution reports whether the face has a GSUB table.
func (f *Face) OTLayoutHasSubstitution(ctx context.Context) (bool, error) {
	v, err := f.lib.call(ctx, "hb_ot_layout_has_substitution", uint64(f.ptr))
	return v != 0, err
}

// OTLayoutHasPositioning reports whether the face has a GPOS table.
func (f *Face) OTLayoutHasPositioning(ctx context.Context) (bool, error) {
	v, err := f.lib.call(ctx, "hb_ot_layout_has_positioning", uint64(f.ptr))
	return v != 0, err
}

// OTLayoutGlyphClass returns the GDEF class of a glyph.
func (f *Face) OTLayoutGlyphClass(ctx context.Context, glyph Glyph) (OTLayoutGlyphClass, error) {
	v, err := f.lib.call(ctx, "hb_ot_layout_get_glyph_class",
		uint64(f.ptr), uint64(glyph))
	return OTLayoutGlyphClass(uint32(v)), err
}

// OTLayoutGlyphsInClass fills out with every glyph in a GDEF class.
func (f *Face) OTLayoutGlyphsInClass(ctx context.Context, class OTLayoutGlyphClass, out *Set) error {
	_, err := f.lib.call(ctx, "hb_ot_layout_get_glyphs_in_class",
		uint64(f.ptr), uint64(class), uint64(out.ptr))
	return err
}

// OTLayoutAttachPoints returns GDEF attachment point indices for a glyph.
func (f *Face) OTLayoutAttachPoints(ctx context.Context, glyph Glyph) ([]uint32, error) {
	return f.lib.fetchU32List(ctx, func(start, countPtr, arrPtr uint32) (uint64, error) {
		return f.lib.call(ctx, "hb_ot_layout_get_attach_points",
			uint64(f.ptr), uint64(glyph),
			uint64(start), uint64(countPtr), uint64(arrPtr))
	})
}

// OTLayoutLigatureCarets returns caret positions for a ligature glyph.
func (f *Font) OTLayoutLigatureCarets(ctx context.Context, dir Direction, glyph Glyph) ([]abi.Position, error) {
	vals, err := f.lib.fetchU32List(ctx, func(start, countPtr, arrPtr uint32) (uint64, error) {
		return f.lib.call(ctx, "hb_ot_layout_get_ligature_carets",
			uint64(f.ptr), uint64(dir), uint64(glyph),
			uint64(start), uint64(countPtr), uint64(arrPtr))
	})
	if err != nil {
		return nil, err
	}
	carets := make([]abi.Position, len(vals))
	for i, v := range vals {
		carets[i] = abi.Position(int32(v))
	}
	return carets, nil
}

// OTLayoutScriptTags lists the script tags in a layout table.
func (f *Face) OTLayoutScriptTags(ctx context.Context, tableTag abi.Tag) ([]abi.Tag, error) {
	vals, err := f.lib.fetchU32List(ctx, func(start, countPtr, arrPtr uint32) (uint64, error) {
		return f.lib.call(ctx, "hb_ot_layout_table_get_script_tags",
			uint64(f.ptr), uint64(uint32(tableTag)),
			uint64(start), uint64(countPtr), uint64(arrPtr))
	})
	return tagsOf(vals), err
}

// OTLayoutFindScript locates a script in a layout table.
func (f *Face) OTLayoutFindScript(ctx context.Context, tableTag, scriptTag abi.Tag) (uint32, bool, error) {
	var index uint32
	var found bool
	err := f.lib.withScratch(ctx, 4, func(out uint32) error {
		ok, err := f.lib.call(ctx, "hb_ot_layout_table_find_script",
			uint64(f.ptr), uint64(uint32(tableTag)), uint64(uint32(scriptTag)), uint64(out))
		if err != nil {
			return err
		}
		if ok == 0 {
			return nil
		}
		found = true
		index, err = f.lib.mem().ReadU32(out)
		return err
	})
	return index, found, err
}

// OTLayoutFeatureTags lists the feature tags in a layout table.
func (f *Face) OTLayoutFeatureTags(ctx context.Context, tableTag abi.Tag) ([]abi.Tag, error) {
	vals, err := f.lib.fetchU32List(ctx, func(start, countPtr, arrPtr uint32) (uint64, error) {
		return f.lib.call(ctx, "hb_ot_layout_table_get_feature_tags",
			uint64(f.ptr), uint64(uint32(tableTag)),
			uint64(start), uint64(countPtr), uint64(arrPtr))
	})
	return tagsOf(vals), err
}

// OTLayoutLookupCount returns the number of lookups in a layout table.
func (f *Face) OTLayoutLookupCount(ctx context.Context, tableTag abi.Tag) (uint32, error) {
	v, err := f.lib.call(ctx, "hb_ot_layout_table_get_lookup_count",
		uint64(f.ptr), uint64(uint32(tableTag)))
	return uint32(v), err
}

// OTLayoutLanguageTags lists the language tags under a script.
func (f *Face) OTLayoutLanguageTags(ctx context.Context, tableTag abi.Tag, scriptIndex uint32) ([]abi.Tag, error) {
	vals, err := f.lib.fetchU32List(ctx, func(start, countPtr, arrPtr uint32) (uint64, error) {
		return f.lib.call(ctx, "hb_ot_layout_script_get_language_tags",
			uint64(f.ptr), uint64(uint32(tableTag)), uint64(scriptIndex),
			uint64(start), uint64(countPtr), uint64(arrPtr))
	})
	return tagsOf(vals), err
}

// OTLayoutFindLanguage locates a language under a script.
func (f *Face) OTLayoutFindLanguage(ctx context.Context, tableTag abi.Tag, scriptIndex uint32, languageTag abi.Tag) (uint32, bool, error) {
	var index uint32
	var found bool
	err := f.lib.withScratch(ctx, 4, func(out uint32) error {
		ok, err := f.lib.call(ctx, "hb_ot_layout_script_find_language",
			uint64(f.ptr), uint64(uint32(tableTag)), uint64(scriptIndex),
			uint64(uint32(languageTag)), uint64(out))
		if err != nil {
			return err
		}
		if ok == 0 {
			return nil
		}
		found = true
		index, err = f.lib.mem().ReadU32(out)
		return err
	})
	return index, found, err
}

// OTLayoutRequiredFeature returns the required feature of a language system.
func (f *Face) OTLayoutRequiredFeature(ctx context.Context, tableTag abi.Tag, scriptIndex, languageIndex uint32) (uint32, bool, error) {
	var index uint32
	var found bool
	err := f.lib.withScratch(ctx, 4, func(out uint32) error {
		ok, err := f.lib.call(ctx, "hb_ot_layout_language_get_required_feature",
			uint64(f.ptr), uint64(uint32(tableTag)),
			uint64(scriptIndex), uint64(languageIndex), uint64(out))
		if err != nil {
			return err
		}
		if ok == 0 {
			return nil
		}
		found = true
		index, err = f.lib.mem().ReadU32(out)
		return err
	})
	return index, found, err
}

// OTLayoutLanguageFeatureTags lists feature tags of a language system.
func (f *Face) OTLayoutLanguageFeatureTags(ctx context.Context, tableTag abi.Tag, scriptIndex, languageIndex uint32) ([]abi.Tag, error) {
	vals, err := f.lib.fetchU32List(ctx, func(start, countPtr, arrPtr uint32) (uint64, error) {
		return f.lib.call(ctx, "hb_ot_layout_language_get_feature_tags",
			uint64(f.ptr), uint64(uint32(tableTag)),
			uint64(scriptIndex), uint64(languageIndex),
			uint64(start), uint64(countPtr), uint64(arrPtr))
	})
	return tagsOf(vals), err
}

// OTLayoutLanguageFeatureIndexes lists feature indexes of a language system.
func (f *Face) OTLayoutLanguageFeatureIndexes(ctx context.Context, tableTag abi.Tag, scriptIndex, languageIndex uint32) ([]uint32, error) {
	return f.lib.fetchU32List(ctx, func(start, countPtr, arrPtr uint32) (uint64, error) {
		return f.lib.call(ctx, "hb_ot_layout_language_get_feature_indexes",
			uint64(f.ptr), uint64(uint32(tableTag)),
			uint64(scriptIndex), uint64(languageIndex),
			uint64(start), uint64(countPtr), uint64(arrPtr))
	})
}

// OTLayoutFindFeature locates a feature within a language system.
func (f *Face) OTLayoutFindFeature(ctx context.Context, tableTag abi.Tag, scriptIndex, languageIndex uint32, featureTag abi.Tag) (uint32, bool, error) {
	var index uint32
	var found bool
	err := f.lib.withScratch(ctx, 4, func(out uint32) error {
		ok, err := f.lib.call(ctx, "hb_ot_layout_language_find_feature",
			uint64(f.ptr), uint64(uint32(tableTag)),
			uint64(scriptIndex), uint64(languageIndex),
			uint64(uint32(featureTag)), uint64(out))
		if err != nil {
			return err
		}
		if ok == 0 {
			return nil
		}
		found = true
		index, err = f.lib.mem().ReadU32(out)
		return err
	})
	return index, found, err
}

// OTLayoutFeatureLookups lists the lookups a feature uses.
func (f *Face) OTLayoutFeatureLookups(ctx context.Context, tableTag abi.Tag, featureIndex uint32) ([]uint32, error) {
	return f.lib.fetchU32List(ctx, func(start, countPtr, arrPtr uint32) (uint64, error) {
		return f.lib.call(ctx, "hb_ot_layout_feature_get_lookups",
			uint64(f.ptr), uint64(uint32(tableTag)), uint64(featureIndex),
			uint64(start), uint64(countPtr), uint64(arrPtr))
	})
}

// OTLayoutCollectLookups fills out with the lookups selected by the given
// scripts, languages and features. Nil slices mean "all".
func (f *Face) OTLayoutCollectLookups(ctx context.Context, tableTag abi.Tag, scripts, languages, features []abi.Tag, out *Set) error {
	scriptsPtr, freeScripts, err := f.lib.writeTagList(ctx, scripts)
	if err != nil {
		return err
	}
	defer freeScripts()
	langsPtr, freeLangs, err := f.lib.writeTagList(ctx, languages)
	if err != nil {
		return err
	}
	defer freeLangs()
	featsPtr, freeFeats, err := f.lib.writeTagList(ctx, features)
	if err != nil {
		return err
	}
	defer freeFeats()

	_, err = f.lib.call(ctx, "hb_ot_layout_collect_lookups",
		uint64(f.ptr), uint64(uint32(tableTag)),
		uint64(scriptsPtr), uint64(langsPtr), uint64(featsPtr),
		uint64(out.ptr))
	return err
}

// OTLayoutLookupCollectGlyphs fills the given sets with the glyphs a lookup
// touches. Any set may be nil.
func (f *Face) OTLayoutLookupCollectGlyphs(ctx context.Context, tableTag abi.Tag, lookupIndex uint32, before, input, after, output *Set) error {
	setPtr := func(s *Set) uint64 {
		if s == nil {
			return 0
		}
		return uint64(s.ptr)
	}
	_, err := f.lib.call(ctx, "hb_ot_layout_lookup_collect_glyphs",
		uint64(f.ptr), uint64(uint32(tableTag)), uint64(lookupIndex),
		setPtr(before), setPtr(input), setPtr(after), setPtr(output))
	return err
}

// OTLayoutLookupWouldSubstitute reports whether a lookup would act on the
// glyph sequence.
func (f *Face) OTLayoutLookupWouldSubstitute(ctx context.Context, lookupIndex uint32, glyphs []Glyph, zeroContext bool) (bool, error) {
	if len(glyphs) == 0 {
		return false, nil
	}
	arr := make([]uint32, len(glyphs))
	for i, g := range glyphs {
		arr[i] = uint32(g)
	}

	ptr, err := f.lib.f.Alloc(ctx, uint32(len(arr))*4)
	if err != nil {
		return false, err
	}
	defer f.lib.f.Free(ctx, ptr)

	if err := abi.WriteU32Array(f.lib.mem(), ptr, arr); err != nil {
		return false, err
	}
	var zc uint64
	if zeroContext {
		zc = 1
	}
	ok, err := f.lib.call(ctx, "hb_ot_layout_lookup_would_substitute",
		uint64(f.ptr), uint64(lookupIndex),
		uint64(ptr), uint64(uint32(len(arr))), zc)
	return ok != 0, err
}

// OTLayoutLookupSubstituteClosure fills out with the transitive closure of
// glyphs a substitution lookup can produce.
func (f *Face) OTLayoutLookupSubstituteClosure(ctx context.Context, lookupIndex uint32, out *Set) error {
	_, err := f.lib.call(ctx, "hb_ot_layout_lookup_substitute_closure",
		uint64(f.ptr), uint64(lookupIndex), uint64(out.ptr))
	return err
}

// OTLayoutSizeParams holds the GPOS 'size' feature parameters.
type OTLayoutSizeParams struct {
	DesignSize      uint32
	SubfamilyID     uint32
	SubfamilyNameID uint32
	RangeStart      uint32
	RangeEnd        uint32
}

// OTLayoutSizeParams returns the 'size' feature data, if present.
func (f *Face) OTLayoutSizeParams(ctx context.Context) (OTLayoutSizeParams, bool, error) {
	var params OTLayoutSizeParams
	var found bool
	err := f.lib.withScratch(ctx, 20, func(out uint32) error {
		ok, err := f.lib.call(ctx, "hb_ot_layout_get_size_params",
			uint64(f.ptr),
			uint64(out), uint64(out+4), uint64(out+8), uint64(out+12), uint64(out+16))
		if err != nil {
			return err
		}
		if ok == 0 {
			return nil
		}
		found = true
		vals, err := abi.ReadU32Array(f.lib.mem(), out, 5)
		if err != nil {
			return err
		}
		params = OTLayoutSizeParams{vals[0], vals[1], vals[2], vals[3], vals[4]}
		return nil
	})
	return params, found, err
}

// OTShapeGlyphsClosure fills out with every glyph that shaping the text
// could produce.
func (l *Library) OTShapeGlyphsClosure(ctx context.Context, font *Font, buffer *Buffer, features []abi.Feature, out *Set) error {
	var featPtr uint32
	if len(features) > 0 {
		p, err := l.f.Alloc(ctx, uint32(len(features))*abi.FeatureSize)
		if err != nil {
			return err
		}
		defer l.f.Free(ctx, p)
		if err := abi.WriteFeatures(l.mem(), p, features); err != nil {
			return err
		}
		featPtr = p
	}
	_, err := l.call(ctx, "hb_ot_shape_glyphs_closure",
		uint64(font.ptr), uint64(buffer.ptr),
		uint64(featPtr), uint64(uint32(len(features))),
		uint64(out.ptr))
	return err
}

// OTCollectLookups fills out with the lookups the plan would run against a
// layout table.
func (p *ShapePlan) OTCollectLookups(ctx context.Context, tableTag abi.Tag, out *Set) error {
	_, err := p.lib.call(ctx, "hb_ot_shape_plan_collect_lookups",
		uint64(p.ptr), uint64(uint32(tableTag)), uint64(out.ptr))
	return err
}

// writeTagList builds a TagNone-terminated guest tag array. nil yields a
// null pointer, meaning "all".
func (l *Library) writeTagList(ctx context.Context, tags []abi.Tag) (uint32, func(), error) {
	if tags == nil {
		return 0, func() {}, nil
	}
	arr := make([]uint32, len(tags)+1)
	for i, t := range tags {
		arr[i] = uint32(t)
	}

	ptr, err := l.f.Alloc(ctx, uint32(len(arr))*4)
	if err != nil {
		return 0, nil, err
	}
	if err := abi.WriteU32Array(l.mem(), ptr, arr); err != nil {
		l.f.Free(ctx, ptr)
		return 0, nil, err
	}
	return ptr, func() { l.f.Free(ctx, ptr) }, nil
}
