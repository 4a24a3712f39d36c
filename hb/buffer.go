package hb

import (
	"context"
	"strings"

	"github.com/glyphlab/hbwasm/abi"
	hberrors "github.com/glyphlab/hbwasm/errors"
	"github.com/glyphlab/hbwasm/handle"
)

// BufferContentType is hb_buffer_content_type_t.
type BufferContentType uint32

const (
	BufferContentTypeInvalid BufferContentType = iota
	BufferContentTypeUnicode
	BufferContentTypeGlyphs
)

// BufferFlags is hb_buffer_flags_t.
type BufferFlags uint32

const (
	BufferFlagDefault                   BufferFlags = 0
	BufferFlagBOT                       BufferFlags = 1
	BufferFlagEOT                       BufferFlags = 2
	BufferFlagPreserveDefaultIgnorables BufferFlags = 4
	BufferFlagRemoveDefaultIgnorables   BufferFlags = 8
)

// BufferClusterLevel is hb_buffer_cluster_level_t.
type BufferClusterLevel uint32

const (
	ClusterLevelMonotoneGraphemes BufferClusterLevel = iota
	ClusterLevelMonotoneCharacters
	ClusterLevelCharacters
	ClusterLevelDefault = ClusterLevelMonotoneGraphemes
)

// SerializeFormat is hb_buffer_serialize_format_t, a tag.
type SerializeFormat abi.Tag

var (
	SerializeFormatText    = SerializeFormat(abi.TagFromString("TEXT"))
	SerializeFormatJSON    = SerializeFormat(abi.TagFromString("JSON"))
	SerializeFormatInvalid = SerializeFormat(abi.TagNone)
)

// SerializeFlags is hb_buffer_serialize_flags_t.
type SerializeFlags uint32

const (
	SerializeFlagDefault      SerializeFlags = 0
	SerializeFlagNoClusters   SerializeFlags = 1
	SerializeFlagNoPositions  SerializeFlags = 2
	SerializeFlagNoGlyphNames SerializeFlags = 4
	SerializeFlagGlyphExtents SerializeFlags = 8
	SerializeFlagGlyphFlags   SerializeFlags = 16
	SerializeFlagNoAdvances   SerializeFlags = 32
)

// Buffer wraps hb_buffer_t, the input/output container for shaping.
type Buffer struct {
	lib *Library
	ptr handle.Ptr
}

// NewBuffer creates an empty buffer.
func (l *Library) NewBuffer(ctx context.Context) (*Buffer, error) {
	raw, err := l.call(ctx, "hb_buffer_create")
	if err != nil {
		return nil, err
	}
	buf, err := l.wrapBuffer(raw)
	if err != nil {
		return nil, err
	}
	ok, err := l.call(ctx, "hb_buffer_allocation_successful", raw)
	if err != nil {
		return nil, err
	}
	if ok == 0 {
		return nil, hberrors.AllocationFailed(hberrors.PhaseCall, 0)
	}
	return buf, nil
}

// EmptyBuffer returns the canonical immutable empty buffer.
func (l *Library) EmptyBuffer(ctx context.Context) (*Buffer, error) {
	raw, err := l.call(ctx, "hb_buffer_get_empty")
	if err != nil {
		return nil, err
	}
	if _, err := l.call(ctx, "hb_buffer_reference", raw); err != nil {
		return nil, err
	}
	return l.wrapBuffer(raw)
}

// Reset clears the buffer and restores default settings.
func (b *Buffer) Reset(ctx context.Context) error {
	_, err := b.lib.call(ctx, "hb_buffer_reset", uint64(b.ptr))
	return err
}

// ClearContents drops the buffer's contents but keeps its settings.
func (b *Buffer) ClearContents(ctx context.Context) error {
	_, err := b.lib.call(ctx, "hb_buffer_clear_contents", uint64(b.ptr))
	return err
}

// PreAllocate reserves room for size items.
func (b *Buffer) PreAllocate(ctx context.Context, size uint32) error {
	ok, err := b.lib.call(ctx, "hb_buffer_pre_allocate", uint64(b.ptr), uint64(size))
	if err != nil {
		return err
	}
	if ok == 0 {
		return hberrors.AllocationFailed(hberrors.PhaseCall, size)
	}
	return nil
}

// Add appends one codepoint with an explicit cluster value.
func (b *Buffer) Add(ctx context.Context, codepoint rune, cluster uint32) error {
	_, err := b.lib.call(ctx, "hb_buffer_add",
		uint64(b.ptr), uint64(uint32(codepoint)), uint64(cluster))
	return err
}

// AddString appends UTF-8 text. Cluster values are byte offsets into s.
func (b *Buffer) AddString(ctx context.Context, s string) error {
	return b.addUTF8(ctx, s, 0, -1)
}

// AddStringItem appends a sub-run of UTF-8 text while keeping the full text
// available for context.
func (b *Buffer) AddStringItem(ctx context.Context, s string, itemOffset uint32, itemLength int32) error {
	return b.addUTF8(ctx, s, itemOffset, itemLength)
}

func (b *Buffer) addUTF8(ctx context.Context, s string, itemOffset uint32, itemLength int32) error {
	return b.lib.withCString(ctx, s, func(ptr uint32) error {
		_, err := b.lib.call(ctx, "hb_buffer_add_utf8",
			uint64(b.ptr), uint64(ptr), uint64(uint32(len(s))),
			uint64(itemOffset), i32arg(itemLength))
		return err
	})
}

// AddCodepoints appends codepoints with automatic cluster values.
func (b *Buffer) AddCodepoints(ctx context.Context, text []rune, itemOffset uint32, itemLength int32) error {
	if len(text) == 0 {
		return nil
	}
	arr := make([]uint32, len(text))
	for i, r := range text {
		arr[i] = uint32(r)
	}

	ptr, err := b.lib.f.Alloc(ctx, uint32(len(arr))*4)
	if err != nil {
		return err
	}
	defer b.lib.f.Free(ctx, ptr)

	if err := abi.WriteU32Array(b.lib.mem(), ptr, arr); err != nil {
		return err
	}
	_, err = b.lib.call(ctx, "hb_buffer_add_codepoints",
		uint64(b.ptr), uint64(ptr), uint64(uint32(len(arr))),
		uint64(itemOffset), i32arg(itemLength))
	return err
}

// ContentType reports whether the buffer holds unicode or glyphs.
func (b *Buffer) ContentType(ctx context.Context) (BufferContentType, error) {
	v, err := b.lib.call(ctx, "hb_buffer_get_content_type", uint64(b.ptr))
	return BufferContentType(uint32(v)), err
}

func (b *Buffer) SetContentType(ctx context.Context, t BufferContentType) error {
	_, err := b.lib.call(ctx, "hb_buffer_set_content_type", uint64(b.ptr), uint64(t))
	return err
}

func (b *Buffer) Direction(ctx context.Context) (Direction, error) {
	v, err := b.lib.call(ctx, "hb_buffer_get_direction", uint64(b.ptr))
	return Direction(uint32(v)), err
}

func (b *Buffer) SetDirection(ctx context.Context, d Direction) error {
	_, err := b.lib.call(ctx, "hb_buffer_set_direction", uint64(b.ptr), uint64(d))
	return err
}

func (b *Buffer) Script(ctx context.Context) (Script, error) {
	v, err := b.lib.call(ctx, "hb_buffer_get_script", uint64(b.ptr))
	return Script(uint32(v)), err
}

func (b *Buffer) SetScript(ctx context.Context, s Script) error {
	_, err := b.lib.call(ctx, "hb_buffer_set_script", uint64(b.ptr), uint64(uint32(s)))
	return err
}

func (b *Buffer) Language(ctx context.Context) (*Language, error) {
	v, err := b.lib.call(ctx, "hb_buffer_get_language", uint64(b.ptr))
	if err != nil {
		return nil, err
	}
	if v == 0 {
		return nil, nil
	}
	return b.lib.internLanguage(ctx, uint32(v))
}

func (b *Buffer) SetLanguage(ctx context.Context, lang *Language) error {
	var ptr uint32
	if lang != nil {
		ptr = lang.ptr
	}
	_, err := b.lib.call(ctx, "hb_buffer_set_language", uint64(b.ptr), uint64(ptr))
	return err
}

func (b *Buffer) Flags(ctx context.Context) (BufferFlags, error) {
	v, err := b.lib.call(ctx, "hb_buffer_get_flags", uint64(b.ptr))
	return BufferFlags(uint32(v)), err
}

func (b *Buffer) SetFlags(ctx context.Context, f BufferFlags) error {
	_, err := b.lib.call(ctx, "hb_buffer_set_flags", uint64(b.ptr), uint64(f))
	return err
}

func (b *Buffer) ClusterLevel(ctx context.Context) (BufferClusterLevel, error) {
	v, err := b.lib.call(ctx, "hb_buffer_get_cluster_level", uint64(b.ptr))
	return BufferClusterLevel(uint32(v)), err
}

func (b *Buffer) SetClusterLevel(ctx context.Context, lvl BufferClusterLevel) error {
	_, err := b.lib.call(ctx, "hb_buffer_set_cluster_level", uint64(b.ptr), uint64(lvl))
	return err
}

// ReplacementCodepoint is the codepoint substituted for invalid UTF-8.
func (b *Buffer) ReplacementCodepoint(ctx context.Context) (rune, error) {
	v, err := b.lib.call(ctx, "hb_buffer_get_replacement_codepoint", uint64(b.ptr))
	return rune(uint32(v)), err
}

func (b *Buffer) SetReplacementCodepoint(ctx context.Context, r rune) error {
	_, err := b.lib.call(ctx, "hb_buffer_set_replacement_codepoint",
		uint64(b.ptr), uint64(uint32(r)))
	return err
}

func (b *Buffer) Length(ctx context.Context) (uint32, error) {
	v, err := b.lib.call(ctx, "hb_buffer_get_length", uint64(b.ptr))
	return uint32(v), err
}

func (b *Buffer) SetLength(ctx context.Context, n uint32) error {
	ok, err := b.lib.call(ctx, "hb_buffer_set_length", uint64(b.ptr), uint64(n))
	if err != nil {
		return err
	}
	if ok == 0 {
		return hberrors.AllocationFailed(hberrors.PhaseCall, n)
	}
	return nil
}

// SegmentProperties returns the buffer's direction, script and language.
func (b *Buffer) SegmentProperties(ctx context.Context) (SegmentProperties, error) {
	var props SegmentProperties
	err := b.lib.withScratch(ctx, abi.SegmentPropertiesSize, func(ptr uint32) error {
		if _, err := b.lib.call(ctx, "hb_buffer_get_segment_properties",
			uint64(b.ptr), uint64(ptr)); err != nil {
			return err
		}
		raw, err := abi.ReadSegmentProperties(b.lib.mem(), ptr)
		if err != nil {
			return err
		}
		props, err = b.lib.segmentProperties(ctx, raw)
		return err
	})
	return props, err
}

func (b *Buffer) SetSegmentProperties(ctx context.Context, props SegmentProperties) error {
	return b.lib.withScratch(ctx, abi.SegmentPropertiesSize, func(ptr uint32) error {
		raw := b.lib.rawSegmentProperties(props)
		if err := abi.WriteSegmentProperties(b.lib.mem(), ptr, raw); err != nil {
			return err
		}
		_, err := b.lib.call(ctx, "hb_buffer_set_segment_properties",
			uint64(b.ptr), uint64(ptr))
		return err
	})
}

// GuessSegmentProperties fills in unset segment properties from the buffer
// contents.
func (b *Buffer) GuessSegmentProperties(ctx context.Context) error {
	_, err := b.lib.call(ctx, "hb_buffer_guess_segment_properties", uint64(b.ptr))
	return err
}

// GlyphInfos returns the buffer's glyph (or codepoint) array.
func (b *Buffer) GlyphInfos(ctx context.Context) ([]abi.GlyphInfo, error) {
	var infos []abi.GlyphInfo
	err := b.lib.withScratch(ctx, 4, func(lenPtr uint32) error {
		arr, err := b.lib.call(ctx, "hb_buffer_get_glyph_infos",
			uint64(b.ptr), uint64(lenPtr))
		if err != nil {
			return err
		}
		n, err := b.lib.mem().ReadU32(lenPtr)
		if err != nil {
			return err
		}
		infos, err = abi.ReadGlyphInfos(b.lib.mem(), uint32(arr), n)
		return err
	})
	return infos, err
}

// GlyphPositions returns positions for a shaped buffer. The result is empty
// until the buffer holds glyphs.
func (b *Buffer) GlyphPositions(ctx context.Context) ([]abi.GlyphPosition, error) {
	var positions []abi.GlyphPosition
	err := b.lib.withScratch(ctx, 4, func(lenPtr uint32) error {
		arr, err := b.lib.call(ctx, "hb_buffer_get_glyph_positions",
			uint64(b.ptr), uint64(lenPtr))
		if err != nil {
			return err
		}
		n, err := b.lib.mem().ReadU32(lenPtr)
		if err != nil {
			return err
		}
		if arr == 0 {
			return nil
		}
		positions, err = abi.ReadGlyphPositions(b.lib.mem(), uint32(arr), n)
		return err
	})
	return positions, err
}

func (b *Buffer) Reverse(ctx context.Context) error {
	_, err := b.lib.call(ctx, "hb_buffer_reverse", uint64(b.ptr))
	return err
}

func (b *Buffer) ReverseRange(ctx context.Context, start, end uint32) error {
	_, err := b.lib.call(ctx, "hb_buffer_reverse_range",
		uint64(b.ptr), uint64(start), uint64(end))
	return err
}

func (b *Buffer) ReverseClusters(ctx context.Context) error {
	_, err := b.lib.call(ctx, "hb_buffer_reverse_clusters", uint64(b.ptr))
	return err
}

// NormalizeGlyphs reorders glyphs within clusters into a canonical order.
// Requires positioned glyphs.
func (b *Buffer) NormalizeGlyphs(ctx context.Context) error {
	_, err := b.lib.call(ctx, "hb_buffer_normalize_glyphs", uint64(b.ptr))
	return err
}

// SetUnicodeFuncs overrides the unicode callbacks used when segmenting.
func (b *Buffer) SetUnicodeFuncs(ctx context.Context, u *UnicodeFuncs) error {
	var ptr handle.Ptr
	if u != nil {
		ptr = u.ptr
	}
	_, err := b.lib.call(ctx, "hb_buffer_set_unicode_funcs", uint64(b.ptr), uint64(ptr))
	return err
}

// UnicodeFuncs returns the buffer's unicode callbacks.
func (b *Buffer) UnicodeFuncs(ctx context.Context) (*UnicodeFuncs, error) {
	raw, err := b.lib.call(ctx, "hb_buffer_get_unicode_funcs", uint64(b.ptr))
	if err != nil {
		return nil, err
	}
	// The getter lends a reference; take our own before wrapping.
	if _, err := b.lib.call(ctx, "hb_unicode_funcs_reference", raw); err != nil {
		return nil, err
	}
	return b.lib.wrapUnicodeFuncs(raw)
}

const serializeChunk = 4096

// SerializeGlyphs renders the glyph run in a textual format. font may be nil;
// pass it to include glyph names and font-dependent extents.
func (b *Buffer) SerializeGlyphs(ctx context.Context, font *Font, format SerializeFormat, flags SerializeFlags) (string, error) {
	length, err := b.Length(ctx)
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}

	var fontPtr handle.Ptr
	if font != nil {
		fontPtr = font.ptr
	}

	bufPtr, err := b.lib.f.Alloc(ctx, serializeChunk+4)
	if err != nil {
		return "", err
	}
	defer b.lib.f.Free(ctx, bufPtr)
	consumedPtr := bufPtr + serializeChunk

	var out strings.Builder
	for start := uint32(0); start < length; {
		n, err := b.lib.call(ctx, "hb_buffer_serialize_glyphs",
			uint64(b.ptr), uint64(start), uint64(length),
			uint64(bufPtr), uint64(serializeChunk), uint64(consumedPtr),
			uint64(fontPtr), uint64(uint32(format)), uint64(flags))
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "", hberrors.InvalidData(hberrors.PhaseDecode, "glyph serialization made no progress")
		}
		consumed, err := b.lib.mem().ReadU32(consumedPtr)
		if err != nil {
			return "", err
		}
		chunk, err := b.lib.mem().Read(bufPtr, consumed)
		if err != nil {
			return "", err
		}
		out.Write(chunk)
		start += uint32(n)
	}
	return out.String(), nil
}

// SerializeFormatFromString parses a serialization format name.
func SerializeFormatFromString(s string) SerializeFormat {
	return SerializeFormat(abi.TagFromString(s))
}

func (f SerializeFormat) String() string {
	return abi.Tag(f).String()
}

// SerializeListFormats lists the formats the module supports.
func (l *Library) SerializeListFormats(ctx context.Context) ([]string, error) {
	arr, err := l.call(ctx, "hb_buffer_serialize_list_formats")
	if err != nil {
		return nil, err
	}
	return l.readCStringArray(uint32(arr))
}

// readCStringArray reads a NULL-terminated array of C string pointers.
func (l *Library) readCStringArray(arr uint32) ([]string, error) {
	if arr == 0 {
		return nil, nil
	}
	var out []string
	mem := l.mem()
	for off := arr; ; off += 4 {
		p, err := mem.ReadU32(off)
		if err != nil {
			return nil, err
		}
		if p == 0 {
			return out, nil
		}
		s, err := l.readCString(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
}
