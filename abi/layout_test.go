package abi

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"
)

// fakeMem is a flat little-endian byte array standing in for guest linear
// memory.
type fakeMem struct {
	data []byte
}

func newFakeMem(size int) *fakeMem {
	return &fakeMem{data: make([]byte, size)}
}

func (m *fakeMem) Read(offset, length uint32) ([]byte, error) {
	if int(offset)+int(length) > len(m.data) {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return m.data[offset : offset+length], nil
}

func (m *fakeMem) Write(offset uint32, b []byte) error {
	if int(offset)+len(b) > len(m.data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(b))
	}
	copy(m.data[offset:], b)
	return nil
}

func (m *fakeMem) ReadU8(offset uint32) (uint8, error) {
	b, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *fakeMem) ReadU16(offset uint32) (uint16, error) {
	b, err := m.Read(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (m *fakeMem) ReadU32(offset uint32) (uint32, error) {
	b, err := m.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *fakeMem) ReadU64(offset uint32) (uint64, error) {
	b, err := m.Read(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *fakeMem) WriteU8(offset uint32, v uint8) error {
	return m.Write(offset, []byte{v})
}

func (m *fakeMem) WriteU16(offset uint32, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return m.Write(offset, b[:])
}

func (m *fakeMem) WriteU32(offset uint32, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return m.Write(offset, b[:])
}

func (m *fakeMem) WriteU64(offset uint32, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return m.Write(offset, b[:])
}

func TestPosition(t *testing.T) {
	if got := PositionFromFloat(1.0); got != 64 {
		t.Errorf("PositionFromFloat(1.0) = %d, want 64", got)
	}
	if got := PositionFromFloat(-0.5); got != -32 {
		t.Errorf("PositionFromFloat(-0.5) = %d, want -32", got)
	}
	if got := Position(96).Float(); got != 1.5 {
		t.Errorf("Position(96).Float() = %v, want 1.5", got)
	}
	if got := Position(95).Round(); got != 1 {
		t.Errorf("Position(95).Round() = %d, want 1", got)
	}
	if got := Position(-64).Round(); got != -1 {
		t.Errorf("Position(-64).Round() = %d, want -1", got)
	}
}

func TestTag(t *testing.T) {
	latn := NewTag('L', 'a', 't', 'n')
	if latn != 0x4c61746e {
		t.Fatalf("NewTag packed %#x", uint32(latn))
	}
	if latn.String() != "Latn" {
		t.Errorf("String() = %q", latn.String())
	}
	if TagFromString("Latn") != latn {
		t.Error("TagFromString round trip failed")
	}
	// Short strings pad with spaces, as hb_tag_from_string does.
	if TagFromString("ab") != NewTag('a', 'b', ' ', ' ') {
		t.Error("short tag not space padded")
	}
	if TagFromString("") != TagNone {
		t.Error("empty string must map to TagNone")
	}
}

func TestReadGlyphInfos(t *testing.T) {
	mem := newFakeMem(256)

	// Two glyph_info_t records at offset 16, private var fields filled with
	// junk that the decoder must skip.
	writeU32s(mem, 16,
		0x41, 0x0f, 0, 0xdead, 0xbeef,
		0x42, 0x0f, 1, 0xdead, 0xbeef,
	)

	infos, err := ReadGlyphInfos(mem, 16, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d infos", len(infos))
	}
	if infos[0].Codepoint != 0x41 || infos[0].Cluster != 0 || infos[0].Mask != 0x0f {
		t.Errorf("infos[0] = %+v", infos[0])
	}
	if infos[1].Codepoint != 0x42 || infos[1].Cluster != 1 {
		t.Errorf("infos[1] = %+v", infos[1])
	}
}

func TestReadGlyphPositions(t *testing.T) {
	mem := newFakeMem(256)

	// One glyph_position_t with a negative y_offset (-32 = 0.5 units down).
	writeU32s(mem, 0,
		640, 0, 0, uint32(0xffffffe0), 0,
	)

	positions, err := ReadGlyphPositions(mem, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	p := positions[0]
	if p.XAdvance != 640 || p.XAdvance.Float() != 10.0 {
		t.Errorf("XAdvance = %d", p.XAdvance)
	}
	if p.YOffset != -32 || p.YOffset.Float() != -0.5 {
		t.Errorf("YOffset = %d", p.YOffset)
	}
}

func TestSegmentPropertiesRoundTrip(t *testing.T) {
	mem := newFakeMem(64)

	in := RawSegmentProperties{
		Direction: 4, // LTR
		Script:    uint32(TagFromString("Latn")),
		Language:  0x8000,
	}
	if err := WriteSegmentProperties(mem, 8, in); err != nil {
		t.Fatal(err)
	}

	// Reserved pointer slots must be zeroed.
	for _, off := range []uint32{8 + 12, 8 + 16} {
		if v, _ := mem.ReadU32(off); v != 0 {
			t.Errorf("reserved field at %d = %d", off, v)
		}
	}

	out, err := ReadSegmentProperties(mem, 8)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("round trip: got %+v, want %+v", out, in)
	}
}

func TestReadVarAxisInfos(t *testing.T) {
	mem := newFakeMem(128)

	writeU32s(mem, 0,
		0,                               // axis_index
		uint32(TagFromString("wght")),   // tag
		256,                             // name_id
		0,                               // flags
		math.Float32bits(100),           // min
		math.Float32bits(400),           // default
		math.Float32bits(900),           // max
		0,                               // reserved
	)

	axes, err := ReadVarAxisInfos(mem, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	a := axes[0]
	if a.Tag.String() != "wght" {
		t.Errorf("tag = %q", a.Tag.String())
	}
	if a.MinValue != 100 || a.DefaultValue != 400 || a.MaxValue != 900 {
		t.Errorf("axis range = %v/%v/%v", a.MinValue, a.DefaultValue, a.MaxValue)
	}
}

func TestWriteFeatures(t *testing.T) {
	mem := newFakeMem(64)

	features := []Feature{
		{Tag: TagFromString("kern"), Value: 1, Start: 0, End: 0xffffffff},
		{Tag: TagFromString("liga"), Value: 0, Start: 2, End: 5},
	}
	if err := WriteFeatures(mem, 0, features); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFeature(mem, FeatureSize)
	if err != nil {
		t.Fatal(err)
	}
	if got != features[1] {
		t.Errorf("second feature: got %+v, want %+v", got, features[1])
	}
}

func TestFontExtentsWrite(t *testing.T) {
	mem := newFakeMem(64)

	fe := FontExtents{Ascender: 1280, Descender: -320, LineGap: 0}
	if err := WriteFontExtents(mem, 0, fe); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFontExtents(mem, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != fe {
		t.Errorf("round trip: got %+v, want %+v", got, fe)
	}
}

func writeU32s(m *fakeMem, offset uint32, values ...uint32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(m.data[offset+uint32(i)*4:], v)
	}
}
