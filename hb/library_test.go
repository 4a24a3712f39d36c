package hb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	hbwasm "github.com/glyphlab/hbwasm"
	"github.com/glyphlab/hbwasm/abi"
	"github.com/glyphlab/hbwasm/engine"
	hberrors "github.com/glyphlab/hbwasm/errors"
)

// fakeMemory is a flat byte array standing in for guest linear memory.
type fakeMemory struct {
	data []byte
}

func (m *fakeMemory) Read(offset, length uint32) ([]byte, error) {
	if int(offset)+int(length) > len(m.data) {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return m.data[offset : offset+length], nil
}

func (m *fakeMemory) Write(offset uint32, b []byte) error {
	if int(offset)+len(b) > len(m.data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(b))
	}
	copy(m.data[offset:], b)
	return nil
}

func (m *fakeMemory) ReadU8(offset uint32) (uint8, error) {
	b, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *fakeMemory) ReadU16(offset uint32) (uint16, error) {
	b, err := m.Read(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (m *fakeMemory) ReadU32(offset uint32) (uint32, error) {
	b, err := m.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *fakeMemory) ReadU64(offset uint32) (uint64, error) {
	b, err := m.Read(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *fakeMemory) WriteU8(offset uint32, v uint8) error { return m.Write(offset, []byte{v}) }

func (m *fakeMemory) WriteU16(offset uint32, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return m.Write(offset, b[:])
}

func (m *fakeMemory) WriteU32(offset uint32, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return m.Write(offset, b[:])
}

func (m *fakeMemory) WriteU64(offset uint32, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return m.Write(offset, b[:])
}

// fakeForeign scripts foreign calls for registry and marshaling tests.
// Unscripted symbols return 1 so refcounting calls succeed silently.
type fakeForeign struct {
	mu        sync.Mutex
	mem       *fakeMemory
	callbacks *engine.CallbackTable
	handlers  map[string]func(args []uint64) uint64
	calls     map[string][]uint64 // symbol -> first arg per call
	nextAlloc uint32
	closed    bool
}

func newFakeForeign() *fakeForeign {
	return &fakeForeign{
		mem:       &fakeMemory{data: make([]byte, 1<<16)},
		callbacks: engine.NewCallbackTable(),
		handlers:  make(map[string]func(args []uint64) uint64),
		calls:     make(map[string][]uint64),
		nextAlloc: 0x8000,
	}
}

func (f *fakeForeign) Call(_ context.Context, name string, args ...uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, hberrors.Closed(name)
	}
	var first uint64
	if len(args) > 0 {
		first = args[0]
	}
	f.calls[name] = append(f.calls[name], first)

	if h, ok := f.handlers[name]; ok {
		return h(args), nil
	}
	return 1, nil
}

func (f *fakeForeign) Memory() hbwasm.Memory { return f.mem }

func (f *fakeForeign) Alloc(_ context.Context, size uint32) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ptr := f.nextAlloc
	f.nextAlloc += (size + 7) &^ 7
	return ptr, nil
}

func (f *fakeForeign) Free(_ context.Context, _ uint32) {}

func (f *fakeForeign) Callbacks() *engine.CallbackTable { return f.callbacks }

func (f *fakeForeign) Close(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeForeign) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[name])
}

func (f *fakeForeign) callsWith(name string, arg uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.calls[name] {
		if a == arg {
			n++
		}
	}
	return n
}

func (f *fakeForeign) handle(name string, h func(args []uint64) uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = h
}

func TestBlobWrapperIdentity(t *testing.T) {
	ctx := context.Background()
	fake := newFakeForeign()
	lib := NewLibrary(fake)

	// The foreign side hands out the same handle twice: the second create
	// finds a prior reference alive and returns it re-referenced.
	fake.handle("hbw_blob_create", func([]uint64) uint64 { return 0x1000 })

	b1, err := lib.NewBlob(ctx, []byte("font-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	b2, err := lib.NewBlob(ctx, []byte("font-bytes"))
	if err != nil {
		t.Fatal(err)
	}

	if b1 != b2 {
		t.Error("same handle must produce the same wrapper")
	}
	// The redundant reference from the second create is released exactly once.
	if got := fake.callsWith("hb_blob_destroy", 0x1000); got != 1 {
		t.Errorf("compensating destroys = %d, want 1", got)
	}
	if lib.blobs.Len() != 1 {
		t.Errorf("registry holds %d wrappers, want 1", lib.blobs.Len())
	}

	runtime.KeepAlive(b1)
}

func TestNullHandleCreate(t *testing.T) {
	ctx := context.Background()
	fake := newFakeForeign()
	lib := NewLibrary(fake)

	fake.handle("hbw_blob_create", func([]uint64) uint64 { return 0 })

	_, err := lib.NewBlob(ctx, []byte("x"))
	if err == nil {
		t.Fatal("expected error for null handle")
	}
	var herr *hberrors.Error
	if !errors.As(err, &herr) || herr.Kind != hberrors.KindInvalidHandle {
		t.Errorf("error = %v, want invalid_handle", err)
	}
	if lib.blobs.Len() != 0 {
		t.Errorf("failed create left %d registry entries", lib.blobs.Len())
	}
	if fake.callCount("hb_blob_destroy") != 0 {
		t.Error("null handle must not be destroyed")
	}
}

func TestBlobReleaseOnCollection(t *testing.T) {
	ctx := context.Background()
	fake := newFakeForeign()
	lib := NewLibrary(fake)

	fake.handle("hbw_blob_create", func([]uint64) uint64 { return 0x2000 })

	func() {
		b, err := lib.NewBlob(ctx, []byte("ephemeral"))
		if err != nil {
			t.Fatal(err)
		}
		runtime.KeepAlive(b)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for fake.callsWith("hb_blob_destroy", 0x2000) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for collection to release the handle")
		}
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	if got := fake.callsWith("hb_blob_destroy", 0x2000); got != 1 {
		t.Errorf("destroys = %d, want exactly 1", got)
	}
}

func TestCloseDisarmsRegistries(t *testing.T) {
	ctx := context.Background()
	fake := newFakeForeign()
	lib := NewLibrary(fake)

	fake.handle("hbw_blob_create", func([]uint64) uint64 { return 0x3000 })

	b, err := lib.NewBlob(ctx, []byte("held"))
	if err != nil {
		t.Fatal(err)
	}

	if err := lib.Close(ctx); err != nil {
		t.Fatal(err)
	}
	// Close is idempotent.
	if err := lib.Close(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := lib.NewBlob(ctx, []byte("late")); err == nil {
		t.Error("create after close must fail")
	}

	// Dropping the wrapper after close must not reach the dead instance.
	destroysBefore := fake.callCount("hb_blob_destroy")
	b = nil
	_ = b
	for range 5 {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if got := fake.callCount("hb_blob_destroy"); got != destroysBefore {
		t.Errorf("destroy fired after close: %d -> %d", destroysBefore, got)
	}

	// The Library owns the foreign instance and closes it.
	fake.mu.Lock()
	closed := fake.closed
	fake.mu.Unlock()
	if !closed {
		t.Error("Close must close the foreign instance")
	}
}

func TestLanguageInterning(t *testing.T) {
	ctx := context.Background()
	fake := newFakeForeign()
	lib := NewLibrary(fake)

	const langPtr = 0x4000
	const namePtr = 0x4100
	copy(fake.mem.data[namePtr:], "en-us\x00")

	fake.handle("hb_language_from_string", func([]uint64) uint64 { return langPtr })
	fake.handle("hb_language_to_string", func([]uint64) uint64 { return namePtr })

	l1, err := lib.LanguageFromString(ctx, "en_US")
	if err != nil {
		t.Fatal(err)
	}
	l2, err := lib.LanguageFromString(ctx, "EN-US")
	if err != nil {
		t.Fatal(err)
	}

	if l1 != l2 {
		t.Error("equal language pointers must intern to the same value")
	}
	if l1.String() != "en-us" {
		t.Errorf("canonical name = %q", l1.String())
	}
	// The canonical name is fetched once; the intern map serves the rest.
	if got := fake.callCount("hb_language_to_string"); got != 1 {
		t.Errorf("to_string calls = %d, want 1", got)
	}
}

func TestBufferShapeFlow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeForeign()
	lib := NewLibrary(fake)

	const bufPtr = 0x5000
	fake.handle("hb_buffer_create", func([]uint64) uint64 { return bufPtr })
	fake.handle("hb_face_create", func([]uint64) uint64 { return 0x5100 })
	fake.handle("hb_font_create", func([]uint64) uint64 { return 0x5200 })
	fake.handle("hbw_blob_create", func([]uint64) uint64 { return 0x5300 })
	fake.handle("hb_buffer_get_length", func([]uint64) uint64 { return 2 })

	// Glyph info array: two records at a fixed location.
	const infosPtr = 0x6000
	writeGlyphRecord := func(base uint32, codepoint, cluster uint32) {
		binary.LittleEndian.PutUint32(fake.mem.data[base:], codepoint)
		binary.LittleEndian.PutUint32(fake.mem.data[base+4:], 0)
		binary.LittleEndian.PutUint32(fake.mem.data[base+8:], cluster)
	}
	writeGlyphRecord(infosPtr, 36, 0)
	writeGlyphRecord(infosPtr+20, 37, 1)

	fake.handle("hb_buffer_get_glyph_infos", func(args []uint64) uint64 {
		lenPtr := uint32(args[1])
		binary.LittleEndian.PutUint32(fake.mem.data[lenPtr:], 2)
		return infosPtr
	})

	blob, err := lib.NewBlob(ctx, []byte("font"))
	if err != nil {
		t.Fatal(err)
	}
	face, err := lib.NewFace(ctx, blob, 0)
	if err != nil {
		t.Fatal(err)
	}
	font, err := lib.NewFont(ctx, face)
	if err != nil {
		t.Fatal(err)
	}

	buf, err := lib.NewBuffer(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.AddString(ctx, "hi"); err != nil {
		t.Fatal(err)
	}
	if err := buf.SetDirection(ctx, DirectionLTR); err != nil {
		t.Fatal(err)
	}
	if err := buf.GuessSegmentProperties(ctx); err != nil {
		t.Fatal(err)
	}
	if err := lib.Shape(ctx, font, buf, nil); err != nil {
		t.Fatal(err)
	}

	if got := fake.callsWith("hb_shape", 0x5200); got != 1 {
		t.Errorf("shape calls with font handle = %d", got)
	}

	infos, err := buf.GlyphInfos(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d glyph infos", len(infos))
	}
	if infos[0].Codepoint != 36 || infos[1].Cluster != 1 {
		t.Errorf("decoded infos = %+v", infos)
	}
}

func TestDirection(t *testing.T) {
	if DirectionFromString("ltr") != DirectionLTR {
		t.Error("ltr parse")
	}
	if DirectionFromString("Right-to-left") != DirectionRTL {
		t.Error("parse goes by first letter")
	}
	if DirectionFromString("") != DirectionInvalid {
		t.Error("empty parse")
	}
	if DirectionLTR.Reverse() != DirectionRTL {
		t.Error("reverse ltr")
	}
	if DirectionTTB.Reverse() != DirectionBTT {
		t.Error("reverse ttb")
	}
	if !DirectionLTR.IsHorizontal() || DirectionLTR.IsVertical() {
		t.Error("ltr axis")
	}
	if !DirectionTTB.IsForward() || !DirectionBTT.IsBackward() {
		t.Error("ttb/btt orientation")
	}
	if DirectionInvalid.IsValid() {
		t.Error("invalid must not validate")
	}
}

// newFakeFont wires the create chain so tests can get a Font without a real
// module.
func newFakeFont(t *testing.T, fake *fakeForeign, lib *Library) *Font {
	t.Helper()
	ctx := context.Background()

	fake.handle("hbw_blob_create", func([]uint64) uint64 { return 0x100 })
	fake.handle("hb_face_create", func([]uint64) uint64 { return 0x200 })
	fake.handle("hb_font_create", func([]uint64) uint64 { return 0x300 })

	blob, err := lib.NewBlob(ctx, []byte("font"))
	if err != nil {
		t.Fatal(err)
	}
	face, err := lib.NewFace(ctx, blob, 0)
	if err != nil {
		t.Fatal(err)
	}
	font, err := lib.NewFont(ctx, face)
	if err != nil {
		t.Fatal(err)
	}
	return font
}

func TestFontGlyphQueries(t *testing.T) {
	ctx := context.Background()
	fake := newFakeForeign()
	lib := NewLibrary(fake)
	font := newFakeFont(t, fake, lib)

	writeOut := func(ptr uint32, v uint32) {
		binary.LittleEndian.PutUint32(fake.mem.data[ptr:], v)
	}

	fake.handle("hb_font_get_variation_glyph", func(args []uint64) uint64 {
		writeOut(uint32(args[3]), 77)
		return 1
	})
	fake.handle("hb_font_glyph_from_string", func(args []uint64) uint64 {
		writeOut(uint32(args[3]), 42)
		return 1
	})
	fake.handle("hb_font_get_glyph_contour_point", func(args []uint64) uint64 {
		writeOut(uint32(args[3]), 640)
		y := int32(-64)
		writeOut(uint32(args[4]), uint32(y))
		return 1
	})
	fake.handle("hb_font_get_glyph_v_kerning", func([]uint64) uint64 {
		k := int32(-128)
		return uint64(uint32(k))
	})
	fake.handle("hb_font_get_glyph_h_origin", func([]uint64) uint64 { return 0 })
	fake.handle("hb_font_add_glyph_origin_for_direction", func(args []uint64) uint64 {
		// In-out coordinate pair: shift both by the origin.
		xPtr, yPtr := uint32(args[3]), uint32(args[4])
		writeOut(xPtr, binary.LittleEndian.Uint32(fake.mem.data[xPtr:])+5)
		writeOut(yPtr, binary.LittleEndian.Uint32(fake.mem.data[yPtr:])+7)
		return 0
	})

	if g, ok, err := font.VariationGlyph(ctx, 'A', 0xFE00); err != nil || !ok || g != 77 {
		t.Errorf("VariationGlyph = %d, %v, %v", g, ok, err)
	}
	if g, ok, err := font.GlyphFromString(ctx, "gid42"); err != nil || !ok || g != 42 {
		t.Errorf("GlyphFromString = %d, %v, %v", g, ok, err)
	}
	if x, y, ok, err := font.GlyphContourPoint(ctx, 42, 0); err != nil || !ok || x != 640 || y != -64 {
		t.Errorf("GlyphContourPoint = %d, %d, %v, %v", x, y, ok, err)
	}
	if k, err := font.GlyphVKerning(ctx, 1, 2); err != nil || k != -128 {
		t.Errorf("GlyphVKerning = %d, %v", k, err)
	}
	if _, _, ok, err := font.GlyphHOrigin(ctx, 42); err != nil || ok {
		t.Errorf("GlyphHOrigin without origin data: ok=%v, err=%v", ok, err)
	}
	x, y, err := font.AddGlyphOriginForDirection(ctx, 42, DirectionTTB, 100, 200)
	if err != nil || x != 105 || y != 207 {
		t.Errorf("AddGlyphOriginForDirection = %d, %d, %v", x, y, err)
	}

	runtime.KeepAlive(font)
}

func TestSetIteration(t *testing.T) {
	ctx := context.Background()
	fake := newFakeForeign()
	lib := NewLibrary(fake)

	fake.handle("hb_set_create", func([]uint64) uint64 { return 0x400 })

	// Contents {10, 11}: step handlers walk the pair off the in-out slot.
	fake.handle("hb_set_next", func(args []uint64) uint64 {
		ptr := uint32(args[1])
		switch binary.LittleEndian.Uint32(fake.mem.data[ptr:]) {
		case SetValueInvalid:
			binary.LittleEndian.PutUint32(fake.mem.data[ptr:], 10)
		case 10:
			binary.LittleEndian.PutUint32(fake.mem.data[ptr:], 11)
		default:
			return 0
		}
		return 1
	})
	fake.handle("hb_set_previous", func(args []uint64) uint64 {
		ptr := uint32(args[1])
		if binary.LittleEndian.Uint32(fake.mem.data[ptr:]) != SetValueInvalid {
			return 0
		}
		binary.LittleEndian.PutUint32(fake.mem.data[ptr:], 11)
		return 1
	})
	fake.handle("hb_set_previous_range", func(args []uint64) uint64 {
		firstPtr, lastPtr := uint32(args[1]), uint32(args[2])
		if binary.LittleEndian.Uint32(fake.mem.data[firstPtr:]) != SetValueInvalid {
			return 0
		}
		binary.LittleEndian.PutUint32(fake.mem.data[firstPtr:], 10)
		binary.LittleEndian.PutUint32(fake.mem.data[lastPtr:], 11)
		return 1
	})

	s, err := lib.NewSet(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var got []uint32
	for v, ok, err := s.Next(ctx, SetValueInvalid); ; v, ok, err = s.Next(ctx, v) {
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		got = append(got, v)
	}
	if len(got) != 2 || got[0] != 10 || got[1] != 11 {
		t.Errorf("Next walk = %v", got)
	}

	if v, ok, err := s.Previous(ctx, SetValueInvalid); err != nil || !ok || v != 11 {
		t.Errorf("Previous = %d, %v, %v", v, ok, err)
	}
	if lo, hi, ok, err := s.PreviousRange(ctx, SetValueInvalid); err != nil || !ok || lo != 10 || hi != 11 {
		t.Errorf("PreviousRange = %d..%d, %v, %v", lo, hi, ok, err)
	}

	runtime.KeepAlive(s)
}

func TestSegmentPropertiesCompare(t *testing.T) {
	ctx := context.Background()
	fake := newFakeForeign()
	lib := NewLibrary(fake)

	// Compare the raw struct images byte for byte, like the guest would.
	fake.handle("hb_segment_properties_equal", func(args []uint64) uint64 {
		a, b := uint32(args[0]), uint32(args[1])
		for i := uint32(0); i < abi.SegmentPropertiesSize; i++ {
			if fake.mem.data[a+i] != fake.mem.data[b+i] {
				return 0
			}
		}
		return 1
	})
	fake.handle("hb_segment_properties_hash", func(args []uint64) uint64 {
		ptr := uint32(args[0])
		return uint64(binary.LittleEndian.Uint32(fake.mem.data[ptr:]) * 31)
	})

	ltr := SegmentProperties{Direction: DirectionLTR, Script: ScriptLatin}
	rtl := SegmentProperties{Direction: DirectionRTL, Script: ScriptArabic}

	if eq, err := lib.SegmentPropertiesEqual(ctx, ltr, ltr); err != nil || !eq {
		t.Errorf("equal props: eq=%v, err=%v", eq, err)
	}
	if eq, err := lib.SegmentPropertiesEqual(ctx, ltr, rtl); err != nil || eq {
		t.Errorf("distinct props: eq=%v, err=%v", eq, err)
	}
	if h, err := lib.SegmentPropertiesHash(ctx, ltr); err != nil || h != uint32(DirectionLTR)*31 {
		t.Errorf("hash = %d, %v", h, err)
	}
}

func TestOTTagFromLanguage(t *testing.T) {
	ctx := context.Background()
	fake := newFakeForeign()
	lib := NewLibrary(fake)

	const langPtr = 0x500
	const namePtr = 0x540
	copy(fake.mem.data[namePtr:], "tr\x00")
	fake.handle("hb_language_from_string", func([]uint64) uint64 { return langPtr })
	fake.handle("hb_language_to_string", func([]uint64) uint64 { return namePtr })
	fake.handle("hb_ot_tag_from_language", func(args []uint64) uint64 {
		if args[0] != langPtr {
			return 0
		}
		return uint64(uint32(abi.TagFromString("TRK ")))
	})

	lang, err := lib.LanguageFromString(ctx, "tr")
	if err != nil {
		t.Fatal(err)
	}
	tag, err := lib.OTTagFromLanguage(ctx, lang)
	if err != nil {
		t.Fatal(err)
	}
	if tag.String() != "TRK " {
		t.Errorf("tag = %q", tag.String())
	}
}

func TestBlobWriteData(t *testing.T) {
	ctx := context.Background()
	fake := newFakeForeign()
	lib := NewLibrary(fake)

	fake.handle("hbw_blob_create", func([]uint64) uint64 { return 0x600 })

	const dataPtr = 0x700
	copy(fake.mem.data[dataPtr:], "0123456789abcdef")
	writable := true
	fake.handle("hb_blob_get_data_writable", func(args []uint64) uint64 {
		if !writable {
			return 0
		}
		lenPtr := uint32(args[1])
		binary.LittleEndian.PutUint32(fake.mem.data[lenPtr:], 16)
		return dataPtr
	})

	blob, err := lib.NewBlob(ctx, []byte("0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}

	if err := blob.WriteData(ctx, 4, []byte("XY")); err != nil {
		t.Fatal(err)
	}
	if got := string(fake.mem.data[dataPtr : dataPtr+8]); got != "0123XY67" {
		t.Errorf("blob bytes = %q", got)
	}

	// Writes past the blob's length are refused before touching memory.
	if err := blob.WriteData(ctx, 15, []byte("XY")); err == nil {
		t.Error("out of range write must fail")
	}

	// An immutable blob yields no writable pointer.
	writable = false
	if err := blob.WriteData(ctx, 0, []byte("Z")); err == nil {
		t.Error("write to immutable blob must fail")
	}

	runtime.KeepAlive(blob)
}

func TestFaceForTablesNullHandle(t *testing.T) {
	ctx := context.Background()
	fake := newFakeForeign()
	lib := NewLibrary(fake)

	fake.handle("hbw_face_create_for_tables", func([]uint64) uint64 { return 0 })

	_, err := lib.NewFaceForTables(ctx, func(*Face, abi.Tag) *Blob { return nil })
	if err == nil {
		t.Fatal("expected error for null face handle")
	}
	// The failed create must retire its callback token.
	if got := fake.callbacks.Len(); got != 0 {
		t.Errorf("leaked %d callback tokens", got)
	}
	if lib.faces.Len() != 0 {
		t.Errorf("failed create left %d registry entries", lib.faces.Len())
	}
}

func TestFontFuncsCallbackDispatch(t *testing.T) {
	ctx := context.Background()
	fake := newFakeForeign()
	lib := NewLibrary(fake)

	fake.handle("hb_font_funcs_create", func([]uint64) uint64 { return 0x7000 })
	fake.handle("hb_font_create", func([]uint64) uint64 { return 0x7100 })
	fake.handle("hb_face_create", func([]uint64) uint64 { return 0x7200 })
	fake.handle("hbw_blob_create", func([]uint64) uint64 { return 0x7300 })

	var installedToken uint64
	fake.handle("hbw_font_funcs_set_nominal_glyph_func", func(args []uint64) uint64 {
		installedToken = args[1]
		return 0
	})

	blob, err := lib.NewBlob(ctx, []byte("font"))
	if err != nil {
		t.Fatal(err)
	}
	face, err := lib.NewFace(ctx, blob, 0)
	if err != nil {
		t.Fatal(err)
	}
	font, err := lib.NewFont(ctx, face)
	if err != nil {
		t.Fatal(err)
	}

	ff, err := lib.NewFontFuncs(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var seenFont *Font
	err = ff.SetNominalGlyphFunc(ctx, func(f *Font, unicode rune) (Glyph, bool) {
		seenFont = f
		return Glyph(uint32(unicode) + 100), true
	})
	if err != nil {
		t.Fatal(err)
	}
	if installedToken == 0 {
		t.Fatal("no token passed to the guest setter")
	}

	// Simulate the guest trampoline: (token) + (font, unicode, glyph_out).
	const outPtr = 0x7400
	cb, ok := fake.callbacks.Lookup(engine.Token(uint32(installedToken)))
	if !ok {
		t.Fatal("token not registered")
	}
	ret := cb(ctx, fake.mem, []uint64{0x7100, 'A', outPtr})
	if ret != 1 {
		t.Fatalf("callback returned %d", ret)
	}
	if seenFont != font {
		t.Error("callback must resolve the canonical font wrapper")
	}
	glyph := binary.LittleEndian.Uint32(fake.mem.data[outPtr:])
	if glyph != 'A'+100 {
		t.Errorf("glyph out = %d", glyph)
	}

	runtime.KeepAlive(font)
}
