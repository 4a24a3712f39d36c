package hb

import (
	"context"

	hbwasm "github.com/glyphlab/hbwasm"
	"github.com/glyphlab/hbwasm/abi"
	"github.com/glyphlab/hbwasm/engine"
	hberrors "github.com/glyphlab/hbwasm/errors"
	"github.com/glyphlab/hbwasm/handle"
)

// Face wraps hb_face_t, one typeface within a font file.
type Face struct {
	lib *Library
	ptr handle.Ptr
}

// NewFace creates a face from a blob. index selects the face within a
// collection file; 0 for single-face files.
func (l *Library) NewFace(ctx context.Context, blob *Blob, index uint32) (*Face, error) {
	raw, err := l.call(ctx, "hb_face_create", uint64(blob.ptr), uint64(index))
	if err != nil {
		return nil, err
	}
	return l.wrapFace(raw)
}

// EmptyFace returns the canonical empty face.
func (l *Library) EmptyFace(ctx context.Context) (*Face, error) {
	raw, err := l.call(ctx, "hb_face_get_empty")
	if err != nil {
		return nil, err
	}
	if _, err := l.call(ctx, "hb_face_reference", raw); err != nil {
		return nil, err
	}
	return l.wrapFace(raw)
}

// ReferenceTableFunc loads one font table on demand. Return nil for tables
// the face does not have. The returned blob is referenced on the guest side;
// the callback must not call back into the Library.
type ReferenceTableFunc func(face *Face, tag abi.Tag) *Blob

// NewFaceForTables creates a face whose tables are supplied by a Go callback
// instead of a blob.
func (l *Library) NewFaceForTables(ctx context.Context, fn ReferenceTableFunc) (*Face, error) {
	table := l.f.Callbacks()

	var token engine.Token
	token = table.Register(func(_ context.Context, _ hbwasm.Memory, args []uint64) uint64 {
		facePtr := handle.Ptr(uint32(args[0]))
		tag := abi.Tag(uint32(args[1]))

		// Resolve the canonical wrapper; fall back to a transient view if the
		// wrapper has been collected while the guest face is still in use.
		face, ok := l.faces.Get(facePtr)
		if !ok {
			face = &Face{lib: l, ptr: facePtr}
		}
		blob := fn(face, tag)
		if blob == nil {
			return 0
		}
		return uint64(blob.ptr)
	})

	raw, err := l.call(ctx, "hbw_face_create_for_tables", uint64(uint32(token)))
	if err != nil {
		table.Drop(token)
		return nil, err
	}
	face, err := l.wrapFace(raw)
	if err != nil {
		// A null face never took ownership of the token.
		table.Drop(token)
		return nil, err
	}
	// The shim attaches a destroy notify that reports back through the hbw
	// destroy trampoline, which retires the token when the face dies.
	return face, nil
}

// Index returns the face index this face was created with.
func (f *Face) Index(ctx context.Context) (uint32, error) {
	v, err := f.lib.call(ctx, "hb_face_get_index", uint64(f.ptr))
	return uint32(v), err
}

func (f *Face) SetIndex(ctx context.Context, index uint32) error {
	_, err := f.lib.call(ctx, "hb_face_set_index", uint64(f.ptr), uint64(index))
	return err
}

// UPEM returns units per em.
func (f *Face) UPEM(ctx context.Context) (uint32, error) {
	v, err := f.lib.call(ctx, "hb_face_get_upem", uint64(f.ptr))
	return uint32(v), err
}

func (f *Face) SetUPEM(ctx context.Context, upem uint32) error {
	_, err := f.lib.call(ctx, "hb_face_set_upem", uint64(f.ptr), uint64(upem))
	return err
}

func (f *Face) GlyphCount(ctx context.Context) (uint32, error) {
	v, err := f.lib.call(ctx, "hb_face_get_glyph_count", uint64(f.ptr))
	return uint32(v), err
}

func (f *Face) SetGlyphCount(ctx context.Context, n uint32) error {
	_, err := f.lib.call(ctx, "hb_face_set_glyph_count", uint64(f.ptr), uint64(n))
	return err
}

func (f *Face) IsImmutable(ctx context.Context) (bool, error) {
	v, err := f.lib.call(ctx, "hb_face_is_immutable", uint64(f.ptr))
	return v != 0, err
}

func (f *Face) MakeImmutable(ctx context.Context) error {
	_, err := f.lib.call(ctx, "hb_face_make_immutable", uint64(f.ptr))
	return err
}

// ReferenceBlob returns the blob underlying the face.
func (f *Face) ReferenceBlob(ctx context.Context) (*Blob, error) {
	raw, err := f.lib.call(ctx, "hb_face_reference_blob", uint64(f.ptr))
	if err != nil {
		return nil, err
	}
	return f.lib.wrapBlob(raw)
}

// ReferenceTable returns one font table as a blob. Missing tables yield the
// empty blob.
func (f *Face) ReferenceTable(ctx context.Context, tag abi.Tag) (*Blob, error) {
	raw, err := f.lib.call(ctx, "hb_face_reference_table",
		uint64(f.ptr), uint64(uint32(tag)))
	if err != nil {
		return nil, err
	}
	return f.lib.wrapBlob(raw)
}

// TableTags lists the tags of all tables in the face.
func (f *Face) TableTags(ctx context.Context) ([]abi.Tag, error) {
	var tags []abi.Tag
	err := f.lib.withScratch(ctx, 4, func(countPtr uint32) error {
		total, err := f.lib.call(ctx, "hb_face_get_table_tags",
			uint64(f.ptr), 0, uint64(countPtr), 0)
		if err != nil {
			return err
		}
		if total == 0 {
			return nil
		}

		n := uint32(total)
		arrPtr, err := f.lib.f.Alloc(ctx, n*4)
		if err != nil {
			return err
		}
		defer f.lib.f.Free(ctx, arrPtr)

		if err := f.lib.mem().WriteU32(countPtr, n); err != nil {
			return err
		}
		if _, err := f.lib.call(ctx, "hb_face_get_table_tags",
			uint64(f.ptr), 0, uint64(countPtr), uint64(arrPtr)); err != nil {
			return err
		}
		got, err := f.lib.mem().ReadU32(countPtr)
		if err != nil {
			return err
		}
		raw, err := abi.ReadU32Array(f.lib.mem(), arrPtr, got)
		if err != nil {
			return err
		}
		tags = make([]abi.Tag, len(raw))
		for i, t := range raw {
			tags[i] = abi.Tag(t)
		}
		return nil
	})
	return tags, err
}

// CollectUnicodes adds every codepoint the face supports to out.
func (f *Face) CollectUnicodes(ctx context.Context, out *Set) error {
	_, err := f.lib.call(ctx, "hb_face_collect_unicodes",
		uint64(f.ptr), uint64(out.ptr))
	return err
}

// CollectVariationSelectors adds the face's variation selectors to out.
func (f *Face) CollectVariationSelectors(ctx context.Context, out *Set) error {
	_, err := f.lib.call(ctx, "hb_face_collect_variation_selectors",
		uint64(f.ptr), uint64(out.ptr))
	return err
}

// CollectVariationUnicodes adds the codepoints supported under a variation
// selector to out.
func (f *Face) CollectVariationUnicodes(ctx context.Context, selector rune, out *Set) error {
	_, err := f.lib.call(ctx, "hb_face_collect_variation_unicodes",
		uint64(f.ptr), uint64(uint32(selector)), uint64(out.ptr))
	return err
}

// NewFaceBuilder creates an empty face that tables can be added to.
func (l *Library) NewFaceBuilder(ctx context.Context) (*Face, error) {
	raw, err := l.call(ctx, "hb_face_builder_create")
	if err != nil {
		return nil, err
	}
	return l.wrapFace(raw)
}

// BuilderAddTable adds a table to a face created with NewFaceBuilder.
func (f *Face) BuilderAddTable(ctx context.Context, tag abi.Tag, blob *Blob) error {
	ok, err := f.lib.call(ctx, "hb_face_builder_add_table",
		uint64(f.ptr), uint64(uint32(tag)), uint64(blob.ptr))
	if err != nil {
		return err
	}
	if ok == 0 {
		return hberrors.InvalidData(hberrors.PhaseCall, "face builder rejected table "+tag.String())
	}
	return nil
}
