package hb

import (
	"context"

	"github.com/glyphlab/hbwasm/abi"
	hberrors "github.com/glyphlab/hbwasm/errors"
)

// FeatureGlobalStart and FeatureGlobalEnd mark a feature applying to the
// whole buffer.
const (
	FeatureGlobalStart uint32 = 0
	FeatureGlobalEnd   uint32 = 0xffffffff
)

// FeatureFromString parses a feature like "kern", "-liga" or "aalt=2[3:5]"
// through the guest parser.
func (l *Library) FeatureFromString(ctx context.Context, s string) (abi.Feature, error) {
	var feature abi.Feature
	err := l.withCString(ctx, s, func(strPtr uint32) error {
		return l.withScratch(ctx, abi.FeatureSize, func(out uint32) error {
			ok, err := l.call(ctx, "hb_feature_from_string",
				uint64(strPtr), i32arg(-1), uint64(out))
			if err != nil {
				return err
			}
			if ok == 0 {
				return hberrors.InvalidData(hberrors.PhaseDecode, "unparseable feature "+s)
			}
			feature, err = abi.ReadFeature(l.mem(), out)
			return err
		})
	})
	return feature, err
}

// FeatureToString renders a feature in the canonical string form.
func (l *Library) FeatureToString(ctx context.Context, f abi.Feature) (string, error) {
	var out string
	err := l.withScratch(ctx, abi.FeatureSize+128, func(ptr uint32) error {
		if err := abi.WriteFeatures(l.mem(), ptr, []abi.Feature{f}); err != nil {
			return err
		}
		buf := ptr + abi.FeatureSize
		if _, err := l.call(ctx, "hb_feature_to_string",
			uint64(ptr), uint64(buf), 128); err != nil {
			return err
		}
		var err error
		out, err = l.readCString(buf)
		return err
	})
	return out, err
}

// Shape shapes the buffer with a font, replacing its codepoint content with
// positioned glyphs. features may be nil.
func (l *Library) Shape(ctx context.Context, font *Font, buffer *Buffer, features []abi.Feature) error {
	return l.shape(ctx, font, buffer, features, nil, false)
}

// ShapeFull is Shape with an explicit shaper preference list. An empty list
// means any shaper. It fails if no listed shaper can shape the buffer.
func (l *Library) ShapeFull(ctx context.Context, font *Font, buffer *Buffer, features []abi.Feature, shapers []string) error {
	return l.shape(ctx, font, buffer, features, shapers, true)
}

func (l *Library) shape(ctx context.Context, font *Font, buffer *Buffer, features []abi.Feature, shapers []string, full bool) error {
	var featPtr uint32
	if len(features) > 0 {
		size := uint32(len(features)) * abi.FeatureSize
		p, err := l.f.Alloc(ctx, size)
		if err != nil {
			return err
		}
		defer l.f.Free(ctx, p)
		if err := abi.WriteFeatures(l.mem(), p, features); err != nil {
			return err
		}
		featPtr = p
	}

	if !full {
		_, err := l.call(ctx, "hb_shape",
			uint64(font.ptr), uint64(buffer.ptr),
			uint64(featPtr), uint64(uint32(len(features))))
		return err
	}

	shaperList, free, err := l.writeStringList(ctx, shapers)
	if err != nil {
		return err
	}
	defer free()

	ok, err := l.call(ctx, "hb_shape_full",
		uint64(font.ptr), uint64(buffer.ptr),
		uint64(featPtr), uint64(uint32(len(features))),
		uint64(shaperList))
	if err != nil {
		return err
	}
	if ok == 0 {
		return hberrors.InvalidData(hberrors.PhaseCall, "no shaper could shape the buffer")
	}
	return nil
}

// ListShapers returns the shapers compiled into the module.
func (l *Library) ListShapers(ctx context.Context) ([]string, error) {
	arr, err := l.call(ctx, "hb_shape_list_shapers")
	if err != nil {
		return nil, err
	}
	return l.readCStringArray(uint32(arr))
}

// writeStringList builds a guest NULL-terminated char* array. The returned
// pointer is 0 for an empty list, which the shaping API treats as "any".
func (l *Library) writeStringList(ctx context.Context, items []string) (uint32, func(), error) {
	if len(items) == 0 {
		return 0, func() {}, nil
	}

	var ptrs []uint32
	var allocated []uint32
	free := func() {
		for _, p := range allocated {
			l.f.Free(ctx, p)
		}
	}

	for _, s := range items {
		p, err := l.f.Alloc(ctx, uint32(len(s))+1)
		if err != nil {
			free()
			return 0, nil, err
		}
		allocated = append(allocated, p)
		buf := make([]byte, len(s)+1)
		copy(buf, s)
		if err := l.mem().Write(p, buf); err != nil {
			free()
			return 0, nil, err
		}
		ptrs = append(ptrs, p)
	}

	arr, err := l.f.Alloc(ctx, uint32(len(ptrs)+1)*4)
	if err != nil {
		free()
		return 0, nil, err
	}
	allocated = append(allocated, arr)

	if err := abi.WriteU32Array(l.mem(), arr, append(ptrs, 0)); err != nil {
		free()
		return 0, nil, err
	}
	return arr, free, nil
}
