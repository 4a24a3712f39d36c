package hb

import (
	"context"

	"github.com/glyphlab/hbwasm/abi"
	"github.com/glyphlab/hbwasm/handle"
)

// ShapePlan wraps hb_shape_plan_t, a precomputed plan for shaping runs that
// share a face, segment properties and feature list.
type ShapePlan struct {
	lib *Library
	ptr handle.Ptr
}

// NewShapePlan creates a shape plan. cached reuses an interned plan when the
// same inputs have been planned before.
func (l *Library) NewShapePlan(ctx context.Context, face *Face, props SegmentProperties, features []abi.Feature, shapers []string, cached bool) (*ShapePlan, error) {
	sym := "hb_shape_plan_create"
	if cached {
		sym = "hb_shape_plan_create_cached"
	}

	var plan *ShapePlan
	err := l.withScratch(ctx, abi.SegmentPropertiesSize, func(propsPtr uint32) error {
		if err := abi.WriteSegmentProperties(l.mem(), propsPtr, l.rawSegmentProperties(props)); err != nil {
			return err
		}

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

		shaperList, free, err := l.writeStringList(ctx, shapers)
		if err != nil {
			return err
		}
		defer free()

		raw, err := l.call(ctx, sym,
			uint64(face.ptr), uint64(propsPtr),
			uint64(featPtr), uint64(uint32(len(features))),
			uint64(shaperList))
		if err != nil {
			return err
		}
		plan, err = l.wrapShapePlan(raw)
		return err
	})
	return plan, err
}

// EmptyShapePlan returns the canonical empty plan. Executing it always
// reports failure.
func (l *Library) EmptyShapePlan(ctx context.Context) (*ShapePlan, error) {
	raw, err := l.call(ctx, "hb_shape_plan_get_empty")
	if err != nil {
		return nil, err
	}
	if _, err := l.call(ctx, "hb_shape_plan_reference", raw); err != nil {
		return nil, err
	}
	return l.wrapShapePlan(raw)
}

// Execute shapes a buffer with this plan. It returns false when the plan's
// shaper cannot handle the buffer.
func (p *ShapePlan) Execute(ctx context.Context, font *Font, buffer *Buffer, features []abi.Feature) (bool, error) {
	var featPtr uint32
	if len(features) > 0 {
		fp, err := p.lib.f.Alloc(ctx, uint32(len(features))*abi.FeatureSize)
		if err != nil {
			return false, err
		}
		defer p.lib.f.Free(ctx, fp)
		if err := abi.WriteFeatures(p.lib.mem(), fp, features); err != nil {
			return false, err
		}
		featPtr = fp
	}

	ok, err := p.lib.call(ctx, "hb_shape_plan_execute",
		uint64(p.ptr), uint64(font.ptr), uint64(buffer.ptr),
		uint64(featPtr), uint64(uint32(len(features))))
	return ok != 0, err
}

// Shaper returns the name of the shaper the plan selected.
func (p *ShapePlan) Shaper(ctx context.Context) (string, error) {
	raw, err := p.lib.call(ctx, "hb_shape_plan_get_shaper", uint64(p.ptr))
	if err != nil {
		return "", err
	}
	return p.lib.readCString(uint32(raw))
}
