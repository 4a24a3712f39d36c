package hb

import (
	"context"
	"math"

	"github.com/glyphlab/hbwasm/abi"
)

// OTVarHasData reports whether the face has variation axes.
func (f *Face) OTVarHasData(ctx context.Context) (bool, error) {
	v, err := f.lib.call(ctx, "hb_ot_var_has_data", uint64(f.ptr))
	return v != 0, err
}

// OTVarAxisCount returns the number of variation axes.
func (f *Face) OTVarAxisCount(ctx context.Context) (uint32, error) {
	v, err := f.lib.call(ctx, "hb_ot_var_get_axis_count", uint64(f.ptr))
	return uint32(v), err
}

// OTVarAxes returns all variation axes.
func (f *Face) OTVarAxes(ctx context.Context) ([]abi.VarAxisInfo, error) {
	const page = 8

	scratch, err := f.lib.f.Alloc(ctx, 4+page*abi.VarAxisInfoSize)
	if err != nil {
		return nil, err
	}
	defer f.lib.f.Free(ctx, scratch)
	countPtr, arrPtr := scratch, scratch+4

	mem := f.lib.mem()
	var out []abi.VarAxisInfo
	for start := uint32(0); ; {
		if err := mem.WriteU32(countPtr, page); err != nil {
			return nil, err
		}
		total, err := f.lib.call(ctx, "hb_ot_var_get_axis_infos",
			uint64(f.ptr), uint64(start), uint64(countPtr), uint64(arrPtr))
		if err != nil {
			return nil, err
		}
		got, err := mem.ReadU32(countPtr)
		if err != nil {
			return nil, err
		}
		if got > 0 {
			axes, err := abi.ReadVarAxisInfos(mem, arrPtr, got)
			if err != nil {
				return nil, err
			}
			out = append(out, axes...)
		}
		start += got
		if got == 0 || start >= uint32(total) {
			return out, nil
		}
	}
}

// OTVarNormalizeVariations converts variation settings to normalized 2.14
// coordinates, one per axis.
func (f *Face) OTVarNormalizeVariations(ctx context.Context, variations []abi.Variation) ([]int32, error) {
	axisCount, err := f.OTVarAxisCount(ctx)
	if err != nil {
		return nil, err
	}
	if axisCount == 0 {
		return nil, nil
	}

	varSize := uint32(len(variations)) * abi.VariationSize
	scratch, err := f.lib.f.Alloc(ctx, varSize+axisCount*4)
	if err != nil {
		return nil, err
	}
	defer f.lib.f.Free(ctx, scratch)
	coordsPtr := scratch + varSize

	if len(variations) > 0 {
		if err := abi.WriteVariations(f.lib.mem(), scratch, variations); err != nil {
			return nil, err
		}
	}
	if _, err := f.lib.call(ctx, "hb_ot_var_normalize_variations",
		uint64(f.ptr), uint64(scratch), uint64(uint32(len(variations))),
		uint64(coordsPtr), uint64(axisCount)); err != nil {
		return nil, err
	}

	raw, err := abi.ReadU32Array(f.lib.mem(), coordsPtr, axisCount)
	if err != nil {
		return nil, err
	}
	coords := make([]int32, len(raw))
	for i, c := range raw {
		coords[i] = int32(c)
	}
	return coords, nil
}

// OTVarNormalizeCoords converts design-space coordinates to normalized 2.14
// coordinates. coords must have one entry per axis.
func (f *Face) OTVarNormalizeCoords(ctx context.Context, designCoords []float32) ([]int32, error) {
	if len(designCoords) == 0 {
		return nil, nil
	}
	n := uint32(len(designCoords))

	scratch, err := f.lib.f.Alloc(ctx, n*8)
	if err != nil {
		return nil, err
	}
	defer f.lib.f.Free(ctx, scratch)
	normPtr := scratch + n*4

	mem := f.lib.mem()
	for i, c := range designCoords {
		if err := mem.WriteU32(scratch+uint32(i)*4, math.Float32bits(c)); err != nil {
			return nil, err
		}
	}
	if _, err := f.lib.call(ctx, "hb_ot_var_normalize_coords",
		uint64(f.ptr), uint64(n), uint64(scratch), uint64(normPtr)); err != nil {
		return nil, err
	}

	raw, err := abi.ReadU32Array(mem, normPtr, n)
	if err != nil {
		return nil, err
	}
	coords := make([]int32, len(raw))
	for i, c := range raw {
		coords[i] = int32(c)
	}
	return coords, nil
}
