package hb

import (
	"context"

	"github.com/glyphlab/hbwasm/handle"
)

// SetValueInvalid is HB_SET_VALUE_INVALID, the iteration sentinel. Pass it to
// Next, Previous or PreviousRange to start from the respective end.
const SetValueInvalid uint32 = 0xffffffff

// Set wraps hb_set_t, an integer set used by collection and closure APIs.
type Set struct {
	lib *Library
	ptr handle.Ptr
}

// NewSet creates an empty set.
func (l *Library) NewSet(ctx context.Context) (*Set, error) {
	raw, err := l.call(ctx, "hb_set_create")
	if err != nil {
		return nil, err
	}
	return l.wrapSet(raw)
}

// EmptySet returns the canonical immutable empty set.
func (l *Library) EmptySet(ctx context.Context) (*Set, error) {
	raw, err := l.call(ctx, "hb_set_get_empty")
	if err != nil {
		return nil, err
	}
	if _, err := l.call(ctx, "hb_set_reference", raw); err != nil {
		return nil, err
	}
	return l.wrapSet(raw)
}

// NewSetFromValues creates a set holding the given values.
func (l *Library) NewSetFromValues(ctx context.Context, values ...uint32) (*Set, error) {
	s, err := l.NewSet(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := s.Add(ctx, v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) Clear(ctx context.Context) error {
	_, err := s.lib.call(ctx, "hb_set_clear", uint64(s.ptr))
	return err
}

func (s *Set) IsEmpty(ctx context.Context) (bool, error) {
	v, err := s.lib.call(ctx, "hb_set_is_empty", uint64(s.ptr))
	return v != 0, err
}

func (s *Set) Has(ctx context.Context, value uint32) (bool, error) {
	v, err := s.lib.call(ctx, "hb_set_has", uint64(s.ptr), uint64(value))
	return v != 0, err
}

func (s *Set) Add(ctx context.Context, value uint32) error {
	_, err := s.lib.call(ctx, "hb_set_add", uint64(s.ptr), uint64(value))
	return err
}

// AddRange adds the inclusive range [first, last].
func (s *Set) AddRange(ctx context.Context, first, last uint32) error {
	_, err := s.lib.call(ctx, "hb_set_add_range",
		uint64(s.ptr), uint64(first), uint64(last))
	return err
}

func (s *Set) Del(ctx context.Context, value uint32) error {
	_, err := s.lib.call(ctx, "hb_set_del", uint64(s.ptr), uint64(value))
	return err
}

func (s *Set) DelRange(ctx context.Context, first, last uint32) error {
	_, err := s.lib.call(ctx, "hb_set_del_range",
		uint64(s.ptr), uint64(first), uint64(last))
	return err
}

func (s *Set) IsEqual(ctx context.Context, other *Set) (bool, error) {
	v, err := s.lib.call(ctx, "hb_set_is_equal", uint64(s.ptr), uint64(other.ptr))
	return v != 0, err
}

// Assign replaces s's contents with other's.
func (s *Set) Assign(ctx context.Context, other *Set) error {
	_, err := s.lib.call(ctx, "hb_set_set", uint64(s.ptr), uint64(other.ptr))
	return err
}

func (s *Set) Union(ctx context.Context, other *Set) error {
	_, err := s.lib.call(ctx, "hb_set_union", uint64(s.ptr), uint64(other.ptr))
	return err
}

func (s *Set) Intersect(ctx context.Context, other *Set) error {
	_, err := s.lib.call(ctx, "hb_set_intersect", uint64(s.ptr), uint64(other.ptr))
	return err
}

func (s *Set) Subtract(ctx context.Context, other *Set) error {
	_, err := s.lib.call(ctx, "hb_set_subtract", uint64(s.ptr), uint64(other.ptr))
	return err
}

func (s *Set) SymmetricDifference(ctx context.Context, other *Set) error {
	_, err := s.lib.call(ctx, "hb_set_symmetric_difference",
		uint64(s.ptr), uint64(other.ptr))
	return err
}

// Population returns the number of values in the set.
func (s *Set) Population(ctx context.Context) (uint32, error) {
	v, err := s.lib.call(ctx, "hb_set_get_population", uint64(s.ptr))
	return uint32(v), err
}

// Min returns the smallest value, or false for an empty set.
func (s *Set) Min(ctx context.Context) (uint32, bool, error) {
	v, err := s.lib.call(ctx, "hb_set_get_min", uint64(s.ptr))
	if err != nil {
		return 0, false, err
	}
	if uint32(v) == SetValueInvalid {
		return 0, false, nil
	}
	return uint32(v), true, nil
}

// Max returns the largest value, or false for an empty set.
func (s *Set) Max(ctx context.Context) (uint32, bool, error) {
	v, err := s.lib.call(ctx, "hb_set_get_max", uint64(s.ptr))
	if err != nil {
		return 0, false, err
	}
	if uint32(v) == SetValueInvalid {
		return 0, false, nil
	}
	return uint32(v), true, nil
}

// Next returns the smallest value greater than current. Pass SetValueInvalid
// to get the first value.
func (s *Set) Next(ctx context.Context, current uint32) (uint32, bool, error) {
	return s.step(ctx, "hb_set_next", current)
}

// Previous returns the largest value smaller than current. Pass
// SetValueInvalid to get the last value.
func (s *Set) Previous(ctx context.Context, current uint32) (uint32, bool, error) {
	return s.step(ctx, "hb_set_previous", current)
}

func (s *Set) step(ctx context.Context, sym string, current uint32) (uint32, bool, error) {
	var value uint32
	var ok bool
	err := s.lib.withScratch(ctx, 4, func(ptr uint32) error {
		mem := s.lib.mem()
		if err := mem.WriteU32(ptr, current); err != nil {
			return err
		}
		more, err := s.lib.call(ctx, sym, uint64(s.ptr), uint64(ptr))
		if err != nil {
			return err
		}
		if more == 0 {
			return nil
		}
		ok = true
		value, err = mem.ReadU32(ptr)
		return err
	})
	return value, ok, err
}

// PreviousRange returns the contiguous range ending before first. Pass
// SetValueInvalid to get the last range.
func (s *Set) PreviousRange(ctx context.Context, first uint32) (uint32, uint32, bool, error) {
	var lo, hi uint32
	var ok bool
	err := s.lib.withScratch(ctx, 8, func(ptr uint32) error {
		mem := s.lib.mem()
		// hb_set_previous_range keys iteration off *first.
		if err := mem.WriteU32(ptr, first); err != nil {
			return err
		}
		more, err := s.lib.call(ctx, "hb_set_previous_range",
			uint64(s.ptr), uint64(ptr), uint64(ptr+4))
		if err != nil {
			return err
		}
		if more == 0 {
			return nil
		}
		ok = true
		if lo, err = mem.ReadU32(ptr); err != nil {
			return err
		}
		hi, err = mem.ReadU32(ptr + 4)
		return err
	})
	return lo, hi, ok, err
}

// Values drains the set into a sorted slice by walking its ranges.
func (s *Set) Values(ctx context.Context) ([]uint32, error) {
	var out []uint32
	err := s.lib.withScratch(ctx, 8, func(ptr uint32) error {
		mem := s.lib.mem()
		// hb_set_next_range keys iteration off *last; seed it with the
		// invalid sentinel to start from the beginning.
		if err := mem.WriteU32(ptr+4, SetValueInvalid); err != nil {
			return err
		}
		for {
			more, err := s.lib.call(ctx, "hb_set_next_range",
				uint64(s.ptr), uint64(ptr), uint64(ptr+4))
			if err != nil {
				return err
			}
			if more == 0 {
				return nil
			}
			first, err := mem.ReadU32(ptr)
			if err != nil {
				return err
			}
			last, err := mem.ReadU32(ptr + 4)
			if err != nil {
				return err
			}
			for v := first; ; v++ {
				out = append(out, v)
				if v == last {
					break
				}
			}
		}
	})
	return out, err
}
