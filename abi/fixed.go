package abi

import "math"

// Position is hb_position_t: a signed 16.6 fixed-point quantity. HarfBuzz
// represents sub-unit positional values as integers scaled by 64.
type Position int32

// PositionFromFloat converts font units to a 16.6 position, rounding to the
// nearest representable value.
func PositionFromFloat(v float64) Position {
	return Position(math.Round(v * 64))
}

// Float converts a 16.6 position back to font units.
func (p Position) Float() float64 {
	return float64(p) / 64
}

// Round returns the position rounded to the nearest integer unit.
func (p Position) Round() int32 {
	return int32(p+32) >> 6
}
