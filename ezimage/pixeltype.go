/*
   This file handles the numeric typing of pixel values and routines that
   extract typed values from the raw byte buffers returned by the remote
   pixel stores.
*/

package ezimage

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PixelType is a unique ID for each numeric type a remote image can declare
// for its pixel values, e.g., a uint8 or a float32.
type PixelType uint8

const (
	T_uint8 PixelType = iota
	T_int8
	T_uint16
	T_int16
	T_uint32
	T_int32
	T_float32
	T_float64
)

var typeBytes = map[PixelType]int32{
	T_uint8:   1,
	T_int8:    1,
	T_uint16:  2,
	T_int16:   2,
	T_uint32:  4,
	T_int32:   4,
	T_float32: 4,
	T_float64: 8,
}

var typeNames = map[PixelType]string{
	T_uint8:   "uint8",
	T_int8:    "int8",
	T_uint16:  "uint16",
	T_int16:   "int16",
	T_uint32:  "uint32",
	T_int32:   "int32",
	T_float32: "float32",
	T_float64: "float64",
}

// PixelTypeBytes returns the # of bytes for a given pixel type.
// For example, T_uint16 is 2 bytes.
func PixelTypeBytes(t PixelType) int32 {
	return typeBytes[t]
}

func (t PixelType) String() string {
	name, found := typeNames[t]
	if !found {
		return fmt.Sprintf("unknown pixel type %d", uint8(t))
	}
	return name
}

// PixelTypeByName converts a server-declared type tag into a PixelType.
// The tag set is closed; anything else is an error rather than a default.
func PixelTypeByName(name string) (PixelType, error) {
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("pixel type tag %q: %w", name, ErrBadPixelType)
}

// MarshalJSON implements the json.Marshaler interface.
func (t PixelType) MarshalJSON() ([]byte, error) {
	name, found := typeNames[t]
	if !found {
		return nil, fmt.Errorf("can't marshal pixel type %d: %w", uint8(t), ErrBadPixelType)
	}
	return []byte(fmt.Sprintf("%q", name)), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *PixelType) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("pixel type must be a JSON string, got %s: %w", b, ErrBadPixelType)
	}
	pt, err := PixelTypeByName(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*t = pt
	return nil
}

// Value decodes one element of this pixel type from the start of b and
// widens it to float64.  Buffers use little-endian byte order, matching the
// raw pixel stores.  The bool is false if b is too short.
func (t PixelType) Value(b []byte) (float64, bool) {
	if int32(len(b)) < typeBytes[t] {
		return 0, false
	}
	switch t {
	case T_uint8:
		return float64(b[0]), true
	case T_int8:
		return float64(int8(b[0])), true
	case T_uint16:
		return float64(binary.LittleEndian.Uint16(b)), true
	case T_int16:
		return float64(int16(binary.LittleEndian.Uint16(b))), true
	case T_uint32:
		return float64(binary.LittleEndian.Uint32(b)), true
	case T_int32:
		return float64(int32(binary.LittleEndian.Uint32(b))), true
	case T_float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), true
	case T_float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), true
	}
	return 0, false
}

// PutValue encodes v as one element of this pixel type at the start of b,
// truncating as needed.  Used by tests and synthetic data generation.
func (t PixelType) PutValue(b []byte, v float64) {
	switch t {
	case T_uint8:
		b[0] = uint8(v)
	case T_int8:
		b[0] = uint8(int8(v))
	case T_uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case T_int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case T_uint32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case T_int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case T_float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case T_float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
}
