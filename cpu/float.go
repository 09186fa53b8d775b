package cpu

import (
	"math"
)

// SIC/XE floating point layout: 1 sign bit, 11 exponent bits (excess 1024),
// and a 36-bit normalized fraction. The value is 0.fraction * 2^(exp-1024).
const (
	FLOAT_FRACTION_BITS = 36
	FLOAT_EXPONENT_BIAS = 1024
	FLOAT_EXPONENT_MAX  = 0x7FF
)

// FloatToBits converts a float64 into the 48-bit SIC/XE representation.
func FloatToBits(value float64) (bits uint64) {
	if value == 0 || math.IsNaN(value) {
		return
	}

	if value < 0 {
		bits = 1 << 47
		value = -value
	}

	frac, exp := math.Frexp(value)
	exp += FLOAT_EXPONENT_BIAS
	switch {
	case exp < 0:
		return 0
	case exp > FLOAT_EXPONENT_MAX:
		exp = FLOAT_EXPONENT_MAX
		frac = 1 - math.Ldexp(1, -FLOAT_FRACTION_BITS)
	}

	fraction := uint64(math.Ldexp(frac, FLOAT_FRACTION_BITS))
	bits |= uint64(exp)<<FLOAT_FRACTION_BITS | fraction
	return
}

// FloatFromBits converts a 48-bit SIC/XE float into a float64.
func FloatFromBits(bits uint64) (value float64) {
	fraction := bits & (1<<FLOAT_FRACTION_BITS - 1)
	exp := int(bits>>FLOAT_FRACTION_BITS) & FLOAT_EXPONENT_MAX
	value = math.Ldexp(float64(fraction), exp-FLOAT_EXPONENT_BIAS-FLOAT_FRACTION_BITS)
	if bits&(1<<47) != 0 {
		value = -value
	}
	return
}

// FloatBytes returns the 6-byte big-endian encoding of a float.
func FloatBytes(value float64) (data []byte) {
	bits := FloatToBits(value)
	data = make([]byte, FLOAT_SIZE)
	for n := range FLOAT_SIZE {
		data[n] = byte(bits >> (8 * (FLOAT_SIZE - 1 - n)))
	}
	return
}

// FloatFromBytes decodes a 6-byte big-endian float.
func FloatFromBytes(data []byte) float64 {
	var bits uint64
	for _, b := range data[:FLOAT_SIZE] {
		bits = bits<<8 | uint64(b)
	}
	return FloatFromBits(bits)
}
