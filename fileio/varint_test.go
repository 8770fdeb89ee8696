package fileio

import (
	"math"
	"testing"

	"osmscout/assert"
)

// TestUvarint_RoundTrip pins the encoded byte length of representative
// values. 2^63-1 takes 9 bytes: 63 significant bits divide evenly into
// nine 7-bit groups, so only a 64-bit-wide value such as 2^64-1 needs the
// tenth byte.
func TestUvarint_RoundTrip(t *testing.T) {
	cases := []struct {
		value      uint64
		wantLength int
	}{
		{0, 1},
		{1, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{math.MaxUint32, 5},
		{math.MaxInt64, 9},
	}

	for _, c := range cases {
		buf := make([]byte, MaxVarintLen64)
		n := PutUvarint(buf, c.value)
		assert.Equal(t, c.wantLength, n)

		decoded, consumed := Uvarint(buf[:n])
		assert.Equal(t, c.value, decoded)
		assert.Equal(t, n, consumed)
	}
}

func TestUvarint_MaxUint64(t *testing.T) {
	buf := make([]byte, MaxVarintLen64)
	n := PutUvarint(buf, math.MaxUint64)
	assert.Equal(t, 10, n)

	decoded, consumed := Uvarint(buf[:n])
	assert.Equal(t, uint64(math.MaxUint64), decoded)
	assert.Equal(t, n, consumed)
}

func TestZigZag_RoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 2, -2, math.MaxInt64, math.MinInt64}
	for _, v := range values {
		encoded := ZigZagEncode(v)
		decoded := ZigZagDecode(encoded)
		assert.Equal(t, v, decoded)
	}
}

func TestVarint_SignedRoundTrip(t *testing.T) {
	buf := make([]byte, MaxVarintLen64)
	for _, v := range []int64{0, -1, 1, -128, 128, math.MinInt64, math.MaxInt64} {
		n := PutVarint(buf, v)
		decoded, consumed := Varint(buf[:n])
		assert.Equal(t, v, decoded)
		assert.Equal(t, n, consumed)
	}
}
