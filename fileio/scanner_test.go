package fileio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"osmscout/assert"
	"osmscout/common"
)

func TestScannerWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")

	w := &Writer{}
	assert.NoError(t, w.Open(path))
	assert.NoError(t, w.WriteUint8(42))
	assert.NoError(t, w.WriteBool(true))
	assert.NoError(t, w.WriteUint16(1000))
	assert.NoError(t, w.WriteUint32(100000))
	assert.NoError(t, w.WriteUint64(math.MaxUint64))
	assert.NoError(t, w.WriteDouble(3.14159))
	coord := common.GeoCoord{Lat: 53.5511, Lon: 9.9937}
	assert.NoError(t, w.WriteCoord(coord))
	assert.NoError(t, w.WriteFileOffset(0x1234, 3))
	assert.NoError(t, w.WriteUvarint(123456789))
	assert.NoError(t, w.WriteVarint(-987654))
	assert.NoError(t, w.WriteString("hamburg"))
	assert.NoError(t, w.Close())

	s := &Scanner{}
	assert.NoError(t, s.Open(path, Sequential, false))

	u8, err := s.ReadUint8()
	assert.NoError(t, err)
	assert.Equal(t, uint8(42), u8)

	b, err := s.ReadBool()
	assert.NoError(t, err)
	assert.True(t, b)

	u16, err := s.ReadUint16()
	assert.NoError(t, err)
	assert.Equal(t, uint16(1000), u16)

	u32, err := s.ReadUint32()
	assert.NoError(t, err)
	assert.Equal(t, uint32(100000), u32)

	u64, err := s.ReadUint64()
	assert.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), u64)

	d, err := s.ReadDouble()
	assert.NoError(t, err)
	assert.Equal(t, 3.14159, d)

	decodedCoord, err := s.ReadCoord()
	assert.NoError(t, err)
	if math.Abs(decodedCoord.Lat-coord.Lat) > 1e-6 || math.Abs(decodedCoord.Lon-coord.Lon) > 1e-6 {
		t.Fatalf("coordinate round trip lost precision: got %v want %v", decodedCoord, coord)
	}

	off, err := s.ReadFileOffset(3)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x1234), off)

	uv, err := s.ReadUvarint()
	assert.NoError(t, err)
	assert.Equal(t, uint64(123456789), uv)

	v, err := s.ReadVarint()
	assert.NoError(t, err)
	assert.Equal(t, int64(-987654), v)

	str, err := s.ReadString()
	assert.NoError(t, err)
	assert.Equal(t, "hamburg", str)

	assert.NoError(t, s.Close())
}

func TestScanner_ReopenFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	assert.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4}, 0644))

	s := &Scanner{}
	assert.NoError(t, s.Open(path, Sequential, false))
	assert.Error(t, s.Open(path, Sequential, false))
	assert.NoError(t, s.Close())
}

func TestScanner_ShortReadSetsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	assert.NoError(t, os.WriteFile(path, []byte{1, 2}, 0644))

	s := &Scanner{}
	assert.NoError(t, s.Open(path, Sequential, false))
	_, err := s.ReadUint32()
	assert.Error(t, err)
	assert.True(t, s.HasError())
}

func TestWriter_PoisonsAfterFailure(t *testing.T) {
	w := &Writer{}
	err := w.WriteUint8(1)
	assert.Error(t, err)
	assert.True(t, w.HasError())

	err = w.WriteUint8(2)
	assert.Error(t, err)
}

func TestScannerWriter_MemoryMapped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapped.bin")

	w := &Writer{}
	assert.NoError(t, w.Open(path))
	assert.NoError(t, w.WriteUint32(42))
	assert.NoError(t, w.Close())

	s := &Scanner{}
	assert.NoError(t, s.Open(path, FastRandom, true))
	v, err := s.ReadUint32()
	assert.NoError(t, err)
	assert.Equal(t, uint32(42), v)
	assert.NoError(t, s.Close())
}
