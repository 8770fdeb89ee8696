// Package fileio implements the endian-safe, variable-length binary file
// layer every on-disk store (types.dat, nodes.dat/ways.dat/areas.dat,
// the area indices, route.dat/route.idx, location.idx) is built on: a
// sequential/random Scanner, a sequential Writer, the canonical varint
// encoding, and packed coordinate I/O.
package fileio

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"syscall"

	"github.com/pkg/errors"
	"osmscout/common"
)

// AccessMode is the caller's declared access pattern. Open accepts it but
// does not act on it: whether the file is memory-mapped depends only on
// Open's memoryMapped argument.
type AccessMode int

const (
	Sequential AccessMode = iota
	Random
	LowMemoryRandom
	FastRandom
)

// Scanner is a sequential/random reader over a single file.
type Scanner struct {
	path   string
	file   *os.File
	mapped []byte // non-nil when memory-mapped
	pos    int64
	size   int64
	err    error
	open   bool
}

// Open opens path for reading. A second Open on an already-open Scanner
// fails.
func (s *Scanner) Open(path string, mode AccessMode, memoryMapped bool) error {
	if s.open {
		return errors.Errorf("fileio: scanner for %s is already open", s.path)
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "fileio: unable to open %s", path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "fileio: unable to stat %s", path)
	}

	s.path = path
	s.file = f
	s.size = info.Size()
	s.pos = 0
	s.err = nil
	s.open = true

	if memoryMapped && info.Size() > 0 {
		mapped, mmapErr := syscall.Mmap(int(f.Fd()), 0, int(info.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
		if mmapErr != nil {
			// Memory-mapping is an optimization; fall back to regular reads
			// rather than failing the open outright.
			s.mapped = nil
		} else {
			s.mapped = mapped
		}
	}

	return nil
}

func (s *Scanner) IsOpen() bool   { return s.open }
func (s *Scanner) HasError() bool { return s.err != nil }
func (s *Scanner) Error() error   { return s.err }
func (s *Scanner) Pos() int64     { return s.pos }

func (s *Scanner) SetPos(offset int64) error {
	if !s.open {
		return errors.New("fileio: scanner not open")
	}
	if offset < 0 || offset > s.size {
		return errors.Errorf("fileio: offset %d out of bounds for %s (size %d)", offset, s.path, s.size)
	}
	s.pos = offset
	return nil
}

func (s *Scanner) Close() error {
	if !s.open {
		return nil
	}
	s.open = false
	if s.mapped != nil {
		_ = syscall.Munmap(s.mapped)
		s.mapped = nil
	}
	return s.file.Close()
}

// read returns n bytes starting at the current position and advances it,
// recording and returning any I/O failure. Once a call has failed, every
// later call fails with the same error.
func (s *Scanner) read(n int) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !s.open {
		s.err = errors.New("fileio: scanner not open")
		return nil, s.err
	}

	if s.mapped != nil {
		if s.pos+int64(n) > int64(len(s.mapped)) {
			s.err = io.ErrUnexpectedEOF
			return nil, s.err
		}
		buf := s.mapped[s.pos : s.pos+int64(n)]
		s.pos += int64(n)
		return buf, nil
	}

	buf := make([]byte, n)
	read, err := s.file.ReadAt(buf, s.pos)
	if err != nil || read != n {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		s.err = errors.Wrapf(err, "fileio: short read at offset %d in %s", s.pos, s.path)
		return nil, s.err
	}
	s.pos += int64(n)
	return buf, nil
}

func (s *Scanner) ReadUint8() (uint8, error) {
	b, err := s.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *Scanner) ReadBool() (bool, error) {
	b, err := s.ReadUint8()
	return b != 0, err
}

func (s *Scanner) ReadInt8() (int8, error) {
	b, err := s.ReadUint8()
	return int8(b), err
}

func (s *Scanner) ReadUint16() (uint16, error) {
	b, err := s.read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (s *Scanner) ReadInt16() (int16, error) {
	v, err := s.ReadUint16()
	return int16(v), err
}

func (s *Scanner) ReadUint32() (uint32, error) {
	b, err := s.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *Scanner) ReadInt32() (int32, error) {
	v, err := s.ReadUint32()
	return int32(v), err
}

func (s *Scanner) ReadUint64() (uint64, error) {
	b, err := s.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (s *Scanner) ReadInt64() (int64, error) {
	v, err := s.ReadUint64()
	return int64(v), err
}

func (s *Scanner) ReadDouble() (float64, error) {
	v, err := s.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadCoord reads a packed (lon, lat) coordinate pair.
func (s *Scanner) ReadCoord() (common.GeoCoord, error) {
	lonBits, err := s.ReadUint32()
	if err != nil {
		return common.GeoCoord{}, err
	}
	latBits, err := s.ReadUint32()
	if err != nil {
		return common.GeoCoord{}, err
	}
	return DecodeCoord(lonBits, latBits), nil
}

// ReadFileOffset reads a FileOffset sized to exactly offsetBytes bytes
// (1..8), as declared by the surrounding index structure's dataOffsetBytes
// field.
func (s *Scanner) ReadFileOffset(offsetBytes int) (uint64, error) {
	if offsetBytes < 1 || offsetBytes > 8 {
		return 0, errors.Errorf("fileio: invalid offset width %d", offsetBytes)
	}
	b, err := s.read(offsetBytes)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := offsetBytes - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// ReadUvarint reads a canonical unsigned varint.
func (s *Scanner) ReadUvarint() (uint64, error) {
	var v uint64
	var shift uint
	for i := 0; i < MaxVarintLen64; i++ {
		b, err := s.ReadUint8()
		if err != nil {
			return 0, err
		}
		if b < 0x80 {
			return v | uint64(b)<<shift, nil
		}
		v |= uint64(b&0x7f) << shift
		shift += 7
	}
	s.err = errors.New("fileio: varint too long")
	return 0, s.err
}

func (s *Scanner) ReadVarint() (int64, error) {
	u, err := s.ReadUvarint()
	if err != nil {
		return 0, err
	}
	return ZigZagDecode(u), nil
}

// ReadString reads a varint length prefix followed by that many UTF-8
// bytes, no terminator.
func (s *Scanner) ReadString() (string, error) {
	length, err := s.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	b, err := s.read(int(length))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
