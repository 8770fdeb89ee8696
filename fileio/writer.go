package fileio

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"osmscout/common"
)

// Writer is a single-producer sequential writer. A write failure
// poisons the writer: all subsequent operations fail fast without touching
// the file again.
type Writer struct {
	path string
	file *os.File
	buf  *bufio.Writer
	pos  int64
	err  error
	open bool
}

func (w *Writer) Open(path string) error {
	if w.open {
		return errors.Errorf("fileio: writer for %s already open", w.path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "fileio: unable to create %s", path)
	}
	w.path = path
	w.file = f
	w.buf = bufio.NewWriter(f)
	w.pos = 0
	w.err = nil
	w.open = true
	return nil
}

func (w *Writer) IsOpen() bool   { return w.open }
func (w *Writer) HasError() bool { return w.err != nil }
func (w *Writer) GetPos() int64  { return w.pos }

// SetPos is only valid for offsets already flushed to disk: it flushes the
// buffer, seeks, and resumes buffered writes from there. Used to patch
// back-references (e.g. bitmap index words) after the fact.
func (w *Writer) SetPos(offset int64) error {
	if w.err != nil {
		return w.err
	}
	if err := w.buf.Flush(); err != nil {
		w.err = errors.Wrapf(err, "fileio: flush before seek in %s", w.path)
		return w.err
	}
	if _, err := w.file.Seek(offset, io.SeekStart); err != nil {
		w.err = errors.Wrapf(err, "fileio: seek to %d in %s", offset, w.path)
		return w.err
	}
	w.pos = offset
	return nil
}

func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.buf.Flush(); err != nil {
		w.err = errors.Wrapf(err, "fileio: flush %s", w.path)
		return w.err
	}
	return nil
}

func (w *Writer) Close() error {
	if !w.open {
		return nil
	}
	w.open = false
	if flushErr := w.buf.Flush(); flushErr != nil && w.err == nil {
		w.err = flushErr
	}
	closeErr := w.file.Close()
	if w.err != nil {
		return w.err
	}
	return closeErr
}

func (w *Writer) write(b []byte) error {
	if w.err != nil {
		return w.err
	}
	if !w.open {
		w.err = errors.New("fileio: writer not open")
		return w.err
	}
	n, err := w.buf.Write(b)
	if err != nil || n != len(b) {
		if err == nil {
			err = errors.Errorf("short write: wrote %d of %d bytes", n, len(b))
		}
		w.err = errors.Wrapf(err, "fileio: write to %s", w.path)
		return w.err
	}
	w.pos += int64(n)
	return nil
}

func (w *Writer) WriteUint8(v uint8) error { return w.write([]byte{v}) }

func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteUint8(1)
	}
	return w.WriteUint8(0)
}

func (w *Writer) WriteInt8(v int8) error { return w.WriteUint8(uint8(v)) }

func (w *Writer) WriteUint16(v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return w.write(b[:])
}

func (w *Writer) WriteInt16(v int16) error { return w.WriteUint16(uint16(v)) }

func (w *Writer) WriteUint32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return w.write(b[:])
}

func (w *Writer) WriteInt32(v int32) error { return w.WriteUint32(uint32(v)) }

func (w *Writer) WriteUint64(v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return w.write(b[:])
}

func (w *Writer) WriteInt64(v int64) error { return w.WriteUint64(uint64(v)) }

func (w *Writer) WriteDouble(v float64) error {
	return w.WriteUint64(math.Float64bits(v))
}

func (w *Writer) WriteCoord(c common.GeoCoord) error {
	lonBits, latBits := EncodeCoord(c)
	if err := w.WriteUint32(lonBits); err != nil {
		return err
	}
	return w.WriteUint32(latBits)
}

func (w *Writer) WriteFileOffset(v uint64, offsetBytes int) error {
	if offsetBytes < 1 || offsetBytes > 8 {
		return errors.Errorf("fileio: invalid offset width %d", offsetBytes)
	}
	buf := make([]byte, offsetBytes)
	for i := 0; i < offsetBytes; i++ {
		buf[i] = byte(v)
		v >>= 8
	}
	return w.write(buf)
}

func (w *Writer) WriteUvarint(v uint64) error {
	var buf [MaxVarintLen64]byte
	n := PutUvarint(buf[:], v)
	return w.write(buf[:n])
}

func (w *Writer) WriteVarint(v int64) error {
	return w.WriteUvarint(ZigZagEncode(v))
}

func (w *Writer) WriteString(s string) error {
	if err := w.WriteUvarint(uint64(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	return w.write([]byte(s))
}
