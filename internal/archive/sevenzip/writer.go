// Package sevenzip writes 7z archives holding regular files in a single
// solid LZMA folder.
//
// Layout: 32-byte signature header, the packed LZMA stream, then the
// uncompressed header that describes it. Everything is buffered until
// Close, because the signature header points at the trailing header.
package sevenzip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"time"
	"unicode/utf16"

	"github.com/ulikunitz/xz/lzma"
)

// property ids
const (
	idEnd              = 0x00
	idHeader           = 0x01
	idMainStreamsInfo  = 0x04
	idFilesInfo        = 0x05
	idPackInfo         = 0x06
	idUnpackInfo       = 0x07
	idSubStreamsInfo   = 0x08
	idSize             = 0x09
	idCRC              = 0x0A
	idFolder           = 0x0B
	idCodersUnpackSize = 0x0C
	idNumUnpackStream  = 0x0D
	idEmptyStream      = 0x0E
	idEmptyFile        = 0x0F
	idName             = 0x11
	idMTime            = 0x14
)

const (
	signatureHeaderSize = 32
	// lzmaHeaderSize is the classic .lzma header: properties byte,
	// dictionary size and uncompressed size.
	lzmaHeaderSize = 13
	// lzmaPropsSize is the part of it 7z stores as coder properties.
	lzmaPropsSize = 5
	// 1601-01-01 to 1970-01-01 in 100ns ticks
	filetimeEpochOffset = 116444736000000000
)

var (
	signature   = []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}
	version     = []byte{0, 4}
	lzmaCoderID = []byte{0x03, 0x01, 0x01}

	ErrClosed = errors.New("sevenzip: writer closed")
)

type fileEntry struct {
	name  string
	size  uint64
	crc   uint32
	mtime time.Time
}

// Writer accumulates files and emits the archive on Close.
type Writer struct {
	w      io.Writer
	raw    bytes.Buffer
	lz     *lzma.Writer
	files  []fileEntry
	closed bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Add compresses the content of r as a file named name.
func (w *Writer) Add(name string, mtime time.Time, r io.Reader) error {
	if w.closed {
		return ErrClosed
	}
	if name == "" {
		return errors.New("sevenzip: empty file name")
	}

	if w.lz == nil {
		lz, err := lzma.WriterConfig{EOSMarker: true}.NewWriter(&w.raw)
		if err != nil {
			return fmt.Errorf("sevenzip: lzma writer: %w", err)
		}
		w.lz = lz
	}

	h := crc32.NewIEEE()
	n, err := io.Copy(io.MultiWriter(w.lz, h), r)
	if err != nil {
		return fmt.Errorf("sevenzip: compress %s: %w", name, err)
	}

	w.files = append(w.files, fileEntry{name: name, size: uint64(n), crc: h.Sum32(), mtime: mtime})
	return nil
}

// Close finishes the compressed stream and writes the whole archive.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	var packed, props []byte
	var unpackSize uint64
	for _, f := range w.files {
		unpackSize += f.size
	}

	if w.lz != nil {
		if err := w.lz.Close(); err != nil {
			return fmt.Errorf("sevenzip: lzma close: %w", err)
		}
	}
	// only empty files: no folder, no packed stream
	if unpackSize > 0 {
		raw := w.raw.Bytes()
		props = raw[:lzmaPropsSize]
		packed = raw[lzmaHeaderSize:]
	}

	var header []byte
	if len(w.files) > 0 {
		header = w.header(props, uint64(len(packed)), unpackSize)
	}

	if _, err := w.w.Write(startHeader(uint64(len(packed)), header)); err != nil {
		return err
	}
	if _, err := w.w.Write(packed); err != nil {
		return err
	}
	if _, err := w.w.Write(header); err != nil {
		return err
	}
	return nil
}

func startHeader(nextHeaderOffset uint64, header []byte) []byte {
	b := make([]byte, signatureHeaderSize)
	copy(b, signature)
	copy(b[6:], version)
	binary.LittleEndian.PutUint64(b[12:], nextHeaderOffset)
	binary.LittleEndian.PutUint64(b[20:], uint64(len(header)))
	binary.LittleEndian.PutUint32(b[28:], crc32.ChecksumIEEE(header))
	binary.LittleEndian.PutUint32(b[8:], crc32.ChecksumIEEE(b[12:32]))
	return b
}

func (w *Writer) header(props []byte, packSize, unpackSize uint64) []byte {
	var b bytes.Buffer
	b.WriteByte(idHeader)

	var streams []fileEntry
	for _, f := range w.files {
		if f.size > 0 {
			streams = append(streams, f)
		}
	}

	if len(streams) > 0 {
		b.WriteByte(idMainStreamsInfo)

		b.WriteByte(idPackInfo)
		writeNumber(&b, 0) // pack position
		writeNumber(&b, 1) // pack streams
		b.WriteByte(idSize)
		writeNumber(&b, packSize)
		b.WriteByte(idEnd)

		b.WriteByte(idUnpackInfo)
		b.WriteByte(idFolder)
		writeNumber(&b, 1) // folders
		b.WriteByte(0)     // not external
		writeNumber(&b, 1) // coders
		b.WriteByte(byte(len(lzmaCoderID)) | 0x20)
		b.Write(lzmaCoderID)
		writeNumber(&b, uint64(len(props)))
		b.Write(props)
		b.WriteByte(idCodersUnpackSize)
		writeNumber(&b, unpackSize)
		b.WriteByte(idEnd)

		b.WriteByte(idSubStreamsInfo)
		b.WriteByte(idNumUnpackStream)
		writeNumber(&b, uint64(len(streams)))
		if len(streams) > 1 {
			b.WriteByte(idSize)
			// the last size is implied by the folder size
			for _, s := range streams[:len(streams)-1] {
				writeNumber(&b, s.size)
			}
		}
		b.WriteByte(idCRC)
		b.WriteByte(1) // all defined
		for _, s := range streams {
			_ = binary.Write(&b, binary.LittleEndian, s.crc)
		}
		b.WriteByte(idEnd)

		b.WriteByte(idEnd)
	}

	b.WriteByte(idFilesInfo)
	writeNumber(&b, uint64(len(w.files)))

	if empty := len(w.files) - len(streams); empty > 0 {
		emptyStream := make([]bool, len(w.files))
		for i, f := range w.files {
			emptyStream[i] = f.size == 0
		}
		v := bitVector(emptyStream)
		b.WriteByte(idEmptyStream)
		writeNumber(&b, uint64(len(v)))
		b.Write(v)

		// every empty stream is a file, not a directory
		allFiles := make([]bool, empty)
		for i := range allFiles {
			allFiles[i] = true
		}
		v = bitVector(allFiles)
		b.WriteByte(idEmptyFile)
		writeNumber(&b, uint64(len(v)))
		b.Write(v)
	}

	var names bytes.Buffer
	names.WriteByte(0) // not external
	for _, f := range w.files {
		for _, u := range utf16.Encode([]rune(f.name)) {
			_ = binary.Write(&names, binary.LittleEndian, u)
		}
		names.Write([]byte{0, 0})
	}
	b.WriteByte(idName)
	writeNumber(&b, uint64(names.Len()))
	b.Write(names.Bytes())

	var times bytes.Buffer
	times.WriteByte(1) // all defined
	times.WriteByte(0) // not external
	for _, f := range w.files {
		_ = binary.Write(&times, binary.LittleEndian, filetime(f.mtime))
	}
	b.WriteByte(idMTime)
	writeNumber(&b, uint64(times.Len()))
	b.Write(times.Bytes())

	b.WriteByte(idEnd)
	b.WriteByte(idEnd)
	return b.Bytes()
}

// writeNumber uses the 7z variable-length encoding: the count of leading
// one bits in the first byte is the count of little-endian bytes that
// follow, and the rest of the first byte holds the high bits.
func writeNumber(b *bytes.Buffer, v uint64) {
	first := byte(0)
	mask := byte(0x80)
	i := 0
	for ; i < 8; i++ {
		if v < uint64(1)<<(7*(i+1)) {
			first |= byte(v >> (8 * i))
			break
		}
		first |= mask
		mask >>= 1
	}
	b.WriteByte(first)
	for ; i > 0; i-- {
		b.WriteByte(byte(v))
		v >>= 8
	}
}

// bitVector packs bits most significant first.
func bitVector(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, set := range bits {
		if set {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

func filetime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano()/100 + filetimeEpochOffset)
}
