/*
DESCRIPTION
  tiff.go is a small, donor-specific TIFF/IFD walker: just enough of
  the TIFF 6.0 structure to locate tag values and their absolute file
  offsets. It is not a general-purpose TIFF library.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package donor

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// TIFF tag numbers this parser cares about. Numbered per TIFF 6.0 and
// widely-documented Nikon MakerNote conventions; MakerNote tag numbers
// in particular vary between firmware revisions and are treated, per
// community reverse-engineering, as best-effort rather than guaranteed.
const (
	tagSubfileType     = 0x00FE
	tagImageWidth      = 0x0100
	tagImageLength     = 0x0101
	tagBitsPerSample   = 0x0102
	tagCompression     = 0x0103
	tagModel           = 0x0110
	tagStripOffsets    = 0x0111
	tagStripByteCounts = 0x0117
	tagSubIFDs         = 0x014A
	tagJpegIFOffset    = 0x0201
	tagJpegIFByteCount = 0x0202
	tagExifIFDPointer  = 0x8769
	tagMakerNote       = 0x927C

	// Nikon MakerNote tags, relative to the MakerNote's own mini-TIFF
	// header.
	nikonTagNEFCompression    = 0x0093
	nikonTagWBRBLevels        = 0x0097
	nikonTagBlackLevel        = 0x0098
	nikonTagLinearizationBlob = 0x0096
	nikonTagCropArea          = 0x00D6
)

// tiffType is one of the TIFF 6.0 field types.
type tiffType uint16

const (
	typeByte      tiffType = 1
	typeASCII     tiffType = 2
	typeShort     tiffType = 3
	typeLong      tiffType = 4
	typeRational  tiffType = 5
	typeUndefined tiffType = 7
)

var typeSizes = map[tiffType]int{
	typeByte:      1,
	typeASCII:     1,
	typeShort:     2,
	typeLong:      4,
	typeRational:  8,
	typeUndefined: 1,
}

// entry is one 12-byte IFD directory entry, plus the absolute file
// offset it was read from.
type entry struct {
	Tag        uint16
	Type       tiffType
	Count      uint32
	RawValue   [4]byte
	FileOffset int64
}

func (e entry) size() int { return typeSizes[e.Type] * int(e.Count) }

// inline reports whether the entry's value fits in the 4-byte
// RawValue field rather than being stored at an external offset.
func (e entry) inline() bool { return e.size() <= 4 }

// valueFieldOffset is the absolute file offset of the entry's 4-byte
// value/offset slot — the field a caller patches when overwriting an
// inline count in place during container assembly).
func (e entry) valueFieldOffset() int64 { return e.FileOffset + 8 }

func (e entry) externalOffset(order binary.ByteOrder) int64 {
	return int64(order.Uint32(e.RawValue[:]))
}

// reader bundles a random-access file with the byte order its TIFF
// structure was written in.
type reader struct {
	r     io.ReaderAt
	order binary.ByteOrder
	// base is added to every IFD/value offset read from this reader;
	// nonzero when walking a MakerNote's self-contained mini-TIFF.
	base int64
}

func (r *reader) readAt(off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, r.base+off); err != nil {
		return nil, errors.Wrapf(err, "reading %d bytes at offset %d", n, r.base+off)
	}
	return buf, nil
}

// readIFD reads every entry of the IFD at offset (relative to r.base).
func (r *reader) readIFD(offset int64) ([]entry, error) {
	countBuf, err := r.readAt(offset, 2)
	if err != nil {
		return nil, err
	}
	count := int(r.order.Uint16(countBuf))

	entries := make([]entry, 0, count)
	for i := 0; i < count; i++ {
		entOff := offset + 2 + int64(i*12)
		buf, err := r.readAt(entOff, 12)
		if err != nil {
			return nil, err
		}
		e := entry{
			Tag:        r.order.Uint16(buf[0:2]),
			Type:       tiffType(r.order.Uint16(buf[2:4])),
			Count:      r.order.Uint32(buf[4:8]),
			FileOffset: r.base + entOff,
		}
		copy(e.RawValue[:], buf[8:12])
		entries = append(entries, e)
	}
	return entries, nil
}

func find(entries []entry, tag uint16) (entry, bool) {
	for _, e := range entries {
		if e.Tag == tag {
			return e, true
		}
	}
	return entry{}, false
}

func (r *reader) short(e entry) (uint16, error) {
	if e.inline() {
		return r.order.Uint16(e.RawValue[0:2]), nil
	}
	buf, err := r.readAt(e.externalOffset(r.order), 2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(buf), nil
}

func (r *reader) shorts(e entry) ([]uint16, error) {
	n := int(e.Count)
	out := make([]uint16, n)
	if e.inline() {
		for i := 0; i < n; i++ {
			out[i] = r.order.Uint16(e.RawValue[i*2 : i*2+2])
		}
		return out, nil
	}
	buf, err := r.readAt(e.externalOffset(r.order), n*2)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		out[i] = r.order.Uint16(buf[i*2 : i*2+2])
	}
	return out, nil
}

func (r *reader) long(e entry) (uint32, error) {
	if e.inline() {
		return r.order.Uint32(e.RawValue[0:4]), nil
	}
	buf, err := r.readAt(e.externalOffset(r.order), 4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(buf), nil
}

func (r *reader) ascii(e entry) (string, error) {
	n := int(e.Count)
	var buf []byte
	var err error
	if e.inline() {
		buf = e.RawValue[:n]
	} else {
		buf, err = r.readAt(e.externalOffset(r.order), n)
		if err != nil {
			return "", err
		}
	}
	for i, b := range buf {
		if b == 0 {
			buf = buf[:i]
			break
		}
	}
	return string(buf), nil
}

func (r *reader) rational(e entry) (num, den uint32, f float64, err error) {
	return r.rationalAt(e.externalOffset(r.order))
}

// rationalAt reads a single 8-byte TIFF RATIONAL value directly at a
// file offset relative to r.base, bypassing the entry abstraction —
// used for reading individual elements out of a multi-value RATIONAL
// array such as WB_RBLevels.
func (r *reader) rationalAt(off int64) (num, den uint32, f float64, err error) {
	buf, err := r.readAt(off, 8)
	if err != nil {
		return 0, 0, 0, err
	}
	num = r.order.Uint32(buf[0:4])
	den = r.order.Uint32(buf[4:8])
	if den == 0 {
		return num, den, 0, errors.New("rational with zero denominator")
	}
	return num, den, float64(num) / float64(den), nil
}

func (r *reader) blob(e entry) ([]byte, error) {
	n := int(e.Count) * typeSizes[e.Type]
	if e.inline() {
		return append([]byte(nil), e.RawValue[:n]...), nil
	}
	return r.readAt(e.externalOffset(r.order), n)
}
