/*
DESCRIPTION
  donor_test.go builds a minimal synthetic NEF-shaped TIFF container
  in memory and verifies Parse extracts every required field.

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
	"os"
	"path/filepath"
	"testing"

	"github.com/ausocean/nefsynth/raw"
)

// fixtureBuilder assembles a little-endian TIFF-shaped byte buffer
// incrementally, patching forward references (offsets to data not yet
// written) once their position is known.
type fixtureBuilder struct {
	buf []byte
}

func (b *fixtureBuilder) pos() int64 { return int64(len(b.buf)) }

func (b *fixtureBuilder) u16(v uint16) {
	var t [2]byte
	binary.LittleEndian.PutUint16(t[:], v)
	b.buf = append(b.buf, t[:]...)
}

func (b *fixtureBuilder) u32(v uint32) {
	var t [4]byte
	binary.LittleEndian.PutUint32(t[:], v)
	b.buf = append(b.buf, t[:]...)
}

func (b *fixtureBuilder) raw(p []byte) { b.buf = append(b.buf, p...) }

func (b *fixtureBuilder) patchU32(pos int64, v uint32) {
	binary.LittleEndian.PutUint32(b.buf[pos:pos+4], v)
}

// entry appends a 12-byte IFD entry with an inline 4-byte value and
// returns the absolute offset of that value field, so the caller can
// patch it later once a referenced offset is known.
func (b *fixtureBuilder) entry(tag, typ uint16, count uint32) (valuePos int64) {
	b.u16(tag)
	b.u16(typ)
	b.u32(count)
	valuePos = b.pos()
	b.u32(0) // placeholder, patched by the caller.
	return valuePos
}

// entryInline16 appends a 12-byte entry whose value is a single inline
// SHORT.
func (b *fixtureBuilder) entryInline16(tag uint16, v uint16) {
	pos := b.entry(tag, 3 /* SHORT */, 1)
	binary.LittleEndian.PutUint16(b.buf[pos:pos+2], v)
}

// entryInline32 appends a 12-byte entry whose value is a single inline
// LONG.
func (b *fixtureBuilder) entryInline32(tag uint16, v uint32) {
	pos := b.entry(tag, 4 /* LONG */, 1)
	b.patchU32(pos, v)
}

func TestParse(t *testing.T) {
	b := &fixtureBuilder{}

	// --- TIFF header ---
	b.raw([]byte("II"))
	b.u16(0x2A)
	ifd0OffsetPos := b.pos()
	b.u32(0) // patched below, once IFD0's own position is known (it's immediately next).
	b.patchU32(ifd0OffsetPos, uint32(b.pos()))

	// --- IFD0: Model, SubIFDs, Exif IFD pointer ---
	b.u16(3) // entry count
	modelValuePos := b.entry(0x0110, 2 /* ASCII */, 6)
	subIFDsValuePos := b.entry(0x014A, 4 /* LONG */, 2)
	exifPtrValuePos := b.entry(0x8769, 4 /* LONG */, 1)
	b.u32(0) // next IFD offset

	// --- external data for IFD0: Model string ---
	b.patchU32(modelValuePos, uint32(b.pos()))
	b.raw([]byte("NIKON\x00"))

	// --- external data for IFD0: SubIFDs array (patched after children laid out) ---
	subIFDsArrayPos := b.pos()
	b.patchU32(subIFDsValuePos, uint32(subIFDsArrayPos))
	b.u32(0) // raw SubIFD offset, patched below.
	b.u32(0) // preview SubIFD offset, patched below.

	// --- raw SubIFD ---
	rawSubIFDOffset := b.pos()
	b.u16(7)
	b.entryInline32(0x00FE, 0)  // SubfileType = 0 (raw).
	b.entryInline16(0x0102, 14) // BitsPerSample.
	b.entryInline16(0x0103, 3)  // Compression.
	b.entryInline32(0x0100, 8)  // ImageWidth.
	b.entryInline32(0x0101, 4)  // ImageLength.
	stripOffsetsValuePos := b.entry(0x0111, 4, 1)
	b.patchU32(stripOffsetsValuePos, 9000)
	stripByteCountsValuePos := b.entry(0x0117, 4, 1)
	b.patchU32(stripByteCountsValuePos, 12345)
	b.u32(0) // next IFD offset

	wantStripByteCountFieldOffset := stripByteCountsValuePos

	// --- preview SubIFD ---
	previewSubIFDOffset := b.pos()
	b.u16(3)
	b.entryInline32(0x00FE, 1) // SubfileType = 1 (reduced-resolution).
	jpegOffsetValuePos := b.entry(0x0201, 4, 1)
	b.patchU32(jpegOffsetValuePos, 5000)
	jpegByteCountValuePos := b.entry(0x0202, 4, 1)
	b.patchU32(jpegByteCountValuePos, 2000)
	b.u32(0)

	wantPreviewLengthFieldOffset := jpegByteCountValuePos

	b.patchU32(subIFDsArrayPos, uint32(rawSubIFDOffset))
	b.patchU32(subIFDsArrayPos+4, uint32(previewSubIFDOffset))

	// --- Exif IFD: MakerNote pointer ---
	exifIFDOffset := b.pos()
	b.patchU32(exifPtrValuePos, uint32(exifIFDOffset))
	b.u16(1)
	makerNoteValuePos := b.entry(0x927C, 7 /* UNDEFINED */, 0) // count patched once blob length is known.
	b.u32(0)

	// --- MakerNote blob: "Nikon\0" preamble + mini-TIFF ---
	makerNoteStart := b.pos()
	b.raw([]byte("Nikon\x00"))
	b.u16(0x0210) // version, unparsed.
	b.u16(0)      // unused.

	miniHeaderStart := b.pos()
	b.raw([]byte("II"))
	b.u16(0x2A)
	miniIFDRelOffsetPos := b.pos()
	b.u32(0)
	b.patchU32(miniIFDRelOffsetPos, uint32(b.pos()-miniHeaderStart))

	// --- MakerNote mini-IFD0 ---
	b.u16(5)
	b.entryInline16(0x0093, 3) // NEFCompression.
	wbValuePos := b.entry(0x0097, 5 /* RATIONAL */, 2)
	b.entryInline16(0x0098, 1008) // BlackLevel.
	ltPos := b.entry(0x0096, 7 /* UNDEFINED */, 4)
	binary.LittleEndian.PutUint16(b.buf[ltPos+2:ltPos+4], 4660) // predictor seed, at blob[2:4].
	cropValuePos := b.entry(0x00D6, 3 /* SHORT */, 4)
	b.u32(0) // mini-IFD next-offset.

	// --- MakerNote external data: WB_RBLevels, CropArea ---
	wbArrayPos := b.pos()
	b.patchU32(wbValuePos, uint32(wbArrayPos-miniHeaderStart))
	b.u32(2) // red numerator
	b.u32(1) // red denominator -> 2.0
	b.u32(3) // blue numerator
	b.u32(2) // blue denominator -> 1.5

	cropArrayPos := b.pos()
	b.patchU32(cropValuePos, uint32(cropArrayPos-miniHeaderStart))
	b.u16(1) // left
	b.u16(2) // top
	b.u16(6) // columns
	b.u16(4) // rows

	makerNoteEnd := b.pos()
	binary.LittleEndian.PutUint32(b.buf[makerNoteValuePos-4:makerNoteValuePos], uint32(makerNoteEnd-makerNoteStart))
	b.patchU32(makerNoteValuePos, uint32(makerNoteStart))

	dir := t.TempDir()
	path := filepath.Join(dir, "donor.nef")
	if err := os.WriteFile(path, b.buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	meta, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if meta.BigEndian {
		t.Error("BigEndian = true, want false")
	}
	if meta.CameraModel != "NIKON" {
		t.Errorf("CameraModel = %q, want NIKON", meta.CameraModel)
	}
	if meta.RawDimensions != (raw.Dimensions{Columns: 8, Rows: 4}) {
		t.Errorf("RawDimensions = %+v, want {8 4}", meta.RawDimensions)
	}
	if meta.BitsPerSample != 14 {
		t.Errorf("BitsPerSample = %d, want 14", meta.BitsPerSample)
	}
	if meta.Compression != 3 {
		t.Errorf("Compression = %d, want 3", meta.Compression)
	}
	if meta.StripOffset != 9000 {
		t.Errorf("StripOffset = %d, want 9000", meta.StripOffset)
	}
	if meta.StripByteCountFieldOffset != wantStripByteCountFieldOffset {
		t.Errorf("StripByteCountFieldOffset = %d, want %d", meta.StripByteCountFieldOffset, wantStripByteCountFieldOffset)
	}
	if meta.WB != (raw.WhiteBalance{RedMul: 2.0, BlueMul: 1.5}) {
		t.Errorf("WB = %+v, want {2 1.5}", meta.WB)
	}
	if meta.BlackLevel != 1008 {
		t.Errorf("BlackLevel = %d, want 1008", meta.BlackLevel)
	}
	if meta.PredictorSeed != 4660 {
		t.Errorf("PredictorSeed = %d, want 4660", meta.PredictorSeed)
	}
	if meta.CropArea == nil || *meta.CropArea != (raw.NikonCropArea{Left: 1, Top: 2, Columns: 6, Rows: 4}) {
		t.Errorf("CropArea = %+v, want {1 2 6 4}", meta.CropArea)
	}
	if len(meta.Previews) != 1 {
		t.Fatalf("len(Previews) = %d, want 1", len(meta.Previews))
	}
	p := meta.Previews[0]
	if p.Tag != "PreviewImage" {
		t.Errorf("Previews[0].Tag = %q, want PreviewImage", p.Tag)
	}
	if p.Start != 5000 || p.Length != 2000 {
		t.Errorf("Previews[0] = %+v, want Start=5000 Length=2000", p)
	}
	if p.LengthFieldOffset != wantPreviewLengthFieldOffset {
		t.Errorf("Previews[0].LengthFieldOffset = %d, want %d", p.LengthFieldOffset, wantPreviewLengthFieldOffset)
	}
}
