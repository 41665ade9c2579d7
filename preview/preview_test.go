/*
DESCRIPTION
  preview_test.go exercises the pieces of the preview package that
  don't require a gocv/OpenCV runtime: dimension discovery from an
  embedded JPEG, and the overwrite/zero-fill/length-patch procedure.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package preview

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/ausocean/nefsynth/raw"
)

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeDimensions(t *testing.T) {
	jpg := encodeTestJPEG(t, 32, 16)

	const start = 100
	donorBuf := make([]byte, start+len(jpg)+50)
	copy(donorBuf[start:], jpg)

	rec := raw.PreviewRecord{Tag: "PreviewImage", Start: start, Length: int64(len(jpg))}
	dims, err := decodeDimensions(donorBuf, rec)
	if err != nil {
		t.Fatalf("decodeDimensions: %v", err)
	}
	if dims.Columns != 32 || dims.Rows != 16 {
		t.Errorf("dims = %+v, want {32 16}", dims)
	}
}

func TestDecodeDimensionsOutOfBounds(t *testing.T) {
	donorBuf := make([]byte, 10)
	rec := raw.PreviewRecord{Tag: "PreviewImage", Start: 5, Length: 100}
	if _, err := decodeDimensions(donorBuf, rec); err == nil {
		t.Error("decodeDimensions() err = nil, want error for out-of-bounds record")
	}
}

func TestOverwrite(t *testing.T) {
	const (
		start        = 20
		origLength   = 30
		lengthOffset = 4
	)
	donorBuf := make([]byte, start+origLength+10)
	for i := start; i < start+origLength; i++ {
		donorBuf[i] = 0xFF // simulate pre-existing preview bytes.
	}
	binary.LittleEndian.PutUint32(donorBuf[lengthOffset:lengthOffset+4], origLength)

	rec := raw.PreviewRecord{
		Tag:               "PreviewImage",
		Start:             start,
		Length:            origLength,
		LengthFieldOffset: lengthOffset,
	}
	newData := []byte{1, 2, 3, 4, 5}
	overwrite(binary.LittleEndian, donorBuf, rec, newData)

	if got := donorBuf[start : start+len(newData)]; !bytes.Equal(got, newData) {
		t.Errorf("overwritten bytes = %v, want %v", got, newData)
	}
	for i := start + len(newData); i < start+origLength; i++ {
		if donorBuf[i] != 0 {
			t.Errorf("donorBuf[%d] = %d, want 0 (slack not zero-filled)", i, donorBuf[i])
		}
	}
	gotLen := binary.LittleEndian.Uint32(donorBuf[lengthOffset : lengthOffset+4])
	if gotLen != uint32(len(newData)) {
		t.Errorf("length field = %d, want %d", gotLen, len(newData))
	}
	// Bytes after the original record's end must be untouched.
	if donorBuf[start+origLength] != 0x00 {
		t.Errorf("donorBuf[%d] beyond record was modified", start+origLength)
	}
}
