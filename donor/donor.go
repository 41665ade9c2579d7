/*
DESCRIPTION
  donor.go extracts the fields the synthesis pipeline requires from a donor NEF:
  byte order, camera model, raw SubIFD geometry and strip location,
  Nikon MakerNote white balance/black level/linearization seed, and
  every embedded preview JPEG's location.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package donor parses a donor NEF's TIFF/EXIF container into the
// raw.DonorMetadata the synthesis pipeline needs. It
// implements just enough of TIFF and the Nikon MakerNote convention to
// do so; it is not a general-purpose EXIF library.
package donor

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/ausocean/nefsynth/raw"
)

// Parse reads path and extracts raw.DonorMetadata. Any missing
// required field is a raw.KindDonorFormat error.
func Parse(path string) (*raw.DonorMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, raw.Wrap(raw.KindIO, "path", err, "opening donor")
	}
	defer f.Close()

	hdr, err := readHeader(f)
	if err != nil {
		return nil, err
	}
	fr := &reader{r: f, order: hdr.order}

	ifd0, err := fr.readIFD(int64(hdr.ifd0Offset))
	if err != nil {
		return nil, raw.Wrap(raw.KindDonorFormat, "ifd0", err, "reading primary IFD")
	}

	meta := &raw.DonorMetadata{BigEndian: hdr.bigEndian}

	if e, ok := find(ifd0, tagModel); ok {
		model, err := fr.ascii(e)
		if err != nil {
			return nil, raw.Wrap(raw.KindDonorFormat, "Model", err, "reading camera model")
		}
		meta.CameraModel = model
	} else {
		return nil, raw.New(raw.KindDonorFormat, "Model", "missing camera model tag")
	}

	subIFDOffsets, err := subIFDOffsets(fr, ifd0)
	if err != nil {
		return nil, err
	}

	if err := fillRawSubIFD(fr, subIFDOffsets, meta); err != nil {
		return nil, err
	}

	if err := fillMakerNote(fr, ifd0, meta); err != nil {
		return nil, err
	}

	previews, err := findPreviews(fr, ifd0, subIFDOffsets)
	if err != nil {
		return nil, err
	}
	if len(previews) == 0 {
		return nil, raw.New(raw.KindDonorFormat, "previews", "no supported preview tag found")
	}
	meta.Previews = previews

	return meta, nil
}

type header struct {
	order      binary.ByteOrder
	bigEndian  bool
	ifd0Offset uint32
}

// readHeader reads the 8-byte TIFF header at the start of the file:
// byte-order mark, magic value, and IFD0 offset.
func readHeader(f *os.File) (header, error) {
	buf := make([]byte, 8)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return header{}, raw.Wrap(raw.KindDonorFormat, "header", err, "reading TIFF header")
	}
	var order binary.ByteOrder
	var bigEndian bool
	switch {
	case buf[0] == 'I' && buf[1] == 'I':
		order = binary.LittleEndian
	case buf[0] == 'M' && buf[1] == 'M':
		order, bigEndian = binary.BigEndian, true
	default:
		return header{}, raw.New(raw.KindDonorFormat, "header", "not a TIFF byte-order mark")
	}
	if order.Uint16(buf[2:4]) != 0x2A {
		return header{}, raw.New(raw.KindDonorFormat, "header", "bad TIFF magic value")
	}
	return header{order: order, bigEndian: bigEndian, ifd0Offset: order.Uint32(buf[4:8])}, nil
}

// subIFDOffsets returns the file offsets listed in IFD0's SubIFDs tag.
func subIFDOffsets(fr *reader, ifd0 []entry) ([]int64, error) {
	e, ok := find(ifd0, tagSubIFDs)
	if !ok {
		return nil, raw.New(raw.KindDonorFormat, "SubIFDs", "missing SubIFDs tag")
	}
	offs, err := readLongArray(fr, e)
	if err != nil {
		return nil, raw.Wrap(raw.KindDonorFormat, "SubIFDs", err, "reading SubIFDs offsets")
	}
	out := make([]int64, len(offs))
	for i, o := range offs {
		out[i] = int64(o)
	}
	return out, nil
}

func readLongArray(fr *reader, e entry) ([]uint32, error) {
	n := int(e.Count)
	out := make([]uint32, n)
	if e.size() <= 4 {
		for i := 0; i < n; i++ {
			out[i] = fr.order.Uint32(e.RawValue[i*4 : i*4+4])
		}
		return out, nil
	}
	buf, err := fr.readAt(e.externalOffset(fr.order), n*4)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		out[i] = fr.order.Uint32(buf[i*4 : i*4+4])
	}
	return out, nil
}

// fillRawSubIFD locates the raw pixel SubIFD (SubfileType = 0) among
// subIFDOffsets and fills in meta's geometry and strip-location fields.
func fillRawSubIFD(fr *reader, subIFDOffsets []int64, meta *raw.DonorMetadata) error {
	for _, off := range subIFDOffsets {
		entries, err := fr.readIFD(off)
		if err != nil {
			return raw.Wrap(raw.KindDonorFormat, "subIFD", err, "reading candidate raw SubIFD")
		}
		sft, ok := find(entries, tagSubfileType)
		if !ok {
			continue
		}
		v, err := fr.long(sft)
		if err != nil || v != 0 {
			continue
		}
		return fillRawFields(fr, entries, meta)
	}
	return raw.New(raw.KindDonorFormat, "SubIFDs", "no raw (SubfileType=0) SubIFD found")
}

func fillRawFields(fr *reader, entries []entry, meta *raw.DonorMetadata) error {
	bps, ok := find(entries, tagBitsPerSample)
	if !ok {
		return raw.New(raw.KindDonorFormat, "BitsPerSample", "missing")
	}
	bpsVal, err := fr.short(bps)
	if err != nil {
		return raw.Wrap(raw.KindDonorFormat, "BitsPerSample", err, "reading")
	}
	meta.BitsPerSample = int(bpsVal)
	if meta.BitsPerSample != raw.RequiredBitsPerSample {
		return raw.New(raw.KindDonorFormat, "BitsPerSample", fmt.Sprintf("expected %d, got %d", raw.RequiredBitsPerSample, meta.BitsPerSample))
	}

	// Compression is recorded but not validated here: real Nikon raw
	// SubIFDs carry a proprietary value (commonly 34713), not the
	// standard TIFF LZW/none codes. The authoritative lossless-codec
	// check is MakerNotes NEFCompression, in fillMakerNote.
	comp, ok := find(entries, tagCompression)
	if !ok {
		return raw.New(raw.KindDonorFormat, "Compression", "missing")
	}
	compVal, err := fr.short(comp)
	if err != nil {
		return raw.Wrap(raw.KindDonorFormat, "Compression", err, "reading")
	}
	meta.Compression = int(compVal)

	width, ok := find(entries, tagImageWidth)
	if !ok {
		return raw.New(raw.KindDonorFormat, "ImageWidth", "missing")
	}
	w, err := fr.long(width)
	if err != nil {
		return raw.Wrap(raw.KindDonorFormat, "ImageWidth", err, "reading")
	}

	height, ok := find(entries, tagImageLength)
	if !ok {
		return raw.New(raw.KindDonorFormat, "ImageHeight", "missing")
	}
	h, err := fr.long(height)
	if err != nil {
		return raw.Wrap(raw.KindDonorFormat, "ImageHeight", err, "reading")
	}
	meta.RawDimensions = raw.Dimensions{Columns: int(w), Rows: int(h)}
	if !meta.RawDimensions.Valid() {
		return raw.New(raw.KindDonorFormat, "RawDimensions", "non-positive raw dimensions")
	}

	so, ok := find(entries, tagStripOffsets)
	if !ok {
		return raw.New(raw.KindDonorFormat, "StripOffsets", "missing")
	}
	stripOff, err := fr.long(so)
	if err != nil {
		return raw.Wrap(raw.KindDonorFormat, "StripOffsets", err, "reading")
	}
	meta.StripOffset = int64(stripOff)

	sbc, ok := find(entries, tagStripByteCounts)
	if !ok {
		return raw.New(raw.KindDonorFormat, "StripByteCounts", "missing")
	}
	meta.StripByteCountFieldOffset = sbc.valueFieldOffset()

	return nil
}

// fillMakerNote walks from IFD0 to the Exif IFD to the Nikon MakerNote
// and fills in white balance, black level, the predictor seed, and the
// optional crop area.
func fillMakerNote(fr *reader, ifd0 []entry, meta *raw.DonorMetadata) error {
	exifPtr, ok := find(ifd0, tagExifIFDPointer)
	if !ok {
		return raw.New(raw.KindDonorFormat, "ExifIFD", "missing Exif IFD pointer")
	}
	exifOff, err := fr.long(exifPtr)
	if err != nil {
		return raw.Wrap(raw.KindDonorFormat, "ExifIFD", err, "reading Exif IFD offset")
	}
	exifEntries, err := fr.readIFD(int64(exifOff))
	if err != nil {
		return raw.Wrap(raw.KindDonorFormat, "ExifIFD", err, "reading Exif IFD")
	}

	mn, ok := find(exifEntries, tagMakerNote)
	if !ok {
		return raw.New(raw.KindDonorFormat, "MakerNote", "missing MakerNote tag")
	}
	mnAbsOffset := mn.externalOffset(fr.order)

	mnEntries, mnReader, err := readNikonMakerNote(fr.r, mnAbsOffset)
	if err != nil {
		return raw.Wrap(raw.KindDonorFormat, "MakerNote", err, "parsing Nikon MakerNote")
	}

	comp, ok := find(mnEntries, nikonTagNEFCompression)
	if !ok {
		return raw.New(raw.KindDonorFormat, "NEFCompression", "missing")
	}
	v, err := mnReader.short(comp)
	if err != nil {
		return raw.Wrap(raw.KindDonorFormat, "NEFCompression", err, "reading")
	}
	if int(v) != raw.NikonLosslessCompression {
		return raw.New(raw.KindDonorFormat, "NEFCompression", fmt.Sprintf("expected %d, got %d", raw.NikonLosslessCompression, v))
	}

	wb, ok := find(mnEntries, nikonTagWBRBLevels)
	if !ok {
		return raw.New(raw.KindDonorFormat, "WB_RBLevels", "missing")
	}
	red, blue, err := readWBPair(mnReader, wb)
	if err != nil {
		return raw.Wrap(raw.KindDonorFormat, "WB_RBLevels", err, "reading white balance multipliers")
	}
	meta.WB = raw.WhiteBalance{RedMul: red, BlueMul: blue}

	if bl, ok := find(mnEntries, nikonTagBlackLevel); ok {
		v, err := mnReader.short(bl)
		if err != nil {
			return raw.Wrap(raw.KindDonorFormat, "BlackLevel", err, "reading")
		}
		meta.BlackLevel = int(v)
	}

	lt, ok := find(mnEntries, nikonTagLinearizationBlob)
	if !ok {
		return raw.New(raw.KindDonorFormat, "NEFLinearizationTable", "missing")
	}
	blob, err := mnReader.blob(lt)
	if err != nil {
		return raw.Wrap(raw.KindDonorFormat, "NEFLinearizationTable", err, "reading")
	}
	if len(blob) < 4 {
		return raw.New(raw.KindDonorFormat, "NEFLinearizationTable", "blob shorter than 4 bytes")
	}
	meta.PredictorSeed = mnReader.order.Uint16(blob[2:4])

	if ca, ok := find(mnEntries, nikonTagCropArea); ok {
		vals, err := mnReader.shorts(ca)
		if err == nil && len(vals) == 4 {
			meta.CropArea = &raw.NikonCropArea{
				Left:    int(vals[0]),
				Top:     int(vals[1]),
				Columns: int(vals[2]),
				Rows:    int(vals[3]),
			}
		}
	}

	return nil
}

func readWBPair(r *reader, e entry) (red, blue float64, err error) {
	if e.Type != typeRational || e.Count < 2 {
		return 0, 0, errors.New("unsupported WB_RBLevels encoding")
	}
	off := e.externalOffset(r.order)
	_, _, red, err = r.rationalAt(off)
	if err != nil {
		return 0, 0, err
	}
	_, _, blue, err = r.rationalAt(off + 8)
	return red, blue, err
}

// findPreviews collects every embedded preview JPEG record this parser
// recognizes. IFD0's own JPEG-pointer pair (if present) is reported as
// "Thumbnail". Every record, the thumbnail included, takes its start
// from JpegIFOffset and its length from JpegIFByteCount. Each SubIFD beyond
// the raw SubIFD is reported in encounter order as "PreviewImage",
// "JpgFromRaw", then "OtherImage<n>" for any further SubIFDs.
func findPreviews(fr *reader, ifd0 []entry, subIFDOffsets []int64) ([]raw.PreviewRecord, error) {
	var out []raw.PreviewRecord

	if rec, ok, err := previewFromIFD(fr, ifd0, "Thumbnail"); err != nil {
		return nil, err
	} else if ok {
		out = append(out, rec)
	}

	names := []string{"PreviewImage", "JpgFromRaw", "OtherImage"}
	first := len(out) // SubIFD previews are named from here, past any Thumbnail.
	otherCount := 0
	for _, off := range subIFDOffsets {
		entries, err := fr.readIFD(off)
		if err != nil {
			continue
		}
		if sft, ok := find(entries, tagSubfileType); ok {
			if v, err := fr.long(sft); err == nil && v == 0 {
				continue // the raw SubIFD, already consumed.
			}
		}
		name := "OtherImage"
		if len(out)-first < len(names) {
			name = names[len(out)-first]
		}
		if name == "OtherImage" {
			otherCount++
			name = fmt.Sprintf("OtherImage%d", otherCount)
		}
		if rec, ok, err := previewFromIFD(fr, entries, name); err != nil {
			return nil, err
		} else if ok {
			out = append(out, rec)
		}
	}

	return out, nil
}

// previewFromIFD builds a raw.PreviewRecord from a JpegIFOffset/
// JpegIFByteCount pair in entries, if both tags are present.
func previewFromIFD(fr *reader, entries []entry, tag string) (raw.PreviewRecord, bool, error) {
	startEntry, ok := find(entries, tagJpegIFOffset)
	if !ok {
		return raw.PreviewRecord{}, false, nil
	}
	lenEntry, ok := find(entries, tagJpegIFByteCount)
	if !ok {
		return raw.PreviewRecord{}, false, nil
	}
	start, err := fr.long(startEntry)
	if err != nil {
		return raw.PreviewRecord{}, false, errors.Wrapf(err, "reading %s start offset", tag)
	}
	length, err := fr.long(lenEntry)
	if err != nil {
		return raw.PreviewRecord{}, false, errors.Wrapf(err, "reading %s length", tag)
	}
	return raw.PreviewRecord{
		Tag:               tag,
		Start:             int64(start),
		Length:            int64(length),
		LengthFieldOffset: lenEntry.valueFieldOffset(),
	}, true, nil
}

// readNikonMakerNote parses the "Nikon\0" + version preamble and the
// self-contained mini-TIFF header that follows it, returning the
// MakerNote's own IFD0 entries and a reader scoped to its base offset.
func readNikonMakerNote(fr io.ReaderAt, absOffset int64) ([]entry, *reader, error) {
	probe := &reader{r: fr, order: binary.BigEndian}
	preamble, err := probe.readAt(absOffset, 10)
	if err != nil {
		return nil, nil, err
	}
	if string(preamble[0:5]) != "Nikon" {
		return nil, nil, errors.New("MakerNote missing Nikon preamble")
	}

	hdr, err := probe.readAt(absOffset+10, 8)
	if err != nil {
		return nil, nil, err
	}
	var order binary.ByteOrder
	switch {
	case hdr[0] == 'I' && hdr[1] == 'I':
		order = binary.LittleEndian
	case hdr[0] == 'M' && hdr[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, nil, errors.New("MakerNote mini-TIFF header has no byte-order mark")
	}
	ifdOff := order.Uint32(hdr[4:8])

	mr := &reader{r: fr, order: order, base: absOffset + 10}
	entries, err := mr.readIFD(int64(ifdOff))
	if err != nil {
		return nil, nil, err
	}
	return entries, mr, nil
}
