/*
DESCRIPTION
  assemble.go builds the final synthesized NEF container byte-for-byte:
  the donor's own bytes up to the raw strip, followed by the newly
  compressed strip, with the strip byte count field patched in place,
  It also provides the atomic write-to-disk step.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package assemble builds a synthesized NEF container from a donor's
// preserved prefix bytes, a freshly compressed raw strip, and
// regenerated preview JPEGs, then writes the result atomically.
package assemble

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ausocean/nefsynth/raw"
)

// chmodSupported mirrors an existing output file's permissions onto the
// temporary file before rename; skipped on platforms where Chmod on an
// open handle isn't meaningful.
const chmodSupported = runtime.GOOS != "windows"

// ByteOrder returns the binary.ByteOrder the donor container was
// written in, for patching length fields in place.
func ByteOrder(meta *raw.DonorMetadata) binary.ByteOrder {
	if meta.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Build returns a new buffer holding donorBuf's bytes up to
// meta.StripOffset, followed by compressedStrip, with the strip byte
// count field patched to len(compressedStrip). The bytes before
// StripOffset — including every preview record — are copied verbatim
// and keep their original absolute offsets, so preview regeneration
// may run before or after Build.
func Build(donorBuf []byte, meta *raw.DonorMetadata, compressedStrip []byte) ([]byte, error) {
	if meta.StripOffset < 0 || meta.StripOffset > int64(len(donorBuf)) {
		return nil, raw.New(raw.KindDonorFormat, "StripOffset", "strip offset beyond donor length")
	}
	off := meta.StripByteCountFieldOffset
	if off < 0 || off+4 > meta.StripOffset {
		return nil, raw.New(raw.KindDonorFormat, "StripByteCountFieldOffset", "strip byte count field falls outside the preserved prefix")
	}

	out := make([]byte, meta.StripOffset, meta.StripOffset+int64(len(compressedStrip)))
	copy(out, donorBuf[:meta.StripOffset])
	out = append(out, compressedStrip...)

	ByteOrder(meta).PutUint32(out[off:off+4], uint32(len(compressedStrip)))
	return out, nil
}

// WriteAtomic writes data to path by writing it to a sibling temporary
// file, copying path's existing permissions where possible, and
// renaming it into place — so a crash or interrupted write never
// leaves a truncated or half-written output file.
func WriteAtomic(path string, data []byte) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return raw.Wrap(raw.KindIO, "path", err, "creating temporary output file")
	}
	tmpName := f.Name()

	if chmodSupported {
		f.Chmod(perm)
	}

	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil {
		os.Remove(tmpName)
		return raw.Wrap(raw.KindIO, "path", werr, "writing synthesized NEF")
	}
	if cerr != nil {
		os.Remove(tmpName)
		return raw.Wrap(raw.KindIO, "path", cerr, "closing synthesized NEF")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return raw.Wrap(raw.KindIO, "path", err, "renaming synthesized NEF into place")
	}
	return nil
}
