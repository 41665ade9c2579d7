/*
DESCRIPTION
  srcimage.go loads a source image in any of the shapes
  accepts: an 8- or 16-bit-per-channel color image, a 2-D grayscale
  image, an already-bayered (rows, columns) uint16 plane, or a
  per-channel RGGB (rows/2, columns/2, 4) uint16 array.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package srcimage loads a source image for the synthesis pipeline and
// classifies it into one of the shapes the pixel pipeline dispatches on, so it
// package can dispatch to the right stage sequence.
package srcimage

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ausocean/nefsynth/raw"
)

// Kind classifies the shape of a loaded source.
type Kind int

const (
	// KindColor is a 3-channel color image, BGR channel order, 8 or 16
	// bits per channel.
	KindColor Kind = iota

	// KindGray is a single-channel grayscale image, 8 or 16 bits per
	// sample.
	KindGray

	// KindBayerPlane is an already-bayered (rows, columns) uint16 plane,
	// values strictly less than raw.MaxSampleValue+1.
	KindBayerPlane

	// KindPerChannelRGGB is a per-channel RGGB array: four half-resolution
	// planes (R, G1, G2, B), each (rows/2, columns/2) uint16.
	KindPerChannelRGGB
)

// Source is a loaded, classified source image.
type Source struct {
	Kind Kind

	// Mat holds the decoded pixel buffer for KindColor and KindGray.
	// Callers must call Close when done.
	Mat gocv.Mat

	// Bayer holds the plane for KindBayerPlane.
	Bayer *raw.BayerPlane

	// Channels holds the four half-resolution planes, in R, G1, G2, B
	// order, for KindPerChannelRGGB.
	Channels [4][]uint16

	// ChannelDims is the full Bayer-plane dimensions implied by the
	// per-channel data (each channel plane is ChannelDims/2 per axis),
	// valid for KindPerChannelRGGB.
	ChannelDims raw.Dimensions
}

// Close releases any native resources held by s.
func (s *Source) Close() {
	switch s.Kind {
	case KindColor, KindGray:
		s.Mat.Close()
	}
}

// Dims reports the source's pixel dimensions, regardless of Kind.
func (s *Source) Dims() raw.Dimensions {
	switch s.Kind {
	case KindColor, KindGray:
		return raw.Dimensions{Columns: s.Mat.Cols(), Rows: s.Mat.Rows()}
	case KindBayerPlane:
		return s.Bayer.Dims
	case KindPerChannelRGGB:
		return s.ChannelDims
	default:
		return raw.Dimensions{}
	}
}

// FromBayerPlane wraps an already-bayered plane as a Source, validating
// that every sample fits in 14 bits.
func FromBayerPlane(dims raw.Dimensions, pix []uint16) (*Source, error) {
	if !dims.Valid() || dims.Columns%2 != 0 || dims.Rows%2 != 0 {
		return nil, raw.New(raw.KindSourceFormat, "dims", "bayer plane dimensions must be positive and even")
	}
	if len(pix) != dims.Columns*dims.Rows {
		return nil, raw.New(raw.KindSourceFormat, "pix", fmt.Sprintf("expected %d samples, got %d", dims.Columns*dims.Rows, len(pix)))
	}
	for _, v := range pix {
		if v > raw.MaxSampleValue {
			return nil, raw.New(raw.KindSourceFormat, "pix", fmt.Sprintf("sample %d exceeds 14-bit range", v))
		}
	}
	return &Source{Kind: KindBayerPlane, Bayer: &raw.BayerPlane{Dims: dims, Pix: pix}}, nil
}

// FromPerChannelRGGB wraps four half-resolution channel planes (in R,
// G1, G2, B order) as a Source. dims is the full plane's dimensions;
// each channel must hold (dims.Rows/2)*(dims.Columns/2) samples.
func FromPerChannelRGGB(dims raw.Dimensions, r, g1, g2, b []uint16) (*Source, error) {
	if !dims.Valid() || dims.Columns%2 != 0 || dims.Rows%2 != 0 {
		return nil, raw.New(raw.KindSourceFormat, "dims", "per-channel dimensions must be positive and even")
	}
	want := (dims.Rows / 2) * (dims.Columns / 2)
	for i, ch := range [][]uint16{r, g1, g2, b} {
		if len(ch) != want {
			return nil, raw.New(raw.KindSourceFormat, "channel", fmt.Sprintf("channel %d: expected %d samples, got %d", i, want, len(ch)))
		}
		for _, v := range ch {
			if v > raw.MaxSampleValue {
				return nil, raw.New(raw.KindSourceFormat, "channel", fmt.Sprintf("channel %d: sample %d exceeds 14-bit range", i, v))
			}
		}
	}
	return &Source{
		Kind:        KindPerChannelRGGB,
		Channels:    [4][]uint16{r, g1, g2, b},
		ChannelDims: dims,
	}, nil
}

// FromFile loads and classifies a color or grayscale source image from
// disk. TIFF and BMP are decoded with golang.org/x/image so that
// 16-bit-per-channel sources are preserved at full precision; JPEG and
// PNG use the standard library; any other extension falls back to
// gocv's own codecs via IMRead.
func FromFile(path string) (*Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".tif", ".tiff", ".bmp", ".jpg", ".jpeg", ".png":
		f, err := os.Open(path)
		if err != nil {
			return nil, raw.Wrap(raw.KindIO, "path", err, "opening source image")
		}
		defer f.Close()

		var img image.Image
		switch ext {
		case ".tif", ".tiff":
			img, err = tiff.Decode(f)
		case ".bmp":
			img, err = bmp.Decode(f)
		case ".jpg", ".jpeg":
			img, err = jpeg.Decode(f)
		case ".png":
			img, err = png.Decode(f)
		}
		if err != nil {
			return nil, raw.Wrap(raw.KindSourceFormat, "path", err, "decoding source image")
		}
		return fromImage(img)

	default:
		mat := gocv.IMRead(path, gocv.IMReadUnchanged)
		if mat.Empty() {
			return nil, raw.New(raw.KindSourceFormat, "path", "gocv could not decode source image: "+path)
		}
		if mat.Channels() == 1 {
			return &Source{Kind: KindGray, Mat: mat}, nil
		}
		return &Source{Kind: KindColor, Mat: mat}, nil
	}
}

// fromImage classifies a decoded image.Image and copies it into a gocv
// Mat, preserving the true bit depth of the concrete decoded type
// rather than funneling everything through a lossy 8-bit conversion.
func fromImage(img image.Image) (*Source, error) {
	b := img.Bounds()
	rows, cols := b.Dy(), b.Dx()
	if rows == 0 || cols == 0 {
		return nil, raw.New(raw.KindSourceFormat, "image", "source image has zero dimensions")
	}

	switch px := img.(type) {
	case *image.Gray:
		mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC1)
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				mat.SetUCharAt(y, x, px.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return &Source{Kind: KindGray, Mat: mat}, nil

	case *image.Gray16:
		mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV16UC1)
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				mat.SetUShortAt(y, x, px.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return &Source{Kind: KindGray, Mat: mat}, nil

	default:
		if has16BitPrecision(img) {
			mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV16UC3)
			for y := 0; y < rows; y++ {
				for x := 0; x < cols; x++ {
					r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
					mat.SetUShortAt3(y, x, 0, uint16(bl))
					mat.SetUShortAt3(y, x, 1, uint16(g))
					mat.SetUShortAt3(y, x, 2, uint16(r))
				}
			}
			return &Source{Kind: KindColor, Mat: mat}, nil
		}

		mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				mat.SetUCharAt3(y, x, 0, uint8(bl>>8))
				mat.SetUCharAt3(y, x, 1, uint8(g>>8))
				mat.SetUCharAt3(y, x, 2, uint8(r>>8))
			}
		}
		return &Source{Kind: KindColor, Mat: mat}, nil
	}
}

// has16BitPrecision reports whether img's concrete type stores samples
// at greater than 8-bit precision (image.RGBA64 / image.NRGBA64), so
// the caller knows whether to build a 16- or 8-bit Mat without losing
// or fabricating precision.
func has16BitPrecision(img image.Image) bool {
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64:
		return true
	default:
		return false
	}
}
