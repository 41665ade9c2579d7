/*
DESCRIPTION
  preview.go regenerates a single embedded preview JPEG in place,
  following the decode-for-dimensions / resize / quality-step /
  placeholder-fallback algorithm.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package preview regenerates a donor NEF's embedded preview JPEGs
// from the synthesis source image, overwriting each in place without
// growing the donor container.
package preview

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"gocv.io/x/gocv"

	"github.com/ausocean/nefsynth/config"
	"github.com/ausocean/nefsynth/raw"
)

// minQuality and qualityStep bound the quality-stepped JPEG re-encode
// step 3; the starting quality comes from
// config.Context.PreviewJPEGQuality.
const (
	minQuality         = 20
	qualityStep        = 10
	placeholderQuality = 50
)

// Regenerate produces a new JPEG for rec from source, no larger than
// rec's original byte budget, and overwrites it in place within
// donorBuf. donorBuf is mutated directly; its length is never changed.
// If even a placeholder can't fit the budget, Regenerate logs a
// warning and leaves donorBuf untouched for this record.
func Regenerate(cfg *config.Context, order binary.ByteOrder, donorBuf []byte, rec raw.PreviewRecord, source gocv.Mat) error {
	dims, err := decodeDimensions(donorBuf, rec)
	if err != nil {
		return err
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(source, &resized, image.Pt(dims.Columns, dims.Rows), 0, 0, resamplerFlag(cfg.Resampler))

	budget := int(rec.Length)

	if data, ok := encodeStepped(resized, cfg.PreviewJPEGQuality, budget); ok {
		overwrite(order, donorBuf, rec, data)
		return nil
	}

	placeholder := buildPlaceholder(dims, rec.Tag)
	defer placeholder.Close()

	if data, ok := encodeAt(placeholder, placeholderQuality, budget); ok {
		overwrite(order, donorBuf, rec, data)
		return nil
	}

	cfg.Logger.Warning("preview budget too small even for placeholder, skipping", "tag", rec.Tag, "budget", budget)
	return nil
}

// decodeDimensions reads just enough of the donor's existing preview
// JPEG to learn its (cols, rows), since Nikon stores no preview
// dimensions elsewhere.
func decodeDimensions(donorBuf []byte, rec raw.PreviewRecord) (raw.Dimensions, error) {
	if rec.Start < 0 || rec.Length <= 0 || rec.Start+rec.Length > int64(len(donorBuf)) {
		return raw.Dimensions{}, raw.New(raw.KindDonorFormat, "preview", fmt.Sprintf("%s: record out of bounds", rec.Tag))
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(donorBuf[rec.Start : rec.Start+rec.Length]))
	if err != nil {
		return raw.Dimensions{}, raw.Wrap(raw.KindDonorFormat, "preview", err, fmt.Sprintf("decoding %s dimensions", rec.Tag))
	}
	return raw.Dimensions{Columns: cfg.Width, Rows: cfg.Height}, nil
}

// encodeStepped steps the JPEG quality down from the starting quality to
// 20 in steps of 10, returning the first encoding that fits budget.
func encodeStepped(mat gocv.Mat, startQuality, budget int) ([]byte, bool) {
	for q := startQuality; q >= minQuality; q -= qualityStep {
		if data, ok := encodeAt(mat, q, budget); ok {
			return data, true
		}
	}
	return nil, false
}

func encodeAt(mat gocv.Mat, quality, budget int) ([]byte, bool) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{
		gocv.IMWriteJpegQuality, quality,
		gocv.IMWriteJpegSamplingFactor, gocv.IMWriteJpegSamplingFactor422,
	})
	if err != nil {
		return nil, false
	}
	defer buf.Close()
	data := buf.GetBytes()
	if len(data) > budget {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// buildPlaceholder draws a black image of dims with a single centered
// text line "<tagName>, C x R".
func buildPlaceholder(dims raw.Dimensions, tag string) gocv.Mat {
	mat := gocv.NewMatWithSize(dims.Rows, dims.Columns, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(0, 0, 0, 0))

	text := fmt.Sprintf("%s, %d x %d", tag, dims.Columns, dims.Rows)
	const fontScale = 1.5
	const thickness = 2
	size, _ := gocv.GetTextSize(text, gocv.FontHersheyPlain, fontScale, thickness)
	origin := image.Pt((dims.Columns-size.X)/2, (dims.Rows+size.Y)/2)
	gocv.PutText(&mat, text, origin, gocv.FontHersheyPlain, fontScale, color.RGBA{R: 255, G: 255, B: 255}, thickness)
	return mat
}

// overwrite copies data over donorBuf at rec.Start, zero-fills any
// slack out to the record's original end, and rewrites the length
// field.
func overwrite(order binary.ByteOrder, donorBuf []byte, rec raw.PreviewRecord, data []byte) {
	n := copy(donorBuf[rec.Start:], data)
	for i := rec.Start + int64(n); i < rec.Start+rec.Length; i++ {
		donorBuf[i] = 0
	}
	order.PutUint32(donorBuf[rec.LengthFieldOffset:rec.LengthFieldOffset+4], uint32(len(data)))
}

func resamplerFlag(r raw.Resampler) gocv.InterpolationFlags {
	switch r {
	case raw.ResamplerCubic:
		return gocv.InterpolationCubic
	case raw.ResamplerArea:
		return gocv.InterpolationArea
	case raw.ResamplerLinear:
		return gocv.InterpolationLinear
	case raw.ResamplerNearest:
		return gocv.InterpolationNearestNeighbor
	default:
		return gocv.InterpolationLanczos4
	}
}
