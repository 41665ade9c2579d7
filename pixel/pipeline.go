/*
DESCRIPTION
  pipeline.go implements the pixel pipeline: the ordered
  stage sequence converting a loaded source image into a 14-bit RGGB
  Bayer plane, plus the grayscale and pre-bayered fast paths of §6.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pixel implements the source-to-sensor pixel pipeline: color
// image geometry fit, HSV adjustment, Bayer demultiplexing, and the
// linear-light/white-balance/quantization transforms that turn an
// ordinary image into 14-bit Bayer sensor data.
package pixel

import (
	"image"
	stdmath "math"
	"time"

	"gocv.io/x/gocv"

	"github.com/ausocean/nefsynth/config"
	"github.com/ausocean/nefsynth/geometry"
	"github.com/ausocean/nefsynth/raw"
	"github.com/ausocean/nefsynth/srcimage"
)

// Result is the pipeline's output: the Bayer plane the predictor codec
// consumes, plus, when available, an 8-bit BGR color Mat suitable for
// preview regeneration. Callers must call
// Result.Close when done.
type Result struct {
	Bayer   *raw.BayerPlane
	Preview gocv.Mat

	// HasPreview reports whether Preview holds a usable color image.
	// It is false for the grayscale and pre-bayered fast paths, which
	// have no color rendition to offer the preview regenerator.
	HasPreview bool
}

// Close releases Preview's native resources, if any.
func (r *Result) Close() {
	if r.HasPreview {
		r.Preview.Close()
	}
}

// Run converts src into the Bayer plane donor.RawDimensions requires,
// following the full stage sequence for color sources, or one
// of the fast paths of §6 for grayscale and pre-bayered sources.
func Run(cfg *config.Context, src *srcimage.Source, donor raw.DonorMetadata) (*Result, error) {
	switch src.Kind {
	case srcimage.KindBayerPlane:
		plane := fitNoResizePlane(src.Dims(), donor.RawDimensions, cfg.HorzAlign, cfg.VertAlign,
			func(row, col int) uint16 { return src.Bayer.At(row, col) })
		addBlackLevel(plane, donor.BlackLevel)
		return &Result{Bayer: plane}, nil

	case srcimage.KindPerChannelRGGB:
		plane := fitNoResizePlane(src.Dims(), donor.RawDimensions, cfg.HorzAlign, cfg.VertAlign,
			perChannelSampler(src))
		addBlackLevel(plane, donor.BlackLevel)
		return &Result{Bayer: plane}, nil

	case srcimage.KindGray:
		plane, err := runGrayscale(cfg, donor, src)
		if err != nil {
			return nil, err
		}
		return &Result{Bayer: plane}, nil

	default:
		return runColor(cfg, donor, src)
	}
}

// perChannelSampler returns a (row, col) -> sample function reading
// from src's four half-resolution RGGB channel planes.
func perChannelSampler(src *srcimage.Source) func(row, col int) uint16 {
	halfCols := src.ChannelDims.Columns / 2
	return func(row, col int) uint16 {
		idx := (row/2)*halfCols + col/2
		switch raw.ColorAt(row, col) {
		case raw.SiteRed:
			return src.Channels[0][idx]
		case raw.SiteGreen1:
			return src.Channels[1][idx]
		case raw.SiteGreen2:
			return src.Channels[2][idx]
		default:
			return src.Channels[3][idx]
		}
	}
}

// fitNoResizePlane places a srcDims-shaped plane onto a tgtDims-shaped
// Bayer plane using crop/placement only (resize geometry NONE, no
// aspect lock), matching the original array-source handling. Cells the
// source doesn't cover are left at zero, to be raised to blackLevel by
// the caller.
func fitNoResizePlane(srcDims, tgtDims raw.Dimensions, horz, vert raw.Alignment, at func(row, col int) uint16) *raw.BayerPlane {
	plane := raw.NewBayerPlane(tgtDims)
	plan := geometry.Plan(srcDims, tgtDims, raw.ResizeNone, false, horz, vert)

	if plan.NoOp {
		for row := 0; row < tgtDims.Rows; row++ {
			for col := 0; col < tgtDims.Columns; col++ {
				plane.Set(row, col, at(row, col))
			}
		}
		return plane
	}

	cropX0, cropY0 := 0, 0
	if plan.Crop != nil {
		cropX0, cropY0 = plan.Crop.X0, plan.Crop.Y0
	}
	for row := 0; row < tgtDims.Rows; row++ {
		srow := row - plan.PlacementY
		if srow < 0 || srow+cropY0 >= srcDims.Rows {
			continue
		}
		for col := 0; col < tgtDims.Columns; col++ {
			scol := col - plan.PlacementX
			if scol < 0 || scol+cropX0 >= srcDims.Columns {
				continue
			}
			plane.Set(row, col, at(srow+cropY0, scol+cropX0))
		}
	}
	return plane
}

// addBlackLevel raises every sample in plane by level, mirroring
// stage 11 and the "Pre-Bayer Numpy, size match" seed test in §8.
func addBlackLevel(plane *raw.BayerPlane, level int) {
	for i, v := range plane.Pix {
		s := int(v) + level
		if s > 0xffff {
			s = 0xffff
		}
		plane.Pix[i] = uint16(s)
	}
}

// runGrayscale implements the grayscale fast path: geometry fit, then
// stages 1 (promotion), 3 (normalize), 10 (quantize) and 11 (black
// level), skipping the color-specific stages 4–9, and replicating each
// sample across all four sites of its Bayer cell is unnecessary here
// because the source already covers every (row, col) at full
// resolution, copied unchanged after the dimension fit.
func runGrayscale(cfg *config.Context, donor raw.DonorMetadata, src *srcimage.Source) (*raw.BayerPlane, error) {
	promoted := promote16(src.Mat)
	defer promoted.Close()

	srcDims := raw.Dimensions{Columns: promoted.Cols(), Rows: promoted.Rows()}
	fitted, err := applyGeometry(cfg, promoted, srcDims, donor.RawDimensions)
	if err != nil {
		return nil, err
	}
	defer fitted.Close()

	data, err := fitted.DataPtrUShort()
	if err != nil {
		return nil, raw.Wrap(raw.KindSourceFormat, "source", err, "reading grayscale pixel buffer")
	}

	return quantizeGrayPlane(donor.RawDimensions, data, donor.BlackLevel), nil
}

// quantizeGrayPlane builds a Bayer plane by quantizing a full-resolution
// 16-bit luminance buffer directly to every (row, col) sample, with no
// per-site white-balance multiplier. Shared by the grayscale fast path
// and the replicate-across-sites route a color source takes under
// cfg.Grayscale.
func quantizeGrayPlane(dims raw.Dimensions, data []uint16, blackLevel int) *raw.BayerPlane {
	plane := raw.NewBayerPlane(dims)
	scale := float64(raw.MaxSampleValue - blackLevel)
	for i, v := range data {
		q := roundF(float64(v) / 65535.0 * scale)
		if q < 0 {
			q = 0
		}
		if q > raw.MaxSampleValue {
			q = raw.MaxSampleValue
		}
		plane.Pix[i] = uint16(q + blackLevel)
	}
	return plane
}

// runColor implements the full stage sequence for a color
// source: geometry fit, HSV adjust, Bayer demux, then the linear-light
// and white-balance transforms on the Bayer plane itself.
func runColor(cfg *config.Context, donor raw.DonorMetadata, src *srcimage.Source) (*Result, error) {
	log := cfg.Logger

	t0 := time.Now()
	promoted := promote16(src.Mat)
	log.Debug("pixel pipeline stage", "stage", "promote16", "elapsed", time.Since(t0))

	t0 = time.Now()
	srcDims := raw.Dimensions{Columns: promoted.Cols(), Rows: promoted.Rows()}
	fitted, err := applyGeometry(cfg, promoted, srcDims, donor.RawDimensions)
	promoted.Close()
	if err != nil {
		return nil, err
	}
	log.Debug("pixel pipeline stage", "stage", "geometry", "elapsed", time.Since(t0))

	t0 = time.Now()
	normalized := gocv.NewMat()
	fitted.ConvertToWithParams(&normalized, gocv.MatTypeCV32FC3, 1.0/65535.0, 0)
	fitted.Close()
	log.Debug("pixel pipeline stage", "stage", "normalize", "elapsed", time.Since(t0))

	t0 = time.Now()
	if err := applyHSV(&normalized, cfg.SrcHSL); err != nil {
		normalized.Close()
		return nil, err
	}
	log.Debug("pixel pipeline stage", "stage", "hsv-adjust", "elapsed", time.Since(t0))

	sixteen := gocv.NewMat()
	normalized.ConvertToWithParams(&sixteen, gocv.MatTypeCV16UC3, 65535, 0)
	preview := gocv.NewMat()
	normalized.ConvertToWithParams(&preview, gocv.MatTypeCV8UC3, 255, 0)
	normalized.Close()

	if cfg.Grayscale {
		t0 = time.Now()
		plane, err := replicateGray(sixteen, donor.RawDimensions, donor.BlackLevel)
		sixteen.Close()
		if err != nil {
			preview.Close()
			return nil, err
		}
		log.Debug("pixel pipeline stage", "stage", "grayscale-replicate", "elapsed", time.Since(t0))
		return &Result{Bayer: plane, Preview: preview, HasPreview: true}, nil
	}

	t0 = time.Now()
	plane, err := demuxBayer(sixteen, donor.RawDimensions)
	sixteen.Close()
	if err != nil {
		preview.Close()
		return nil, err
	}
	log.Debug("pixel pipeline stage", "stage", "bayer-demux", "elapsed", time.Since(t0))

	t0 = time.Now()
	wb := donor.WB
	if cfg.WBMultipliersOverride != nil {
		wb = *cfg.WBMultipliersOverride
	}
	applyLinearAndWB(plane, wb, cfg.SrgbToLinear, donor.BlackLevel)
	log.Debug("pixel pipeline stage", "stage", "linear-wb-quantize", "elapsed", time.Since(t0))

	return &Result{Bayer: plane, Preview: preview, HasPreview: true}, nil
}

// replicateGray converts mat's color data to a single luminance channel
// and quantizes it directly into the Bayer plane, so every site carries
// its own pixel's luminance rather than one RGGB channel reading. This
// is the route a color source takes under cfg.Grayscale.
func replicateGray(mat gocv.Mat, dims raw.Dimensions, blackLevel int) (*raw.BayerPlane, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	data, err := gray.DataPtrUShort()
	if err != nil {
		return nil, raw.Wrap(raw.KindSourceFormat, "image", err, "reading grayscale pixel buffer")
	}
	return quantizeGrayPlane(dims, data, blackLevel), nil
}

// promote16 returns a 16-bit copy of mat, scaling 8-bit samples by 256
// or a clone if mat is already 16-bit.
func promote16(mat gocv.Mat) gocv.Mat {
	switch mat.Type() {
	case gocv.MatTypeCV8UC3:
		out := gocv.NewMat()
		mat.ConvertToWithParams(&out, gocv.MatTypeCV16UC3, 256, 0)
		return out
	case gocv.MatTypeCV8UC1:
		out := gocv.NewMat()
		mat.ConvertToWithParams(&out, gocv.MatTypeCV16UC1, 256, 0)
		return out
	default:
		return mat.Clone()
	}
}

// applyGeometry resizes, crops, and pads mat to tgtDims per the plan
// geometry.Plan computes for srcDims -> tgtDims, filling any margin
// with cfg.BorderColor. The returned Mat is always
// a new Mat the caller owns; mat itself is never closed or mutated.
func applyGeometry(cfg *config.Context, mat gocv.Mat, srcDims, tgtDims raw.Dimensions) (gocv.Mat, error) {
	plan := geometry.Plan(srcDims, tgtDims, cfg.ResizeGeometry, cfg.MaintainAspectRatio, cfg.HorzAlign, cfg.VertAlign)
	if plan.NoOp {
		return mat.Clone(), nil
	}

	cur := mat
	owned := false

	if plan.Resize != nil {
		resized := gocv.NewMat()
		gocv.Resize(cur, &resized, image.Pt(plan.Resize.Columns, plan.Resize.Rows), 0, 0, resamplerFlag(cfg.Resampler))
		if owned {
			cur.Close()
		}
		cur, owned = resized, true
	}

	if plan.Crop != nil {
		region := cur.Region(image.Rect(plan.Crop.X0, plan.Crop.Y0, plan.Crop.X1, plan.Crop.Y1))
		cropped := region.Clone()
		region.Close()
		if owned {
			cur.Close()
		}
		cur, owned = cropped, true
	}

	newDims := raw.Dimensions{Columns: cur.Cols(), Rows: cur.Rows()}
	if newDims == tgtDims && plan.PlacementX == 0 && plan.PlacementY == 0 {
		return cur, nil
	}

	canvas := gocv.NewMatWithSize(tgtDims.Rows, tgtDims.Columns, cur.Type())
	canvas.SetTo(fillScalar(cur.Type(), cur.Channels(), cfg.BorderColor))
	roi := canvas.Region(image.Rect(plan.PlacementX, plan.PlacementY, plan.PlacementX+newDims.Columns, plan.PlacementY+newDims.Rows))
	cur.CopyTo(&roi)
	roi.Close()
	if owned {
		cur.Close()
	}
	return canvas, nil
}

// fillScalar builds the border-fill Scalar for a Mat of the given type
// and channel count. 16-bit Mats scale the 8-bit configured color by
// 256, mirroring the donor's own border-fill convention for promoted
// images.
func fillScalar(mt gocv.MatType, channels int, c raw.RGB8) gocv.Scalar {
	scale := 1.0
	if mt == gocv.MatTypeCV16UC3 || mt == gocv.MatTypeCV16UC1 {
		scale = 256
	}
	if channels == 1 {
		lum := (float64(c.R) + float64(c.G) + float64(c.B)) / 3 * scale
		return gocv.NewScalar(lum, lum, lum, 0)
	}
	return gocv.NewScalar(float64(c.B)*scale, float64(c.G)*scale, float64(c.R)*scale, 0)
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

// applyHSV converts mat to HSV, scales each channel by hsl (hue,
// saturation, "lightness" — actually value), and converts back to BGR,
// in place.
func applyHSV(mat *gocv.Mat, hsl [3]float64) error {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(*mat, &hsv, gocv.ColorBGRToHSV)

	data, err := hsv.DataPtrFloat32()
	if err != nil {
		return raw.Wrap(raw.KindSourceFormat, "image", err, "reading HSV pixel buffer")
	}
	for i := 0; i+2 < len(data); i += 3 {
		data[i] *= float32(hsl[0])
		data[i+1] *= float32(hsl[1])
		data[i+2] *= float32(hsl[2])
	}

	gocv.CvtColor(hsv, mat, gocv.ColorHSVToBGR)
	return nil
}

// demuxBayer emits a single-plane RGGB
// array from a 16-bit BGR color Mat, per the site layout in §3.
func demuxBayer(mat gocv.Mat, dims raw.Dimensions) (*raw.BayerPlane, error) {
	data, err := mat.DataPtrUShort()
	if err != nil {
		return nil, raw.Wrap(raw.KindSourceFormat, "image", err, "reading color pixel buffer")
	}
	plane := raw.NewBayerPlane(dims)
	for row := 0; row < dims.Rows; row++ {
		for col := 0; col < dims.Columns; col++ {
			base := (row*dims.Columns + col) * 3
			var v uint16
			switch raw.ColorAt(row, col) {
			case raw.SiteRed:
				v = data[base+2] // BGR order: R is the third sample.
			case raw.SiteBlue:
				v = data[base+0]
			default:
				v = data[base+1] // Both green sites read the G channel.
			}
			plane.Set(row, col, v)
		}
	}
	return plane, nil
}

// applyLinearAndWB applies the remaining per-sample transforms directly on the
// Bayer plane's integer samples.
func applyLinearAndWB(plane *raw.BayerPlane, wb raw.WhiteBalance, linear bool, blackLevel int) {
	cols := plane.Dims.Columns
	scale := float64(raw.MaxSampleValue - blackLevel)
	for i, v := range plane.Pix {
		f := float64(v) / 65535.0 // Stage 7: re-normalize to float.

		if linear { // Stage 8: sRGB -> linear.
			f = srgbToLinear(f)
		}

		row, col := i/cols, i%cols // Stage 9: inverse white balance.
		switch raw.ColorAt(row, col) {
		case raw.SiteRed:
			f /= wb.RedMul
		case raw.SiteBlue:
			f /= wb.BlueMul
		}

		q := roundF(f * scale) // Stage 10: quantize to 14-bit.
		if q < 0 {
			q = 0
		}
		if q > raw.MaxSampleValue {
			q = raw.MaxSampleValue
		}
		plane.Pix[i] = uint16(q + blackLevel) // Stage 11: black-level bias.
	}
}

func srgbToLinear(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return stdmath.Pow((v+0.055)/1.055, 2.4)
}

func roundF(v float64) int { return int(stdmath.Round(v)) }
