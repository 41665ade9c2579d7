/*
DESCRIPTION
  raw.go defines the shared data model for synthesizing a Nikon
  lossless-compressed raw file (NEF) from a source image and a donor
  NEF: dimensions, rectangles, Bayer planes, white balance, and the
  metadata extracted from a donor container.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package raw defines the data model shared by every component of the
// NEF synthesis pipeline: dimensions, rectangles, Bayer planes, white
// balance, and donor container metadata.
package raw

import "fmt"

// Dimensions describes a positive (columns, rows) pair.
type Dimensions struct {
	Columns int
	Rows    int
}

// Valid reports whether d has strictly positive columns and rows.
func (d Dimensions) Valid() bool { return d.Columns > 0 && d.Rows > 0 }

func (d Dimensions) String() string { return fmt.Sprintf("%dx%d", d.Columns, d.Rows) }

// Rect is a half-open rectangle: [X0,X1) x [Y0,Y1).
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Valid reports whether r has positive width and height.
func (r Rect) Valid() bool { return r.X0 < r.X1 && r.Y0 < r.Y1 }

// Width returns X1 - X0.
func (r Rect) Width() int { return r.X1 - r.X0 }

// Height returns Y1 - Y0.
func (r Rect) Height() int { return r.Y1 - r.Y0 }

// RGB8 is an 8-bit-per-channel color sample.
type RGB8 struct{ R, G, B uint8 }

// RGB16 is a 16-bit-per-channel color sample.
type RGB16 struct{ R, G, B uint16 }

// BayerPlane is a 2-D array of unsigned samples shaped (Rows, Columns)
// with both dimensions even. The RGGB layout assigns (0,0)=R, (0,1)=G1,
// (1,0)=G2, (1,1)=B and tiles across the plane.
type BayerPlane struct {
	Dims Dimensions
	// Pix holds Rows*Columns samples in row-major order.
	Pix []uint16
}

// NewBayerPlane allocates a zeroed Bayer plane of the given dimensions.
// Both dims.Columns and dims.Rows must be even; callers are expected to
// have validated this already (see geometry and pixel packages).
func NewBayerPlane(dims Dimensions) *BayerPlane {
	return &BayerPlane{Dims: dims, Pix: make([]uint16, dims.Columns*dims.Rows)}
}

// At returns the sample at (row, col).
func (b *BayerPlane) At(row, col int) uint16 { return b.Pix[row*b.Dims.Columns+col] }

// Set assigns the sample at (row, col).
func (b *BayerPlane) Set(row, col int, v uint16) { b.Pix[row*b.Dims.Columns+col] = v }

// SiteColor identifies which of the four RGGB sites a (row, col)
// coordinate is, using the (0,0)=R, (0,1)=G1, (1,0)=G2, (1,1)=B rule.
type SiteColor int

const (
	SiteRed SiteColor = iota
	SiteGreen1
	SiteGreen2
	SiteBlue
)

// ColorAt returns the RGGB site color for (row, col).
func ColorAt(row, col int) SiteColor {
	switch {
	case row%2 == 0 && col%2 == 0:
		return SiteRed
	case row%2 == 0 && col%2 == 1:
		return SiteGreen1
	case row%2 == 1 && col%2 == 0:
		return SiteGreen2
	default:
		return SiteBlue
	}
}

// WhiteBalance holds the donor's red/blue multipliers; green sites are
// never scaled.
type WhiteBalance struct {
	RedMul  float64
	BlueMul float64
}

// NikonCropArea is the donor's optional in-sensor crop rectangle, as
// read from the MakerNotes CropArea tag. It is reported on
// DonorMetadata but never alters encode dimensions (raw dimensions are
// fixed at parse time).
type NikonCropArea struct {
	Left, Top, Columns, Rows int
}

// PreviewRecord locates one embedded preview JPEG inside the donor
// container.
type PreviewRecord struct {
	// Tag is the EXIF tag family name, e.g. "JpgFromRaw", "PreviewImage",
	// "OtherImage", "Thumbnail".
	Tag string

	// Start is the absolute byte offset of the JPEG payload in the donor.
	Start int64

	// Length is the current byte length of the JPEG payload.
	Length int64

	// LengthFieldOffset is the absolute byte offset of the 4-byte
	// length field describing Length, stored in the donor's byte order.
	LengthFieldOffset int64
}

// DonorMetadata is everything extracted from a donor NEF's TIFF/EXIF
// container that the synthesis pipeline needs. It is created once by
// the donor parser and never mutated afterwards.
type DonorMetadata struct {
	BigEndian bool

	CameraModel string

	RawDimensions Dimensions

	// BitsPerSample must equal 14; the parser rejects any other value.
	BitsPerSample int

	// StripOffset is the absolute byte offset of the start of the raw
	// strip payload.
	StripOffset int64

	// StripByteCountFieldOffset is the absolute byte offset of the
	// 4-byte field holding the strip's byte count.
	StripByteCountFieldOffset int64

	Previews []PreviewRecord

	WB WhiteBalance

	// BlackLevel defaults to 0 if the donor has no BlackLevel tag.
	BlackLevel int

	// PredictorSeed is the 16-bit value read at offset 2 inside the
	// NEFLinearizationTable blob.
	PredictorSeed uint16

	// Compression must equal 3 (Nikon lossless); the parser rejects any
	// other value.
	Compression int

	// CropArea is the optional sensor crop rectangle; nil if the donor
	// has no CropArea tag.
	CropArea *NikonCropArea
}

// NikonLosslessCompression is the required MakerNotes NEFCompression
// value for a donor to be usable as a template.
const NikonLosslessCompression = 3

// RequiredBitsPerSample is the only bit depth this toolkit supports.
const RequiredBitsPerSample = 14

// MaxSampleValue is the largest representable 14-bit sample magnitude
// above black level (2^14 - 1).
const MaxSampleValue = 1<<14 - 1

// ResizeGeometry selects how the geometry planner treats a source that
// doesn't already cover the target dimensions.
type ResizeGeometry int

const (
	ResizeNone ResizeGeometry = iota
	ResizeMinimum
	ResizeFull
)

// Alignment selects where surplus/deficit pixels are placed along one
// axis.
type Alignment int

const (
	AlignCenter Alignment = iota
	AlignLeading // Left for the horizontal axis, Top for the vertical.
	AlignTrailing // Right for the horizontal axis, Bottom for the vertical.
)

// Resampler selects the interpolation kernel used for resizing.
type Resampler int

const (
	ResamplerLanczos4 Resampler = iota
	ResamplerCubic
	ResamplerArea
	ResamplerLinear
	ResamplerNearest
)

// GeometryPlan describes how a source image must be resized, cropped,
// and placed to fit a target Dimensions. A nil *GeometryPlan (or one
// with NoOp set) means the source already matches the target exactly.
type GeometryPlan struct {
	NoOp bool

	// Resize, if non-nil, is the dimensions the source must be resized
	// to before cropping.
	Resize *Dimensions

	// Crop, if non-nil, is the rectangle (in resized coordinates) to
	// keep.
	Crop *Rect

	// Placement is the (x, y) offset within the target canvas at which
	// the (possibly resized and cropped) source is placed.
	PlacementX, PlacementY int

	// TargetEqualsSource is true when no resize or crop is required and
	// the source dimensions equal target (a pure no-op plan).
	TargetEqualsSource bool
}
