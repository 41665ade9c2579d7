/*
DESCRIPTION
  config.go contains the configuration settings for nefsynth.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for nefsynth: the
// typed seam between an external CLI/flag layer (out of scope for this
// module) and the synthesis pipeline.
package config

import (
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/nefsynth/raw"
)

// Context provides the parameters relevant to a single synthesis run. A
// new Context must be passed to Validate before use; default values for
// unset fields are applied there.
type Context struct {
	// DonorPath is the path to the donor NEF file supplied as a template.
	DonorPath string

	// SourcePath is the path to the source image to embed into the
	// donor. Accepted formats are documented in package srcimage.
	SourcePath string

	// OutputPath is where the synthesized NEF is written.
	OutputPath string

	// ResizeGeometry selects the NONE/MINIMUM/FULL resize policy.
	ResizeGeometry raw.ResizeGeometry

	// MaintainAspectRatio locks the source's aspect ratio during resize.
	MaintainAspectRatio bool

	// HorzAlign and VertAlign select the crop/placement policy on each
	// axis when the resized source doesn't exactly cover the donor's raw
	// dimensions.
	HorzAlign raw.Alignment
	VertAlign raw.Alignment

	// Resampler selects the interpolation algorithm used for resizing.
	Resampler raw.Resampler

	// BorderColor fills any letterboxed margin left after placement.
	BorderColor raw.RGB8

	// SrcHSL scales the source's hue, saturation, and "lightness"
	// (actually value, in HSV) channels by these three multipliers
	// before Bayer demultiplexing. Defaults to (1.0, 0.5, 1.0): the HSL
	// stage always runs, halving saturation unless overridden.
	SrcHSL [3]float64

	// SrgbToLinear converts the source from sRGB gamma to linear light
	// before inverse white-balance and quantization.
	SrgbToLinear bool

	// WBMultipliersOverride, if non-nil, replaces the donor's own
	// white-balance multipliers for the inverse white-balance stage.
	WBMultipliersOverride *raw.WhiteBalance

	// Grayscale converts a color source to luminance and quantizes each
	// pixel's luminance into its own Bayer site, rather than
	// demultiplexing RGGB from color channels; no white balance is
	// applied. A 2-D (single-channel) source takes the grayscale path
	// whether or not this is set.
	Grayscale bool

	// SkipPreviewRegen leaves the donor's embedded preview images
	// untouched rather than regenerating them from the source.
	SkipPreviewRegen bool

	// EmbeddedImageOverride, if set, is a path to a different image used
	// for preview regeneration instead of SourcePath. Useful when the
	// main source is a pre-bayered or grayscale array with no color
	// rendition suitable for a preview JPEG.
	EmbeddedImageOverride string

	// PreviewJPEGQuality is the starting JPEG quality used when
	// regenerating embedded previews; it is stepped down if the
	// re-encoded preview doesn't fit the donor's original byte budget.
	PreviewJPEGQuality int

	// Logger holds an implementation of the Logger interface. This must
	// be set for the synthesis pipeline to work correctly.
	Logger logging.Logger

	// LogLevel is the logging verbosity level. Valid values are defined
	// by the enums from the logging package: logging.Debug, logging.Info,
	// logging.Warning, logging.Error, logging.Fatal.
	LogLevel int8

	// Suppress holds logger suppression state.
	Suppress bool
}

// Validate checks for errors in the Context's fields and defaults
// settings for any that have not been defined.
func (c *Context) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their
// corresponding values, parses the string values, and sets the Context's
// fields as appropriate.
func (c *Context) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

// LogInvalidField logs that a field was unset or invalid and that def is
// being substituted.
func (c *Context) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
