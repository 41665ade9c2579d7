/*
DESCRIPTION
  variables.go contains a list of structs that provide a variable Name,
  type in a string format, a function for updating the variable in the
  Context struct from a string, and a validation function to check the
  validity of the corresponding field value in the Context.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ausocean/nefsynth/raw"
)

// Context map keys.
const (
	KeyDonorPath             = "DonorPath"
	KeySourcePath            = "SourcePath"
	KeyOutputPath            = "OutputPath"
	KeyResizeGeometry        = "ResizeGeometry"
	KeyMaintainAspectRatio   = "MaintainAspectRatio"
	KeyHorzAlign             = "HorzAlign"
	KeyVertAlign             = "VertAlign"
	KeyResampler             = "Resampler"
	KeyBorderColor           = "BorderColor"
	KeySrcHSL                = "SrcHSL"
	KeySrgbToLinear          = "SrgbToLinear"
	KeyWBMultipliers         = "WBMultipliers"
	KeyGrayscale             = "Grayscale"
	KeySkipPreviewRegen      = "SkipPreviewRegen"
	KeyEmbeddedImageOverride = "EmbeddedImageOverride"
	KeyPreviewJPEGQuality    = "PreviewJPEGQuality"
	KeySuppress              = "Suppress"
)

// Context map parameter types.
const (
	typeString = "string"
	typeInt    = "int"
	typeBool   = "bool"
)

// Default variable values.
const (
	defaultResizeGeometry     = raw.ResizeMinimum
	defaultHorzAlign          = raw.AlignCenter
	defaultVertAlign          = raw.AlignCenter
	defaultResampler          = raw.ResamplerLanczos4
	defaultPreviewJPEGQuality = 90
)

var defaultSrcHSL = [3]float64{1.0, 0.5, 1.0}

var resizeGeometryEnum = map[string]raw.ResizeGeometry{
	"none":    raw.ResizeNone,
	"minimum": raw.ResizeMinimum,
	"full":    raw.ResizeFull,
}

var alignmentEnum = map[string]raw.Alignment{
	"leading": raw.AlignLeading,
	"center":  raw.AlignCenter,
	"trailing": raw.AlignTrailing,
}

var resamplerEnum = map[string]raw.Resampler{
	"lanczos4": raw.ResamplerLanczos4,
	"cubic":    raw.ResamplerCubic,
	"area":     raw.ResamplerArea,
	"linear":   raw.ResamplerLinear,
	"nearest":  raw.ResamplerNearest,
}

// Variables describes the variables that can be used to configure a
// Context. These structs provide the name and type of variable, a
// function for updating this variable in a Context, and a function for
// validating the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Context, string)
	Validate func(*Context)
}{
	{
		Name:   KeyDonorPath,
		Type:   typeString,
		Update: func(c *Context, v string) { c.DonorPath = v },
		Validate: func(c *Context) {
			if c.DonorPath == "" {
				c.Logger.Error("DonorPath must be set")
			}
		},
	},
	{
		Name:   KeySourcePath,
		Type:   typeString,
		Update: func(c *Context, v string) { c.SourcePath = v },
		Validate: func(c *Context) {
			if c.SourcePath == "" {
				c.Logger.Error("SourcePath must be set")
			}
		},
	},
	{
		Name:   KeyOutputPath,
		Type:   typeString,
		Update: func(c *Context, v string) { c.OutputPath = v },
		Validate: func(c *Context) {
			if c.OutputPath == "" {
				c.Logger.Error("OutputPath must be set")
			}
		},
	},
	{
		Name: KeyResizeGeometry,
		Type: "enum:none,minimum,full",
		Update: func(c *Context, v string) {
			c.ResizeGeometry = parseEnum(KeyResizeGeometry, v, resizeGeometryEnum, c)
		},
	},
	{
		Name:   KeyMaintainAspectRatio,
		Type:   typeBool,
		Update: func(c *Context, v string) { c.MaintainAspectRatio = parseBool(KeyMaintainAspectRatio, v, c) },
	},
	{
		Name: KeyHorzAlign,
		Type: "enum:leading,center,trailing",
		Update: func(c *Context, v string) {
			c.HorzAlign = parseEnum(KeyHorzAlign, v, alignmentEnum, c)
		},
		Validate: func(c *Context) {
			if _, ok := v2a(c.HorzAlign); !ok {
				c.LogInvalidField(KeyHorzAlign, defaultHorzAlign)
				c.HorzAlign = defaultHorzAlign
			}
		},
	},
	{
		Name: KeyVertAlign,
		Type: "enum:leading,center,trailing",
		Update: func(c *Context, v string) {
			c.VertAlign = parseEnum(KeyVertAlign, v, alignmentEnum, c)
		},
		Validate: func(c *Context) {
			if _, ok := v2a(c.VertAlign); !ok {
				c.LogInvalidField(KeyVertAlign, defaultVertAlign)
				c.VertAlign = defaultVertAlign
			}
		},
	},
	{
		Name: KeyResampler,
		Type: "enum:lanczos4,cubic,area,linear,nearest",
		Update: func(c *Context, v string) {
			c.Resampler = parseEnum(KeyResampler, v, resamplerEnum, c)
		},
	},
	{
		Name: KeyBorderColor,
		Type: typeString,
		Update: func(c *Context, v string) {
			c.BorderColor = parseRGBHex(KeyBorderColor, v, c)
		},
	},
	{
		Name: KeySrcHSL,
		Type: typeString,
		Update: func(c *Context, v string) {
			parts := strings.Split(v, ",")
			if len(parts) != 3 {
				c.Logger.Warning("expected 3 comma-separated floats for SrcHSL", "value", v)
				return
			}
			var hsl [3]float64
			for i, p := range parts {
				f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
				if err != nil {
					c.Logger.Warning("invalid SrcHSL component", "value", p)
					return
				}
				hsl[i] = f
			}
			c.SrcHSL = hsl
		},
		Validate: func(c *Context) {
			if c.SrcHSL == ([3]float64{}) {
				c.SrcHSL = defaultSrcHSL
			}
		},
	},
	{
		Name:   KeySrgbToLinear,
		Type:   typeBool,
		Update: func(c *Context, v string) { c.SrgbToLinear = parseBool(KeySrgbToLinear, v, c) },
	},
	{
		Name: KeyWBMultipliers,
		Type: typeString,
		Update: func(c *Context, v string) {
			v = strings.TrimSpace(v)
			if v == "" {
				c.WBMultipliersOverride = nil
				return
			}
			parts := strings.Split(v, ",")
			if len(parts) != 2 {
				c.Logger.Warning("expected 2 comma-separated floats (red,blue) for WBMultipliers", "value", v)
				return
			}
			red, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			blue, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if err1 != nil || err2 != nil {
				c.Logger.Warning("invalid WBMultipliers component", "value", v)
				return
			}
			c.WBMultipliersOverride = &raw.WhiteBalance{RedMul: red, BlueMul: blue}
		},
	},
	{
		Name:   KeyGrayscale,
		Type:   typeBool,
		Update: func(c *Context, v string) { c.Grayscale = parseBool(KeyGrayscale, v, c) },
	},
	{
		Name:   KeySkipPreviewRegen,
		Type:   typeBool,
		Update: func(c *Context, v string) { c.SkipPreviewRegen = parseBool(KeySkipPreviewRegen, v, c) },
	},
	{
		Name:   KeyEmbeddedImageOverride,
		Type:   typeString,
		Update: func(c *Context, v string) { c.EmbeddedImageOverride = v },
	},
	{
		Name:   KeyPreviewJPEGQuality,
		Type:   typeInt,
		Update: func(c *Context, v string) { c.PreviewJPEGQuality = parseInt(KeyPreviewJPEGQuality, v, c) },
		Validate: func(c *Context) {
			if c.PreviewJPEGQuality <= 0 || c.PreviewJPEGQuality > 100 {
				c.LogInvalidField(KeyPreviewJPEGQuality, defaultPreviewJPEGQuality)
				c.PreviewJPEGQuality = defaultPreviewJPEGQuality
			}
		},
	},
	{
		Name:   KeySuppress,
		Type:   typeBool,
		Update: func(c *Context, v string) { c.Suppress = parseBool(KeySuppress, v, c) },
	},
}

func parseInt(n, v string, c *Context) int {
	_v, err := strconv.Atoi(v)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected integer for param %s", n), "value", v)
	}
	return _v
}

func parseBool(n, v string, c *Context) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expected bool for param %s", n), "value", v)
	}
	return
}

func parseEnum[T ~int](n, v string, enums map[string]T, c *Context) T {
	t, ok := enums[strings.ToLower(v)]
	if !ok {
		c.Logger.Warning(fmt.Sprintf("invalid value for %s param", n), "value", v)
	}
	return t
}

func parseRGBHex(n, v string, c *Context) raw.RGB8 {
	v = strings.TrimPrefix(v, "#")
	i, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected hex RGB for param %s", n), "value", v)
		return raw.RGB8{}
	}
	return raw.RGB8{
		R: uint8(i >> 16 & 0xff),
		G: uint8(i >> 8 & 0xff),
		B: uint8(i & 0xff),
	}
}

// v2a reports whether a is one of the known Alignment values, guarding
// against an out-of-range value assigned to the field directly. A failed
// parseEnum lookup yields the zero value, AlignCenter, which passes.
func v2a(a raw.Alignment) (raw.Alignment, bool) {
	switch a {
	case raw.AlignLeading, raw.AlignCenter, raw.AlignTrailing:
		return a, true
	default:
		return a, false
	}
}
