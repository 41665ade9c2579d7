/*
DESCRIPTION
  nefsynth is a command-line driver for the synth package: it parses
  flags into a config.Context and synthesizes a Nikon lossless raw file
  (NEF) from a donor template and a source image.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main implements the nefsynth command-line tool.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/nefsynth/config"
	"github.com/ausocean/nefsynth/synth"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration.
const (
	logPath      = "nefsynth.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
)

func main() {
	donorPath := flag.String(config.KeyDonorPath, "", "path to the donor NEF file")
	sourcePath := flag.String(config.KeySourcePath, "", "path to the source image")
	outputPath := flag.String(config.KeyOutputPath, "", "path to write the synthesized NEF")
	resizeGeometry := flag.String(config.KeyResizeGeometry, "", "resize policy: none, minimum, full")
	maintainAspect := flag.String(config.KeyMaintainAspectRatio, "", "lock aspect ratio during resize: true, false")
	horzAlign := flag.String(config.KeyHorzAlign, "", "horizontal crop/placement alignment: leading, center, trailing")
	vertAlign := flag.String(config.KeyVertAlign, "", "vertical crop/placement alignment: leading, center, trailing")
	resampler := flag.String(config.KeyResampler, "", "resize interpolation: lanczos4, cubic, area, linear, nearest")
	borderColor := flag.String(config.KeyBorderColor, "", "letterbox border color, as RRGGBB hex")
	srcHSL := flag.String(config.KeySrcHSL, "", "comma-separated hue,saturation,value multipliers")
	srgbToLinear := flag.String(config.KeySrgbToLinear, "", "convert source from sRGB to linear light: true, false")
	wbMultipliers := flag.String(config.KeyWBMultipliers, "", "comma-separated red,blue white balance override")
	grayscale := flag.String(config.KeyGrayscale, "", "quantize a color source's luminance into every Bayer site: true, false")
	skipPreviewRegen := flag.String(config.KeySkipPreviewRegen, "", "leave embedded previews untouched: true, false")
	embeddedImageOverride := flag.String(config.KeyEmbeddedImageOverride, "", "path to an image used for preview regeneration instead of the source")
	previewJPEGQuality := flag.String(config.KeyPreviewJPEGQuality, "", "starting JPEG quality for regenerated previews")
	suppress := flag.String(config.KeySuppress, "", "stored as the config's Suppress setting; the logger is always built without suppression: true, false")
	verbose := flag.Bool("verbose", false, "log at debug level")
	flag.Parse()

	level := logging.Info
	if *verbose {
		level = logging.Debug
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(level, io.MultiWriter(fileLog, os.Stderr), false)
	log.Info("starting nefsynth", "version", version)

	cfg := &config.Context{Logger: log}
	cfg.Update(map[string]string{
		config.KeyDonorPath:             *donorPath,
		config.KeySourcePath:            *sourcePath,
		config.KeyOutputPath:            *outputPath,
		config.KeyResizeGeometry:        *resizeGeometry,
		config.KeyMaintainAspectRatio:   *maintainAspect,
		config.KeyHorzAlign:             *horzAlign,
		config.KeyVertAlign:             *vertAlign,
		config.KeyResampler:             *resampler,
		config.KeyBorderColor:           *borderColor,
		config.KeySrcHSL:                *srcHSL,
		config.KeySrgbToLinear:          *srgbToLinear,
		config.KeyWBMultipliers:         *wbMultipliers,
		config.KeyGrayscale:             *grayscale,
		config.KeySkipPreviewRegen:      *skipPreviewRegen,
		config.KeyEmbeddedImageOverride: *embeddedImageOverride,
		config.KeyPreviewJPEGQuality:    *previewJPEGQuality,
		config.KeySuppress:              *suppress,
	})

	if err := synth.Synthesize(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
