/*
DESCRIPTION
  synth.go is the top-level synthesis orchestrator: it ties together
  donor parsing, the pixel pipeline, the predictor codec, container
  assembly, and preview regeneration into the single Synthesize call a
  driver invokes, mirroring revid.Revid's role as the library's
  top-level API.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package synth wires the donor parser, pixel pipeline, predictor
// codec, container assembler, and preview regenerator into the
// end-to-end NEF synthesis operation.
package synth

import (
	"os"

	"gocv.io/x/gocv"

	"github.com/ausocean/nefsynth/assemble"
	"github.com/ausocean/nefsynth/codec/nikonlossless"
	"github.com/ausocean/nefsynth/config"
	"github.com/ausocean/nefsynth/donor"
	"github.com/ausocean/nefsynth/pixel"
	"github.com/ausocean/nefsynth/preview"
	"github.com/ausocean/nefsynth/raw"
	"github.com/ausocean/nefsynth/srcimage"
)

// Synthesize reads cfg.DonorPath and cfg.SourcePath, runs the full
// pixel-to-bitstream pipeline, assembles a new NEF container, and
// writes it atomically to cfg.OutputPath.
func Synthesize(cfg *config.Context) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	meta, err := donor.Parse(cfg.DonorPath)
	if err != nil {
		return err
	}
	cfg.Logger.Info("parsed donor", "model", meta.CameraModel, "dims", meta.RawDimensions.String())

	donorBuf, err := os.ReadFile(cfg.DonorPath)
	if err != nil {
		return raw.Wrap(raw.KindIO, "DonorPath", err, "reading donor NEF")
	}

	src, err := srcimage.FromFile(cfg.SourcePath)
	if err != nil {
		return err
	}
	defer src.Close()

	result, err := pixel.Run(cfg, src, *meta)
	if err != nil {
		return err
	}
	defer result.Close()

	compressed, err := nikonlossless.Encode(result.Bayer, meta.PredictorSeed)
	if err != nil {
		return err
	}
	cfg.Logger.Info("encoded raw strip", "bytes", len(compressed))

	out, err := assemble.Build(donorBuf, meta, compressed)
	if err != nil {
		return err
	}

	if !cfg.SkipPreviewRegen {
		if err := regeneratePreviews(cfg, meta, out, result); err != nil {
			return err
		}
	}

	if err := assemble.WriteAtomic(cfg.OutputPath, out); err != nil {
		return err
	}
	cfg.Logger.Info("wrote synthesized NEF", "path", cfg.OutputPath, "bytes", len(out))
	return nil
}

// regeneratePreviews overwrites every preview record in out with a
// fresh JPEG rendered from the chosen preview source.
func regeneratePreviews(cfg *config.Context, meta *raw.DonorMetadata, out []byte, result *pixel.Result) error {
	order := assemble.ByteOrder(meta)

	previewMat, ok, err := loadPreviewSource(cfg, result)
	if err != nil {
		return err
	}
	if !ok {
		cfg.Logger.Warning("no color preview source available, leaving embedded previews untouched", "source", cfg.SourcePath)
		return nil
	}
	defer previewMat.Close()

	for _, rec := range meta.Previews {
		if err := preview.Regenerate(cfg, order, out, rec, previewMat); err != nil {
			return err
		}
	}
	return nil
}

// loadPreviewSource picks the 8-bit BGR color Mat every preview is
// regenerated from. cfg.EmbeddedImageOverride, when set, always wins —
// per the SUPPLEMENTED FEATURES note, every preview is regenerated
// from the same override image rather than the primary source. The
// caller owns the returned Mat and must Close it.
func loadPreviewSource(cfg *config.Context, result *pixel.Result) (gocv.Mat, bool, error) {
	if cfg.EmbeddedImageOverride != "" {
		ov, err := srcimage.FromFile(cfg.EmbeddedImageOverride)
		if err != nil {
			return gocv.Mat{}, false, err
		}
		defer ov.Close()
		mat, err := to8BitBGR(ov)
		if err != nil {
			return gocv.Mat{}, false, err
		}
		return mat, true, nil
	}
	if result.HasPreview {
		return result.Preview.Clone(), true, nil
	}
	return gocv.Mat{}, false, nil
}

// to8BitBGR renders src as an 8-bit 3-channel BGR Mat, converting
// grayscale to BGR and rescaling any 16-bit-per-channel source, since
// JPEG encoding needs 8-bit samples.
func to8BitBGR(src *srcimage.Source) (gocv.Mat, error) {
	switch src.Kind {
	case srcimage.KindColor:
		return ensureDepth(src.Mat, gocv.MatTypeCV8UC3)

	case srcimage.KindGray:
		gray8, err := ensureDepth(src.Mat, gocv.MatTypeCV8UC1)
		if err != nil {
			return gocv.Mat{}, err
		}
		defer gray8.Close()
		bgr := gocv.NewMat()
		gocv.CvtColor(gray8, &bgr, gocv.ColorGrayToBGR)
		return bgr, nil

	default:
		return gocv.Mat{}, raw.New(raw.KindConfig, "EmbeddedImageOverride", "override image must be a color or grayscale image, not a pre-bayered array")
	}
}

// ensureDepth returns a Mat of mat's size converted to want, rescaling
// 16-bit samples down to 8-bit by the same 256x factor the pixel
// package's promote16 uses going the other way.
func ensureDepth(mat gocv.Mat, want gocv.MatType) (gocv.Mat, error) {
	if mat.Type() == want {
		return mat.Clone(), nil
	}
	out := gocv.NewMat()
	mat.ConvertToWithParams(&out, want, 1.0/256.0, 0)
	return out, nil
}
