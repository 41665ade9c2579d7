/*
DESCRIPTION
  planner.go computes the resize, crop, and placement a source image
  needs to fit a donor's raw dimensions: the geometry planner.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package geometry computes how a source image must be resized,
// cropped, and placed to exactly fill a target Dimensions, per the
// configured resize geometry, aspect-ratio, and alignment rules.
package geometry

import (
	"math"

	"github.com/ausocean/nefsynth/raw"
)

// Plan computes the GeometryPlan that takes src to tgt under the given
// resize geometry, aspect-ratio, and alignment settings. It returns a
// plan with NoOp and TargetEqualsSource set to true, and no other fields
// populated, if src already equals tgt exactly.
func Plan(src, tgt raw.Dimensions, geom raw.ResizeGeometry, maintainAspect bool, horz, vert raw.Alignment) *raw.GeometryPlan {
	if src == tgt {
		return &raw.GeometryPlan{NoOp: true, TargetEqualsSource: true}
	}

	resize := planResize(src, tgt, geom, maintainAspect)

	newDims := src
	if resize != nil {
		newDims = *resize
	}

	plan := &raw.GeometryPlan{
		Resize: resize,
	}
	plan.PlacementX = axisPlacement(newDims.Columns, tgt.Columns, horz)
	plan.PlacementY = axisPlacement(newDims.Rows, tgt.Rows, vert)

	if newDims.Columns > tgt.Columns || newDims.Rows > tgt.Rows {
		x0, x1 := axisCrop(newDims.Columns, tgt.Columns, horz)
		y0, y1 := axisCrop(newDims.Rows, tgt.Rows, vert)
		plan.Crop = &raw.Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
	}

	plan.TargetEqualsSource = resize == nil && plan.Crop == nil && plan.PlacementX == 0 && plan.PlacementY == 0 && newDims == tgt

	return plan
}

// planResize computes the resize target dimensions, or nil if no
// resize is needed, following the NONE/MINIMUM/FULL resize-geometry rules.
func planResize(src, tgt raw.Dimensions, geom raw.ResizeGeometry, maintainAspect bool) *raw.Dimensions {
	if src.Columns >= tgt.Columns && src.Rows >= tgt.Rows {
		// Source already covers target on both axes; resizing would
		// only ever shrink, which this planner never does on its own —
		// cropping handles the surplus.
		return nil
	}

	switch geom {
	case raw.ResizeNone:
		return nil

	case raw.ResizeMinimum:
		if !maintainAspect {
			if src.Columns < tgt.Columns {
				return &raw.Dimensions{Columns: tgt.Columns, Rows: src.Rows}
			}
			return &raw.Dimensions{Columns: src.Columns, Rows: tgt.Rows}
		}
		colMul := float64(tgt.Columns) / float64(src.Columns)
		rowMul := float64(tgt.Rows) / float64(src.Rows)
		if colMul < rowMul {
			return &raw.Dimensions{Columns: tgt.Columns, Rows: round(float64(src.Rows) * colMul)}
		}
		return &raw.Dimensions{Columns: round(float64(src.Columns) * rowMul), Rows: tgt.Rows}

	case raw.ResizeFull:
		colMul := 1.0
		if src.Columns < tgt.Columns {
			colMul = float64(tgt.Columns) / float64(src.Columns)
		}
		rowMul := 1.0
		if float64(src.Rows)*colMul < float64(tgt.Rows) {
			rowMul = float64(tgt.Rows) / (float64(src.Rows) * colMul)
		}
		total := colMul * rowMul
		return &raw.Dimensions{
			Columns: round(float64(src.Columns) * total),
			Rows:    round(float64(src.Rows) * total),
		}

	default:
		return nil
	}
}

// axisCrop computes the [start, end) range of srcAmount to keep so
// that the result is exactly tgtAmount, per the alignment's cropping
// policy. It assumes srcAmount > tgtAmount; callers only invoke it
// when at least one axis needs cropping, and it returns the identity
// range for an axis that doesn't.
func axisCrop(srcAmount, tgtAmount int, align raw.Alignment) (start, end int) {
	if srcAmount <= tgtAmount {
		return 0, srcAmount
	}
	surplus := srcAmount - tgtAmount
	switch align {
	case raw.AlignLeading:
		return 0, tgtAmount
	case raw.AlignTrailing:
		return surplus, srcAmount
	default: // AlignCenter: split the surplus, extra pixel removed from the high side.
		low := surplus / 2
		return low, low + tgtAmount
	}
}

// axisPlacement computes the offset within tgtAmount at which a
// dimension of size srcAmount is placed, per the alignment's placement
// policy. It is zero whenever srcAmount already covers tgtAmount.
func axisPlacement(srcAmount, tgtAmount int, align raw.Alignment) int {
	if srcAmount >= tgtAmount {
		return 0
	}
	short := tgtAmount - srcAmount
	switch align {
	case raw.AlignLeading:
		return 0
	case raw.AlignTrailing:
		return short
	default: // AlignCenter.
		return short / 2
	}
}

func round(v float64) int { return int(math.Round(v)) }
