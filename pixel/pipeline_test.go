/*
DESCRIPTION
  pipeline_test.go tests the pure-math helpers of the pixel pipeline
  that don't require a gocv/OpenCV runtime: the sRGB-to-linear
  transform and float rounding.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pixel

import (
	"math"
	"testing"

	"github.com/ausocean/nefsynth/raw"
	"github.com/ausocean/nefsynth/srcimage"
)

func TestSrgbToLinear(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want float64
	}{
		{"zero", 0, 0},
		{"one", 1, 1},
		{"below threshold", 0.02, 0.02 / 12.92},
		{"above threshold", 0.5, math.Pow((0.5+0.055)/1.055, 2.4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := srgbToLinear(tt.v)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("srgbToLinear(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestSrgbToLinearMonotonic(t *testing.T) {
	prev := srgbToLinear(0)
	for v := 0.01; v <= 1.0; v += 0.01 {
		cur := srgbToLinear(v)
		if cur < prev {
			t.Fatalf("srgbToLinear not monotonic at v=%v: %v < %v", v, cur, prev)
		}
		prev = cur
	}
}

func TestRoundF(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{0.4, 0},
		{0.5, 1},
		{0.49999, 0},
		{-0.5, -1},
		{2.5, 3},
		{1000.0, 1000},
	}
	for _, tt := range tests {
		if got := roundF(tt.v); got != tt.want {
			t.Errorf("roundF(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestFitNoResizePlaneNoOp(t *testing.T) {
	dims := raw.Dimensions{Columns: 4, Rows: 4}
	at := func(row, col int) uint16 { return uint16(row*10 + col + 1) }
	plane := fitNoResizePlane(dims, dims, raw.AlignCenter, raw.AlignCenter, at)

	for row := 0; row < dims.Rows; row++ {
		for col := 0; col < dims.Columns; col++ {
			if got, want := plane.At(row, col), at(row, col); got != want {
				t.Errorf("At(%d,%d) = %d, want %d", row, col, got, want)
			}
		}
	}
}

func TestFitNoResizePlaneSmallerSourceCenters(t *testing.T) {
	src := raw.Dimensions{Columns: 2, Rows: 2}
	tgt := raw.Dimensions{Columns: 4, Rows: 4}
	at := func(row, col int) uint16 { return uint16(row*10 + col + 1) }
	plane := fitNoResizePlane(src, tgt, raw.AlignCenter, raw.AlignCenter, at)

	// Source is centered: placement offset (1,1) on both axes.
	if got, want := plane.At(1, 1), at(0, 0); got != want {
		t.Errorf("At(1,1) = %d, want %d", got, want)
	}
	if got, want := plane.At(2, 2), at(1, 1); got != want {
		t.Errorf("At(2,2) = %d, want %d", got, want)
	}
	// Cells the source doesn't cover are left at zero.
	if got := plane.At(0, 0); got != 0 {
		t.Errorf("At(0,0) = %d, want 0 (uncovered cell)", got)
	}
	if got := plane.At(3, 3); got != 0 {
		t.Errorf("At(3,3) = %d, want 0 (uncovered cell)", got)
	}
}

func TestFitNoResizePlaneLargerSourceCrops(t *testing.T) {
	src := raw.Dimensions{Columns: 4, Rows: 4}
	tgt := raw.Dimensions{Columns: 2, Rows: 2}
	at := func(row, col int) uint16 { return uint16(row*10 + col + 1) }
	plane := fitNoResizePlane(src, tgt, raw.AlignCenter, raw.AlignCenter, at)

	// Centered crop keeps source rows/cols [1,3).
	if got, want := plane.At(0, 0), at(1, 1); got != want {
		t.Errorf("At(0,0) = %d, want %d", got, want)
	}
	if got, want := plane.At(1, 1), at(2, 2); got != want {
		t.Errorf("At(1,1) = %d, want %d", got, want)
	}
}

func TestAddBlackLevel(t *testing.T) {
	plane := raw.NewBayerPlane(raw.Dimensions{Columns: 2, Rows: 1})
	plane.Pix[0] = 100
	plane.Pix[1] = 0xfffe

	addBlackLevel(plane, 50)
	if got, want := plane.Pix[0], uint16(150); got != want {
		t.Errorf("Pix[0] = %d, want %d", got, want)
	}
	// Clamps at the uint16 ceiling rather than overflowing.
	if got, want := plane.Pix[1], uint16(0xffff); got != want {
		t.Errorf("Pix[1] = %d, want %d (clamped)", got, want)
	}
}

func TestPerChannelSampler(t *testing.T) {
	// 4x4 Bayer plane implies 2x2 half-resolution channel planes.
	src := &srcimage.Source{
		Kind:        srcimage.KindPerChannelRGGB,
		ChannelDims: raw.Dimensions{Columns: 4, Rows: 4},
		Channels: [4][]uint16{
			{1, 2, 3, 4},             // R
			{10, 20, 30, 40},         // G1
			{100, 200, 300, 400},     // G2
			{1000, 2000, 3000, 4000}, // B
		},
	}
	sample := perChannelSampler(src)

	tests := []struct {
		row, col int
		want     uint16
	}{
		{0, 0, 1},    // SiteRed, channel index 0
		{0, 1, 10},   // SiteGreen1, channel index 0
		{1, 0, 100},  // SiteGreen2, channel index 0
		{1, 1, 1000}, // SiteBlue, channel index 0
		{0, 2, 2},    // SiteRed, channel index 1
		{2, 2, 4},    // SiteRed, channel index 3
	}
	for _, tt := range tests {
		if got := sample(tt.row, tt.col); got != tt.want {
			t.Errorf("sample(%d,%d) = %d, want %d", tt.row, tt.col, got, tt.want)
		}
	}
}
