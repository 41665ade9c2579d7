/*
DESCRIPTION
  srcimage_test.go tests the validation logic of FromBayerPlane and
  FromPerChannelRGGB.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package srcimage

import (
	"image"
	"testing"

	"github.com/ausocean/nefsynth/raw"
)

func TestFromBayerPlane(t *testing.T) {
	dims := raw.Dimensions{Columns: 4, Rows: 2}
	tests := []struct {
		name    string
		dims    raw.Dimensions
		pix     []uint16
		wantErr bool
	}{
		{"valid", dims, make([]uint16, 8), false},
		{"odd columns", raw.Dimensions{Columns: 3, Rows: 2}, make([]uint16, 6), true},
		{"odd rows", raw.Dimensions{Columns: 4, Rows: 3}, make([]uint16, 12), true},
		{"length mismatch", dims, make([]uint16, 7), true},
		{"sample out of range", dims, []uint16{0, 0, 0, 0, 0, 0, 0, raw.MaxSampleValue + 1}, true},
		{"sample at limit", dims, []uint16{0, 0, 0, 0, 0, 0, 0, raw.MaxSampleValue}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := FromBayerPlane(tt.dims, tt.pix)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromBayerPlane() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if src.Kind != KindBayerPlane {
				t.Errorf("Kind = %v, want KindBayerPlane", src.Kind)
			}
			if src.Dims() != tt.dims {
				t.Errorf("Dims() = %+v, want %+v", src.Dims(), tt.dims)
			}
		})
	}
}

func TestFromPerChannelRGGB(t *testing.T) {
	dims := raw.Dimensions{Columns: 4, Rows: 4}
	half := make([]uint16, 4) // (4/2)*(4/2) = 4 samples per channel.

	tests := []struct {
		name         string
		dims         raw.Dimensions
		r, g1, g2, b []uint16
		wantErr      bool
	}{
		{"valid", dims, half, half, half, half, false},
		{"odd dims", raw.Dimensions{Columns: 3, Rows: 4}, half, half, half, half, true},
		{"short channel", dims, half[:3], half, half, half, true},
		{"sample out of range", dims, []uint16{0, 0, 0, raw.MaxSampleValue + 1}, half, half, half, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := FromPerChannelRGGB(tt.dims, tt.r, tt.g1, tt.g2, tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromPerChannelRGGB() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if src.Kind != KindPerChannelRGGB {
				t.Errorf("Kind = %v, want KindPerChannelRGGB", src.Kind)
			}
			if src.ChannelDims != tt.dims {
				t.Errorf("ChannelDims = %+v, want %+v", src.ChannelDims, tt.dims)
			}
			if src.Dims() != tt.dims {
				t.Errorf("Dims() = %+v, want %+v", src.Dims(), tt.dims)
			}
		})
	}
}

func TestHas16BitPrecision(t *testing.T) {
	if has16BitPrecision(image.NewRGBA(image.Rect(0, 0, 1, 1))) {
		t.Error("has16BitPrecision(RGBA) = true, want false")
	}
	if !has16BitPrecision(image.NewRGBA64(image.Rect(0, 0, 1, 1))) {
		t.Error("has16BitPrecision(RGBA64) = false, want true")
	}
}
