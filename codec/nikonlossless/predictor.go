/*
DESCRIPTION
  predictor.go implements the row-pair predictive coder: four
  predictor registers seeded from the donor's linearization-table
  value, residuals encoded as a Huffman-coded category followed by raw
  sign-magnitude bits.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package nikonlossless

import (
	stdbits "math/bits"

	bitw "github.com/ausocean/nefsynth/bits"
	"github.com/ausocean/nefsynth/raw"
)

// MarginBytes is the slack added to the uncompressed size when sizing
// the encoder's output buffer, sized with headroom for worst-case expansion.
const MarginBytes = 1 << 20 // 1 MiB.

// category returns the magnitude class of a signed residual d:
// 0 if d == 0, else floor(log2(|d|)) + 1.
func category(d int32) int {
	if d == 0 {
		return 0
	}
	v := d
	if v < 0 {
		v = -v
	}
	return stdbits.Len32(uint32(v))
}

// residualBits returns the c raw bits that follow the Huffman code for
// category c: the low c bits of d if d > 0, or the low
// c bits of (d - 1) if d < 0.
func residualBits(d int32, c int) uint32 {
	if c == 0 {
		return 0
	}
	var v int32
	if d > 0 {
		v = d
	} else {
		v = d - 1
	}
	mask := uint32(1)<<uint(c) - 1
	return uint32(v) & mask
}

// decodeResidual is the inverse of category/residualBits, used only by
// this package's own round-trip tests; decoding real donor NEFs is
// outside this toolkit's scope.
func decodeResidual(c int, extra uint32) int32 {
	if c == 0 {
		return 0
	}
	threshold := uint32(1) << uint(c-1)
	if extra < threshold {
		return int32(extra) - (1 << uint(c)) + 1
	}
	return int32(extra)
}

// Encode compresses plane using the row-pair predictor seeded from
// seed, writing a Nikon lossless bitstream. The returned slice is
// padded to a byte boundary with trailing zero bits.
//
// Encode processes rows ascending and, within a row, columns
// ascending, so two runs over the same inputs produce byte-identical output.
func Encode(plane *raw.BayerPlane, seed uint16) ([]byte, error) {
	cols, rows := plane.Dims.Columns, plane.Dims.Rows
	bufCap := cols*rows*2 + MarginBytes
	w := bitw.NewWriter(make([]byte, 0, bufCap))

	var predEven, predOdd [2]uint16

	for row := 0; row < rows; row++ {
		if row%2 == 0 {
			predEven[0], predEven[1] = seed, seed
			predOdd[0], predOdd[1] = seed, seed
		}
		reg := &predEven
		if row%2 == 1 {
			reg = &predOdd
		}
		for col := 0; col < cols; col++ {
			parity := col & 1
			p := reg[parity]
			s := plane.At(row, col)
			d := int32(s) - int32(p)
			c := category(d)

			hc := codeFor(c)
			if err := w.WriteBits(hc.Bits, hc.Length); err != nil {
				return nil, raw.Wrap(raw.KindEncoderOverflow, "strip", err, "encoding raw strip")
			}
			if c > 0 {
				if err := w.WriteBits(residualBits(d, c), c); err != nil {
					return nil, raw.Wrap(raw.KindEncoderOverflow, "strip", err, "encoding raw strip")
				}
			}
			reg[parity] = s
		}
	}

	if _, err := w.Finish(); err != nil {
		return nil, raw.Wrap(raw.KindEncoderOverflow, "strip", err, "encoding raw strip")
	}
	return w.Bytes(), nil
}
