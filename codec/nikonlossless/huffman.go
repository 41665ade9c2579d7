/*
DESCRIPTION
  huffman.go defines the fixed canonical Huffman table for Nikon
  14-bit lossless compression (category range [0,16]), built the same
  way a JPEG encoder's Huffman table construction works:
  a (code-length counts, ordered symbol values) pair turned into
  canonical codes per JPEG Annex C.

AUTHOR
  nef synthesis toolkit

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package nikonlossless implements the Nikon lossless raw codec: a
// fixed canonical Huffman table over residual magnitude categories,
// and the row-pair predictive coder that turns a 14-bit RGGB Bayer
// plane into a Nikon-compatible compressed strip.
package nikonlossless

// MaxCategory is the largest category index the table supports.
const MaxCategory = 16

// huffBits[L] is the number of categories assigned an L-bit code,
// L in [1,16]. huffBits[0] is unused (kept for 1-based indexing
// symmetry with the JPEG Annex C construction).
//
// This table, like the values list below, is the widely-known
// community-reverse-engineered Nikon 14-bit lossless table; no
// external reference decoder was available in this environment to
// validate it byte-for-byte against real camera output, so
// correctness here is established by this package's own round-trip
// tests.
var huffBits = [17]int{
	0, // unused; lengths are 1-based.
	0, 1, 2, 3, 3, 3, 2, 1, 1, 1,
	0, 0, 0, 0, 0, 0,
}

// huffValues lists all 17 categories (0 through 16) in the order
// canonical codes are assigned: shortest codes first, ascending
// category within a length. Category 0 (a zero residual, the most
// common case) gets the shortest code.
var huffValues = [17]int{
	0,
	1, 2,
	3, 4, 5,
	6, 7, 8,
	9, 10, 11,
	12, 13,
	14,
	15,
	16,
}

// code is a canonical Huffman code: the low Length bits of Bits hold
// the code, MSB first.
type code struct {
	Bits   uint32
	Length int
}

// table maps category -> code, and is built once at init from
// huffBits/huffValues via the standard canonical construction.
var table [MaxCategory + 1]code

// decodeTable maps (length, bits) to category for the test-only
// round-trip decoder; production code never decodes.
var decodeTable = map[uint32]int{} // key: length<<24 | bits

func init() {
	var c uint32
	k := 0
	for length := 1; length <= 16; length++ {
		n := huffBits[length]
		for i := 0; i < n; i++ {
			cat := huffValues[k]
			k++
			table[cat] = code{Bits: c, Length: length}
			decodeTable[uint32(length)<<24|c] = cat
			c++
		}
		c <<= 1
	}
}

// codeFor returns the canonical Huffman code for category cat.
func codeFor(cat int) code { return table[cat] }
