package nikonlossless

import (
	"testing"

	"github.com/ausocean/nefsynth/raw"
)

// bitReader is a minimal MSB-first bit reader used only to verify this
// package's own encoder output; decoding real donor NEFs is out of
// scope for this toolkit.
type bitReader struct {
	buf []byte
	pos int // bit position from the start of buf.
}

func (r *bitReader) readBit() int {
	byteIdx := r.pos / 8
	bitIdx := 7 - r.pos%8
	r.pos++
	return int(r.buf[byteIdx]>>uint(bitIdx)) & 1
}

func (r *bitReader) readBits(n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		v = v<<1 | uint32(r.readBit())
	}
	return v
}

// readCategory walks the canonical table bit by bit until a prefix
// matches, mirroring how a real Huffman decoder would.
func (r *bitReader) readCategory() int {
	var code uint32
	for length := 1; length <= 16; length++ {
		code = code<<1 | uint32(r.readBit())
		if cat, ok := decodeTable[uint32(length)<<24|code]; ok {
			return cat
		}
	}
	panic("no matching huffman code")
}

// decode mirrors Encode's predictor state machine in reverse, used
// only to check round-trip correctness in this test file.
func decode(data []byte, dims raw.Dimensions, seed uint16) *raw.BayerPlane {
	r := &bitReader{buf: data}
	plane := raw.NewBayerPlane(dims)

	var predEven, predOdd [2]uint16
	for row := 0; row < dims.Rows; row++ {
		if row%2 == 0 {
			predEven[0], predEven[1] = seed, seed
			predOdd[0], predOdd[1] = seed, seed
		}
		reg := &predEven
		if row%2 == 1 {
			reg = &predOdd
		}
		for col := 0; col < dims.Columns; col++ {
			parity := col & 1
			p := reg[parity]
			c := r.readCategory()
			var extra uint32
			if c > 0 {
				extra = r.readBits(c)
			}
			d := decodeResidual(c, extra)
			s := uint16(int32(p) + d)
			plane.Set(row, col, s)
			reg[parity] = s
		}
	}
	return plane
}

func TestCategory(t *testing.T) {
	cases := []struct {
		d    int32
		want int
	}{
		{0, 0},
		{1, 1},
		{-1, 1},
		{2, 2},
		{3, 2},
		{-3, 2},
		{4, 3},
		{8191, 13},
		{-8191, 13},
		{16383, 14},
		{-16383, 14},
	}
	for _, c := range cases {
		if got := category(c.d); got != c.want {
			t.Errorf("category(%d) = %d, want %d", c.d, got, c.want)
		}
	}
}

func TestResidualBitsRoundTrip(t *testing.T) {
	for d := int32(-16383); d <= 16383; d++ {
		c := category(d)
		extra := residualBits(d, c)
		got := decodeResidual(c, extra)
		if got != d {
			t.Fatalf("round trip failed for d=%d: category=%d extra=%d decoded=%d", d, c, extra, got)
		}
	}
}

func TestEncodeConstantPlaneDecodesToBlackLevel(t *testing.T) {
	const blackLevel = 1008
	dims := raw.Dimensions{Columns: 8, Rows: 6}
	plane := raw.NewBayerPlane(dims)
	for i := range plane.Pix {
		plane.Pix[i] = blackLevel
	}

	data, err := Encode(plane, blackLevel)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got := decode(data, dims, blackLevel)
	for row := 0; row < dims.Rows; row++ {
		for col := 0; col < dims.Columns; col++ {
			if v := got.At(row, col); v != blackLevel {
				t.Errorf("(%d,%d) = %d, want %d", row, col, v, blackLevel)
			}
		}
	}
}

func TestEncodeDecodeRoundTripVaried(t *testing.T) {
	dims := raw.Dimensions{Columns: 16, Rows: 8}
	plane := raw.NewBayerPlane(dims)
	seed := uint16(2048)
	v := seed
	for i := range plane.Pix {
		// A varied but bounded walk so residuals exercise several
		// categories, including sign changes.
		switch i % 5 {
		case 0:
			v += 37
		case 1:
			v -= 91
		case 2:
			v += 1
		case 3:
			v -= 1
		default:
			v += 503
		}
		if int(v) > raw.MaxSampleValue {
			v = uint16(int(v) % (raw.MaxSampleValue + 1))
		}
		plane.Pix[i] = v
	}

	data, err := Encode(plane, seed)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got := decode(data, dims, seed)
	for i := range plane.Pix {
		if got.Pix[i] != plane.Pix[i] {
			t.Fatalf("sample %d: got %d, want %d", i, got.Pix[i], plane.Pix[i])
		}
	}
}

func TestEncodeZeroResidualEmitsNoRawBits(t *testing.T) {
	dims := raw.Dimensions{Columns: 2, Rows: 2}
	plane := raw.NewBayerPlane(dims)
	const seed = uint16(500)
	for i := range plane.Pix {
		plane.Pix[i] = seed
	}
	data, err := Encode(plane, seed)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Every site predicts from seed and encodes d=0: four category-0
	// codes, no raw bits, so total length is 4*len(code(0)).
	wantBits := 4 * codeFor(0).Length
	wantBytes := (wantBits + 7) / 8
	if len(data) != wantBytes {
		t.Errorf("got %d bytes, want %d", len(data), wantBytes)
	}
}
