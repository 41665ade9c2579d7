package nikonlossless

import "testing"

func TestHuffmanTablePrefixFree(t *testing.T) {
	type entry struct {
		bits   uint32
		length int
	}
	var codes []entry
	for cat := 0; cat <= MaxCategory; cat++ {
		c := codeFor(cat)
		if c.Length == 0 {
			t.Fatalf("category %d has no assigned code", cat)
		}
		codes = append(codes, entry{c.Bits, c.Length})
	}
	for i, a := range codes {
		for j, b := range codes {
			if i == j {
				continue
			}
			minLen := a.length
			if b.length < minLen {
				minLen = b.length
			}
			if a.bits>>uint(a.length-minLen) == b.bits>>uint(b.length-minLen) {
				t.Fatalf("codes for entries %d and %d share a prefix: %v %v", i, j, a, b)
			}
		}
	}
}

func TestDecodeTableRoundTrip(t *testing.T) {
	for cat := 0; cat <= MaxCategory; cat++ {
		c := codeFor(cat)
		got, ok := decodeTable[uint32(c.Length)<<24|c.Bits]
		if !ok {
			t.Fatalf("category %d: code not found in decode table", cat)
		}
		if got != cat {
			t.Fatalf("category %d: decode table maps to %d", cat, got)
		}
	}
}
