package ppu

import (
	"math/bits"
	"testing"
)

func TestReverseBitsMatchesBits(t *testing.T) {
	for i := 0; i < 256; i++ {
		b := byte(i)
		if got, want := ReverseBits(b), bits.Reverse8(b); got != want {
			t.Fatalf("ReverseBits(%02X) got %02X want %02X", b, got, want)
		}
		if ReverseBits(ReverseBits(b)) != b {
			t.Fatalf("double reverse of %02X is not identity", b)
		}
	}
}

func TestFlipRowKeepsBytePositions(t *testing.T) {
	cases := []struct{ in, want uint16 }{
		{0x0000, 0x0000},
		{0x8001, 0x0180},
		{0xC001, 0x0380},
		{0xF00F, 0x0FF0},
		{0x1200, 0x4800},
	}
	for _, c := range cases {
		if got := flipRow(c.in); got != c.want {
			t.Fatalf("flipRow(%04X) got %04X want %04X", c.in, got, c.want)
		}
	}
}
