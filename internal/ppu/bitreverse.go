package ppu

// reverseTable maps a byte to the same byte with its bit order reversed.
// Filled once at init and never written afterwards.
var reverseTable [256]byte

func init() {
	for i := 0; i < 256; i++ {
		var r byte
		for bit := 0; bit < 8; bit++ {
			if i&(1<<bit) != 0 {
				r |= 0x80 >> bit
			}
		}
		reverseTable[i] = r
	}
}

// ReverseBits returns b with bit 7 swapped with bit 0, bit 6 with bit 1 and so on.
func ReverseBits(b byte) byte { return reverseTable[b] }

// flipRow mirrors a tile row horizontally. Each bitplane byte is reversed in
// place; the low byte stays the low bitplane.
func flipRow(w uint16) uint16 {
	return uint16(reverseTable[w&0xFF]) | uint16(reverseTable[w>>8])<<8
}
