package cart

import (
	"errors"
	"testing"
)

// buildROM makes a synthetic image with a valid header checksum.
func buildROM(title string, cartType, romSizeCode, ramSizeCode byte, size int) []byte {
	rom := make([]byte, size)
	copy(rom[titleStart:titleEnd], title)
	rom[cartTypeAddr] = cartType
	rom[romSizeAddr] = romSizeCode
	rom[ramSizeAddr] = ramSizeCode
	rom[0x014B] = 0x33 // old licensee: use new licensee
	var hsum byte
	for addr := titleStart; addr < checksumAddr; addr++ {
		hsum = hsum - rom[addr] - 1
	}
	rom[checksumAddr] = hsum
	return rom
}

func TestParseHeader_Basic(t *testing.T) {
	rom := buildROM("TEST", 0x01, 0x01, 0x02, 64*1024) // MBC1, 64KiB, 8KiB RAM
	h, err := ParseHeader(rom)
	if err != nil {
		t.Fatalf("ParseHeader error: %v", err)
	}
	if h.Title != "TEST" {
		t.Fatalf("Title got %q want %q", h.Title, "TEST")
	}
	if h.CartType != 0x01 || h.ROMBanks != 4 || h.RAMBytes != 8*1024 {
		t.Fatalf("decode got type %#02x banks %d ram %d", h.CartType, h.ROMBanks, h.RAMBytes)
	}
	if !h.ChecksumOK {
		t.Fatalf("ChecksumOK = false, want true")
	}
	if !h.NeedsMapper() {
		t.Fatalf("MBC1 image should need a mapper")
	}
}

func TestParseHeader_ROMOnly(t *testing.T) {
	h, err := ParseHeader(buildROM("FLAT", 0x00, 0x00, 0x00, 32*1024))
	if err != nil {
		t.Fatalf("ParseHeader error: %v", err)
	}
	if h.ROMBanks != 2 || h.NeedsMapper() {
		t.Fatalf("32KiB ROM-only image: banks %d needsMapper %v", h.ROMBanks, h.NeedsMapper())
	}
}

func TestHeaderChecksum_Bad(t *testing.T) {
	rom := buildROM("TEST", 0x00, 0x00, 0x00, 32*1024)
	rom[0x0134] ^= 0xFF // corrupt a header byte
	h, err := ParseHeader(rom)
	if err != nil {
		t.Fatalf("ParseHeader error: %v", err)
	}
	if h.ChecksumOK {
		t.Fatalf("ChecksumOK = true, want false after corruption")
	}
}

func TestParseHeader_ShortROM(t *testing.T) {
	short := make([]byte, 0x140) // too small (header needs through 0x014F)
	if _, err := ParseHeader(short); !errors.Is(err, ErrShortROM) {
		t.Fatalf("got %v want ErrShortROM", err)
	}
}
