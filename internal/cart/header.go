// Package cart reads cartridge headers. The bus maps a flat 32 KiB image;
// bank switching is not modelled, so the header is used to name the game and
// to warn about images that need a mapper.
package cart

import (
	"errors"
	"fmt"
	"strings"
)

// ErrShortROM is returned for images that end before the header does.
var ErrShortROM = errors.New("cart: ROM too small to contain a header")

const (
	titleStart    = 0x0134
	titleEnd      = 0x0144
	cartTypeAddr  = 0x0147
	romSizeAddr   = 0x0148
	ramSizeAddr   = 0x0149
	checksumAddr  = 0x014D
	headerEnd     = 0x014F
	romOnlyType   = 0x00
	unbankedBanks = 2
)

type Header struct {
	Title      string
	CartType   byte // 0x0147
	ROMBanks   int  // 16 KiB banks, 0 for unknown size codes
	RAMBytes   int
	ChecksumOK bool // header checksum over 0x0134–0x014C
}

func ParseHeader(rom []byte) (Header, error) {
	if len(rom) <= headerEnd {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortROM, len(rom))
	}
	h := Header{
		Title:    strings.TrimRight(string(rom[titleStart:titleEnd]), "\x00"),
		CartType: rom[cartTypeAddr],
		ROMBanks: romBanks(rom[romSizeAddr]),
		RAMBytes: ramBytes(rom[ramSizeAddr]),
	}
	var sum byte
	for addr := titleStart; addr < checksumAddr; addr++ {
		sum = sum - rom[addr] - 1
	}
	h.ChecksumOK = sum == rom[checksumAddr]
	return h, nil
}

// NeedsMapper reports whether the image relies on bank switching or
// cartridge RAM, neither of which the bus provides.
func (h Header) NeedsMapper() bool {
	return h.CartType != romOnlyType || h.ROMBanks > unbankedBanks || h.RAMBytes > 0
}

func (h Header) String() string {
	return fmt.Sprintf("%q type=%#02x banks=%d ram=%d", h.Title, h.CartType, h.ROMBanks, h.RAMBytes)
}

func romBanks(code byte) int {
	switch {
	case code <= 0x08:
		return unbankedBanks << code
	case code == 0x52:
		return 72
	case code == 0x53:
		return 80
	case code == 0x54:
		return 96
	default:
		return 0
	}
}

func ramBytes(code byte) int {
	switch code {
	case 0x02:
		return 8 * 1024
	case 0x03:
		return 32 * 1024
	case 0x04:
		return 128 * 1024
	case 0x05:
		return 64 * 1024
	default:
		return 0
	}
}
