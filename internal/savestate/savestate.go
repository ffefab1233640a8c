// Package savestate implements the chunked binary format used to snapshot
// and restore emulator subsystems.
//
// A stream is a flat sequence of little-endian 16-bit words. Each subsystem
// opens its section with a framing word (StartChunk) and then writes its
// payload; the reader validates the framing word of every section it expects
// before consuming the payload. There is no index or trailer, so the reader
// must know the order in which chunks were written.
package savestate

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacity is returned when a write would extend past the buffer capacity.
	ErrCapacity = errors.New("savestate: capacity exceeded")
	// ErrShortBuffer is returned when a read would consume past the end of the data.
	ErrShortBuffer = errors.New("savestate: read past end of buffer")
	// ErrBadMagic is returned when a framing word does not carry the chunk magic.
	ErrBadMagic = errors.New("savestate: chunk magic mismatch")
	// ErrChunkMismatch is returned when a chunk has a different id than expected.
	ErrChunkMismatch = errors.New("savestate: unexpected chunk")
	// ErrInvalidBool is returned when a boolean word is neither 0 nor 1.
	ErrInvalidBool = errors.New("savestate: invalid boolean word")
	// ErrUnsupportedVersion is returned by subsystems that find a chunk version
	// newer than the one they know how to restore.
	ErrUnsupportedVersion = errors.New("savestate: unsupported chunk version")
	// ErrChunkRange is returned when a chunk id or version does not fit the framing word.
	ErrChunkRange = errors.New("savestate: chunk id or version out of range")
)

// Framing word layout: magic nibble in bits 15..12, id in bits 11..4 and the
// version in bits 3..0.
const (
	chunkMagic   uint16 = 0xA000
	magicMask    uint16 = 0xF000
	idShift             = 4
	idMask       uint16 = 0x0FF0
	versionMask  uint16 = 0x000F
	MaxChunkID          = 0xFF
	MaxVersion          = 0x0F
)

// ChunkID names a section of the stream. Ids are allocated below so that
// no two subsystems share one.
type ChunkID uint8

const (
	ChunkMachine ChunkID = iota + 1
	ChunkBus
	ChunkPPU
	ChunkCPU
	ChunkAPU
	ChunkCartridge
)

func (id ChunkID) String() string {
	switch id {
	case ChunkMachine:
		return "machine"
	case ChunkBus:
		return "bus"
	case ChunkPPU:
		return "ppu"
	case ChunkCPU:
		return "cpu"
	case ChunkAPU:
		return "apu"
	case ChunkCartridge:
		return "cartridge"
	default:
		return fmt.Sprintf("chunk(%d)", uint8(id))
	}
}

// Serializer is implemented by every subsystem that takes part in a savestate.
// LoadState must leave the receiver untouched when it returns an error.
type Serializer interface {
	SaveState(w *Writer) error
	LoadState(r *Reader) error
}

func packChunk(id ChunkID, version uint8) uint16 {
	return chunkMagic | uint16(id)<<idShift | uint16(version)&versionMask
}

func unpackChunk(word uint16) (id ChunkID, version uint8, ok bool) {
	if word&magicMask != chunkMagic {
		return 0, 0, false
	}
	return ChunkID((word & idMask) >> idShift), uint8(word & versionMask), true
}
