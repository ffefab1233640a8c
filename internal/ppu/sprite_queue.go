package ppu

const (
	oamSlots       = 40
	maxLineSprites = 10
	// listHead is the sentinel slot of the ordering list; listEnd terminates it.
	listHead = oamSlots
	listEnd  = -1
)

// OAM flag bits consumed by the sprite queue. Bit 7 (behind BG) is passed
// through untouched in Flags.
const (
	FlagPalette1 = 1 << 4
	FlagFlipX    = 1 << 5
	FlagFlipY    = 1 << 6
	FlagBehindBG = 1 << 7
)

// Palette is a resolved 4-colour table. Entries are packed 0xAARRGGBB.
type Palette [4]uint32

// TileReader exposes tile memory (0x8000-0x8FFF) as 16-bit words, eight
// words per tile. The low byte of a word is the low bitplane of a row.
type TileReader interface {
	TileWord(index int) uint16
}

// SpriteQueue selects and orders the sprites visible on one scanline the way
// the DMG OAM scan does it: at most ten sprites per line, taken in OAM order,
// then drawn in ascending X order.
//
// After Initialize the first Len entries of Data, X, Flags and Palette
// describe the visible sprites, highest priority first. The queue reads OAM,
// tile memory and the palettes it was created with; it never writes them.
type SpriteQueue struct {
	Len     int
	Data    [maxLineSprites]uint16
	X       [maxLineSprites]int
	Flags   [maxLineSprites]byte
	Palette [maxLineSprites]*Palette

	oam   []byte
	tiles TileReader
	pal   [2]*Palette

	// next is a singly linked list over OAM slots, headed by next[listHead].
	next   [oamSlots + 1]int
	cacheX [oamSlots]int
	cacheY [oamSlots]int
}

// NewSpriteQueue binds a queue to 160 bytes of OAM, tile memory and the two
// object palettes.
func NewSpriteQueue(oam []byte, tiles TileReader, obj0, obj1 *Palette) *SpriteQueue {
	return &SpriteQueue{oam: oam, tiles: tiles, pal: [2]*Palette{obj0, obj1}}
}

// Clear empties the queue, as for a line with objects disabled.
func (q *SpriteQueue) Clear() { q.Len = 0 }

// Initialize rebuilds the queue for scanline. Lines outside 0..143 simply
// find no sprites.
func (q *SpriteQueue) Initialize(scanline int, doubleHeight bool) {
	height := 8
	if doubleHeight {
		height = 16
	}

	q.Len = 0
	q.next[listHead] = listEnd

	for i := 0; i < oamSlots && q.Len < maxLineSprites; i++ {
		y := int(q.oam[i*4]) - 16
		if scanline < y || scanline >= y+height {
			continue
		}
		x := int(q.oam[i*4+1]) - 8
		q.cacheY[i] = y
		q.cacheX[i] = x

		// A later slot with equal X is placed in front of the earlier one.
		prev := listHead
		for q.next[prev] != listEnd && x > q.cacheX[q.next[prev]] {
			prev = q.next[prev]
		}
		q.next[i] = q.next[prev]
		q.next[prev] = i
		q.Len++
	}

	slot := listHead
	for n := 0; n < q.Len; n++ {
		slot = q.next[slot]
		base := slot * 4
		tile := int(q.oam[base+2])
		flags := q.oam[base+3]

		row := scanline - q.cacheY[slot]
		if flags&FlagFlipY != 0 {
			row = height - 1 - row
		}
		if doubleHeight {
			tile &^= 1
		}
		data := q.tiles.TileWord(tile*8 + row)
		if flags&FlagFlipX != 0 {
			data = flipRow(data)
		}

		q.Data[n] = data
		q.X[n] = q.cacheX[slot]
		q.Flags[n] = flags
		if flags&FlagPalette1 != 0 {
			q.Palette[n] = q.pal[1]
		} else {
			q.Palette[n] = q.pal[0]
		}
	}
}

// ColorIndex returns the 2-bit colour of column col (0 = leftmost) of the
// i-th queued sprite. Colour 0 is transparent.
func (q *SpriteQueue) ColorIndex(i, col int) byte {
	bit := 7 - uint(col&7)
	w := q.Data[i]
	return byte(w>>bit&1) | byte(w>>(8+bit)&1)<<1
}
