package savestate

import "fmt"

// Reader consumes a stream produced by Writer. Like the writer, the first
// error is sticky.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader reads from data starting at offset 0. data is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if n < 0 || n > len(r.buf)-r.off {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, length %d", ErrShortBuffer, n, r.off, len(r.buf))
		return nil, r.err
	}
	p := r.buf[r.off : r.off+n]
	r.off += n
	return p, nil
}

func (r *Reader) fail(err error) error {
	if r.err == nil {
		r.err = err
	}
	return err
}

// Read16 consumes one word.
func (r *Reader) Read16() (uint16, error) {
	p, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return uint16(p[0]) | uint16(p[1])<<8, nil
}

// Read32 consumes two words, low word first.
func (r *Reader) Read32() (uint32, error) {
	lo, err := r.Read16()
	if err != nil {
		return 0, err
	}
	hi, err := r.Read16()
	if err != nil {
		return 0, err
	}
	return uint32(lo) | uint32(hi)<<16, nil
}

// ReadBool consumes one word that must be exactly 0 or 1.
func (r *Reader) ReadBool() (bool, error) {
	at := r.off
	v, err := r.Read16()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, r.fail(fmt.Errorf("%w: %#04x at offset %d", ErrInvalidBool, v, at))
}

// ReadBuffer consumes n bytes plus the padding byte written for odd lengths
// and returns a copy of the n bytes.
func (r *Reader) ReadBuffer(n int) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	// bounds first, so a corrupt length cannot drive the allocation
	if n < 0 || n > len(r.buf)-r.off {
		r.err = fmt.Errorf("%w: buffer of %d bytes at offset %d, length %d", ErrShortBuffer, n, r.off, len(r.buf))
		return nil, r.err
	}
	out := make([]byte, n)
	if err := r.ReadInto(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadInto fills dst exactly like ReadBuffer(len(dst)) without allocating.
func (r *Reader) ReadInto(dst []byte) error {
	p, err := r.take(len(dst) + len(dst)&1)
	if err != nil {
		return err
	}
	copy(dst, p)
	return nil
}

// ValidateChunk consumes a framing word and checks that it opens the chunk
// id. It returns the version the chunk was written with.
func (r *Reader) ValidateChunk(id ChunkID) (uint8, error) {
	at := r.off
	word, err := r.Read16()
	if err != nil {
		return 0, err
	}
	got, version, ok := unpackChunk(word)
	if !ok {
		return 0, r.fail(fmt.Errorf("%w: word %#04x at offset %d, want %v", ErrBadMagic, word, at, id))
	}
	if got != id {
		return 0, r.fail(fmt.Errorf("%w: got %v want %v at offset %d", ErrChunkMismatch, got, id, at))
	}
	return version, nil
}

// Offset is the cursor position in bytes.
func (r *Reader) Offset() int { return r.off }

// Remaining is the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Err reports the sticky error, if any.
func (r *Reader) Err() error { return r.err }
