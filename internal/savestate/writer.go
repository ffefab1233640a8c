package savestate

import "fmt"

// Writer appends words to a pre-allocated buffer. The first failure is
// sticky: once the capacity has been exceeded or a chunk was rejected every
// further call returns the same error and the writer must be discarded.
type Writer struct {
	buf []byte
	n   int
	err error
}

// NewWriter allocates a writer with the given capacity in bytes.
func NewWriter(capacity int) *Writer {
	if capacity < 0 {
		capacity = 0
	}
	return &Writer{buf: make([]byte, capacity)}
}

// NewWriterBuffer writes into buf, whose length is the capacity. The buffer
// is owned by the caller; Bytes returns a sub-slice of it.
func NewWriterBuffer(buf []byte) *Writer {
	return &Writer{buf: buf}
}

func (w *Writer) reserve(n int) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if n > len(w.buf)-w.n {
		w.err = fmt.Errorf("%w: need %d bytes at offset %d, capacity %d", ErrCapacity, n, w.n, len(w.buf))
		return 0, w.err
	}
	off := w.n
	w.n += n
	return off, nil
}

// Write16 appends one word.
func (w *Writer) Write16(v uint16) error {
	off, err := w.reserve(2)
	if err != nil {
		return err
	}
	w.buf[off] = byte(v)
	w.buf[off+1] = byte(v >> 8)
	return nil
}

// Write32 appends two words, low word first.
func (w *Writer) Write32(v uint32) error {
	if err := w.Write16(uint16(v)); err != nil {
		return err
	}
	return w.Write16(uint16(v >> 16))
}

// WriteBool appends one word holding 0 or 1.
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.Write16(1)
	}
	return w.Write16(0)
}

// WriteBuffer appends p, padded with a zero byte when its length is odd.
func (w *Writer) WriteBuffer(p []byte) error {
	size := len(p) + len(p)&1
	off, err := w.reserve(size)
	if err != nil {
		return err
	}
	copy(w.buf[off:], p)
	if size != len(p) {
		w.buf[off+len(p)] = 0
	}
	return nil
}

// StartChunk opens a version 0 section.
func (w *Writer) StartChunk(id ChunkID) error {
	return w.StartChunkVersion(id, 0)
}

// StartChunkVersion opens a section tagged with the given version.
func (w *Writer) StartChunkVersion(id ChunkID, version uint8) error {
	if w.err != nil {
		return w.err
	}
	if version > MaxVersion {
		w.err = fmt.Errorf("%w: version %d for %v", ErrChunkRange, version, id)
		return w.err
	}
	return w.Write16(packChunk(id, version))
}

// Bytes returns the data written so far. The slice aliases the writer's
// buffer.
func (w *Writer) Bytes() []byte { return w.buf[:w.n] }

// Len is the logical length of the stream.
func (w *Writer) Len() int { return w.n }

// Cap is the capacity the writer was created with.
func (w *Writer) Cap() int { return len(w.buf) }

// Err reports the sticky error, if any.
func (w *Writer) Err() error { return w.err }
