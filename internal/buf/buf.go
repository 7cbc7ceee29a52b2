// Package buf implements the fixed-capacity byte buffer shared by the
// DF1 framer, receiver, transmitter, client sockets, and the PCCC
// message pool. A Buf has an append cursor (Len) and a read cursor
// (Index); 0 <= Index <= Len <= capacity always holds. All append
// operations fail atomically on overflow; all get operations fail
// atomically on a short read.
package buf

import "io"

// Buf is a byte buffer with independent write and read cursors.
type Buf struct {
	data  []byte
	len   int
	index int
}

// New allocates a buffer with the given capacity. The buffer starts empty.
func New(capacity int) *Buf {
	return &Buf{data: make([]byte, capacity)}
}

// Len returns the number of bytes currently held.
func (b *Buf) Len() int { return b.len }

// Index returns the current read cursor.
func (b *Buf) Index() int { return b.index }

// Cap returns the buffer's fixed capacity.
func (b *Buf) Cap() int { return len(b.data) }

// Bytes returns the filled portion of the buffer, data[0:Len()].
// Callers must not mutate the returned slice.
func (b *Buf) Bytes() []byte { return b.data[:b.len] }

// Unread returns the not-yet-read portion, data[Index():Len()].
func (b *Buf) Unread() []byte { return b.data[b.index:b.len] }

// AppendByte appends a single byte, failing if the buffer is full.
func (b *Buf) AppendByte(v byte) error {
	if b.len == len(b.data) {
		return ErrOverflow
	}
	b.data[b.len] = v
	b.len++
	return nil
}

// AppendU16LE appends a 16-bit word in link (little-endian) byte order.
func (b *Buf) AppendU16LE(v uint16) error {
	newLen := b.len + 2
	if newLen > len(b.data) {
		return ErrOverflow
	}
	b.data[b.len] = byte(v)
	b.data[b.len+1] = byte(v >> 8)
	b.len = newLen
	return nil
}

// AppendU32LE appends a 32-bit word in link (little-endian) byte order.
func (b *Buf) AppendU32LE(v uint32) error {
	newLen := b.len + 4
	if newLen > len(b.data) {
		return ErrOverflow
	}
	b.data[b.len] = byte(v)
	b.data[b.len+1] = byte(v >> 8)
	b.data[b.len+2] = byte(v >> 16)
	b.data[b.len+3] = byte(v >> 24)
	b.len = newLen
	return nil
}

// AppendStr appends the bytes of s with no terminator.
func (b *Buf) AppendStr(s string) error {
	return b.AppendBlob([]byte(s))
}

// AppendBlob appends an arbitrary byte slice.
func (b *Buf) AppendBlob(src []byte) error {
	newLen := b.len + len(src)
	if newLen > len(b.data) {
		return ErrOverflow
	}
	copy(b.data[b.len:newLen], src)
	b.len = newLen
	return nil
}

// AppendBuf appends the filled contents of src.
func (b *Buf) AppendBuf(src *Buf) error {
	return b.AppendBlob(src.Bytes())
}

// GetByte reads one byte at Index, advancing it by one.
func (b *Buf) GetByte() (byte, error) {
	if b.index == b.len {
		return 0, ErrShort
	}
	v := b.data[b.index]
	b.index++
	return v, nil
}

// GetU16LE reads a little-endian 16-bit word at Index.
func (b *Buf) GetU16LE() (uint16, error) {
	newIndex := b.index + 2
	if newIndex > b.len {
		return 0, ErrShort
	}
	v := uint16(b.data[b.index]) | uint16(b.data[b.index+1])<<8
	b.index = newIndex
	return v, nil
}

// GetU32LE reads a little-endian 32-bit word at Index.
func (b *Buf) GetU32LE() (uint32, error) {
	newIndex := b.index + 4
	if newIndex > b.len {
		return 0, ErrShort
	}
	v := uint32(b.data[b.index]) | uint32(b.data[b.index+1])<<8 |
		uint32(b.data[b.index+2])<<16 | uint32(b.data[b.index+3])<<24
	b.index = newIndex
	return v, nil
}

// SetIndex repositions the read cursor. i must lie within [0, Len].
func (b *Buf) SetIndex(i int) error {
	if i < 0 || i > b.len {
		return ErrShort
	}
	b.index = i
	return nil
}

// WriteReady reports whether the buffer has unwritten data pending, i.e.
// it is non-empty and its read cursor has not reached the end.
func (b *Buf) WriteReady() bool {
	return b.len > 0 && b.index != b.len
}

// ReadFrom replaces the entire contents of the buffer with one Read
// from r, resetting Index to zero. Any previous contents are
// discarded.
func (b *Buf) ReadFrom(r io.Reader) (int, error) {
	n, err := r.Read(b.data)
	b.index = 0
	if n < 0 {
		n = 0
	}
	b.len = n
	return n, err
}

// WriteTo writes the unread portion of the buffer to w, advancing Index
// by the number of bytes actually written. The buffer is emptied
// automatically once Index reaches Len.
func (b *Buf) WriteTo(w io.Writer) (int, error) {
	n, err := w.Write(b.data[b.index:b.len])
	b.index += n
	if b.index == b.len {
		b.Empty()
	}
	return n, err
}

// Empty resets both cursors to zero without clearing the underlying data.
func (b *Buf) Empty() {
	b.len = 0
	b.index = 0
}
