package buf

import "errors"

// ErrOverflow is returned by append operations that would exceed capacity.
// No partial data is written when this is returned.
var ErrOverflow = errors.New("buf: buffer full")

// ErrShort is returned by get operations that would read past Len.
// The read cursor is left unchanged when this is returned.
var ErrShort = errors.New("buf: short read")
