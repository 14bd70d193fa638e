package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	apperrors "github.com/Erithax/zune-image/errors"
)

// maxPooledBuffer is the largest buffer kept for reuse; bigger ones are
// left to the GC.
const maxPooledBuffer = 8 << 20

var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// AcquireBuffer returns an empty buffer, reusing an encode buffer from an
// earlier target when one is free.
func AcquireBuffer() *bytes.Buffer {
	b := bufPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// ReleaseBuffer hands b back. b must not be used afterwards.
func ReleaseBuffer(b *bytes.Buffer) {
	if b.Cap() <= maxPooledBuffer {
		bufPool.Put(b)
	}
}

// DrainReader reads all of r into memory. When max > 0 and r yields more than
// max bytes, ErrImageTooLarge is returned. The returned slice is owned by the
// caller.
func DrainReader(ctx context.Context, r io.Reader, chunkSize int, max int64) ([]byte, error) {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	buf := AcquireBuffer()
	defer ReleaseBuffer(buf)

	chunk := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if max > 0 && int64(buf.Len()) > max {
				return nil, fmt.Errorf("%w: more than %d bytes", apperrors.ErrImageTooLarge, max)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return CloneBytes(buf.Bytes()), nil
}

// CountingWriter forwards writes to W and counts the bytes that went through.
type CountingWriter struct {
	W io.Writer
	N int64
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.N += int64(n)
	return n, err
}
