package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

// Source is an input that can be opened for decoding any number of times.
type Source interface {
	// Name is "-" for stdin or the filesystem path.
	Name() string
	Open() (io.ReadCloser, error)
	// Prefix returns at most n leading bytes; n <= 0 means everything.
	Prefix(n int) ([]byte, error)
	Size() int64
}

// MemSource is a fully buffered input such as standard input.
type MemSource struct {
	name string
	data []byte
}

// NewMemSource wraps data. The slice must not be modified afterwards.
func NewMemSource(name string, data []byte) *MemSource {
	return &MemSource{name: name, data: data}
}

func (m *MemSource) Name() string { return m.name }

func (m *MemSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func (m *MemSource) Prefix(n int) ([]byte, error) {
	if n <= 0 || n > len(m.data) {
		return m.data, nil
	}
	return m.data[:n], nil
}

func (m *MemSource) Size() int64 { return int64(len(m.data)) }

// FileSource is a path-backed input. The file is opened lazily.
type FileSource struct {
	path string
	size int64
}

// NewFileSource stats path and returns a source for it.
func NewFileSource(path string) (*FileSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &FileSource{path: path, size: fi.Size()}, nil
}

func (f *FileSource) Name() string { return f.path }

func (f *FileSource) Open() (io.ReadCloser, error) { return os.Open(f.path) }

func (f *FileSource) Prefix(n int) ([]byte, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	if n <= 0 {
		return io.ReadAll(fh)
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(fh, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

func (f *FileSource) Size() int64 { return f.size }

// DecodeHandle binds a source to the decoder selected for its sniffed format.
type DecodeHandle struct {
	src    Source
	format Format
	dec    Decoder
	opts   DecodeOptions
}

// NewHandle returns a handle that decodes src as format with dec.
func NewHandle(src Source, format Format, dec Decoder, opts DecodeOptions) *DecodeHandle {
	return &DecodeHandle{src: src, format: format, dec: dec, opts: opts}
}

func (h *DecodeHandle) Format() Format { return h.format }

func (h *DecodeHandle) Source() Source { return h.src }

// Decode reads the whole source and returns every frame it contains, each
// tagged with the source format and size.
func (h *DecodeHandle) Decode(ctx context.Context) ([]*ImageData, error) {
	rc, err := h.src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	frames, err := h.dec.Decode(ctx, rc, h.opts)
	if err != nil {
		return nil, err
	}
	for i, f := range frames {
		f.Format = h.format
		f.Meta.Format = h.format
		f.Meta.Frame = i
		f.OriginalSize = h.src.Size()
	}
	return frames, nil
}
