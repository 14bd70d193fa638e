package core

import (
	"bytes"
	"sort"
	"sync"
)

// SniffWindow is the number of leading bytes read from file sources before
// format detection.
const SniffWindow = 30

// Match is the result of a successful signature lookup.
type Match struct {
	Format Format
	// Confidence is the number of signature bytes that matched.
	Confidence int
}

type magic struct {
	offset int
	bytes  []byte
}

type signature struct {
	format Format
	// any one of alternatives must match; every magic in an alternative must match.
	alternatives [][]magic
	// trailing whitespace required after the magic (netpbm headers).
	needSpace bool
}

// Signature order is fixed and deterministic.
var signatures = []signature{
	{format: FormatJPEG, alternatives: [][]magic{{{0, []byte{0xFF, 0xD8, 0xFF}}}}},
	{format: FormatPNG, alternatives: [][]magic{{{0, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}}}}},
	{format: FormatGIF, alternatives: [][]magic{
		{{0, []byte("GIF87a")}},
		{{0, []byte("GIF89a")}},
	}},
	{format: FormatBMP, alternatives: [][]magic{{{0, []byte("BM")}}}},
	{format: FormatTIFF, alternatives: [][]magic{
		{{0, []byte{'I', 'I', 0x2A, 0x00}}},
		{{0, []byte{'M', 'M', 0x00, 0x2A}}},
	}},
	{format: FormatWebP, alternatives: [][]magic{{{0, []byte("RIFF")}, {8, []byte("WEBP")}}}},
	{format: FormatAVIF, alternatives: [][]magic{
		{{4, []byte("ftypavif")}},
		{{4, []byte("ftypavis")}},
	}},
	{format: FormatPPM, needSpace: true, alternatives: [][]magic{
		{{0, []byte("P1")}},
		{{0, []byte("P2")}},
		{{0, []byte("P3")}},
		{{0, []byte("P4")}},
		{{0, []byte("P5")}},
		{{0, []byte("P6")}},
		{{0, []byte("P7")}},
	}},
}

// Extensions are matched case-sensitively.
var extensions = map[string]Format{
	"png":  FormatPNG,
	"jpg":  FormatJPEG,
	"jpeg": FormatJPEG,
	"gif":  FormatGIF,
	"bmp":  FormatBMP,
	"tif":  FormatTIFF,
	"tiff": FormatTIFF,
	"webp": FormatWebP,
	"ppm":  FormatPPM,
	"pgm":  FormatPPM,
	"pnm":  FormatPPM,
	"avif": FormatAVIF,
}

// Names accepted for an explicitly requested output format.
var formatNames = map[string]Format{
	"png":  FormatPNG,
	"jpeg": FormatJPEG,
	"jpg":  FormatJPEG,
	"gif":  FormatGIF,
	"bmp":  FormatBMP,
	"tiff": FormatTIFF,
	"tif":  FormatTIFF,
	"webp": FormatWebP,
	"ppm":  FormatPPM,
	"pgm":  FormatPPM,
	"pnm":  FormatPPM,
	"avif": FormatAVIF,
}

func (s signature) match(prefix []byte) (int, bool) {
	for _, alt := range s.alternatives {
		n, ok := matchAll(prefix, alt)
		if !ok {
			continue
		}
		if s.needSpace {
			end := alt[len(alt)-1].offset + len(alt[len(alt)-1].bytes)
			if len(prefix) <= end || !isSpace(prefix[end]) {
				continue
			}
		}
		return n, true
	}
	return 0, false
}

func matchAll(prefix []byte, ms []magic) (int, bool) {
	n := 0
	for _, m := range ms {
		end := m.offset + len(m.bytes)
		if len(prefix) < end || !bytes.Equal(prefix[m.offset:end], m.bytes) {
			return 0, false
		}
		n += len(m.bytes)
	}
	return n, true
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// ── Registry ──────────────────────────────────────────────────────────────────

// DefaultRegistry is a thread-safe implementation of Registry.
type DefaultRegistry struct {
	mu       sync.RWMutex
	decoders map[Format]Decoder
	encoders map[Format]Encoder
}

// NewRegistry returns an empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		decoders: make(map[Format]Decoder),
		encoders: make(map[Format]Encoder),
	}
}

func (r *DefaultRegistry) RegisterDecoder(f Format, d Decoder) {
	r.mu.Lock()
	r.decoders[f] = d
	r.mu.Unlock()
}

func (r *DefaultRegistry) RegisterEncoder(f Format, e Encoder) {
	r.mu.Lock()
	r.encoders[f] = e
	r.mu.Unlock()
}

func (r *DefaultRegistry) DecoderFor(f Format) (Decoder, bool) {
	r.mu.RLock()
	d, ok := r.decoders[f]
	r.mu.RUnlock()
	return d, ok
}

func (r *DefaultRegistry) EncoderFor(f Format) (Encoder, bool) {
	r.mu.RLock()
	e, ok := r.encoders[f]
	r.mu.RUnlock()
	return e, ok
}

func (r *DefaultRegistry) HasDecoder(f Format) bool {
	_, ok := r.DecoderFor(f)
	return ok
}

func (r *DefaultRegistry) HasEncoder(f Format) bool {
	_, ok := r.EncoderFor(f)
	return ok
}

// GuessFormat returns the first signature that matches prefix. Matching does
// not depend on registered codecs, so callers can tell a recognised format
// without a decoder from an unrecognised one.
func (r *DefaultRegistry) GuessFormat(prefix []byte) (Match, bool) {
	for _, sig := range signatures {
		if n, ok := sig.match(prefix); ok {
			return Match{Format: sig.format, Confidence: n}, true
		}
	}
	return Match{Format: FormatUnknown}, false
}

// EncoderForExtension maps a file extension without the leading dot to a
// format that can be encoded.
func (r *DefaultRegistry) EncoderForExtension(ext string) (Format, bool) {
	f, ok := extensions[ext]
	if !ok || !r.HasEncoder(f) {
		return FormatUnknown, false
	}
	return f, true
}

// FormatByName resolves an explicitly requested output format name.
func (r *DefaultRegistry) FormatByName(name string) (Format, bool) {
	f, ok := formatNames[name]
	if !ok {
		return FormatUnknown, false
	}
	return f, true
}

// Capability describes what the registry can do with one format.
type Capability struct {
	Format  Format `json:"format"`
	Decode  bool   `json:"decode"`
	Encode  bool   `json:"encode"`
	Sniffed bool   `json:"sniffed"`
}

// Formats reports every known format with its capabilities, in signature
// order followed by formats detected by extension only.
func (r *DefaultRegistry) Formats() []Capability {
	seen := make(map[Format]bool)
	var out []Capability
	for _, sig := range signatures {
		if seen[sig.format] {
			continue
		}
		seen[sig.format] = true
		out = append(out, Capability{
			Format:  sig.format,
			Decode:  r.HasDecoder(sig.format),
			Encode:  r.HasEncoder(sig.format),
			Sniffed: true,
		})
	}
	var rest []Format
	for _, f := range extensions {
		if !seen[f] {
			seen[f] = true
			rest = append(rest, f)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, f := range rest {
		out = append(out, Capability{Format: f, Decode: r.HasDecoder(f), Encode: r.HasEncoder(f)})
	}
	return out
}
