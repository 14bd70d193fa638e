package decoder

import (
	"bytes"
	"encoding/binary"
)

const (
	markerStart = 0xFF
	markerSOI   = 0xD8
	markerSOS   = 0xDA
	markerAPP1  = 0xE1

	tagOrientation = 0x0112
)

var exifHeader = []byte("Exif\x00\x00")

// Orientation returns the EXIF orientation (1-8) stored in the APP1 segment
// of a JPEG stream, or 0 when there is none.
func Orientation(data []byte) int {
	if len(data) < 4 || data[0] != markerStart || data[1] != markerSOI {
		return 0
	}
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != markerStart {
			return 0
		}
		marker := data[pos+1]
		if marker == markerSOS {
			return 0
		}
		size := int(binary.BigEndian.Uint16(data[pos+2:]))
		if size < 2 || pos+2+size > len(data) {
			return 0
		}
		payload := data[pos+4 : pos+2+size]
		if marker == markerAPP1 && bytes.HasPrefix(payload, exifHeader) {
			return tiffOrientation(payload[len(exifHeader):])
		}
		pos += 2 + size
	}
	return 0
}

// tiffOrientation walks IFD0 of a TIFF structure looking for the
// orientation tag.
func tiffOrientation(tiff []byte) int {
	if len(tiff) < 8 {
		return 0
	}
	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0
	}
	ifd := int(order.Uint32(tiff[4:]))
	if ifd+2 > len(tiff) {
		return 0
	}
	count := int(order.Uint16(tiff[ifd:]))
	for i := 0; i < count; i++ {
		entry := ifd + 2 + i*12
		if entry+12 > len(tiff) {
			return 0
		}
		if order.Uint16(tiff[entry:]) != tagOrientation {
			continue
		}
		v := int(order.Uint16(tiff[entry+8:]))
		if v < 1 || v > 8 {
			return 0
		}
		return v
	}
	return 0
}
