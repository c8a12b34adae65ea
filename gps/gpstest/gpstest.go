// Package gpstest builds minimal JPEG and TIFF buffers carrying an EXIF GPS
// sub-IFD, so tests don't need binary fixtures. Individual GPS tags can be
// left out to exercise the missing-sub-field outcomes.
package gpstest

import (
	"bytes"
	"encoding/binary"
)

type Rational struct{ Num, Den uint32 }

// DMS is a whole-number degrees/minutes/seconds triple.
func DMS(d, m, s uint32) *[3]Rational {
	return &[3]Rational{{d, 1}, {m, 1}, {s, 1}}
}

// Tags describes which GPS tags to embed. An empty ref or nil triple omits
// that tag entirely.
type Tags struct {
	LatitudeRef  string
	Latitude     *[3]Rational
	LongitudeRef string
	Longitude    *[3]Rational
}

const (
	tagGPSPointer   = 0x8825
	tagLatitudeRef  = 0x0001
	tagLatitude     = 0x0002
	tagLongitudeRef = 0x0003
	tagLongitude    = 0x0004

	typeASCII    = 2
	typeLong     = 4
	typeRational = 5
)

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte // raw value bytes; anything over 4 goes to the data area
}

// TIFF builds a little-endian TIFF whose IFD0 holds a single pointer to a GPS
// sub-IFD carrying the requested tags.
func TIFF(t Tags) []byte {
	var entries []entry
	if t.LatitudeRef != "" {
		entries = append(entries, asciiEntry(tagLatitudeRef, t.LatitudeRef))
	}
	if t.Latitude != nil {
		entries = append(entries, rationalEntry(tagLatitude, *t.Latitude))
	}
	if t.LongitudeRef != "" {
		entries = append(entries, asciiEntry(tagLongitudeRef, t.LongitudeRef))
	}
	if t.Longitude != nil {
		entries = append(entries, rationalEntry(tagLongitude, *t.Longitude))
	}

	le := binary.LittleEndian
	buf := &bytes.Buffer{}

	buf.WriteString("II")
	binary.Write(buf, le, uint16(42))
	binary.Write(buf, le, uint32(8)) // IFD0 follows the header

	// IFD0: one entry, the GPS IFD pointer.
	gpsOffset := uint32(8 + 2 + 12 + 4)
	binary.Write(buf, le, uint16(1))
	binary.Write(buf, le, uint16(tagGPSPointer))
	binary.Write(buf, le, uint16(typeLong))
	binary.Write(buf, le, uint32(1))
	binary.Write(buf, le, gpsOffset)
	binary.Write(buf, le, uint32(0))

	// GPS IFD, with out-of-line values packed after it.
	dataOffset := gpsOffset + 2 + uint32(len(entries))*12 + 4
	var dataArea bytes.Buffer
	binary.Write(buf, le, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(buf, le, e.tag)
		binary.Write(buf, le, e.typ)
		binary.Write(buf, le, e.count)
		if len(e.data) <= 4 {
			inline := make([]byte, 4)
			copy(inline, e.data)
			buf.Write(inline)
		} else {
			binary.Write(buf, le, dataOffset+uint32(dataArea.Len()))
			dataArea.Write(e.data)
		}
	}
	binary.Write(buf, le, uint32(0))
	buf.Write(dataArea.Bytes())

	return buf.Bytes()
}

// JPEG wraps the same GPS payload in a JPEG APP1 Exif segment.
func JPEG(t Tags) []byte {
	payload := append([]byte("Exif\x00\x00"), TIFF(t)...)

	buf := &bytes.Buffer{}
	buf.Write([]byte{0xFF, 0xD8}) // SOI
	buf.Write([]byte{0xFF, 0xE1}) // APP1
	binary.Write(buf, binary.BigEndian, uint16(len(payload)+2))
	buf.Write(payload)
	buf.Write([]byte{0xFF, 0xD9}) // EOI
	return buf.Bytes()
}

// PlainJPEG is a valid JPEG signature with no EXIF block at all.
func PlainJPEG() []byte {
	return []byte{
		0xFF, 0xD8, // SOI
		0xFF, 0xE0, 0x00, 0x10, // APP0, 16 bytes
		'J', 'F', 'I', 'F', 0x00,
		0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
		0xFF, 0xD9, // EOI
	}
}

func asciiEntry(tag uint16, s string) entry {
	return entry{
		tag:   tag,
		typ:   typeASCII,
		count: uint32(len(s) + 1),
		data:  append([]byte(s), 0),
	}
}

func rationalEntry(tag uint16, r [3]Rational) entry {
	var data bytes.Buffer
	for _, v := range r {
		binary.Write(&data, binary.LittleEndian, v.Num)
		binary.Write(&data, binary.LittleEndian, v.Den)
	}
	return entry{tag: tag, typ: typeRational, count: 3, data: data.Bytes()}
}
