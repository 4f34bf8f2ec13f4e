// Package imagexfer implements the image transcoder (C5) of spec.md §4.5:
// decoding an arbitrary raster into the fixed 240x240 planar RGB565A8
// artifact the embedded device expects.
package imagexfer

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

const (
	Width  = 240
	Height = 240

	formatRGB565A8 = 1
	formatVersion  = 1

	HeaderSize = 16
	DataSize   = Width * Height * 3 // RGB plane + alpha plane
	Size       = HeaderSize + DataSize
)

var magic = [4]byte{'S', 'C', 'A', 'R'}

// Artifact is the full 172816-byte byte string produced for one upload,
// plus its CRC32, computed over the entire artifact including the header.
type Artifact struct {
	Bytes []byte
	CRC32 uint32
}

// CRCHex renders the artifact's CRC32 as the 8-uppercase-hex-digit string
// transmitted in IMG_END (spec.md §4.6).
func (a Artifact) CRCHex() string {
	return fmt.Sprintf("%08X", a.CRC32)
}

// writeHeader writes the 16-byte SCARAB header of spec.md §3 into dst.
func writeHeader(dst []byte) {
	copy(dst[0:4], magic[:])
	binary.LittleEndian.PutUint16(dst[4:6], Width)
	binary.LittleEndian.PutUint16(dst[6:8], Height)
	dst[8] = formatRGB565A8
	dst[9] = formatVersion
	dst[10] = 0
	dst[11] = 0
	binary.LittleEndian.PutUint32(dst[12:16], uint32(DataSize))
}

// buildArtifact assembles the final artifact from a populated RGB plane and
// alpha plane, computing the CRC32 over header+RGB+alpha per spec.md §3.
func buildArtifact(rgbPlane, alphaPlane []byte) Artifact {
	out := make([]byte, Size)
	writeHeader(out)
	copy(out[HeaderSize:HeaderSize+len(rgbPlane)], rgbPlane)
	copy(out[HeaderSize+len(rgbPlane):], alphaPlane)
	sum := crc32.ChecksumIEEE(out)
	return Artifact{Bytes: out, CRC32: sum}
}
