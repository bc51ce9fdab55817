package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
)

// maxIcoSize is the largest icon dimension the ICO format can describe;
// the width/height header bytes encode 256 as 0.
const maxIcoSize = 256

// icoDir is the ICONDIR header: reserved word, type (1 = icon), count.
type icoDir struct {
	Reserved uint16
	Type     uint16
	Count    uint16
}

// icoDirEntry is one ICONDIRENTRY. Planes/BitCount are advisory for
// PNG-compressed entries but are filled in for compatibility.
type icoDirEntry struct {
	Width    uint8
	Height   uint8
	Colors   uint8
	Reserved uint8
	Planes   uint16
	BitCount uint16
	Size     uint32
	Offset   uint32
}

const (
	icoDirSize      = 6
	icoDirEntrySize = 16
)

// EncodeICO writes img as a single-entry ICO file with a PNG-compressed
// payload (supported since Windows Vista). Images larger than 256px on
// either side are fitted down first.
func EncodeICO(w io.Writer, img image.Image) error {
	b := img.Bounds()
	if b.Dx() > maxIcoSize || b.Dy() > maxIcoSize {
		img = imaging.Fit(img, maxIcoSize, maxIcoSize, imaging.Lanczos)
		b = img.Bounds()
	}
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("cannot encode empty image as ico")
	}

	var payload bytes.Buffer
	if err := png.Encode(&payload, img); err != nil {
		return fmt.Errorf("failed to encode ico payload: %w", err)
	}

	dir := icoDir{Type: 1, Count: 1}
	entry := icoDirEntry{
		Width:    uint8(b.Dx() % maxIcoSize),
		Height:   uint8(b.Dy() % maxIcoSize),
		Planes:   1,
		BitCount: 32,
		Size:     uint32(payload.Len()),
		Offset:   icoDirSize + icoDirEntrySize,
	}

	if err := binary.Write(w, binary.LittleEndian, dir); err != nil {
		return fmt.Errorf("failed to write ico header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, entry); err != nil {
		return fmt.Errorf("failed to write ico directory entry: %w", err)
	}
	if _, err := payload.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write ico payload: %w", err)
	}
	return nil
}
