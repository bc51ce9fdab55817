package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"

	// WEBP is decode-only: sources can be .webp, outputs cannot.
	_ "golang.org/x/image/webp"
)

// Format is an output image format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
	FormatICO  Format = "ico"
)

// ErrUnsupportedFormat is returned for formats the tool cannot encode.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatPNG, FormatJPEG, FormatGIF, FormatTIFF, FormatBMP, FormatICO:
		return f, nil
	case "jpg":
		return FormatJPEG, nil
	case "tif":
		return FormatTIFF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Ext returns the output file extension for the format, without the dot.
func (f Format) Ext() string {
	return string(f)
}

// DefaultJPEGQuality is used when an operation does not specify one.
const DefaultJPEGQuality = 90

// ImagingConverter is an implementation of the Converter interface using
// the disintegration/imaging library.
type ImagingConverter struct{}

// NewImagingConverter creates a new instance of ImagingConverter.
func NewImagingConverter() *ImagingConverter {
	return &ImagingConverter{}
}

// Convert reads an image from r, applies the optional crop and resize from
// opts, and writes it to w in the requested format.
func (c *ImagingConverter) Convert(ctx context.Context, r io.Reader, w io.Writer, opts ConvertOptions) error {
	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if opts.Crop != nil {
		src, err = cropImage(src, *opts.Crop)
		if err != nil {
			return err
		}
	}

	if opts.MaxWidth > 0 || opts.MaxHeight > 0 {
		b := src.Bounds()
		dims := ComputeOutputDimensions(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)
		if dims.Width != b.Dx() || dims.Height != b.Dy() {
			src = imaging.Resize(src, dims.Width, dims.Height, imaging.Lanczos)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return encodeImage(w, src, opts.Format, opts.Quality)
}

// cropImage extracts the rectangle from src, adjusting it to fit within
// the image bounds when it overhangs.
func cropImage(src image.Image, crop Rect) (image.Image, error) {
	r := crop.Round()
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("invalid crop dimensions: width=%g, height=%g", r.Width, r.Height)
	}

	bounds := src.Bounds()
	cropRect := image.Rect(int(r.X), int(r.Y), int(r.X+r.Width), int(r.Y+r.Height))
	if !cropRect.In(bounds) {
		cropRect = cropRect.Intersect(bounds)
		if cropRect.Empty() {
			return nil, fmt.Errorf("crop rectangle is outside image bounds")
		}
	}

	return imaging.Crop(src, cropRect), nil
}

func encodeImage(w io.Writer, img image.Image, format Format, quality int) error {
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	switch format {
	case FormatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	case FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatGIF:
		return imaging.Encode(w, img, imaging.GIF)
	case FormatTIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	case FormatBMP:
		return imaging.Encode(w, img, imaging.BMP)
	case FormatICO:
		return EncodeICO(w, img)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
