package main

import (
	"bytes"
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"png", FormatPNG},
		{".png", FormatPNG},
		{"jpeg", FormatJPEG},
		{"jpg", FormatJPEG},
		{"JPG", FormatJPEG},
		{"tif", FormatTIFF},
		{"tiff", FormatTIFF},
		{"gif", FormatGIF},
		{"bmp", FormatBMP},
		{"ico", FormatICO},
	}
	for _, tc := range tests {
		got, err := ParseFormat(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, in := range []string{"webp", "avif", "mp4", ""} {
		_, err := ParseFormat(in)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, in)
	}
}

func TestConvert_Resize(t *testing.T) {
	src := encodePNG(t, makeTestImage(100, 80))
	var out bytes.Buffer

	err := NewImagingConverter().Convert(context.Background(), bytes.NewReader(src), &out, ConvertOptions{
		Format:   FormatPNG,
		MaxWidth: 50,
	})
	require.NoError(t, err)

	img, format, err := image.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
}

func TestConvert_NeverUpscales(t *testing.T) {
	src := encodePNG(t, makeTestImage(100, 80))
	var out bytes.Buffer

	err := NewImagingConverter().Convert(context.Background(), bytes.NewReader(src), &out, ConvertOptions{
		Format:   FormatPNG,
		MaxWidth: 500,
	})
	require.NoError(t, err)

	img, _, err := image.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())
}

func TestConvert_Crop(t *testing.T) {
	src := encodePNG(t, makeTestImage(100, 80))
	var out bytes.Buffer

	err := NewImagingConverter().Convert(context.Background(), bytes.NewReader(src), &out, ConvertOptions{
		Format: FormatPNG,
		Crop:   &Rect{X: 10, Y: 10, Width: 40, Height: 30},
	})
	require.NoError(t, err)

	img, _, err := image.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestConvert_CropOverhangIsTrimmed(t *testing.T) {
	src := encodePNG(t, makeTestImage(100, 80))
	var out bytes.Buffer

	err := NewImagingConverter().Convert(context.Background(), bytes.NewReader(src), &out, ConvertOptions{
		Format: FormatPNG,
		Crop:   &Rect{X: 80, Y: 60, Width: 50, Height: 50},
	})
	require.NoError(t, err)

	img, _, err := image.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
}

func TestConvert_CropErrors(t *testing.T) {
	src := encodePNG(t, makeTestImage(100, 80))
	converter := NewImagingConverter()

	var out bytes.Buffer
	err := converter.Convert(context.Background(), bytes.NewReader(src), &out, ConvertOptions{
		Format: FormatPNG,
		Crop:   &Rect{X: 10, Y: 10, Width: 0, Height: 30},
	})
	assert.ErrorContains(t, err, "invalid crop")

	out.Reset()
	err = converter.Convert(context.Background(), bytes.NewReader(src), &out, ConvertOptions{
		Format: FormatPNG,
		Crop:   &Rect{X: 500, Y: 500, Width: 40, Height: 40},
	})
	assert.ErrorContains(t, err, "outside image bounds")
}

func TestConvert_JPEGOutput(t *testing.T) {
	src := encodePNG(t, makeTestImage(60, 40))
	var out bytes.Buffer

	err := NewImagingConverter().Convert(context.Background(), bytes.NewReader(src), &out, ConvertOptions{
		Format:  FormatJPEG,
		Quality: 70,
	})
	require.NoError(t, err)

	_, format, err := image.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestConvert_UnsupportedOutputFormat(t *testing.T) {
	src := encodePNG(t, makeTestImage(60, 40))
	var out bytes.Buffer

	err := NewImagingConverter().Convert(context.Background(), bytes.NewReader(src), &out, ConvertOptions{
		Format: Format("webp"),
	})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestConvert_CanceledContext(t *testing.T) {
	src := encodePNG(t, makeTestImage(60, 40))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := NewImagingConverter().Convert(ctx, bytes.NewReader(src), &out, ConvertOptions{Format: FormatPNG})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvert_BadInput(t *testing.T) {
	var out bytes.Buffer
	err := NewImagingConverter().Convert(context.Background(), bytes.NewReader([]byte("not an image")), &out, ConvertOptions{Format: FormatPNG})
	assert.ErrorContains(t, err, "failed to decode image")
}
