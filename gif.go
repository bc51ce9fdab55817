package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultGIFFPS and DefaultGIFWidth match the values the web UI
	// pre-fills for MP4 transcodes.
	DefaultGIFFPS   = 10
	DefaultGIFWidth = 480
)

// GIFOptions configure one MP4-to-GIF transcode. Zero values fall back to
// defaults; an empty Output derives a unique name from the input.
type GIFOptions struct {
	Input    string
	Output   string
	FPS      int
	Width    int
	Start    float64 // seconds into the input
	Duration float64 // seconds to transcode, 0 for the rest
}

func (o GIFOptions) withDefaults() GIFOptions {
	if o.FPS <= 0 {
		o.FPS = DefaultGIFFPS
	}
	if o.Width <= 0 {
		o.Width = DefaultGIFWidth
	}
	if o.Output == "" {
		base := strings.TrimSuffix(filepath.Base(o.Input), filepath.Ext(o.Input))
		o.Output = fmt.Sprintf("%s-%s.gif", base, uuid.NewString()[:8])
	}
	return o
}

// buildFFmpegArgs assembles the ffmpeg invocation: seek before the input
// for fast start offsets, then a palettegen/paletteuse filter graph so the
// GIF gets a per-clip 256-color palette instead of the generic one.
func buildFFmpegArgs(opts GIFOptions) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if opts.Start > 0 {
		args = append(args, "-ss", formatSeconds(opts.Start))
	}
	args = append(args, "-i", opts.Input)
	if opts.Duration > 0 {
		args = append(args, "-t", formatSeconds(opts.Duration))
	}
	filter := fmt.Sprintf(
		"fps=%d,scale=%d:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse",
		opts.FPS, opts.Width,
	)
	return append(args, "-filter_complex", filter, "-y", opts.Output)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FFmpegTranscoder drives an external ffmpeg binary.
type FFmpegTranscoder struct {
	Path string
}

// NewFFmpegTranscoder creates a transcoder; an empty path resolves ffmpeg
// from PATH.
func NewFFmpegTranscoder(path string) *FFmpegTranscoder {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegTranscoder{Path: path}
}

// Transcode runs ffmpeg and returns the output path on success. Stderr is
// folded into the error so failures carry ffmpeg's own diagnostics.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, opts GIFOptions) (string, error) {
	if opts.Input == "" {
		return "", fmt.Errorf("no input file given")
	}
	opts = opts.withDefaults()

	args := buildFFmpegArgs(opts)
	log.Ctx(ctx).Debug().
		Str("ffmpeg", t.Path).
		Strs("args", args).
		Msg("transcoding to gif")

	cmd := exec.CommandContext(ctx, t.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
		}
		return "", fmt.Errorf("ffmpeg failed: %w", err)
	}

	return opts.Output, nil
}
