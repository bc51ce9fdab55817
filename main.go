package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("converter"),
		kong.UsageOnError(),
	)
	if err := cliCtx.Run(); err != nil {
		return err
	}

	return nil
}

type cliArgs struct {
	Serve   serveCmd   `cmd:"" default:"withargs" help:"Serve the web UI for a directory of images"`
	Convert convertCmd `cmd:"" help:"Convert image files from the command line"`
	GIF     gifCmd     `cmd:"" name:"gif" help:"Transcode an MP4 to GIF using ffmpeg"`
}

type logArgs struct {
	Verbose bool   `help:"Enable verbose logging" default:"false"`
	LogFile string `help:"Also write logs to this file, with rotation"`
}

// setup configures the global logger and returns a context that ends on
// interrupt.
func (l logArgs) setup() (context.Context, context.CancelFunc) {
	level := zerolog.InfoLevel
	if l.Verbose {
		level = zerolog.DebugLevel
	}
	var writer zerolog.LevelWriter = zerolog.MultiLevelWriter(zerolog.NewConsoleWriter())
	if l.LogFile != "" {
		writer = zerolog.MultiLevelWriter(zerolog.NewConsoleWriter(), &lumberjack.Logger{
			Filename:   l.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		})
	}
	log.Logger = log.Output(writer).Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	return log.Logger.WithContext(ctx), cancel
}

type serveCmd struct {
	logArgs
	RootDir string `arg:"" help:"Root directory to serve files from"`
	Open    bool   `help:"Open the browser automatically when the server starts" default:"true"`
	JSON    bool   `help:"Output operations in JSON format without executing"`
	Once    bool   `help:"Run the server once and exit after save" default:"true"`
}

func (cmd *serveCmd) Run() error {
	ctx, cancel := cmd.logArgs.setup()
	defer cancel()

	executor := &OperationExecutor{
		BaseDir:   cmd.RootDir,
		OutputDir: filepath.Join(cmd.RootDir, "output"),
		Converter: NewImagingConverter(),
	}

	app := NewWebApp(Config{
		RootDir: cmd.RootDir,
		OnBeforeShutdown: func() {
			log.Ctx(ctx).Info().Msg("Shutting down web application...")
		},
		OnReady: func(addr string) {
			log.Ctx(ctx).Info().Msgf("Server started at %s", addr)
			if cmd.Open {
				if err := openBrowser(addr); err != nil {
					log.Error().Err(err).Msg("Failed to open browser")
				}
			}
		},
		OnSave: func(ops Operations) {
			if cmd.JSON {
				printJSONL(ops)
			} else {
				if err := executor.Exec(ctx, ops); err != nil {
					log.Ctx(ctx).Error().Err(err).Msg("Failed to execute operations")
				}
			}

			if cmd.Once {
				cancel()
			}
		},
	})

	if err := app.Run(ctx); err != nil {
		return err
	}

	return nil
}

type convertCmd struct {
	logArgs
	Files     []string `arg:"" help:"Image files to convert"`
	Format    string   `help:"Output format: png, jpeg, gif, tiff, bmp or ico" default:"png"`
	Quality   int      `help:"JPEG quality" default:"90"`
	MaxWidth  int      `help:"Maximum output width; never upscales"`
	MaxHeight int      `help:"Maximum output height; never upscales"`
	Crop      string   `help:"Crop rectangle as x,y,w,h in source pixels"`
	SmartCrop string   `name:"smart-crop" help:"Content-aware crop to this aspect ratio, e.g. 16:9"`
	OutDir    string   `help:"Output directory" default:"output"`
}

func (cmd *convertCmd) Run() error {
	ctx, cancel := cmd.logArgs.setup()
	defer cancel()

	format, err := ParseFormat(cmd.Format)
	if err != nil {
		return err
	}
	opts := ConvertOptions{
		Format:    format,
		Quality:   cmd.Quality,
		MaxWidth:  cmd.MaxWidth,
		MaxHeight: cmd.MaxHeight,
	}
	if cmd.Crop != "" {
		rect, err := parseCropSpec(cmd.Crop)
		if err != nil {
			return err
		}
		opts.Crop = &rect
	}
	var smartRatio float64
	if cmd.SmartCrop != "" {
		if opts.Crop != nil {
			return fmt.Errorf("--crop and --smart-crop are mutually exclusive")
		}
		smartRatio, err = ParseRatio(cmd.SmartCrop)
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(cmd.OutDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", cmd.OutDir, err)
	}

	converter := NewImagingConverter()
	pooler := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(runtime.NumCPU())
	for _, file := range cmd.Files {
		pooler.Go(func(ctx context.Context) error {
			if err := convertFile(ctx, converter, file, cmd.OutDir, opts, cmd.SmartCrop != "", smartRatio); err != nil {
				log.Ctx(ctx).Error().Err(err).Str("filename", file).Msg("failed to convert")
				return err
			}
			return nil
		})
	}
	return pooler.Wait()
}

func convertFile(ctx context.Context, converter Converter, file, outDir string, opts ConvertOptions, smart bool, smartRatio float64) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", file, err)
	}

	if smart {
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("failed to decode image: %w", err)
		}
		rect, err := SuggestCrop(img, smartRatio)
		if err != nil {
			return err
		}
		opts.Crop = &rect
	}

	outPath := filepath.Join(outDir, OutputName(file, opts))
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", outPath, err)
	}
	defer out.Close()

	if err := converter.Convert(ctx, bytes.NewReader(data), out, opts); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("filename", file).Str("output", outPath).Msg("converted")
	return nil
}

// parseCropSpec parses "x,y,w,h" into a pixel rectangle.
func parseCropSpec(s string) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("invalid crop %q, expected x,y,w,h", s)
	}
	vals := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return Rect{}, fmt.Errorf("invalid crop %q: %w", s, err)
		}
		if v < 0 {
			return Rect{}, fmt.Errorf("invalid crop %q: negative values not allowed", s)
		}
		vals[i] = v
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return Rect{}, fmt.Errorf("invalid crop %q: width and height must be positive", s)
	}
	return Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

type gifCmd struct {
	logArgs
	Input    string  `arg:"" help:"Input MP4 file"`
	Output   string  `short:"o" help:"Output GIF path; derived from the input when omitted"`
	FPS      int     `help:"Output frame rate" default:"10"`
	Width    int     `help:"Output width in pixels; height follows the aspect ratio" default:"480"`
	Start    float64 `help:"Start offset in seconds"`
	Duration float64 `help:"Duration in seconds; 0 transcodes to the end"`
	FFmpeg   string  `help:"Path to the ffmpeg binary" default:"ffmpeg"`
}

func (cmd *gifCmd) Run() error {
	ctx, cancel := cmd.logArgs.setup()
	defer cancel()

	transcoder := NewFFmpegTranscoder(cmd.FFmpeg)
	out, err := transcoder.Transcode(ctx, GIFOptions{
		Input:    cmd.Input,
		Output:   cmd.Output,
		FPS:      cmd.FPS,
		Width:    cmd.Width,
		Start:    cmd.Start,
		Duration: cmd.Duration,
	})
	if err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("output", out).Msg("transcoded")
	return nil
}

func printJSONL[T any](data []T) {
	enc := json.NewEncoder(os.Stdout)
	for _, item := range data {
		if err := enc.Encode(item); err != nil {
			log.Error().Err(err).Msg("Failed to encode item to JSON")
			continue
		}
	}
}
