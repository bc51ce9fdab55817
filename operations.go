package main

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

type Operations = []Operation

type Operation struct {
	Convert *ConvertOperation
	Pick    *PickOperation
}

// unmarshal
func (o *Operation) UnmarshalJSON(data []byte) error {
	var op struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &op); err != nil {
		return fmt.Errorf("failed to unmarshal operation: %w", err)
	}

	switch op.Type {
	case "convert":
		var convert ConvertOperation
		if err := json.Unmarshal(data, &convert); err != nil {
			return fmt.Errorf("failed to unmarshal convert operation: %w", err)
		}
		o.Convert = &convert
	case "pick":
		var pick PickOperation
		if err := json.Unmarshal(data, &pick); err != nil {
			return fmt.Errorf("failed to unmarshal pick operation: %w", err)
		}
		o.Pick = &pick
	default:
		return fmt.Errorf("unknown operation %q", op.Type)
	}
	return nil
}

// ConvertOptions describe one output: target format plus the optional
// crop (in source pixels) and resize constraints applied before encoding.
type ConvertOptions struct {
	Format    Format `json:"format"`
	Quality   int    `json:"quality,omitempty"`
	MaxWidth  int    `json:"max_width,omitempty"`
	MaxHeight int    `json:"max_height,omitempty"`
	Crop      *Rect  `json:"crop,omitempty"`
}

func (o ConvertOptions) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "convert(format=%s,q=%d,maxw=%d,maxh=%d", o.Format, o.Quality, o.MaxWidth, o.MaxHeight)
	if o.Crop != nil {
		fmt.Fprintf(&b, ",%s", o.Crop)
	}
	b.WriteString(")")
	return b.String()
}

// ID is a stable hash of the options, used to keep output filenames unique
// per distinct conversion of the same source.
func (o ConvertOptions) ID() string {
	m := md5.New()
	_, err := m.Write([]byte(o.String()))
	if err != nil {
		log.Error().Err(err).Msg("failed to hash options string")
		return ""
	}
	return fmt.Sprintf("%x", m.Sum(nil))
}

type ConvertOperation struct {
	Filename string         `json:"filename"`
	Options  ConvertOptions `json:"options"`
}

type PickOperation struct {
	Filename string `json:"filename"`
}

type Converter interface {
	Convert(ctx context.Context, r io.Reader, w io.Writer, opts ConvertOptions) error
}

type OperationExecutor struct {
	BaseDir   string
	OutputDir string
	Converter Converter
}

func (r OperationExecutor) Exec(ctx context.Context, ops []Operation) error {
	if len(ops) == 0 {
		log.Ctx(ctx).Warn().Msg("no operations to execute")
		return nil
	}

	pooler := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(runtime.NumCPU())

	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", r.OutputDir, err)
	}
	for _, op := range ops {
		pooler.Go(func(ctx context.Context) error {
			if err := r.executeOperation(ctx, op); err != nil {
				log.Ctx(ctx).Error().Err(err).
					Interface("op", op).
					Msg("failed to execute operation")
				return err
			}
			return nil
		})
	}

	if err := pooler.Wait(); err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Msg("finished with errors")
		return err
	}

	return nil
}

func (r OperationExecutor) executeOperation(ctx context.Context, op Operation) error {
	if op.Convert != nil {
		return r.executeConvert(ctx, *op.Convert)
	} else if op.Pick != nil {
		return r.executePick(ctx, *op.Pick)
	}
	return nil
}

func (r OperationExecutor) executeConvert(ctx context.Context, op ConvertOperation) error {
	log.Ctx(ctx).Info().
		Str("filename", op.Filename).
		Str("format", string(op.Options.Format)).
		Msg("converting")
	sourcePath := filepath.Join(r.BaseDir, op.Filename)
	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", sourcePath, err)
	}
	defer f.Close()
	var b bytes.Buffer
	if err := r.Converter.Convert(ctx, f, &b, op.Options); err != nil {
		return err
	}

	newName := OutputName(op.Filename, op.Options)
	outPath := filepath.Join(r.OutputDir, newName)
	wf, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", newName, err)
	}
	defer wf.Close()
	if _, err := b.WriteTo(wf); err != nil {
		return fmt.Errorf("failed to write converted data to file %s: %w", newName, err)
	}
	return nil
}

// OutputName builds the output filename for a conversion:
// "<source base>-<options hash>.<format ext>".
func OutputName(filename string, opts ConvertOptions) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s-%s.%s", base, opts.ID(), opts.Format.Ext())
}

func (r OperationExecutor) executePick(ctx context.Context, op PickOperation) error {
	log.Ctx(ctx).Info().Str("filename", op.Filename).Msg("picking")
	sourcePath := filepath.Join(r.BaseDir, op.Filename)
	savePath := filepath.Join(r.OutputDir, filepath.Base(op.Filename))
	if err := copyFile(sourcePath, savePath); err != nil {
		return fmt.Errorf("failed to pick file %s: %w", op.Filename, err)
	}
	return nil
}

func copyFile(sourcePath, destPath string) error {
	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", sourcePath, err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", destPath, err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file from %s to %s: %w", sourcePath, destPath, err)
	}

	return nil
}
