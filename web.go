package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog/log"
)

//go:embed static
var staticFS embed.FS
var isDebug = os.Getenv("DEBUG") == "1"

type Config struct {
	RootDir          string
	OnBeforeShutdown func()
	OnReady          func(addr string)
	OnSave           func(ops Operations)
}

type WebApp struct {
	config       Config
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

func NewWebApp(config Config) *WebApp {
	return &WebApp{
		config:     config,
		shutdownCh: make(chan struct{}),
	}
}

func (a *WebApp) Shutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
	})
}

// resolvePath maps a request-supplied relative filename into the root
// directory, rejecting anything that escapes it.
func (a *WebApp) resolvePath(name string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(a.config.RootDir, name))
	root := filepath.Clean(a.config.RootDir)
	if cleaned != root && !strings.HasPrefix(cleaned, root+string(filepath.Separator)) {
		return "", fiber.NewError(http.StatusBadRequest, "invalid file path")
	}
	return cleaned, nil
}

// router builds the fiber application; split from Run so handlers can be
// exercised in tests without a listener.
func (a *WebApp) router() *fiber.App {
	webapp := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Ctx(c.Context()).Error().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("Request failed")
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				if fiberErr.Code == http.StatusNotFound && c.Path() == "/favicon.ico" {
					return nil
				}
				return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
			}
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
		},
	})

	filesRoot := http.Dir(a.config.RootDir)
	webapp.Get("/api/view", func(c *fiber.Ctx) error {
		filePath := c.Query("file")
		return filesystem.SendFile(c, filesRoot, filePath)
	})

	webapp.Get("/api/thumb", func(c *fiber.Ctx) error {
		path, err := a.resolvePath(c.Query("file"))
		if err != nil {
			return err
		}
		size := c.QueryInt("size", 320)
		if size < 16 || size > 1024 {
			return fiber.NewError(http.StatusBadRequest, "size out of range")
		}

		f, err := os.Open(path)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "file not found")
		}
		defer f.Close()

		img, err := imaging.Decode(f, imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("failed to decode image: %w", err)
		}
		thumb := resize.Thumbnail(uint(size), uint(size), img, resize.Lanczos3)

		c.Set(fiber.HeaderContentType, "image/jpeg")
		return imaging.Encode(c.Response().BodyWriter(), thumb, imaging.JPEG, imaging.JPEGQuality(80))
	})

	webapp.Get("/api/ls", func(c *fiber.Ctx) error {
		dir, err := walkImages(a.config.RootDir)
		if err != nil {
			return fmt.Errorf("failed to walk dir: %w", err)
		}

		for i := range dir.Files {
			escaped := url.QueryEscape(dir.Files[i].Name)
			dir.Files[i].URL = "/api/view?file=" + escaped
			dir.Files[i].ThumbURL = "/api/thumb?file=" + escaped
		}

		var response struct {
			Name  string     `json:"name"`
			Files []FileInfo `json:"files"`
		}
		response.Name = dir.Name
		response.Files = dir.Files

		return c.JSON(response)
	})

	webapp.Get("/api/ratios", func(c *fiber.Ctx) error {
		return c.JSON(AspectRatios)
	})

	webapp.Post("/api/crop/initial", func(c *fiber.Ctx) error {
		var request struct {
			Image Dimensions `json:"image"`
			InitialCropOptions
		}
		if err := c.BodyParser(&request); err != nil {
			return err
		}
		if request.Image.Width <= 0 || request.Image.Height <= 0 {
			return fiber.NewError(http.StatusBadRequest, "image dimensions must be positive")
		}
		return c.JSON(InitialCrop(request.Image.Width, request.Image.Height, request.InitialCropOptions))
	})

	webapp.Post("/api/crop/resize", func(c *fiber.Ctx) error {
		var request struct {
			Image           Dimensions `json:"image"`
			Snapshot        Rect       `json:"snapshot"`
			Mode            string     `json:"mode"`
			DX              float64    `json:"dx"`
			DY              float64    `json:"dy"`
			Ratio           float64    `json:"ratio"`
			ContainerWidth  int        `json:"container_width"`
			ContainerHeight int        `json:"container_height"`
		}
		if err := c.BodyParser(&request); err != nil {
			return err
		}
		mode, err := ParseDragMode(request.Mode)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if request.Image.Width <= 0 || request.Image.Height <= 0 {
			return fiber.NewError(http.StatusBadRequest, "image dimensions must be positive")
		}

		// Screen-space deltas are converted to image pixels here so the
		// client never needs to know the zoom factor.
		scale := 1.0
		if request.ContainerWidth > 0 && request.ContainerHeight > 0 {
			scale = DisplayScale(request.ContainerWidth, request.ContainerHeight, request.Image)
		}
		rect := ResizeCrop(request.Snapshot, request.DX/scale, request.DY/scale, mode, request.Ratio, request.Image)
		return c.JSON(rect)
	})

	webapp.Post("/api/crop/suggest", func(c *fiber.Ctx) error {
		var request struct {
			File  string  `json:"file"`
			Ratio float64 `json:"ratio"`
		}
		if err := c.BodyParser(&request); err != nil {
			return err
		}
		path, err := a.resolvePath(request.File)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "file not found")
		}
		defer f.Close()

		img, err := imaging.Decode(f, imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("failed to decode image: %w", err)
		}
		rect, err := SuggestCrop(img, request.Ratio)
		if err != nil {
			return err
		}
		return c.JSON(rect)
	})

	webapp.Post("/api/save", func(c *fiber.Ctx) error {
		var request struct {
			Operations []Operation `json:"operations"`
		}

		if err := c.BodyParser(&request); err != nil {
			return err
		}

		a.config.OnSave(request.Operations)

		return c.SendStatus(http.StatusNoContent)
	})
	webapp.Post("/api/shutdown", func(c *fiber.Ctx) error {
		a.Shutdown()
		return nil
	})

	if isDebug {
		log.Debug().Msg("Debug mode enabled, serving static files from './static' directory")
		webapp.Static("/", "static")
	} else {
		log.Debug().Msg("Serving static files from embedded filesystem")
		webapp.Use("/", filesystem.New(filesystem.Config{
			Root:       http.FS(staticFS),
			PathPrefix: "/static",
		}))
	}

	return webapp
}

func (a *WebApp) Run(ctx context.Context) error {
	webapp := a.router()

	webapp.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := a.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-a.shutdownCh:
		}
		if fn := a.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		if err := webapp.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to shutdown web application")
		}
	}()

	// Let the OS assign a random available port
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", 0))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	if err := webapp.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
