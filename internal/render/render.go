package render

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/bryanchriswhite/RenderWatch/internal/logger"
	_ "github.com/spakin/netpbm"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Surface receives complete frames. display.X11Surface and output.MJPEGOutput
// both satisfy it.
type Surface interface {
	WriteFrame(frame *image.RGBA) error
}

// Decorator draws on a frame after it has been resized
type Decorator interface {
	Render(img *image.RGBA) error
}

// Target describes the displayed size: either an integer downscale factor
// or an absolute width and height
type Target struct {
	Factor int
	Width  int
	Height int
}

// Size computes the displayed size for a source of the given dimensions
func (t Target) Size(src image.Point) image.Point {
	w, h := src.X, src.Y
	switch {
	case t.Width > 0 && t.Height > 0:
		w, h = t.Width, t.Height
	case t.Width > 0:
		h = src.Y * t.Width / max(src.X, 1)
		w = t.Width
	case t.Height > 0:
		w = src.X * t.Height / max(src.Y, 1)
		h = t.Height
	case t.Factor > 1:
		w, h = src.X/t.Factor, src.Y/t.Factor
	}
	return image.Pt(max(w, 1), max(h, 1))
}

// Renderer loads the artifact's output image and presents it on a surface
type Renderer struct {
	decorator Decorator
}

// NewRenderer creates a renderer; decorator may be nil
func NewRenderer(decorator Decorator) *Renderer {
	return &Renderer{decorator: decorator}
}

// Render loads imagePath, resizes it to target and replaces the surface's frame.
// On any failure the surface keeps its previous frame and false is returned.
func (r *Renderer) Render(surface Surface, imagePath string, target Target) bool {
	log := logger.WithComponent("render")

	frame, err := r.Frame(imagePath, target)
	if err != nil {
		log.Warn().Err(err).Str("image", imagePath).Msg("Render failed, keeping previous frame")
		return false
	}

	if err := surface.WriteFrame(frame); err != nil {
		log.Warn().Err(err).Str("image", imagePath).Msg("Surface rejected frame")
		return false
	}

	log.Debug().
		Str("image", imagePath).
		Int("width", frame.Bounds().Dx()).
		Int("height", frame.Bounds().Dy()).
		Msg("Frame displayed")
	return true
}

// Frame builds the complete, decorated frame for imagePath without displaying it
func (r *Renderer) Frame(imagePath string, target Target) (*image.RGBA, error) {
	src, err := Load(imagePath)
	if err != nil {
		return nil, err
	}

	frame := Resize(src, target.Size(src.Bounds().Size()))

	if r.decorator != nil {
		if err := r.decorator.Render(frame); err != nil {
			logger.WithComponent("render").Debug().Err(err).Msg("Overlay failed")
		}
	}
	return frame, nil
}

// Load decodes the image file at path in any registered format
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	logger.WithComponent("render").Debug().
		Str("format", format).
		Str("image", path).
		Msg("Image decoded")
	return img, nil
}

// Resize scales src to size with bilinear interpolation into a new RGBA frame
func Resize(src image.Image, size image.Point) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	if src.Bounds().Size() == size {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// SavePNG writes frame to path
func SavePNG(path string, frame image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return f.Close()
}
