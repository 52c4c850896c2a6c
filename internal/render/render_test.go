package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

type fakeSurface struct {
	frames []*image.RGBA
	err    error
}

func (s *fakeSurface) WriteFrame(frame *image.RGBA) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, frame)
	return nil
}

type countingDecorator struct{ calls int }

func (d *countingDecorator) Render(img *image.RGBA) error {
	d.calls++
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	return nil
}

func writePNG(t *testing.T, dir string, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "output.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTargetSize(t *testing.T) {
	src := image.Pt(800, 600)
	tests := []struct {
		name   string
		target Target
		want   image.Point
	}{
		{"factor 2", Target{Factor: 2}, image.Pt(400, 300)},
		{"factor 1 keeps size", Target{Factor: 1}, image.Pt(800, 600)},
		{"zero target keeps size", Target{}, image.Pt(800, 600)},
		{"absolute size wins over factor", Target{Factor: 2, Width: 320, Height: 200}, image.Pt(320, 200)},
		{"width only keeps aspect", Target{Width: 400}, image.Pt(400, 300)},
		{"height only keeps aspect", Target{Height: 150}, image.Pt(200, 150)},
		{"huge factor clamps to one pixel", Target{Factor: 1000}, image.Pt(1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.Size(src); got != tt.want {
				t.Errorf("Size() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderDownscales(t *testing.T) {
	path := writePNG(t, t.TempDir(), 64, 32, color.RGBA{10, 200, 30, 255})
	surface := &fakeSurface{}

	if ok := NewRenderer(nil).Render(surface, path, Target{Factor: 2}); !ok {
		t.Fatal("Render returned false")
	}
	if len(surface.frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(surface.frames))
	}
	frame := surface.frames[0]
	if got := frame.Bounds().Size(); got != image.Pt(32, 16) {
		t.Errorf("frame size = %v, want 32x16", got)
	}
	// uniform source stays uniform under linear interpolation
	if got := frame.RGBAAt(16, 8); got != (color.RGBA{10, 200, 30, 255}) {
		t.Errorf("center pixel = %v", got)
	}
}

func TestRenderAbsoluteSize(t *testing.T) {
	path := writePNG(t, t.TempDir(), 10, 10, color.RGBA{0, 0, 255, 255})
	surface := &fakeSurface{}

	NewRenderer(nil).Render(surface, path, Target{Width: 4, Height: 3})

	if len(surface.frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(surface.frames))
	}
	if got := surface.frames[0].Bounds().Size(); got != image.Pt(4, 3) {
		t.Errorf("frame size = %v, want 4x3", got)
	}
}

func TestRenderFailuresKeepPreviousFrame(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("\x89PNG garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing image", filepath.Join(dir, "missing.ppm")},
		{"corrupt image", corrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := &fakeSurface{}
			if ok := NewRenderer(nil).Render(surface, tt.path, Target{Factor: 2}); ok {
				t.Error("Render returned true for an unusable image")
			}
			if len(surface.frames) != 0 {
				t.Error("surface was written on failure")
			}
		})
	}
}

func TestRenderSurfaceError(t *testing.T) {
	path := writePNG(t, t.TempDir(), 4, 4, color.RGBA{1, 2, 3, 255})
	surface := &fakeSurface{err: errors.New("window gone")}

	if ok := NewRenderer(nil).Render(surface, path, Target{}); ok {
		t.Error("Render returned true although the surface failed")
	}
}

func TestRenderAppliesDecorator(t *testing.T) {
	path := writePNG(t, t.TempDir(), 8, 8, color.RGBA{0, 0, 0, 255})
	surface := &fakeSurface{}
	deco := &countingDecorator{}

	NewRenderer(deco).Render(surface, path, Target{Factor: 2})

	if deco.calls != 1 {
		t.Fatalf("decorator calls = %d, want 1", deco.calls)
	}
	if got := surface.frames[0].RGBAAt(0, 0); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("decorated pixel = %v, want red", got)
	}
}

func TestLoadPPM(t *testing.T) {
	// 2x1 binary PPM: one red pixel, one green pixel
	data := append([]byte("P6\n2 1\n255\n"), 255, 0, 0, 0, 255, 0)
	path := filepath.Join(t.TempDir(), "output.ppm")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(2, 1) {
		t.Fatalf("size = %v, want 2x1", got)
	}
	r, g, _, _ := img.At(img.Bounds().Min.X, img.Bounds().Min.Y).RGBA()
	if r>>8 != 255 || g>>8 != 0 {
		t.Errorf("first pixel r=%d g=%d, want red", r>>8, g>>8)
	}
}

func TestSavePNG(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 3, 2))
	frame.SetRGBA(1, 1, color.RGBA{9, 8, 7, 255})
	path := filepath.Join(t.TempDir(), "preview.png")

	if err := SavePNG(path, frame); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}
	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	r, g, b, _ := img.At(1, 1).RGBA()
	if r>>8 != 9 || g>>8 != 8 || b>>8 != 7 {
		t.Errorf("pixel = %d,%d,%d, want 9,8,7", r>>8, g>>8, b>>8)
	}
}
