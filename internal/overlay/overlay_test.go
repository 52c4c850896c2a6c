package overlay

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/bryanchriswhite/RenderWatch/internal/artifact"
)

func blackFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.Black}, image.Point{}, draw.Src)
	return img
}

func changedPixels(a, b *image.RGBA) int {
	n := 0
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			n++
		}
	}
	return n
}

func TestFormatStatus(t *testing.T) {
	at := time.Date(2024, 1, 2, 14, 2, 11, 0, time.UTC)

	tests := []struct {
		name string
		out  artifact.Outcome
		want string
	}{
		{"success shows elapsed", artifact.Outcome{Kind: artifact.Success, Elapsed: 52300 * time.Microsecond}, "52.3ms @ 14:02:11"},
		{"failure shows kind", artifact.Outcome{Kind: artifact.RuntimeFailure, Elapsed: time.Second}, "runtime_failure @ 14:02:11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatStatus(tt.out, at); got != tt.want {
				t.Errorf("FormatStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusWidgetDrawsCaption(t *testing.T) {
	w := NewStatusWidget(1.0)
	w.Update(artifact.Outcome{Kind: artifact.Success, Elapsed: 10 * time.Millisecond}, time.Now())

	frame := blackFrame(200, 40)
	before := blackFrame(200, 40)
	if err := w.Render(frame); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if changedPixels(before, frame) == 0 {
		t.Fatal("caption did not change any pixel")
	}

	// nothing below the caption box is touched
	for y := 30; y < 40; y++ {
		for x := 0; x < 200; x++ {
			if frame.RGBAAt(x, y) != (color.RGBA{0, 0, 0, 255}) {
				t.Fatalf("pixel (%d,%d) outside caption changed", x, y)
			}
		}
	}
}

func TestTextWidgetEmptyTextIsNoop(t *testing.T) {
	w := NewTextWidget("t", "", TextOptions{Opacity: 1})
	frame := blackFrame(50, 20)
	if err := w.Render(frame); err != nil {
		t.Fatal(err)
	}
	if changedPixels(blackFrame(50, 20), frame) != 0 {
		t.Error("empty text widget drew pixels")
	}
}

func TestBlendImageClipsAtEdges(t *testing.T) {
	dst := blackFrame(4, 4)
	src := image.NewRGBA(image.Rect(0, 0, 3, 3))
	draw.Draw(src, src.Bounds(), &image.Uniform{color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	BlendImage(dst, src, 2, 2, 1.0)

	if got := dst.RGBAAt(3, 3); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("overlapping pixel = %v, want white", got)
	}
	if got := dst.RGBAAt(1, 1); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("pixel outside src = %v, want black", got)
	}
}

func TestBlendImageHalfOpacity(t *testing.T) {
	dst := blackFrame(1, 1)
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.SetRGBA(0, 0, color.RGBA{200, 200, 200, 255})

	BlendImage(dst, src, 0, 0, 0.5)

	got := dst.RGBAAt(0, 0)
	if got.R < 99 || got.R > 100 {
		t.Errorf("blended red = %d, want ~100", got.R)
	}
	if got.A != 255 {
		t.Errorf("alpha = %d, want 255", got.A)
	}
}

type failingWidget struct{ *BaseWidget }

func (f failingWidget) Render(*image.RGBA) error { return errors.New("boom") }

func TestManager(t *testing.T) {
	m := NewManager()
	status := NewStatusWidget(1.0)
	status.SetText("hello")

	if err := m.AddWidget(status); err != nil {
		t.Fatal(err)
	}
	if err := m.AddWidget(NewStatusWidget(1.0)); err == nil {
		t.Error("expected duplicate ID error")
	}
	if err := m.AddWidget(failingWidget{NewBaseWidget("bad", 0, 0, 1)}); err != nil {
		t.Fatal(err)
	}

	frame := blackFrame(100, 30)
	if err := m.Render(frame); err != nil {
		t.Fatalf("a failing widget must not fail the overlay: %v", err)
	}
	if changedPixels(blackFrame(100, 30), frame) == 0 {
		t.Error("enabled overlay drew nothing")
	}

	m.SetEnabled(false)
	frame = blackFrame(100, 30)
	m.Render(frame)
	if changedPixels(blackFrame(100, 30), frame) != 0 {
		t.Error("disabled overlay drew pixels")
	}

	if err := m.RemoveWidget("bad"); err != nil {
		t.Error(err)
	}
	if err := m.RemoveWidget("bad"); err == nil {
		t.Error("expected not-found error")
	}
}
