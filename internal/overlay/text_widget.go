package overlay

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TextOptions configures a TextWidget
type TextOptions struct {
	X, Y       int
	Opacity    float64
	Padding    int
	Color      color.RGBA
	Background *color.RGBA // nil for transparent
}

// TextWidget displays a line of text on the frame
type TextWidget struct {
	*BaseWidget
	mu        sync.RWMutex
	text      string
	fontSize  int
	textColor color.RGBA
	bgColor   *color.RGBA
	padding   int
}

// NewTextWidget creates a new text widget
func NewTextWidget(id, text string, opts TextOptions) *TextWidget {
	textColor := opts.Color
	if textColor == (color.RGBA{}) {
		textColor = color.RGBA{255, 255, 255, 255}
	}
	return &TextWidget{
		BaseWidget: NewBaseWidget(id, opts.X, opts.Y, opts.Opacity),
		text:       text,
		fontSize:   13, // basicfont size
		textColor:  textColor,
		bgColor:    opts.Background,
		padding:    opts.Padding,
	}
}

// Render draws the text widget
func (w *TextWidget) Render(img *image.RGBA) error {
	text := w.Text()
	if !w.IsEnabled() || text == "" {
		return nil
	}

	face := basicfont.Face7x13

	measure := &font.Drawer{Face: face}
	textWidthPx := measure.MeasureString(text).Ceil()

	widgetWidth := textWidthPx + w.padding*2
	widgetHeight := w.fontSize + w.padding*2

	if w.bgColor != nil {
		DrawRectangle(img, w.x, w.y, widgetWidth, widgetHeight, *w.bgColor, w.opacity)
	}

	// Render into a scratch image so opacity applies to the glyphs too
	textImg := image.NewRGBA(image.Rect(0, 0, textWidthPx, w.fontSize))
	textDrawer := &font.Drawer{
		Dst:  textImg,
		Src:  image.NewUniform(w.textColor),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: fixed.I(face.Ascent)},
	}
	textDrawer.DrawString(text)

	BlendImage(img, textImg, w.x+w.padding, w.y+w.padding, w.opacity)
	return nil
}

// SetText updates the text content
func (w *TextWidget) SetText(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.text = text
}

// Text returns the current text
func (w *TextWidget) Text() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.text
}
