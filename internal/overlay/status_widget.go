package overlay

import (
	"fmt"
	"image/color"
	"time"

	"github.com/bryanchriswhite/RenderWatch/internal/artifact"
)

// StatusWidget captions the frame with how the producing invocation went
type StatusWidget struct {
	*TextWidget
}

// NewStatusWidget creates the caption in the top-left corner
func NewStatusWidget(opacity float64) *StatusWidget {
	bg := color.RGBA{0, 0, 0, 255}
	return &StatusWidget{
		TextWidget: NewTextWidget("status", "", TextOptions{
			X:          4,
			Y:          4,
			Opacity:    opacity,
			Padding:    3,
			Background: &bg,
		}),
	}
}

// Update sets the caption from an outcome observed at the given time
func (w *StatusWidget) Update(out artifact.Outcome, at time.Time) {
	w.SetText(FormatStatus(out, at))
}

// FormatStatus renders the caption text, e.g. "52.3ms @ 14:02:11"
func FormatStatus(out artifact.Outcome, at time.Time) string {
	stamp := at.Format(time.TimeOnly)
	if out.Kind == artifact.Success {
		return fmt.Sprintf("%.1fms @ %s", float64(out.Elapsed.Microseconds())/1000, stamp)
	}
	return fmt.Sprintf("%s @ %s", out.Kind, stamp)
}
