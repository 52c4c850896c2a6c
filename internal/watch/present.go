package watch

import (
	"time"

	"github.com/bryanchriswhite/RenderWatch/internal/artifact"
	"github.com/bryanchriswhite/RenderWatch/internal/overlay"
	"github.com/bryanchriswhite/RenderWatch/internal/render"
)

// FramePresenter renders the output image onto a surface after a successful run
type FramePresenter struct {
	Renderer  *render.Renderer
	Surface   render.Surface
	ImagePath string
	Target    render.Target

	// Status, when set, is captioned with the outcome before rendering
	Status *overlay.StatusWidget
}

// Present implements Presenter
func (p *FramePresenter) Present(out artifact.Outcome) bool {
	if p.Status != nil {
		p.Status.Update(out, time.Now())
	}
	return p.Renderer.Render(p.Surface, p.ImagePath, p.Target)
}
