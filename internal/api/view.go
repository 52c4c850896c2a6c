package api

import (
	"time"

	"github.com/bryanchriswhite/RenderWatch/internal/output"
	"github.com/bryanchriswhite/RenderWatch/internal/watch"
)

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	Artifact string        `json:"artifact"`
	Mode     string        `json:"mode"`
	Image    string        `json:"image"`
	Policy   string        `json:"invalid_policy"`
	Interval string        `json:"poll_interval"`
	Last     *ReportView   `json:"last,omitempty"`
	Stream   *output.Stats `json:"stream,omitempty"`
}

// ReportView is the JSON form of a tick report
type ReportView struct {
	Time     time.Time    `json:"time"`
	Signal   string       `json:"signal"`
	Changed  bool         `json:"changed"`
	Rendered bool         `json:"rendered"`
	Reset    bool         `json:"reset"`
	Outcome  *OutcomeView `json:"outcome,omitempty"`
}

// OutcomeView is the JSON form of an invocation outcome
type OutcomeView struct {
	Kind      string  `json:"kind"`
	ElapsedMs float64 `json:"elapsed_ms"`
	ExitCode  int     `json:"exit_code"`
	Error     string  `json:"error,omitempty"`
}

// NewReportView converts a report for the wire
func NewReportView(rep watch.Report) ReportView {
	v := ReportView{
		Time:     rep.Time,
		Signal:   rep.Signal.String(),
		Changed:  rep.Changed,
		Rendered: rep.Rendered,
		Reset:    rep.Reset,
	}
	if out := rep.Outcome; out != nil {
		v.Outcome = &OutcomeView{
			Kind:      out.Kind.String(),
			ElapsedMs: float64(out.Elapsed.Microseconds()) / 1000,
			ExitCode:  out.ExitCode,
		}
		if out.Err != nil {
			v.Outcome.Error = out.Err.Error()
		}
	}
	return v
}
