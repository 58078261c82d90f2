package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/san-kum/pidloop/internal/control"
	"github.com/san-kum/pidloop/internal/sim"
)

const clearLine = "\r\033[K"

// Monitor is a sim.Observer that redraws a one-line loop status at most
// frameRate times per second while a batch run is in progress.
type Monitor struct {
	w         io.Writer
	ctrl      *control.Sampled
	duration  float64
	frameRate int
	lastFrame time.Time
}

// NewMonitor watches ctrl; a nil ctrl reports only time and the first state.
func NewMonitor(w io.Writer, ctrl *control.Sampled, duration float64, frameRate int) *Monitor {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &Monitor{w: w, ctrl: ctrl, duration: duration, frameRate: frameRate}
}

func (r *Monitor) OnStep(x sim.State, u sim.Control, t float64) {
	if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()
	r.render(x, u, t)
}

func (r *Monitor) render(x sim.State, u sim.Control, t float64) {
	pct := 0.0
	if r.duration > 0 {
		pct = 100 * t / r.duration
	}
	line := fmt.Sprintf("%s %s", cyan.Render(bar(pct, 20)), dim.Render(fmt.Sprintf("%5.1f%% t=%.2fs", pct, t)))

	if r.ctrl != nil {
		loop := r.ctrl.Loop()
		y := x[r.ctrl.Index]
		line += fmt.Sprintf("  %s %s  %s %s  %s %s",
			dim.Render("y"), white.Render(fmt.Sprintf("%.3f", y)),
			dim.Render("sp"), white.Render(fmt.Sprintf("%.3f", loop.SetPoint())),
			dim.Render("u"), yellow.Render(fmt.Sprintf("%.3f", loop.Output())))
	} else if len(x) > 0 {
		line += fmt.Sprintf("  %s %s", dim.Render("x0"), white.Render(fmt.Sprintf("%.3f", x[0])))
		if len(u) > 0 {
			line += fmt.Sprintf("  %s %s", dim.Render("u"), yellow.Render(fmt.Sprintf("%.3f", u[0])))
		}
	}
	fmt.Fprint(r.w, clearLine+line)
}

// Done ends the status line.
func (r *Monitor) Done() { fmt.Fprintln(r.w) }

func bar(pct float64, width int) string {
	n := int(pct / 100 * float64(width))
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	b := make([]rune, width)
	for i := range b {
		if i < n {
			b[i] = '█'
		} else {
			b[i] = '░'
		}
	}
	return string(b)
}
