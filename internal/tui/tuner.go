package tui

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pidloop/internal/config"
	"github.com/san-kum/pidloop/internal/control"
	"github.com/san-kum/pidloop/internal/experiment"
	"github.com/san-kum/pidloop/internal/sim"
	"github.com/san-kum/pidloop/pid"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

const (
	frame      = 16 * time.Millisecond
	historyLen = 400
	gainStep   = 1.1
	maxSpeed   = 256
)

var ErrNotPID = errors.New("live tuning needs the pid controller")

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frame, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	cfg   *config.Config
	dyn   sim.Dynamics
	integ sim.Integrator
	ctrl  *control.Sampled

	x      sim.State
	t      float64
	speed  float64
	paused bool
	status string

	measurement []float64
	setPoint    []float64
	output      []float64

	width  int
	height int
}

func newModel(cfg *config.Config, reg *experiment.Registry, opts ...pid.Option) (model, error) {
	if err := cfg.Validate(); err != nil {
		return model{}, err
	}
	if cfg.Controller != "pid" {
		return model{}, ErrNotPID
	}
	dyn, err := reg.GetPlant(cfg.Plant, cfg.PlantParams)
	if err != nil {
		return model{}, err
	}
	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return model{}, err
	}
	x0 := sim.State(cfg.GetInitState())
	if len(x0) != dyn.StateDim() {
		return model{}, fmt.Errorf("plant %s expects %d states, init state has %d", cfg.Plant, dyn.StateDim(), len(x0))
	}

	pidCfg, err := cfg.PID.ToPID()
	if err != nil {
		return model{}, err
	}
	loop, err := control.NewLoop(cfg.Backend, pidCfg, opts...)
	if err != nil {
		return model{}, err
	}
	// set-point is keyboard driven here, so the schedule is ignored
	ctrl := control.NewSampled(loop, 0)
	if cfg.Noise > 0 {
		ctrl.WithNoise(cfg.Noise, cfg.Seed)
	}

	return model{
		cfg:    cfg,
		dyn:    dyn,
		integ:  integ,
		ctrl:   ctrl,
		x:      x0.Clone(),
		speed:  1,
		width:  80,
		height: 24,
	}, nil
}

// Run opens the live tuning view for cfg until the user quits.
func Run(cfg *config.Config, opts ...pid.Option) error {
	m, err := newModel(cfg, experiment.NewRegistry(), opts...)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if !m.paused {
			for i := 0; i < m.stepsPerFrame(); i++ {
				if !m.step() {
					m.paused = true
					break
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m model) stepsPerFrame() int {
	n := int(math.Round(frame.Seconds() * m.speed / m.cfg.Dt))
	if n < 1 {
		return 1
	}
	return n
}

// step advances the loop by one integrator step. It reports false once the
// state stops being finite.
func (m *model) step() bool {
	u := m.ctrl.Compute(m.x, m.t)
	next := m.integ.Step(m.dyn, m.x, u, m.t, m.cfg.Dt)
	if !next.IsValid() {
		m.status = fmt.Sprintf("state diverged at t=%.2fs, press x to reset", m.t)
		return false
	}
	m.x = next
	m.t += m.cfg.Dt

	loop := m.ctrl.Loop()
	m.measurement = push(m.measurement, m.x[m.ctrl.Index])
	m.setPoint = push(m.setPoint, loop.SetPoint())
	m.output = push(m.output, loop.Output())
	return true
}

func push(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyLen {
		h = h[1:]
	}
	return h
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	loop := m.ctrl.Loop()
	r := loop.Report()
	m.status = ""

	var err error
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ":
		m.paused = !m.paused
	case "p":
		err = loop.SetTunings(scale(r.Kp, gainStep), r.Ki, r.Kd)
	case "P":
		err = loop.SetTunings(scale(r.Kp, 1/gainStep), r.Ki, r.Kd)
	case "i":
		err = loop.SetTunings(r.Kp, scale(r.Ki, gainStep), r.Kd)
	case "I":
		err = loop.SetTunings(r.Kp, scale(r.Ki, 1/gainStep), r.Kd)
	case "d":
		err = loop.SetTunings(r.Kp, r.Ki, scale(r.Kd, gainStep))
	case "D":
		err = loop.SetTunings(r.Kp, r.Ki, scale(r.Kd, 1/gainStep))
	case "r":
		dir := pid.Reverse
		if loop.Direction() == pid.Reverse {
			dir = pid.Direct
		}
		err = loop.SetControllerDirection(dir)
	case "up", "k":
		loop.SetSetPoint(loop.SetPoint() + setPointStep(m.cfg.PID.SetPoint))
	case "down", "j":
		loop.SetSetPoint(loop.SetPoint() - setPointStep(m.cfg.PID.SetPoint))
	case "[":
		err = loop.SetSamplePeriod(loop.SamplePeriod() / 2)
	case "]":
		err = loop.SetSamplePeriod(loop.SamplePeriod() * 2)
	case "+", "=":
		m.speed = math.Min(m.speed*2, maxSpeed)
	case "-", "_":
		m.speed = math.Max(m.speed/2, 0.25)
	case "x":
		m.reset()
	}
	if err != nil {
		m.status = err.Error()
	}
	return m, nil
}

// scale multiplies a gain, starting zero gains at 0.1 when increasing.
func scale(v, f float64) float64 {
	if v == 0 && f > 1 {
		return 0.1
	}
	return v * f
}

func setPointStep(sp float64) float64 {
	return math.Max(math.Abs(sp)*0.05, 0.1)
}

func (m *model) reset() {
	m.x = sim.State(m.cfg.GetInitState()).Clone()
	m.t = 0
	m.ctrl.Reset()
	m.ctrl.Loop().SetSetPoint(m.cfg.PID.SetPoint)
	m.measurement = nil
	m.setPoint = nil
	m.output = nil
	m.paused = false
}

func (m model) View() string {
	var b strings.Builder
	loop := m.ctrl.Loop()
	r := loop.Report()

	b.WriteString("\n   " + cyan.Render("pidloop") + dim.Render(" · live · ") + white.Render(m.cfg.Plant) +
		dim.Render(" · "+loop.Backend()) + "\n\n")

	w := m.width - 12
	if w < 20 {
		w = 20
	}
	h := (m.height - 16) / 2
	if h < 4 {
		h = 4
	}

	if len(m.measurement) < 2 {
		b.WriteString(dimmer.Render("   waiting for samples") + "\n\n")
	} else {
		plot := asciigraph.PlotMany([][]float64{m.setPoint, m.measurement},
			asciigraph.Height(h), asciigraph.Width(w), asciigraph.Caption("measurement vs set-point"))
		b.WriteString(green.Render(plot) + "\n\n")
		plot = asciigraph.Plot(m.output,
			asciigraph.Height(h/2+1), asciigraph.Width(w), asciigraph.Caption("controller output"))
		b.WriteString(magenta.Render(plot) + "\n\n")
	}

	y := 0.0
	if len(m.x) > 0 {
		y = m.x[m.ctrl.Index]
	}
	fmt.Fprintf(&b, "   %s %s   %s %s   %s %s   %s %s\n",
		dim.Render("t"), white.Render(fmt.Sprintf("%.2fs", m.t)),
		dim.Render("y"), white.Render(fmt.Sprintf("%.3f", y)),
		dim.Render("sp"), white.Render(fmt.Sprintf("%.3f", loop.SetPoint())),
		dim.Render("u"), white.Render(fmt.Sprintf("%.3f", loop.Output())))
	fmt.Fprintf(&b, "   %s %s   %s %s   %s %s   %s %s   %s %s\n",
		dim.Render("kp"), yellow.Render(fmt.Sprintf("%.4g", r.Kp)),
		dim.Render("ki"), yellow.Render(fmt.Sprintf("%.4g", r.Ki)),
		dim.Render("kd"), yellow.Render(fmt.Sprintf("%.4g", r.Kd)),
		dim.Render("period"), yellow.Render(r.SamplePeriod.String()),
		dim.Render("dir"), yellow.Render(r.Direction.String()))

	state := green.Render("running")
	if m.paused {
		state = yellow.Render("paused")
	}
	fmt.Fprintf(&b, "   %s %s\n", state, dim.Render(fmt.Sprintf("%gx", m.speed)))
	if m.status != "" {
		b.WriteString("   " + magenta.Render(m.status) + "\n")
	}

	b.WriteString("\n" + dim.Render("   p/P kp  i/I ki  d/D kd  r direction  ↑↓ set-point  [] period  ±speed  x reset  space pause  q quit") + "\n")
	return b.String()
}
