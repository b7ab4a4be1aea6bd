package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/particlelab/internal/sim"
)

const (
	width           = 60
	height          = 20
	frameRate       = 60
	historyCapacity = 600
)

type TickMsg time.Time

// param is a run parameter adjustable from the keyboard.
type param struct {
	name  string
	step  float64
	limit float64
	get   func(*sim.Config) *float64
}

var params = []param{
	{"restitution", 0.05, 1.5, func(c *sim.Config) *float64 { return &c.Restitution }},
	{"drag", 0.05, 2, func(c *sim.Config) *float64 { return &c.Drag }},
}

// Model steps a simulation on every tick and renders the ensemble.
type Model struct {
	name     string
	cfg      sim.Config
	initial  *sim.Ensemble
	state    *sim.Ensemble
	sim      *sim.Simulator
	view     Viewport
	canvas   *Canvas
	running  bool
	steps    int
	substeps int
	selected int

	last          sim.Record
	bounces       int
	maxDepth      float64
	energyHistory []float64
	err           error
}

// NewModel prepares a viewer for initial with a world box of the given size.
func NewModel(name string, initial *sim.Ensemble, cfg sim.Config, box float64) (Model, error) {
	s, err := sim.New(cfg)
	if err != nil {
		return Model{}, err
	}

	top := box
	for _, p := range initial.Position {
		top = math.Max(top, p.Y)
	}

	substeps := int(math.Round(1 / (frameRate * cfg.Dt)))
	if substeps < 1 {
		substeps = 1
	}

	return Model{
		name:          name,
		cfg:           cfg,
		initial:       initial.Clone(),
		state:         initial.Clone(),
		sim:           s,
		view:          Viewport{Width: box, Height: top * 1.05},
		canvas:        NewCanvas(width, height),
		running:       true,
		substeps:      substeps,
		energyHistory: make([]float64, 0, historyCapacity),
	}, nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			m.selected = (m.selected + 1) % len(params)
		case "up", "k":
			m.adjust(1)
		case "down", "j":
			m.adjust(-1)
		}
	case TickMsg:
		if m.running && m.err == nil {
			for i := 0; i < m.substeps; i++ {
				m.step()
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	r := m.sim.Step(m.state)
	m.steps++
	m.last = r
	m.bounces += r.BounceCount
	m.maxDepth = math.Max(m.maxDepth, r.MaxPenetration)

	if !m.state.IsValid() {
		m.err = sim.ErrUnstable
		m.running = false
	}

	m.energyHistory = append(m.energyHistory, r.TotalEnergy)
	if len(m.energyHistory) > historyCapacity {
		m.energyHistory = m.energyHistory[1:]
	}
}

// adjust moves the selected parameter by one increment and rebuilds the
// simulator; the ensemble carries on from its current state.
func (m *Model) adjust(dir float64) {
	p := params[m.selected]
	cfg := m.cfg
	v := p.get(&cfg)
	*v = math.Max(0, math.Min(p.limit, *v+dir*p.step))

	s, err := sim.New(cfg)
	if err != nil {
		return
	}
	m.cfg, m.sim = cfg, s
}

// reset restores the initial conditions, keeping the current parameters.
func (m *Model) reset() {
	m.state = m.initial.Clone()
	m.sim.Reset()
	m.steps = 0
	m.last = sim.Record{}
	m.bounces = 0
	m.maxDepth = 0
	m.energyHistory = m.energyHistory[:0]
	m.err = nil
	m.running = true
}

func (m *Model) draw() {
	m.canvas.Clear()

	w, h := m.canvas.Dots()
	m.canvas.DrawLine(0, h-1, w-1, h-1)

	for _, p := range m.state.Position {
		x, y := m.view.Project(m.canvas, p.X, p.Y)
		m.canvas.Set(x, y-1)
		m.canvas.Set(x+1, y-1)
		m.canvas.Set(x, y-2)
		m.canvas.Set(x+1, y-2)
	}
}

func (m Model) Time() float64 { return float64(m.steps) * m.cfg.Dt }

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(StatusError.Render("DIVERGED") + "\n\n")
	case m.running:
		s.WriteString(StatusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(StatusPaused.Render("PAUSED") + "\n\n")
	}

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.Time()))
	row("Step dt", fmt.Sprintf("%g", m.cfg.Dt))
	row("Particles", fmt.Sprintf("%d", m.state.Len()))
	row("Energy", fmt.Sprintf("%.3f", m.last.TotalEnergy))
	row("Max speed", fmt.Sprintf("%.3f", m.last.MaxSpeed))
	row("Penetration", fmt.Sprintf("%.4f (max %.4f)", m.last.MaxPenetration, m.maxDepth))
	row("Bounces", fmt.Sprintf("%d", m.bounces))
	s.WriteString("\n" + Sparkline(m.energyHistory, 30) + "\n")

	s.WriteString("\nPARAMETERS\n")
	for i, p := range params {
		cfg := m.cfg
		val := *p.get(&cfg)
		line := fmt.Sprintf("%-12s %s %.2f", p.name, ParamBar(val, p.limit, 10), val)
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + valueStyle.Render(line) + "\n")
		}
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nTab:Param ↑↓:Tune"))
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
}

// Run starts the viewer in the alternate screen and blocks until it quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
