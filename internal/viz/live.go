package viz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/sim"
)

const (
	canvasWidth     = 60
	canvasHeight    = 22
	historyCapacity = 600
	pushImpulse     = 40.0
)

// WorldBuilder builds a fresh world; the viewer calls it again on reset.
type WorldBuilder func() (*experiment.World, error)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// LiveModel steps a world in real time and draws it.
type LiveModel struct {
	name     string
	build    WorldBuilder
	world    *experiment.World
	dt       float64
	substeps int

	frame   dynamo.Frame
	step    int
	canvas  *Canvas
	camera  *Camera
	side    bool
	theme   Theme
	running bool
	help    bool
	err     error

	energy []float64
	height []float64

	paramKeys []string
	selected  int
}

func NewLiveModel(name string, build WorldBuilder, dt float64, substeps int) (LiveModel, error) {
	m := LiveModel{
		name:     name,
		build:    build,
		dt:       dt,
		substeps: max(substeps, 1),
		canvas:   NewCanvas(canvasWidth, canvasHeight),
		camera:   NewCamera(),
		theme:    Themes[0],
		running:  true,
	}
	if err := m.reset(); err != nil {
		return LiveModel{}, err
	}
	return m, nil
}

func (m *LiveModel) reset() error {
	w, err := m.build()
	if err != nil {
		return err
	}
	m.world = w
	m.step = 0
	m.err = nil
	m.energy = m.energy[:0]
	m.height = m.height[:0]
	m.paramKeys = m.paramKeys[:0]
	if w.Tunable != nil {
		for k := range w.Tunable.GetParams() {
			m.paramKeys = append(m.paramKeys, k)
		}
		sort.Strings(m.paramKeys)
	}
	m.selected = 0
	m.capture()
	return nil
}

func (m *LiveModel) capture() {
	sim.Capture(m.world.Sim, m.step, &m.frame)
	m.energy = appendCapped(m.energy, metrics.FrameEnergy(&m.frame, m.world.Gravity()))
	if m.world.Focus != nil {
		m.height = appendCapped(m.height, m.world.Focus.Pos().Y())
	}
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[len(s)-historyCapacity:]
	}
	return s
}

// Step advances the world by one frame.
func (m *LiveModel) Step() {
	if m.err != nil {
		return
	}
	if err := m.world.Sim.Advance(m.dt, m.substeps); err != nil {
		m.err = err
		m.running = false
		return
	}
	m.step++
	m.capture()
}

func (m *LiveModel) push(dir mgl64.Vec3) {
	if m.world.Manual == nil {
		return
	}
	m.world.Manual.Push(dir.Mul(pushImpulse), mgl64.Vec3{})
}

func (m *LiveModel) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 || m.world.Tunable == nil {
		return
	}
	key := m.paramKeys[m.selected]
	v := m.world.Tunable.GetParams()[key]
	if v == 0 {
		v = 0.1
	}
	if err := m.world.Tunable.SetParam(key, v*factor); err != nil {
		m.err = err
	}
}

func (m LiveModel) Init() tea.Cmd { return tick() }

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running && m.err == nil
		case "n":
			m.Step()
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
			m.running = m.err == nil
		case "t":
			m.theme = m.theme.Next()
		case "v":
			m.side = !m.side
		case "?":
			m.help = !m.help
		case "w":
			m.push(mgl64.Vec3{0, 1, 0})
		case "a":
			m.push(mgl64.Vec3{-1, 0, 0})
		case "d":
			m.push(mgl64.Vec3{1, 0, 0})
		case "s":
			m.push(mgl64.Vec3{0, 0, 1})
		case "left", "h":
			m.camera.Orbit(-0.1, 0)
		case "right", "l":
			m.camera.Orbit(0.1, 0)
		case "up", "k":
			m.camera.Orbit(0, 0.1)
		case "down", "j":
			m.camera.Orbit(0, -0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "tab":
			if len(m.paramKeys) > 0 {
				m.selected = (m.selected + 1) % len(m.paramKeys)
			}
		case "]":
			m.adjustParam(1.1)
		case "[":
			m.adjustParam(1 / 1.1)
		}
	case TickMsg:
		if m.running {
			m.Step()
		}
		return m, tick()
	}
	return m, nil
}

// Elapsed is the simulated time of the current frame.
func (m LiveModel) Elapsed() float64 { return m.frame.Time }
func (m LiveModel) Running() bool    { return m.running }
func (m LiveModel) Err() error       { return m.err }

func (m LiveModel) draw() {
	m.canvas.Clear()
	if m.side {
		RenderSide(m.canvas, &m.frame, FitFrame(&m.frame))
		return
	}
	if m.world.Focus != nil {
		m.camera.Target = m.world.Focus.Pos()
	}
	Render3D(m.canvas, FrameWireframe(&m.frame, true), m.camera)
}

func (m LiveModel) View() string {
	st := m.theme.Styles()
	m.draw()
	canvasView := lipgloss.NewStyle().Padding(1, 2).Foreground(m.theme.Text).Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.Title.Render(strings.ToUpper(m.name)) + "\n")
	switch {
	case m.err != nil && errors.Is(m.err, dynamo.ErrNumericalInstability):
		s.WriteString(st.Bad.Render("UNSTABLE") + "\n\n")
	case m.err != nil:
		s.WriteString(st.Bad.Render("ERROR") + "\n\n")
	case m.running:
		s.WriteString(st.Good.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(st.Warn.Render("PAUSED") + "\n\n")
	}

	if len(m.height) > 1 {
		s.WriteString(st.Graph.Render(Chart(m.height, "focus height", 30, 4)) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.Label.Render(label) + st.Value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.frame.Time))
	row("Step", fmt.Sprintf("%d", m.step))
	if n := len(m.energy); n > 0 {
		row("Energy", fmt.Sprintf("%.3f", m.energy[n-1]))
	}
	idle := 0
	for _, b := range m.frame.Bodies {
		if b.Idle {
			idle++
		}
	}
	row("Idle", fmt.Sprintf("%d/%d", idle, len(m.frame.Bodies)))
	if m.world.Focus != nil {
		p := m.world.Focus.Pos()
		row("Focus", fmt.Sprintf("%.2f %.2f %.2f", p[0], p[1], p[2]))
	}

	if len(m.paramKeys) > 0 {
		s.WriteString("\n" + st.Muted.Render("PARAMETERS") + "\n")
		params := m.world.Tunable.GetParams()
		for i, k := range m.paramKeys {
			line := fmt.Sprintf("%-8s %.3f", k, params[k])
			if i == m.selected {
				s.WriteString(st.Active.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + st.Muted.Render(line) + "\n")
			}
		}
	}
	if m.err != nil {
		s.WriteString("\n" + st.Bad.Render(m.err.Error()) + "\n")
	}
	s.WriteString("\n" + st.Muted.Render("SP:pause R:reset Q:quit ?:help"))

	stats := lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(m.theme.Muted).Padding(1, 2).Width(44).Render(s.String())
	main := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, stats)
	if m.help {
		return st.Panel.Render(helpText) + "\n" + main
	}
	return main
}

const helpText = `space   pause / resume      n     single step
r       rebuild the scene   v     side / orbit view
w a s d push the focus body t     cycle theme
arrows  orbit camera        + -   zoom
tab     next parameter      [ ]   tune parameter
q       quit`
