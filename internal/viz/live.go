package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/SGBon/BMKSA/internal/vehicle"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 600
	frameInterval   = time.Second / 30
	maxStepsPerTick = 200
)

type TickMsg time.Time

// Launcher builds a fresh vehicle on the pad.
type Launcher func() (*vehicle.Vehicle, error)

// Model is the live ascent view. Every frame it advances the vehicle by
// stepsPerTick ticks and feeds each sample to the observers.
type Model struct {
	launch    Launcher
	v         *vehicle.Vehicle
	observers []dynamo.Observer

	running      bool
	stepsPerTick int
	duration     float64

	altitude []float64
	speed    []float64
	trailX   []float64
	trailY   []float64

	canvas *Canvas
	theme  Theme
	styles styles
	err    error
}

type Option func(*Model)

// WithObserver receives every sample the view produces.
func WithObserver(o dynamo.Observer) Option {
	return func(m *Model) { m.observers = append(m.observers, o) }
}

func WithTheme(name string) Option {
	return func(m *Model) {
		m.theme = GetTheme(name)
		m.styles = newStyles(m.theme)
	}
}

func WithStepsPerTick(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.stepsPerTick = n
		}
	}
}

// WithDuration pauses the view once simulated time reaches d seconds.
func WithDuration(d float64) Option {
	return func(m *Model) { m.duration = d }
}

func NewModel(launch Launcher, opts ...Option) (Model, error) {
	v, err := launch()
	if err != nil {
		return Model{}, err
	}
	m := Model{
		launch:       launch,
		v:            v,
		running:      true,
		stepsPerTick: 10,
		canvas:       NewCanvas(width, height),
		theme:        ThemeMission,
		styles:       newStyles(ThemeMission),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.record(v.Snapshot())
	return m, nil
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.relaunch()
		case "t":
			m.theme = next(m.theme.Name)
			m.styles = newStyles(m.theme)
		case "+", "=":
			m.stepsPerTick = min(m.stepsPerTick*2, maxStepsPerTick)
		case "-", "_":
			m.stepsPerTick = max(m.stepsPerTick/2, 1)
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	for i := 0; i < m.stepsPerTick; i++ {
		if m.duration > 0 && m.v.Time() >= m.duration {
			m.running = false
			return
		}
		m.v.Step()
		m.record(m.v.Snapshot())
	}
}

func (m *Model) record(s dynamo.Sample) {
	for _, o := range m.observers {
		o.OnTick(s)
	}
	m.altitude = appendCapped(m.altitude, s.Altitude)
	m.speed = appendCapped(m.speed, s.Speed)
	m.trailX = appendCapped(m.trailX, s.Position[0])
	m.trailY = appendCapped(m.trailY, s.Altitude)
}

func appendCapped(xs []float64, x float64) []float64 {
	xs = append(xs, x)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

// relaunch keeps the current vehicle if the launcher fails.
func (m *Model) relaunch() {
	v, err := m.launch()
	if err != nil {
		m.err = err
		return
	}
	m.v = v
	m.err = nil
	m.altitude, m.speed, m.trailX, m.trailY = nil, nil, nil, nil
	m.record(v.Snapshot())
	m.running = true
}

// Vehicle is the vehicle currently flying.
func (m Model) Vehicle() *vehicle.Vehicle { return m.v }

func (m Model) Running() bool { return m.running }

// fuelFraction is the share of the current stage's propellant left.
func fuelFraction(v *vehicle.Vehicle) float64 {
	p := v.Params()
	switch v.Stage() {
	case vehicle.StageBooster:
		if p.Stage1Fuel == 0 {
			return 0
		}
		return (v.Mass() - p.Stage1Empty - p.UpperMass()) / p.Stage1Fuel
	case vehicle.StageUpper:
		burnable := p.UpperMass() - p.Stage2Empty
		if burnable == 0 {
			return 0
		}
		return (v.Mass() - p.Stage2Empty) / burnable
	default:
		return 0
	}
}

func (m Model) View() string {
	st := m.styles
	s := m.v.Snapshot()

	m.canvas.Clear()
	m.canvas.Trace(m.trailX, m.trailY)
	canvasView := st.canvas.Render(m.canvas.String())

	var b strings.Builder
	b.WriteString(st.header.Render(fmt.Sprintf("STAGE %d · %s", s.Stage, strings.ToUpper(m.v.Stage().String()))) + "\n")

	status := st.good.Render("RUNNING")
	if !m.running {
		status = st.warn.Render("PAUSED")
	}
	b.WriteString(status + "\n\n")

	row := func(label, value string) {
		b.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.1f s", s.Time))
	row("Altitude", fmt.Sprintf("%.2f km", s.Altitude/1000))
	row("Speed", fmt.Sprintf("%.1f m/s", s.Speed))
	row("Orbital", fmt.Sprintf("%.1f%%", 100*s.Speed/m.v.TargetOrbitalVelocity()))
	row("Mass", fmt.Sprintf("%.0f kg", s.Mass))
	row("Thrust", fmt.Sprintf("%.2f MN", s.Thrust/1e6))
	row("Ascent", m.v.AscentPhase().String())
	b.WriteString(st.label.Render("Fuel") + st.progressBar(fuelFraction(m.v), 20) + "\n")
	if n := m.v.Failures(); n > 0 {
		row("Failures", st.bad.Render(fmt.Sprintf("%d", n)))
	}

	if len(m.altitude) > 1 {
		alt := asciigraph.Plot(m.altitude, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Altitude (m)"))
		b.WriteString(st.graph.Render(alt) + "\n")
		spd := asciigraph.Plot(m.speed, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Speed (m/s)"))
		b.WriteString(st.graph.Render(spd) + "\n")
	}

	if m.err != nil {
		b.WriteString(st.bad.Render("relaunch failed: "+m.err.Error()) + "\n")
	}

	b.WriteString(st.separator(40) + "\n")
	b.WriteString(st.help.Render(fmt.Sprintf("SP:Pause R:Relaunch T:%s +/-:%d ticks Q:Quit", m.theme.Name, m.stepsPerTick)))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.stats.Render(b.String()))
}

// Run blocks until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
