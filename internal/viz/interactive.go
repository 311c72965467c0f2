package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/experiment"
)

const (
	stateMenu = iota
	statePreset
	stateSim
)

const defaultPreset = "(defaults)"

// App lets the user pick a scenario and preset, then runs it live.
type App struct {
	reg   *experiment.Registry
	log   logr.Logger
	theme Theme

	state     int
	scenarios []experiment.Scenario
	cursor    int
	presets   []string
	pcursor   int
	live      LiveModel
	err       error
}

func NewApp(reg *experiment.Registry, log logr.Logger) App {
	return App{reg: reg, log: log, theme: Themes[0], scenarios: reg.List()}
}

func (a App) Init() tea.Cmd { return nil }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.state == stateSim {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			a.state = statePreset
			return a, nil
		}
		next, cmd := a.live.Update(msg)
		a.live = next.(LiveModel)
		return a, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	switch k.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "t":
		a.theme = a.theme.Next()
	}

	switch a.state {
	case stateMenu:
		switch k.String() {
		case "up", "k":
			a.cursor = max(a.cursor-1, 0)
		case "down", "j":
			a.cursor = min(a.cursor+1, len(a.scenarios)-1)
		case "enter", " ":
			if len(a.scenarios) == 0 {
				return a, nil
			}
			a.presets = append([]string{defaultPreset}, config.ListPresets(a.scenarios[a.cursor].Name)...)
			a.pcursor = 0
			a.err = nil
			a.state = statePreset
		}
	case statePreset:
		switch k.String() {
		case "esc", "backspace":
			a.state = stateMenu
		case "up", "k":
			a.pcursor = max(a.pcursor-1, 0)
		case "down", "j":
			a.pcursor = min(a.pcursor+1, len(a.presets)-1)
		case "enter", " ":
			return a.start()
		}
	}
	return a, nil
}

// Config resolves the highlighted scenario and preset.
func (a App) Config() (*config.Config, error) {
	name := a.scenarios[a.cursor].Name
	if a.pcursor == 0 || a.pcursor >= len(a.presets) {
		cfg := config.DefaultConfig()
		cfg.Scenario = name
		return cfg, nil
	}
	return config.GetPreset(name, a.presets[a.pcursor])
}

func (a App) start() (tea.Model, tea.Cmd) {
	cfg, err := a.Config()
	if err != nil {
		a.err = err
		return a, nil
	}
	build := func() (*experiment.World, error) { return a.reg.Build(cfg, a.log) }
	live, err := NewLiveModel(cfg.Scenario, build, cfg.Dt, cfg.Substeps)
	if err != nil {
		a.err = err
		return a, nil
	}
	live.theme = a.theme
	a.live = live
	a.state = stateSim
	return a, live.Init()
}

func (a App) View() string {
	st := a.theme.Styles()
	var b strings.Builder

	switch a.state {
	case stateSim:
		return a.live.View()
	case stateMenu:
		b.WriteString(st.Title.Render("RIGIDSIM") + "\n")
		b.WriteString(st.Muted.Render("rigid body scenarios") + "\n\n")
		for i, s := range a.scenarios {
			line := fmt.Sprintf("%-10s %s", s.Name, st.Muted.Render(s.Description))
			if i == a.cursor {
				b.WriteString(st.Active.Render("▸ ") + line + "\n")
			} else {
				b.WriteString("  " + line + "\n")
			}
		}
		b.WriteString("\n" + st.Muted.Render("j/k move  enter select  t theme  q quit"))
	case statePreset:
		b.WriteString(st.Title.Render(strings.ToUpper(a.scenarios[a.cursor].Name)) + "\n")
		for i, p := range a.presets {
			if i == a.pcursor {
				b.WriteString(st.Active.Render("▸ "+p) + "\n")
			} else {
				b.WriteString("  " + p + "\n")
			}
		}
		if a.err != nil {
			b.WriteString("\n" + st.Bad.Render(a.err.Error()) + "\n")
		}
		b.WriteString("\n" + st.Muted.Render("j/k move  enter run  esc back  q quit"))
	}
	return st.Panel.Render(b.String())
}
