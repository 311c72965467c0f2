package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/metrics"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values as one row of block characters, resampled to
// width.
func Sparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	n := min(width, len(values))
	var b strings.Builder
	for i := range n {
		v := values[i*len(values)/n]
		idx := int((v - lo) / rng * float64(len(sparkChars)-1))
		b.WriteRune(sparkChars[max(0, min(idx, len(sparkChars)-1))])
	}
	return b.String()
}

// ProgressBar renders a fraction in [0, 1].
func ProgressBar(st Styles, fraction float64, width int) string {
	filled := max(0, min(width, int(fraction*float64(width))))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case fraction >= 1:
		return st.Good.Render(bar)
	case fraction > 0.4:
		return st.Warn.Render(bar)
	}
	return st.Bad.Render(bar)
}

// Chart plots a series with asciigraph.
func Chart(series []float64, caption string, width, height int) string {
	if len(series) == 0 {
		return "(no data)"
	}
	return asciigraph.Plot(series,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption(caption))
}

// Summary renders the outcome of a finished run as a panel.
func Summary(theme Theme, title string, res *dynamo.Result, gravity mgl64.Vec3) string {
	st := theme.Styles()
	var s strings.Builder
	s.WriteString(st.Title.Render(strings.ToUpper(title)) + "\n")

	row := func(label, value string) {
		s.WriteString(st.Label.Render(label) + st.Value.Render(value) + "\n")
	}

	final := res.Final()
	row("Steps", fmt.Sprintf("%d", res.StepsTaken))
	if len(res.Frames) > 0 {
		row("Time", fmt.Sprintf("%.3fs", final.Time))
		row("Bodies", fmt.Sprintf("%d", len(final.Bodies)))
		row("Joints", fmt.Sprintf("%d", len(final.Joints)))
		idle := 0
		for _, b := range final.Bodies {
			if b.Idle {
				idle++
			}
		}
		row("Idle", fmt.Sprintf("%d/%d", idle, len(final.Bodies)))
		if n := len(final.Bodies); n > 0 {
			s.WriteString(st.Label.Render("") + ProgressBar(st, float64(idle)/float64(n), 16) + "\n")
		}
	}

	if len(res.Metrics) > 0 {
		s.WriteString("\n" + st.Muted.Render("METRICS") + "\n")
		names := make([]string, 0, len(res.Metrics))
		for n := range res.Metrics {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			row(n, fmt.Sprintf("%.6g", res.Metrics[n]))
		}
	}

	if len(res.Frames) > 1 {
		energy := make([]float64, len(res.Frames))
		for i := range res.Frames {
			energy[i] = metrics.FrameEnergy(&res.Frames[i], gravity)
		}
		s.WriteString("\n" + st.Label.Render("Energy") + st.Graph.Render(Sparkline(energy, 32)) + "\n")
	}

	if len(res.Errors) > 0 {
		s.WriteString("\n" + st.Bad.Render(fmt.Sprintf("%d error(s)", len(res.Errors))) + "\n")
		for _, err := range res.Errors {
			s.WriteString(st.Bad.Render("  "+err.Error()) + "\n")
		}
	} else {
		s.WriteString("\n" + st.Good.Render("ok") + "\n")
	}
	return st.Panel.Render(strings.TrimRight(s.String(), "\n"))
}

// Columns joins panels side by side.
func Columns(panels ...string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}
