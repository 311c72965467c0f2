package metrics

import (
	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Stability is the fraction of frames in which no body moves faster than
// threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f *dynamo.Frame) {
	s.samples++
	if !f.IsValid() {
		s.violations++
		return
	}
	for _, b := range f.Bodies {
		if b.Vel.Len() > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// IdleRatio is the share of bodies asleep in the last observed frame.
type IdleRatio struct {
	idle, total int
}

func NewIdleRatio() *IdleRatio { return &IdleRatio{} }

func (r *IdleRatio) Name() string { return "idle_ratio" }

func (r *IdleRatio) Observe(f *dynamo.Frame) {
	r.idle, r.total = 0, len(f.Bodies)
	for _, b := range f.Bodies {
		if b.Idle {
			r.idle++
		}
	}
}

func (r *IdleRatio) Value() float64 {
	if r.total == 0 {
		return 0
	}
	return float64(r.idle) / float64(r.total)
}

func (r *IdleRatio) Reset() { r.idle, r.total = 0, 0 }

// MaxSpeed is the highest linear speed seen on any body.
type MaxSpeed struct {
	max float64
}

func NewMaxSpeed() *MaxSpeed { return &MaxSpeed{} }

func (m *MaxSpeed) Name() string { return "max_speed" }

func (m *MaxSpeed) Observe(f *dynamo.Frame) {
	for _, b := range f.Bodies {
		m.max = max(m.max, b.Vel.Len())
	}
}

func (m *MaxSpeed) Value() float64 { return m.max }
func (m *MaxSpeed) Reset()         { m.max = 0 }
