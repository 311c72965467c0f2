package metrics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Momentum reports the magnitude of the total linear momentum in the last
// observed frame.
type Momentum struct {
	last mgl64.Vec3
}

func NewMomentum() *Momentum { return &Momentum{} }

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Observe(f *dynamo.Frame) {
	var p mgl64.Vec3
	for _, b := range f.Bodies {
		p = p.Add(b.Vel.Mul(b.Mass))
	}
	m.last = p
}

func (m *Momentum) Value() float64 { return m.last.Len() }

func (m *Momentum) Vector() mgl64.Vec3 { return m.last }

func (m *Momentum) Reset() { m.last = mgl64.Vec3{} }
