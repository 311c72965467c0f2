package metrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/dynamo"
)

// FrameEnergy is the kinetic plus gravitational potential energy of every
// body in f.
func FrameEnergy(f *dynamo.Frame, gravity mgl64.Vec3) float64 {
	total := 0.0
	for _, b := range f.Bodies {
		total += b.KineticEnergy() - b.Mass*gravity.Dot(b.Pos)
	}
	return total
}

// Energy is the mean total energy over the observed frames.
type Energy struct {
	name        string
	gravity     mgl64.Vec3
	samples     int
	totalEnergy float64
}

func NewEnergy(gravity mgl64.Vec3) *Energy {
	return &Energy{
		name:    "energy",
		gravity: gravity,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(f *dynamo.Frame) {
	e.totalEnergy += FrameEnergy(f, e.gravity)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest energy gain relative to the first frame.
// Contacts and damping only remove energy, so growth means the solver is
// injecting it.
type EnergyDrift struct {
	name          string
	gravity       mgl64.Vec3
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(gravity mgl64.Vec3) *EnergyDrift {
	return &EnergyDrift{
		name:    "energy_drift",
		gravity: gravity,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(f *dynamo.Frame) {
	energy := FrameEnergy(f, e.gravity)

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	scale := math.Max(math.Abs(e.initialEnergy), 1)
	e.maxDrift = math.Max(e.maxDrift, (energy-e.initialEnergy)/scale)
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
