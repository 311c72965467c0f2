package dynamo

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodySample is the observable state of one rigid body at a frame.
type BodySample struct {
	ID     int
	Pos    mgl64.Vec3
	Rot    mgl64.Quat
	Vel    mgl64.Vec3
	AngVel mgl64.Vec3
	Mass   float64
	Idle   bool
	// Extent is the half size of the body's bounding box in body space.
	Extent mgl64.Vec3
}

func (b BodySample) KineticEnergy() float64 {
	return 0.5*b.Mass*b.Vel.LenSqr() + 0.5*b.Mass*b.AngVel.LenSqr()
}

// JointSample records the world-space separation of a joint's anchor points.
type JointSample struct {
	ID         int
	Separation float64
}

type Frame struct {
	Step   int
	Time   float64
	Bodies []BodySample
	Joints []JointSample
}

func (f Frame) Clone() Frame {
	c := Frame{Step: f.Step, Time: f.Time}
	c.Bodies = make([]BodySample, len(f.Bodies))
	copy(c.Bodies, f.Bodies)
	c.Joints = make([]JointSample, len(f.Joints))
	copy(c.Joints, f.Joints)
	return c
}

func (f Frame) IsValid() bool {
	for _, b := range f.Bodies {
		for i := 0; i < 3; i++ {
			if !finite(b.Pos[i]) || !finite(b.Vel[i]) || !finite(b.AngVel[i]) {
				return false
			}
		}
	}
	return true
}

// Body returns the sample with the given id.
func (f Frame) Body(id int) (BodySample, bool) {
	for _, b := range f.Bodies {
		if b.ID == id {
			return b, true
		}
	}
	return BodySample{}, false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type Metric interface {
	Name() string
	Observe(f *Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(f *Frame)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Config struct {
	Dt            float64
	Duration      float64
	Substeps      int
	SampleEvery   int
	Variable      bool
	MinDt         float64
	MaxDt         float64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            1.0 / 60.0,
		Duration:      5.0,
		Substeps:      1,
		SampleEvery:   1,
		MinDt:         1.0 / 120.0,
		MaxDt:         1.0 / 60.0,
		ValidateState: true,
	}
}

type Result struct {
	Frames     []Frame
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

// Final returns the last recorded frame.
func (r *Result) Final() Frame {
	if len(r.Frames) == 0 {
		return Frame{}
	}
	return r.Frames[len(r.Frames)-1]
}

// Series extracts one scalar per frame for the given body.
func (r *Result) Series(id int, pick func(BodySample) float64) []float64 {
	out := make([]float64, 0, len(r.Frames))
	for _, f := range r.Frames {
		if b, ok := f.Body(id); ok {
			out = append(out, pick(b))
		}
	}
	return out
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
