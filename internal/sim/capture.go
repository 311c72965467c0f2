package sim

import (
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/physics"
)

// captureChunk is the body count below which sampling stays on one goroutine.
const captureChunk = 256

// Capture overwrites f with the state of every active rigid body and joint
// in world.
func Capture(world *physics.Simulator, step int, f *dynamo.Frame) {
	f.Step = step
	f.Time = world.Elapsed()
	f.Joints = f.Joints[:0]

	bodies := world.RigidBodies()
	if cap(f.Bodies) < len(bodies) {
		f.Bodies = make([]dynamo.BodySample, len(bodies))
	}
	f.Bodies = f.Bodies[:len(bodies)]
	dynamo.ParallelFor(len(bodies), captureChunk, func(start, end int) {
		for i := start; i < end; i++ {
			rb := bodies[i]
			f.Bodies[i] = dynamo.BodySample{
				ID:     rb.ID(),
				Pos:    rb.Pos(),
				Rot:    rb.Rotation(),
				Vel:    rb.Velocity(),
				AngVel: rb.AngularVelocity(),
				Mass:   rb.Mass(),
				Idle:   rb.IsIdle(),
				Extent: rb.Geometry().HalfExtents,
			}
		}
	})

	for _, j := range world.Joints() {
		if !j.Enabled() {
			continue
		}
		sep := 0.0
		for i := range j.PointCount() {
			a, b := j.WorldPoints(i)
			sep = max(sep, a.Sub(b).Len())
		}
		f.Joints = append(f.Joints, dynamo.JointSample{ID: j.ID(), Separation: sep})
	}
}
