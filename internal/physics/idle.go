package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	idleCounterMin     = 10
	idleLineCounterMin = 100
	restHullTolerance  = 0.005
	triangleInflation  = 1.1
	stationaryWindow   = 60
	stationaryAcc      = 5.0
	stationaryW        = 10.0
	stationaryAngAcc   = 10.5
	avgVelocityLimitSq = 2.0
	avgAngularLimitSq  = 1.0
	defaultHighEnergy  = 1.0
)

// checkForIdle advances the low-energy streak and puts the body to sleep once
// its rest hull supports it.
func (rb *RigidBody) checkForIdle(s *Simulator) {
	e := rb.linearVel.Dot(rb.linearVel)
	f := rb.angularVel.Dot(rb.angularVel)

	if e < s.highEnergy && f < s.highEnergy {
		rb.lowEnergyCounter++
	} else {
		var total mgl64.Vec3
		for i := 0; i < maxPastRecords; i++ {
			total = total.Add(rb.velRecord[i])
		}
		total = total.Mul(1.0 / maxPastRecords)
		if total.Dot(s.gravityDir) > 0 {
			total = removeComponent(total, s.gravityDir)
		}
		if total.Dot(total) > avgVelocityLimitSq {
			rb.lowEnergyCounter = 0
			return
		}

		total = mgl64.Vec3{}
		for i := 0; i < maxPastRecords; i++ {
			total = total.Add(rb.angVelRecord[i])
		}
		total = total.Mul(1.0 / maxPastRecords)
		if total.Dot(total) > avgAngularLimitSq {
			rb.lowEnergyCounter = 0
			return
		}
		rb.lowEnergyCounter++
	}

	if rb.lowEnergyCounter <= idleCounterMin {
		return
	}
	if rb.stackInfo == nil || !rb.isRestPointStillValid() {
		return
	}
	switch hull := rb.checkRestHull(); {
	case hull == 2 && rb.lowEnergyCounter > idleLineCounterMin:
		rb.BecomeIdle()
	case hull > 2:
		rb.BecomeIdle()
	}
}

// checkHighEnergy reports whether v² + w² is at or above the wake threshold.
func (rb *RigidBody) checkHighEnergy(s *Simulator) bool {
	e := rb.linearVel.Dot(rb.linearVel) + rb.angularVel.Dot(rb.angularVel)
	return e >= s.highEnergy
}

// checkStillIdle keeps an idle body asleep while its energy stays low and its
// support is still sound.
func (rb *RigidBody) checkStillIdle(s *Simulator) bool {
	if rb.checkHighEnergy(s) {
		rb.WakeUp()
		return false
	}
	if !rb.particle && rb.checkRestHull() == 0 {
		return false
	}
	rb.zeroMotion()
	rb.updateController(s)
	s.idleBodyCount++
	return true
}

// checkStationary compares the state with the snapshot taken a window of
// steps ago. Any rate above its threshold resets the snapshot.
func (rb *RigidBody) checkStationary(s *Simulator) bool {
	if rb.old.counter < stationaryWindow {
		return false
	}
	t := s.dt * stationaryWindow

	if rb.b2w.Pos.Sub(rb.old.pos).Len()/t > rb.sleepingParam {
		rb.syncOldState()
		return false
	}
	if rb.linearVel.Sub(rb.old.vel).Len()/t > stationaryAcc {
		rb.syncOldState()
		return false
	}
	dq := rb.q.Mul(rb.old.rot.Inverse())
	if quatAngle(dq)/t > stationaryW {
		rb.syncOldState()
		return false
	}
	if rb.angularVel.Sub(rb.old.angVel).Len()/t > stationaryAngAcc {
		rb.syncOldState()
		return false
	}
	return true
}

// checkRestHull projects the support points into a frame aligned with the
// net force and returns 3, 2 or 1 when the body's origin is over its
// triangle, line or point support, and 0 otherwise.
func (rb *RigidBody) checkRestHull() int {
	if vecIsZero(rb.totalForce) {
		return 3
	}
	up := rb.totalForce.Normalize()
	x, z := chooseAxis(up)
	frame := mgl64.Mat3FromCols(x, up, z).Transpose()

	project := func(i int) (mgl64.Vec3, bool) {
		r := &rb.rest[i]
		if !r.IsValid() || !r.canConsiderOtherBodyIdle() {
			return mgl64.Vec3{}, false
		}
		return frame.Mul3x1(r.worldThisBody.Sub(rb.b2w.Pos)), true
	}

	switch rb.hull.Type {
	case HullTriangle:
		var p [3]mgl64.Vec3
		for i := 0; i < 3; i++ {
			v, ok := project(rb.hull.Indices[i])
			if !ok {
				return 0
			}
			p[i] = v
		}
		if testZeroInTriangle(p[0], p[1], p[2]) {
			return 3
		}
	case HullLine:
		var p [2]mgl64.Vec3
		for i := 0; i < 2; i++ {
			v, ok := project(rb.hull.Indices[i])
			if !ok {
				return 0
			}
			v[1] = 0
			p[i] = v
		}
		if distanceFromLine(mgl64.Vec3{}, p[0], p[1]) < restHullTolerance {
			return 2
		}
	case HullPoint:
		v, ok := project(rb.hull.Indices[0])
		if !ok {
			return 0
		}
		if math.Hypot(v[0], v[2]) < restHullTolerance {
			return 1
		}
	}
	return 0
}

// testZeroInTriangle reports whether the origin lies inside the triangle
// p1 p2 p3 projected onto the xz plane, after growing it by 10% about its
// centroid.
func testZeroInTriangle(p1, p2, p3 mgl64.Vec3) bool {
	c := p1.Add(p2).Add(p3).Mul(1.0 / 3.0)
	p1 = c.Add(p1.Sub(c).Mul(triangleInflation))
	p2 = c.Add(p2.Sub(c).Mul(triangleInflation))
	p3 = c.Add(p3.Sub(c).Mul(triangleInflation))

	const x, z = 0, 2
	c12 := p1[z]*p2[x] - p1[x]*p2[z]
	c23 := p2[z]*p3[x] - p2[x]*p3[z]
	c31 := p3[z]*p1[x] - p3[x]*p1[z]

	return (c12 > 0 && c23 > 0 && c31 > 0) || (c12 < 0 && c23 < 0 && c31 < 0)
}
