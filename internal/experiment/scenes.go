package experiment

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/collide"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/control"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/physics"
)

// groundMaterial carries the scene friction and restitution. Bodies that
// should feel them use it too, since a contact takes the lower of the two.
const groundMaterial = 1

var up = mgl64.Vec3{0, 1, 0}

func flatGround(w *World) {
	w.Sim.SetTerrain(collide.NewPlane(up, 0, groundMaterial))
}

// solid creates a rigid body with geometry g, mass and inertia from the
// material density, placed at pos.
func solid(w *World, g physics.Geometry, pos mgl64.Vec3) (*physics.RigidBody, error) {
	rb, err := w.Sim.CreateRigidBody()
	if err != nil {
		return nil, err
	}
	mat, _ := w.Sim.GetMaterial(g.Material)
	inertia, mass := g.InertiaTensor(mat.Density)
	rb.SetGeometry(g)
	rb.SetMass(mass)
	rb.SetInertiaTensor(inertia)
	rb.SetPos(pos)
	rb.UpdateAABB()
	return w.addBody(rb), nil
}

func cube(size float64) mgl64.Vec3 { return mgl64.Vec3{size, size, size} }

func buildDrop(cfg *config.Config, w *World) error {
	flatGround(w)
	sc := cfg.Scene
	g := physics.Box(cube(sc.Size), groundMaterial)
	if sc.Sphere {
		g = physics.Sphere(sc.Size, groundMaterial)
	}
	rb, err := solid(w, g, mgl64.Vec3{0, sc.Height + sc.Size, 0})
	if err != nil {
		return err
	}
	if sc.Spin != 0 {
		rb.SetAngularVelocity(mgl64.Vec3{0.3, 0, 1}.Normalize().Mul(sc.Spin))
	}
	return nil
}

func buildStack(cfg *config.Config, w *World) error {
	flatGround(w)
	sc := cfg.Scene
	if sc.Count < 1 {
		return fmt.Errorf("stack needs at least one box, got %d", sc.Count)
	}
	gap := 0.01
	for i := 0; i < sc.Count; i++ {
		y := sc.Size + float64(i)*(2*sc.Size+gap)
		if _, err := solid(w, physics.Box(cube(sc.Size), groundMaterial), mgl64.Vec3{0, y, 0}); err != nil {
			return err
		}
	}
	// follow the top of the stack
	w.Focus = w.Bodies[len(w.Bodies)-1]
	return nil
}

func buildSlope(cfg *config.Config, w *World) error {
	sc := cfg.Scene
	w.Sim.SetTerrain(collide.NewSlope(sc.SlopeAngle, groundMaterial))

	theta := dynamo.Rad(sc.SlopeAngle)
	normal := mgl64.Vec3{math.Sin(theta), math.Cos(theta), 0}
	rb, err := solid(w, physics.Box(cube(sc.Size), groundMaterial), normal.Mul(sc.Size+0.02))
	if err != nil {
		return err
	}
	rb.SetRotation(mgl64.QuatRotate(-theta, mgl64.Vec3{0, 0, 1}))
	return nil
}

func buildPendulum(cfg *config.Config, w *World) error {
	sc := cfg.Scene
	pivot := mgl64.Vec3{0, 3, 0}
	length := 1.0
	pos := pivot.Add(mgl64.Vec3{math.Sin(sc.Angle), -math.Cos(sc.Angle), 0}.Mul(length))

	bob, err := solid(w, physics.Sphere(0.1, 0), pos)
	if err != nil {
		return err
	}
	j, err := w.Sim.CreateJoint(physics.JointBallSocket, bob, physics.BodyRef{})
	if err != nil {
		return err
	}
	j.SetFrameWorld(physics.Transform{Pos: pivot, Rot: mgl64.Ident3()})
	j.Enable(w.Sim, true)
	w.Joints = append(w.Joints, j)
	return nil
}

func buildChain(cfg *config.Config, w *World) error {
	sc := cfg.Scene
	if sc.Count < 1 {
		return fmt.Errorf("chain needs at least one link, got %d", sc.Count)
	}
	link := 2 * sc.Size
	top := mgl64.Vec3{0, float64(sc.Count)*link + 1, 0}
	h := mgl64.Vec3{sc.Size, sc.Size / 4, sc.Size / 4}

	var prev *physics.RigidBody
	for i := 0; i < sc.Count; i++ {
		anchor := top.Add(mgl64.Vec3{float64(i) * link, 0, 0})
		rb, err := solid(w, physics.Box(h, 0), anchor.Add(mgl64.Vec3{sc.Size, 0, 0}))
		if err != nil {
			return err
		}
		var b physics.BodyRef
		if prev != nil {
			b = physics.RigidRef(prev)
		}
		j, err := w.Sim.CreateJoint(physics.JointBallSocket, rb, b)
		if err != nil {
			return err
		}
		j.SetFrameWorld(physics.Transform{Pos: anchor, Rot: mgl64.Ident3()})
		j.Enable(w.Sim, true)
		w.Joints = append(w.Joints, j)
		prev = rb
	}
	w.Focus = prev
	return nil
}

func buildSlider(cfg *config.Config, w *World) error {
	sc := cfg.Scene
	rb, err := solid(w, physics.Box(cube(sc.Size), 0), mgl64.Vec3{0, 1, 0})
	if err != nil {
		return err
	}
	rb.GravityEnable(false)

	j, err := w.Sim.CreateJoint(physics.JointSlide, rb, physics.BodyRef{})
	if err != nil {
		return err
	}
	// slide along world x: the frame's y axis is the slide axis
	j.SetFrameWorld(physics.Transform{Pos: rb.Pos(), Rot: mgl64.Rotate3DZ(-math.Pi / 2)})
	j.SetLimit(0, -1, 1, true)
	j.Enable(w.Sim, true)
	w.Joints = append(w.Joints, j)

	motor := control.NewMotorSchedule(1.5, 0, 90)
	_, err = w.Sim.AddJointController(j, motor.Func(), cfg.Controller.Period)
	return err
}

func buildHover(cfg *config.Config, w *World) error {
	flatGround(w)
	rb, err := solid(w, physics.Box(cube(0.3), 0), mgl64.Vec3{0, 0.3, 0})
	if err != nil {
		return err
	}

	g := -w.Gravity().Y()
	cc := cfg.Controller
	switch cc.Kind {
	case "", "none":
		_, err = w.Sim.AddBodyController(rb, control.NewNone().Func(), 0)
	case "pid":
		h := control.NewHover(control.NewPID(cc.Kp, cc.Ki, cc.Kd, cc.Target), g)
		w.Tunable = h
		_, err = w.Sim.AddBodyController(rb, h.Func(), cc.Period)
	case "lqr":
		l := control.NewPointLQR(mgl64.Vec3{0, cc.Target, 0}, w.Gravity())
		_, err = w.Sim.AddBodyController(rb, l.Func(), cc.Period)
	case "constant":
		k := control.NewConstant(mgl64.Vec3{0, rb.Mass() * g * 1.1, 0}, mgl64.Vec3{})
		_, err = w.Sim.AddBodyController(rb, k.Func(), cc.Period)
	default:
		return fmt.Errorf("unknown controller %q", cc.Kind)
	}
	return err
}

// limb describes one ragdoll part relative to the torso centre.
type limb struct {
	half   mgl64.Vec3
	offset mgl64.Vec3
	joint  mgl64.Vec3
	hinge  bool
}

var ragdollLimbs = []limb{
	{half: cube(0.15), offset: mgl64.Vec3{0, 0.6, 0}, joint: mgl64.Vec3{0, 0.45, 0}},
	{half: mgl64.Vec3{0.25, 0.07, 0.07}, offset: mgl64.Vec3{0.5, 0.3, 0}, joint: mgl64.Vec3{0.25, 0.3, 0}},
	{half: mgl64.Vec3{0.25, 0.07, 0.07}, offset: mgl64.Vec3{-0.5, 0.3, 0}, joint: mgl64.Vec3{-0.25, 0.3, 0}},
	{half: mgl64.Vec3{0.08, 0.3, 0.08}, offset: mgl64.Vec3{0.12, -0.75, 0}, joint: mgl64.Vec3{0.12, -0.45, 0}, hinge: true},
	{half: mgl64.Vec3{0.08, 0.3, 0.08}, offset: mgl64.Vec3{-0.12, -0.75, 0}, joint: mgl64.Vec3{-0.12, -0.45, 0}, hinge: true},
}

func buildRagdoll(cfg *config.Config, w *World) error {
	flatGround(w)
	centre := mgl64.Vec3{0, cfg.Scene.Height, 0}
	torso, err := solid(w, physics.Box(mgl64.Vec3{0.25, 0.45, 0.12}, groundMaterial), centre)
	if err != nil {
		return err
	}

	for _, l := range ragdollLimbs {
		part, err := solid(w, physics.Box(l.half, groundMaterial), centre.Add(l.offset))
		if err != nil {
			return err
		}
		jt := physics.JointBallSocket
		// hinge axis along the frame's y, turned to world x so legs swing forward
		rot := mgl64.Rotate3DZ(-math.Pi / 2)
		if !l.hinge {
			rot = mgl64.Ident3()
		} else {
			jt = physics.JointHinge
		}
		j, err := w.Sim.CreateJoint(jt, part, physics.RigidRef(torso))
		if err != nil {
			return err
		}
		j.SetFrameWorld(physics.Transform{Pos: centre.Add(l.joint), Rot: rot})
		if l.hinge {
			j.SetLimit(0, -math.Pi/2, math.Pi/4, true)
		} else {
			j.SetLimit(0, 0, math.Pi/3, true)
		}
		j.SetDampingFactor(0.1)
		j.Enable(w.Sim, true)
		w.Joints = append(w.Joints, j)
	}
	w.Focus = torso
	return nil
}
