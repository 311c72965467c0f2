package collide

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/physics"
)

func newSim(t *testing.T) *physics.Simulator {
	t.Helper()
	sim, err := physics.New(physics.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sim
}

func body(t *testing.T, sim *physics.Simulator, g physics.Geometry, pos mgl64.Vec3) physics.BodyRef {
	t.Helper()
	rb, err := sim.CreateRigidBody()
	if err != nil {
		t.Fatalf("CreateRigidBody: %v", err)
	}
	rb.SetGeometry(g)
	rb.SetPos(pos)
	rb.UpdateAABB()
	return physics.RigidRef(rb)
}

func near(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() <= tol
}

func TestNarrowSphereSphere(t *testing.T) {
	sim := newSim(t)
	n := NewNarrow()

	tests := []struct {
		name  string
		posB  mgl64.Vec3
		hit   bool
		depth float64
	}{
		{"overlap", mgl64.Vec3{0, -1.5, 0}, true, 0.5},
		{"touching", mgl64.Vec3{0, -2, 0}, false, 0},
		{"apart", mgl64.Vec3{3, 0, 0}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := body(t, sim, physics.Sphere(1, 0), mgl64.Vec3{})
			b := body(t, sim, physics.Sphere(1, 0), tt.posB)
			c, hit := n.Test(a, b)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if !hit {
				return
			}
			if math.Abs(c.Depth-tt.depth) > 1e-9 {
				t.Errorf("depth = %v, want %v", c.Depth, tt.depth)
			}
			if !near(c.Normal(), mgl64.Vec3{0, 1, 0}, 1e-9) {
				t.Errorf("normal = %v, want +y (from B to A)", c.Normal())
			}
			if !near(c.ContactAWorld, mgl64.Vec3{0, -1, 0}, 1e-9) {
				t.Errorf("contact A = %v", c.ContactAWorld)
			}
		})
	}
}

func TestNarrowSphereBox(t *testing.T) {
	sim := newSim(t)
	n := NewNarrow()

	box := body(t, sim, physics.Box(mgl64.Vec3{1, 1, 1}, 2), mgl64.Vec3{})
	ball := body(t, sim, physics.Sphere(0.5, 1), mgl64.Vec3{0, 1.25, 0})

	c, hit := n.Test(ball, box)
	if !hit {
		t.Fatal("sphere resting on box not detected")
	}
	if math.Abs(c.Depth-0.25) > 1e-9 {
		t.Errorf("depth = %v, want 0.25", c.Depth)
	}
	if !near(c.Normal(), mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Errorf("normal = %v, want +y", c.Normal())
	}
	if c.MaterialA != 1 || c.MaterialB != 2 {
		t.Errorf("materials = %d,%d, want 1,2", c.MaterialA, c.MaterialB)
	}

	flipped, hit := n.Test(box, ball)
	if !hit {
		t.Fatal("box against sphere not detected")
	}
	if !near(flipped.Normal(), mgl64.Vec3{0, -1, 0}, 1e-9) {
		t.Errorf("flipped normal = %v, want -y", flipped.Normal())
	}
	if flipped.MaterialA != 2 || flipped.MaterialB != 1 {
		t.Errorf("flipped materials = %d,%d", flipped.MaterialA, flipped.MaterialB)
	}
}

func TestNarrowSphereInsideBox(t *testing.T) {
	sim := newSim(t)
	box := body(t, sim, physics.Box(mgl64.Vec3{1, 1, 1}, 0), mgl64.Vec3{})
	ball := body(t, sim, physics.Sphere(0.2, 0), mgl64.Vec3{0.9, 0, 0})

	c, hit := NewNarrow().Test(ball, box)
	if !hit {
		t.Fatal("no contact")
	}
	if !near(c.Normal(), mgl64.Vec3{1, 0, 0}, 1e-9) {
		t.Errorf("normal = %v, want +x", c.Normal())
	}
	if math.Abs(c.Depth-0.3) > 1e-9 {
		t.Errorf("depth = %v, want 0.3", c.Depth)
	}
}

func TestNarrowBoxBox(t *testing.T) {
	sim := newSim(t)
	n := NewNarrow()
	h := mgl64.Vec3{0.5, 0.5, 0.5}

	tests := []struct {
		name   string
		posA   mgl64.Vec3
		hit    bool
		depth  float64
		normal mgl64.Vec3
		point  mgl64.Vec3
	}{
		{"stacked", mgl64.Vec3{0, 0.9, 0}, true, 0.1, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0.4, 0}},
		{"side", mgl64.Vec3{-0.95, 0, 0}, true, 0.05, mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{-0.45, 0, 0}},
		{"apart", mgl64.Vec3{0, 1.1, 0}, false, 0, mgl64.Vec3{}, mgl64.Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := body(t, sim, physics.Box(h, 0), tt.posA)
			b := body(t, sim, physics.Box(h, 0), mgl64.Vec3{})
			c, hit := n.Test(a, b)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if !hit {
				return
			}
			if math.Abs(c.Depth-tt.depth) > 1e-9 {
				t.Errorf("depth = %v, want %v", c.Depth, tt.depth)
			}
			if !near(c.Normal(), tt.normal, 1e-9) {
				t.Errorf("normal = %v, want %v", c.Normal(), tt.normal)
			}
			if !near(c.ContactAWorld, tt.point, 1e-9) {
				t.Errorf("contact A = %v, want %v", c.ContactAWorld, tt.point)
			}
			if !near(c.ContactBWorld.Sub(c.ContactAWorld), tt.normal.Mul(tt.depth), 1e-9) {
				t.Errorf("B - A = %v, want normal*depth", c.ContactBWorld.Sub(c.ContactAWorld))
			}
		})
	}
}

func TestNarrowBoxBoxTilted(t *testing.T) {
	sim := newSim(t)
	rb, _ := sim.CreateRigidBody()
	rb.SetGeometry(physics.Box(mgl64.Vec3{0.5, 0.5, 0.5}, 0))
	rb.SetRotation(mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1}))
	rb.SetPos(mgl64.Vec3{0, 1.2, 0})
	a := physics.RigidRef(rb)
	b := body(t, sim, physics.Box(mgl64.Vec3{0.5, 0.5, 0.5}, 0), mgl64.Vec3{})

	c, hit := NewNarrow().Test(a, b)
	if !hit {
		t.Fatal("corner-down box not detected")
	}
	wantDepth := 0.5 + math.Sqrt2/2 - 1.2
	if math.Abs(c.Depth-wantDepth) > 1e-9 {
		t.Errorf("depth = %v, want %v", c.Depth, wantDepth)
	}
	if !near(c.Normal(), mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Errorf("normal = %v, want +y", c.Normal())
	}
	if math.Abs(c.ContactAWorld[0]) > 1e-9 {
		t.Errorf("contact should lie under the edge, got %v", c.ContactAWorld)
	}
}

func TestContactPatch(t *testing.T) {
	sim := newSim(t)
	h := mgl64.Vec3{0.5, 0.5, 0.5}
	ground := NewPlane(mgl64.Vec3{0, 1, 0}, 0, 0)
	tilt := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1})

	posed := func(pos mgl64.Vec3, q mgl64.Quat) physics.BodyRef {
		rb, err := sim.CreateRigidBody()
		if err != nil {
			t.Fatal(err)
		}
		rb.SetGeometry(physics.Box(h, 0))
		rb.SetRotation(q)
		rb.SetPos(pos)
		rb.UpdateAABB()
		return physics.RigidRef(rb)
	}

	tests := []struct {
		name  string
		test  func() (physics.Contact, bool)
		size  int
		depth float64
	}{
		{"flat on the ground", func() (physics.Contact, bool) {
			return ground.Test(posed(mgl64.Vec3{0, 0.45, 0}, mgl64.QuatIdent()))
		}, 4, 0.05},
		{"edge on the ground", func() (physics.Contact, bool) {
			return ground.Test(posed(mgl64.Vec3{0, math.Sqrt2/2 - 0.05, 0}, tilt))
		}, 2, 0.05},
		{"corner on the ground", func() (physics.Contact, bool) {
			q := mgl64.QuatRotate(math.Pi/5, mgl64.Vec3{1, 0, 0}).Mul(tilt)
			return ground.Test(posed(mgl64.Vec3{0, 0.5, 0}, q))
		}, 0, 0},
		{"stacked boxes", func() (physics.Contact, bool) {
			return NewNarrow().Test(posed(mgl64.Vec3{0, 0.9, 0}, mgl64.QuatIdent()), posed(mgl64.Vec3{}, mgl64.QuatIdent()))
		}, 4, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, hit := tt.test()
			if !hit {
				t.Fatal("no contact")
			}
			if len(c.Patch) != tt.size {
				t.Fatalf("patch has %d points, want %d", len(c.Patch), tt.size)
			}
			for _, p := range c.Patch {
				if math.Abs(p.Depth-tt.depth) > 1e-9 {
					t.Errorf("patch point %v depth = %v, want %v", p.AWorld, p.Depth, tt.depth)
				}
				if !near(p.BWorld.Sub(p.AWorld), c.Normal().Mul(p.Depth), 1e-9) {
					t.Errorf("patch point %v: B - A = %v", p.AWorld, p.BWorld.Sub(p.AWorld))
				}
			}
		})
	}
}

func TestPlane(t *testing.T) {
	sim := newSim(t)
	ground := NewPlane(mgl64.Vec3{0, 1, 0}, 0, 3)

	tests := []struct {
		name  string
		geom  physics.Geometry
		pos   mgl64.Vec3
		hit   bool
		depth float64
		point mgl64.Vec3
	}{
		{"box resting", physics.Box(mgl64.Vec3{0.5, 0.5, 0.5}, 0), mgl64.Vec3{1, 0.45, 0}, true, 0.05, mgl64.Vec3{1, -0.05, 0}},
		{"box above", physics.Box(mgl64.Vec3{0.5, 0.5, 0.5}, 0), mgl64.Vec3{0, 0.6, 0}, false, 0, mgl64.Vec3{}},
		{"sphere", physics.Sphere(0.5, 0), mgl64.Vec3{0, 0.4, 2}, true, 0.1, mgl64.Vec3{0, -0.1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := body(t, sim, tt.geom, tt.pos)
			c, hit := ground.Test(ref)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if !hit {
				return
			}
			if math.Abs(c.Depth-tt.depth) > 1e-9 {
				t.Errorf("depth = %v, want %v", c.Depth, tt.depth)
			}
			if !near(c.ContactAWorld, tt.point, 1e-9) {
				t.Errorf("contact = %v, want %v", c.ContactAWorld, tt.point)
			}
			if math.Abs(c.ContactBWorld[1]) > 1e-9 {
				t.Errorf("terrain point %v not on the plane", c.ContactBWorld)
			}
			if c.MaterialB != 3 {
				t.Errorf("terrain material = %d, want 3", c.MaterialB)
			}
		})
	}
}

func TestSlopeNormal(t *testing.T) {
	p := NewSlope(30, 0)
	if math.Abs(p.Normal.Len()-1) > 1e-12 {
		t.Errorf("normal not unit: %v", p.Normal)
	}
	if math.Abs(p.Normal[1]-math.Cos(math.Pi/6)) > 1e-12 {
		t.Errorf("normal y = %v", p.Normal[1])
	}
}

func TestPlaneRay(t *testing.T) {
	ground := NewPlane(mgl64.Vec3{0, 1, 0}, 0, 0)

	h, ok := ground.Ray(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, -2, 0})
	if !ok {
		t.Fatal("downward ray missed the ground")
	}
	if !near(h.Point, mgl64.Vec3{}, 1e-12) || math.Abs(h.Depth-1) > 1e-12 {
		t.Errorf("hit = %+v", h)
	}

	if _, ok := ground.Ray(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, -0.5, 0}); ok {
		t.Error("short ray should not reach the ground")
	}
	if _, ok := ground.Ray(mgl64.Vec3{0, -1, 0}, mgl64.Vec3{0, -1, 0}); ok {
		t.Error("ray starting underground should not hit")
	}
}

func TestNarrowRay(t *testing.T) {
	sim := newSim(t)
	n := NewNarrow()
	box := body(t, sim, physics.Box(mgl64.Vec3{1, 1, 1}, 4), mgl64.Vec3{})
	ball := body(t, sim, physics.Sphere(1, 5), mgl64.Vec3{5, 0, 0})

	h, ok := n.Ray(mgl64.Vec3{0, 3, 0}, mgl64.Vec3{0, -4, 0}, box)
	if !ok {
		t.Fatal("ray missed the box")
	}
	if !near(h.Point, mgl64.Vec3{0, 1, 0}, 1e-9) || !near(h.Normal, mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Errorf("box hit = %+v", h)
	}
	if math.Abs(h.Depth-2) > 1e-9 || h.Material != 4 {
		t.Errorf("box hit depth/material = %v/%d", h.Depth, h.Material)
	}

	h, ok = n.Ray(mgl64.Vec3{2, 0, 0}, mgl64.Vec3{4, 0, 0}, ball)
	if !ok {
		t.Fatal("ray missed the sphere")
	}
	if !near(h.Point, mgl64.Vec3{4, 0, 0}, 1e-9) || !near(h.Normal, mgl64.Vec3{-1, 0, 0}, 1e-9) {
		t.Errorf("sphere hit = %+v", h)
	}

	if _, ok := n.Ray(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 3, 0}, box); ok {
		t.Error("ray from inside the box should not hit")
	}
}

func TestSweepAndPrune(t *testing.T) {
	sim := newSim(t)
	g := physics.Box(mgl64.Vec3{0.5, 0.5, 0.5}, 0)
	a := body(t, sim, g, mgl64.Vec3{0, 0, 0})
	b := body(t, sim, g, mgl64.Vec3{0.8, 0, 0})
	c := body(t, sim, g, mgl64.Vec3{5, 0, 0})
	d := body(t, sim, g, mgl64.Vec3{0.4, 3, 0})

	sp := NewSweepAndPrune()
	pairs := sp.Update([]physics.BodyRef{c, d, b, a})
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	p := pairs[0]
	if !(p.A.Same(a) && p.B.Same(b)) && !(p.A.Same(b) && p.B.Same(a)) {
		t.Errorf("pair = %v/%v, want a/b", p.A.ID(), p.B.ID())
	}
}
