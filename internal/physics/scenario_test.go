package physics_test

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rigidsim/internal/collide"
	"github.com/san-kum/rigidsim/internal/physics"
)

const frame = 1.0 / 60

func newWorld(terrain physics.Terrain) *physics.Simulator {
	s, err := physics.New(physics.DefaultConfig())
	Expect(err).NotTo(HaveOccurred())
	s.SetNarrowPhase(collide.NewNarrow())
	s.SetBroadPhase(collide.NewSweepAndPrune())
	if terrain != nil {
		s.SetTerrain(terrain)
	}
	return s
}

func addBox(s *physics.Simulator, pos mgl64.Vec3, material int) *physics.RigidBody {
	h := mgl64.Vec3{0.5, 0.5, 0.5}
	rb, err := s.CreateRigidBody()
	Expect(err).NotTo(HaveOccurred())
	rb.SetGeometry(physics.Box(h, material))
	rb.SetInertiaTensor(physics.BoxInertiaTensor(h, 1))
	rb.SetPos(pos)
	rb.UpdateAABB()
	return rb
}

func run(s *physics.Simulator, seconds float64) {
	for range int(seconds / frame) {
		Expect(s.Advance(frame, 2)).To(Succeed())
	}
}

func finiteVec(v mgl64.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

var _ = Describe("Scenarios", func() {
	Context("a box dropped on the ground", func() {
		It("settles on a face and goes idle", func() {
			s := newWorld(collide.NewPlane(mgl64.Vec3{0, 1, 0}, 0, 0))
			rb := addBox(s, mgl64.Vec3{0, 10, 0}, 0)
			rb.SetInertiaTensor(mgl64.Ident3())

			steps := 0
			for ; steps < 300 && !rb.IsIdle(); steps++ {
				Expect(s.Advance(frame, 1)).To(Succeed())
			}

			Expect(rb.IsIdle()).To(BeTrue(), "still moving after %d steps", steps)
			Expect(rb.Pos().Y()).To(BeNumerically("~", 0.5, 0.01))
			Expect(rb.RestHull().Type).To(Equal(physics.HullTriangle))
			Expect(s.IdleBodyCount()).To(Equal(1))

			rb.SetForce(mgl64.Vec3{0, 30, 0})
			Expect(s.Advance(frame, 1)).To(Succeed())
			Expect(rb.Status()).To(Equal(physics.StatusNormal))
		})

		It("wakes up when pushed", func() {
			s := newWorld(collide.NewPlane(mgl64.Vec3{0, 1, 0}, 0, 0))
			rb := addBox(s, mgl64.Vec3{0, 0.5, 0}, 0)
			run(s, 3)
			before := rb.Pos().Y()

			rb.SetForce(mgl64.Vec3{0, 30, 0})
			Expect(rb.IsIdle()).To(BeFalse())
			run(s, 0.5)

			Expect(rb.Pos().Y()).To(BeNumerically(">", before+0.2))
		})
	})

	Context("a stack of three boxes", func() {
		var (
			s     *physics.Simulator
			boxes []*physics.RigidBody
		)

		BeforeEach(func() {
			s = newWorld(collide.NewPlane(mgl64.Vec3{0, 1, 0}, 0, 0))
			boxes = nil
			for i := range 3 {
				boxes = append(boxes, addBox(s, mgl64.Vec3{0, 0.5 + float64(i)*1.02, 0}, 0))
			}
			run(s, 4)
		})

		It("stays upright", func() {
			top := boxes[2]
			Expect(finiteVec(top.Pos())).To(BeTrue())
			Expect(top.Pos().Y()).To(BeNumerically(">", 2.0))
			Expect(math.Abs(top.Pos().X())).To(BeNumerically("<", 0.5))
			Expect(math.Abs(top.Pos().Z())).To(BeNumerically("<", 0.5))
		})

		It("shares one stack header", func() {
			stacks := s.StackHeaders()
			Expect(stacks).To(HaveLen(1))
			Expect(stacks[0].Bodies()).To(ConsistOf(boxes[0], boxes[1], boxes[2]))
			for _, rb := range boxes {
				Expect(rb.StackInfo()).NotTo(BeNil())
				Expect(rb.StackInfo().Header()).To(BeIdenticalTo(stacks[0]))
			}
		})

		It("leaves no stale stack links when the middle box is freed", func() {
			Expect(s.FreeRigidBody(boxes[1])).To(Succeed())

			for _, h := range append(s.StackHeaders(), s.HeaderX()) {
				for _, rb := range h.Bodies() {
					Expect(rb).NotTo(BeIdenticalTo(boxes[1]))
					Expect(rb.StackInfo()).NotTo(BeNil())
					Expect(rb.StackInfo().Header()).To(BeIdenticalTo(h))
				}
			}
			Expect(boxes[2].IsIdle()).To(BeFalse())

			run(s, 1)
			Expect(finiteVec(boxes[2].Pos())).To(BeTrue())
		})
	})

	Context("a box on a 20 degree slope", func() {
		// travel along the slope after two seconds
		slide := func(friction float64) float64 {
			s := newWorld(collide.NewSlope(20, 1))
			Expect(s.SetMaterial(1, physics.Material{Friction: friction, Density: 1})).To(BeTrue())
			theta := mgl64.DegToRad(20)
			n := mgl64.Vec3{math.Sin(theta), math.Cos(theta), 0}
			rb := addBox(s, n.Mul(0.52), 1)
			rb.SetRotation(mgl64.QuatRotate(-theta, mgl64.Vec3{0, 0, 1}))
			start := rb.Pos()

			run(s, 2)
			Expect(finiteVec(rb.Pos())).To(BeTrue())
			d := rb.Pos().Sub(start)
			return d.Sub(n.Mul(d.Dot(n))).Len()
		}

		It("holds when the friction coefficient exceeds the slope tangent", func() {
			Expect(math.Tan(mgl64.DegToRad(20))).To(BeNumerically("<", 1.0))
			Expect(slide(1)).To(BeNumerically("<", 0.05))
		})

		It("slides when the slope tangent exceeds the friction coefficient", func() {
			Expect(math.Tan(mgl64.DegToRad(20))).To(BeNumerically(">", 0.2))
			Expect(slide(0.2)).To(BeNumerically(">", 1))
		})

		It("slides further without friction", func() {
			Expect(slide(0)).To(BeNumerically(">", slide(1)+0.5))
		})
	})

	Context("a two link chain hanging from the world", func() {
		It("keeps its joints together", func() {
			s := newWorld(nil)
			var joints []*physics.Constraint
			var prev *physics.RigidBody
			for i := range 2 {
				rb, err := s.CreateRigidBody()
				Expect(err).NotTo(HaveOccurred())
				rb.SetPos(mgl64.Vec3{float64(i + 1), 0, 0})

				var b physics.BodyRef
				if prev != nil {
					b = physics.RigidRef(prev)
				}
				j, err := s.CreateJoint(physics.JointBallSocket, rb, b)
				Expect(err).NotTo(HaveOccurred())
				j.SetFrameWorld(physics.Transform{Pos: mgl64.Vec3{float64(i), 0, 0}, Rot: mgl64.Ident3()})
				j.Enable(s, true)
				joints = append(joints, j)
				prev = rb
			}

			run(s, 2)

			for _, j := range joints {
				a, b := j.WorldPoints(0)
				Expect(a.Sub(b).Len()).To(BeNumerically("<", 0.05))
			}
			Expect(prev.Pos().Y()).To(BeNumerically("<", 0))
		})
	})
})
