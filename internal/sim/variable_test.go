package sim_test

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/physics"
	"github.com/san-kum/rigidsim/internal/sim"
)

var _ = Describe("Runner", func() {
	var runner *sim.Runner

	BeforeEach(func() {
		world, err := physics.New(physics.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		rb, err := world.CreateRigidBody()
		Expect(err).NotTo(HaveOccurred())
		rb.SetPos(mgl64.Vec3{0, 100, 0})
		runner = sim.NewRunner(world)
	})

	It("covers the requested duration with variable steps", func() {
		cfg := dynamo.Config{
			Dt:            1.0 / 60,
			Duration:      1,
			Variable:      true,
			MinDt:         1.0 / 120,
			MaxDt:         1.0 / 60,
			SampleEvery:   10,
			ValidateState: true,
		}
		result, err := runner.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Errors).To(BeEmpty())
		Expect(runner.World().Elapsed()).To(BeNumerically("~", 1.0, 0.02))
		Expect(result.Final().IsValid()).To(BeTrue())
	})

	It("hands observers every sampled frame", func() {
		var seen []int
		runner.AddObserver(observerFunc(func(f *dynamo.Frame) {
			seen = append(seen, f.Step)
		}))
		cfg := dynamo.Config{Dt: 0.1, Duration: 0.5, Substeps: 2, SampleEvery: 1}
		_, err := runner.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal([]int{0, 1, 2, 3, 4, 5}))
	})
})

type observerFunc func(f *dynamo.Frame)

func (o observerFunc) OnStep(f *dynamo.Frame) { o(f) }
