package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/integrators"
)

// Config sizes the pools and sets the solver constants. Pools never grow;
// a create call on a full pool fails and is logged.
type Config struct {
	Gravity mgl64.Vec3

	RigidBodies     int
	Particles       int
	CollisionBodies int
	Constraints     int
	ConstraintSets  int
	Controllers     int
	Sensors         int
	SolverBuffer    int
	StackInfos      int
	StackHeaders    int

	Iterations         int
	HighEnergy         float64
	StackCheckInterval int
	LogLevel           LogLevel
	Integrator         string
}

func DefaultConfig() Config {
	return Config{
		Gravity:            mgl64.Vec3{0, -9.8, 0},
		RigidBodies:        100,
		Particles:          50,
		CollisionBodies:    50,
		Constraints:        100,
		ConstraintSets:     50,
		Controllers:        50,
		Sensors:            50,
		SolverBuffer:       1000,
		StackInfos:         200,
		StackHeaders:       100,
		Iterations:         defaultIterations,
		HighEnergy:         defaultHighEnergy,
		StackCheckInterval: 5,
		LogLevel:           LogOne,
		Integrator:         "midpoint",
	}
}

// Validate reports the first field outside its range.
func (c Config) Validate() error {
	pools := []struct {
		name string
		n    int
	}{
		{"rigid bodies", c.RigidBodies},
		{"particles", c.Particles},
		{"collision bodies", c.CollisionBodies},
		{"constraints", c.Constraints},
		{"constraint sets", c.ConstraintSets},
		{"controllers", c.Controllers},
		{"sensors", c.Sensors},
		{"solver buffer", c.SolverBuffer},
		{"stack infos", c.StackInfos},
		{"stack headers", c.StackHeaders},
	}
	for _, p := range pools {
		if p.n < 0 {
			return fmt.Errorf("%w: %s pool size %d", dynamo.ErrInvalidConfig, p.name, p.n)
		}
	}
	if c.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be at least 1, got %d", dynamo.ErrInvalidConfig, c.Iterations)
	}
	if c.HighEnergy <= 0 {
		return fmt.Errorf("%w: high energy must be positive", dynamo.ErrInvalidConfig)
	}
	if c.StackCheckInterval < 1 {
		return fmt.Errorf("%w: stack check interval must be at least 1", dynamo.ErrInvalidConfig)
	}
	if !vecFinite(c.Gravity) {
		return fmt.Errorf("%w: gravity is not finite", dynamo.ErrInvalidConfig)
	}
	if _, ok := integrators.ByName(c.Integrator); !ok && c.Integrator != "" {
		return fmt.Errorf("%w: unknown integrator %q", dynamo.ErrInvalidConfig, c.Integrator)
	}
	return nil
}

// Simulator owns every body, joint and stack, and advances them in fixed
// sub-steps. It is not safe for concurrent use.
type Simulator struct {
	log      logr.Logger
	logLevel LogLevel

	gravity    mgl64.Vec3
	gravityDir mgl64.Vec3
	gravityMag float64
	angular    integrators.AngularIntegrator

	materials *MaterialTable
	colTable  *CollisionTable

	highEnergy         float64
	iterations         int
	stackCheckInterval int
	solverBuffer       int

	rigidBodies       *Arena[RigidBody]
	particles         *Arena[RigidBody]
	collisionBodies   *Arena[CollisionBody]
	constraints       *Arena[Constraint]
	constraintHeaders *Arena[ConstraintHeader]
	controllers       *Arena[Controller]
	sensors           *Arena[Sensor]
	stackInfos        *Arena[StackInfo]
	stackHeaders      *Arena[StackHeader]

	headerX       StackHeader
	contactHeader ConstraintHeader
	terrainBody   CollisionBody

	broad       BroadPhase
	narrow      NarrowPhase
	terrain     Terrain
	customCD    CustomCollisionFunc
	onCollision CollisionCallback

	jointResults   []CollisionResult
	contactResults []CollisionResult
	pb1            []*ConstraintHeader
	pb2            []*StackHeader

	headerScratch []*ConstraintHeader
	stackScratch  []*StackHeader
	infoScratch   []*StackInfo
	refScratch    []BodyRef

	solverStage      int
	lastIteration    bool
	solverFullLogged bool

	dt            float64
	elapsed       float64
	stepSoFar     int
	currentRecord int
	idleBodyCount int
	nextID        int
	stepErrs      []error

	carry  float64
	lastDt float64
}

// New builds a simulator from cfg. The broad phase defaults to an
// all-pairs AABB test; without a narrow phase and terrain nothing collides.
func New(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ang, ok := integrators.ByName(cfg.Integrator)
	if !ok {
		ang = integrators.NewMidpoint()
	}

	s := &Simulator{
		log:                logr.Discard(),
		logLevel:           cfg.LogLevel,
		angular:            ang,
		materials:          NewMaterialTable(),
		colTable:           NewCollisionTable(),
		highEnergy:         cfg.HighEnergy,
		iterations:         cfg.Iterations,
		stackCheckInterval: cfg.StackCheckInterval,
		solverBuffer:       cfg.SolverBuffer,

		rigidBodies:       NewArena[RigidBody](cfg.RigidBodies),
		particles:         NewArena[RigidBody](cfg.Particles),
		collisionBodies:   NewArena[CollisionBody](cfg.CollisionBodies),
		constraints:       NewArena[Constraint](cfg.Constraints),
		constraintHeaders: NewArena[ConstraintHeader](cfg.ConstraintSets),
		controllers:       NewArena[Controller](cfg.Controllers),
		sensors:           NewArena[Sensor](cfg.Sensors),
		stackInfos:        NewArena[StackInfo](cfg.StackInfos),
		stackHeaders:      NewArena[StackHeader](cfg.StackHeaders),

		broad: &bruteForce{},
	}
	s.headerX.isHeaderX = true
	s.contactHeader.scratch = true
	s.terrainBody.init(Handle{}, -1)
	s.terrainBody.terrain = true
	s.terrainBody.moved = false
	s.terrainBody.group = TerrainGroup
	s.SetGravity(cfg.Gravity)
	return s, nil
}

func (s *Simulator) SetBroadPhase(b BroadPhase) {
	if b == nil {
		b = &bruteForce{}
	}
	s.broad = b
}

func (s *Simulator) SetNarrowPhase(n NarrowPhase)                      { s.narrow = n }
func (s *Simulator) SetTerrain(t Terrain)                              { s.terrain = t }
func (s *Simulator) SetCollisionCallback(fn CollisionCallback)         { s.onCollision = fn }
func (s *Simulator) SetCustomCollisionCallback(fn CustomCollisionFunc) { s.customCD = fn }

// SetAngularIntegrator swaps the angular momentum integrator.
func (s *Simulator) SetAngularIntegrator(a integrators.AngularIntegrator) {
	if a != nil {
		s.angular = a
	}
}

// SetGravity sets the gravity acceleration. Its direction decides which
// body of a contact rests on the other.
func (s *Simulator) SetGravity(g mgl64.Vec3) {
	s.gravity = g
	s.gravityMag = g.Len()
	s.gravityDir = normalizeOrZero(g)
	s.eachBody(func(rb *RigidBody) {
		if rb.status == StatusIdle {
			rb.WakeUp()
		}
	})
}

func (s *Simulator) Gravity() mgl64.Vec3 { return s.gravity }

// Elapsed is the simulated time so far.
func (s *Simulator) Elapsed() float64 { return s.elapsed }

// StepCount is the number of Advance calls completed.
func (s *Simulator) StepCount() int { return s.stepSoFar }

func (s *Simulator) Dt() float64 { return s.dt }

// IdleBodyCount is the number of bodies that stayed asleep in the last sub-step.
func (s *Simulator) IdleBodyCount() int { return s.idleBodyCount }

func (s *Simulator) Materials() *MaterialTable       { return s.materials }
func (s *Simulator) CollisionTable() *CollisionTable { return s.colTable }

// TerrainRef refers to the terrain in rest records and callbacks.
func (s *Simulator) TerrainRef() BodyRef { return StaticRef(&s.terrainBody) }

// HeaderX holds the bodies resting only on static geometry.
func (s *Simulator) HeaderX() *StackHeader { return &s.headerX }

func (s *Simulator) nextBodyID() int {
	id := s.nextID
	s.nextID++
	return id
}

// eachBody visits live rigid bodies, then live particles.
func (s *Simulator) eachBody(fn func(rb *RigidBody)) {
	visit := func(_ Handle, rb *RigidBody) { fn(rb) }
	s.rigidBodies.Each(visit)
	s.particles.Each(visit)
}

// RigidBodies returns the live rigid bodies and particles.
func (s *Simulator) RigidBodies() []*RigidBody {
	var out []*RigidBody
	s.eachBody(func(rb *RigidBody) { out = append(out, rb) })
	return out
}

func (s *Simulator) CollisionBodies() []*CollisionBody {
	var out []*CollisionBody
	s.collisionBodies.Each(func(_ Handle, cb *CollisionBody) { out = append(out, cb) })
	return out
}

func (s *Simulator) Joints() []*Constraint {
	var out []*Constraint
	s.constraints.Each(func(_ Handle, c *Constraint) { out = append(out, c) })
	return out
}

// StackHeaders returns the live multi-body stacks.
func (s *Simulator) StackHeaders() []*StackHeader {
	var out []*StackHeader
	s.stackHeaders.Each(func(_ Handle, h *StackHeader) { out = append(out, h) })
	return out
}

func (s *Simulator) ConstraintHeaders() []*ConstraintHeader {
	var out []*ConstraintHeader
	s.constraintHeaders.Each(func(_ Handle, h *ConstraintHeader) { out = append(out, h) })
	return out
}

// CreateRigidBody takes a rigid body from the pool.
func (s *Simulator) CreateRigidBody() (*RigidBody, error) {
	hnd, rb, ok := s.rigidBodies.Alloc()
	if !ok {
		s.logInfo(LogOne, msgRigidBodyFull, "capacity", s.rigidBodies.Cap())
		return nil, fmt.Errorf("rigid body: %w", dynamo.ErrPoolExhausted)
	}
	rb.init(hnd, s.nextBodyID(), false)
	return rb, nil
}

// CreateRigidParticle takes a particle from the pool. Particles integrate
// like rigid bodies but respond to contact as point masses.
func (s *Simulator) CreateRigidParticle() (*RigidBody, error) {
	hnd, rb, ok := s.particles.Alloc()
	if !ok {
		s.logInfo(LogOne, msgParticleFull, "capacity", s.particles.Cap())
		return nil, fmt.Errorf("rigid particle: %w", dynamo.ErrPoolExhausted)
	}
	rb.init(hnd, s.nextBodyID(), true)
	return rb, nil
}

func (s *Simulator) CreateCollisionBody() (*CollisionBody, error) {
	hnd, cb, ok := s.collisionBodies.Alloc()
	if !ok {
		s.logInfo(LogOne, msgCollisionBodyFull, "capacity", s.collisionBodies.Cap())
		return nil, fmt.Errorf("collision body: %w", dynamo.ErrPoolExhausted)
	}
	cb.init(hnd, s.nextBodyID())
	return cb, nil
}

// CreateJoint takes a detached joint from the pool. b may be a rigid body, a
// collision body or the zero BodyRef for the world.
func (s *Simulator) CreateJoint(t JointType, a *RigidBody, b BodyRef) (*Constraint, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: joint needs a rigid body A", dynamo.ErrInvalidConfig)
	}
	if rb := b.Rigid(); rb == a {
		return nil, fmt.Errorf("%w: joint bodies must differ", dynamo.ErrInvalidConfig)
	}
	hnd, c, ok := s.constraints.Alloc()
	if !ok {
		s.logInfo(LogOne, msgConstraintFull, "capacity", s.constraints.Cap())
		return nil, fmt.Errorf("joint: %w", dynamo.ErrPoolExhausted)
	}
	c.init(hnd, int(hnd.Index), t, a, b)
	return c, nil
}

func (s *Simulator) ownsRigid(rb *RigidBody) bool {
	if rb == nil {
		return false
	}
	pool := s.rigidBodies
	if rb.particle {
		pool = s.particles
	}
	got, ok := pool.Get(rb.handle)
	return ok && got == rb
}

// FreeRigidBody returns rb to its pool after dropping its joints,
// controllers, sensors, rest records and stack membership. Bodies that were
// resting on it are woken.
func (s *Simulator) FreeRigidBody(rb *RigidBody) error {
	if !s.ownsRigid(rb) {
		s.logInfo(LogOne, msgInvalidFree, "object", "rigid body")
		return fmt.Errorf("rigid body: %w", dynamo.ErrInvalidFree)
	}

	for len(rb.constraints) > 0 {
		_ = s.FreeJoint(rb.constraints[0])
	}
	for len(rb.controllers) > 0 {
		_ = s.FreeController(rb.controllers[0])
	}
	for len(rb.sensors) > 0 {
		_ = s.FreeSensor(rb.sensors[0])
	}

	s.detachSupport(&rb.bodyBase)

	var stack *StackHeader
	if rb.stackInfo != nil && rb.stackInfo.header != nil && !rb.stackInfo.header.isHeaderX {
		stack = rb.stackInfo.header
	}
	invalidateRestRecords(rb, nil)
	s.freeStackInfo(rb)
	if stack != nil {
		if len(stack.infos) == 0 {
			s.freeStackHeader(stack)
		} else {
			s.checkStackDisconnected(stack)
		}
	}

	rb.active = false
	pool := s.rigidBodies
	if rb.particle {
		pool = s.particles
	}
	pool.Free(rb.handle)
	return nil
}

// detachSupport invalidates every rest record that leans on b and wakes
// the bodies that owned them.
func (s *Simulator) detachSupport(b *bodyBase) {
	var woken []*RigidBody
	for _, r := range b.restingOnMe {
		if r.body != nil {
			woken = append(woken, r.body)
		}
	}
	invalidateRestRecords(nil, b)
	for _, rb := range woken {
		rb.wakeUpAllJoint()
		rb.WakeUp()
	}
}

func (s *Simulator) FreeCollisionBody(cb *CollisionBody) error {
	if cb == nil {
		s.logInfo(LogOne, msgInvalidFree, "object", "collision body")
		return fmt.Errorf("collision body: %w", dynamo.ErrInvalidFree)
	}
	got, ok := s.collisionBodies.Get(cb.handle)
	if !ok || got != cb {
		s.logInfo(LogOne, msgInvalidFree, "object", "collision body")
		return fmt.Errorf("collision body: %w", dynamo.ErrInvalidFree)
	}
	for len(cb.constraints) > 0 {
		_ = s.FreeJoint(cb.constraints[0])
	}
	s.detachSupport(&cb.bodyBase)
	cb.active = false
	s.collisionBodies.Free(cb.handle)
	return nil
}

// FreeJoint unlinks c from its bodies and header and returns it to the
// pool. The header is rebuilt so chains that fall apart are split.
func (s *Simulator) FreeJoint(c *Constraint) error {
	if c == nil {
		s.logInfo(LogOne, msgInvalidFree, "object", "joint")
		return fmt.Errorf("joint: %w", dynamo.ErrInvalidFree)
	}
	got, ok := s.constraints.Get(c.handle)
	if !ok || got != c {
		s.logInfo(LogOne, msgInvalidFree, "object", "joint")
		return fmt.Errorf("joint: %w", dynamo.ErrInvalidFree)
	}
	c.wakeBodies()
	for len(c.controllers) > 0 {
		_ = s.FreeController(c.controllers[0])
	}
	c.bodyA.removeConstraint(c)
	if b := c.bodyB.base(); b != nil {
		b.removeConstraint(c)
	}
	if h := c.header; h != nil {
		h.remove(c)
		s.reorganize(h)
	}
	s.constraints.Free(c.handle)
	return nil
}

// Advance runs steps equal sub-steps covering total seconds. Numerical
// instabilities are recovered from and returned joined; the simulation
// stays usable.
func (s *Simulator) Advance(total float64, steps int) error {
	if steps < 1 {
		steps = 1
	}
	if total <= 0 || !finite(total) {
		return fmt.Errorf("%w: advance time %v", dynamo.ErrInvalidConfig, total)
	}
	s.dt = total / float64(steps)
	s.currentRecord = s.stepSoFar % maxPastRecords
	s.stepErrs = s.stepErrs[:0]
	s.solverFullLogged = false

	for i := 0; i < steps; i++ {
		s.step()
		s.elapsed += s.dt
	}

	s.collisionBodies.Each(func(_ Handle, cb *CollisionBody) {
		cb.moved = false
	})
	s.stepSoFar++

	if len(s.stepErrs) == 0 {
		return nil
	}
	return errors.Join(s.stepErrs...)
}

const maxStepChange = 0.2

// AdvanceVariable covers sec seconds plus any time left over from earlier
// calls, with a sub-step between minStep and maxStep that changes by at most
// 20% from the previous call. Time that does not fill a sub-step is carried.
func (s *Simulator) AdvanceVariable(sec, minStep, maxStep float64) error {
	if sec < 0 || minStep <= 0 || maxStep < minStep {
		return fmt.Errorf("%w: variable step %v in [%v, %v]", dynamo.ErrInvalidConfig, sec, minStep, maxStep)
	}
	t := sec + s.carry

	target := t / math.Ceil(t/maxStep)
	if t < minStep {
		target = minStep
	}
	dt := clamp(target, minStep, maxStep)
	if s.lastDt > 0 {
		dt = clamp(dt, s.lastDt*(1-maxStepChange), s.lastDt*(1+maxStepChange))
		dt = clamp(dt, minStep, maxStep)
	}

	n := int(t / dt)
	if n < 1 {
		s.carry = t
		return nil
	}
	err := s.Advance(dt*float64(n), n)
	s.carry = t - dt*float64(n)
	s.lastDt = dt
	return err
}

// step runs one sub-step. The stage order matters: each stage consumes what
// the previous one produced.
func (s *Simulator) step() {
	s.clearSensors()
	s.updateAABB()
	s.checkCollision()
	s.checkTerrainCollision()
	s.resetTotalForce()
	s.applyJointDamping()
	s.advanceDynamics()
	s.resetStackHeaderFlag()
	s.solveAllConstrain()
	s.resolvePenetration()
	s.solveContactConstrain()
	s.advancePositions()
	s.updateConstraintControllers()
}

func (s *Simulator) resetTotalForce() {
	s.eachBody(func(rb *RigidBody) {
		rb.totalForce = mgl64.Vec3{}
		rb.totalTorque = mgl64.Vec3{}
	})
}

func (s *Simulator) applyJointDamping() {
	s.constraints.Each(func(_ Handle, c *Constraint) {
		if !c.enabled || c.damping == 0 {
			return
		}
		c.updateCurrentPosition()
		c.applyDamping()
	})
}

func (s *Simulator) advanceDynamics() {
	s.idleBodyCount = 0
	s.eachBody(func(rb *RigidBody) {
		rb.advanceDynamic(s, s.dt)
	})
}

func (s *Simulator) advancePositions() {
	s.eachBody(func(rb *RigidBody) {
		rb.needSolveContactDynamic = true
		switch rb.status {
		case StatusIdle:
			return
		case StatusAnimated:
			rb.updateController(s)
			return
		}
		if rb.header == nil {
			rb.checkForIdle(s)
		}
		if rb.status != StatusIdle {
			rb.advancePosition(s, s.dt)
		}
	})
}
