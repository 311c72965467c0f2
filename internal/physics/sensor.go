package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Sensor is a line segment fixed to a rigid body, from Pos to Pos+Dir in
// body space. Each step it reports the deepest surface it crosses.
type Sensor struct {
	handle Handle
	body   *RigidBody
	pos    mgl64.Vec3
	dir    mgl64.Vec3

	hit      bool
	depth    float64
	detected BodyRef
	normal   mgl64.Vec3
	point    mgl64.Vec3
	material int
}

func (sn *Sensor) Body() *RigidBody     { return sn.body }
func (sn *Sensor) Pos() mgl64.Vec3      { return sn.pos }
func (sn *Sensor) Dir() mgl64.Vec3      { return sn.dir }
func (sn *Sensor) SetPos(p mgl64.Vec3)  { sn.pos = p }
func (sn *Sensor) SetDir(d mgl64.Vec3)  { sn.dir = d }
func (sn *Sensor) Detected() bool       { return sn.hit }
func (sn *Sensor) DetectDepth() float64 { return sn.depth }

// DetectBody returns the body hit. The terrain reports the simulator's
// terrain body.
func (sn *Sensor) DetectBody() BodyRef            { return sn.detected }
func (sn *Sensor) DetectNormal() mgl64.Vec3       { return sn.normal }
func (sn *Sensor) DetectContactPoint() mgl64.Vec3 { return sn.point }
func (sn *Sensor) DetectMaterial() int            { return sn.material }

func (sn *Sensor) clear() {
	sn.hit = false
	sn.depth = 0
	sn.detected = BodyRef{}
	sn.normal = mgl64.Vec3{}
	sn.point = mgl64.Vec3{}
	sn.material = 0
}

// segment returns the world origin and span of the sensor.
func (sn *Sensor) segment() (origin, seg mgl64.Vec3) {
	t := sn.body.b2w
	return t.Apply(sn.pos), t.Rot.Mul3x1(sn.dir)
}

func (sn *Sensor) record(h RayHit) {
	if sn.hit && h.Depth <= sn.depth {
		return
	}
	sn.hit = true
	sn.depth = h.Depth
	sn.detected = h.Body
	sn.normal = h.Normal
	sn.point = h.Point
	sn.material = h.Material
}

// AddSensor attaches a sensor segment to rb.
func (s *Simulator) AddSensor(rb *RigidBody, pos, dir mgl64.Vec3) (*Sensor, error) {
	hnd, sn, ok := s.sensors.Alloc()
	if !ok {
		s.logInfo(LogOne, msgSensorFull, "capacity", s.sensors.Cap())
		return nil, fmt.Errorf("sensor: %w", dynamo.ErrPoolExhausted)
	}
	*sn = Sensor{handle: hnd, body: rb, pos: pos, dir: dir}
	rb.sensors = append(rb.sensors, sn)
	return sn, nil
}

func (s *Simulator) FreeSensor(sn *Sensor) error {
	if sn == nil || !s.sensors.Valid(sn.handle) {
		s.logInfo(LogOne, msgInvalidFree, "object", "sensor")
		return fmt.Errorf("sensor: %w", dynamo.ErrInvalidFree)
	}
	list := sn.body.sensors
	for i, x := range list {
		if x == sn {
			sn.body.sensors = append(list[:i], list[i+1:]...)
			break
		}
	}
	s.sensors.Free(sn.handle)
	return nil
}

func (s *Simulator) clearSensors() {
	s.sensors.Each(func(_ Handle, sn *Sensor) {
		sn.clear()
	})
}

// testSensors casts the sensors of a against b.
func (s *Simulator) testSensors(a, b BodyRef) {
	rb := a.Rigid()
	if rb == nil || len(rb.sensors) == 0 || s.narrow == nil {
		return
	}
	for _, sn := range rb.sensors {
		o, seg := sn.segment()
		if h, ok := s.narrow.Ray(o, seg, b); ok {
			h.Body = b
			sn.record(h)
		}
	}
}

func (s *Simulator) testTerrainSensors(rb *RigidBody) {
	if len(rb.sensors) == 0 || s.terrain == nil {
		return
	}
	for _, sn := range rb.sensors {
		o, seg := sn.segment()
		if h, ok := s.terrain.Ray(o, seg); ok {
			h.Body = StaticRef(&s.terrainBody)
			sn.record(h)
		}
	}
}
