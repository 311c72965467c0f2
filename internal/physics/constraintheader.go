package physics

// ConstraintHeader groups the joints of one joint chain and the rigid bodies
// they touch. It is the unit that is solved, and put to sleep, together.
type ConstraintHeader struct {
	handle      Handle
	constraints []*Constraint
	bodies      []*RigidBody

	solved    bool
	needSetup bool

	// scratch is set on the simulator's contact header, which gathers the
	// bodies of stacks being solved without owning them.
	scratch bool
}

func (h *ConstraintHeader) Constraints() []*Constraint { return h.constraints }
func (h *ConstraintHeader) Bodies() []*RigidBody       { return h.bodies }
func (h *ConstraintHeader) Len() int                   { return len(h.constraints) }

func (h *ConstraintHeader) add(c *Constraint) {
	for _, x := range h.constraints {
		if x == c {
			return
		}
	}
	h.constraints = append(h.constraints, c)
	c.header = h
}

func (h *ConstraintHeader) remove(c *Constraint) {
	for i, x := range h.constraints {
		if x == c {
			h.constraints = append(h.constraints[:i], h.constraints[i+1:]...)
			break
		}
	}
	if c.header == h {
		c.header = nil
	}
	h.needSetup = true
}

func (h *ConstraintHeader) addBody(rb *RigidBody) {
	if h.scratch {
		h.bodies = append(h.bodies, rb)
		return
	}
	for _, x := range h.bodies {
		if x == rb {
			return
		}
	}
	h.bodies = append(h.bodies, rb)
	rb.header = h
}

func (h *ConstraintHeader) clearBodies() {
	h.bodies = h.bodies[:0]
}

// removeAll detaches every body from the header.
func (h *ConstraintHeader) removeAll() {
	for _, rb := range h.bodies {
		if rb.header == h {
			rb.header = nil
		}
	}
	h.bodies = h.bodies[:0]
}

// addToSolver refreshes every enabled joint and emits its rows. iteration is
// raised to the largest per-joint override.
func (h *ConstraintHeader) addToSolver(s *Simulator, iteration *int) {
	for _, c := range h.constraints {
		if !c.enabled {
			continue
		}
		c.updateCurrentPosition()
		c.updateConstraintPoint()
		c.findGreatest(s)
		if c.iteration > *iteration {
			*iteration = c.iteration
		}
	}
	h.solved = true
}

// stationaryCheck reports whether every body passed checkStationary. All
// bodies are checked so each keeps its snapshot current.
func (h *ConstraintHeader) stationaryCheck(s *Simulator) bool {
	all := true
	for _, rb := range h.bodies {
		if !rb.checkStationary(s) {
			all = false
		}
	}
	return all
}

// BecomeIdle puts the chain to sleep. With checkResting set, only bodies
// whose rest points still hold go idle.
func (h *ConstraintHeader) BecomeIdle(checkResting bool) {
	for _, rb := range h.bodies {
		if checkResting && !rb.isRestPointStillValid() {
			continue
		}
		rb.BecomeIdle()
	}
}

// WakeUp returns every body of the chain to Normal.
func (h *ConstraintHeader) WakeUp() {
	for _, rb := range h.bodies {
		if rb.status == StatusAnimated {
			continue
		}
		rb.status = StatusNormal
	}
}

// traverseApplyConstraint brings the derived rates of every body in sync
// with the momentum left by the solver sweep.
func (h *ConstraintHeader) traverseApplyConstraint() {
	for _, rb := range h.bodies {
		rb.setAngMom(rb.angularMom)
	}
}

func (h *ConstraintHeader) hasActiveBody() bool {
	for _, rb := range h.bodies {
		if rb.status != StatusIdle {
			return true
		}
	}
	return false
}

func (s *Simulator) newConstraintHeader() *ConstraintHeader {
	hnd, h, ok := s.constraintHeaders.Alloc()
	if !ok {
		s.logInfo(LogOne, msgConstraintHeaderFull, "capacity", s.constraintHeaders.Cap())
		return nil
	}
	*h = ConstraintHeader{handle: hnd}
	return h
}

func (s *Simulator) freeConstraintHeader(h *ConstraintHeader) {
	h.removeAll()
	for _, c := range h.constraints {
		if c.header == h {
			c.header = nil
		}
	}
	h.constraints = nil
	s.constraintHeaders.Free(h.handle)
}

// mergeConstraintHeaders moves the smaller header into the larger and
// returns the survivor.
func (s *Simulator) mergeConstraintHeaders(a, b *ConstraintHeader) *ConstraintHeader {
	if a == b {
		return a
	}
	if len(a.constraints)+len(a.bodies) < len(b.constraints)+len(b.bodies) {
		a, b = b, a
	}
	for _, c := range b.constraints {
		a.add(c)
	}
	for _, rb := range b.bodies {
		a.addBody(rb)
	}
	b.constraints = nil
	b.bodies = b.bodies[:0]
	s.constraintHeaders.Free(b.handle)
	a.needSetup = true
	s.logInfo(LogFull, "joint chains merged", "joints", len(a.constraints), "bodies", len(a.bodies))
	return a
}

// reorganize rebuilds h after a joint left it: joints that no longer share a
// body move to headers of their own, and bodies with no joint left are
// released.
func (s *Simulator) reorganize(h *ConstraintHeader) {
	h.needSetup = false
	if len(h.constraints) == 0 {
		s.freeConstraintHeader(h)
		return
	}

	joints := append([]*Constraint(nil), h.constraints...)
	parent := make([]int, len(joints))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	owner := make(map[*RigidBody]int)
	link := func(rb *RigidBody, i int) {
		if rb == nil {
			return
		}
		if j, ok := owner[rb]; ok {
			if a, b := find(i), find(j); a != b {
				parent[a] = b
			}
			return
		}
		owner[rb] = i
	}
	for i, c := range joints {
		link(c.bodyA, i)
		link(c.bodyB.Rigid(), i)
	}

	h.removeAll()
	h.constraints = h.constraints[:0]

	headers := map[int]*ConstraintHeader{}
	for i, c := range joints {
		root := find(i)
		dst, ok := headers[root]
		if !ok {
			if len(headers) == 0 {
				dst = h
			} else if dst = s.newConstraintHeader(); dst == nil {
				dst = h
			}
			headers[root] = dst
		}
		dst.add(c)
		dst.addBody(c.bodyA)
		if rb := c.bodyB.Rigid(); rb != nil {
			dst.addBody(rb)
		}
	}
	if len(headers) > 1 {
		s.logInfo(LogFull, "joint chain split", "parts", len(headers))
	}
}
