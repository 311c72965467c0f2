package physics

import "fmt"

// StackInfo is a body's membership in a stack. A terminator is a body that
// others rest on but that rests on nothing tracked itself.
type StackInfo struct {
	handle       Handle
	body         *RigidBody
	header       *StackHeader
	isTerminator bool
	isBroken     bool
}

func (si *StackInfo) Body() *RigidBody     { return si.body }
func (si *StackInfo) Header() *StackHeader { return si.header }
func (si *StackInfo) IsTerminator() bool   { return si.isTerminator }
func (si *StackInfo) IsBroken() bool       { return si.isBroken }
func (si *StackInfo) InHeaderX() bool      { return si.header != nil && si.header.isHeaderX }

// StackHeader groups the bodies connected by resting contacts so they are
// solved and put to sleep together. The simulator owns one special header,
// header X, holding bodies that rest only on static geometry.
type StackHeader struct {
	handle        Handle
	infos         []*StackInfo
	isHeaderX     bool
	isAllIdle     bool
	dynamicSolved bool
}

func (h *StackHeader) Len() int { return len(h.infos) }

// Bodies returns the member bodies in insertion order.
func (h *StackHeader) Bodies() []*RigidBody {
	out := make([]*RigidBody, 0, len(h.infos))
	for _, si := range h.infos {
		out = append(out, si.body)
	}
	return out
}

func (h *StackHeader) add(si *StackInfo) {
	si.header = h
	h.infos = append(h.infos, si)
}

func (h *StackHeader) remove(si *StackInfo) {
	for i, x := range h.infos {
		if x == si {
			h.infos = append(h.infos[:i], h.infos[i+1:]...)
			break
		}
	}
	if si.header == h {
		si.header = nil
	}
}

// changeHeader moves every member of h into dst.
func (h *StackHeader) changeHeader(dst *StackHeader) {
	for _, si := range h.infos {
		dst.add(si)
	}
	h.infos = h.infos[:0]
}

// addToSolver queues the rest contacts of every member into the contact
// buffer and gathers the members for the stationary check.
func (h *StackHeader) addToSolver(s *Simulator) {
	for _, si := range h.infos {
		rb := si.body
		s.contactHeader.addBody(rb)
		rb.needSolveContactDynamic = false
		rb.addContactImpulseRecord(s, true)
	}
}

func (h *StackHeader) allIdle() bool {
	for _, si := range h.infos {
		if si.body.status != StatusIdle || si.body.isShifted {
			return false
		}
	}
	return true
}

func (s *Simulator) newStackHeader(si *StackInfo) *StackHeader {
	hnd, h, ok := s.stackHeaders.Alloc()
	if !ok {
		s.logInfo(LogOne, msgStackHeaderFull, "capacity", s.stackHeaders.Cap())
		return nil
	}
	*h = StackHeader{handle: hnd}
	if si != nil {
		h.add(si)
	}
	return h
}

func (s *Simulator) freeStackHeader(h *StackHeader) {
	if h == nil || h.isHeaderX {
		return
	}
	for _, si := range h.infos {
		if si.header == h {
			si.header = nil
		}
	}
	h.infos = nil
	s.stackHeaders.Free(h.handle)
}

func (s *Simulator) allocStackInfo(rb *RigidBody, terminator bool) *StackInfo {
	hnd, si, ok := s.stackInfos.Alloc()
	if !ok {
		s.logInfo(LogOne, msgStackInfoFull, "capacity", s.stackInfos.Cap())
		return nil
	}
	*si = StackInfo{handle: hnd, body: rb, isTerminator: terminator}
	return si
}

// freeStackInfo detaches the body's stack info from its header and returns
// it to the pool.
func (s *Simulator) freeStackInfo(rb *RigidBody) {
	si := rb.stackInfo
	if si == nil {
		return
	}
	if si.header != nil {
		si.header.remove(si)
	}
	rb.stackInfo = nil
	s.stackInfos.Free(si.handle)
}

// addStackInfo records a resting contact of rb on c.other and merges the
// stacks of the two bodies.
func (rb *RigidBody) addStackInfo(s *Simulator, c *restCandidate) bool {
	if rb.stackInfo == nil {
		return rb.newStackInfo(s, c)
	}
	mine := rb.stackInfo
	mine.isTerminator = false
	if mine.header == nil {
		s.headerX.add(mine)
	}
	rb.addRestContact(s, c)

	other := c.other.Rigid()
	if other == nil {
		return true
	}

	if other.stackInfo == nil {
		if mine.header.isHeaderX {
			mine.header.remove(mine)
			if s.newStackHeader(mine) == nil {
				s.headerX.add(mine)
				return false
			}
		}
		other.newStackInfoTerminator(s, mine.header)
		return true
	}

	theirs := other.stackInfo
	if theirs.header == nil {
		s.headerX.add(theirs)
	}
	switch {
	case theirs.header == mine.header:
	case theirs.header.isHeaderX:
		if mine.header.isHeaderX {
			s.headerX.remove(mine)
			s.headerX.remove(theirs)
			h := s.newStackHeader(mine)
			if h == nil {
				s.headerX.add(mine)
				s.headerX.add(theirs)
				return false
			}
			h.add(theirs)
		} else {
			s.headerX.remove(theirs)
			mine.header.add(theirs)
		}
	case mine.header.isHeaderX:
		s.headerX.remove(mine)
		theirs.header.add(mine)
	default:
		dst, old := mine.header, theirs.header
		if len(dst.infos) < len(old.infos) {
			dst, old = old, dst
		}
		old.changeHeader(dst)
		s.freeStackHeader(old)
		s.logInfo(LogFull, "stacks merged", "body", rb.id, "size", len(dst.infos))
	}
	return true
}

// newStackInfo gives rb its first stack membership.
func (rb *RigidBody) newStackInfo(s *Simulator, c *restCandidate) bool {
	si := s.allocStackInfo(rb, false)
	if si == nil {
		return false
	}
	rb.stackInfo = si
	rb.addRestContact(s, c)

	other := c.other.Rigid()
	if other == nil {
		s.headerX.add(si)
		return true
	}

	switch {
	case other.stackInfo == nil || other.stackInfo.header == nil:
		if other.stackInfo != nil {
			s.freeStackInfo(other)
		}
		h := s.newStackHeader(si)
		if h == nil {
			s.headerX.add(si)
			return false
		}
		other.newStackInfoTerminator(s, h)
	case other.stackInfo.header.isHeaderX:
		theirs := other.stackInfo
		s.headerX.remove(theirs)
		h := s.newStackHeader(si)
		if h == nil {
			s.headerX.add(si)
			s.headerX.add(theirs)
			return false
		}
		h.add(theirs)
	default:
		other.stackInfo.header.add(si)
	}

	if other.header == nil {
		other.WakeUp()
	}
	return true
}

func (rb *RigidBody) newStackInfoTerminator(s *Simulator, h *StackHeader) {
	si := s.allocStackInfo(rb, true)
	if si == nil {
		return
	}
	rb.stackInfo = si
	h.add(si)
}

// checkHeader reports the first member whose back reference does not point
// at h.
func (h *StackHeader) checkHeader() error {
	for _, si := range h.infos {
		if si.header != h {
			return fmt.Errorf("stack header: body %d has a stale header", si.body.id)
		}
		if si.body.stackInfo != si {
			return fmt.Errorf("stack header: body %d has a stale stack info", si.body.id)
		}
	}
	return nil
}

// checkStackDisconnected splits h into its connected components. Two members
// are connected when one has a live rest record on the other. A lone body
// still resting on static geometry moves to header X; a lone body resting on
// nothing loses its stack info. The first multi-body component keeps h; h is
// freed only when no component needs it.
func (s *Simulator) checkStackDisconnected(h *StackHeader) {
	members := append([]*StackInfo(nil), h.infos...)
	index := make(map[*RigidBody]int, len(members))
	for i, si := range members {
		index[si.body] = i
	}

	parent := make([]int, len(members))
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

	grounded := make([]bool, len(members))
	for i, si := range members {
		rb := si.body
		for k := range rb.rest {
			r := &rb.rest[k]
			if !r.IsValid() {
				continue
			}
			other := r.other.Rigid()
			if other == nil {
				grounded[i] = true
				continue
			}
			if j, ok := index[other]; ok {
				a, b := find(i), find(j)
				if a != b {
					parent[a] = b
				}
			}
		}
	}

	groups := make(map[int][]*StackInfo)
	order := make([]int, 0)
	for i, si := range members {
		root := find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], si)
		if grounded[i] {
			grounded[root] = true
		}
	}

	for _, si := range members {
		h.remove(si)
	}

	reuse := h
	for _, root := range order {
		g := groups[root]
		if len(g) == 1 {
			si := g[0]
			switch {
			case !si.isTerminator && grounded[root]:
				s.headerX.add(si)
			default:
				si.body.stackInfo = nil
				s.stackInfos.Free(si.handle)
			}
			continue
		}
		nh := reuse
		if nh != nil {
			reuse = nil
		} else {
			nh = s.newStackHeader(nil)
		}
		if nh == nil {
			for _, si := range g {
				if !si.isTerminator && si.body.validRestCount() > 0 {
					s.headerX.add(si)
					continue
				}
				si.body.stackInfo = nil
				s.stackInfos.Free(si.handle)
			}
			continue
		}
		nh.dynamicSolved = h.dynamicSolved
		for _, si := range g {
			nh.add(si)
		}
	}
	if reuse != nil {
		s.freeStackHeader(h)
	}
}
