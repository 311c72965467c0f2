package physics

const defaultIterations = 4

// addJointResult queues a joint row for the current chain.
func (s *Simulator) addJointResult(cr CollisionResult) {
	if len(s.jointResults)+len(s.contactResults) >= s.solverBuffer {
		s.logSolverFull()
		return
	}
	s.jointResults = append(s.jointResults, cr)
}

// addContactResult queues a rest contact row for the current chain.
func (s *Simulator) addContactResult(cr CollisionResult) {
	if len(s.jointResults)+len(s.contactResults) >= s.solverBuffer {
		s.logSolverFull()
		return
	}
	s.contactResults = append(s.contactResults, cr)
}

func (s *Simulator) logSolverFull() {
	if s.solverFullLogged {
		return
	}
	s.solverFullLogged = true
	s.logInfo(LogOne, msgSolverBufferFull, "capacity", s.solverBuffer, "step", s.stepSoFar)
}

// resetSolver empties the row buffers and the chain being gathered.
func (s *Simulator) resetSolver() {
	s.jointResults = s.jointResults[:0]
	s.contactResults = s.contactResults[:0]
	s.pb1 = s.pb1[:0]
	s.pb2 = s.pb2[:0]
	s.contactHeader.clearBodies()
}

// solveAllConstrain solves each joint chain that has an awake body, together
// with the stacks its bodies rest in.
func (s *Simulator) solveAllConstrain() {
	if s.constraintHeaders.Len() == 0 {
		return
	}

	dirty := s.headerScratch[:0]
	s.constraintHeaders.Each(func(_ Handle, h *ConstraintHeader) {
		h.solved = false
		if h.needSetup {
			dirty = append(dirty, h)
		}
	})
	for _, h := range dirty {
		s.reorganize(h)
	}

	todo := s.headerScratch[:0]
	s.constraintHeaders.Each(func(_ Handle, h *ConstraintHeader) {
		todo = append(todo, h)
	})
	s.headerScratch = todo

	for _, h := range todo {
		if h.solved {
			continue
		}
		s.resetSolver()
		s.pb1 = append(s.pb1, h)
		if !h.hasActiveBody() {
			continue
		}
		iteration := -1
		h.addToSolver(s, &iteration)
		s.addContactConstraint(&iteration)
		s.solveOneConstrainChain(iteration)
		s.checkIfStationary()
	}
	s.resetSolver()
}

// addContactConstraint pulls the stacks queued by the chain into the solve.
// Joint chains reached through those stacks join as well.
func (s *Simulator) addContactConstraint(iteration *int) {
	for i := 0; i < len(s.pb2); i++ {
		sh := s.pb2[i]
		sh.addToSolver(s)
		for _, si := range sh.infos {
			h := si.body.header
			if h == nil || h.solved {
				continue
			}
			h.addToSolver(s, iteration)
			s.pb1 = append(s.pb1, h)
		}
	}
}

// solveOneConstrainChain sweeps the queued rows: stage 0 removes approaching
// velocity, stage 1 adds the position bias. Joint rows run in order, contact
// rows in reverse.
func (s *Simulator) solveOneConstrainChain(iteration int) {
	s.solverStage = 0
	if len(s.jointResults) == 0 && len(s.contactResults) == 0 {
		return
	}
	it := iteration
	if it < 0 {
		it = s.iterations
	}
	if it < 1 {
		it = 1
	}

	s.lastIteration = false
	for pp := 0; pp < 2; pp++ {
		s.solverStage = pp
		for i := 0; i < it; i++ {
			if pp == 1 && i == it-1 {
				s.lastIteration = true
			}
			for k := range s.jointResults {
				s.solveLocal(&s.jointResults[k])
			}
			for k := len(s.contactResults) - 1; k >= 0; k-- {
				s.solveLocal(&s.contactResults[k])
			}
			for _, h := range s.pb1 {
				h.traverseApplyConstraint()
			}
			s.contactHeader.traverseApplyConstraint()

			if pp == 1 && i == it-2 {
				for k := range s.contactResults {
					s.contactResults[k].prepareForSolver(s, false, true)
				}
			}
		}
	}
	s.lastIteration = false
	s.jointResults = s.jointResults[:0]
	s.contactResults = s.contactResults[:0]
}

// checkIfStationary puts the solved chain to sleep when every body in it is
// stationary, and wakes it otherwise.
func (s *Simulator) checkIfStationary() {
	all := true
	for _, h := range s.pb1 {
		if !h.stationaryCheck(s) {
			all = false
		}
	}
	if !s.contactHeader.stationaryCheck(s) {
		all = false
	}
	for _, h := range s.pb1 {
		if all {
			h.BecomeIdle(false)
		} else {
			h.WakeUp()
		}
	}
	if all {
		s.contactHeader.BecomeIdle(false)
	} else {
		s.contactHeader.WakeUp()
	}
}

func (s *Simulator) resetStackHeaderFlag() {
	s.stackHeaders.Each(func(_ Handle, h *StackHeader) {
		h.dynamicSolved = false
	})
}

// resolvePenetration re-validates the rest contacts of every stacked body,
// wakes bodies that lost their support and splits a share of the active
// stacks each step.
func (s *Simulator) resolvePenetration() {
	active := s.stackScratch[:0]
	s.stackHeaders.Each(func(_ Handle, h *StackHeader) {
		h.isAllIdle = h.allIdle()
		if !h.isAllIdle {
			active = append(active, h)
		}
	})
	s.stackScratch = active

	s.eachBody(func(rb *RigidBody) {
		si := rb.stackInfo
		if si == nil || si.isTerminator {
			return
		}
		v := rb.checkContactValidity(s)
		rb.isShifted = false
		if v == 0 && si.InHeaderX() {
			s.freeStackInfo(rb)
		}
		if v <= 1 && rb.status == StatusIdle && rb.header == nil {
			rb.WakeUp()
		}
	})

	interval := s.stackCheckInterval
	if interval < 1 {
		interval = 1
	}
	frame := s.stepSoFar % interval
	for i, h := range active {
		if i%interval != frame || h.isAllIdle {
			continue
		}
		s.checkStackDisconnected(h)
	}

	s.stackHeaders.Each(func(_ Handle, h *StackHeader) {
		if len(h.infos) == 0 {
			s.freeStackHeader(h)
		}
	})
}

// solveContactConstrain resolves bodies resting on static geometry one at a
// time, collapses stacks that shrank to one body, and solves the remaining
// multi-body stacks not already handled by a joint chain.
func (s *Simulator) solveContactConstrain() {
	s.contactResults = s.contactResults[:0]
	s.solverStage = 1

	members := append(s.infoScratch[:0], s.headerX.infos...)
	s.infoScratch = members
	for _, si := range members {
		rb := si.body
		if rb.status == StatusIdle || !rb.needSolveContactDynamic {
			continue
		}
		rb.needSolveContactDynamic = false
		rb.addContactImpulseRecord(s, false)
		for k := range s.contactResults {
			s.handleCollision(&s.contactResults[k], ImpulseContact, 1)
		}
		s.contactResults = s.contactResults[:0]

		if rb.checkStationary(s) && rb.isRestPointStillValid() && rb.checkRestHull() != 0 {
			rb.BecomeIdle()
		}
	}

	s.stackHeaders.Each(func(_ Handle, h *StackHeader) {
		switch len(h.infos) {
		case 0:
			s.freeStackHeader(h)
		case 1:
			si := h.infos[0]
			if si.isTerminator {
				s.freeStackHeader(h)
				si.body.stackInfo = nil
				s.stackInfos.Free(si.handle)
				return
			}
			h.remove(si)
			s.freeStackHeader(h)
			s.headerX.add(si)
		}
	})

	stacks := s.stackScratch[:0]
	s.stackHeaders.Each(func(_ Handle, h *StackHeader) {
		if !h.isAllIdle && !h.dynamicSolved {
			stacks = append(stacks, h)
		}
	})
	s.stackScratch = stacks

	for _, h := range stacks {
		s.resetSolver()
		h.dynamicSolved = true
		h.addToSolver(s)
		s.solveOneConstrainChain(2)
		if s.contactHeader.stationaryCheck(s) {
			s.contactHeader.BecomeIdle(true)
		}
	}
	s.resetSolver()
}
