package collide

import (
	"slices"

	"github.com/san-kum/rigidsim/internal/physics"
)

// SweepAndPrune sorts bounds along one axis and only tests boxes whose
// intervals overlap on it. Buffers are reused between updates.
type SweepAndPrune struct {
	Axis int

	order []entry
	pairs []physics.Pair
}

type entry struct {
	ref  physics.BodyRef
	aabb physics.AABB
}

func NewSweepAndPrune() *SweepAndPrune {
	return &SweepAndPrune{}
}

func (sp *SweepAndPrune) Update(bodies []physics.BodyRef) []physics.Pair {
	axis := sp.Axis
	if axis < 0 || axis > 2 {
		axis = 0
	}

	sp.order = sp.order[:0]
	for _, b := range bodies {
		sp.order = append(sp.order, entry{ref: b, aabb: b.AABB()})
	}
	slices.SortFunc(sp.order, func(a, b entry) int {
		switch {
		case a.aabb.Min[axis] < b.aabb.Min[axis]:
			return -1
		case a.aabb.Min[axis] > b.aabb.Min[axis]:
			return 1
		}
		return 0
	})

	sp.pairs = sp.pairs[:0]
	for i := range sp.order {
		ei := &sp.order[i]
		for j := i + 1; j < len(sp.order); j++ {
			ej := &sp.order[j]
			if ej.aabb.Min[axis] > ei.aabb.Max[axis] {
				break
			}
			if ei.aabb.Overlaps(ej.aabb) {
				sp.pairs = append(sp.pairs, physics.Pair{A: ei.ref, B: ej.ref})
			}
		}
	}
	return sp.pairs
}
