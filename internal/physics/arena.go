package physics

// Handle identifies a pooled object. The generation detects use of a slot
// after it has been freed and reallocated. The zero Handle is never valid.
type Handle struct {
	Index int32
	Gen   uint32
}

func (h Handle) IsZero() bool { return h.Gen == 0 }

type slot[T any] struct {
	val  T
	gen  uint32
	live bool
}

// Arena is a fixed-capacity pool with a free-list of indices. Slots never
// move, so pointers returned by Alloc and Get stay valid until Free.
type Arena[T any] struct {
	slots []slot[T]
	free  []int32
	used  int
}

func NewArena[T any](capacity int) *Arena[T] {
	a := &Arena[T]{
		slots: make([]slot[T], capacity),
		free:  make([]int32, 0, capacity),
	}
	for i := capacity - 1; i >= 0; i-- {
		a.free = append(a.free, int32(i))
	}
	return a
}

// Alloc takes a zeroed slot. ok is false when the arena is full.
func (a *Arena[T]) Alloc() (h Handle, v *T, ok bool) {
	if len(a.free) == 0 {
		return Handle{}, nil, false
	}
	idx := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]

	s := &a.slots[idx]
	var zero T
	s.val = zero
	s.gen++
	s.live = true
	a.used++
	return Handle{Index: idx, Gen: s.gen}, &s.val, true
}

// Free releases the slot. It reports false for stale or unknown handles.
func (a *Arena[T]) Free(h Handle) bool {
	if !a.Valid(h) {
		return false
	}
	s := &a.slots[h.Index]
	s.live = false
	a.free = append(a.free, h.Index)
	a.used--
	return true
}

func (a *Arena[T]) Valid(h Handle) bool {
	if h.Gen == 0 || h.Index < 0 || int(h.Index) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.Index]
	return s.live && s.gen == h.Gen
}

func (a *Arena[T]) Get(h Handle) (*T, bool) {
	if !a.Valid(h) {
		return nil, false
	}
	return &a.slots[h.Index].val, true
}

// Each visits live slots in index order. fn may free the visited slot.
func (a *Arena[T]) Each(fn func(h Handle, v *T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		fn(Handle{Index: int32(i), Gen: s.gen}, &s.val)
	}
}

func (a *Arena[T]) Len() int { return a.used }

func (a *Arena[T]) Cap() int { return len(a.slots) }
