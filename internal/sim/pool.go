package sim

import (
	"sync"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// FramePool recycles frame buffers between samples.
type FramePool struct {
	pool sync.Pool
}

func NewFramePool() *FramePool {
	return &FramePool{
		pool: sync.Pool{
			New: func() interface{} {
				return &dynamo.Frame{
					Bodies: make([]dynamo.BodySample, 0, 16),
					Joints: make([]dynamo.JointSample, 0, 8),
				}
			},
		},
	}
}

func (p *FramePool) Get() *dynamo.Frame {
	return p.pool.Get().(*dynamo.Frame)
}

func (p *FramePool) Put(f *dynamo.Frame) {
	f.Step = 0
	f.Time = 0
	f.Bodies = f.Bodies[:0]
	f.Joints = f.Joints[:0]
	p.pool.Put(f)
}
