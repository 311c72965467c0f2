package metrics

import "github.com/san-kum/rigidsim/internal/dynamo"

// JointDrift is the largest anchor separation of any enabled joint.
type JointDrift struct {
	max float64
}

func NewJointDrift() *JointDrift { return &JointDrift{} }

func (j *JointDrift) Name() string { return "joint_drift" }

func (j *JointDrift) Observe(f *dynamo.Frame) {
	for _, s := range f.Joints {
		j.max = max(j.max, s.Separation)
	}
}

func (j *JointDrift) Value() float64 { return j.max }
func (j *JointDrift) Reset()         { j.max = 0 }
