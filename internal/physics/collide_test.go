package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
)

func TestRestPoints(t *testing.T) {
	up := mgl64.Vec3{0, 1, 0}
	corner := func(x, z, depth float64) ContactPoint {
		return ContactPoint{AWorld: mgl64.Vec3{x, 0, z}, BWorld: mgl64.Vec3{x, depth, z}, Depth: depth}
	}

	tests := []struct {
		name  string
		patch []ContactPoint
		want  []float64
	}{
		{"single point", nil, []float64{0.05}},
		{"face keeps three deepest", []ContactPoint{
			corner(-0.5, -0.5, 0.01), corner(0.5, -0.5, 0.04),
			corner(0.5, 0.5, 0.02), corner(-0.5, 0.5, 0.03),
		}, []float64{0.04, 0.03, 0.02}},
		{"duplicate corners collapse", []ContactPoint{
			corner(0, 0, 0.02), corner(0.01, 0, 0.03), corner(1, 0, 0.01),
		}, []float64{0.03, 0.01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := NewContact(up, mgl64.Vec3{}, up.Mul(0.05), 0.05, 0, 0)
			ct.Patch = tt.patch
			var got []float64
			for _, p := range restPoints(ct) {
				got = append(got, p.Depth)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("depths mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
