package metrics

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/dynamo"
)

var constructors = map[string]func(g mgl64.Vec3) dynamo.Metric{
	"energy":       func(g mgl64.Vec3) dynamo.Metric { return NewEnergy(g) },
	"energy_drift": func(g mgl64.Vec3) dynamo.Metric { return NewEnergyDrift(g) },
	"stability":    func(mgl64.Vec3) dynamo.Metric { return NewStability(20) },
	"idle_ratio":   func(mgl64.Vec3) dynamo.Metric { return NewIdleRatio() },
	"max_speed":    func(mgl64.Vec3) dynamo.Metric { return NewMaxSpeed() },
	"joint_drift":  func(mgl64.Vec3) dynamo.Metric { return NewJointDrift() },
	"momentum":     func(mgl64.Vec3) dynamo.Metric { return NewMomentum() },
}

// ByName builds the named metric for a world with the given gravity.
func ByName(name string, gravity mgl64.Vec3) (dynamo.Metric, error) {
	c, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q", name)
	}
	return c(gravity), nil
}

func Names() []string {
	out := make([]string, 0, len(constructors))
	for n := range constructors {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
