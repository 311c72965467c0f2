package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/metrics"
)

// Point is one evaluated parameter combination.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	log        logr.Logger
}

func NewGridSearch(params []string, ranges [][]float64, log logr.Logger) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, log: log}
}

// Search runs the scenario of base once per grid point and returns the
// parameters minimising the named metric, plus every point evaluated.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, reg *experiment.Registry, metricName string) (map[string]float64, float64, []Point, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, nil, fmt.Errorf("%d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}
	for _, name := range g.paramNames {
		if err := Apply(base.Clone(), name, 0); err != nil {
			return nil, 0, nil, err
		}
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	var points []Point

	eval := func(params map[string]float64) {
		p := Point{Params: params}
		p.Value, p.Err = g.evaluate(ctx, base, reg, metricName, params)
		points = append(points, p)
		if p.Err != nil {
			g.log.V(1).Info("grid point failed", "params", params, "err", p.Err)
			return
		}
		if p.Value < best {
			best = p.Value
			bestParams = params
		}
	}
	g.searchRecursive(0, make(map[string]float64), eval)

	if err := ctx.Err(); err != nil {
		return bestParams, best, points, err
	}
	if bestParams == nil {
		return nil, best, points, fmt.Errorf("no grid point completed")
	}
	return bestParams, best, points, nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Config, reg *experiment.Registry, metricName string, params map[string]float64) (float64, error) {
	cfg := base.Clone()
	for k, v := range params {
		if err := Apply(cfg, k, v); err != nil {
			return 0, err
		}
	}
	m, err := metrics.ByName(metricName, mgl64.Vec3(cfg.Gravity))
	if err != nil {
		return 0, err
	}

	exp := experiment.New(cfg, reg, g.log)
	if err := exp.Setup([]dynamo.Metric{m}); err != nil {
		return 0, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	return result.Metrics[metricName], nil
}

func (g *GridSearch) searchRecursive(depth int, current map[string]float64, eval func(map[string]float64)) {
	if depth == len(g.paramNames) {
		eval(current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.searchRecursive(depth+1, newParams, eval)
	}
}

var setters = map[string]func(c *config.Config, v float64){
	"friction":    func(c *config.Config, v float64) { c.Scene.Friction = v },
	"restitution": func(c *config.Config, v float64) { c.Scene.Restitution = v },
	"slope_angle": func(c *config.Config, v float64) { c.Scene.SlopeAngle = v },
	"height":      func(c *config.Config, v float64) { c.Scene.Height = v },
	"size":        func(c *config.Config, v float64) { c.Scene.Size = v },
	"angle":       func(c *config.Config, v float64) { c.Scene.Angle = v },
	"count":       func(c *config.Config, v float64) { c.Scene.Count = int(v) },
	"iterations":  func(c *config.Config, v float64) { c.Iterations = int(v) },
	"kp":          func(c *config.Config, v float64) { c.Controller.Kp = v },
	"ki":          func(c *config.Config, v float64) { c.Controller.Ki = v },
	"kd":          func(c *config.Config, v float64) { c.Controller.Kd = v },
	"target":      func(c *config.Config, v float64) { c.Controller.Target = v },
}

// Apply sets the named tunable on cfg.
func Apply(cfg *config.Config, name string, v float64) error {
	set, ok := setters[name]
	if !ok {
		return fmt.Errorf("unknown parameter %q (known: %v)", name, Parameters())
	}
	set(cfg, v)
	return nil
}

func Parameters() []string {
	names := make([]string, 0, len(setters))
	for n := range setters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
