package optim

import (
	"context"
	"testing"

	"github.com/go-logr/logr/testr"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/experiment"
)

func TestGridSearchPicksLowestDrop(t *testing.T) {
	base := config.DefaultConfig()
	base.Scenario = "drop"
	base.Duration = 1.0

	g := NewGridSearch([]string{"height"}, [][]float64{{3, 1}}, testr.New(t))
	best, value, points, err := g.Search(context.Background(), base, experiment.NewRegistry(), "max_speed")
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("evaluated %d points, want 2", len(points))
	}
	if best["height"] != 1 {
		t.Errorf("best height = %v, want 1", best["height"])
	}
	if value <= 0 {
		t.Errorf("best max_speed = %v", value)
	}
	if base.Scene.Height != config.DefaultConfig().Scene.Height {
		t.Error("search modified the base config")
	}
}

func TestGridSearchCartesianProduct(t *testing.T) {
	g := NewGridSearch([]string{"friction", "restitution"}, [][]float64{{0, 1}, {0, 0.5, 1}}, testr.New(t))
	var seen []map[string]float64
	g.searchRecursive(0, map[string]float64{}, func(p map[string]float64) { seen = append(seen, p) })
	if len(seen) != 6 {
		t.Fatalf("got %d combinations, want 6", len(seen))
	}
	if seen[0]["friction"] != 0 || seen[5]["friction"] != 1 || seen[5]["restitution"] != 1 {
		t.Errorf("unexpected ordering: %v", seen)
	}
}

func TestGridSearchErrors(t *testing.T) {
	base := config.DefaultConfig()
	reg := experiment.NewRegistry()
	ctx := context.Background()

	tests := []struct {
		name   string
		params []string
		ranges [][]float64
		metric string
	}{
		{"length mismatch", []string{"friction"}, nil, "max_speed"},
		{"unknown parameter", []string{"gravity"}, [][]float64{{1}}, "max_speed"},
		{"unknown metric", []string{"friction"}, [][]float64{{1}}, "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGridSearch(tt.params, tt.ranges, testr.New(t))
			if _, _, _, err := g.Search(ctx, base, reg, tt.metric); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApply(t *testing.T) {
	cfg := config.DefaultConfig()
	if err := Apply(cfg, "count", 5.9); err != nil {
		t.Fatal(err)
	}
	if cfg.Scene.Count != 5 {
		t.Errorf("count = %d", cfg.Scene.Count)
	}
	if err := Apply(cfg, "kp", 7); err != nil || cfg.Controller.Kp != 7 {
		t.Errorf("kp = %v, err %v", cfg.Controller.Kp, err)
	}
	if len(Parameters()) != len(setters) {
		t.Error("Parameters out of sync")
	}
}
