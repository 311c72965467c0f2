package dynamo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestParallelFor(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		minChunk int
	}{
		{"empty", 0, 8},
		{"inline", 5, 8},
		{"chunked", 1000, 16},
		{"zero chunk", 37, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.n)
			ParallelFor(tt.n, tt.minChunk, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times", i, h)
				}
			}
		})
	}
}

func TestEnsembleOrder(t *testing.T) {
	e := NewEnsemble(2)
	for i := range 5 {
		e.Add(func(ctx context.Context) (*Result, error) {
			return &Result{StepsTaken: i}, nil
		})
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range res {
		if r.StepsTaken != i {
			t.Errorf("result %d has steps %d", i, r.StepsTaken)
		}
	}

	boom := errors.New("boom")
	e.Add(func(ctx context.Context) (*Result, error) { return nil, boom })
	if _, err := e.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected job error, got %v", err)
	}
}

func TestWrapAngle(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{-0.5, -0.5},
		{7, 7 - 2*3.141592653589793},
	}
	for _, tt := range tests {
		if got := WrapAngle(tt.in); got-tt.want > 1e-9 || tt.want-got > 1e-9 {
			t.Errorf("WrapAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
