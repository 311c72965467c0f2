package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/physics"
)

func TestDominantFrequency(t *testing.T) {
	dt := 0.01
	tests := []struct {
		name string
		f    func(t float64) float64
		want float64
	}{
		{"2 Hz sine", func(t float64) float64 { return math.Sin(2 * math.Pi * 2 * t) }, 2},
		{"offset 5 Hz cosine", func(t float64) float64 { return 3 + math.Cos(2*math.Pi*5*t) }, 5},
		{"constant", func(float64) float64 { return 4 }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := make([]float64, 200)
			for i := range series {
				series[i] = tt.f(float64(i) * dt)
			}
			if got := DominantFrequency(series, dt); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DominantFrequency = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpectrumShape(t *testing.T) {
	freqs, mags := Spectrum(make([]float64, 64), 0.5)
	if len(freqs) != 33 || len(mags) != 33 {
		t.Fatalf("got %d bins, want 33", len(freqs))
	}
	if freqs[32] != 1 {
		t.Errorf("last bin at %v Hz, want the Nyquist frequency 1", freqs[32])
	}

	if f, m := Spectrum([]float64{1}, 0.1); f != nil || m != nil {
		t.Error("expected nil spectrum for a single sample")
	}
}

func TestSettleTime(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4, 5}

	got, ok := SettleTime(times, []float64{5, 3, 1.05, 1.0, 0.98, 1.0}, 0.1)
	if !ok || got != 2 {
		t.Errorf("SettleTime = %v, %v; want 2, true", got, ok)
	}

	if _, ok := SettleTime(times, []float64{0, 1, 2, 3, 4, 5}, 0.1); ok {
		t.Error("a ramp should not settle")
	}
}

func bodyFrames(samples ...dynamo.BodySample) []dynamo.Frame {
	frames := make([]dynamo.Frame, len(samples))
	for i, s := range samples {
		s.ID = 7
		frames[i] = dynamo.Frame{Step: i, Bodies: []dynamo.BodySample{s}}
	}
	return frames
}

func TestPhasePortrait(t *testing.T) {
	frames := bodyFrames(
		dynamo.BodySample{Pos: mgl64.Vec3{0, 2, 0}, Vel: mgl64.Vec3{0, 0, 0}},
		dynamo.BodySample{Pos: mgl64.Vec3{0, 1, 0}, Vel: mgl64.Vec3{0, -4, 0}},
	)

	p := PhasePortrait(frames, 7, Height, VerticalSpeed)
	if len(p.Points) != 2 || p.Points[1].X != 1 || p.Points[1].Y != -4 {
		t.Errorf("unexpected portrait: %+v", p.Points)
	}
	if len(PhasePortrait(frames, 99, Height, VerticalSpeed).Points) != 0 {
		t.Error("portrait of a missing body should be empty")
	}

	art := PhasePortraitToASCII(p, 20, 10)
	if strings.Count(art, "\n") != 10 || !strings.Contains(art, "•") {
		t.Errorf("unexpected ascii portrait:\n%s", art)
	}
}

func TestPoincareSection(t *testing.T) {
	frames := bodyFrames(
		dynamo.BodySample{Pos: mgl64.Vec3{-1, 0, 0}, Vel: mgl64.Vec3{0, 0, 0}},
		dynamo.BodySample{Pos: mgl64.Vec3{1, 0, 0}, Vel: mgl64.Vec3{2, 0, 0}},
		dynamo.BodySample{Pos: mgl64.Vec3{-1, 0, 0}, Vel: mgl64.Vec3{0, 0, 0}},
	)

	s := GeneratePoincareSection(frames, 7, X, 0, X, HorizontalSpeed)
	if len(s.Points) != 1 {
		t.Fatalf("got %d crossings, want 1", len(s.Points))
	}
	if s.Points[0].X != 0 || s.Points[0].Y != 1 {
		t.Errorf("crossing at %+v, want interpolated (0, 1)", s.Points[0])
	}

	if got := PoincareSectionToASCII(nil, 10, 5); got != "No crossings detected" {
		t.Errorf("unexpected empty section output %q", got)
	}
}

func TestLyapunovFreeFallIsNeutral(t *testing.T) {
	build := func(offset mgl64.Vec3) (*physics.Simulator, *physics.RigidBody, error) {
		w, err := physics.New(physics.DefaultConfig())
		if err != nil {
			return nil, nil, err
		}
		rb, err := w.CreateRigidBody()
		if err != nil {
			return nil, nil, err
		}
		rb.SetPos(mgl64.Vec3{0, 10, 0}.Add(offset))
		return w, rb, nil
	}

	lambda, err := LyapunovExponent(build, 0.01, 100, 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(lambda) > 1e-6 {
		t.Errorf("free fall exponent = %v, want 0", lambda)
	}

	if _, err := LyapunovExponent(build, 0.01, 100, 0); err == nil {
		t.Error("expected error for zero perturbation")
	}
}

func TestOrientationPicks(t *testing.T) {
	tests := []struct {
		name    string
		rot     mgl64.Quat
		tilt    float64
		heading float64
	}{
		{"identity", mgl64.QuatIdent(), 0, 0},
		{"rolled", mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}), 90, 0},
		{"turned", mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0}), 0, 90},
		{"turned back", mgl64.QuatRotate(-math.Pi/4, mgl64.Vec3{0, 1, 0}), 0, -45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := dynamo.BodySample{Rot: tt.rot}
			if got := Tilt(b); math.Abs(got-tt.tilt) > 1e-4 {
				t.Errorf("Tilt() = %v, want %v", got, tt.tilt)
			}
			if got := Heading(b); math.Abs(got-tt.heading) > 1e-4 {
				t.Errorf("Heading() = %v, want %v", got, tt.heading)
			}
		})
	}
}
