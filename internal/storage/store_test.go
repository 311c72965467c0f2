package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

func sampleResult() *dynamo.Result {
	return &dynamo.Result{
		Frames: []dynamo.Frame{
			{Step: 0, Time: 0, Bodies: []dynamo.BodySample{
				{ID: 1, Pos: mgl64.Vec3{0, 3, 0}, Rot: mgl64.QuatIdent(), Mass: 1},
				{ID: 2, Pos: mgl64.Vec3{1, 0.5, 0}, Rot: mgl64.QuatIdent(), Mass: 2, Idle: true},
			}},
			{Step: 1, Time: 1.0 / 60, Bodies: []dynamo.BodySample{
				{ID: 1, Pos: mgl64.Vec3{0, 2.99, 0}, Rot: mgl64.QuatIdent(), Vel: mgl64.Vec3{0, -0.1633, 0}, AngVel: mgl64.Vec3{0.1, 0, -0.2}, Mass: 1},
				{ID: 2, Pos: mgl64.Vec3{1, 0.5, 0}, Rot: mgl64.QuatIdent(), Mass: 2, Idle: true},
			}},
		},
		Metrics:    map[string]float64{"energy": 1.5},
		StepsTaken: 1,
		Errors:     []error{errors.New("step 1: boom")},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{Scenario: "drop", Dt: 1.0 / 60, Integrator: "midpoint"}, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := uuid.Parse(runID); err != nil {
		t.Errorf("run id %q is not a uuid", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Scenario != "drop" || meta.Steps != 1 || meta.Bodies != 2 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.Metrics["energy"] != 1.5 {
		t.Errorf("expected energy 1.5, got %f", meta.Metrics["energy"])
	}
	if len(meta.Errors) != 1 {
		t.Errorf("expected 1 recorded error, got %v", meta.Errors)
	}

	frames, err := st.LoadFrames(runID)
	if err != nil {
		t.Fatalf("load frames failed: %v", err)
	}
	if diff := cmp.Diff(sampleResult().Frames, frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	for _, sc := range []string{"drop", "stack"} {
		if _, err := st.Save(RunMetadata{Scenario: sc}, sampleResult()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Scenario != "drop" || runs[1].Scenario != "stack" {
		t.Errorf("runs not in save order: %s, %s", runs[0].Scenario, runs[1].Scenario)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(RunMetadata{Scenario: "drop"}, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "frames.csv"} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestLoadRejectsBadID(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("../etc"); err == nil {
		t.Error("expected error for a non-uuid run id")
	}
}

func TestReadFramesBadField(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrames(&buf, sampleResult().Frames[:1]); err != nil {
		t.Fatal(err)
	}
	bad := bytes.Replace(buf.Bytes(), []byte("\n0,0,1,0,3,"), []byte("\n0,0,1,0,x,"), 1)
	if _, err := ReadFrames(bytes.NewReader(bad)); err == nil {
		t.Error("expected parse error")
	}
}

func TestExportJSON(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	meta := RunMetadata{ID: "x", Scenario: "drop", Metrics: res.Metrics}
	if err := ExportJSON(&buf, meta, res.Frames); err != nil {
		t.Fatal(err)
	}

	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Meta.Scenario != "drop" || len(got.Frames) != 2 || got.Metrics["energy"] != 1.5 {
		t.Errorf("unexpected export: %+v", got.Meta)
	}
}
