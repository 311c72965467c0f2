package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scenario   string             `json:"scenario"`
	Preset     string             `json:"preset,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Substeps   int                `json:"substeps"`
	Integrator string             `json:"integrator"`
	Controller string             `json:"controller"`
	Steps      int                `json:"steps"`
	Bodies     int                `json:"bodies"`
	Errors     []string           `json:"errors,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

var frameHeader = []string{
	"step", "time", "body",
	"x", "y", "z",
	"qw", "qx", "qy", "qz",
	"vx", "vy", "vz",
	"wx", "wy", "wz",
	"mass", "idle",
}

// Save writes metadata.json and frames.csv under a new run directory. The
// ID, timestamp and summary fields of meta are filled in.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result) (string, error) {
	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now()
	meta.Steps = result.StepsTaken
	meta.Metrics = result.Metrics
	meta.Bodies = len(result.Final().Bodies)
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "frames.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteFrames(csvFile, result.Frames); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// WriteFrames writes one CSV row per body per frame.
func WriteFrames(out io.Writer, frames []dynamo.Frame) error {
	w := csv.NewWriter(out)
	if err := w.Write(frameHeader); err != nil {
		return err
	}

	f64 := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, f := range frames {
		for _, b := range f.Bodies {
			idle := "0"
			if b.Idle {
				idle = "1"
			}
			row := []string{
				strconv.Itoa(f.Step), f64(f.Time), strconv.Itoa(b.ID),
				f64(b.Pos[0]), f64(b.Pos[1]), f64(b.Pos[2]),
				f64(b.Rot.W), f64(b.Rot.V[0]), f64(b.Rot.V[1]), f64(b.Rot.V[2]),
				f64(b.Vel[0]), f64(b.Vel[1]), f64(b.Vel[2]),
				f64(b.AngVel[0]), f64(b.AngVel[1]), f64(b.AngVel[2]),
				f64(b.Mass), idle,
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadFrames reads frames.csv back into frames. Joint samples are not
// persisted.
func (s *Store) LoadFrames(runID string) ([]dynamo.Frame, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "frames.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadFrames(file)
}

func ReadFrames(in io.Reader) ([]dynamo.Frame, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(frameHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []dynamo.Frame{}, nil
	}

	frames := make([]dynamo.Frame, 0)
	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("frames.csv line %d column %s: %w", i+2, frameHeader[j], err)
			}
			vals[j] = v
		}

		step := int(vals[0])
		if len(frames) == 0 || frames[len(frames)-1].Step != step {
			frames = append(frames, dynamo.Frame{Step: step, Time: vals[1]})
		}
		f := &frames[len(frames)-1]
		f.Bodies = append(f.Bodies, dynamo.BodySample{
			ID:     int(vals[2]),
			Pos:    mgl64.Vec3{vals[3], vals[4], vals[5]},
			Rot:    mgl64.Quat{W: vals[6], V: mgl64.Vec3{vals[7], vals[8], vals[9]}},
			Vel:    mgl64.Vec3{vals[10], vals[11], vals[12]},
			AngVel: mgl64.Vec3{vals[13], vals[14], vals[15]},
			Mass:   vals[16],
			Idle:   vals[17] != 0,
		})
	}
	return frames, nil
}
