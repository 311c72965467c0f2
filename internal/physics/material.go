package physics

import (
	"fmt"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

const MaxMaterials = 256

type Material struct {
	Friction    float64 `yaml:"friction" json:"friction"`
	Restitution float64 `yaml:"restitution" json:"restitution"`
	Density     float64 `yaml:"density" json:"density"`
}

func DefaultMaterial() Material {
	return Material{Friction: 0.5, Restitution: 0.4, Density: 1}
}

// MaterialTable is indexed by the material id carried on geometry.
type MaterialTable [MaxMaterials]Material

func NewMaterialTable() *MaterialTable {
	var t MaterialTable
	for i := range t {
		t[i] = DefaultMaterial()
	}
	return &t
}

// Set stores m under id. Out-of-range ids are rejected without mutation.
func (t *MaterialTable) Set(id int, m Material) bool {
	if id < 0 || id >= MaxMaterials {
		return false
	}
	t[id] = m
	return true
}

func (t *MaterialTable) Get(id int) (Material, bool) {
	if id < 0 || id >= MaxMaterials {
		return Material{}, false
	}
	return t[id], true
}

// pair returns the friction and restitution used between two materials.
// The less grippy and less bouncy material dominates.
func (t *MaterialTable) pair(a, b int) (friction, restitution float64) {
	ma, _ := t.Get(a)
	mb, _ := t.Get(b)
	return min(ma.Friction, mb.Friction), min(ma.Restitution, mb.Restitution)
}

func (s *Simulator) SetMaterial(id int, m Material) bool {
	return s.materials.Set(id, m)
}

// SetMaterialErr is SetMaterial with a reason on failure.
func (s *Simulator) SetMaterialErr(id int, m Material) error {
	if !s.materials.Set(id, m) {
		return fmt.Errorf("material %d: %w", id, dynamo.ErrOutOfRange)
	}
	return nil
}

func (s *Simulator) GetMaterial(id int) (Material, bool) {
	return s.materials.Get(id)
}
