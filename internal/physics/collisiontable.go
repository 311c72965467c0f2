package physics

// Response is a bitflag telling the simulator what to do with a detected
// penetration between two collision groups.
type Response uint8

const (
	ResponseIgnore   Response = 0
	ResponseImpulse  Response = 1 << 0
	ResponseCallback Response = 1 << 1

	ResponseImpulseAndCallback = ResponseImpulse | ResponseCallback
)

func (r Response) Has(f Response) bool { return r&f != 0 }

const (
	MaxCollisionGroups = 64
	// TerrainGroup is the reserved collision group of the terrain.
	TerrainGroup = -1
)

// CollisionTable is symmetric in its two group ids.
type CollisionTable struct {
	table   [MaxCollisionGroups][MaxCollisionGroups]Response
	terrain [MaxCollisionGroups]Response
}

func NewCollisionTable() *CollisionTable {
	t := &CollisionTable{}
	for i := range t.table {
		for j := range t.table[i] {
			t.table[i][j] = ResponseImpulse
		}
		t.terrain[i] = ResponseImpulse
	}
	return t
}

func validGroup(id int) bool {
	return id >= TerrainGroup && id < MaxCollisionGroups
}

// Set stores r for the pair (a, b). A terrain id on one side addresses the
// terrain row; terrain against terrain is not stored.
func (t *CollisionTable) Set(a, b int, r Response) bool {
	if !validGroup(a) || !validGroup(b) {
		return false
	}
	switch {
	case a == TerrainGroup && b == TerrainGroup:
		return true
	case a == TerrainGroup:
		t.terrain[b] = r
	case b == TerrainGroup:
		t.terrain[a] = r
	default:
		t.table[a][b] = r
		t.table[b][a] = r
	}
	return true
}

func (t *CollisionTable) Get(a, b int) Response {
	if !validGroup(a) || !validGroup(b) {
		return ResponseIgnore
	}
	switch {
	case a == TerrainGroup && b == TerrainGroup:
		return ResponseIgnore
	case a == TerrainGroup:
		return t.terrain[b]
	case b == TerrainGroup:
		return t.terrain[a]
	}
	return t.table[a][b]
}

func (s *Simulator) SetCollisionResponse(a, b int, r Response) bool {
	return s.colTable.Set(a, b, r)
}

func (s *Simulator) CollisionResponse(a, b int) Response {
	return s.colTable.Get(a, b)
}
