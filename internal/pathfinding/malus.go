package pathfinding

// MalusTable holds per-agent cost overrides. The zero value uses the default
// malus of every classification.
type MalusTable struct {
	overrides [pathTypeCount]float32
	set       [pathTypeCount]bool
}

func NewMalusTable() *MalusTable {
	return &MalusTable{}
}

// Get returns the effective malus for t. A nil table yields defaults.
func (m *MalusTable) Get(t PathType) float32 {
	if !t.Valid() {
		return -1
	}
	if m != nil && m.set[t] {
		return m.overrides[t]
	}
	return t.DefaultMalus()
}

// Set overrides the malus for t. Unknown classifications are ignored.
func (m *MalusTable) Set(t PathType, malus float32) {
	if !t.Valid() {
		return
	}
	m.overrides[t] = malus
	m.set[t] = true
}

// Overridden reports whether t carries an explicit value.
func (m *MalusTable) Overridden(t PathType) bool {
	return m != nil && t.Valid() && m.set[t]
}

// Unset drops the override for t.
func (m *MalusTable) Unset(t PathType) {
	if !t.Valid() {
		return
	}
	m.overrides[t] = 0
	m.set[t] = false
}

// Reset drops every override.
func (m *MalusTable) Reset() {
	*m = MalusTable{}
}

func (m *MalusTable) Clone() *MalusTable {
	if m == nil {
		return NewMalusTable()
	}
	dup := *m
	return &dup
}

// malusOverride captures a table entry so it can be put back exactly.
type malusOverride struct {
	t     PathType
	value float32
	set   bool
}

func (m *MalusTable) save(t PathType) malusOverride {
	return malusOverride{t: t, value: m.overrides[t], set: m.set[t]}
}

func (m *MalusTable) restore(o malusOverride) {
	m.overrides[o.t] = o.value
	m.set[o.t] = o.set
}
