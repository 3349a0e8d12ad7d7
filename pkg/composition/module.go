package composition

import (
	"github.com/matzehuels/socomo/pkg/errors"
)

// Module is the composition model of one codebase: its levels ordered from
// coarsest to finest and the index of the level shown by default.
type Module struct {
	Name    string   `json:"name"`
	Levels  []*Level `json:"levels"`
	Default int      `json:"default_level"`
}

// NewModule assembles a module. All levels must partition the same units
// and be ordered by non-decreasing component count.
func NewModule(name string, levels []*Level, def int) (*Module, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "module name cannot be empty")
	}
	if len(levels) == 0 {
		return nil, errors.New(errors.ErrCodeNoLevelsProduced, "module %s has no levels", name)
	}
	if def < 0 || def >= len(levels) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "default level %d out of range [0, %d)", def, len(levels))
	}

	for i, l := range levels {
		if l == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "level %d is nil", i)
		}
	}

	seen := make(map[string]bool, len(levels))
	first := levels[0]
	for i, l := range levels {
		if seen[l.Name] {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate level name %q", l.Name)
		}
		seen[l.Name] = true
		if l.Size() != first.Size() {
			return nil, errors.New(errors.ErrCodeBrokenPartition,
				"level %s has size %d, level %s has %d", l.Name, l.Size(), first.Name, first.Size())
		}
		if u, ok := sameUnits(first, l); !ok {
			return nil, errors.New(errors.ErrCodeBrokenPartition,
				"levels %s and %s do not partition the same units (%s)", first.Name, l.Name, u)
		}
		if i > 0 && l.NumComponents() < levels[i-1].NumComponents() {
			return nil, errors.New(errors.ErrCodeBrokenPartition,
				"level %s is coarser than the level before it", l.Name)
		}
	}
	return &Module{Name: name, Levels: levels, Default: def}, nil
}

// sameUnits reports whether a and b place the same set of units. When they
// do not, it returns a unit found in only one of them.
func sameUnits(a, b *Level) (string, bool) {
	for u := range a.owner {
		if _, ok := b.owner[u]; !ok {
			return u, false
		}
	}
	if len(a.owner) != len(b.owner) {
		for u := range b.owner {
			if _, ok := a.owner[u]; !ok {
				return u, false
			}
		}
	}
	return "", true
}

// DefaultLevel returns the level shown first.
func (m *Module) DefaultLevel() *Level { return m.Levels[m.Default] }

// Level returns the level with the given name and its position.
func (m *Module) Level(name string) (*Level, int, bool) {
	for i, l := range m.Levels {
		if l.Name == name {
			return l, i, true
		}
	}
	return nil, -1, false
}
