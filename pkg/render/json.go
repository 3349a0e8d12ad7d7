package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/socomo/pkg/composition"
)

type jsonModule struct {
	Name         string      `json:"name"`
	DefaultLevel string      `json:"default_level"`
	Levels       []jsonLevel `json:"levels"`
}

type jsonLevel struct {
	*composition.Level
	Cycles [][]string `json:"cycles"`
}

// JSON renders the complete model as indented JSON. Every level carries its
// dependency cycles in addition to its components and dependencies.
func JSON(m *composition.Module) ([]byte, error) {
	out := jsonModule{
		Name:         m.Name,
		DefaultLevel: m.DefaultLevel().Name,
		Levels:       make([]jsonLevel, len(m.Levels)),
	}
	for i, l := range m.Levels {
		cycles := composition.Cycles(l)
		if cycles == nil {
			cycles = [][]string{}
		}
		out.Levels[i] = jsonLevel{Level: l, Cycles: cycles}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}
