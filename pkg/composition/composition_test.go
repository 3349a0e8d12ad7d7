package composition

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/matzehuels/socomo/pkg/bytecode"
	"github.com/matzehuels/socomo/pkg/errors"
	"github.com/matzehuels/socomo/pkg/graph"
)

type edge struct {
	from, to string
	n        int
}

// newGraph builds a class graph where every unit weighs weight and each
// edge contributes n reference sites.
func newGraph(t *testing.T, weight int64, units []string, edges ...edge) *graph.ClassGraph {
	t.Helper()
	results := make(map[string]*bytecode.ScanResult, len(units))
	for _, u := range units {
		results[u] = &bytecode.ScanResult{Artifact: u, Unit: u, Size: weight}
	}
	for _, e := range edges {
		r := results[e.from]
		for range e.n {
			r.References = append(r.References, bytecode.Reference{Target: e.to, Kind: bytecode.KindMethod})
		}
	}
	b := graph.NewBuilder(graph.Options{})
	for _, u := range units {
		if err := b.Add(results[u]); err != nil {
			t.Fatalf("Add(%s): %v", u, err)
		}
	}
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func scenarioGraph(t *testing.T) *graph.ClassGraph {
	return newGraph(t, 1,
		[]string{"app.web.Controller", "app.web.Filter", "app.service.UserService", "app.service.OrderService"},
		edge{"app.web.Controller", "app.service.UserService", 1},
		edge{"app.web.Controller", "app.service.OrderService", 1},
		edge{"app.web.Filter", "app.service.UserService", 1},
		edge{"app.service.UserService", "app.service.OrderService", 2},
	)
}

func TestDepthRule(t *testing.T) {
	tests := []struct {
		unit  string
		depth int
		want  string
	}{
		{"app.web.Controller", 1, "app"},
		{"app.web.Controller", 2, "app.web"},
		{"app.web.Controller", 3, "app.web.Controller"},
		{"app.web.Controller", 7, "app.web.Controller"},
		{"Main", 1, "Main"},
		{"Main", 3, "Main"},
		{"app.Main", 0, ""},
	}
	for _, tt := range tests {
		if got := DepthRule(tt.depth)(tt.unit); got != tt.want {
			t.Errorf("DepthRule(%d)(%q) = %q, want %q", tt.depth, tt.unit, got, tt.want)
		}
	}
}

func TestCandidateDepths(t *testing.T) {
	g := newGraph(t, 1, []string{"Main", "app.web.Controller", "app.Util"})
	if got := CandidateDepths(g); !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("CandidateDepths() = %v, want [1 2 3]", got)
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		keys       []string
		level      string
		components []string
	}{
		{[]string{"app"}, "*", []string{"app"}},
		{[]string{"app.service", "app.web"}, "app.*", []string{"service", "web"}},
		{[]string{"app.service.UserService", "app.web.Filter"}, "app.*.*", []string{"service.UserService", "web.Filter"}},
		{[]string{"app.web.Controller"}, "app.web.*", []string{"Controller"}},
		{[]string{"Main", "app.web"}, "*.*", []string{"Main", "app.web"}},
		{[]string{"com.acme", "org.acme"}, "*.*", []string{"com.acme", "org.acme"}},
	}
	for _, tt := range tests {
		level, comps := names(tt.keys)
		if level != tt.level {
			t.Errorf("names(%v) level = %q, want %q", tt.keys, level, tt.level)
		}
		if !slices.Equal(comps, tt.components) {
			t.Errorf("names(%v) components = %v, want %v", tt.keys, comps, tt.components)
		}
	}
}

func TestScenarioLevel(t *testing.T) {
	g := scenarioGraph(t)
	l, err := BuildLevel(g, DepthRule(2))
	if err != nil {
		t.Fatalf("BuildLevel: %v", err)
	}
	if l.Name != "app.*" {
		t.Errorf("Name = %q, want app.*", l.Name)
	}

	web, ok := l.Component("web")
	if !ok || !slices.Equal(web.Units, []string{"app.web.Controller", "app.web.Filter"}) {
		t.Errorf("web = %+v", web)
	}
	service, ok := l.Component("service")
	if !ok || !slices.Equal(service.Units, []string{"app.service.OrderService", "app.service.UserService"}) {
		t.Errorf("service = %+v", service)
	}
	if web.Size != 2 || service.Size != 2 {
		t.Errorf("sizes = %d, %d, want 2, 2", web.Size, service.Size)
	}

	want := []Dependency{{From: "web", To: "service", Strength: 3}}
	if !slices.Equal(l.Dependencies, want) {
		t.Errorf("Dependencies = %v, want %v", l.Dependencies, want)
	}
	if s := l.Strength("service", "service"); s != 0 {
		t.Errorf("Strength(service, service) = %d, want 0", s)
	}
	if owner, _ := l.Owner("app.web.Filter"); owner != "web" {
		t.Errorf("Owner(Filter) = %q, want web", owner)
	}
}

func TestComposeScenario(t *testing.T) {
	m, err := Compose(context.Background(), "shop", scenarioGraph(t), Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	var got []string
	for _, l := range m.Levels {
		got = append(got, fmt.Sprintf("%s/%d/%d", l.Name, l.NumComponents(), l.NumDependencies()))
	}
	want := []string{"*/1/0", "app.*/2/1", "app.*.*/4/4"}
	if !slices.Equal(got, want) {
		t.Errorf("levels = %v, want %v", got, want)
	}
	if m.DefaultLevel().Name != "app.*" {
		t.Errorf("DefaultLevel() = %s, want app.*", m.DefaultLevel().Name)
	}

	fine := m.Levels[2]
	if s := fine.Strength("service.UserService", "service.OrderService"); s != 2 {
		t.Errorf("fine UserService -> OrderService = %d, want 2", s)
	}
}

func TestComposeSingleUnit(t *testing.T) {
	for _, unit := range []string{"Main", "app.Main"} {
		t.Run(unit, func(t *testing.T) {
			g := newGraph(t, 42, []string{unit})
			m, err := Compose(context.Background(), "one", g, Options{})
			if err != nil {
				t.Fatalf("Compose: %v", err)
			}
			if len(m.Levels) != 1 {
				t.Fatalf("levels = %d, want 1", len(m.Levels))
			}
			l := m.Levels[0]
			if l.NumComponents() != 1 || l.Components[0].Size != 42 {
				t.Errorf("components = %+v", l.Components)
			}
			if l.NumDependencies() != 0 {
				t.Errorf("dependencies = %v", l.Dependencies)
			}
			if m.Default != 0 {
				t.Errorf("Default = %d, want 0", m.Default)
			}
		})
	}
}

func TestComposeDropsRepeatedPartitions(t *testing.T) {
	g := newGraph(t, 1,
		[]string{"com.acme.shop.web.Controller", "com.acme.shop.db.Repo"},
		edge{"com.acme.shop.web.Controller", "com.acme.shop.db.Repo", 1},
	)
	m, err := Compose(context.Background(), "shop", g, Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	var got []string
	for _, l := range m.Levels {
		got = append(got, l.Name)
	}
	if !slices.Equal(got, []string{"*", "com.acme.shop.*"}) {
		t.Errorf("levels = %v", got)
	}
}

// randomGraph builds a graph with units at depths 2 to 4 and random edges.
func randomGraph(t *testing.T, seed int64) *graph.ClassGraph {
	rng := rand.New(rand.NewSource(seed))
	var units []string
	seen := map[string]bool{}
	for len(units) < 60 {
		var u string
		switch rng.Intn(3) {
		case 0:
			u = fmt.Sprintf("p%d.C%d", rng.Intn(3), rng.Intn(5))
		case 1:
			u = fmt.Sprintf("p%d.m%d.C%d", rng.Intn(3), rng.Intn(3), rng.Intn(5))
		default:
			u = fmt.Sprintf("p%d.m%d.s%d.C%d", rng.Intn(3), rng.Intn(3), rng.Intn(2), rng.Intn(5))
		}
		if !seen[u] {
			seen[u] = true
			units = append(units, u)
		}
	}

	results := make([]*bytecode.ScanResult, len(units))
	for i, u := range units {
		res := &bytecode.ScanResult{Artifact: u, Unit: u, Size: int64(1 + rng.Intn(500))}
		for range rng.Intn(12) {
			target := units[rng.Intn(len(units))]
			res.References = append(res.References, bytecode.Reference{Target: target, Kind: bytecode.KindClassRef})
		}
		results[i] = res
	}
	b := graph.NewBuilder(graph.Options{})
	for _, r := range results {
		if err := b.Add(r); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestComposeProperties(t *testing.T) {
	for seed := range int64(5) {
		g := randomGraph(t, seed)
		m, err := Compose(context.Background(), "random", g, Options{Workers: 2})
		if err != nil {
			t.Fatalf("seed %d: Compose: %v", seed, err)
		}
		if m.Default < 0 || m.Default >= len(m.Levels) {
			t.Fatalf("seed %d: Default = %d out of range", seed, m.Default)
		}

		for _, l := range m.Levels {
			// partition
			seen := map[string]bool{}
			for _, c := range l.Components {
				for _, u := range c.Units {
					if seen[u] {
						t.Errorf("seed %d, level %s: unit %s in two components", seed, l.Name, u)
					}
					seen[u] = true
				}
			}
			if len(seen) != g.NumUnits() {
				t.Errorf("seed %d, level %s: %d of %d units", seed, l.Name, len(seen), g.NumUnits())
			}

			// size conservation
			if l.Size() != g.TotalWeight() {
				t.Errorf("seed %d, level %s: size %d, want %d", seed, l.Name, l.Size(), g.TotalWeight())
			}

			// aggregation and no self loops
			want := map[[2]string]int{}
			units := g.Units()
			for _, e := range g.Edges() {
				from, _ := l.Owner(units[e.Source].Name)
				to, _ := l.Owner(units[e.Target].Name)
				if from != to {
					want[[2]string{from, to}] += e.Multiplicity
				}
			}
			if len(l.Dependencies) != len(want) {
				t.Errorf("seed %d, level %s: %d dependencies, want %d", seed, l.Name, len(l.Dependencies), len(want))
			}
			for _, d := range l.Dependencies {
				if d.From == d.To {
					t.Errorf("seed %d, level %s: self dependency %s", seed, l.Name, d.From)
				}
				if d.Strength != want[[2]string{d.From, d.To}] {
					t.Errorf("seed %d, level %s: %s -> %s = %d, want %d",
						seed, l.Name, d.From, d.To, d.Strength, want[[2]string{d.From, d.To}])
				}
			}
		}
	}
}

func TestComposeDeterministic(t *testing.T) {
	encode := func(workers int) []byte {
		m, err := Compose(context.Background(), "random", randomGraph(t, 7), Options{Workers: workers})
		if err != nil {
			t.Fatalf("Compose: %v", err)
		}
		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		return data
	}
	first := encode(1)
	for _, w := range []int{1, 4, 16} {
		if got := encode(w); !bytes.Equal(got, first) {
			t.Errorf("workers=%d: output differs", w)
		}
	}
}

func TestComposeErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Compose(ctx, "shop", scenarioGraph(t), Options{}); !stderrors.Is(err, context.Canceled) {
		t.Errorf("canceled: error = %v, want context.Canceled", err)
	}
	if _, err := Compose(context.Background(), "shop", nil, Options{}); !errors.Is(err, errors.ErrCodeEmptyCodebase) {
		t.Errorf("nil graph: error = %v, want EMPTY_CODEBASE", err)
	}
	if _, err := Compose(context.Background(), "", scenarioGraph(t), Options{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty name: error = %v, want INVALID_INPUT", err)
	}
	_, err := Compose(context.Background(), "shop", scenarioGraph(t), Options{Selector: Selector{Default: "nope"}})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown default: error = %v, want INVALID_INPUT", err)
	}
}

func TestGroupInvalidRule(t *testing.T) {
	g := scenarioGraph(t)
	calls := 0
	tests := []struct {
		name string
		rule GroupingRule
	}{
		{"nil", nil},
		{"empty", func(string) string { return "" }},
		{"blank", func(string) string { return "  " }},
		{"nondeterministic", func(u string) string {
			calls++
			return fmt.Sprintf("%s#%d", u, calls)
		}},
		{"depth zero", DepthRule(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Group(g, tt.rule)
			if !errors.Is(err, errors.ErrCodeInvalidGroupingRule) {
				t.Errorf("Group() error = %v, want INVALID_GROUPING_RULE", err)
			}
		})
	}
}

func TestGroupMergesUnits(t *testing.T) {
	g := newGraph(t, 5, []string{"a.X", "b.Y", "c.Z"})
	l, err := BuildLevel(g, func(u string) string {
		if u == "c.Z" {
			return "c"
		}
		return "ab"
	})
	if err != nil {
		t.Fatalf("BuildLevel: %v", err)
	}
	ab, ok := l.Component("ab")
	if !ok || ab.Size != 10 || len(ab.Units) != 2 {
		t.Errorf("ab = %+v", ab)
	}
}

func TestAggregate(t *testing.T) {
	g := scenarioGraph(t)
	gr, err := Group(g, DepthRule(2))
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	got := Aggregate(g, gr)
	want := []Dependency{{From: "app.web", To: "app.service", Strength: 3}}
	if !slices.Equal(got, want) {
		t.Errorf("Aggregate() = %v, want %v", got, want)
	}
	if !slices.Equal(gr.Keys(), []string{"app.service", "app.web"}) {
		t.Errorf("Keys() = %v", gr.Keys())
	}
}

func TestSamePartition(t *testing.T) {
	a := &Grouping{keys: []string{"x", "y"}, of: []int{0, 0, 1}}
	b := &Grouping{keys: []string{"p", "q"}, of: []int{1, 1, 0}}
	c := &Grouping{keys: []string{"p", "q"}, of: []int{0, 1, 1}}
	if !samePartition(a, b) {
		t.Error("a and b should be the same partition")
	}
	if samePartition(a, c) {
		t.Error("a and c should differ")
	}
}

func TestNewLevelBroken(t *testing.T) {
	g := newGraph(t, 1, []string{"a.X", "a.Y", "b.Z"})
	full := []Component{
		{Name: "a", Size: 2, Units: []string{"a.X", "a.Y"}},
		{Name: "b", Size: 1, Units: []string{"b.Z"}},
	}
	tests := []struct {
		name  string
		comps []Component
		deps  []Dependency
	}{
		{"missing unit", []Component{{Name: "a", Size: 2, Units: []string{"a.X", "a.Y"}}}, nil},
		{"overlap", []Component{
			{Name: "a", Size: 2, Units: []string{"a.X", "a.Y"}},
			{Name: "b", Size: 2, Units: []string{"a.Y", "b.Z"}},
		}, nil},
		{"unknown unit", append(slices.Clone(full), Component{Name: "c", Size: 1, Units: []string{"c.Q"}}), nil},
		{"wrong size", []Component{
			{Name: "a", Size: 3, Units: []string{"a.X", "a.Y"}},
			{Name: "b", Size: 1, Units: []string{"b.Z"}},
		}, nil},
		{"duplicate name", []Component{
			{Name: "a", Size: 2, Units: []string{"a.X", "a.Y"}},
			{Name: "a", Size: 1, Units: []string{"b.Z"}},
		}, nil},
		{"empty component", append(slices.Clone(full), Component{Name: "c"}), nil},
		{"self dependency", full, []Dependency{{From: "a", To: "a", Strength: 1}}},
		{"unknown target", full, []Dependency{{From: "a", To: "c", Strength: 1}}},
		{"zero strength", full, []Dependency{{From: "a", To: "b"}}},
		{"duplicate dependency", full, []Dependency{{From: "a", To: "b", Strength: 1}, {From: "a", To: "b", Strength: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLevel(g, "lvl", tt.comps, tt.deps)
			if !errors.Is(err, errors.ErrCodeBrokenPartition) {
				t.Errorf("NewLevel() error = %v, want BROKEN_PARTITION", err)
			}
		})
	}

	if _, err := NewLevel(g, "lvl", full, []Dependency{{From: "b", To: "a", Strength: 4}}); err != nil {
		t.Errorf("NewLevel(valid) error = %v", err)
	}
}

func TestNewModule(t *testing.T) {
	g := scenarioGraph(t)
	coarse, _ := BuildLevel(g, DepthRule(1))
	mid, _ := BuildLevel(g, DepthRule(2))
	other, _ := BuildLevel(newGraph(t, 1,
		[]string{"x.a.A", "x.a.B", "x.b.C", "x.b.D"}), DepthRule(2))
	renamed, _ := BuildLevel(newGraph(t, 2, []string{"a.X", "a.Y"}), DepthRule(1))
	moved, _ := BuildLevel(newGraph(t, 2, []string{"p.q.R", "p.z.S"}), DepthRule(2))

	tests := []struct {
		name   string
		levels []*Level
		def    int
		want   errors.Code
	}{
		{"no levels", nil, 0, errors.ErrCodeNoLevelsProduced},
		{"default out of range", []*Level{coarse, mid}, 2, errors.ErrCodeInvalidInput},
		{"fine before coarse", []*Level{mid, coarse}, 0, errors.ErrCodeBrokenPartition},
		{"different units", []*Level{coarse, other}, 0, errors.ErrCodeBrokenPartition},
		{"same size, different units", []*Level{renamed, moved}, 0, errors.ErrCodeBrokenPartition},
		{"duplicate name", []*Level{coarse, coarse}, 0, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModule("m", tt.levels, tt.def)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewModule() error = %v, want %s", err, tt.want)
			}
		})
	}

	m, err := NewModule("m", []*Level{coarse, mid}, 1)
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}
	if l, i, ok := m.Level("app.*"); !ok || i != 1 || l != mid {
		t.Errorf("Level(app.*) = %v, %d, %v", l, i, ok)
	}
}

func TestDensityScorer(t *testing.T) {
	m, err := Compose(context.Background(), "shop", scenarioGraph(t), Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	tests := []struct {
		scorer DensityScorer
		level  int
		want   float64
	}{
		{DensityScorer{}, 0, 0},
		{DensityScorer{}, 1, 1},
		{DensityScorer{}, 2, 0.5},
		{DensityScorer{TargetComponents: 4}, 2, 1},
		{DensityScorer{TargetComponents: 4}, 1, 0.5},
		{DensityScorer{MaxDensity: 0.5}, 2, 0.25},
	}
	for _, tt := range tests {
		got := tt.scorer.Score(m.Levels[tt.level], 4)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%+v.Score(%s) = %v, want %v", tt.scorer, m.Levels[tt.level].Name, got, tt.want)
		}
	}

	isolated := newGraph(t, 1, []string{"a.X", "b.Y"})
	l, _ := BuildLevel(isolated, DepthRule(1))
	if got := (DensityScorer{}).Score(l, 2); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("Score(no dependencies) = %v, want 0.1", got)
	}
}

func TestSelector(t *testing.T) {
	m, err := Compose(context.Background(), "shop", scenarioGraph(t), Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	constant := ScorerFunc(func(*Level, int) float64 { return 0.7 })
	finest := ScorerFunc(func(l *Level, _ int) float64 { return float64(l.NumComponents()) })
	nan := ScorerFunc(func(*Level, int) float64 { return math.NaN() })

	tests := []struct {
		name     string
		selector Selector
		want     int
	}{
		{"default", Selector{}, 1},
		{"tie prefers coarser", Selector{Scorer: constant}, 0},
		{"custom scorer", Selector{Scorer: finest}, 2},
		{"nan scores", Selector{Scorer: nan}, 0},
		{"override", Selector{Default: "app.*.*"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.selector.Select(m.Levels, 4)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if got != tt.want {
				t.Errorf("Select() = %d, want %d", got, tt.want)
			}
		})
	}

	if _, err := Select(nil, 0); !errors.Is(err, errors.ErrCodeNoLevelsProduced) {
		t.Errorf("Select(nil) error = %v, want NO_LEVELS_PRODUCED", err)
	}
}

func TestCycles(t *testing.T) {
	g := newGraph(t, 1,
		[]string{"a.X", "b.Y", "c.Z", "d.W", "e.V"},
		edge{"a.X", "b.Y", 1},
		edge{"b.Y", "a.X", 1},
		edge{"c.Z", "a.X", 1},
		edge{"d.W", "e.V", 1},
		edge{"e.V", "d.W", 2},
	)
	l, err := BuildLevel(g, DepthRule(1))
	if err != nil {
		t.Fatalf("BuildLevel: %v", err)
	}
	got := Cycles(l)
	want := [][]string{{"a", "b"}, {"d", "e"}}
	if len(got) != len(want) {
		t.Fatalf("Cycles() = %v, want %v", got, want)
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Errorf("Cycles()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	acyclic, _ := BuildLevel(scenarioGraph(t), DepthRule(2))
	if c := Cycles(acyclic); len(c) != 0 {
		t.Errorf("Cycles(acyclic) = %v", c)
	}
}
