package composition

import (
	"cmp"
	"slices"
)

// Cycles returns the groups of components of l that depend on each other
// in a cycle: the strongly connected components with more than one member.
// Each group is sorted by name and the groups are sorted by their first
// member.
func Cycles(l *Level) [][]string {
	n := len(l.Components)
	adj := make([][]int, n)
	for _, d := range l.Dependencies {
		from, to := l.index[d.From], l.index[d.To]
		adj[from] = append(adj[from], to)
	}

	const unvisited = -1
	var (
		index   = make([]int, n)
		low     = make([]int, n)
		onStack = make([]bool, n)
		stack   []int
		next    int
		out     [][]string
	)
	for i := range index {
		index[i] = unvisited
	}

	var visit func(v int)
	visit = func(v int) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			switch {
			case index[w] == unvisited:
				visit(w)
				low[v] = min(low[v], low[w])
			case onStack[w]:
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}
		var scc []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, l.Components[w].Name)
			if w == v {
				break
			}
		}
		if len(scc) > 1 {
			slices.Sort(scc)
			out = append(out, scc)
		}
	}

	for v := range n {
		if index[v] == unvisited {
			visit(v)
		}
	}
	slices.SortFunc(out, func(a, b []string) int { return cmp.Compare(a[0], b[0]) })
	return out
}
