package terrain

import (
	"fmt"
	"sort"
)

// Order topologically sorts modules by their dependency lists, breaking
// ties between independent modules by descending priority (then name, so
// the order is total). A cycle or a dependency on a missing module is a
// configuration error.
func Order(mods []Module) ([]Module, error) {
	byName := make(map[string]Module, len(mods))
	for _, m := range mods {
		if _, dup := byName[m.Name()]; dup {
			return nil, fmt.Errorf("terrain: duplicate module %q", m.Name())
		}
		byName[m.Name()] = m
	}
	for _, m := range mods {
		for _, dep := range m.Dependencies() {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("terrain: module %q depends on missing module %q", m.Name(), dep)
			}
		}
	}

	// Kahn's algorithm with a priority-ordered ready set.
	indeg := make(map[string]int, len(mods))
	dependents := make(map[string][]string, len(mods))
	for _, m := range mods {
		indeg[m.Name()] = len(m.Dependencies())
		for _, dep := range m.Dependencies() {
			dependents[dep] = append(dependents[dep], m.Name())
		}
	}

	var ready []string
	for name, d := range indeg {
		if d == 0 {
			ready = append(ready, name)
		}
	}

	takeNext := func() string {
		sort.Slice(ready, func(i, j int) bool {
			a, b := byName[ready[i]], byName[ready[j]]
			if a.Priority() != b.Priority() {
				return a.Priority() > b.Priority()
			}
			return a.Name() < b.Name()
		})
		next := ready[0]
		ready = ready[1:]
		return next
	}

	out := make([]Module, 0, len(mods))
	for len(ready) > 0 {
		name := takeNext()
		out = append(out, byName[name])
		for _, dep := range dependents[name] {
			indeg[dep]--
			if indeg[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	if len(out) != len(mods) {
		var stuck []string
		for name, d := range indeg {
			if d > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("terrain: dependency cycle among modules %v", stuck)
	}
	return out, nil
}
