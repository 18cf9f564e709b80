package daemon

import (
	"fmt"
	"strings"
)

// dependencyOrder sorts components so each comes after everything it depends
// on. Components without a mutual constraint keep their registration order.
func dependencyOrder(components []Component) ([]Component, error) {
	byName := make(map[string]Component, len(components))
	for _, comp := range components {
		if _, dup := byName[comp.Name()]; dup {
			return nil, fmt.Errorf("component %s registered twice", comp.Name())
		}
		byName[comp.Name()] = comp
	}

	pending := make(map[string]int, len(components))
	dependents := make(map[string][]string, len(components))
	for _, comp := range components {
		for _, dep := range comp.Dependencies() {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("component %s depends on %s which is not registered", comp.Name(), dep)
			}
			pending[comp.Name()]++
			dependents[dep] = append(dependents[dep], comp.Name())
		}
	}

	order := make([]Component, 0, len(components))
	placed := make(map[string]bool, len(components))
	for len(order) < len(components) {
		progressed := false
		for _, comp := range components {
			name := comp.Name()
			if placed[name] || pending[name] > 0 {
				continue
			}
			placed[name] = true
			order = append(order, comp)
			for _, next := range dependents[name] {
				pending[next]--
			}
			progressed = true
		}
		if !progressed {
			var stuck []string
			for _, comp := range components {
				if !placed[comp.Name()] {
					stuck = append(stuck, comp.Name())
				}
			}
			return nil, fmt.Errorf("circular dependency detected involving %s", strings.Join(stuck, ", "))
		}
	}
	return order, nil
}
