package auxiliary

import (
	"github.com/pcbroute/pcbroute/geom"
	"github.com/pcbroute/pcbroute/matrix"
	"github.com/pcbroute/pcbroute/mesh"
	"github.com/pcbroute/pcbroute/tsp"
)

// UnravelSection implements UnravelSectionSolver: given a contested
// section's current node visiting order, tries to find a cheaper
// ordering by running 3-opt local search over the section's pairwise
// center-distance matrix, per spec.md §4.7 ("local search that
// re-orders contested sections when the multi-section optimizer
// stalls"). Returns the (possibly unchanged) best order found and its
// total length.
func UnravelSection(m *mesh.Mesh, section []mesh.NodeID) ([]mesh.NodeID, float64) {
	n := len(section)
	if n < 4 {
		return section, sectionLength(m, section)
	}

	dist, err := matrix.NewDense(n, n)
	if err != nil {
		return section, sectionLength(m, section)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := geom.Dist(m.Nodes[section[i]].Rect.Center, m.Nodes[section[j]].Rect.Center)
			if err := dist.Set(i, j, d); err != nil {
				return section, sectionLength(m, section)
			}
		}
	}

	tour := make([]int, n+1)
	for i := 0; i <= n; i++ {
		tour[i] = i % n
	}

	opts := tsp.DefaultOptions()
	opts.EnableLocalSearch = true

	improved, _, err := tsp.ThreeOpt(dist, tour, opts)
	if err != nil {
		return section, sectionLength(m, section)
	}

	out := make([]mesh.NodeID, n)
	for i, idx := range improved[:n] {
		out[i] = section[idx]
	}

	current := sectionLength(m, section)
	candidate := sectionLength(m, out)
	if candidate >= current {
		return section, current
	}

	return out, candidate
}

// sectionLength sums the straight-line distance between consecutive
// node centers in section, the same figure of merit UnravelSection
// optimizes.
func sectionLength(m *mesh.Mesh, section []mesh.NodeID) float64 {
	total := 0.0
	for i := 1; i < len(section); i++ {
		total += geom.Dist(m.Nodes[section[i-1]].Rect.Center, m.Nodes[section[i]].Rect.Center)
	}

	return total
}
