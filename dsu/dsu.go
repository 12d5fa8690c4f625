// Package dsu implements a disjoint-set (union-find) data structure with
// path compression and union by rank, keyed by string IDs.
//
// This is the same find/union shape the teacher's prim_kruskal.Kruskal
// builds inline as closures over parent/rank maps, lifted into a reusable
// type because the PCB router's connectivity map (spec.md §3) needs the
// same structure outside of any single MST computation: it equates net
// names, point IDs, obstacle IDs, and coordinate hashes across the whole
// board, and it needs to be queried (Find, Connected) long after it was
// built, not just consumed once inside one algorithm's hot loop.
package dsu

// DSU is a disjoint-set over string-keyed elements. The zero value is not
// usable; construct with New.
type DSU struct {
	parent map[string]string
	rank   map[string]int
}

// New returns an empty DSU. Elements are added implicitly by MakeSet or by
// the first Union/Find call that mentions them.
func New() *DSU {
	return &DSU{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

// MakeSet ensures id is present as its own singleton set. It is a no-op if
// id is already known.
func (d *DSU) MakeSet(id string) {
	if _, ok := d.parent[id]; !ok {
		d.parent[id] = id
		d.rank[id] = 0
	}
}

// Find returns the representative (root) of id's set, path-compressing
// along the way. Unknown ids are implicitly created as singletons, which
// keeps the connectivity map's "equate A with B" calls order-independent.
func (d *DSU) Find(id string) string {
	d.MakeSet(id)
	for d.parent[id] != id {
		d.parent[id] = d.parent[d.parent[id]]
		id = d.parent[id]
	}

	return id
}

// Union merges the sets containing a and b, attaching the lower-rank root
// under the higher-rank root (breaking ties by attaching b's root under
// a's root, for determinism). Returns true if a and b were in different
// sets (a merge happened), false if they were already connected.
func (d *DSU) Union(a, b string) bool {
	rootA := d.Find(a)
	rootB := d.Find(b)
	if rootA == rootB {
		return false
	}
	switch {
	case d.rank[rootA] < d.rank[rootB]:
		d.parent[rootA] = rootB
	case d.rank[rootA] > d.rank[rootB]:
		d.parent[rootB] = rootA
	default:
		d.parent[rootB] = rootA
		d.rank[rootA]++
	}

	return true
}

// Connected reports whether a and b are in the same set.
func (d *DSU) Connected(a, b string) bool {
	return d.Find(a) == d.Find(b)
}

// Class returns every known element in id's set, sorted for determinism.
// Complexity: O(n) in the total number of elements.
func (d *DSU) Class(id string) []string {
	root := d.Find(id)
	var out []string
	for k := range d.parent {
		if d.Find(k) == root {
			out = append(out, k)
		}
	}
	sortStrings(out)

	return out
}

// Classes partitions every known element into its equivalence classes,
// keyed by each class's representative, with elements sorted within each
// class for determinism.
func (d *DSU) Classes() map[string][]string {
	out := make(map[string][]string)
	for k := range d.parent {
		root := d.Find(k)
		out[root] = append(out[root], k)
	}
	for root := range out {
		sortStrings(out[root])
	}

	return out
}

// sortStrings is a tiny insertion sort: the classes involved are small
// (handful of net-equivalent points), so this avoids importing sort for a
// one-line call site.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
