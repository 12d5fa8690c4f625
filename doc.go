// Package graph is the module's root package; it holds no code of its own.
//
// The module is a PCB autorouter built on a set of graph packages:
//
//	core/         — thread-safe Graph, Vertex, Edge types (int64 edge weights)
//	matrix/       — adjacency, incidence and dense matrices + converters
//	bfs/          — breadth-first traversal with hooks and depth limits
//	flow/         — Dinic max-flow
//	prim_kruskal/ — minimum spanning trees (Prim, Kruskal)
//	gridgraph/    — grid graphs and connected components
//	tsp/          — tour construction and TwoOpt/ThreeOpt local search
//	dtw/          — dynamic time warping
//
// The router itself lives in geom, dsu, connectivity, netlist, mesh,
// meshgraph, pathing, portpoint, highdensity, stitch, keepout, auxiliary,
// offboard and solver; cmd/pcbroute is its command-line entry point.
package graph
