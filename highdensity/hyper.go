package highdensity

import (
	"github.com/pcbroute/pcbroute/dtw"
)

// Candidate is one hyper-solver variant's attempt at routing a cell:
// its traces (nil if it failed) and whether it failed. The per-trace
// length profile used for tie-breaking is derived from Traces by profile.
type Candidate struct {
	Traces []Trace
	Failed bool
}

// profile turns a candidate's cell paths into the 1-D length-per-trace
// series dtw.DTW compares: the router cares about solutions whose
// relative trace-length distribution resembles a reference (e.g. the
// previous board revision's solved cell), not just raw total length.
func profile(traces []Trace) []float64 {
	out := make([]float64, len(traces))
	for i, t := range traces {
		out[i] = float64(len(t.Cells()))
	}

	return out
}

// RaceVariants chooses among the results of several IntraNodeRoute
// attempts that the caller has already run (spec.md §4.5's
// "hyper-solver runs several underlying solvers in parallel with
// perturbed hyperparameters and keeps the first one to solve, or the
// best-scoring if all fail") and, among the solved candidates, picks the
// one whose trace-length profile is closest (by DTW distance) to a
// reference profile — grounded on dtw.DTW, generalizing its audio/time-
// series alignment use to scoring geometric route-length similarity.
// A nil reference just returns the first solved candidate, matching the
// "first to solve" fallback when there is nothing to compare against.
func RaceVariants(candidates []Candidate, reference []float64) (Candidate, bool) {
	var best Candidate
	bestScore := -1.0
	found := false

	for _, c := range candidates {
		if c.Failed {
			continue
		}
		if reference == nil {
			return c, true
		}

		opts := dtw.DefaultOptions()
		score, _, err := dtw.DTW(profile(c.Traces), reference, &opts)
		if err != nil {
			continue
		}
		if !found || score < bestScore {
			best, bestScore, found = c, score, true
		}
	}

	return best, found
}
