package bubbles

import (
	"sort"

	"examgrader/pkg/geometry"
)

// assignCircles implements §4.6 step 4: each of the n option slots is
// matched to at most one circle from candidates, minimising total squared
// distance, with every individual match capped at maxDist. Unmatched slots
// are nil. Candidates are sorted left-to-right before matching, as the
// spec requires.
func assignCircles(expected []geometry.Point2D, candidates []DetectedCircle, maxDist float64) []*DetectedCircle {
	n := len(expected)
	sorted := append([]DetectedCircle(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Center.X < sorted[j].Center.X })
	m := len(sorted)

	out := make([]*DetectedCircle, n)
	if m == 0 || n == 0 {
		return out
	}

	switch {
	case m == n:
		assignDirect(expected, sorted, out, maxDist)
	case m < n:
		assignSubset(expected, sorted, combosPlaceInSlots(n, m), out, maxDist, true)
	default: // m > n
		assignSubset(expected, sorted, combosChooseSubset(m, n), out, maxDist, false)
	}
	return out
}

// assignDirect maps the k-th sorted circle to option k, dropping any pair
// whose distance exceeds maxDist.
func assignDirect(expected []geometry.Point2D, sorted []DetectedCircle, out []*DetectedCircle, maxDist float64) {
	for k := range expected {
		d := expected[k].Distance(sorted[k].Center)
		if d <= maxDist {
			c := sorted[k]
			out[k] = &c
		}
	}
}

// assignSubset enumerates every way to place len(sorted) circles into the
// n option slots while preserving sorted left-to-right order (either
// choosing which slots they fill, when m<n, or which circles to use, when
// m>n), picks the minimum sum-of-squared-distance placement, and rejects
// any per-pair distance above maxDist.
func assignSubset(expected []geometry.Point2D, sorted []DetectedCircle, slotCombos [][]int, out []*DetectedCircle, maxDist float64, combosAreSlots bool) {
	n := len(expected)
	m := len(sorted)

	bestCost := -1.0
	var bestSlots []int // slot index for each sorted circle, by combosAreSlots semantics

	for _, combo := range slotCombos {
		var slotOf []int // slotOf[sortedIdx] = expected slot
		if combosAreSlots {
			// combo has length m: slot assigned to each sorted circle
			slotOf = combo
		} else {
			// combo has length n: indices into sorted to use, in order, for slots 0..n-1
			slotOf = make([]int, m)
			for i := range slotOf {
				slotOf[i] = -1
			}
			for slot, sortedIdx := range combo {
				slotOf[sortedIdx] = slot
			}
		}

		valid := true
		cost := 0.0
		for sortedIdx, slot := range slotOf {
			if slot < 0 {
				continue
			}
			d := expected[slot].Distance(sorted[sortedIdx].Center)
			if d > maxDist {
				valid = false
				break
			}
			cost += d * d
		}
		if !valid {
			continue
		}
		if bestCost < 0 || cost < bestCost {
			bestCost = cost
			bestSlots = append([]int(nil), slotOf...)
		}
	}

	if bestSlots == nil {
		return
	}
	for sortedIdx, slot := range bestSlots {
		if slot < 0 || slot >= n {
			continue
		}
		c := sorted[sortedIdx]
		out[slot] = &c
	}
}

// combosPlaceInSlots enumerates all ways to place m sorted (ordered)
// circles into n slots, preserving left-to-right order: choose m of the n
// slots (C(n,m) ways) and assign the sorted circles to them in order.
func combosPlaceInSlots(n, m int) [][]int {
	var results [][]int
	var choose func(start int, chosen []int)
	choose = func(start int, chosen []int) {
		if len(chosen) == m {
			slotOf := append([]int(nil), chosen...)
			results = append(results, slotOf)
			return
		}
		remaining := m - len(chosen)
		for s := start; s <= n-remaining; s++ {
			choose(s+1, append(chosen, s))
		}
	}
	choose(0, nil)
	return results
}

// combosChooseSubset enumerates all C(m, n) ways to choose n of the m
// sorted circles (preserving order) to fill the n slots.
func combosChooseSubset(m, n int) [][]int {
	var results [][]int
	var choose func(start int, chosen []int)
	choose = func(start int, chosen []int) {
		if len(chosen) == n {
			results = append(results, append([]int(nil), chosen...))
			return
		}
		remaining := n - len(chosen)
		for i := start; i <= m-remaining; i++ {
			choose(i+1, append(chosen, i))
		}
	}
	choose(0, nil)
	return results
}

// removeAssigned returns the circles not claimed by any slot in assignment.
func removeAssigned(circles []DetectedCircle, assignment []*DetectedCircle) []DetectedCircle {
	claimed := make(map[geometry.Point2D]bool, len(assignment))
	for _, a := range assignment {
		if a != nil {
			claimed[a.Center] = true
		}
	}
	out := make([]DetectedCircle, 0, len(circles))
	for _, c := range circles {
		if !claimed[c.Center] {
			out = append(out, c)
		}
	}
	return out
}
