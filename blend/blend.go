/*package blend merges per-scale collapse states into a single field. Scales
are added from coarsest to finest and each cell keeps the state of the first
scale at which it stops being linear.
*/
package blend

import (
	"fmt"

	"github.com/phil-mansfield/gomuscle/collapse"
	"github.com/phil-mansfield/gomuscle/geom"
)

// Unmarked is the Mask value of cells which stayed linear at every scale.
const Unmarked = -1

// Mask records, for every cell, the scale at which it was assigned. Entries
// are written at most once.
type Mask []int

// Count returns the number of cells assigned at scale i.
func (m Mask) Count(i int) int {
	n := 0
	for _, s := range m {
		if s == i {
			n++
		}
	}
	return n
}

// Result is the output of a completed blend.
type Result struct {
	States []collapse.State
	Mask   Mask
	// Divergence is the blended divergence of the displacement field,
	// summing to zero over the box.
	Divergence []float64
	// CollapsedFraction[i] is the fraction of cells assigned at scale i.
	CollapsedFraction []float64
}

// Blender accumulates scales. It is the only place where state crosses
// scales.
type Blender struct {
	grid    *geom.Grid
	scales  int
	next    int
	workers int

	states []collapse.State
	mask   Mask
	last   []collapse.State
}

// New returns a Blender expecting the given number of scales.
func New(g *geom.Grid, scales, workers int) *Blender {
	b := &Blender{
		grid: g, scales: scales, workers: workers,
		states: make([]collapse.State, g.Volume),
		mask:   make(Mask, g.Volume),
	}
	for i := range b.mask {
		b.mask[i] = Unmarked
	}
	return b
}

// Add blends in the states of scale i. Scales must be added in order,
// starting at zero.
func (b *Blender) Add(i int, states []collapse.State) error {
	if b.states == nil {
		return fmt.Errorf("Scale %d added after the blend was finished.", i)
	} else if i != b.next {
		return fmt.Errorf("Scale %d added out of order: expected scale %d.", i, b.next)
	} else if i >= b.scales {
		return fmt.Errorf("Scale %d added, but only %d scales exist.", i, b.scales)
	} else if len(states) != len(b.states) {
		return fmt.Errorf(
			"%w: scale %d has %d states, but the grid has %d cells",
			geom.ErrInvalidGridSize, i, len(states), len(b.states),
		)
	}

	geom.Parallel(b.workers, len(states), func(_, low, high, jump int) {
		for idx := low; idx < high; idx += jump {
			if b.mask[idx] == Unmarked && states[idx].Class != collapse.Linear {
				b.mask[idx] = i
				b.states[idx] = states[idx]
			}
		}
	})

	b.last = states
	b.next++
	return nil
}

// Finish fills unmarked cells from the finest scale and shifts their
// divergence so that the total over the box is zero, conserving volume.
// Cells that were marked keep exactly their assigned divergence.
func (b *Blender) Finish() (*Result, error) {
	if b.states == nil {
		return nil, fmt.Errorf("Blend has already been finished.")
	} else if b.scales == 0 {
		return nil, fmt.Errorf("Cannot blend zero scales.")
	} else if b.next != b.scales {
		return nil, fmt.Errorf(
			"Blend finished after %d of %d scales.", b.next, b.scales,
		)
	}

	res := &Result{
		States: b.states, Mask: b.mask,
		Divergence:        make([]float64, len(b.states)),
		CollapsedFraction: make([]float64, b.scales),
	}

	sum, unmarked := 0.0, 0
	counts := make([]int, b.scales)
	for idx := range res.States {
		if b.mask[idx] == Unmarked {
			res.States[idx] = b.last[idx]
			unmarked++
		} else {
			counts[b.mask[idx]]++
		}
		res.Divergence[idx] = res.States[idx].Divergence
		sum += res.Divergence[idx]
	}

	if unmarked > 0 {
		mean := sum / float64(unmarked)
		for idx := range res.Divergence {
			if b.mask[idx] == Unmarked {
				res.Divergence[idx] -= mean
			}
		}
	}

	for i, n := range counts {
		res.CollapsedFraction[i] = float64(n) / float64(len(b.states))
	}

	// The Blender is spent.
	b.states, b.mask, b.last = nil, nil, nil
	return res, nil
}
