package serpentine

import (
	"math/rand"
	"sort"
)

// intset is a sorted set of ints. Keeping it sorted makes the uniform random
// pick deterministic for a fixed seed, which a map never is.
type intset []int

func (s *intset) add(v int) {
	idx := sort.SearchInts(*s, v)
	if idx < len(*s) && (*s)[idx] == v {
		return
	}

	*s = append(*s, 0)
	copy((*s)[idx+1:], (*s)[idx:])
	(*s)[idx] = v
}

func (s *intset) remove(v int) {
	idx := sort.SearchInts(*s, v)
	if idx >= len(*s) || (*s)[idx] != v {
		return
	}

	*s = append((*s)[:idx], (*s)[idx+1:]...)
}

// pick returns a uniformly chosen element. The set must not be empty.
func (s intset) pick(rng *rand.Rand) int {
	return s[rng.Intn(len(s))]
}

// group is one serpentine: the matrix cells merged together so far, their
// accumulated signal in both matrices and the indices of the neighbouring
// groups.
type group struct {
	cells  []int
	neighs intset
	sumA   float64
	sumB   float64
}

// grid holds the groups of one binning pass. Absorbed groups are set to nil
// and keep their slot, so group indices stay stable throughout the merge.
type grid struct {
	groups []*group
	live   int
}

// newRectGrid builds one group per cell of a rows×cols matrix, neighbouring
// the four adjacent cells.
func newRectGrid(u, v []float64, rows, cols int) *grid {
	groups := make([]*group, rows*cols)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			id := i*cols + j
			grp := &group{cells: []int{id}, sumA: u[id], sumB: v[id]}

			if i > 0 {
				grp.neighs.add((i - 1)*cols + j)
			}
			if i < rows-1 {
				grp.neighs.add((i + 1)*cols + j)
			}
			if j > 0 {
				grp.neighs.add(id - 1)
			}
			if j < cols-1 {
				grp.neighs.add(id + 1)
			}

			groups[id] = grp
		}
	}

	return &grid{groups: groups, live: len(groups)}
}

// newTriGrid builds one group per cell of the lower triangle (i ≥ j) of an
// n×n matrix. Group k covers pixel (i, j) with k = i·(i+1)/2 + j; its cells
// hold indices into the full row-major matrix.
func newTriGrid(u, v []float64, n int) *grid {
	groups := make([]*group, n*(n+1)/2)

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			id := i*(i+1)/2 + j
			flat := i*n + j
			grp := &group{cells: []int{flat}, sumA: u[flat], sumB: v[flat]}

			if i > 0 && i-1 >= j {
				grp.neighs.add((i-1)*i/2 + j)
			}
			if i < n-1 {
				grp.neighs.add((i+1)*(i+2)/2 + j)
			}
			if j > 0 {
				grp.neighs.add(id - 1)
			}
			if j < n-1 && i >= j+1 {
				grp.neighs.add(id + 1)
			}

			groups[id] = grp
		}
	}

	return &grid{groups: groups, live: len(groups)}
}

// merge absorbs the group other into target: cells and signal accumulate,
// the neighbour sets are unioned and every back-reference to other is
// rewritten to target.
func (g *grid) merge(target, other int) {
	tg := g.groups[target]
	og := g.groups[other]

	tg.cells = append(tg.cells, og.cells...)
	tg.sumA += og.sumA
	tg.sumB += og.sumB

	tg.neighs.remove(other)
	og.neighs.remove(target)

	for _, nn := range og.neighs {
		g.groups[nn].neighs.remove(other)
		g.groups[nn].neighs.add(target)
		tg.neighs.add(nn)
	}

	g.groups[other] = nil
	g.live--
}
