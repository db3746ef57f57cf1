package ensemble

import (
	"math/rand/v2"
	"sort"
)

// rowSampler draws row subsets without replacement.
type rowSampler struct {
	rng      *rand.Rand
	fraction float64
	rows     int
	perm     []int
}

func newRowSampler(rows int, fraction float64, seed uint64) *rowSampler {
	s := &rowSampler{fraction: fraction, rows: rows}
	if fraction < 1 {
		s.rng = rand.New(rand.NewPCG(seed, seed))
		s.perm = make([]int, rows)
		for i := range s.perm {
			s.perm[i] = i
		}
	}
	return s
}

// sample returns the rows of this round in ascending order, or nil for all rows.
func (s *rowSampler) sample() []int {
	if s.rng == nil {
		return nil
	}
	n := int(float64(s.rows) * s.fraction)
	if n < 1 {
		n = 1
	}
	// partial Fisher-Yates over the first n positions
	for i := 0; i < n; i++ {
		j := i + s.rng.IntN(s.rows-i)
		s.perm[i], s.perm[j] = s.perm[j], s.perm[i]
	}
	out := append([]int(nil), s.perm[:n]...)
	sort.Ints(out)
	return out
}
