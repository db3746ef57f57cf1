package tree

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/taxifare/core/parallel"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

// DefaultParallelThreshold is the node size above which features are searched
// concurrently.
const DefaultParallelThreshold = 2048

// Config bounds the shape of a tree.
type Config struct {
	// MaxDepth is the depth at which nodes become leaves. 0 gives a single leaf.
	MaxDepth int
	// MinLeafSize is the minimum number of rows on each side of a split.
	MinLeafSize int
	// ParallelThreshold is the node size from which split search runs one
	// goroutine chunk per feature range. 0 uses DefaultParallelThreshold,
	// a negative value disables it.
	ParallelThreshold int
}

// splitInfo is the best split found for one feature.
type splitInfo struct {
	feature   int
	threshold float64
	cost      float64 // SSE(left) + SSE(right)
	nLeft     int
	ok        bool
}

// Builder fits regression trees on a fixed feature matrix. Columns are sorted
// once in NewBuilder and every Build reuses that order.
type Builder struct {
	cfg       Config
	nRows     int
	nFeatures int
	cols      [][]float64
	order     [][]int

	// scratch state of the current Build
	target []float64
	sorted [][]int
	buf    []int
	goLeft []bool
	nodes  []Node
}

// NewBuilder prepares X for repeated tree fitting.
func NewBuilder(X mat.Matrix, cfg Config) (*Builder, error) {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewEmptyDatasetError("tree.NewBuilder", "feature")
	}
	if cfg.MaxDepth < 0 {
		return nil, errors.NewValidationError("max_depth", "must be >= 0", cfg.MaxDepth)
	}
	if cfg.MinLeafSize < 1 {
		return nil, errors.NewValidationError("min_leaf_size", "must be >= 1", cfg.MinLeafSize)
	}
	if cfg.ParallelThreshold == 0 {
		cfg.ParallelThreshold = DefaultParallelThreshold
	}

	b := &Builder{
		cfg:       cfg,
		nRows:     rows,
		nFeatures: cols,
		cols:      make([][]float64, cols),
		order:     make([][]int, cols),
		goLeft:    make([]bool, rows),
	}
	for f := 0; f < cols; f++ {
		col := make([]float64, rows)
		for i := 0; i < rows; i++ {
			col[i] = X.At(i, f)
		}
		idx := make([]int, rows)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, c int) bool { return col[idx[a]] < col[idx[c]] })
		b.cols[f] = col
		b.order[f] = idx
	}
	return b, nil
}

// NumRows returns the number of rows of the prepared matrix.
func (b *Builder) NumRows() int { return b.nRows }

// NumFeatures returns the number of columns of the prepared matrix.
func (b *Builder) NumFeatures() int { return b.nFeatures }

// Fit is a convenience wrapper fitting one tree on every row of X.
func Fit(X mat.Matrix, y []float64, cfg Config) (*Tree, error) {
	b, err := NewBuilder(X, cfg)
	if err != nil {
		return nil, err
	}
	return b.Build(y, nil)
}

// Build fits a tree to target restricted to rows. A nil rows uses every row.
// target is indexed by row of the prepared matrix. Build is not safe for
// concurrent use on the same Builder.
func (b *Builder) Build(target []float64, rows []int) (*Tree, error) {
	if len(target) != b.nRows {
		return nil, errors.NewShapeMismatchError("tree.Build", "target", b.nRows, len(target))
	}
	if rows != nil && len(rows) == 0 {
		return nil, errors.NewEmptyDatasetError("tree.Build", "row sample")
	}

	b.target = target
	b.nodes = nil
	b.prepareSorted(rows)
	n := len(b.sorted[0])
	if cap(b.buf) < n {
		b.buf = make([]int, n)
	}

	sorted := make([][]int, b.nFeatures)
	copy(sorted, b.sorted)
	b.grow(sorted, 0)

	t := &Tree{Nodes: b.nodes, NumFeatures: b.nFeatures}
	b.target, b.nodes = nil, nil
	return t, nil
}

func (b *Builder) prepareSorted(rows []int) {
	b.sorted = make([][]int, b.nFeatures)
	if rows == nil {
		for f := range b.order {
			b.sorted[f] = append([]int(nil), b.order[f]...)
		}
		return
	}
	member := make([]bool, b.nRows)
	for _, r := range rows {
		member[r] = true
	}
	for f := range b.order {
		s := make([]int, 0, len(rows))
		for _, r := range b.order[f] {
			if member[r] {
				s = append(s, r)
			}
		}
		b.sorted[f] = s
	}
}

// grow appends the subtree for the rows in sorted (one row list per feature,
// each ordered by that feature) and returns its node index.
func (b *Builder) grow(sorted [][]int, depth int) int {
	rows := sorted[0]
	n := len(rows)

	var sum, sumSq float64
	for _, r := range rows {
		v := b.target[r]
		sum += v
		sumSq += v * v
	}
	mean := sum / float64(n)
	parentSSE := sumSq - sum*mean

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1, Value: mean, Samples: n})

	if depth >= b.cfg.MaxDepth || n < 2*b.cfg.MinLeafSize {
		return idx
	}

	best := b.bestSplit(sorted)
	if !best.ok {
		return idx
	}
	gain := parentSSE - best.cost
	if gain <= sseTolerance(parentSSE) {
		return idx
	}

	left, right := b.partition(sorted, best)

	node := &b.nodes[idx]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Gain = gain

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

// sseTolerance absorbs rounding in the running sums so that splits of a
// constant target are not accepted.
func sseTolerance(parentSSE float64) float64 {
	return 1e-12 * (1 + parentSSE)
}

// bestSplit returns the lowest cost split over all features. Ties keep the
// lowest feature index, which bestSplitForFeature extends to the lowest
// threshold.
func (b *Builder) bestSplit(sorted [][]int) splitInfo {
	results := make([]splitInfo, b.nFeatures)
	search := func(start, end int) {
		for f := start; f < end; f++ {
			results[f] = b.bestSplitForFeature(sorted[f], f)
		}
	}
	if b.cfg.ParallelThreshold > 0 && len(sorted[0]) >= b.cfg.ParallelThreshold {
		parallel.Parallelize(b.nFeatures, search)
	} else {
		search(0, b.nFeatures)
	}

	var best splitInfo
	for _, s := range results {
		if s.ok && (!best.ok || s.cost < best.cost) {
			best = s
		}
	}
	return best
}

func (b *Builder) bestSplitForFeature(rows []int, feature int) splitInfo {
	col := b.cols[feature]
	n := len(rows)
	minLeaf := b.cfg.MinLeafSize

	var totalSum, totalSq float64
	for _, r := range rows {
		v := b.target[r]
		totalSum += v
		totalSq += v * v
	}

	best := splitInfo{feature: feature}
	var leftSum, leftSq float64
	for i := 0; i < n-1; i++ {
		v := b.target[rows[i]]
		leftSum += v
		leftSq += v * v

		x, next := col[rows[i]], col[rows[i+1]]
		if x == next {
			continue
		}
		nLeft := i + 1
		nRight := n - nLeft
		if nLeft < minLeaf {
			continue
		}
		if nRight < minLeaf {
			break
		}

		rightSum := totalSum - leftSum
		rightSq := totalSq - leftSq
		cost := (leftSq - leftSum*leftSum/float64(nLeft)) + (rightSq - rightSum*rightSum/float64(nRight))
		if !best.ok || cost < best.cost {
			threshold := x + (next-x)/2
			if threshold >= next {
				threshold = x
			}
			best = splitInfo{feature: feature, threshold: threshold, cost: cost, nLeft: nLeft, ok: true}
		}
	}
	return best
}

// partition stable-splits every feature's row list by the chosen split.
func (b *Builder) partition(sorted [][]int, s splitInfo) (left, right [][]int) {
	col := b.cols[s.feature]
	for _, r := range sorted[0] {
		b.goLeft[r] = col[r] <= s.threshold
	}

	left = make([][]int, b.nFeatures)
	right = make([][]int, b.nFeatures)
	for f, rows := range sorted {
		buf := b.buf[:len(rows)]
		li, ri := 0, s.nLeft
		for _, r := range rows {
			if b.goLeft[r] {
				buf[li] = r
				li++
			} else {
				buf[ri] = r
				ri++
			}
		}
		copy(rows, buf)
		left[f] = rows[:s.nLeft:s.nLeft]
		right[f] = rows[s.nLeft:]
	}
	return left, right
}
