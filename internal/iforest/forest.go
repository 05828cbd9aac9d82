// Package iforest implements an isolation forest outlier model.
//
// A forest is fitted on a slice of feature vectors. Every tree isolates a
// random sub-sample by recursive random splits; points that are isolated
// after few splits are anomalous. Scores follow Liu, Ting and Zhou (2008):
// s(x) = 2^(-E[h(x)] / c(psi)), in (0, 1], higher means more anomalous.
//
// All randomness comes from a PCG source seeded by Params.Seed, so a fit is
// reproducible bit for bit. A fitted Forest is read-only and safe for
// concurrent scoring; it serializes to JSON for external caches.
package iforest

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

const eulerGamma = 0.5772156649015329

var (
	ErrEmptyData  = errors.New("iforest: no samples")
	ErrNonFinite  = errors.New("iforest: sample contains NaN or Inf")
	ErrDimensions = errors.New("iforest: samples have different dimensions")
	ErrParams     = errors.New("iforest: invalid parameters")
	ErrCorrupt    = errors.New("iforest: malformed forest")
)

// Params controls forest construction.
type Params struct {
	Trees         int     `json:"trees"`
	SampleSize    int     `json:"sampleSize"`
	Contamination float64 `json:"contamination"`
	Seed          uint64  `json:"seed"`
}

// DefaultParams matches the usual isolation forest settings.
func DefaultParams() Params {
	return Params{
		Trees:         100,
		SampleSize:    256,
		Contamination: 0.1,
		Seed:          42,
	}
}

func (p Params) validate() error {
	if p.Trees <= 0 {
		return fmt.Errorf("%w: trees must be positive, got %d", ErrParams, p.Trees)
	}
	if p.SampleSize <= 0 {
		return fmt.Errorf("%w: sample size must be positive, got %d", ErrParams, p.SampleSize)
	}
	if p.Contamination <= 0 || p.Contamination > 0.5 {
		return fmt.Errorf("%w: contamination must be in (0, 0.5], got %v", ErrParams, p.Contamination)
	}
	return nil
}

// Node is one entry of a tree's flat node table. Leaves carry the number of
// training samples that reached them.
type Node struct {
	Feature int     `json:"f,omitempty"`
	Split   float64 `json:"s,omitempty"`
	Left    int     `json:"l,omitempty"`
	Right   int     `json:"r,omitempty"`
	Size    int     `json:"n,omitempty"`
	Leaf    bool    `json:"leaf,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

type Forest struct {
	Params Params `json:"params"`
	// Dims is the feature vector length the forest was fitted on.
	Dims int `json:"dims"`
	// Psi is the sub-sample size actually drawn per tree.
	Psi int `json:"psi"`
	// Threshold is the training score quantile at 1-contamination. Scores
	// strictly above it are outliers.
	Threshold float64 `json:"threshold"`
	Trees     []Tree  `json:"trees"`
}

// Fit builds a forest over data. data is not modified.
func Fit(data [][]float64, p Params) (*Forest, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	dims := len(data[0])
	if dims == 0 {
		return nil, fmt.Errorf("%w: zero-length feature vector", ErrDimensions)
	}
	for i, row := range data {
		if len(row) != dims {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrDimensions, i, len(row), dims)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d", ErrNonFinite, i)
			}
		}
	}

	n := len(data)
	psi := min(p.SampleSize, n)
	maxDepth := int(math.Ceil(math.Log2(float64(max(psi, 2)))))
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))

	f := &Forest{
		Params: p,
		Dims:   dims,
		Psi:    psi,
		Trees:  make([]Tree, 0, p.Trees),
	}

	idx := make([]int, n)
	for t := 0; t < p.Trees; t++ {
		for i := range idx {
			idx[i] = i
		}
		// partial Fisher-Yates: the first psi entries are a sample without replacement
		for i := 0; i < psi; i++ {
			j := i + rng.IntN(n-i)
			idx[i], idx[j] = idx[j], idx[i]
		}
		rows := append([]int(nil), idx[:psi]...)

		var tree Tree
		build(&tree, data, rows, 0, maxDepth, rng)
		f.Trees = append(f.Trees, tree)
	}

	scores := f.ScoreAll(data)
	f.Threshold = quantile(scores, 1-p.Contamination)
	return f, nil
}

func build(tree *Tree, data [][]float64, rows []int, depth, maxDepth int, rng *rand.Rand) int {
	at := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{})

	if depth >= maxDepth || len(rows) <= 1 {
		tree.Nodes[at] = Node{Leaf: true, Size: len(rows)}
		return at
	}

	dims := len(data[rows[0]])
	var candidates []int
	lows := make([]float64, dims)
	highs := make([]float64, dims)
	for d := 0; d < dims; d++ {
		lo, hi := data[rows[0]][d], data[rows[0]][d]
		for _, r := range rows[1:] {
			lo = math.Min(lo, data[r][d])
			hi = math.Max(hi, data[r][d])
		}
		lows[d], highs[d] = lo, hi
		if lo < hi {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		tree.Nodes[at] = Node{Leaf: true, Size: len(rows)}
		return at
	}

	feature := candidates[rng.IntN(len(candidates))]
	lo, hi := lows[feature], highs[feature]
	split := lo + rng.Float64()*(hi-lo)

	// split is in [lo, hi): "<=" keeps lo on the left and hi on the right
	var left, right []int
	for _, r := range rows {
		if data[r][feature] <= split {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	l := build(tree, data, left, depth+1, maxDepth, rng)
	r := build(tree, data, right, depth+1, maxDepth, rng)
	tree.Nodes[at] = Node{Feature: feature, Split: split, Left: l, Right: r}
	return at
}

// Validate checks that a forest read back from outside Fit can be scored
// without going out of bounds or looping.
func (f *Forest) Validate() error {
	if f.Dims < 1 {
		return fmt.Errorf("%w: dims %d", ErrCorrupt, f.Dims)
	}
	if f.Psi < 1 {
		return fmt.Errorf("%w: psi %d", ErrCorrupt, f.Psi)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrCorrupt)
	}
	if math.IsNaN(f.Threshold) || math.IsInf(f.Threshold, 0) {
		return fmt.Errorf("%w: threshold is not finite", ErrCorrupt)
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("%w: tree %d has no nodes", ErrCorrupt, ti)
		}
		for ni, node := range t.Nodes {
			if node.Leaf {
				if node.Size < 0 {
					return fmt.Errorf("%w: tree %d node %d has negative size", ErrCorrupt, ti, ni)
				}
				continue
			}
			if node.Feature < 0 || node.Feature >= f.Dims {
				return fmt.Errorf("%w: tree %d node %d splits on feature %d", ErrCorrupt, ti, ni, node.Feature)
			}
			// children always follow their parent, which also rules out cycles
			for _, child := range []int{node.Left, node.Right} {
				if child <= ni || child >= len(t.Nodes) {
					return fmt.Errorf("%w: tree %d node %d points to node %d", ErrCorrupt, ti, ni, child)
				}
			}
		}
	}
	return nil
}

func (t Tree) pathLength(x []float64) float64 {
	i := 0
	depth := 0
	for {
		node := t.Nodes[i]
		if node.Leaf {
			return float64(depth) + averagePath(node.Size)
		}
		if x[node.Feature] <= node.Split {
			i = node.Left
		} else {
			i = node.Right
		}
		depth++
	}
}

// Score returns the anomaly score of x in (0, 1].
func (f *Forest) Score(x []float64) float64 {
	norm := averagePath(f.Psi)
	if norm == 0 || len(f.Trees) == 0 {
		return 0.5
	}
	var total float64
	for _, t := range f.Trees {
		total += t.pathLength(x)
	}
	mean := total / float64(len(f.Trees))
	return math.Pow(2, -mean/norm)
}

func (f *Forest) ScoreAll(data [][]float64) []float64 {
	scores := make([]float64, len(data))
	for i, x := range data {
		scores[i] = f.Score(x)
	}
	return scores
}

// IsOutlier reports the contamination based decision for a score.
func (f *Forest) IsOutlier(score float64) bool {
	return score > f.Threshold
}

// averagePath is c(n), the mean path length of an unsuccessful BST search.
func averagePath(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	h := math.Log(float64(n-1)) + eulerGamma
	return 2*h - 2*float64(n-1)/float64(n)
}

// quantile uses linear interpolation between closest ranks.
func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
