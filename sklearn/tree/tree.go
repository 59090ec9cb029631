// Package tree implements CART regression trees.
//
// Trees are grown on per-sample gradients and hessians so that the same
// builder serves a plain regression tree (gradient -y, hessian 1, leaf value
// equal to the mean target) and each stage of gradient boosting.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// Node is a single node of a Tree. Leaves have Left == Right == -1.
type Node struct {
	Feature   int     // split feature index
	Threshold float64 // samples with x[Feature] <= Threshold go left
	Left      int
	Right     int
	Value     float64 // leaf output
	Samples   int     // training samples that reached the node
	Gain      float64 // split gain, 0 for leaves
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.Left == -1 && n.Right == -1
}

// Tree is a fitted regression tree. Nodes[0] is the root.
type Tree struct {
	Nodes     []Node
	NFeatures int
	Depth     int
}

// PredictRow returns the leaf value reached by x.
func (t *Tree) PredictRow(x []float64) float64 {
	id := 0
	for {
		n := &t.Nodes[id]
		if n.IsLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			id = n.Left
		} else {
			id = n.Right
		}
	}
}

// NumLeaves counts the leaves of the tree.
func (t *Tree) NumLeaves() int {
	leaves := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			leaves++
		}
	}
	return leaves
}

// Params controls tree growth.
type Params struct {
	// MaxDepth limits the depth of the tree; 0 means unlimited.
	MaxDepth int
	// MinSamplesSplit is the smallest node that may be split.
	MinSamplesSplit int
	// MinSamplesLeaf is the smallest allowed child.
	MinSamplesLeaf int
	// MaxFeatures is the number of features sampled per split; 0 means all.
	MaxFeatures int
	// MinGain is the loss reduction a split must exceed.
	MinGain float64
	// Lambda is the L2 penalty on leaf values.
	Lambda float64
}

// DefaultParams returns parameters for a fully grown tree.
func DefaultParams() Params {
	return Params{MinSamplesSplit: 2, MinSamplesLeaf: 1}
}

func (p Params) validate(nFeatures int) error {
	if p.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", p.MaxDepth)
	}
	if p.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", p.MinSamplesSplit)
	}
	if p.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", p.MinSamplesLeaf)
	}
	if p.MaxFeatures < 0 || p.MaxFeatures > nFeatures {
		return errors.NewValidationError("max_features", "must be in [0, n_features]", p.MaxFeatures)
	}
	if p.MinGain < 0 || math.IsNaN(p.MinGain) {
		return errors.NewValidationError("min_gain", "must be >= 0", p.MinGain)
	}
	if p.Lambda < 0 {
		return errors.NewValidationError("lambda", "must be >= 0", p.Lambda)
	}
	return nil
}

// Grow fits a tree to rows of X (indices, duplicates allowed) with one
// gradient and hessian per entry of rows. rng drives feature sampling and
// may be nil when MaxFeatures is 0.
func (p Params) Grow(X mat.Matrix, rows []int, grad, hess []float64, rng *rand.Rand) (*Tree, error) {
	_, nFeatures := X.Dims()
	if err := p.validate(nFeatures); err != nil {
		return nil, err
	}
	m := len(rows)
	if m == 0 || nFeatures == 0 {
		return nil, errors.ErrEmptyData
	}
	if len(grad) != m || len(hess) != m {
		return nil, errors.NewDimensionError("tree.Grow", m, len(grad), 0)
	}
	if p.MaxFeatures > 0 && p.MaxFeatures < nFeatures && rng == nil {
		return nil, errors.NewValueError("tree.Grow", "feature sampling needs a random source")
	}

	b := &builder{
		params: p,
		cols:   make([][]float64, nFeatures),
		grad:   grad,
		hess:   hess,
		goLeft: make([]bool, m),
		rng:    rng,
		tree:   &Tree{NFeatures: nFeatures},
	}

	// presort every feature once; children inherit sorted order by stable partition
	sorted := make([][]int, nFeatures)
	for f := 0; f < nFeatures; f++ {
		col := make([]float64, m)
		for pos, row := range rows {
			col[pos] = X.At(row, f)
		}
		b.cols[f] = col

		order := make([]int, m)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool { return col[order[i]] < col[order[j]] })
		sorted[f] = order
	}

	b.build(sorted, 0)
	if err := errors.CheckNumericalStability("tree.Grow", b.leafValues(), 0); err != nil {
		return nil, err
	}
	return b.tree, nil
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	ok        bool
}

type builder struct {
	params Params
	cols   [][]float64
	grad   []float64
	hess   []float64
	goLeft []bool
	rng    *rand.Rand
	tree   *Tree
}

// score is the structure score G²/(H+λ) of the boosting gain formula.
func (b *builder) score(g, h float64) float64 {
	return g * g / (h + b.params.Lambda)
}

func (b *builder) leafValue(g, h float64) float64 {
	const epsilon = 1e-10
	return -g / (h + b.params.Lambda + epsilon)
}

func (b *builder) build(sorted [][]int, depth int) int {
	positions := sorted[0]
	var g, h float64
	for _, pos := range positions {
		g += b.grad[pos]
		h += b.hess[pos]
	}

	id := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{
		Left:    -1,
		Right:   -1,
		Value:   b.leafValue(g, h),
		Samples: len(positions),
	})
	if depth > b.tree.Depth {
		b.tree.Depth = depth
	}

	n := len(positions)
	if (b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		n < b.params.MinSamplesSplit || n < 2*b.params.MinSamplesLeaf {
		return id
	}

	best := b.bestSplit(sorted, g, h)
	if !best.ok || best.gain <= b.params.MinGain {
		return id
	}

	for _, pos := range positions {
		b.goLeft[pos] = b.cols[best.feature][pos] <= best.threshold
	}
	left := make([][]int, len(sorted))
	right := make([][]int, len(sorted))
	for f, order := range sorted {
		l := make([]int, 0, n)
		r := make([]int, 0, n)
		for _, pos := range order {
			if b.goLeft[pos] {
				l = append(l, pos)
			} else {
				r = append(r, pos)
			}
		}
		left[f], right[f] = l, r
	}

	node := &b.tree.Nodes[id]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Gain = best.gain

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.tree.Nodes[id].Left = l
	b.tree.Nodes[id].Right = r
	return id
}

func (b *builder) candidateFeatures() []int {
	nFeatures := len(b.cols)
	if b.params.MaxFeatures == 0 || b.params.MaxFeatures >= nFeatures {
		all := make([]int, nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	feats := b.rng.Perm(nFeatures)[:b.params.MaxFeatures]
	sort.Ints(feats)
	return feats
}

func (b *builder) bestSplit(sorted [][]int, g, h float64) split {
	parent := b.score(g, h)
	minLeaf := b.params.MinSamplesLeaf
	best := split{gain: math.Inf(-1)}

	for _, f := range b.candidateFeatures() {
		order := sorted[f]
		col := b.cols[f]
		n := len(order)

		var gl, hl float64
		for i := 0; i < n-1; i++ {
			pos := order[i]
			gl += b.grad[pos]
			hl += b.hess[pos]

			if col[pos] == col[order[i+1]] {
				continue
			}
			leftCount := i + 1
			if leftCount < minLeaf || n-leftCount < minLeaf {
				continue
			}

			gain := 0.5 * (b.score(gl, hl) + b.score(g-gl, h-hl) - parent)
			if gain > best.gain {
				best = split{
					feature:   f,
					threshold: (col[pos] + col[order[i+1]]) / 2,
					gain:      gain,
					ok:        true,
				}
			}
		}
	}
	return best
}

func (b *builder) leafValues() []float64 {
	vals := make([]float64, 0, len(b.tree.Nodes))
	for i := range b.tree.Nodes {
		if b.tree.Nodes[i].IsLeaf() {
			vals = append(vals, b.tree.Nodes[i].Value)
		}
	}
	return vals
}
