// Package tree implements the regression tree used as the weak learner of the
// gradient boosted ensemble.
package tree

import (
	"fmt"

	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

// Node is one node of a regression tree. Nodes are stored in pre-order in
// Tree.Nodes; a leaf has Left == Right == -1.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Gain      float64 `json:"gain,omitempty"`
	Samples   int     `json:"samples"`
}

// IsLeaf reports whether n is a terminal node.
func (n *Node) IsLeaf() bool {
	return n.Left < 0
}

// Tree is an immutable binary regression tree. Rows with x[Feature] <= Threshold
// go left.
type Tree struct {
	Nodes       []Node `json:"nodes"`
	NumFeatures int    `json:"num_features"`
}

// Predict walks the tree for one feature vector. x must have NumFeatures entries.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// NumLeaves counts terminal nodes.
func (t *Tree) NumLeaves() int {
	leaves := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			leaves++
		}
	}
	return leaves
}

// Depth returns the length of the longest root to leaf path. A single leaf has depth 0.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

// Validate checks the structure of a tree restored from storage so that
// Predict cannot index out of range or loop.
func (t *Tree) Validate() error {
	if len(t.Nodes) == 0 {
		return errors.NewModelError("Tree.Validate", "tree has no nodes", nil)
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.Left < 0 && n.Right < 0 {
			continue
		}
		// pre-order layout: children always come after their parent
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return errors.NewModelError("Tree.Validate", fmt.Sprintf("node %d has invalid children", i), nil)
		}
		if n.Feature < 0 || n.Feature >= t.NumFeatures {
			return errors.NewModelError("Tree.Validate", fmt.Sprintf("node %d splits on feature %d", i, n.Feature), nil)
		}
	}
	return nil
}

// AddImportance adds every split gain of t to importance, indexed by feature.
func (t *Tree) AddImportance(importance []float64) {
	for i := range t.Nodes {
		if n := &t.Nodes[i]; !n.IsLeaf() {
			importance[n.Feature] += n.Gain
		}
	}
}
