// Package geo implements the spatial index behind nearest-vehicle lookups: an
// adaptive quadtree over a fixed rectangular domain, a single-path nearest
// search over it, and geohash encoding used to label results and cache keys.
package geo

import (
	"vehiclefinder/internal/domain/entities"
)

const (
	// Capacity is the number of positions a node holds before it splits.
	Capacity = 4

	// DefaultMaxDepth bounds subdivision. A node at this depth never splits
	// and keeps every position routed to it, so duplicate coordinates cannot
	// recurse without end. At the default world domain a depth-32 cell is
	// well under a millimetre wide.
	DefaultMaxDepth = 32
)

// Quadrant indexes into Node children. The order is also the visit order for
// both insertion and search.
const (
	QuadrantLowXLowY = iota
	QuadrantHighXLowY
	QuadrantLowXHighY
	QuadrantHighXHighY
)

// Rect is an axis-aligned rectangle with origin (X, Y) and extent
// (Width, Height). Containment is half-open: the lower edges are inside, the
// upper edges are not.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// WorldRect is the full longitude (x) / latitude (y) range.
var WorldRect = Rect{X: -180, Y: -90, Width: 360, Height: 180}

// ContainsXY reports whether (x, y) lies in the half-open rectangle.
func (r Rect) ContainsXY(x, y float64) bool {
	return r.X <= x && x < r.X+r.Width &&
		r.Y <= y && y < r.Y+r.Height
}

// Quadrants returns the four equal sub-rectangles of r in quadrant order.
func (r Rect) Quadrants() [4]Rect {
	halfWidth := r.Width / 2
	halfHeight := r.Height / 2
	return [4]Rect{
		QuadrantLowXLowY:   {X: r.X, Y: r.Y, Width: halfWidth, Height: halfHeight},
		QuadrantHighXLowY:  {X: r.X + halfWidth, Y: r.Y, Width: halfWidth, Height: halfHeight},
		QuadrantLowXHighY:  {X: r.X, Y: r.Y + halfHeight, Width: halfWidth, Height: halfHeight},
		QuadrantHighXHighY: {X: r.X + halfWidth, Y: r.Y + halfHeight, Width: halfWidth, Height: halfHeight},
	}
}

// Area returns Width*Height.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Node is one cell of the quadtree. A node is either a leaf holding up to
// Capacity positions, or an internal node with exactly four children and no
// positions of its own. The only exception is a leaf at maxDepth, which
// keeps accepting positions past Capacity.
//
// Nodes are not safe for concurrent mutation. Build a tree with a single
// writer, then share it read-only (see SpatialIndex).
type Node struct {
	bounds    Rect
	depth     int
	maxDepth  int
	positions []*entities.VehiclePosition
	children  *[4]*Node
}

// NewNode creates an empty root node covering bounds. Width and height must
// be positive; the node does not check.
func NewNode(bounds Rect) *Node {
	return NewNodeWithMaxDepth(bounds, DefaultMaxDepth)
}

// NewNodeWithMaxDepth creates an empty root node with an explicit depth floor.
// Values below 1 fall back to DefaultMaxDepth.
func NewNodeWithMaxDepth(bounds Rect, maxDepth int) *Node {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	return newNode(bounds, 0, maxDepth)
}

func newNode(bounds Rect, depth, maxDepth int) *Node {
	return &Node{
		bounds:    bounds,
		depth:     depth,
		maxDepth:  maxDepth,
		positions: make([]*entities.VehiclePosition, 0, Capacity),
	}
}

// Bounds returns the rectangle covered by the node.
func (n *Node) Bounds() Rect { return n.bounds }

// Depth returns the distance from the root (the root is depth 0).
func (n *Node) Depth() int { return n.depth }

// IsLeaf reports whether the node has never split.
func (n *Node) IsLeaf() bool { return n.children == nil }

// Positions returns the positions stored directly in this node. The slice is
// shared with the node and must not be modified.
func (n *Node) Positions() []*entities.VehiclePosition { return n.positions }

// Children returns the four children in quadrant order, or nil for a leaf.
func (n *Node) Children() []*Node {
	if n.children == nil {
		return nil
	}
	return n.children[:]
}

// Contains reports whether the position falls inside the node's rectangle.
func (n *Node) Contains(p *entities.VehiclePosition) bool {
	x, y := p.XY()
	return n.bounds.ContainsXY(x, y)
}

// Insert adds p to the subtree rooted at n. It returns false, without any
// other effect, when p lies outside the node's rectangle.
func (n *Node) Insert(p *entities.VehiclePosition) bool {
	if !n.Contains(p) {
		return false
	}

	if n.children == nil {
		if len(n.positions) < Capacity || n.depth >= n.maxDepth {
			n.positions = append(n.positions, p)
			return true
		}
		n.split()
	}

	return n.insertIntoChildren(p)
}

func (n *Node) insertIntoChildren(p *entities.VehiclePosition) bool {
	for _, child := range n.children {
		if child.Insert(p) {
			return true
		}
	}
	return false
}

// split turns a full leaf into a routing node. The existing positions are
// moved into the new children in their original order.
func (n *Node) split() {
	var children [4]*Node
	for i, r := range n.bounds.Quadrants() {
		children[i] = newNode(r, n.depth+1, n.maxDepth)
	}
	n.children = &children

	// Every position already passed this node's containment test, so one
	// quadrant always accepts it.
	for _, p := range n.positions {
		n.insertIntoChildren(p)
	}
	n.positions = nil
}

// Walk calls fn for n and every descendant, parents before children,
// children in quadrant order. Returning false from fn skips that node's
// subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children() {
		child.Walk(fn)
	}
}

// All returns every position stored in the subtree in walk order.
func (n *Node) All() []*entities.VehiclePosition {
	var all []*entities.VehiclePosition
	n.Walk(func(node *Node) bool {
		all = append(all, node.positions...)
		return true
	})
	return all
}

// TreeStats summarizes the shape of a tree.
type TreeStats struct {
	Nodes     int `json:"nodes"`
	Leaves    int `json:"leaves"`
	MaxDepth  int `json:"max_depth"`
	Positions int `json:"positions"`
	// Overfull counts leaves at the depth floor that hold more than Capacity positions.
	Overfull int `json:"overfull"`
}

// Stats walks the tree and returns its TreeStats.
func (n *Node) Stats() TreeStats {
	var s TreeStats
	n.Walk(func(node *Node) bool {
		s.Nodes++
		if node.IsLeaf() {
			s.Leaves++
			if len(node.positions) > Capacity {
				s.Overfull++
			}
		}
		if node.depth > s.MaxDepth {
			s.MaxDepth = node.depth
		}
		s.Positions += len(node.positions)
		return true
	})
	return s
}
