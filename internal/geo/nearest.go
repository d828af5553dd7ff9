package geo

import (
	"math"

	"vehiclefinder/internal/domain/entities"
)

// EuclideanDistance is the straight-line distance between (x1, y1) and
// (x2, y2) on the index plane, in float64.
func EuclideanDistance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// FindNearest returns the closest position to (x, y) found by descending
// from root along the single path of quadrants that contain the query
// point, together with its distance. It returns (nil, +Inf) when nothing is
// found: an empty tree, or a query outside a root that has already split.
//
// Sibling quadrants are never revisited, so near a cell edge the answer can
// be farther than the true nearest neighbor. Search cost is bounded by the
// depth of that one path. Equal distances keep the first position seen in
// list order, then quadrant order.
func FindNearest(root *Node, x, y float64) (*entities.VehiclePosition, float64) {
	var best *entities.VehiclePosition
	bestDistance := math.Inf(1)

	var visit func(n *Node)
	visit = func(n *Node) {
		for _, p := range n.positions {
			px, py := p.XY()
			if d := EuclideanDistance(x, y, px, py); d < bestDistance {
				bestDistance = d
				best = p
			}
		}

		for _, child := range n.Children() {
			if child.bounds.ContainsXY(x, y) {
				visit(child)
			}
		}
	}

	if root != nil {
		visit(root)
	}
	return best, bestDistance
}

// BuildStats reports the outcome of BuildIndex.
type BuildStats struct {
	Inserted int `json:"inserted"`
	// Dropped counts positions outside the domain rectangle. They are not
	// an error; they are simply not indexed.
	Dropped int `json:"dropped"`
}

// BuildIndex inserts positions, in order, into a new tree covering domain.
// maxDepth below 1 selects DefaultMaxDepth.
func BuildIndex(domain Rect, positions []*entities.VehiclePosition, maxDepth int) (*Node, BuildStats) {
	root := NewNodeWithMaxDepth(domain, maxDepth)

	var stats BuildStats
	for _, p := range positions {
		if root.Insert(p) {
			stats.Inserted++
		} else {
			stats.Dropped++
		}
	}
	return root, stats
}
