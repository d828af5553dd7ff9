package geo

import (
	"sync"

	"vehiclefinder/internal/domain/entities"
)

// Snapshot is one published build: the tree, the positions it was built from
// in load order, and the outcome of the build. A Snapshot is never modified
// after it is published, so it can be searched without locking.
type Snapshot struct {
	Root       *Node
	Positions  []*entities.VehiclePosition
	Stats      BuildStats
	Generation uint64

	ordinals map[*entities.VehiclePosition]int
}

func newSnapshot(root *Node, positions []*entities.VehiclePosition, stats BuildStats) *Snapshot {
	ordinals := make(map[*entities.VehiclePosition]int, len(positions))
	for i, p := range positions {
		if _, seen := ordinals[p]; !seen {
			ordinals[p] = i
		}
	}
	return &Snapshot{Root: root, Positions: positions, Stats: stats, ordinals: ordinals}
}

// FindNearest searches this snapshot's tree for the position closest to the
// given coordinate. A nil position means nothing was found.
func (s *Snapshot) FindNearest(lat, lon float64) (*entities.VehiclePosition, float64) {
	x, y := entities.NewLocation(lat, lon).XY()
	return FindNearest(s.Root, x, y)
}

// Ordinal returns the load-order index of p within this snapshot. Unlike a
// vehicle id it names exactly one record, even when ids repeat.
func (s *Snapshot) Ordinal(p *entities.VehiclePosition) (int, bool) {
	i, ok := s.ordinals[p]
	return i, ok
}

// At returns the position with the given load-order index, or nil when the
// index is out of range.
func (s *Snapshot) At(ordinal int) *entities.VehiclePosition {
	if ordinal < 0 || ordinal >= len(s.Positions) {
		return nil
	}
	return s.Positions[ordinal]
}

// SpatialIndex publishes fully built quadtrees to concurrent readers.
//
// Go Learning Note: Copy-on-Write Publishing With sync.RWMutex:
// A new tree is built by a single writer outside the lock and swapped in
// under the write lock. Readers hold the read lock only long enough to copy
// the *Snapshot pointer; the snapshot they get back is never mutated again,
// so the search itself runs without any locking. A query therefore always
// sees one complete tree together with the stats of the build that made it,
// never a tree under construction.
type SpatialIndex struct {
	mu       sync.RWMutex
	domain   Rect
	maxDepth int
	current  *Snapshot
}

// NewSpatialIndex creates an index over domain. Until the first Rebuild,
// queries run against an empty tree and find nothing.
func NewSpatialIndex(domain Rect, maxDepth int) *SpatialIndex {
	return &SpatialIndex{
		domain:   domain,
		maxDepth: maxDepth,
		current:  newSnapshot(NewNodeWithMaxDepth(domain, maxDepth), nil, BuildStats{}),
	}
}

// Domain returns the rectangle covered by the index.
func (s *SpatialIndex) Domain() Rect {
	return s.domain
}

// Rebuild builds a new tree from positions, publishes it and returns the
// published snapshot.
func (s *SpatialIndex) Rebuild(positions []*entities.VehiclePosition) *Snapshot {
	root, stats := BuildIndex(s.domain, positions, s.maxDepth)
	snap := newSnapshot(root, positions, stats)

	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Generation = s.current.Generation + 1
	s.current = snap
	return snap
}

// Snapshot returns the currently published snapshot.
func (s *SpatialIndex) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
