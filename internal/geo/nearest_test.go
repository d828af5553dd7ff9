package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehiclefinder/internal/domain/entities"
)

func TestEuclideanDistance(t *testing.T) {
	assert.Equal(t, 0.0, EuclideanDistance(1, 1, 1, 1))
	assert.Equal(t, 5.0, EuclideanDistance(0, 0, 3, 4))
	assert.Equal(t, 5.0, EuclideanDistance(3, 4, 0, 0))
	assert.InDelta(t, math.Sqrt2, EuclideanDistance(-1, -1, 0, 0), 1e-12)
}

func TestFindNearest_SmallScenario(t *testing.T) {
	a := at(1, 1, 1)
	b := at(2, 9, 9)
	c := at(3, 5, 5)
	root, stats := BuildIndex(Rect{X: 0, Y: 0, Width: 10, Height: 10}, []*entities.VehiclePosition{a, b, c}, 0)
	require.Equal(t, BuildStats{Inserted: 3}, stats)

	got, d := FindNearest(root, 0, 0)
	assert.Same(t, a, got)
	assert.InDelta(t, math.Sqrt2, d, 1e-12)

	got, d = FindNearest(root, 9, 9)
	assert.Same(t, b, got)
	assert.Equal(t, 0.0, d)

	// Three points never split the root, so every point is compared.
	got, _ = FindNearest(root, 5.1, 5.1)
	assert.Same(t, c, got)
}

func TestFindNearest_EmptyTree(t *testing.T) {
	root := NewNode(WorldRect)

	got, d := FindNearest(root, 0, 0)
	assert.Nil(t, got)
	assert.True(t, math.IsInf(d, 1))

	got, _ = FindNearest(nil, 0, 0)
	assert.Nil(t, got)
}

func TestFindNearest_OutOfDomainQuery(t *testing.T) {
	domain := Rect{X: 0, Y: 0, Width: 10, Height: 10}

	t.Run("root never split", func(t *testing.T) {
		a := at(1, 1, 1)
		root, _ := BuildIndex(domain, []*entities.VehiclePosition{a, at(2, 9, 9)}, 0)

		got, _ := FindNearest(root, 1000, 1000)
		assert.Same(t, a, got)
	})

	t.Run("root split", func(t *testing.T) {
		var positions []*entities.VehiclePosition
		for i, xy := range [][2]float64{{1, 1}, {2, 2}, {6, 1}, {1, 6}, {9, 9}} {
			positions = append(positions, at(i, xy[0], xy[1]))
		}
		root, _ := BuildIndex(domain, positions, 0)
		require.False(t, root.IsLeaf())

		got, d := FindNearest(root, 1000, 1000)
		assert.Nil(t, got)
		assert.True(t, math.IsInf(d, 1))
	})
}

func TestFindNearest_DoesNotBacktrackIntoSiblings(t *testing.T) {
	domain := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	positions := []*entities.VehiclePosition{
		at(1, 1, 1),
		at(2, 1, 2),
		at(3, 2, 1),
		at(4, 2, 2),
		// On the vertical split line: quadrant 1, not quadrant 0.
		at(5, 5, 1),
	}
	root, _ := BuildIndex(domain, positions, 0)

	// The brute-force nearest to (4.9, 1) is vehicle 5 at distance 0.1, but
	// the query lies in quadrant 0 and only that quadrant is searched.
	got, d := FindNearest(root, 4.9, 1)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.VehicleID)
	assert.InDelta(t, 2.9, d, 1e-9)

	brute := bruteForceNearest(positions, 4.9, 1)
	assert.Equal(t, 5, brute.VehicleID)

	// On the line itself the query descends into quadrant 1.
	got, d = FindNearest(root, 5, 1)
	assert.Equal(t, 5, got.VehicleID)
	assert.Equal(t, 0.0, d)
}

func TestFindNearest_EmptyQuadrantReturnsNothing(t *testing.T) {
	var positions []*entities.VehiclePosition
	for i := 0; i < 5; i++ {
		positions = append(positions, at(i, float64(i)+0.5, 0.5))
	}
	root, _ := BuildIndex(Rect{X: 0, Y: 0, Width: 10, Height: 10}, positions, 0)

	// Quadrant 3 exists but is empty; its siblings are not consulted.
	got, _ := FindNearest(root, 9, 9)
	assert.Nil(t, got)
}

func TestFindNearest_TiesKeepFirstSeen(t *testing.T) {
	first := at(1, 4, 5)
	second := at(2, 6, 5)
	root, _ := BuildIndex(Rect{X: 0, Y: 0, Width: 10, Height: 10}, []*entities.VehiclePosition{first, second}, 0)

	got, _ := FindNearest(root, 5, 5)
	assert.Same(t, first, got)

	root, _ = BuildIndex(Rect{X: 0, Y: 0, Width: 10, Height: 10}, []*entities.VehiclePosition{second, first}, 0)
	got, _ = FindNearest(root, 5, 5)
	assert.Same(t, second, got)
}

func TestFindNearest_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	positions := make([]*entities.VehiclePosition, 2000)
	for i := range positions {
		positions[i] = at(i, rng.Float64()*360-180, rng.Float64()*180-90)
	}
	root, _ := BuildIndex(WorldRect, positions, 0)

	for i := 0; i < 200; i++ {
		x, y := rng.Float64()*360-180, rng.Float64()*180-90
		p1, d1 := FindNearest(root, x, y)
		p2, d2 := FindNearest(root, x, y)
		assert.Same(t, p1, p2)
		assert.Equal(t, d1, d2)
	}
}

func TestFindNearest_ResultLiesOnQueryPath(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	positions := make([]*entities.VehiclePosition, 1000)
	for i := range positions {
		positions[i] = at(i, rng.Float64()*100, rng.Float64()*100)
	}
	root, _ := BuildIndex(Rect{X: 0, Y: 0, Width: 100, Height: 100}, positions, 0)

	for i := 0; i < 100; i++ {
		x, y := rng.Float64()*100, rng.Float64()*100
		got, d := FindNearest(root, x, y)
		if got == nil {
			continue
		}
		// The answer is never better than the true nearest.
		brute := bruteForceNearest(positions, x, y)
		bx, by := brute.XY()
		assert.GreaterOrEqual(t, d, EuclideanDistance(x, y, bx, by))

		// The answer's leaf contains the query point.
		leaf := root
		for !leaf.IsLeaf() {
			for _, c := range leaf.Children() {
				if c.Bounds().ContainsXY(x, y) {
					leaf = c
					break
				}
			}
		}
		assert.Contains(t, leaf.Positions(), got)
	}
}

func TestBuildIndex_CountsDropped(t *testing.T) {
	positions := []*entities.VehiclePosition{
		entities.NewVehiclePosition(1, "IN", 34.5, -102.1, 0),
		entities.NewVehiclePosition(2, "LAT_EDGE", 90, 10, 0),
		entities.NewVehiclePosition(3, "LON_EDGE", 10, 180, 0),
		entities.NewVehiclePosition(4, "SOUTH_WEST", -90, -180, 0),
	}

	root, stats := BuildIndex(WorldRect, positions, 0)
	assert.Equal(t, BuildStats{Inserted: 2, Dropped: 2}, stats)
	assert.Len(t, root.All(), 2)
}

func bruteForceNearest(positions []*entities.VehiclePosition, x, y float64) *entities.VehiclePosition {
	var best *entities.VehiclePosition
	bestDistance := math.Inf(1)
	for _, p := range positions {
		px, py := p.XY()
		if d := EuclideanDistance(x, y, px, py); d < bestDistance {
			best, bestDistance = p, d
		}
	}
	return best
}

func BenchmarkFindNearest(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	positions := make([]*entities.VehiclePosition, 100000)
	for i := range positions {
		positions[i] = at(i, rng.Float64()*360-180, rng.Float64()*180-90)
	}
	root, _ := BuildIndex(WorldRect, positions, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FindNearest(root, -102.10084, 34.544909)
	}
}
