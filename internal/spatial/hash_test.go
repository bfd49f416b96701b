package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertDeduplicates(t *testing.T) {
	h := New()
	assert.True(t, h.Insert(Point{10, 10}))
	assert.False(t, h.Insert(Point{10.05, 9.96}))
	assert.True(t, h.Insert(Point{10.2, 10}))
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []Point{{10, 10}, {10.2, 10}}, h.Points())
}

func TestInsertAcrossCellBoundary(t *testing.T) {
	// 1.99 and 2.01 fall into different cells.
	h := New()
	require.True(t, h.Insert(Point{1.99, 5}))
	assert.True(t, h.Contains(2.01, 5))
	assert.False(t, h.Insert(Point{2.01, 5}))
	assert.Equal(t, 1, h.Len())
}

func TestNear(t *testing.T) {
	h := New()
	h.Insert(Point{100, 100})
	h.Insert(Point{101, 100})

	p, ok := h.Near(100.8, 100, 1.5)
	require.True(t, ok)
	assert.Equal(t, Point{101, 100}, p)

	_, ok = h.Near(103, 100, 1.5)
	assert.False(t, ok)

	_, ok = h.Near(-50, -50, 1)
	assert.False(t, ok)
}

func TestManyPoints(t *testing.T) {
	h := New()
	for x := 0; x < 100; x++ {
		for y := 0; y < 100; y++ {
			h.Insert(Point{float64(x) * 3, float64(y) * 3})
		}
	}
	require.Equal(t, 10000, h.Len())
	for _, q := range []Point{{0, 0}, {297, 297}, {150, 21}} {
		assert.True(t, h.Contains(q.X, q.Y), "missing %v", q)
	}
	assert.False(t, h.Contains(1.5, 1.5))
	pts := h.Points()
	assert.Equal(t, Point{0, 0}, pts[0])
	assert.Equal(t, Point{297, 297}, pts[len(pts)-1])
}
