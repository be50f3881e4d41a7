package combat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBattlefield_Generate(t *testing.T) {
	tests := []struct {
		name  string
		typ   SystemType
		owned bool
		want  int
	}{
		{"normal", SystemNormal, false, 0},
		{"nebula", SystemNebula, false, 2 * GridHeight},
		{"asteroids", SystemAsteroids, false, 3 * GridHeight},
		{"dense", SystemDenseAsteroids, false, 4 * GridHeight},
		{"owned dense", SystemDenseAsteroids, true, 3 * GridHeight},
		{"owned normal", SystemNormal, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBattlefield(rand.New(rand.NewSource(1)), 0)
			b.Generate(tt.typ, tt.owned, 1)

			assert.Equal(t, tt.want, b.ObstructionCount())
			for y := 0; y < GridHeight; y++ {
				for _, x := range []int{0, 1, GridWidth - 2, GridWidth - 1} {
					assert.True(t, b.IsValid(x, y), "deployment cell %d,%d", x, y)
				}
			}
		})
	}
}

func TestBattlefield_GenerateResets(t *testing.T) {
	b := NewBattlefield(rand.New(rand.NewSource(1)), 0)
	b.Generate(SystemDenseAsteroids, false, 1)
	require.NotZero(t, b.ObstructionCount())

	b.Generate(SystemNormal, false, 1)
	assert.Zero(t, b.ObstructionCount())
}

func TestBattlefield_IsValid(t *testing.T) {
	b := NewBattlefield(rand.New(rand.NewSource(1)), 0)
	b.SetObstructed(4, 4, true)

	assert.False(t, b.IsValid(-1, 0))
	assert.False(t, b.IsValid(0, GridHeight))
	assert.False(t, b.IsValid(GridWidth, 0))
	assert.False(t, b.IsValid(4, 4))
	assert.True(t, b.Obstructed(4, 4))
	assert.False(t, b.Obstructed(40, 4))
	assert.True(t, b.IsValid(GridWidth-1, GridHeight-1))
}

func TestBattlefield_ErodeOneCellAtATime(t *testing.T) {
	b := NewBattlefield(rand.New(rand.NewSource(9)), 1)
	b.Generate(SystemDenseAsteroids, false, 1)
	before := b.ObstructionCount()

	for i := 1; i <= 5; i++ {
		require.True(t, b.Erode())
		assert.Equal(t, before-i, b.ObstructionCount())
	}
}

func TestBattlefield_ErodeProbabilistic(t *testing.T) {
	b := NewBattlefield(rand.New(rand.NewSource(9)), 0.05)
	b.Generate(SystemAsteroids, false, 1)

	prev := b.ObstructionCount()
	for i := 0; i < 50; i++ {
		b.Erode()
		n := b.ObstructionCount()
		require.GreaterOrEqual(t, n, prev-1)
		prev = n
	}

	still := NewBattlefield(rand.New(rand.NewSource(9)), 0)
	still.Generate(SystemAsteroids, false, 1)
	assert.False(t, still.Erode())
}

func TestParseSystemType(t *testing.T) {
	typ, err := ParseSystemType("nebula")
	require.NoError(t, err)
	assert.Equal(t, SystemNebula, typ)

	typ, err = ParseSystemType("")
	require.NoError(t, err)
	assert.Equal(t, SystemNormal, typ)

	_, err = ParseSystemType("wormhole")
	assert.Error(t, err)

	assert.Equal(t, "dense_asteroids", SystemDenseAsteroids.String())
}
