package placement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeIndexMatchesFormula(t *testing.T) {
	cases := []struct {
		fragmentID, replicaID, r, m, want int
	}{
		{0, 0, 2, 3, 0},
		{0, 1, 2, 3, 1},
		{1, 0, 2, 3, 2},
		{1, 1, 2, 3, 0},
		{5, 2, 3, 4, (5*3 + 2) % 4},
	}
	for _, c := range cases {
		got := NodeIndex(c.fragmentID, c.replicaID, c.r, c.m)
		require.Equal(t, c.want, got)
	}
}

func TestFileNameUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		for r := 0; r < 3; r++ {
			name := FileName(i, r)
			require.False(t, seen[name])
			seen[name] = true
		}
	}
}

func TestPlacerWarnsOnCollocation(t *testing.T) {
	p := New(2, 3)
	require.True(t, p.Warns())

	q := New(3, 2)
	require.False(t, q.Warns())
}

func TestPlacerNodeIndexMatchesFreeFunction(t *testing.T) {
	p := New(4, 3)
	require.Equal(t, NodeIndex(5, 2, 3, 4), p.NodeIndex(5, 2))
}
