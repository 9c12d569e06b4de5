package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryGuardClaimOnce(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard()

	claimed, err := g.Claim(ctx, "H1", 0)
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = g.Claim(ctx, "H1", 0)
	require.NoError(t, err)
	require.False(t, claimed)
}

func TestMemoryGuardIndependentKeys(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard()

	claimed, err := g.Claim(ctx, "H1", 0)
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = g.Claim(ctx, "H2", 0)
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestMemoryGuardReleaseAllowsReclaim(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard()

	_, err := g.Claim(ctx, "H1", 0)
	require.NoError(t, err)

	require.NoError(t, g.Release(ctx, "H1"))

	claimed, err := g.Claim(ctx, "H1", 0)
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestMemoryGuardExpiry(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard()

	claimed, err := g.Claim(ctx, "H1", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, claimed)

	time.Sleep(20 * time.Millisecond)

	claimed, err = g.Claim(ctx, "H1", 0)
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestMemoryGuardClosedRejectsClaim(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard()
	require.NoError(t, g.Close())

	_, err := g.Claim(ctx, "H1", 0)
	require.ErrorIs(t, err, ErrClosed)
}
