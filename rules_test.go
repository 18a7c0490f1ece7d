package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnifiedFieldClampsOutOfRange(t *testing.T) {
	var f unifiedField
	f.apply(1.5, -0.5, 0.5)
	require.Equal(t, 1.0, f.i)
	require.Equal(t, 0.0, f.e)
	require.Equal(t, 0.5, f.r)
	require.True(t, f.set)
}

func TestUnifiedFieldIdempotentClamping(t *testing.T) {
	var f unifiedField
	f.apply(0.3, 0.3, 0.3)
	first := f
	f.apply(0.3, 0.3, 0.3)
	require.Equal(t, first, f)
}

func TestDerivedRules(t *testing.T) {
	f := unifiedField{i: 0.5, e: 0.5, r: 0.5}
	require.Equal(t, 0.25, f.gravitational().pull)
	require.Equal(t, 0.25, f.tension().strain)
	require.Equal(t, 0.5, f.entropy().disorder)
	require.Equal(t, 0.5, f.connection().bond)
	require.Equal(t, 0.25, f.memory().retention)
	require.Equal(t, 1.0, f.orbital().period)
}

func TestOrbitalRuleZeroRelation(t *testing.T) {
	f := unifiedField{i: 1, e: 0, r: 0}
	require.Equal(t, 0.0, f.orbital().period)
}

func TestFateSchedulerLimitAndCollapse(t *testing.T) {
	f := newFateScheduler()
	f.setLimit(4)
	require.Equal(t, 0.25, f.threshold)

	f.tick() // usage 1, gain 1/2
	f.tick() // usage 2, gain 2/3, delta 1/6 < 1/4
	require.True(t, f.shouldCollapse())
}

func TestFateSchedulerLearnRecall(t *testing.T) {
	f := newFateScheduler()
	f.learn("k", "v1")
	f.learn("k", "v2")
	v, ok := f.recall("k")
	require.True(t, ok)
	require.Equal(t, "v2", v)
	require.Equal(t, 1, f.patternCount)
}

func TestFateSchedulerMode(t *testing.T) {
	f := newFateScheduler()
	require.Equal(t, "off", f.mode())
	f.enabled = true
	require.Equal(t, "on", f.mode())
}

func TestTileManagerDefaultPools(t *testing.T) {
	tiles := newTileManager()
	require.Len(t, tiles.pools, 4)
	names := make(map[string]bool)
	for _, p := range tiles.pools {
		names[p.name] = true
	}
	for _, want := range []string{"blackhole", "meshbrain", "multinova", "baseforce"} {
		require.True(t, names[want], "missing pool %s", want)
	}
}

func TestTileManagerTouch(t *testing.T) {
	tiles := newTileManager()
	tiles.touch("blackhole", 10)
	tiles.touch("blackhole", 5)
	require.Equal(t, uint64(15), tiles.totalUsed())
}

func TestProbePlatformLearnsFate(t *testing.T) {
	f := newFateScheduler()
	info := probePlatform(f)
	require.Equal(t, 1, info.id)
	v, ok := f.recall("platform.id")
	require.True(t, ok)
	require.Equal(t, "1", v)
}
