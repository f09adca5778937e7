package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsIndependentOfOriginal(t *testing.T) {
	g, errs := Build(sirFramework(), sirDatabook())
	require.Empty(t, errs)
	require.NoError(t, g.Reset(4))

	clone := g.Clone()

	origPop := g.Populations[0]
	clonePop := clone.Populations[0]

	origSus, _ := origPop.GetComp("sus")
	cloneSus, _ := clonePop.GetComp("sus")
	assert.NotSame(t, origSus, cloneSus)
	assert.Equal(t, origSus.Initial, cloneSus.Initial)

	origSus.Vals[1] = 999
	assert.NotEqual(t, origSus.Vals[1], cloneSus.Vals[1])

	origRate, _ := origPop.GetParam("rate")
	cloneRate, _ := clonePop.GetParam("rate")
	require.Len(t, cloneRate.DrivenLinks, len(origRate.DrivenLinks))
	assert.NotSame(t, origRate.DrivenLinks[0], cloneRate.DrivenLinks[0])
}

func TestCloneLinksPointWithinClone(t *testing.T) {
	g, errs := Build(sirFramework(), sirDatabook())
	require.Empty(t, errs)
	require.NoError(t, g.Reset(2))
	clone := g.Clone()

	pop := clone.Populations[0]
	inf, _ := pop.GetComp("inf")
	require.Len(t, inf.Outlinks, 1)
	assert.Same(t, inf.Outlinks[0].From, inf)
	rec, _ := pop.GetComp("rec")
	assert.Same(t, inf.Outlinks[0].To, rec)
}
