package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpine215/a32nx/internal/ir"
)

func TestAnalyzeDependencies_Independent(t *testing.T) {
	warnings := AnalyzeDependencies([]ir.Rule{
		copyRule(ir.PreTick, ir.Aircraft("SWITCH", "Bool", 1), ir.Aspect("RELAY")),
		copyRule(ir.PostTick, ir.Aspect("LAMP"), ir.Aircraft("LIGHT", "Bool", 1)),
	})
	assert.Empty(t, warnings)
}

func TestAnalyzeDependencies_SamePhaseChain(t *testing.T) {
	warnings := AnalyzeDependencies([]ir.Rule{
		copyRule(ir.PreTick, ir.Aspect("X"), ir.Aspect("Y")),
		copyRule(ir.PreTick, ir.Aspect("Y"), ir.Aspect("Z")),
	})
	require.Len(t, warnings, 1)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "phase-start")
}

func TestAnalyzeDependencies_CrossPhaseChainIsFine(t *testing.T) {
	warnings := AnalyzeDependencies([]ir.Rule{
		copyRule(ir.PreTick, ir.Aspect("X"), ir.Aspect("Y")),
		copyRule(ir.PostTick, ir.Aspect("Y"), ir.Aspect("Z")),
	})
	assert.Empty(t, warnings)
}

func TestAnalyzeDependencies_FeedbackLoop(t *testing.T) {
	a := ir.Aircraft("A", "Bool", 1)
	b := ir.Aspect("B")
	warnings := AnalyzeDependencies([]ir.Rule{
		copyRule(ir.PreTick, a, b),
		copyRule(ir.PostTick, b, a),
	})
	require.Len(t, warnings, 1)
	assert.Equal(t, "info", warnings[0].Level)
	assert.Equal(t, []string{a.String(), b.String(), a.String()}, warnings[0].Path)
}

func TestAnalyzeDependencies_SelfLoop(t *testing.T) {
	x := ir.Aspect("X")
	warnings := AnalyzeDependencies([]ir.Rule{
		mapRule(ir.PreTick, x, func(v float64) float64 { return v + 1 }, x),
	})
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"L:X", "L:X"}, warnings[0].Path)
}
