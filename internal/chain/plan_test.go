package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlan_BelowThresholdKeepsStandaloneTip(t *testing.T) {
	// 40*2 = 80 <= 100: the candidate stands alone and the chain grows.
	fold := Plan(40, []int{100}, Options{})
	assert.Equal(t, 0, fold)
}

func TestPlan_AboveThresholdMergesTip(t *testing.T) {
	// 60*2 = 120 > 100: merge into the existing tip.
	fold := Plan(60, []int{100}, Options{})
	assert.Equal(t, 1, fold)
}

func TestPlan_CustomSizeMultiple(t *testing.T) {
	assert.Equal(t, 0, Plan(60, []int{100}, Options{SizeMultiple: 1}))
	assert.Equal(t, 1, Plan(30, []int{100}, Options{SizeMultiple: 4}))
}

func TestPlan_MaxCommitsForcesMerge(t *testing.T) {
	// The size rule alone would keep the candidate (60*2 <= 1000), but the
	// candidate exceeds the commit cap.
	fold := Plan(60, []int{1000}, Options{MaxCommits: 50})
	assert.GreaterOrEqual(t, fold, 1)
}

func TestPlan_MaxCommitsRespectedWhenUnder(t *testing.T) {
	fold := Plan(40, []int{1000}, Options{MaxCommits: 50})
	assert.Equal(t, 0, fold)
}

func TestPlan_MergeCascadesUpTheChain(t *testing.T) {
	// Tip-first sizes. 60*2 > 100 merges to 160; 160*2 > 120 merges again.
	fold := Plan(60, []int{100, 120}, Options{})
	assert.Equal(t, 2, fold)

	// The cascade stops once the grown candidate fits under an older file.
	fold = Plan(8, []int{10, 100}, Options{})
	assert.Equal(t, 1, fold)
}

func TestPlan_EmptyChain(t *testing.T) {
	assert.Equal(t, 0, Plan(25, nil, Options{}))
}
