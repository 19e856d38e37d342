package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, m *Migrator) error { return nil }

func TestPendingStepsFiltersApplied(t *testing.T) {
	all := []Step{
		{Version: 1, Name: "a", Run: noop},
		{Version: 2, Name: "b", Run: noop},
		{Version: 3, Name: "c", Run: noop},
	}

	pending := pendingSteps(map[int]bool{1: true, 3: true}, all)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)
}

func TestPendingStepsAllApplied(t *testing.T) {
	all := steps()
	applied := make(map[int]bool, len(all))
	for _, step := range all {
		applied[step.Version] = true
	}
	assert.Empty(t, pendingSteps(applied, all), "全部应用过后重启不再执行任何步骤")
}

func TestPendingStepsSortedByVersion(t *testing.T) {
	all := []Step{
		{Version: 5, Name: "e", Run: noop},
		{Version: 2, Name: "b", Run: noop},
		{Version: 4, Name: "d", Run: noop},
	}

	pending := pendingSteps(map[int]bool{}, all)
	require.Len(t, pending, 3)
	assert.Equal(t, []int{2, 4, 5}, []int{pending[0].Version, pending[1].Version, pending[2].Version})
}

func TestStepsVersionsUniqueAndOrdered(t *testing.T) {
	seen := make(map[int]bool)
	last := 0
	for _, step := range steps() {
		assert.False(t, seen[step.Version], "版本号不能重复")
		seen[step.Version] = true
		assert.Greater(t, step.Version, last)
		last = step.Version
		assert.NotEmpty(t, step.Name)
		assert.NotNil(t, step.Run)
	}
}
