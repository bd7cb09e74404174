package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheduleScore(t *testing.T) {
	t.Run("weighted sum of sub-scores", func(t *testing.T) {
		// slots: 2*10=20, distance: (20-5)/20*30=22.5, child: 2*5=10, bonus: 2*2=4
		score := ScheduleScore(2, 5, 20, 2)
		assert.Equal(t, 57, score)
	})

	t.Run("perfect conditions cap at 100", func(t *testing.T) {
		score := ScheduleScore(10, 0, 20, 10)
		assert.Equal(t, 100, score)
	})

	t.Run("sub-scores are individually capped", func(t *testing.T) {
		// 5 slots already hit both the quantity cap (40) and the bonus cap (10)
		assert.Equal(t, ScheduleScore(5, 10, 20, 0), ScheduleScore(50, 10, 20, 0))
	})

	t.Run("distance at threshold contributes zero", func(t *testing.T) {
		score := ScheduleScore(1, 20, 20, 0)
		assert.Equal(t, 12, score) // 10 + 0 + 0 + 2
	})

	t.Run("distance beyond threshold never goes negative", func(t *testing.T) {
		assert.Equal(t, 12, ScheduleScore(1, 30, 20, 0))
	})

	t.Run("zero max distance contributes zero", func(t *testing.T) {
		assert.Equal(t, 12, ScheduleScore(1, 5, 0, 0))
	})
}

func TestProfileScore(t *testing.T) {
	t.Run("same city with exact age match", func(t *testing.T) {
		pairs := []AgePair{{OwnerAge: 4, PeerAge: 4}}
		// distance 0 -> 50, pair diff 0 flex 2 -> 50
		assert.Equal(t, 100, ProfileScore(0, pairs, 2))
	})

	t.Run("age difference at the flexibility edge contributes nothing", func(t *testing.T) {
		pairs := []AgePair{{OwnerAge: 4, PeerAge: 6}}
		assert.Equal(t, 25, ProfileScore(25, pairs, 2))
	})

	t.Run("distance at or beyond reference contributes zero", func(t *testing.T) {
		pairs := []AgePair{{OwnerAge: 3, PeerAge: 3}}
		assert.Equal(t, 50, ProfileScore(50, pairs, 2))
		assert.Equal(t, 50, ProfileScore(80, pairs, 2))
	})

	t.Run("multiple pairs clamp at 100", func(t *testing.T) {
		pairs := []AgePair{
			{OwnerAge: 3, PeerAge: 3},
			{OwnerAge: 5, PeerAge: 5},
			{OwnerAge: 7, PeerAge: 7},
		}
		assert.Equal(t, 100, ProfileScore(0, pairs, 2))
	})

	t.Run("zero flexibility rewards only exact matches", func(t *testing.T) {
		exact := []AgePair{{OwnerAge: 4, PeerAge: 4}}
		assert.Equal(t, 100, ProfileScore(0, exact, 0))
	})

	t.Run("score stays within bounds", func(t *testing.T) {
		for d := 0.0; d <= 200; d += 17 {
			for flex := 0; flex <= 5; flex++ {
				score := ProfileScore(d, []AgePair{{OwnerAge: 2, PeerAge: 2}, {OwnerAge: 9, PeerAge: 8}}, flex)
				assert.GreaterOrEqual(t, score, 0)
				assert.LessOrEqual(t, score, 100)
			}
		}
	})
}

func TestChildCompatibility(t *testing.T) {
	t.Run("counts cross pairs within flexibility", func(t *testing.T) {
		// all cross pairs except 3 vs 8 are within two years
		count := ChildCompatibility([]int{3, 6}, []int{4, 5, 8}, 2)
		assert.Equal(t, 5, count)
	})

	t.Run("no dependents means no compatibility", func(t *testing.T) {
		assert.Equal(t, 0, ChildCompatibility(nil, []int{4}, 2))
		assert.Equal(t, 0, ChildCompatibility([]int{4}, nil, 2))
	})
}

func TestAgeCompatiblePairs(t *testing.T) {
	pairs := AgeCompatiblePairs([]int{3, 9}, []int{4, 10}, 2)

	assert.Equal(t, []AgePair{
		{OwnerAge: 3, PeerAge: 4},
		{OwnerAge: 9, PeerAge: 10},
	}, pairs)
}
