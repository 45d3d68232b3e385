package impact

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/25x8/foodvrse/internal/foodvrse/models"
)

var day0 = time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)

func TestMerge_FirstPurchase(t *testing.T) {
	delta, err := ComputeDelta(twoBagPurchase())
	require.NoError(t, err)

	p := Merge(nil, "u-1", delta, day0, PurchaseStreak{})

	assert.Equal(t, "u-1", p.UserID)
	assert.Equal(t, int64(3), p.TotalMealsSaved)
	assert.Equal(t, int64(400), p.TotalMoneySaved)
	assert.Equal(t, int64(30), p.ExperiencePoints)
	assert.Equal(t, int64(7500), p.TotalCO2SavedGrams)
	assert.Equal(t, int64(3000), p.TotalWaterSavedLiters)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 1, p.LongestStreak)
	assert.Equal(t, 1, p.Level)
	require.NotNil(t, p.LastPurchaseAt)
	assert.Equal(t, day0, *p.LastPurchaseAt)
}

func TestMerge_FirstPurchaseLevelFollowsXP(t *testing.T) {
	p := Merge(nil, "u-1", models.ImpactDelta{MealsSaved: 12, ExperiencePoints: 120}, day0, nil)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 2, p.Level)
}

func TestCheckHeadroom(t *testing.T) {
	delta := models.ImpactDelta{MealsSaved: 1, CO2SavedGrams: 2500, WaterSavedLiters: 1000, ExperiencePoints: 10}
	require.NoError(t, CheckHeadroom(nil, delta))

	p := Merge(nil, "u-1", delta, day0, nil)
	require.NoError(t, CheckHeadroom(&p, delta))

	p.ExperiencePoints = math.MaxInt64 - 5
	err := CheckHeadroom(&p, delta)
	assert.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "progress.experience_points", verr.Field)
}

func TestMerge_SecondPurchase(t *testing.T) {
	first, err := ComputeDelta(twoBagPurchase())
	require.NoError(t, err)
	p := Merge(nil, "u-1", first, day0, nil)

	second := models.ImpactDelta{MealsSaved: 2, ExperiencePoints: 20, CO2SavedGrams: 5000, WaterSavedLiters: 2000}
	next := Merge(&p, "u-1", second, day0.Add(time.Hour), nil)

	assert.Equal(t, int64(5), next.TotalMealsSaved)
	assert.Equal(t, 2, next.CurrentStreak)
	assert.Equal(t, 2, next.LongestStreak)
	assert.Equal(t, int64(3), p.TotalMealsSaved, "input must not be mutated")
}

func TestMerge_LevelBoundary(t *testing.T) {
	p := Merge(nil, "u-1", models.ImpactDelta{MealsSaved: 9, ExperiencePoints: 90}, day0, nil)
	assert.Equal(t, 1, p.Level)

	p = Merge(&p, "u-1", models.ImpactDelta{MealsSaved: 1, ExperiencePoints: 10}, day0, nil)
	assert.Equal(t, int64(100), p.ExperiencePoints)
	assert.Equal(t, 2, p.Level)
}

func TestMerge_LongestNeverBelowCurrent(t *testing.T) {
	var p *models.UserProgress
	at := day0
	gaps := []time.Duration{0, 24 * time.Hour, 24 * time.Hour, 72 * time.Hour, 24 * time.Hour, time.Hour}
	for _, gap := range gaps {
		at = at.Add(gap)
		next := Merge(p, "u-1", models.ImpactDelta{MealsSaved: 1, ExperiencePoints: 10}, at, DailyStreak{})
		assert.GreaterOrEqual(t, next.LongestStreak, next.CurrentStreak)
		p = &next
	}
	assert.Equal(t, 3, p.LongestStreak)
	assert.Equal(t, 2, p.CurrentStreak)
}

func TestDailyStreak(t *testing.T) {
	last := day0
	tests := []struct {
		name    string
		current int
		last    *time.Time
		at      time.Time
		want    int
	}{
		{"first purchase", 0, nil, day0, 1},
		{"same day", 3, &last, day0.Add(4 * time.Hour), 3},
		{"next day", 3, &last, day0.Add(20 * time.Hour), 4},
		{"gap resets", 3, &last, day0.Add(49 * time.Hour), 1},
		{"older event", 3, &last, day0.Add(-30 * time.Hour), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DailyStreak{}.Next(tt.current, tt.last, tt.at))
		})
	}
}

func TestParseStreakPolicy(t *testing.T) {
	p, err := ParseStreakPolicy("")
	require.NoError(t, err)
	assert.IsType(t, PurchaseStreak{}, p)

	p, err = ParseStreakPolicy("Daily")
	require.NoError(t, err)
	assert.IsType(t, DailyStreak{}, p)

	_, err = ParseStreakPolicy("weekly")
	assert.Error(t, err)
}
