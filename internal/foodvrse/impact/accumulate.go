package impact

import (
	"time"

	"github.com/25x8/foodvrse/internal/foodvrse/models"
)

// Merge folds a delta into the current progress and returns the new record.
// A nil current starts a fresh record. The input is never mutated.
func Merge(current *models.UserProgress, userID string, delta models.ImpactDelta, at time.Time, policy StreakPolicy) models.UserProgress {
	purchasedAt := at.UTC()
	if policy == nil {
		policy = PurchaseStreak{}
	}

	if current == nil {
		return models.UserProgress{
			UserID:                userID,
			TotalMealsSaved:       delta.MealsSaved,
			TotalCO2SavedGrams:    delta.CO2SavedGrams,
			TotalMoneySaved:       delta.MoneySaved,
			TotalWaterSavedLiters: delta.WaterSavedLiters,
			ExperiencePoints:      delta.ExperiencePoints,
			CurrentStreak:         1,
			LongestStreak:         1,
			Level:                 LevelFor(delta.ExperiencePoints),
			LastPurchaseAt:        &purchasedAt,
		}
	}

	next := *current
	next.TotalMealsSaved += delta.MealsSaved
	next.TotalCO2SavedGrams += delta.CO2SavedGrams
	next.TotalMoneySaved += delta.MoneySaved
	next.TotalWaterSavedLiters += delta.WaterSavedLiters
	next.ExperiencePoints += delta.ExperiencePoints

	next.CurrentStreak = policy.Next(current.CurrentStreak, current.LastPurchaseAt, purchasedAt)
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	next.Level = LevelFor(next.ExperiencePoints)

	if current.LastPurchaseAt == nil || purchasedAt.After(*current.LastPurchaseAt) {
		next.LastPurchaseAt = &purchasedAt
	}
	return next
}

// CheckHeadroom reports a ValidationError when adding delta to current
// would overflow any accumulated counter.
func CheckHeadroom(current *models.UserProgress, delta models.ImpactDelta) error {
	if current == nil {
		return nil
	}
	totals := []struct {
		name         string
		total, delta int64
	}{
		{"total_meals_saved", current.TotalMealsSaved, delta.MealsSaved},
		{"total_co2_saved_grams", current.TotalCO2SavedGrams, delta.CO2SavedGrams},
		{"total_money_saved", current.TotalMoneySaved, delta.MoneySaved},
		{"total_water_saved_liters", current.TotalWaterSavedLiters, delta.WaterSavedLiters},
		{"experience_points", current.ExperiencePoints, delta.ExperiencePoints},
	}
	for _, t := range totals {
		if !addFits(t.total, t.delta) {
			return invalid("progress."+t.name, "adding %d to %d is out of range", t.delta, t.total)
		}
	}
	return nil
}
