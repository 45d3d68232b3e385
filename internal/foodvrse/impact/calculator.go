package impact

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/25x8/foodvrse/internal/foodvrse/models"
)

// Per-unit coefficients of a rescued mystery bag
const (
	CO2GramsPerUnit    = 2500
	WaterLitersPerUnit = 1000
	XPPerUnit          = 10
)

// Validate checks the invariants ComputeDelta relies on, including that
// every product and running sum it computes fits in an int64.
func Validate(purchase models.PurchaseRecord) error {
	if len(purchase.Items) == 0 {
		return invalid("items", "purchase has no line items")
	}
	if purchase.Total < 0 {
		return invalid("total", "must not be negative, got %d", purchase.Total)
	}

	var meals, paid, saved int64
	for i, item := range purchase.Items {
		field := fmt.Sprintf("items[%d]", i)
		if item.Quantity < 1 {
			return invalid(field+".quantity", "must be a positive integer, got %d", item.Quantity)
		}
		if item.UnitPrice < 0 {
			return invalid(field+".unit_price", "must not be negative, got %d", item.UnitPrice)
		}
		if item.OriginalPrice < item.UnitPrice {
			return invalid(field+".original_price", "%d is below unit price %d", item.OriginalPrice, item.UnitPrice)
		}
		// original*quantity bounds both the paid and the saved amount of the line
		if !mulFits(item.OriginalPrice, item.Quantity) {
			return invalid(field+".original_price", "%d x %d is out of range", item.OriginalPrice, item.Quantity)
		}
		if !addFits(meals, item.Quantity) {
			return invalid(field+".quantity", "total quantity is out of range")
		}
		meals += item.Quantity

		linePaid := item.UnitPrice * item.Quantity
		lineSaved := (item.OriginalPrice - item.UnitPrice) * item.Quantity
		if !addFits(paid, linePaid) || !addFits(saved, lineSaved) {
			return invalid(field+".original_price", "purchase amount is out of range")
		}
		paid += linePaid
		saved += lineSaved
	}

	if !mulFits(meals, CO2GramsPerUnit) {
		return invalid("items", "total quantity %d is out of range", meals)
	}
	return nil
}

// ValidateDelta rejects deltas that would decrease accumulated counters
func ValidateDelta(delta models.ImpactDelta) error {
	fields := []struct {
		name  string
		value int64
	}{
		{"meals_saved", delta.MealsSaved},
		{"co2_saved_grams", delta.CO2SavedGrams},
		{"money_saved", delta.MoneySaved},
		{"water_saved_liters", delta.WaterSavedLiters},
		{"experience_points", delta.ExperiencePoints},
	}
	for _, f := range fields {
		if f.value < 0 {
			return invalid("delta."+f.name, "must not be negative, got %d", f.value)
		}
	}
	return nil
}

// ComputeDelta derives the impact of a completed purchase.
// It has no side effects and returns the same delta for the same input.
func ComputeDelta(purchase models.PurchaseRecord) (models.ImpactDelta, error) {
	if err := Validate(purchase); err != nil {
		return models.ImpactDelta{}, err
	}

	var delta models.ImpactDelta
	for _, item := range purchase.Items {
		delta.MealsSaved += item.Quantity
		delta.MoneySaved += (item.OriginalPrice - item.UnitPrice) * item.Quantity
	}
	delta.CO2SavedGrams = delta.MealsSaved * CO2GramsPerUnit
	delta.WaterSavedLiters = delta.MealsSaved * WaterLitersPerUnit
	delta.ExperiencePoints = delta.MealsSaved * XPPerUnit

	return delta, nil
}

// mulFits reports whether a*b fits in an int64. Both operands must be non-negative.
func mulFits(a, b int64) bool {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	return hi == 0 && lo <= math.MaxInt64
}

// addFits reports whether a+b fits in an int64. Both operands must be non-negative.
func addFits(a, b int64) bool {
	return a <= math.MaxInt64-b
}
