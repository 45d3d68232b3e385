package models

import (
	"time"
)

// User represents a registered user
type User struct {
	ID           string    `json:"id"`
	Login        string    `json:"login"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// LineItem is one mystery bag line of a completed purchase.
// Prices are in minor currency units (cents).
type LineItem struct {
	Name          string `json:"name"`
	Quantity      int64  `json:"quantity"`
	UnitPrice     int64  `json:"unit_price"`
	OriginalPrice int64  `json:"original_price"`
}

// PurchaseRecord is a completed purchase as delivered by the order subsystem
type PurchaseRecord struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Total     int64      `json:"total"`
	Status    string     `json:"status"`
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

// ImpactDelta is the impact derived from a single purchase
type ImpactDelta struct {
	MealsSaved       int64 `json:"meals_saved"`
	CO2SavedGrams    int64 `json:"co2_saved_grams"`
	MoneySaved       int64 `json:"money_saved"`
	WaterSavedLiters int64 `json:"water_saved_liters"`
	ExperiencePoints int64 `json:"experience_points"`
}

// CO2SavedKg returns the CO2 saving in kilograms
func (d ImpactDelta) CO2SavedKg() float64 {
	return float64(d.CO2SavedGrams) / 1000
}

// UserProgress is the running impact total of a user
type UserProgress struct {
	UserID                string     `json:"user_id"`
	TotalMealsSaved       int64      `json:"total_meals_saved"`
	TotalCO2SavedGrams    int64      `json:"total_co2_saved_grams"`
	TotalMoneySaved       int64      `json:"total_money_saved"`
	TotalWaterSavedLiters int64      `json:"total_water_saved_liters"`
	ExperiencePoints      int64      `json:"experience_points"`
	CurrentStreak         int        `json:"current_streak"`
	LongestStreak         int        `json:"longest_streak"`
	Level                 int        `json:"level"`
	LastPurchaseAt        *time.Time `json:"last_purchase_at,omitempty"`
	Version               int64      `json:"-"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TotalCO2SavedKg returns the accumulated CO2 saving in kilograms
func (p UserProgress) TotalCO2SavedKg() float64 {
	return float64(p.TotalCO2SavedGrams) / 1000
}

// FriendProgress is a ranked leaderboard row
type FriendProgress struct {
	Rank        int          `json:"rank"`
	DisplayName string       `json:"display_name"`
	AvatarURL   string       `json:"avatar_url,omitempty"`
	Progress    UserProgress `json:"progress"`
}

// Profile is the display identity of a user as seen by friends
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Notification is a user-facing message summarizing an event
type Notification struct {
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Purchase statuses
const (
	StatusNew       = "NEW"
	StatusInvalid   = "INVALID"
	StatusProcessed = "PROCESSED"
)
