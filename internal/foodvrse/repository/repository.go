package repository

import (
	"context"
	"errors"

	"github.com/25x8/foodvrse/internal/foodvrse/models"
)

var (
	// ErrConflict is returned when a unique key (login, purchase id, friendship) already exists
	ErrConflict = errors.New("already exists")
	// ErrVersionConflict is returned when progress changed between read and write
	ErrVersionConflict = errors.New("user progress version conflict")
	// ErrAlreadyApplied is returned when a purchase was already folded into progress
	ErrAlreadyApplied = errors.New("purchase already applied")
)

// Repository defines the interface for data access operations
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, login, passwordHash, displayName string) (string, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Purchase operations
	CreatePurchase(ctx context.Context, purchase *models.PurchaseRecord) error
	GetPurchaseByID(ctx context.Context, id string) (*models.PurchaseRecord, error)
	GetUserPurchases(ctx context.Context, userID string) ([]models.PurchaseRecord, error)
	GetPendingPurchases(ctx context.Context, limit int) ([]models.PurchaseRecord, error)
	UpdatePurchaseStatus(ctx context.Context, id, status string) error

	// Progress operations.
	// SaveUserProgress writes progress only if the stored version still equals
	// progress.Version (0 meaning "no row yet") and records purchaseID as applied,
	// both in one transaction. It returns the stored row with its new version.
	GetUserProgress(ctx context.Context, userID string) (*models.UserProgress, error)
	SaveUserProgress(ctx context.Context, progress *models.UserProgress, purchaseID string) (*models.UserProgress, error)

	// Friend operations
	AddFriend(ctx context.Context, userID, friendID string) error
	GetFriendProfiles(ctx context.Context, userID string) ([]models.Profile, error)

	// Initialize and close
	InitDB(databaseURI string) error
	Close() error
}
