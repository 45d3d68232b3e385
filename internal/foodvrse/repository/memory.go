package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/25x8/foodvrse/internal/foodvrse/models"
)

// MemoryRepository keeps all state in process memory. It is used when no
// database is configured and as the storage fake in tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	users     map[string]models.User
	logins    map[string]string
	purchases map[string]models.PurchaseRecord
	uploaded  map[string]time.Time
	progress  map[string]models.UserProgress
	applied   map[string]struct{}
	friends   map[string]map[string]struct{}
	now       func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     make(map[string]models.User),
		logins:    make(map[string]string),
		purchases: make(map[string]models.PurchaseRecord),
		uploaded:  make(map[string]time.Time),
		progress:  make(map[string]models.UserProgress),
		applied:   make(map[string]struct{}),
		friends:   make(map[string]map[string]struct{}),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) InitDB(string) error { return nil }
func (r *MemoryRepository) Close() error        { return nil }

func (r *MemoryRepository) CreateUser(_ context.Context, login, passwordHash, displayName string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.logins[login]; ok {
		return "", ErrConflict
	}
	id := uuid.NewString()
	r.users[id] = models.User{
		ID:           id,
		Login:        login,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		CreatedAt:    r.now(),
	}
	r.logins[login] = id
	return id, nil
}

func (r *MemoryRepository) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.logins[login]
	if !ok {
		return nil, nil
	}
	user := r.users[id]
	return &user, nil
}

func (r *MemoryRepository) GetUserByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (r *MemoryRepository) CreatePurchase(_ context.Context, purchase *models.PurchaseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.purchases[purchase.ID]; ok {
		return ErrConflict
	}
	stored := *purchase
	stored.Items = append([]models.LineItem(nil), purchase.Items...)
	if stored.Status == "" {
		stored.Status = models.StatusNew
	}
	r.purchases[stored.ID] = stored
	r.uploaded[stored.ID] = r.now()
	return nil
}

func (r *MemoryRepository) GetPurchaseByID(_ context.Context, id string) (*models.PurchaseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.purchases[id]
	if !ok {
		return nil, nil
	}
	p.Items = append([]models.LineItem(nil), p.Items...)
	return &p, nil
}

func (r *MemoryRepository) GetUserPurchases(_ context.Context, userID string) ([]models.PurchaseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.PurchaseRecord
	for _, p := range r.purchases {
		if p.UserID == userID {
			p.Items = append([]models.LineItem(nil), p.Items...)
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.uploaded[out[i].ID].After(r.uploaded[out[j].ID])
	})
	return out, nil
}

func (r *MemoryRepository) GetPendingPurchases(_ context.Context, limit int) ([]models.PurchaseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.PurchaseRecord
	for _, p := range r.purchases {
		if p.Status == models.StatusNew {
			p.Items = append([]models.LineItem(nil), p.Items...)
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := r.uploaded[out[i].ID], r.uploaded[out[j].ID]
		if ti.Equal(tj) {
			return out[i].ID < out[j].ID
		}
		return ti.Before(tj)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) UpdatePurchaseStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.purchases[id]
	if !ok {
		return nil
	}
	p.Status = status
	r.purchases[id] = p
	return nil
}

func (r *MemoryRepository) GetUserProgress(_ context.Context, userID string) (*models.UserProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.progress[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *MemoryRepository) SaveUserProgress(_ context.Context, progress *models.UserProgress, purchaseID string) (*models.UserProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if purchaseID != "" {
		if _, ok := r.applied[purchaseID]; ok {
			return nil, ErrAlreadyApplied
		}
	}

	current, exists := r.progress[progress.UserID]
	switch {
	case progress.Version == 0 && exists:
		return nil, ErrVersionConflict
	case progress.Version != 0 && (!exists || current.Version != progress.Version):
		return nil, ErrVersionConflict
	}

	stored := *progress
	now := r.now()
	if exists {
		stored.CreatedAt = current.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	stored.Version = progress.Version + 1
	r.progress[stored.UserID] = stored

	if purchaseID != "" {
		r.applied[purchaseID] = struct{}{}
		if p, ok := r.purchases[purchaseID]; ok {
			p.Status = models.StatusProcessed
			r.purchases[purchaseID] = p
		}
	}
	return &stored, nil
}

func (r *MemoryRepository) AddFriend(_ context.Context, userID, friendID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.friends[userID][friendID]; ok {
		return ErrConflict
	}
	link := func(a, b string) {
		if r.friends[a] == nil {
			r.friends[a] = make(map[string]struct{})
		}
		r.friends[a][b] = struct{}{}
	}
	link(userID, friendID)
	link(friendID, userID)
	return nil
}

func (r *MemoryRepository) GetFriendProfiles(_ context.Context, userID string) ([]models.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Profile
	for id := range r.friends[userID] {
		u := r.users[id]
		out = append(out, models.Profile{UserID: id, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
