package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/25x8/foodvrse/internal/foodvrse/impact"
	"github.com/25x8/foodvrse/internal/foodvrse/middleware"
	"github.com/25x8/foodvrse/internal/foodvrse/models"
	"github.com/25x8/foodvrse/internal/foodvrse/repository"
	"github.com/25x8/foodvrse/internal/foodvrse/service"
)

// purchaseRequest is an order-completed event. Prices are major currency units.
type purchaseRequest struct {
	ID        string                `json:"id"`
	Total     *decimal.Decimal      `json:"total"`
	CreatedAt time.Time             `json:"created_at"`
	Items     []purchaseItemRequest `json:"items"`
}

type purchaseItemRequest struct {
	Name          string          `json:"name"`
	Quantity      int64           `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
}

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

func toMinorUnits(field string, d decimal.Decimal) (int64, error) {
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, &impact.ValidationError{Field: field, Reason: "more than two decimal places"}
	}
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, &impact.ValidationError{Field: field, Reason: fmt.Sprintf("%s is out of range", d.String())}
	}
	return cents.IntPart(), nil
}

func (req purchaseRequest) toRecord(userID string) (models.PurchaseRecord, error) {
	record := models.PurchaseRecord{
		ID:        req.ID,
		UserID:    userID,
		Status:    models.StatusNew,
		CreatedAt: req.CreatedAt.UTC(),
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	for i, item := range req.Items {
		price, err := toMinorUnits(fmt.Sprintf("items[%d].price", i), item.Price)
		if err != nil {
			return record, err
		}
		original, err := toMinorUnits(fmt.Sprintf("items[%d].original_price", i), item.OriginalPrice)
		if err != nil {
			return record, err
		}
		record.Items = append(record.Items, models.LineItem{
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     price,
			OriginalPrice: original,
		})
	}

	if req.Total != nil {
		t, err := toMinorUnits("total", *req.Total)
		if err != nil {
			return record, err
		}
		record.Total = t
	}
	if err := impact.Validate(record); err != nil {
		return record, err
	}

	// Validate guarantees the paid amount fits in an int64
	if req.Total == nil {
		for _, item := range record.Items {
			record.Total += item.UnitPrice * item.Quantity
		}
	}
	return record, nil
}

// CompletePurchase accepts an order-completed event for the caller and applies its impact.
// 201 with the updated progress when applied right away, 202 when the background
// processor will apply it, 200 when the caller already submitted this purchase.
func (h *Handler) CompletePurchase(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	record, err := req.toRecord(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	err = h.Repo.CreatePurchase(ctx, &record)
	if errors.Is(err, repository.ErrConflict) {
		existing, getErr := h.Repo.GetPurchaseByID(ctx, record.ID)
		if getErr != nil {
			h.serverError(w, "loading purchase", getErr)
			return
		}
		if existing != nil && existing.UserID == userID {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "Purchase already submitted by another user", http.StatusConflict)
		return
	}
	if err != nil {
		h.serverError(w, "creating purchase", err)
		return
	}

	progress, err := h.Progress.ApplyPurchase(ctx, record)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, progress)
	case errors.Is(err, service.ErrAlreadyApplied):
		w.WriteHeader(http.StatusOK)
	default:
		h.Log.Warn("deferring purchase to processor", "purchase_id", record.ID, "error", err)
		w.WriteHeader(http.StatusAccepted)
	}
}

// GetPurchases returns the caller's purchases
func (h *Handler) GetPurchases(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	purchases, err := h.Repo.GetUserPurchases(r.Context(), userID)
	if err != nil {
		h.serverError(w, "loading purchases", err)
		return
	}
	if len(purchases) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, purchases)
}
