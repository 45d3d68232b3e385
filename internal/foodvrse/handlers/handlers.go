package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/25x8/foodvrse/internal/foodvrse/logger"
	"github.com/25x8/foodvrse/internal/foodvrse/middleware"
	"github.com/25x8/foodvrse/internal/foodvrse/repository"
	"github.com/25x8/foodvrse/internal/foodvrse/service"
)

// Handler handles all HTTP requests
type Handler struct {
	Repo        repository.Repository
	Progress    *service.ProgressService
	Leaderboard *service.LeaderboardService
	JWTSecret   string
	Log         *logger.Logger
}

// NewHandler creates a new handler
func NewHandler(repo repository.Repository, progress *service.ProgressService, leaderboard *service.LeaderboardService, jwtSecret string, log *logger.Logger) *Handler {
	return &Handler{
		Repo:        repo,
		Progress:    progress,
		Leaderboard: leaderboard,
		JWTSecret:   jwtSecret,
		Log:         log.With("component", "http"),
	}
}

// Routes mounts the API under r
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.RegisterUser)
		r.Post("/login", h.LoginUser)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(&middleware.JWTConfig{
				SecretKey: h.JWTSecret,
				Repo:      h.Repo,
				Log:       h.Log,
			}))

			r.Post("/purchases", h.CompletePurchase)
			r.Get("/purchases", h.GetPurchases)
			r.Get("/progress", h.GetProgress)
			r.Get("/friends/progress", h.GetFriendsProgress)
			r.Post("/friends", h.AddFriend)
		})
	})
}

type credentials struct {
	Login       string `json:"login"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// RegisterUser handles user registration
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if req.Login == "" || req.Password == "" {
		http.Error(w, "Login and password are required", http.StatusBadRequest)
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Login
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.serverError(w, "hashing password", err)
		return
	}

	userID, err := h.Repo.CreateUser(r.Context(), req.Login, string(hashedPassword), req.DisplayName)
	if errors.Is(err, repository.ErrConflict) {
		http.Error(w, "Login already taken", http.StatusConflict)
		return
	}
	if err != nil {
		h.serverError(w, "creating user", err)
		return
	}

	h.issueSession(w, userID)
}

// LoginUser handles user login
func (h *Handler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if req.Login == "" || req.Password == "" {
		http.Error(w, "Login and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.Repo.GetUserByLogin(r.Context(), req.Login)
	if err != nil {
		h.serverError(w, "loading user", err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	h.issueSession(w, user.ID)
}

func (h *Handler) issueSession(w http.ResponseWriter, userID string) {
	token, err := middleware.GenerateToken(userID, h.JWTSecret)
	if err != nil {
		h.serverError(w, "signing token", err)
		return
	}
	middleware.SetAuthCookie(w, token)
	w.Header().Set("Authorization", "Bearer "+token)
	w.WriteHeader(http.StatusOK)
}

// AddFriend links the caller with another user by login
func (h *Handler) AddFriend(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Login == "" {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	friend, err := h.Repo.GetUserByLogin(ctx, req.Login)
	if err != nil {
		h.serverError(w, "loading friend", err)
		return
	}
	if friend == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if friend.ID == userID {
		http.Error(w, "Cannot befriend yourself", http.StatusBadRequest)
		return
	}

	err = h.Repo.AddFriend(ctx, userID, friend.ID)
	switch {
	case errors.Is(err, repository.ErrConflict):
		w.WriteHeader(http.StatusOK)
	case err != nil:
		h.serverError(w, "adding friend", err)
	default:
		w.WriteHeader(http.StatusCreated)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, what string, err error) {
	h.Log.Error(what, "error", err)
	http.Error(w, "Server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
