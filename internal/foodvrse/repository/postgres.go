package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/25x8/foodvrse/internal/foodvrse/models"
)

const uniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository() *PostgresRepository {
	return &PostgresRepository{}
}

// InitDB initializes the database connection and schema
func (r *PostgresRepository) InitDB(databaseURI string) error {
	db, err := sql.Open("pgx", databaseURI)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	r.db = db

	if err := r.createTables(); err != nil {
		db.Close()
		return err
	}

	return nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		login VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		display_name VARCHAR(255) NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS purchases (
		id VARCHAR(255) PRIMARY KEY,
		user_id UUID REFERENCES users(id),
		total BIGINT NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'NEW',
		created_at TIMESTAMPTZ NOT NULL,
		uploaded_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS purchase_items (
		purchase_id VARCHAR(255) REFERENCES purchases(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name VARCHAR(255) NOT NULL,
		quantity BIGINT NOT NULL,
		unit_price BIGINT NOT NULL,
		original_price BIGINT NOT NULL,
		PRIMARY KEY (purchase_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS user_progress (
		user_id VARCHAR(255) PRIMARY KEY,
		total_meals_saved BIGINT NOT NULL DEFAULT 0,
		total_co2_saved_grams BIGINT NOT NULL DEFAULT 0,
		total_money_saved BIGINT NOT NULL DEFAULT 0,
		total_water_saved_liters BIGINT NOT NULL DEFAULT 0,
		experience_points BIGINT NOT NULL DEFAULT 0,
		current_streak INTEGER NOT NULL DEFAULT 0,
		longest_streak INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1,
		last_purchase_at TIMESTAMPTZ,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		CHECK (longest_streak >= current_streak)
	)`,
	`CREATE TABLE IF NOT EXISTS applied_purchases (
		purchase_id VARCHAR(255) PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		applied_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS friendships (
		user_id UUID REFERENCES users(id),
		friend_id UUID REFERENCES users(id),
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, friend_id)
	)`,
}

// createTables creates the necessary tables if they don't exist
func (r *PostgresRepository) createTables() error {
	for _, stmt := range schema {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, login, passwordHash, displayName string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(
		ctx,
		"INSERT INTO users (id, login, password_hash, display_name) VALUES ($1, $2, $3, $4)",
		id, login, passwordHash, displayName,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrConflict
		}
		return "", err
	}

	return id, nil
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.getUser(ctx, "login", login)
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.getUser(ctx, "id", id)
}

func (r *PostgresRepository) getUser(ctx context.Context, column, value string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(
		ctx,
		"SELECT id, login, password_hash, display_name, avatar_url, created_at FROM users WHERE "+column+" = $1",
		value,
	).Scan(&user.ID, &user.Login, &user.PasswordHash, &user.DisplayName, &user.AvatarURL, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return user, nil
}

// Purchase repository methods
func (r *PostgresRepository) CreatePurchase(ctx context.Context, purchase *models.PurchaseRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	status := purchase.Status
	if status == "" {
		status = models.StatusNew
	}
	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO purchases (id, user_id, total, status, created_at) VALUES ($1, $2, $3, $4, $5)",
		purchase.ID, purchase.UserID, purchase.Total, status, purchase.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}

	for i, item := range purchase.Items {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO purchase_items (purchase_id, position, name, quantity, unit_price, original_price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			purchase.ID, i, item.Name, item.Quantity, item.UnitPrice, item.OriginalPrice,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) GetPurchaseByID(ctx context.Context, id string) (*models.PurchaseRecord, error) {
	p := &models.PurchaseRecord{}
	err := r.db.QueryRowContext(
		ctx,
		"SELECT id, user_id, total, status, created_at FROM purchases WHERE id = $1",
		id,
	).Scan(&p.ID, &p.UserID, &p.Total, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if p.Items, err = r.loadItems(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) GetUserPurchases(ctx context.Context, userID string) ([]models.PurchaseRecord, error) {
	return r.queryPurchases(ctx,
		`SELECT id, user_id, total, status, created_at
         FROM purchases
         WHERE user_id = $1
         ORDER BY uploaded_at DESC`,
		userID,
	)
}

func (r *PostgresRepository) GetPendingPurchases(ctx context.Context, limit int) ([]models.PurchaseRecord, error) {
	return r.queryPurchases(ctx,
		`SELECT id, user_id, total, status, created_at
         FROM purchases
         WHERE status = $1
         ORDER BY uploaded_at, id
         LIMIT $2`,
		models.StatusNew, limit,
	)
}

func (r *PostgresRepository) queryPurchases(ctx context.Context, query string, args ...any) ([]models.PurchaseRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []models.PurchaseRecord
	for rows.Next() {
		var p models.PurchaseRecord
		if err := rows.Scan(&p.ID, &p.UserID, &p.Total, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for i := range purchases {
		if purchases[i].Items, err = r.loadItems(ctx, purchases[i].ID); err != nil {
			return nil, err
		}
	}
	return purchases, nil
}

func (r *PostgresRepository) loadItems(ctx context.Context, purchaseID string) ([]models.LineItem, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT name, quantity, unit_price, original_price
         FROM purchase_items
         WHERE purchase_id = $1
         ORDER BY position`,
		purchaseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.Name, &item.Quantity, &item.UnitPrice, &item.OriginalPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) UpdatePurchaseStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(
		ctx,
		"UPDATE purchases SET status = $1 WHERE id = $2",
		status, id,
	)
	return err
}

// Progress repository methods
const progressColumns = `user_id, total_meals_saved, total_co2_saved_grams, total_money_saved,
	total_water_saved_liters, experience_points, current_streak, longest_streak, level,
	last_purchase_at, version, created_at, updated_at`

func scanProgress(row interface{ Scan(...any) error }) (*models.UserProgress, error) {
	p := &models.UserProgress{}
	var last sql.NullTime
	err := row.Scan(
		&p.UserID,
		&p.TotalMealsSaved,
		&p.TotalCO2SavedGrams,
		&p.TotalMoneySaved,
		&p.TotalWaterSavedLiters,
		&p.ExperiencePoints,
		&p.CurrentStreak,
		&p.LongestStreak,
		&p.Level,
		&last,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if last.Valid {
		t := last.Time.UTC()
		p.LastPurchaseAt = &t
	}
	return p, nil
}

func (r *PostgresRepository) GetUserProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	p, err := scanProgress(r.db.QueryRowContext(
		ctx,
		"SELECT "+progressColumns+" FROM user_progress WHERE user_id = $1",
		userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) SaveUserProgress(ctx context.Context, progress *models.UserProgress, purchaseID string) (*models.UserProgress, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if purchaseID != "" {
		res, err := tx.ExecContext(
			ctx,
			"INSERT INTO applied_purchases (purchase_id, user_id) VALUES ($1, $2) ON CONFLICT (purchase_id) DO NOTHING",
			purchaseID, progress.UserID,
		)
		if err != nil {
			return nil, err
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, err
		} else if n == 0 {
			return nil, ErrAlreadyApplied
		}
	}

	var last sql.NullTime
	if progress.LastPurchaseAt != nil {
		last = sql.NullTime{Time: *progress.LastPurchaseAt, Valid: true}
	}
	args := []any{
		progress.UserID,
		progress.TotalMealsSaved,
		progress.TotalCO2SavedGrams,
		progress.TotalMoneySaved,
		progress.TotalWaterSavedLiters,
		progress.ExperiencePoints,
		progress.CurrentStreak,
		progress.LongestStreak,
		progress.Level,
		last,
	}

	var row *sql.Row
	if progress.Version == 0 {
		row = tx.QueryRowContext(ctx, `
			INSERT INTO user_progress (user_id, total_meals_saved, total_co2_saved_grams, total_money_saved,
				total_water_saved_liters, experience_points, current_streak, longest_streak, level, last_purchase_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (user_id) DO NOTHING
			RETURNING `+progressColumns, args...)
	} else {
		row = tx.QueryRowContext(ctx, `
			UPDATE user_progress SET
				total_meals_saved = $2,
				total_co2_saved_grams = $3,
				total_money_saved = $4,
				total_water_saved_liters = $5,
				experience_points = $6,
				current_streak = $7,
				longest_streak = $8,
				level = $9,
				last_purchase_at = $10,
				version = version + 1,
				updated_at = CURRENT_TIMESTAMP
			WHERE user_id = $1 AND version = $11
			RETURNING `+progressColumns, append(args, progress.Version)...)
	}

	stored, err := scanProgress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionConflict
		}
		return nil, err
	}

	if purchaseID != "" {
		if _, err := tx.ExecContext(
			ctx,
			"UPDATE purchases SET status = $1 WHERE id = $2",
			models.StatusProcessed, purchaseID,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit progress: %w", err)
	}
	return stored, nil
}

// Friend repository methods
func (r *PostgresRepository) AddFriend(ctx context.Context, userID, friendID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for _, pair := range [][2]string{{userID, friendID}, {friendID, userID}} {
		_, err := tx.ExecContext(
			ctx,
			"INSERT INTO friendships (user_id, friend_id, created_at) VALUES ($1, $2, $3)",
			pair[0], pair[1], now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
	}
	return tx.Commit()
}

func (r *PostgresRepository) GetFriendProfiles(ctx context.Context, userID string) ([]models.Profile, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT u.id, u.display_name, u.avatar_url
         FROM friendships f
         JOIN users u ON u.id = f.friend_id
         WHERE f.user_id = $1
         ORDER BY u.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.AvatarURL); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
