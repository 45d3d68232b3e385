package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/25x8/foodvrse/internal/foodvrse/logger"
	"github.com/25x8/foodvrse/internal/foodvrse/models"
)

// Notifier delivers user-visible notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// RedisNotifier publishes notifications to a per-user Redis channel
type RedisNotifier struct {
	rdb    *goredis.Client
	prefix string
}

// NewRedisNotifier connects to Redis and verifies the connection
func NewRedisNotifier(ctx context.Context, addr string) (*RedisNotifier, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisNotifier{rdb: rdb, prefix: "notifications:"}, nil
}

// Channel returns the channel a user's notifications are published on
func (n *RedisNotifier) Channel(userID string) string {
	return n.prefix + userID
}

func (n *RedisNotifier) Notify(ctx context.Context, msg models.Notification) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, n.Channel(msg.UserID), raw).Err()
}

func (n *RedisNotifier) Close() error {
	return n.rdb.Close()
}

// LogNotifier writes notifications to the log
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("component", "notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, msg models.Notification) error {
	n.log.Info(msg.Message, "user_id", msg.UserID, "detail", msg.Detail)
	return nil
}

// impactNotification summarizes a delta for the user
func impactNotification(userID string, delta models.ImpactDelta, now time.Time) models.Notification {
	return models.Notification{
		UserID:  userID,
		Message: fmt.Sprintf("You earned %d XP!", delta.ExperiencePoints),
		Detail: fmt.Sprintf("You saved %s kg of CO2 and %s",
			formatKg(delta.CO2SavedGrams), FormatMoney(delta.MoneySaved)),
		CreatedAt: now,
	}
}

func formatKg(grams int64) string {
	return decimal.New(grams, -3).StringFixed(1)
}
