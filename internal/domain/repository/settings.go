package repository

import (
	"context"

	"github.com/polkiloo/orderboard/internal/domain/model"
)

// SettingsRepository reads restaurant-wide settings.
type SettingsRepository interface {
	NotificationSettings(ctx context.Context) (*model.NotificationSettings, error)
}
