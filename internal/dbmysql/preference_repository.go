package dbmysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"coursechat/internal/common"
)

// PreferenceRepository is the notification-preference store backed by
// MySQL. Read side implements common.PreferenceStore.
type PreferenceRepository interface {
	common.PreferenceStore
	SetGlobal(ctx context.Context, userID string, enabled bool) error
	SetChannel(ctx context.Context, userID, channelID string, enabled bool) error
}

type preferenceRepo struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepo{db: db}
}

func (r *preferenceRepo) GetPreferences(ctx context.Context, userID string) (common.Preferences, error) {
	if userID == "" {
		return common.Preferences{}, errors.New("user ID is required")
	}

	var prefs common.Preferences

	var up UserPreference
	err := r.db.WithContext(ctx).First(&up, "user_id = ?", userID).Error
	switch {
	case err == nil:
		prefs.Global = up.GlobalEnabled
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No row yet: global stays off, fail-closed.
	default:
		return common.Preferences{}, fmt.Errorf("load global preference: %w", err)
	}

	var rows []ChannelPreference
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return common.Preferences{}, fmt.Errorf("load channel preferences: %w", err)
	}
	for _, row := range rows {
		prefs.Channels = append(prefs.Channels, common.ChannelPreference{
			ChannelID: row.ChannelID,
			Enabled:   row.Enabled,
		})
	}

	return prefs, nil
}

func (r *preferenceRepo) SetGlobal(ctx context.Context, userID string, enabled bool) error {
	up := UserPreference{UserID: userID, GlobalEnabled: enabled, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Save(&up).Error
}

func (r *preferenceRepo) SetChannel(ctx context.Context, userID, channelID string, enabled bool) error {
	var row ChannelPreference
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = ChannelPreference{UserID: userID, ChannelID: channelID, Enabled: enabled, UpdatedAt: time.Now()}
		return r.db.WithContext(ctx).Create(&row).Error
	}
	if err != nil {
		return err
	}
	row.Enabled = enabled
	row.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(&row).Error
}
