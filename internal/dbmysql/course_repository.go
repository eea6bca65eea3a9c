package dbmysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"coursechat/internal/common"
)

// CourseRepository supplies channel membership from the enrollment
// tables. Implements common.CourseDirectory.
type CourseRepository interface {
	common.CourseDirectory
	Enroll(ctx context.Context, userID, channelID string) error
}

type courseRepo struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) ListJoinableChannels(ctx context.Context, userID string) ([]common.ChannelInfo, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}

	var channels []Channel
	err := r.db.WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.channel_id = channels.id").
		Where("enrollments.user_id = ?", userID).
		Find(&channels).Error
	if err != nil {
		return nil, fmt.Errorf("list joinable channels: %w", err)
	}

	out := make([]common.ChannelInfo, 0, len(channels))
	for _, ch := range channels {
		out = append(out, common.ChannelInfo{
			ID:       ch.ID,
			CourseID: ch.CourseID,
			Title:    ch.Title,
		})
	}
	return out, nil
}

func (r *courseRepo) Enroll(ctx context.Context, userID, channelID string) error {
	var existing Enrollment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		First(&existing).Error
	if err == nil {
		// Enrolling twice is idempotent.
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).Create(&Enrollment{UserID: userID, ChannelID: channelID}).Error
}
