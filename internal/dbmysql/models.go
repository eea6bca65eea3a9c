package dbmysql

import "time"

// Channel is a per-course discussion room.
type Channel struct {
	ID        string `gorm:"primaryKey;size:36"`
	CourseID  string `gorm:"index;size:36"`
	Title     string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Enrollment links a user to a joinable channel.
type Enrollment struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"index;size:36"`
	ChannelID string `gorm:"index;size:36"`
	CreatedAt time.Time
}

// UserPreference holds the global notification flag.
type UserPreference struct {
	UserID        string `gorm:"primaryKey;size:36"`
	GlobalEnabled bool
	UpdatedAt     time.Time
}

// ChannelPreference is the per-channel opt-in flag. Absence of a row
// counts as disabled.
type ChannelPreference struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"uniqueIndex:idx_user_channel;size:36"`
	ChannelID string `gorm:"uniqueIndex:idx_user_channel;size:36"`
	Enabled   bool
	UpdatedAt time.Time
}
