package common

import (
	"context"
	"io"
)

// IdentityProvider supplies the locally signed-in user.
type IdentityProvider interface {
	CurrentUser() (User, error)
}

// CourseDirectory supplies channel membership from the enrollment service.
type CourseDirectory interface {
	ListJoinableChannels(ctx context.Context, userID string) ([]ChannelInfo, error)
}

// UploadFile is an attachment handed to the file-storage service.
type UploadFile struct {
	Name    string
	Mime    string
	Content io.Reader
}

// FileStorage accepts an attachment and returns a durable URL.
type FileStorage interface {
	Upload(ctx context.Context, file UploadFile) (string, error)
}

// PreferenceStore supplies the per-user notification preference set.
type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID string) (Preferences, error)
}
