package common

// User is a channel participant as reported by the identity provider
// and the roster snapshots.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// ChannelInfo describes a joinable per-course channel.
type ChannelInfo struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
}

// ChannelPreference is the per-channel notification opt-in flag.
type ChannelPreference struct {
	ChannelID string `json:"channel_id"`
	Enabled   bool   `json:"enabled"`
}

// Preferences is the notification preference set for one user.
// A channel absent from Channels counts as disabled.
type Preferences struct {
	Global   bool                `json:"global"`
	Channels []ChannelPreference `json:"channels"`
}

// ChannelEnabled looks up the per-channel flag, fail-closed.
func (p Preferences) ChannelEnabled(channelID string) bool {
	for _, cp := range p.Channels {
		if cp.ChannelID == channelID {
			return cp.Enabled
		}
	}
	return false
}
