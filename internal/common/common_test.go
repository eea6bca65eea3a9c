package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("alice", "Alice")
	require.NoError(t, err)

	claims, err := ValidToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.Equal(t, "Alice", claims.DisplayName)
	assert.Equal(t, "coursechat", claims.Issuer)
}

func TestValidToken_Garbage(t *testing.T) {
	_, err := ValidToken("not-a-token")
	assert.Error(t, err)
}

func TestTokenIdentity(t *testing.T) {
	token, err := GenerateToken("alice", "Alice")
	require.NoError(t, err)

	user, err := TokenIdentity{Token: token}.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, User{ID: "alice", DisplayName: "Alice"}, user)

	_, err = TokenIdentity{Token: "bad"}.CurrentUser()
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.NoError(t, CheckPassword("s3cret", hash))
	assert.Error(t, CheckPassword("wrong", hash))
}

func TestPreferences_ChannelEnabled(t *testing.T) {
	prefs := Preferences{
		Global: true,
		Channels: []ChannelPreference{
			{ChannelID: "chan-on", Enabled: true},
			{ChannelID: "chan-off", Enabled: false},
		},
	}

	assert.True(t, prefs.ChannelEnabled("chan-on"))
	assert.False(t, prefs.ChannelEnabled("chan-off"))
	// Absent channels count as disabled.
	assert.False(t, prefs.ChannelEnabled("chan-unknown"))
}
