package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coursechat/internal/common"
)

func TestTracker_SnapshotReplacesWholesale(t *testing.T) {
	tr := NewTracker()
	tr.ApplySnapshot([]common.User{
		{ID: "a", DisplayName: "Alice"},
		{ID: "b", DisplayName: "Bob"},
	})

	tr.ApplySnapshot([]common.User{
		{ID: "b", DisplayName: "Bob"},
		{ID: "c", DisplayName: "Carol"},
	})

	assert.Equal(t, 2, tr.Count())
	assert.False(t, tr.Contains("a"))
	assert.True(t, tr.Contains("b"))
	assert.True(t, tr.Contains("c"))
}

func TestTracker_DuplicateJoinIsIdempotent(t *testing.T) {
	tr := NewTracker()
	tr.ApplySnapshot([]common.User{
		{ID: "a", DisplayName: "Alice"},
		{ID: "a", DisplayName: "Alice"},
	})

	assert.Equal(t, 1, tr.Count())
}

func TestTracker_UsersSortedByDisplayName(t *testing.T) {
	tr := NewTracker()
	tr.ApplySnapshot([]common.User{
		{ID: "1", DisplayName: "Zoe"},
		{ID: "2", DisplayName: "Alice"},
		{ID: "3", DisplayName: "Mona"},
	})

	names := []string{}
	for _, u := range tr.Users() {
		names = append(names, u.DisplayName)
	}
	assert.Equal(t, []string{"Alice", "Mona", "Zoe"}, names)
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker()
	tr.ApplySnapshot([]common.User{{ID: "a", DisplayName: "Alice"}})
	tr.Reset()

	assert.Equal(t, 0, tr.Count())
	assert.Empty(t, tr.Users())
}
