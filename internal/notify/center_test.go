package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainReturnsOldestFirstAndClears(t *testing.T) {
	center := NewCenter(10)
	center.Push("user-1", LevelSuccess, "Application submitted")
	center.Push("user-1", LevelInfo, "Decision available")
	center.Push("user-2", LevelInfo, "other user")

	notices := center.Drain("user-1")
	require.Len(t, notices, 2)
	assert.Equal(t, "Application submitted", notices[0].Message)
	assert.Equal(t, LevelInfo, notices[1].Level)
	assert.NotEmpty(t, notices[0].ID)

	assert.Empty(t, center.Drain("user-1"))
	assert.Equal(t, 1, center.Pending("user-2"))
}

func TestCapacityDropsOldest(t *testing.T) {
	center := NewCenter(3)
	for i := 0; i < 5; i++ {
		center.Push("user-1", LevelInfo, fmt.Sprintf("n%d", i))
	}

	notices := center.Drain("user-1")
	require.Len(t, notices, 3)
	assert.Equal(t, "n2", notices[0].Message)
	assert.Equal(t, "n4", notices[2].Message)
}
