package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardSlots(t *testing.T) {
	slots := StandardSlots(8, 17)
	assert.Len(t, slots, 18)
	assert.Equal(t, "08:00", slots[0])
	assert.Equal(t, "08:30", slots[1])
	assert.Equal(t, "16:30", slots[len(slots)-1])
}

func TestStandardSlotsBadBounds(t *testing.T) {
	assert.Nil(t, StandardSlots(17, 8))
	assert.Nil(t, StandardSlots(8, 8))
	assert.Nil(t, StandardSlots(-1, 8))
	assert.Nil(t, StandardSlots(8, 25))
}

func TestOnGrid(t *testing.T) {
	assert.True(t, OnGrid("08:00", 8, 17))
	assert.True(t, OnGrid("16:30", 8, 17))
	assert.False(t, OnGrid("08:15", 8, 17))
	assert.False(t, OnGrid("07:30", 8, 17))
	assert.False(t, OnGrid("17:00", 8, 17))
	assert.False(t, OnGrid("8:00", 8, 17))
}
