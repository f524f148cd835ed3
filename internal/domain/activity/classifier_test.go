package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perfguard/backend/internal/shared/types"
)

func TestClassifyForeground(t *testing.T) {
	reading := types.GlobalActivity{
		ForegroundPID:   42,
		ActivityPercent: 65,
		KeyboardClicks:  8,
		MousePixels:     300,
	}
	agg := &types.AggregatedProcess{Name: "opera", PIDs: []uint32{41, 42}}

	act := Classify(reading, agg)

	assert.True(t, act.IsForeground)
	assert.Equal(t, 65.0, act.ActivityPercent)
	assert.Equal(t, uint32(8), act.KeyboardClicks)
	assert.Equal(t, uint32(300), act.MousePixels)
}

func TestClassifyBackground(t *testing.T) {
	reading := types.GlobalActivity{ForegroundPID: 99, ActivityPercent: 65, KeyboardClicks: 8, MousePixels: 300}
	agg := &types.AggregatedProcess{Name: "opera", PIDs: []uint32{41, 42}}

	act := Classify(reading, agg)

	assert.False(t, act.IsForeground)
	assert.Zero(t, act.ActivityPercent)
	assert.Zero(t, act.KeyboardClicks)
	assert.Zero(t, act.MousePixels)
}

func TestClassifyNilAggregate(t *testing.T) {
	reading := types.GlobalActivity{ForegroundPID: 42, ActivityPercent: 65}
	assert.Equal(t, types.AttributedActivity{}, Classify(reading, nil))
}

func TestAnyForeground(t *testing.T) {
	reading := types.GlobalActivity{ForegroundPID: 42}

	assert.True(t, AnyForeground(reading, []uint32{1, 42, 7}))
	assert.False(t, AnyForeground(reading, []uint32{1, 7}))
	assert.False(t, AnyForeground(types.GlobalActivity{}, []uint32{1, 7}))
}
