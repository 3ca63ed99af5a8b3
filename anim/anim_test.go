package anim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTimedFramesSumsToDuration(t *testing.T) {
	def := BuildTimedFrames(7, 20, nil)
	sum := 0
	for _, f := range def.Frames {
		sum += f.Ticks
		assert.GreaterOrEqual(t, f.Ticks, 1)
	}
	assert.Equal(t, 20, sum)
}

func TestAnimationAdvanceIsNonDecreasing(t *testing.T) {
	def := BuildTimedFrames(5, 17, map[int]bool{2: true})
	s := New(def)
	last := s.FrameIndex
	for i := 0; i < 17; i++ {
		s.Advance()
		if i < 16 {
			assert.GreaterOrEqual(t, s.FrameIndex, last)
		}
		last = s.FrameIndex
	}
	// The 17th tick completes the cycle and the looping animation wraps.
	assert.Equal(t, 0, last)
}

func TestSpeedScalingDoublesProgress(t *testing.T) {
	def := BuildTimedFrames(4, 8, nil) // 2 ticks/frame
	s := New(def)
	s.SpeedPercent = 200
	s.Advance()
	assert.Equal(t, 1, s.FrameIndex)
}

func TestNonLoopingStopsOnLastFrame(t *testing.T) {
	def := BuildTimedFrames(2, 4, nil)
	def.Loop = false
	s := New(def)
	for i := 0; i < 10; i++ {
		s.Advance()
	}
	assert.True(t, s.Done)
	assert.True(t, s.IsLastFrame())
}
