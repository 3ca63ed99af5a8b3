package assets

import (
	"testing"

	"embercore/anim"

	"github.com/stretchr/testify/assert"
)

func TestLoadAnimationSetAssignsDistinctHandles(t *testing.T) {
	l := NewEbitenLoader("testdata", "testdata")
	def := anim.Definition{Name: "walk"}

	h1, err := l.LoadAnimationSet("walk", def)
	assert.NoError(t, err)
	h2, err := l.LoadAnimationSet("run", def)
	assert.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestReleaseRemovesAnimationAtZeroRefCount(t *testing.T) {
	l := NewEbitenLoader("testdata", "testdata")
	h, _ := l.LoadAnimationSet("walk", anim.Definition{Name: "walk"})

	l.Release(h)

	_, stillTracked := l.animations[h]
	assert.False(t, stillTracked)
}

func TestAcquireKeepsAnimationAliveAcrossOneRelease(t *testing.T) {
	l := NewEbitenLoader("testdata", "testdata")
	h, _ := l.LoadAnimationSet("walk", anim.Definition{Name: "walk"})
	l.Acquire(h)

	l.Release(h)

	_, stillTracked := l.animations[h]
	assert.True(t, stillTracked)

	l.Release(h)
	_, stillTracked = l.animations[h]
	assert.False(t, stillTracked)
}

func TestLoadSoundReusesHandleForSamePath(t *testing.T) {
	l := NewEbitenLoader("testdata", "testdata")
	id1, err := l.LoadSound("hit.ogg")
	assert.NoError(t, err)
	id2, err := l.LoadSound("hit.ogg")
	assert.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, 2, l.sounds[id1].refCount)
}

func TestReleaseSoundRemovesEntryAtZeroRefCount(t *testing.T) {
	l := NewEbitenLoader("testdata", "testdata")
	id, _ := l.LoadSound("hit.ogg")

	l.ReleaseSound(id)

	_, stillTracked := l.sounds[id]
	assert.False(t, stillTracked)
}

func TestInputStateTracksPressedAndLockedIndependently(t *testing.T) {
	in := NewInputState()
	in.Pressed[ActionMain1] = true
	in.Locked[ActionShift] = true

	assert.True(t, in.IsPressed(ActionMain1))
	assert.False(t, in.IsPressed(ActionShift))
	assert.True(t, in.IsLocked(ActionShift))
}

func TestNullMixerAcceptsPlayWithoutPanicking(t *testing.T) {
	m := NullMixer{}
	assert.NotPanics(t, func() {
		m.Play(1, 0, 0, true, 2)
		m.StopChannel(2)
	})
}
