// Package assets implements the external-interface boundary spec.md §6.1
// draws around the core: an asset loader (animation-set and sound
// loading, ref-counted), a renderer sink, an input snapshot, and an
// audio mixer. embercore/anim.Definition never touches a file path
// directly — it only ever sees the AnimationHandle this package hands
// back, the same indirection the teacher's graphics package keeps
// between a VisualEffect and the *ebiten.Image backing it (see
// visual/graphics/vxfactory.go's EffectConfig.ImagePath -> img load).
package assets

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"embercore/anim"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/sirupsen/logrus"
)

// AnimationHandle is an opaque, ref-counted reference to a loaded
// animation-set (spec.md §6.1 "producing a handle used by Animation
// State").
type AnimationHandle int

// SoundID is an opaque, ref-counted reference to a loaded sound sample.
type SoundID int

// AssetLoader is the interface the core consumes (spec.md §6.1).
// Nothing in embercore outside this package depends on the concrete
// loader; power/anim/hazard reference handles only.
type AssetLoader interface {
	LoadAnimationSet(name string, def anim.Definition) (AnimationHandle, error)
	LoadSound(path string) (SoundID, error)
	Acquire(h AnimationHandle)
	Release(h AnimationHandle)
	AcquireSound(id SoundID)
	ReleaseSound(id SoundID)
}

type animationEntry struct {
	name     string
	def      anim.Definition
	refCount int
}

type soundEntry struct {
	path     string
	player   *ebiten.Image // placeholder field kept nil; real sample lives in AudioMixer
	refCount int
}

// EbitenLoader loads animation frame sheets with ebitenutil and tracks
// ref counts so a reloaded map can release sets the previous map used.
type EbitenLoader struct {
	mu sync.Mutex

	images     map[string]*ebiten.Image
	animations map[AnimationHandle]*animationEntry
	sounds     map[SoundID]*soundEntry
	nextAnim   AnimationHandle
	nextSound  SoundID

	ImageDir string
	SoundDir string
}

func NewEbitenLoader(imageDir, soundDir string) *EbitenLoader {
	return &EbitenLoader{
		images:     make(map[string]*ebiten.Image),
		animations: make(map[AnimationHandle]*animationEntry),
		sounds:     make(map[SoundID]*soundEntry),
		ImageDir:   imageDir,
		SoundDir:   soundDir,
	}
}

func (l *EbitenLoader) loadImage(path string) (*ebiten.Image, error) {
	if img, ok := l.images[path]; ok {
		return img, nil
	}
	img, _, err := ebitenutil.NewImageFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("assets: load image %q: %w", path, err)
	}
	l.images[path] = img
	return img, nil
}

// LoadAnimationSet loads (or reuses) the frame sheet named by name and
// returns a handle with a fresh ref count of 1.
func (l *EbitenLoader) LoadAnimationSet(name string, def anim.Definition) (AnimationHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.loadImage(l.ImageDir + "/" + name + ".png"); err != nil {
		logrus.WithError(err).WithField("name", name).Warn("assets: animation-set image missing, continuing with blank frames")
	}

	l.nextAnim++
	h := l.nextAnim
	l.animations[h] = &animationEntry{name: name, def: def, refCount: 1}
	return h, nil
}

// LoadSound loads the sample at path and returns a handle with a ref
// count of 1; loading a path that is already loaded returns the existing
// handle and increments its ref count. The actual decoded stream is owned by
// the AudioMixer; this just tracks identity and lifetime.
func (l *EbitenLoader) LoadSound(path string) (SoundID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, entry := range l.sounds {
		if entry.path == path {
			entry.refCount++
			return id, nil
		}
	}
	l.nextSound++
	id := l.nextSound
	l.sounds[id] = &soundEntry{path: path, refCount: 1}
	return id, nil
}

func (l *EbitenLoader) Acquire(h AnimationHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.animations[h]; ok {
		e.refCount++
	}
}

func (l *EbitenLoader) Release(h AnimationHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.animations[h]
	if !ok {
		return
	}
	e.refCount--
	if e.refCount <= 0 {
		delete(l.animations, h)
	}
}

func (l *EbitenLoader) AcquireSound(id SoundID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.sounds[id]; ok {
		e.refCount++
	}
}

func (l *EbitenLoader) ReleaseSound(id SoundID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.sounds[id]
	if !ok {
		return
	}
	e.refCount--
	if e.refCount <= 0 {
		delete(l.sounds, id)
	}
}

// Renderable is the unit the Renderer interface accepts per frame
// (spec.md §6.1's Renderer bullet).
type Renderable struct {
	Image       *ebiten.Image
	SrcX, SrcY  int
	SrcW, SrcH  int
	DestX, DestY float64
	ZPriority   int
	Layer       int
	ColorMod    color.Color
	Alpha       float64
	BlendAdditive bool
}

// Renderer is the interface the core's render-list consumer must
// satisfy. embercore never calls DrawImage itself outside this
// package; Render is handed the sorted-by-Z list sim/entity produce.
type Renderer interface {
	Render(screen *ebiten.Image, list []Renderable)
}

// ScreenRenderer draws each Renderable with ebiten, grounded on the
// teacher's ImageRenderer (visual/graphics/renderers.go): GeoM
// translate + ColorM alpha scale, nothing fancier.
type ScreenRenderer struct{}

func (ScreenRenderer) Render(screen *ebiten.Image, list []Renderable) {
	for _, r := range list {
		if r.Image == nil {
			continue
		}
		opts := &ebiten.DrawImageOptions{}
		opts.GeoM.Translate(r.DestX, r.DestY)
		alpha := r.Alpha
		if alpha == 0 {
			alpha = 1
		}
		opts.ColorM.Scale(1, 1, 1, alpha)
		if r.BlendAdditive {
			opts.CompositeMode = ebiten.CompositeModeLighter
		}

		var sub *ebiten.Image
		if r.SrcW > 0 && r.SrcH > 0 {
			rect := image.Rect(r.SrcX, r.SrcY, r.SrcX+r.SrcW, r.SrcY+r.SrcH)
			sub = r.Image.SubImage(rect).(*ebiten.Image)
		} else {
			sub = r.Image
		}
		screen.DrawImage(sub, opts)
	}
}

// Action identifies one of the abstract input actions spec.md §6.1
// lists (MAIN1, MAIN2, directional, aim, ACCEPT, SHIFT, ALT).
type Action string

const (
	ActionMain1 Action = "MAIN1"
	ActionMain2 Action = "MAIN2"
	ActionUp    Action = "UP"
	ActionDown  Action = "DOWN"
	ActionLeft  Action = "LEFT"
	ActionRight Action = "RIGHT"
	ActionAimUp    Action = "AIM_UP"
	ActionAimDown  Action = "AIM_DOWN"
	ActionAimLeft  Action = "AIM_LEFT"
	ActionAimRight Action = "AIM_RIGHT"
	ActionAccept Action = "ACCEPT"
	ActionShift  Action = "SHIFT"
	ActionAlt    Action = "ALT"
)

// InputState is the snapshot the core consumes each tick: a pressed
// map, a locked map (actions held down across frames), and a mouse
// position in screen space.
type InputState struct {
	Pressed map[Action]bool
	Locked  map[Action]bool
	MouseX  float64
	MouseY  float64
}

func NewInputState() *InputState {
	return &InputState{Pressed: make(map[Action]bool), Locked: make(map[Action]bool)}
}

func (in *InputState) IsPressed(a Action) bool { return in.Pressed[a] }
func (in *InputState) IsLocked(a Action) bool  { return in.Locked[a] }

// AudioMixer is the interface the core consumes for sound playback
// (spec.md §6.1 "play sound by id at position, with looping and
// channel arguments").
type AudioMixer interface {
	Play(id SoundID, x, y float64, loop bool, channel int)
	StopChannel(channel int)
}

// NullMixer discards every Play call. Used by tests and headless
// simulation runs where no audio context exists.
type NullMixer struct{}

func (NullMixer) Play(SoundID, float64, float64, bool, int) {}
func (NullMixer) StopChannel(int)                           {}
