// Package camera implements the smooth-follow render camera (spec.md
// §4.8, C11). Grounded on the teacher's graphics/camera.go for the
// GeoM-based world matrix / screen-to-world conversion (kept verbatim in
// spirit: ebiten.GeoM translate-scale-rotate-translate around viewport
// center), generalized from a static-zoom follow-nothing camera into a
// per-frame smooth chase with a jitter floor and a shake offset, per
// spec.md's camera model.
package camera

import (
	"math"

	"embercore/grid"
	"embercore/simrand"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/image/math/f64"
)

// Camera chases a target position, exposing the same GeoM/ebiten render
// surface as the teacher's graphics.Camera.
type Camera struct {
	ViewPort   f64.Vec2
	Position   f64.Vec2
	ZoomFactor int
	ZoomLevel  float64
	Rotation   int

	// Speed is spec.md §4.8's camera_speed: the step divisor and the
	// basis for the jitter floor (camera_speed/50).
	Speed float64

	lastStep f64.Vec2
	hasStep  bool

	ShakeStrength float64
	ShakeTimer    int
	shakeOffset   f64.Vec2
}

func New(viewportW, viewportH, speed float64) *Camera {
	return &Camera{ViewPort: f64.Vec2{viewportW, viewportH}, Speed: speed}
}

// Follow advances Position one step toward target, per spec.md §4.8:
// "the step distance toward target on each axis is
// distance_to_target/camera_speed... if the measured step would fall
// below camera_speed/50 (jitter threshold), the previous step magnitude
// is preserved... if no previous step exists, the floor is computed from
// the target-current angle." Overshoot is clamped so the camera never
// passes its target in one step.
func (c *Camera) Follow(target grid.Point) {
	if c.Speed <= 0 {
		c.Position = f64.Vec2{target.X, target.Y}
		return
	}
	dx := target.X - c.Position[0]
	dy := target.Y - c.Position[1]

	floor := c.Speed / 50
	stepX := dx / c.Speed
	stepY := dy / c.Speed

	mag := math.Hypot(stepX, stepY)
	if mag < floor {
		if c.hasStep {
			stepX, stepY = c.lastStep[0], c.lastStep[1]
		} else {
			angle := math.Atan2(dy, dx)
			stepX = math.Cos(angle) * floor
			stepY = math.Sin(angle) * floor
		}
	}

	if math.Abs(stepX) > math.Abs(dx) {
		stepX = dx
	}
	if math.Abs(stepY) > math.Abs(dy) {
		stepY = dy
	}

	c.Position[0] += stepX
	c.Position[1] += stepY
	c.lastStep = f64.Vec2{stepX, stepY}
	c.hasStep = true
}

// StartShake arms a shake of the given strength for durationTicks ticks
// (spec.md §4.8 "shake is a zero-mean uniform offset... while the shake
// timer is active").
func (c *Camera) StartShake(strength float64, durationTicks int) {
	c.ShakeStrength = strength
	c.ShakeTimer = durationTicks
}

// TickShake decrements the shake timer and redraws the random offset,
// per spec.md §4.8: "zero-mean uniform offset in
// [-shake_strength,+shake_strength]*1/128 map units while the shake
// timer is active."
func (c *Camera) TickShake(rng *simrand.Source) {
	if c.ShakeTimer <= 0 {
		c.shakeOffset = f64.Vec2{0, 0}
		return
	}
	c.ShakeTimer--
	unit := c.ShakeStrength / 128
	c.shakeOffset = f64.Vec2{
		rng.FloatBetween(-unit, unit),
		rng.FloatBetween(-unit, unit),
	}
}

func (c *Camera) viewportCenter() f64.Vec2 {
	return f64.Vec2{c.ViewPort[0] * 0.5, c.ViewPort[1] * 0.5}
}

// WorldMatrix builds the render transform: translate by -(position +
// shake), scale/rotate about viewport center, same shape as the
// teacher's graphics.Camera.WorldMatrix.
func (c *Camera) WorldMatrix() ebiten.GeoM {
	m := ebiten.GeoM{}
	m.Translate(-(c.Position[0] + c.shakeOffset[0]), -(c.Position[1] + c.shakeOffset[1]))
	m.Translate(-c.viewportCenter()[0], -c.viewportCenter()[1])
	m.Scale(
		math.Pow(1.01, float64(c.ZoomFactor)),
		math.Pow(1.01, float64(c.ZoomFactor)),
	)
	m.Rotate(float64(c.Rotation) * 2 * math.Pi / 360)
	m.Translate(c.viewportCenter()[0], c.viewportCenter()[1])
	return m
}

func (c *Camera) Render(world, screen *ebiten.Image) {
	screen.DrawImage(world, &ebiten.DrawImageOptions{GeoM: c.WorldMatrix()})
}

func (c *Camera) GetOrigin() (float64, float64) {
	return c.Position[0], c.Position[1]
}

func (c *Camera) ScreenToWorld(posX, posY int) (float64, float64) {
	inverseMatrix := c.WorldMatrix()
	if inverseMatrix.IsInvertible() {
		inverseMatrix.Invert()
		return inverseMatrix.Apply(float64(posX), float64(posY))
	}
	return math.NaN(), math.NaN()
}

func (c *Camera) Reset() {
	c.Position[0] = 0
	c.Position[1] = 0
	c.Rotation = 0
	c.ZoomFactor = 0
	c.hasStep = false
	c.ShakeTimer = 0
}
