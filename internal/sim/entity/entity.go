package entity

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"tilestream.dev/internal/sim/world/terrain/store"
)

// Entity is the capability the world needs from anything it positions.
type Entity = store.Entity

// Body is a kinematic point with optional tile collision. Its position is in
// local (offset-relative) world units.
type Body struct {
	id    string
	pos   mgl32.Vec2
	vel   mgl32.Vec2
	solid bool
}

type Option func(*Body)

func WithID(id string) Option          { return func(b *Body) { b.id = id } }
func WithVelocity(v mgl32.Vec2) Option { return func(b *Body) { b.vel = v } }

// Solid makes the body stop at colliding tiles.
func Solid() Option { return func(b *Body) { b.solid = true } }

func NewBody(pos mgl32.Vec2, opts ...Option) *Body {
	b := &Body{id: uuid.NewString(), pos: pos}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Body) ID() string                    { return b.id }
func (b *Body) LocalPosition() mgl32.Vec2     { return b.pos }
func (b *Body) SetLocalPosition(p mgl32.Vec2) { b.pos = p }
func (b *Body) Shift(delta mgl32.Vec2)        { b.pos = b.pos.Add(delta) }
func (b *Body) Velocity() mgl32.Vec2          { return b.vel }
func (b *Body) SetVelocity(v mgl32.Vec2)      { b.vel = v }
func (b *Body) IsSolid() bool                 { return b.solid }

// Update integrates velocity one axis at a time. A solid body that would
// enter a colliding tile stops on that axis. Collision reads never page
// chunks in; absent chunks are open space.
func (b *Body) Update(_, dt time.Duration, c *store.Container) error {
	step := b.vel.Mul(float32(dt.Seconds()))
	for axis := 0; axis < 2; axis++ {
		if step[axis] == 0 {
			continue
		}
		next := b.pos
		next[axis] += step[axis]
		if b.solid && c != nil && c.PeekTile(c.LocalToTile(next)).Collision() {
			b.vel[axis] = 0
			continue
		}
		b.pos = next
	}
	return nil
}
