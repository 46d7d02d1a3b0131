// Package sim provides the geometry of a simulated 2D world. Lengths
// are in centimetres.
package sim

import "math"

// Angle is an angle in radians, normalized to (-π, π].
type Angle float64

// AngleFromDegrees creates Angle from degrees.
func AngleFromDegrees(d float64) Angle {
	return AngleFromRadians(d * math.Pi / 180)
}

// AngleFromRadians creates Angle from radians.
func AngleFromRadians(r float64) Angle {
	r = math.Remainder(r, 2*math.Pi)
	if r <= -math.Pi {
		r += 2 * math.Pi
	}
	return Angle(r)
}

// AddRadians adds radians to the angle.
func (a Angle) AddRadians(r float64) Angle {
	return AngleFromRadians(float64(a) + r)
}

// Radians gets angle in radians.
func (a Angle) Radians() float64 {
	return float64(a)
}

// Degrees gets angle in degrees.
func (a Angle) Degrees() float64 {
	return float64(a) * 180 / math.Pi
}

// Project projects a distance along the angle into X and Y.
func (a Angle) Project(dist float64) Pos2D {
	return Pos2D{X: dist * math.Cos(float64(a)), Y: dist * math.Sin(float64(a))}
}

// Pos2D is a position in 2D.
type Pos2D struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Add adds two positions.
func (p Pos2D) Add(p1 Pos2D) Pos2D {
	return Pos2D{X: p.X + p1.X, Y: p.Y + p1.Y}
}

// OffsetBy performs Add in-place.
func (p *Pos2D) OffsetBy(p1 Pos2D) *Pos2D {
	p.X += p1.X
	p.Y += p1.Y
	return p
}

// Pose2D is a position with an orientation.
type Pose2D struct {
	Pos2D
	Orientation Angle
}

// Size2D is the size of a rectangle.
type Size2D struct {
	CX float64 `yaml:"w"`
	CY float64 `yaml:"h"`
}

// Rect is an axis-aligned rectangle at Pos2D, the corner with the
// smallest coordinates.
type Rect struct {
	Pos2D  `yaml:",inline"`
	Size2D `yaml:",inline"`
}

// Contains tests whether p is inside the rectangle, expanded by margin
// on all sides.
func (r Rect) Contains(p Pos2D, margin float64) bool {
	return p.X >= r.X-margin && p.X <= r.X+r.CX+margin &&
		p.Y >= r.Y-margin && p.Y <= r.Y+r.CY+margin
}

// RayDistance returns the distance from the origin of pose along its
// orientation to the rectangle, or +Inf if the ray misses it. An origin
// inside the rectangle is at distance 0.
func (r Rect) RayDistance(pose Pose2D) float64 {
	dir := pose.Orientation.Project(1)
	tmin, tmax := 0.0, math.Inf(1)
	for _, axis := range []struct{ o, d, lo, hi float64 }{
		{pose.X, dir.X, r.X, r.X + r.CX},
		{pose.Y, dir.Y, r.Y, r.Y + r.CY},
	} {
		if math.Abs(axis.d) < 1e-12 {
			if axis.o < axis.lo || axis.o > axis.hi {
				return math.Inf(1)
			}
			continue
		}
		t1, t2 := (axis.lo-axis.o)/axis.d, (axis.hi-axis.o)/axis.d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin, tmax = math.Max(tmin, t1), math.Min(tmax, t2)
		if tmin > tmax {
			return math.Inf(1)
		}
	}
	return tmin
}

// Positionable2D object maintains a 2D pose.
type Positionable2D interface {
	Position2D() Pose2D
}

// Placeable2D object can be moved with a new pose on a 2D plane. The
// object may refuse the move and returns the pose it ends up in.
type Placeable2D interface {
	Positionable2D
	SetPose2D(Pose2D) Pose2D
}
