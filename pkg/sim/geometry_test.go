package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAngleNormalize(t *testing.T) {
	assert.InDelta(t, 90, AngleFromDegrees(450).Degrees(), 1e-9)
	assert.InDelta(t, -90, AngleFromDegrees(270).Degrees(), 1e-9)
	assert.InDelta(t, 180, AngleFromDegrees(-180).Degrees(), 1e-9)
	assert.InDelta(t, 0, AngleFromDegrees(350).AddRadians(math.Pi/18).Degrees(), 1e-9)
}

func TestRayDistance(t *testing.T) {
	wall := Rect{Pos2D: Pos2D{X: 100, Y: -50}, Size2D: Size2D{CX: 10, CY: 100}}
	testCases := []struct {
		name   string
		pose   Pose2D
		expect float64
	}{
		{"ahead", Pose2D{}, 100},
		{"behind", Pose2D{Orientation: AngleFromDegrees(180)}, math.Inf(1)},
		{"parallel miss", Pose2D{Pos2D: Pos2D{Y: 60}}, math.Inf(1)},
		{"diagonal", Pose2D{Pos2D: Pos2D{X: 60}, Orientation: AngleFromDegrees(45)}, 40 * math.Sqrt2},
		{"inside", Pose2D{Pos2D: Pos2D{X: 105}}, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := wall.RayDistance(tc.pose)
			if math.IsInf(tc.expect, 1) {
				assert.True(t, math.IsInf(d, 1), "got %v", d)
				return
			}
			assert.InDelta(t, tc.expect, d, 1e-6)
		})
	}
}

func TestRectContains(t *testing.T) {
	rc := Rect{Size2D: Size2D{CX: 10, CY: 10}}
	assert.True(t, rc.Contains(Pos2D{X: 5, Y: 5}, 0))
	assert.False(t, rc.Contains(Pos2D{X: 12, Y: 5}, 0))
	assert.True(t, rc.Contains(Pos2D{X: 12, Y: 5}, 3))
}
