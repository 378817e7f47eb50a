package xr

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPose(t *testing.T) {
	got := FormatPose(NewPose(0, 1.6, 0))
	assert.Equal(t, "position=(0.000, 1.600, 0.000) orientation=(0.000, 0.000, 0.000, 1.000)", got)
	assert.NotContains(t, got, "\n", "pose must print on one line")
}

func TestFormatMatrix_Identity(t *testing.T) {
	got := FormatMatrix(NewPose(0, 0, 0))
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| 1.000000 0.000000 0.000000 0.000000 |", lines[0])
	assert.Equal(t, "| 0.000000 0.000000 0.000000 1.000000 |", lines[3])
}

func TestModelMatrix_Translation(t *testing.T) {
	m := NewPose(1, 2, 3).ModelMatrix()

	assert.Equal(t, 1.0, m.At(0, 3))
	assert.Equal(t, 2.0, m.At(1, 3))
	assert.Equal(t, 3.0, m.At(2, 3))
	assert.Equal(t, 1.0, m.At(3, 3))
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1.0, m.At(i, i), "diagonal %d", i)
	}
}

func TestModelMatrix_YawQuarterTurn(t *testing.T) {
	p := Pose{Orientation: QuatFromEuler(0, 0, 90)}
	m := p.ModelMatrix()

	// Rotating +X by 90 degrees about Y lands on -Z.
	assert.InDelta(t, 0.0, m.At(0, 0), 1e-9)
	assert.InDelta(t, -1.0, m.At(2, 0), 1e-9)
}

func TestQuatFromEuler(t *testing.T) {
	tests := []struct {
		name             string
		roll, pitch, yaw float64
		want             Quat
	}{
		{"identity", 0, 0, 0, IdentityQuat},
		{"yaw", 0, 0, 90, Quat{Y: math.Sqrt2 / 2, W: math.Sqrt2 / 2}},
		{"pitch", 0, 90, 0, Quat{X: math.Sqrt2 / 2, W: math.Sqrt2 / 2}},
		{"roll", 90, 0, 0, Quat{Z: math.Sqrt2 / 2, W: math.Sqrt2 / 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuatFromEuler(tt.roll, tt.pitch, tt.yaw)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.Z, got.Z, 1e-9)
			assert.InDelta(t, tt.want.W, got.W, 1e-9)
		})
	}
}

func TestQuatNormalize_Zero(t *testing.T) {
	assert.Equal(t, IdentityQuat, Quat{}.Normalize())
}
