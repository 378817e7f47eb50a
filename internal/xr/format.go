package xr

import (
	"fmt"
	"strings"
)

// NoPoseMessage is printed in place of a pose when the runtime has none.
const NoPoseMessage = "no pose received"

// FormatPose renders a pose as a single line.
func FormatPose(p Pose) string {
	return fmt.Sprintf("position=(%.3f, %.3f, %.3f) orientation=(%.3f, %.3f, %.3f, %.3f)",
		p.Position.X, p.Position.Y, p.Position.Z,
		p.Orientation.X, p.Orientation.Y, p.Orientation.Z, p.Orientation.W)
}

// FormatMatrix renders the pose's model matrix as four rows of the form
// "| a b c d |", without a trailing newline.
func FormatMatrix(p Pose) string {
	m := p.ModelMatrix()
	var b strings.Builder
	for r := 0; r < 4; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "| %f %f %f %f |", m.At(r, 0), m.At(r, 1), m.At(r, 2), m.At(r, 3))
	}
	return b.String()
}
