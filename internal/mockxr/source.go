package mockxr

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/roach88/headpose/internal/xr"
)

// PoseSource answers head-location queries.
type PoseSource interface {
	Locate(at time.Duration) (xr.Pose, bool)
}

// PoseSourceFunc adapts a function to PoseSource.
type PoseSourceFunc func(at time.Duration) (xr.Pose, bool)

// Locate calls f.
func (f PoseSourceFunc) Locate(at time.Duration) (xr.Pose, bool) {
	return f(at)
}

// Static always reports p.
func Static(p xr.Pose) PoseSource {
	return PoseSourceFunc(func(time.Duration) (xr.Pose, bool) {
		return p, true
	})
}

// Never reports no tracking data.
func Never() PoseSource {
	return PoseSourceFunc(func(time.Duration) (xr.Pose, bool) {
		return xr.Pose{}, false
	})
}

// Wave reports a head at origin that sways smoothly over time: roll, pitch
// and yaw follow sine curves and the height bobs by a centimetre.
func Wave(origin xr.Vec3) PoseSource {
	return PoseSourceFunc(func(at time.Duration) (xr.Pose, bool) {
		s := at.Seconds()
		pos := origin
		pos.Y += 0.01 * math.Sin(s*2)
		return xr.Pose{
			Position:    pos,
			Orientation: xr.QuatFromEuler(20*math.Sin(s), 15*math.Cos(s*0.7), math.Mod(s*30, 360)),
		}, true
	})
}

// lostFor wraps a source and reports no data for the first n queries.
type lostFor struct {
	mu    sync.Mutex
	left  int
	inner PoseSource
}

// LostFor reports no tracking data for the first n queries, then defers to inner.
// It models a device that has not been located yet.
func LostFor(n int, inner PoseSource) PoseSource {
	return &lostFor{left: n, inner: inner}
}

func (l *lostFor) Locate(at time.Duration) (xr.Pose, bool) {
	l.mu.Lock()
	if l.left > 0 {
		l.left--
		l.mu.Unlock()
		return xr.Pose{}, false
	}
	l.mu.Unlock()
	return l.inner.Locate(at)
}

// Source names accepted by ParseSource.
const (
	SourceStatic = "static"
	SourceWave   = "wave"
	SourceNone   = "none"
)

// ParseSource builds a named pose source around position.
// lost wraps the result with LostFor when positive.
func ParseSource(name string, position xr.Vec3, lost int) (PoseSource, error) {
	var src PoseSource
	switch name {
	case "", SourceStatic:
		src = Static(xr.Pose{Position: position, Orientation: xr.IdentityQuat})
	case SourceWave:
		src = Wave(position)
	case SourceNone:
		src = Never()
	default:
		return nil, fmt.Errorf("unknown pose source %q: must be one of %s, %s, %s", name, SourceStatic, SourceWave, SourceNone)
	}
	if lost > 0 {
		src = LostFor(lost, src)
	}
	return src, nil
}
