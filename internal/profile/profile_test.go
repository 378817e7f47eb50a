package profile

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/headpose/internal/loop"
	"github.com/roach88/headpose/internal/xr"
)

func TestLoadDefaults(t *testing.T) {
	set, err := LoadDefaults()
	require.NoError(t, err)

	assert.Equal(t, []string{"bracketed", "default", "lost", "wave"}, set.Names())

	p, err := set.Lookup("")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, p.Name)
	assert.Equal(t, "Pose Test", p.AppName)
	assert.Equal(t, 1, p.AppVersion)
	assert.Equal(t, loop.ModeUnsynchronized, p.Mode)
	assert.Equal(t, 100, p.Iterations)
	assert.Equal(t, 50*time.Millisecond, p.Interval)
	assert.Equal(t, time.Duration(0), p.Duration)
	assert.Equal(t, 11*time.Millisecond, p.Runtime.Tick)
	assert.Equal(t, "static", p.Runtime.Source)
	assert.Equal(t, xr.Vec3{X: 0, Y: 1.6, Z: 0}, p.Runtime.Position)
}

func TestLoadDefaults_Bracketed(t *testing.T) {
	set, err := LoadDefaults()
	require.NoError(t, err)

	p, err := set.Lookup("bracketed")
	require.NoError(t, err)
	assert.Equal(t, loop.ModeFrameBracketed, p.Mode)
	assert.Equal(t, 500, p.Iterations)

	lost, err := set.Lookup("lost")
	require.NoError(t, err)
	assert.Equal(t, 5, lost.Runtime.LostFrames)
}

func TestLoad_UserFile(t *testing.T) {
	set, err := Load(filepath.Join("testdata", "lab.cue"))
	require.NoError(t, err)

	assert.Contains(t, set.Names(), "lab")
	assert.Contains(t, set.Names(), "default", "built-in profiles stay available")

	p, err := set.Lookup("lab")
	require.NoError(t, err)
	assert.Equal(t, "Lab Rig", p.AppName)
	assert.Equal(t, 3, p.AppVersion)
	assert.Equal(t, loop.ModeFrameBracketed, p.Mode)
	assert.Equal(t, 0, p.Iterations)
	assert.Equal(t, 2*time.Second, p.Duration)
	assert.Equal(t, 8*time.Millisecond, p.Runtime.Tick)
	assert.Equal(t, "wave", p.Runtime.Source)
	assert.Equal(t, xr.Vec3{X: 1, Y: 1.7, Z: -0.5}, p.Runtime.Position)

	cfg := p.LoopConfig()
	assert.Equal(t, loop.ModeFrameBracketed, cfg.Mode)
	assert.Equal(t, 2*time.Second, cfg.Duration)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.cue"))
	assert.Error(t, err)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "unknown_field.cue"))
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, err.Error(), "frequency")
}

func TestLoadBytes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty app name", `profiles: x: app: name: ""`},
		{"missing app name", `profiles: x: mode: "bracketed"`},
		{"bad mode", `profiles: x: {app: name: "A", mode: "sometimes"}`},
		{"negative iterations", `profiles: x: {app: name: "A", iterations: -1}`},
		{"bad interval", `profiles: x: {app: name: "A", interval: "fast"}`},
		{"bad source", `profiles: x: {app: name: "A", runtime: source: "lidar"}`},
		{"short position", `profiles: x: {app: name: "A", runtime: position: [0, 1]}`},
		{"syntax error", `profiles: x: {`},
		{"conflicts with built-in", `profiles: default: app: name: "Other"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes("user.cue", []byte(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	set, err := LoadDefaults()
	require.NoError(t, err)

	_, err = set.Lookup("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown profile "nope"`)
}

func TestMockConfig(t *testing.T) {
	set, err := LoadDefaults()
	require.NoError(t, err)

	p, err := set.Lookup("lost")
	require.NoError(t, err)

	cfg, err := p.MockConfig()
	require.NoError(t, err)
	assert.Equal(t, 11*time.Millisecond, cfg.Tick)
	require.NotNil(t, cfg.Source)

	for i := 0; i < 5; i++ {
		_, ok := cfg.Source.Locate(0)
		assert.False(t, ok, "frame %d should be lost", i)
	}
	pose, ok := cfg.Source.Locate(0)
	assert.True(t, ok)
	assert.Equal(t, 1.6, pose.Position.Y)
}

func TestMockConfig_UnknownSource(t *testing.T) {
	p := Profile{Name: "x", Runtime: Runtime{Source: "lidar"}}
	_, err := p.MockConfig()
	assert.Error(t, err)
}

func TestProfiles_Ordered(t *testing.T) {
	set, err := LoadDefaults()
	require.NoError(t, err)

	var names []string
	for _, p := range set.Profiles() {
		names = append(names, p.Name)
	}
	assert.Equal(t, set.Names(), names)
}

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", &Error{Message: "boom"}, "boom"},
		{"profile", &Error{Profile: "lab", Message: "boom"}, "profiles.lab: boom"},
		{"profile field", &Error{Profile: "lab", Field: "mode", Message: "boom"}, "profiles.lab.mode: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
