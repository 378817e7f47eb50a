package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/headpose/internal/mockxr"
	"github.com/roach88/headpose/internal/xr"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func newContext(t *testing.T, rt *mockxr.Runtime, opts ...Option) *Context {
	t.Helper()
	c, err := Create(context.Background(), rt, "Pose Test", 1, append([]Option{quiet}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCreate_InitErrors(t *testing.T) {
	tests := []struct {
		name    string
		rt      xr.Runtime
		app     string
		version int
	}{
		{"no runtime", nil, "Pose Test", 1},
		{"runtime unavailable", mockxr.New(mockxr.Config{Unavailable: true}), "Pose Test", 1},
		{"empty name", mockxr.New(mockxr.Config{}), "   ", 1},
		{"negative version", mockxr.New(mockxr.Config{}), "Pose Test", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Create(context.Background(), tt.rt, tt.app, tt.version, quiet)
			assert.Nil(t, c)
			require.Error(t, err)
			assert.True(t, xr.IsInitError(err), "got %v", err)
		})
	}
}

func TestCreate_UnavailableKeepsCause(t *testing.T) {
	_, err := Create(context.Background(), mockxr.New(mockxr.Config{Unavailable: true}), "Pose Test", 1, quiet)
	assert.ErrorIs(t, err, mockxr.ErrNoRuntime)
}

func TestCreate_NormalizesName(t *testing.T) {
	rt := mockxr.New(mockxr.Config{})
	// "e" followed by a combining acute accent composes to U+00E9.
	c, err := Create(context.Background(), rt, " Pose Te\u0301st ", 1, quiet)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "Pose T\u00e9st", c.App().Name)
}

func TestGetHeadPose_FreshInsideBracket(t *testing.T) {
	rt := mockxr.New(mockxr.Config{Tick: 2 * time.Millisecond})
	c := newContext(t, rt)

	require.NoError(t, c.BeginFrame())
	require.NoError(t, c.EndFrame())

	ok, pose := c.GetHeadPose()
	require.True(t, ok)
	assert.Equal(t, xr.NewPose(0, 1.6, 0), pose)
	assert.Equal(t, 0, c.StaleQueries())

	fs := c.FrameState()
	assert.Equal(t, uint64(1), fs.Frame)
	assert.Greater(t, fs.PredictedDisplayTime, fs.LastBeginTime)
	assert.Equal(t, 2*time.Millisecond, fs.PredictedDisplayPeriod)

	calls := rt.Recorder().Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, mockxr.OpLocateHead, last.Op)
	assert.Equal(t, fs.PredictedDisplayTime, last.At, "query must use the cached prediction")
}

func TestGetHeadPose_OutsideBracketIsStale(t *testing.T) {
	rt := mockxr.New(mockxr.Config{Tick: time.Millisecond})
	c := newContext(t, rt)

	ok, _ := c.GetHeadPose()
	assert.True(t, ok, "unsynchronized queries still return data")
	assert.Equal(t, 1, c.StaleQueries())

	require.NoError(t, c.BeginFrame())
	c.GetHeadPose()
	assert.Equal(t, 2, c.StaleQueries(), "query between begin and end is stale")

	require.NoError(t, c.EndFrame())
	c.GetHeadPose()
	assert.Equal(t, 2, c.StaleQueries())

	require.NoError(t, c.BeginFrame())
	c.GetHeadPose()
	assert.Equal(t, 3, c.StaleQueries(), "query after the next begin is stale")
}

func TestGetHeadPose_FreshAfterWaitBeforeBegin(t *testing.T) {
	rt := mockxr.New(mockxr.Config{Tick: time.Millisecond})
	c := newContext(t, rt)

	require.NoError(t, c.BeginFrame())
	require.NoError(t, c.EndFrame())
	require.NoError(t, c.WaitFrame(context.Background()))

	ok, _ := c.GetHeadPose()
	assert.True(t, ok)
	assert.Equal(t, 0, c.StaleQueries(), "end then wait still leaves the window open")

	calls := rt.Recorder().Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, c.FrameState().PredictedDisplayTime, last.At)
}

// zeroClockSession is a runtime whose clock and predictions start at zero.
type zeroClockSession struct {
	now     time.Duration
	located []time.Duration
}

func (s *zeroClockSession) Now() time.Duration { return s.now }
func (s *zeroClockSession) WaitFrame(context.Context) (xr.FrameWait, error) {
	return xr.FrameWait{ShouldRender: true}, nil
}
func (s *zeroClockSession) BeginFrame() error { return nil }
func (s *zeroClockSession) EndFrame() (xr.FrameTiming, error) {
	return xr.FrameTiming{PredictedDisplayTime: 0, PredictedDisplayPeriod: time.Millisecond}, nil
}
func (s *zeroClockSession) LocateHead(at time.Duration) (xr.Pose, bool) {
	s.located = append(s.located, at)
	return xr.NewPose(0, 1.6, 0), true
}
func (s *zeroClockSession) Close() error { return nil }

type zeroClockRuntime struct {
	session *zeroClockSession
}

func (r zeroClockRuntime) OpenSession(context.Context, xr.AppInfo) (xr.Session, error) {
	return r.session, nil
}

func TestGetHeadPose_ZeroPredictionIsStillSynchronized(t *testing.T) {
	sess := &zeroClockSession{now: 5 * time.Second}
	c, err := Create(context.Background(), zeroClockRuntime{session: sess}, "Pose Test", 1, quiet)
	require.NoError(t, err)
	defer c.Close()

	c.GetHeadPose()
	require.NoError(t, c.BeginFrame())
	require.NoError(t, c.EndFrame())
	c.GetHeadPose()

	assert.Equal(t, []time.Duration{5 * time.Second, 0}, sess.located,
		"before the first end_frame the query uses the runtime clock, after it the prediction")
}

func TestGetHeadPose_NoPoseIsNotAnError(t *testing.T) {
	rt := mockxr.New(mockxr.Config{Source: mockxr.Never()})
	c := newContext(t, rt)

	for i := 0; i < 3; i++ {
		ok, pose := c.GetHeadPose()
		assert.False(t, ok)
		assert.Equal(t, xr.Pose{}, pose)
	}
	assert.False(t, c.Released())
}

func TestBeginFrame_UnpairedIsCountedNotRefused(t *testing.T) {
	rt := mockxr.New(mockxr.Config{})
	c := newContext(t, rt)

	require.NoError(t, c.BeginFrame())
	require.NoError(t, c.BeginFrame())
	assert.Equal(t, 1, c.UnpairedBegins())
}

func TestWaitFrame_StateChanges(t *testing.T) {
	rt := mockxr.New(mockxr.Config{Tick: time.Millisecond, HiddenWaits: 1})

	var changes []StateChange
	c := newContext(t, rt, WithStateChangeHandler(func(s StateChange) {
		changes = append(changes, s)
	}))

	for i := 0; i < 3; i++ {
		require.NoError(t, c.WaitFrame(context.Background()))
	}
	assert.Equal(t, []StateChange{RenderingStart}, changes)
}

func TestWaitFrame_Cancelled(t *testing.T) {
	rt := mockxr.New(mockxr.Config{Tick: time.Hour})
	c := newContext(t, rt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.WaitFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, xr.IsDisconnected(err))
}

func TestFrameOps_Disconnected(t *testing.T) {
	rt := mockxr.New(mockxr.Config{Tick: time.Millisecond, DisconnectAfter: 1})
	c := newContext(t, rt)

	require.NoError(t, c.BeginFrame())
	require.NoError(t, c.EndFrame())

	err := c.WaitFrame(context.Background())
	assert.True(t, xr.IsDisconnected(err))
	assert.ErrorIs(t, err, xr.ErrSessionLost)

	assert.True(t, xr.IsDisconnected(c.BeginFrame()))
}

func TestClose_ExactlyOnce(t *testing.T) {
	rt := mockxr.New(mockxr.Config{})
	c, err := Create(context.Background(), rt, "Pose Test", 1, quiet)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	err = c.Close()
	assert.ErrorIs(t, err, ErrAlreadyReleased)
	assert.True(t, xr.IsReleased(err))
	assert.Equal(t, 1, rt.Closed())

	assert.True(t, xr.IsReleased(c.BeginFrame()))
	ok, _ := c.GetHeadPose()
	assert.False(t, ok)
}

func TestWith_ReleasesOnEveryPath(t *testing.T) {
	boom := errors.New("boom")

	t.Run("success", func(t *testing.T) {
		rt := mockxr.New(mockxr.Config{})
		err := With(context.Background(), rt, "Pose Test", 1, func(c *Context) error {
			return nil
		}, quiet)
		require.NoError(t, err)
		assert.Equal(t, 1, rt.Closed())
	})

	t.Run("error", func(t *testing.T) {
		rt := mockxr.New(mockxr.Config{})
		err := With(context.Background(), rt, "Pose Test", 1, func(c *Context) error {
			return boom
		}, quiet)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, rt.Closed())
	})

	t.Run("panic", func(t *testing.T) {
		rt := mockxr.New(mockxr.Config{})
		assert.Panics(t, func() {
			_ = With(context.Background(), rt, "Pose Test", 1, func(c *Context) error {
				panic("abort")
			}, quiet)
		})
		assert.Equal(t, 1, rt.Closed())
	})

	t.Run("closed by callback", func(t *testing.T) {
		rt := mockxr.New(mockxr.Config{})
		err := With(context.Background(), rt, "Pose Test", 1, func(c *Context) error {
			return c.Close()
		}, quiet)
		require.NoError(t, err)
		assert.Equal(t, 1, rt.Closed(), "With must not release twice")
	})

	t.Run("init failure", func(t *testing.T) {
		called := false
		err := With(context.Background(), mockxr.New(mockxr.Config{Unavailable: true}), "Pose Test", 1, func(c *Context) error {
			called = true
			return nil
		}, quiet)
		assert.True(t, xr.IsInitError(err))
		assert.False(t, called)
	})
}
