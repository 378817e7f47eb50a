package profile

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/headpose/internal/loop"
	"github.com/roach88/headpose/internal/mockxr"
	"github.com/roach88/headpose/internal/xr"
)

//go:embed schema.cue
var schemaCUE string

//go:embed defaults.cue
var defaultsCUE string

// DefaultName is the profile used when none is named.
const DefaultName = "default"

// Profile is a fully resolved run configuration.
type Profile struct {
	Name        string
	Description string
	AppName     string
	AppVersion  int
	Mode        loop.Mode
	Iterations  int
	Interval    time.Duration
	Duration    time.Duration
	Runtime     Runtime
}

// Runtime configures the simulated runtime for a profile.
type Runtime struct {
	Tick            time.Duration
	Source          string
	Position        xr.Vec3
	LostFrames      int
	Unavailable     bool
	DisconnectAfter uint64
}

// LoopConfig returns the loop configuration of the profile.
func (p Profile) LoopConfig() loop.Config {
	return loop.Config{
		Mode:       p.Mode,
		Iterations: p.Iterations,
		Interval:   p.Interval,
		Duration:   p.Duration,
	}
}

// MockConfig returns the simulated runtime configuration of the profile.
func (p Profile) MockConfig() (mockxr.Config, error) {
	src, err := mockxr.ParseSource(p.Runtime.Source, p.Runtime.Position, p.Runtime.LostFrames)
	if err != nil {
		return mockxr.Config{}, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	return mockxr.Config{
		Tick:            p.Runtime.Tick,
		Source:          src,
		Unavailable:     p.Runtime.Unavailable,
		DisconnectAfter: p.Runtime.DisconnectAfter,
	}, nil
}

// Error is a profile loading or validation error with source position.
type Error struct {
	Profile string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	loc := e.Field
	if e.Profile != "" {
		loc = "profiles." + e.Profile
		if e.Field != "" {
			loc += "." + e.Field
		}
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), loc, e.Message)
	}
	if loc == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}

// Set is a collection of resolved profiles.
type Set struct {
	profiles map[string]Profile
}

// LoadDefaults returns the built-in profiles.
func LoadDefaults() (*Set, error) {
	return build()
}

// Load reads a CUE profile file and unifies it with the built-in profiles.
func Load(path string) (*Set, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	return LoadBytes(path, src)
}

// LoadBytes is Load for in-memory sources. filename is used in positions.
func LoadBytes(filename string, src []byte) (*Set, error) {
	return build(source{filename, string(src)})
}

type source struct {
	filename string
	text     string
}

func build(extra ...source) (*Set, error) {
	ctx := cuecontext.New()

	sources := append([]source{
		{"schema.cue", schemaCUE},
		{"defaults.cue", defaultsCUE},
	}, extra...)

	var v cue.Value
	for i, src := range sources {
		part := ctx.CompileString(src.text, cue.Filename(src.filename))
		if err := part.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		if i == 0 {
			v = part
			continue
		}
		v = v.Unify(part)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := v.LookupPath(cue.ParsePath("profiles")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	set := &Set{profiles: map[string]Profile{}}
	for iter.Next() {
		p, err := decodeProfile(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		set.profiles[p.Name] = p
	}
	return set, nil
}

// rawProfile mirrors #Profile for decoding.
type rawProfile struct {
	Description string `json:"description"`
	App         struct {
		Name    string `json:"name"`
		Version int    `json:"version"`
	} `json:"app"`
	Mode       string `json:"mode"`
	Iterations int    `json:"iterations"`
	Interval   string `json:"interval"`
	Duration   string `json:"duration"`
	Runtime    struct {
		Tick            string    `json:"tick"`
		Source          string    `json:"source"`
		Position        []float64 `json:"position"`
		LostFrames      int       `json:"lost_frames"`
		Unavailable     bool      `json:"unavailable"`
		DisconnectAfter uint64    `json:"disconnect_after"`
	} `json:"runtime"`
}

func decodeProfile(name string, v cue.Value) (Profile, error) {
	var raw rawProfile
	if err := v.Decode(&raw); err != nil {
		return Profile{}, &Error{Profile: name, Message: err.Error(), Pos: v.Pos()}
	}

	if len(raw.Runtime.Position) != 3 {
		return Profile{}, fieldError(name, "runtime.position", v, fmt.Errorf("want 3 coordinates, got %d", len(raw.Runtime.Position)))
	}

	mode, err := loop.ParseMode(raw.Mode)
	if err != nil {
		return Profile{}, fieldError(name, "mode", v, err)
	}

	p := Profile{
		Name:        name,
		Description: raw.Description,
		AppName:     raw.App.Name,
		AppVersion:  raw.App.Version,
		Mode:        mode,
		Iterations:  raw.Iterations,
		Runtime: Runtime{
			Source: raw.Runtime.Source,
			Position: xr.Vec3{
				X: raw.Runtime.Position[0],
				Y: raw.Runtime.Position[1],
				Z: raw.Runtime.Position[2],
			},
			LostFrames:      raw.Runtime.LostFrames,
			Unavailable:     raw.Runtime.Unavailable,
			DisconnectAfter: raw.Runtime.DisconnectAfter,
		},
	}

	durations := []struct {
		field string
		text  string
		dst   *time.Duration
	}{
		{"interval", raw.Interval, &p.Interval},
		{"duration", raw.Duration, &p.Duration},
		{"runtime.tick", raw.Runtime.Tick, &p.Runtime.Tick},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.text)
		if err != nil {
			return Profile{}, fieldError(name, d.field, v, err)
		}
		*d.dst = parsed
	}
	if p.Runtime.Tick <= 0 {
		return Profile{}, fieldError(name, "runtime.tick", v, fmt.Errorf("must be positive"))
	}
	return p, nil
}

func fieldError(profile, field string, v cue.Value, err error) *Error {
	pos := v.LookupPath(cue.ParsePath(field)).Pos()
	if !pos.IsValid() {
		pos = v.Pos()
	}
	return &Error{Profile: profile, Field: field, Message: err.Error(), Pos: pos}
}

// Lookup returns the named profile. An empty name selects DefaultName.
func (s *Set) Lookup(name string) (Profile, error) {
	if name == "" {
		name = DefaultName
	}
	p, ok := s.profiles[name]
	if !ok {
		return Profile{}, &Error{
			Message: fmt.Sprintf("unknown profile %q (available: %v)", name, s.Names()),
		}
	}
	return p, nil
}

// Names returns the profile names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profiles returns all profiles ordered by name.
func (s *Set) Profiles() []Profile {
	out := make([]Profile, 0, len(s.profiles))
	for _, name := range s.Names() {
		out = append(out, s.profiles[name])
	}
	return out
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	e := &Error{Message: firstErr.Error()}
	if positions := errors.Positions(firstErr); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
