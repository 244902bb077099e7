package game

import (
	"fmt"
	"sort"

	"chess-ai/config"
)

// Profile is a difficulty level: the time and depth the engine gets per move.
type Profile struct {
	Name     string `json:"name"`
	TimeMs   int    `json:"time_ms"`
	MaxDepth int    `json:"max_depth"`
}

// Profiles indexes difficulty levels by name.
type Profiles map[string]Profile

// DefaultProfiles returns the built-in easy, medium and hard levels.
func DefaultProfiles() Profiles {
	return ProfilesFromConfig(config.Default().Profiles)
}

func ProfilesFromConfig(in map[string]config.ProfileConfig) Profiles {
	out := make(Profiles, len(in))
	for name, p := range in {
		out[name] = Profile{Name: name, TimeMs: p.TimeMs, MaxDepth: p.MaxDepth}
	}
	return out
}

// ByName looks a profile up, listing the known names when it is missing.
func (ps Profiles) ByName(name string) (Profile, error) {
	p, ok := ps[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownProfile, name, ps.Names())
	}
	return p, nil
}

func (ps Profiles) Names() []string {
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
