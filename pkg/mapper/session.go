// Package mapper ties the world model to the live game: the synchronizer
// state machine that tracks the player's current room, the pathfinder and
// auto-walker, distance-ranked search, and the user command processor.
package mapper

import (
	"fmt"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/arda-maps/gomapper/pkg/mapdb"
)

// SyncState is the synchronizer's confidence about the current room.
type SyncState int

const (
	Unsynced  SyncState = iota // No known current room
	Synced                     // Current room confirmed
	Tentative                  // Move sent, awaiting confirming room data
)

func (s SyncState) String() string {
	switch s {
	case Synced:
		return "synced"
	case Tentative:
		return "tentative"
	default:
		return "unsynced"
	}
}

// Config carries the tunables the synchronizer and pathfinder need. Zero
// values are replaced by the defaults below.
type Config struct {
	// SimilarityThreshold is the minimum description similarity (0..1) for
	// two rooms to be considered the same during sync.
	SimilarityThreshold float64
	// RoadDiscount is the edge cost of road and climbable exits; plain exits
	// cost 1.
	RoadDiscount float64
	// FindFormat renders one search result. Placeholders: {vnum}, {name},
	// {attribute}, {distance}.
	FindFormat string
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.85,
		RoadDiscount:        0.75,
		FindFormat:          "{attribute}, {name} ({vnum}), {distance} away",
	}
}

func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = d.SimilarityThreshold
	}
	if c.RoadDiscount <= 0 {
		c.RoadDiscount = d.RoadDiscount
	}
	if c.FindFormat == "" {
		c.FindFormat = d.FindFormat
	}
}

// Session is the per-connection mapper state: the toggles, the sync state
// machine, the pending room data accumulated between game events, and the
// auto-walk plan. All methods must be called from the single event-consumer
// goroutine; the session itself does no locking.
type Session struct {
	World *mapdb.World
	Cfg   Config

	// Output delivers mapper text to the player; SendGame sends a command to
	// the game as if the player had typed it.
	Output   func(text string)
	SendGame func(command string)

	// Save and SaveLabels persist the world; wired by the proxy to the
	// configured file paths.
	Save       func() error
	SaveLabels func() error

	// Toggles. Explicit fields, not globals, so tests can run sessions side
	// by side.
	AutoMap    bool
	AutoLink   bool
	AutoMerge  bool
	AutoUpdate bool

	State   SyncState
	Current *mapdb.Room
	prior   *mapdb.Room // room before the tentative move, for reverts

	// Room data accumulated since the last prompt. Pointers distinguish
	// "not seen this cycle" from "seen but empty".
	movement    *string
	moved       *string
	roomName    *string
	description *string
	dynamic     *string
	terrain     *string
	exitsLine   *string
	scouting    bool

	// Auto-walk plan, in execution order.
	walkQueue     []string
	autoWalk      bool
	lastPathQuery string

	// Similarity is the pluggable string matcher used by sync and fuzzy
	// search. Defaults to a normalized Levenshtein ratio.
	Similarity func(a, b string) float64
}

// NewSession returns a session over the given world with automapping
// toggles off.
func NewSession(world *mapdb.World, cfg Config, output, sendGame func(string)) *Session {
	cfg.fillDefaults()
	return &Session{
		World:      world,
		Cfg:        cfg,
		Output:     output,
		SendGame:   sendGame,
		Similarity: similarity,
	}
}

func similarity(a, b string) float64 {
	return levenshtein.Match(a, b, nil)
}

func (s *Session) output(format string, args ...interface{}) {
	if s.Output != nil {
		s.Output(fmt.Sprintf(format, args...))
	}
}

func (s *Session) sendGame(command string) {
	if s.SendGame != nil {
		s.SendGame(command)
	}
}

// Desync drops the current room and returns to UNSYNCED.
func (s *Session) Desync(reason string) {
	if reason != "" {
		s.output("%s", reason)
	}
	s.State = Unsynced
	s.Current = nil
	s.prior = nil
	s.movement = nil
	s.stopRun()
}

// SyncTo forces the current room, as the `sync [vnum|label]` command does.
func (s *Session) SyncTo(text string) {
	room, err := s.World.Resolve(text)
	if err != nil {
		s.output("%v", err)
		return
	}
	s.Current = room
	s.State = Synced
	s.output("Synced to room %s with vnum %s", room.Name, room.Vnum)
}

func strp(v string) *string { return &v }

func trimmed(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
