// Package mapdb implements the room graph that backs the mapper: rooms keyed
// by vnum, directional exits with flags, room labels, and the versioned JSON
// persistence format for both.
package mapdb

import "strings"

// Direction is one of the six exit slots a room can have.
type Direction int

const (
	North Direction = iota
	East
	South
	West
	Up
	Down
)

// AllDirections lists every direction in pathfinding tie-break order.
var AllDirections = [6]Direction{North, East, South, West, Up, Down}

// String returns the full lowercase direction name.
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Up:
		return Down
	default:
		return Up
	}
}

// Offset returns the coordinate delta for moving one room in this direction.
func (d Direction) Offset() (x, y, z int) {
	switch d {
	case North:
		return 0, 1, 0
	case South:
		return 0, -1, 0
	case East:
		return 1, 0, 0
	case West:
		return -1, 0, 0
	case Up:
		return 0, 0, 1
	default:
		return 0, 0, -1
	}
}

// ParseDirection matches a full direction name, its single-letter alias, or
// an abbreviation of at least three letters ("nor", "sout"). Two-letter
// fragments like "no" and "do" are rejected; they collide with ordinary
// words in user input. The bool result is false if the text does not name a
// direction.
func ParseDirection(text string) (Direction, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return North, false
	}
	for _, d := range AllDirections {
		name := d.String()
		if text == name || text == name[:1] {
			return d, true
		}
		if len(text) >= 3 && strings.HasPrefix(name, text) {
			return d, true
		}
	}
	return North, false
}
