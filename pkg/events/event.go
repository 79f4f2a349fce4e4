// Package events defines the typed events recovered from the game's markup
// stream and the dispatcher that fans them out to the mapper, the output
// formatter, and any other listeners.
package events

// EventType classifies events for dispatch.
type EventType int

const (
	EvLine      EventType = iota // A plain text line outside any tag
	EvPrompt                     // Prompt contents
	EvName                       // Room name
	EvDesc                       // Static room description
	EvDynamic                    // Dynamic room description (room tag close)
	EvTerrain                    // Terrain hint
	EvExits                      // Exits line
	EvMovement                   // Movement with optional direction
	EvUserInput                  // A command typed by the player
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvLine:
		return "line"
	case EvPrompt:
		return "prompt"
	case EvName:
		return "name"
	case EvDesc:
		return "description"
	case EvDynamic:
		return "dynamic"
	case EvTerrain:
		return "terrain"
	case EvExits:
		return "exits"
	case EvMovement:
		return "movement"
	case EvUserInput:
		return "user_input"
	default:
		return "unknown"
	}
}

// Event is one structured item recovered from either byte stream.
type Event struct {
	Type EventType
	Text string
}
