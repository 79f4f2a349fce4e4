package mapdb

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Exit target sentinels. Any other value of Exit.To is a vnum.
const (
	ToUndefined = "undefined"
	ToDeath     = "death"
)

// Closed enum values for the single-valued room attributes. "undefined" is a
// legal member of every enum.
var (
	ValidTerrains = []string{
		"brush", "building", "cavern", "city", "deathtrap", "field", "forest",
		"hills", "mountains", "rapids", "road", "shallows", "tunnel",
		"undefined", "underwater", "water",
	}
	ValidAligns    = []string{"good", "neutral", "evil", "undefined"}
	ValidLights    = []string{"lit", "dark", "undefined"}
	ValidPortables = []string{"portable", "not_portable", "undefined"}
	ValidRidables  = []string{"ridable", "not_ridable", "undefined"}
	ValidSundeaths = []string{"sundeath", "no_sundeath", "undefined"}
)

// ValidMobFlags are the mob flags a room may carry.
var ValidMobFlags = []string{
	"rent", "shop", "weapon_shop", "armour_shop", "food_shop", "pet_shop",
	"guild", "scout_guild", "mage_guild", "cleric_guild", "warrior_guild",
	"ranger_guild", "aggressive_mob", "quest_mob", "passive_mob", "elite_mob",
	"super_mob",
}

// ValidLoadFlags are the load flags a room may carry.
var ValidLoadFlags = []string{
	"treasure", "armour", "weapon", "water", "food", "herb", "key", "mule",
	"horse", "pack_horse", "trained_horse", "rohirrim", "warg", "boat",
	"attention", "tower", "clock", "mail", "stable", "white_word",
	"dark_word", "equipment", "coach", "ferry",
}

// ValidExitFlags are the flags an exit may carry.
var ValidExitFlags = []string{
	"exit", "door", "road", "climb", "random", "special", "avoid", "no_match",
	"flow", "no_flee", "damage", "fall", "guarded",
}

// ValidDoorFlags are the flags a door may carry.
var ValidDoorFlags = []string{
	"hidden", "need_key", "no_block", "no_break", "no_pick", "delayed",
	"callable", "knockable", "magic", "action", "no_bash",
}

// FlagSet is an unordered set of flag strings. It serializes as a sorted
// JSON array so saved maps are stable and diffable.
type FlagSet map[string]bool

// NewFlagSet builds a set from the given flags.
func NewFlagSet(flags ...string) FlagSet {
	fs := make(FlagSet, len(flags))
	for _, f := range flags {
		fs[f] = true
	}
	return fs
}

// Has reports whether the flag is set.
func (fs FlagSet) Has(flag string) bool { return fs[flag] }

// Add sets a flag.
func (fs FlagSet) Add(flag string) { fs[flag] = true }

// Remove clears a flag.
func (fs FlagSet) Remove(flag string) { delete(fs, flag) }

// Sorted returns the flags in lexical order.
func (fs FlagSet) Sorted() []string {
	out := make([]string, 0, len(fs))
	for f := range fs {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of the set.
func (fs FlagSet) Clone() FlagSet {
	out := make(FlagSet, len(fs))
	for f := range fs {
		out[f] = true
	}
	return out
}

// Equal reports whether two sets hold the same flags.
func (fs FlagSet) Equal(other FlagSet) bool {
	if len(fs) != len(other) {
		return false
	}
	for f := range fs {
		if !other[f] {
			return false
		}
	}
	return true
}

// String joins the flags with commas, for command output.
func (fs FlagSet) String() string { return strings.Join(fs.Sorted(), ", ") }

// MarshalJSON encodes the set as a sorted array.
func (fs FlagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(fs.Sorted())
}

// UnmarshalJSON decodes a JSON array of flag strings.
func (fs *FlagSet) UnmarshalJSON(data []byte) error {
	var flags []string
	if err := json.Unmarshal(data, &flags); err != nil {
		return err
	}
	*fs = NewFlagSet(flags...)
	return nil
}

// Exit is one directional link out of a room. To holds the destination vnum,
// or one of the ToUndefined/ToDeath sentinels.
type Exit struct {
	To        string
	Door      string
	ExitFlags FlagSet
	DoorFlags FlagSet
}

// NewExit returns an unlinked exit carrying the implicit "exit" flag.
func NewExit() *Exit {
	return &Exit{
		To:        ToUndefined,
		ExitFlags: NewFlagSet("exit"),
		DoorFlags: NewFlagSet(),
	}
}

// Clone returns an independent copy of the exit.
func (e *Exit) Clone() *Exit {
	return &Exit{
		To:        e.To,
		Door:      e.Door,
		ExitFlags: e.ExitFlags.Clone(),
		DoorFlags: e.DoorFlags.Clone(),
	}
}

// Room is one node of the map graph. Vnum is immutable once the room is in a
// World; everything else is editable.
type Room struct {
	Vnum        string
	ServerID    string
	Area        string
	Name        string
	Desc        string
	DynamicDesc string
	Note        string
	Terrain     string
	Light       string
	Align       string
	Portable    string
	Ridable     string
	Sundeath    string
	Avoid       bool
	MobFlags    FlagSet
	LoadFlags   FlagSet
	X, Y, Z     int
	// HasCoordinates is false for rooms whose position was never set; such
	// rooms rank last in distance-ordered search results.
	HasCoordinates bool
	Exits          map[Direction]*Exit
}

// NewRoom returns a room with every enum attribute set to "undefined".
func NewRoom(vnum string) *Room {
	return &Room{
		Vnum:      vnum,
		Terrain:   "undefined",
		Light:     "undefined",
		Align:     "undefined",
		Portable:  "undefined",
		Ridable:   "undefined",
		Sundeath:  "undefined",
		MobFlags:  NewFlagSet(),
		LoadFlags: NewFlagSet(),
		Exits:     make(map[Direction]*Exit),
	}
}

// ManhattanDistance returns |dx|+|dy|+|dz| between two rooms.
func (r *Room) ManhattanDistance(other *Room) int {
	return abs(other.X-r.X) + abs(other.Y-r.Y) + abs(other.Z-r.Z)
}

// SortedExits returns the room's exits in direction order.
func (r *Room) SortedExits() []Direction {
	out := make([]Direction, 0, len(r.Exits))
	for _, d := range AllDirections {
		if _, ok := r.Exits[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Info renders the room in the field-per-line format used by rinfo.
func (r *Room) Info() string {
	coords := "undefined"
	if r.HasCoordinates {
		coords = fmt.Sprintf("(%d, %d, %d)", r.X, r.Y, r.Z)
	}
	lines := []string{
		fmt.Sprintf("vnum: '%s'", r.Vnum),
		fmt.Sprintf("Name: '%s'", r.Name),
		"Description:",
		"-----",
	}
	lines = append(lines, strings.Split(r.Desc, "\n")...)
	lines = append(lines, "-----", "Dynamic Desc:", "-----")
	lines = append(lines, strings.Split(r.DynamicDesc, "\n")...)
	lines = append(lines,
		"-----",
		fmt.Sprintf("Note: '%s'", r.Note),
		fmt.Sprintf("Area: '%s'", r.Area),
		fmt.Sprintf("Terrain: '%s'", r.Terrain),
		fmt.Sprintf("Light: '%s'", r.Light),
		fmt.Sprintf("Align: '%s'", r.Align),
		fmt.Sprintf("Portable: '%s'", r.Portable),
		fmt.Sprintf("Ridable: '%s'", r.Ridable),
		fmt.Sprintf("Sundeath: '%s'", r.Sundeath),
		fmt.Sprintf("Avoid: '%t'", r.Avoid),
		fmt.Sprintf("Mob Flags: '%s'", r.MobFlags),
		fmt.Sprintf("Load Flags: '%s'", r.LoadFlags),
		fmt.Sprintf("Coordinates (X, Y, Z): '%s'", coords),
		"Exits:",
	)
	for _, d := range r.SortedExits() {
		ex := r.Exits[d]
		lines = append(lines,
			"-----",
			fmt.Sprintf("Direction: '%s'", d),
			fmt.Sprintf("To: '%s'", ex.To),
			fmt.Sprintf("Exit Flags: '%s'", ex.ExitFlags),
			fmt.Sprintf("Door Name: '%s'", ex.Door),
			fmt.Sprintf("Door Flags: '%s'", ex.DoorFlags),
		)
	}
	return strings.Join(lines, "\n")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
