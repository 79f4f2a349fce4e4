package mapdb

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var labelPattern = regexp.MustCompile(`^[A-Za-z]`)

// World owns every Room record and the label index. Rooms are referenced
// from exits and labels by vnum only; deleting a room walks inbound exits to
// clear the dangling references.
type World struct {
	Rooms  map[string]*Room
	Labels map[string]string
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{
		Rooms:  make(map[string]*Room),
		Labels: make(map[string]string),
	}
}

// Room returns the room with the given vnum, or nil.
func (w *World) Room(vnum string) *Room {
	return w.Rooms[vnum]
}

// AddRoom inserts a room, rejecting duplicate vnums.
func (w *World) AddRoom(r *Room) error {
	if r.Vnum == "" {
		return &IntegrityError{Detail: "room has no vnum"}
	}
	if _, exists := w.Rooms[r.Vnum]; exists {
		return &IntegrityError{Vnum: r.Vnum, Detail: "duplicate vnum"}
	}
	w.Rooms[r.Vnum] = r
	return nil
}

// DeleteRoom removes a room, converts every inbound exit to "undefined", and
// drops any labels pointing at it.
func (w *World) DeleteRoom(vnum string) error {
	if _, ok := w.Rooms[vnum]; !ok {
		return fmt.Errorf("vnum %q does not exist", vnum)
	}
	for _, room := range w.Rooms {
		for _, ex := range room.Exits {
			if ex.To == vnum {
				ex.To = ToUndefined
			}
		}
	}
	for label, target := range w.Labels {
		if target == vnum {
			delete(w.Labels, label)
		}
	}
	delete(w.Rooms, vnum)
	return nil
}

// NextVnum returns an unused vnum one greater than the highest in the world.
func (w *World) NextVnum() string {
	highest := -1
	for vnum := range w.Rooms {
		if n, err := strconv.Atoi(vnum); err == nil && n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1)
}

// LinkExit points from's exit in the given direction at to, creating the
// exit slot if needed. Unless oneway is set and the reverse slot in the
// destination is free, the reverse exit is linked back. to may also be the
// "undefined" sentinel to unlink.
func (w *World) LinkExit(from string, dir Direction, to string, oneway bool) error {
	src, ok := w.Rooms[from]
	if !ok {
		return fmt.Errorf("vnum %q does not exist", from)
	}
	if to != ToUndefined && to != ToDeath {
		if _, ok := w.Rooms[to]; !ok {
			return &IntegrityError{Vnum: from, Detail: fmt.Sprintf("exit target %q not in database", to)}
		}
	}
	ex, ok := src.Exits[dir]
	if !ok {
		ex = NewExit()
		src.Exits[dir] = ex
	}
	ex.To = to
	if oneway || to == ToUndefined || to == ToDeath {
		return nil
	}
	dest := w.Rooms[to]
	rev := dir.Reverse()
	back, ok := dest.Exits[rev]
	if !ok {
		back = NewExit()
		dest.Exits[rev] = back
	}
	if back.To == ToUndefined {
		back.To = from
	}
	return nil
}

// SetLabel binds a label to a vnum. Labels must start with a letter and are
// unique; rebinding an existing label moves it.
func (w *World) SetLabel(label, vnum string) error {
	if !labelPattern.MatchString(label) {
		return &IntegrityError{Detail: fmt.Sprintf("label %q must start with a letter", label)}
	}
	if _, ok := w.Rooms[vnum]; !ok {
		return &IntegrityError{Vnum: vnum, Detail: "label target not in database"}
	}
	w.Labels[label] = vnum
	return nil
}

// DeleteLabel removes a label.
func (w *World) DeleteLabel(label string) error {
	if _, ok := w.Labels[label]; !ok {
		return fmt.Errorf("no label %q in the database", label)
	}
	delete(w.Labels, label)
	return nil
}

// LabelsFor returns all labels bound to a vnum, sorted.
func (w *World) LabelsFor(vnum string) []string {
	var out []string
	for label, target := range w.Labels {
		if target == vnum {
			out = append(out, label)
		}
	}
	sort.Strings(out)
	return out
}

// Resolve turns a vnum or label into a room. Decimal text is treated as a
// vnum, anything else as a label.
func (w *World) Resolve(text string) (*Room, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("no label or room vnum specified")
	}
	if isDecimal(text) {
		if room, ok := w.Rooms[text]; ok {
			return room, nil
		}
		return nil, fmt.Errorf("no room with vnum %s", text)
	}
	vnum, ok := w.Labels[text]
	if !ok {
		return nil, fmt.Errorf("unknown label %q", text)
	}
	room, ok := w.Rooms[vnum]
	if !ok {
		return nil, fmt.Errorf("%s is set to vnum %s, but there is no room with that vnum", text, vnum)
	}
	return room, nil
}

// Check walks the whole graph and returns every integrity violation found:
// numeric exit targets that reference no room, and labels bound to missing
// rooms. The world itself is not modified.
func (w *World) Check() []error {
	var errs []error
	for vnum, room := range w.Rooms {
		for dir, ex := range room.Exits {
			if ex.To == ToUndefined || ex.To == ToDeath {
				continue
			}
			if _, ok := w.Rooms[ex.To]; !ok {
				errs = append(errs, &IntegrityError{
					Vnum:   vnum,
					Detail: fmt.Sprintf("exit %s points at missing vnum %q", dir, ex.To),
				})
			}
		}
	}
	for label, vnum := range w.Labels {
		if _, ok := w.Rooms[vnum]; !ok {
			errs = append(errs, &IntegrityError{
				Vnum:   vnum,
				Detail: fmt.Sprintf("label %q points at missing room", label),
			})
		}
	}
	return errs
}

// CoerceDangling converts every dangling numeric exit target to "undefined"
// and drops labels bound to missing rooms. Returns how many references were
// repaired. Used at load time so a damaged file still yields a usable graph.
func (w *World) CoerceDangling() int {
	repaired := 0
	for _, room := range w.Rooms {
		for _, ex := range room.Exits {
			if ex.To == ToUndefined || ex.To == ToDeath {
				continue
			}
			if _, ok := w.Rooms[ex.To]; !ok {
				ex.To = ToUndefined
				repaired++
			}
		}
	}
	for label, vnum := range w.Labels {
		if _, ok := w.Rooms[vnum]; !ok {
			delete(w.Labels, label)
			repaired++
		}
	}
	return repaired
}

// IsBidirectional reports whether moving through the exit and back along the
// reverse direction returns to the starting room.
func (w *World) IsBidirectional(vnum string, dir Direction) bool {
	room, ok := w.Rooms[vnum]
	if !ok {
		return false
	}
	ex, ok := room.Exits[dir]
	if !ok {
		return false
	}
	dest, ok := w.Rooms[ex.To]
	if !ok {
		return false
	}
	back, ok := dest.Exits[dir.Reverse()]
	return ok && back.To == vnum
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
