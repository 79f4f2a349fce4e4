package mapper

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/arda-maps/gomapper/pkg/mapdb"
)

// maxSearchResults caps every find command's output.
const maxSearchResults = 20

// searchField selects which room attribute a find command matches against.
type searchField int

const (
	fieldName searchField = iota
	fieldNote
	fieldDynamic
	fieldDoor
	fieldLabel
)

type searchHit struct {
	room      *mapdb.Room
	attribute string
	distance  int
	located   bool // room has defined coordinates
}

// Find returns up to 20 rooms matching the query in the given field, ordered
// from furthest to nearest by Manhattan distance from the current room.
// Rooms without coordinates rank last (printed first). Matching is
// case-insensitive substring containment; if that finds nothing, the fuzzy
// matcher used by the synchronizer is tried so minor text variation still
// hits.
func (s *Session) Find(field searchField, query string) []searchHit {
	hits := s.findSubstring(field, query)
	if len(hits) == 0 && query != "" && field != fieldLabel {
		hits = s.findFuzzy(field, query)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].located != hits[j].located {
			return hits[i].located && !hits[j].located
		}
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].room.Vnum < hits[j].room.Vnum
	})
	if len(hits) > maxSearchResults {
		hits = hits[:maxSearchResults]
	}
	// Nearest-first becomes furthest-first for display: the closest result
	// ends up at the bottom of the player's screen.
	for i, j := 0, len(hits)-1; i < j; i, j = i+1, j-1 {
		hits[i], hits[j] = hits[j], hits[i]
	}
	return hits
}

func (s *Session) findSubstring(field searchField, query string) []searchHit {
	needle := strings.ToLower(strings.TrimSpace(query))
	var hits []searchHit
	if field == fieldLabel {
		seen := make(map[string]bool)
		for label, vnum := range s.World.Labels {
			if needle != "" && !strings.Contains(strings.ToLower(label), needle) {
				continue
			}
			room, ok := s.World.Rooms[vnum]
			if !ok || seen[vnum] {
				continue
			}
			seen[vnum] = true
			hits = append(hits, s.makeHit(room, strings.Join(s.World.LabelsFor(vnum), ", ")))
		}
		return hits
	}
	if needle == "" {
		return nil
	}
	for _, room := range s.World.Rooms {
		attribute, ok := matchField(room, field, needle)
		if ok {
			hits = append(hits, s.makeHit(room, attribute))
		}
	}
	return hits
}

func (s *Session) findFuzzy(field searchField, query string) []searchHit {
	var hits []searchHit
	for _, room := range s.World.Rooms {
		value := fieldValue(room, field)
		if value == "" {
			continue
		}
		if s.Similarity(strings.ToLower(value), strings.ToLower(query)) >= s.Cfg.SimilarityThreshold {
			hits = append(hits, s.makeHit(room, value))
		}
	}
	return hits
}

func (s *Session) makeHit(room *mapdb.Room, attribute string) searchHit {
	hit := searchHit{room: room, attribute: attribute, located: room.HasCoordinates}
	if s.Current != nil && room.HasCoordinates && s.Current.HasCoordinates {
		hit.distance = s.Current.ManhattanDistance(room)
	}
	return hit
}

func matchField(room *mapdb.Room, field searchField, needle string) (string, bool) {
	if field == fieldDoor {
		var found []string
		for _, dir := range room.SortedExits() {
			ex := room.Exits[dir]
			if ex.Door != "" && strings.Contains(strings.ToLower(ex.Door), needle) {
				found = append(found, dir.String()+": "+ex.Door)
			}
		}
		return strings.Join(found, ", "), len(found) > 0
	}
	value := fieldValue(room, field)
	if strings.Contains(strings.ToLower(value), needle) {
		return value, true
	}
	return "", false
}

func fieldValue(room *mapdb.Room, field searchField) string {
	switch field {
	case fieldName:
		return room.Name
	case fieldNote:
		return room.Note
	case fieldDynamic:
		return room.DynamicDesc
	default:
		return ""
	}
}

// renderHits prints search results with the configured format line.
func (s *Session) renderHits(hits []searchHit) string {
	if len(hits) == 0 {
		return "Nothing found."
	}
	lines := make([]string, 0, len(hits))
	replacerFor := func(h searchHit) *strings.Replacer {
		distance := "?"
		if h.located {
			distance = strconv.Itoa(h.distance)
		}
		return strings.NewReplacer(
			"{vnum}", h.room.Vnum,
			"{name}", h.room.Name,
			"{attribute}", strings.ReplaceAll(h.attribute, "\n", " "),
			"{distance}", distance,
		)
	}
	for _, h := range hits {
		lines = append(lines, replacerFor(h).Replace(s.Cfg.FindFormat))
	}
	return strings.Join(lines, "\n")
}

// labelSearch is the `rlabel search` subcommand: every label containing the
// needle with the room it points at.
func (s *Session) labelSearch(needle string) string {
	var results []string
	for label, vnum := range s.World.Labels {
		if !strings.Contains(label, needle) {
			continue
		}
		name := "VNum not in map"
		if room, ok := s.World.Rooms[vnum]; ok {
			name = room.Name
		}
		results = append(results, fmt.Sprintf("%s - %s - %s", label, name, vnum))
	}
	if len(results) == 0 {
		return "Nothing found."
	}
	sort.Strings(results)
	return strings.Join(results, "\n")
}
